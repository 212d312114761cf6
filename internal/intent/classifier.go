// Package intent classifies user utterances into support intents.
package intent

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/metrics"
)

const (
	// confidenceFloor is the minimum score for a primary intent.
	confidenceFloor = 0.1
	// maxAlternatives caps the secondary candidates.
	maxAlternatives = 2

	keywordWeight   = 0.65
	embeddingWeight = 0.35
)

// Classifier scores utterances against the known intent set using keyword
// tables and, when an embedder is available, semantic similarity.
type Classifier struct {
	embedder llm.Embedder
	logger   *logger.Logger

	protoOnce sync.Once
	protoVecs map[model.Intent][]float32
}

// NewClassifier creates a classifier. embedder may be nil; classification
// then runs keyword-only.
func NewClassifier(embedder llm.Embedder, log *logger.Logger) *Classifier {
	return &Classifier{
		embedder: embedder,
		logger:   log,
	}
}

// Classify produces an IntentResult for one utterance. It never returns a
// nil result: when nothing matches, the primary intent is "unclear" with
// confidence 0.
func (c *Classifier) Classify(ctx context.Context, utterance string, convCtx *model.ConversationContext) *model.IntentResult {
	normalized := normalize(utterance)
	tokens := strings.Fields(normalized)

	entities := extractEntities(normalized, convCtx)
	sentiment := scoreSentiment(normalized)

	scores := c.scoreIntents(ctx, normalized)
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	primary := model.IntentScore{Intent: model.IntentUnclear, Confidence: 0, Tokens: tokens}
	var alternatives []model.IntentScore
	if len(scores) > 0 && scores[0].Confidence >= confidenceFloor {
		primary = scores[0]
		primary.Tokens = tokens
		for _, s := range scores[1:] {
			if len(alternatives) == maxAlternatives || s.Confidence < confidenceFloor {
				break
			}
			alternatives = append(alternatives, s)
		}
	}

	escalate := sentiment.Intensity < -0.7 ||
		sentiment.HasComplaint ||
		entities.Priority == model.PriorityUrgent

	result := &model.IntentResult{
		Primary:         primary,
		Alternatives:    alternatives,
		Entities:        entities,
		Sentiment:       sentiment,
		RequiresContext: requiresContextIntents[primary.Intent],
		EscalationFlag:  escalate,
	}

	metrics.IntentsTotal.WithLabelValues(string(primary.Intent)).Inc()
	return result
}

// DetectLanguage exposes lexical language detection for metadata updates.
func (c *Classifier) DetectLanguage(utterance, previous string) string {
	return detectLanguage(normalize(utterance), previous)
}

// scoreIntents combines keyword boosts with embedding similarity. Embedding
// failures degrade silently to keyword-only scoring.
func (c *Classifier) scoreIntents(ctx context.Context, normalized string) []model.IntentScore {
	embedScores := c.embeddingScores(ctx, normalized)

	out := make([]model.IntentScore, 0, len(intentPatterns))
	for intent, patterns := range intentPatterns {
		kw := 0.0
		for _, p := range patterns {
			if strings.Contains(normalized, p.keyword) {
				kw += p.weight
			}
		}
		if kw > 1 {
			kw = 1
		}

		score := kw
		if embedScores != nil {
			score = keywordWeight*kw + embeddingWeight*embedScores[intent]
			// A strong keyword hit should not be diluted below the
			// floor a template lookup expects.
			if kw > score {
				score = kw
			}
		}
		if score > 0 {
			out = append(out, model.IntentScore{Intent: intent, Confidence: score})
		}
	}
	return out
}

// embeddingScores returns per-intent cosine similarity in [0,1], or nil
// when the embedding service is unavailable.
func (c *Classifier) embeddingScores(ctx context.Context, normalized string) map[model.Intent]float64 {
	if c.embedder == nil {
		return nil
	}

	c.protoOnce.Do(func() {
		vecs := make(map[model.Intent][]float32, len(intentPrototypes))
		for intent, phrase := range intentPrototypes {
			v, err := c.embedder.Embed(ctx, phrase)
			if err != nil {
				c.logger.Warn("intent prototype embedding failed",
					zap.String("intent", string(intent)), zap.Error(err))
				return
			}
			vecs[intent] = v
		}
		c.protoVecs = vecs
	})
	if c.protoVecs == nil {
		return nil
	}

	utteranceVec, err := c.embedder.Embed(ctx, normalized)
	if err != nil {
		c.logger.Warn("utterance embedding failed, keyword-only scoring", zap.Error(err))
		return nil
	}

	out := make(map[model.Intent]float64, len(c.protoVecs))
	for intent, v := range c.protoVecs {
		// Map cosine [-1,1] to [0,1].
		out[intent] = (Cosine(utteranceVec, v) + 1) / 2
	}
	return out
}

// scoreSentiment derives polarity and intensity from lexical markers,
// amplifying negative intensity when several negative markers co-occur.
func scoreSentiment(normalized string) model.SentimentScore {
	neg, pos := 0, 0
	for _, w := range negativeWords {
		if strings.Contains(normalized, w) {
			neg++
		}
	}
	for _, w := range positiveWords {
		if strings.Contains(normalized, w) {
			pos++
		}
	}

	hasComplaint := false
	for _, w := range complaintWords {
		if strings.Contains(normalized, w) {
			hasComplaint = true
			break
		}
	}
	hasUrgency := false
	for _, w := range urgencyWords {
		if strings.Contains(normalized, w) {
			hasUrgency = true
			break
		}
	}

	intensity := 0.35*float64(pos) - 0.4*float64(neg)
	if neg >= 2 {
		intensity -= 0.25 * float64(neg-1)
	}
	intensity = clamp(intensity, -1, 1)

	polarity := "neutral"
	switch {
	case intensity <= -0.2:
		polarity = "negative"
	case intensity >= 0.2:
		polarity = "positive"
	}

	return model.SentimentScore{
		Polarity:     polarity,
		Intensity:    intensity,
		HasComplaint: hasComplaint,
		HasUrgency:   hasUrgency,
	}
}

// normalize lowercases, trims, and strips accents relevant to matching.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"à", "a", "â", "a", "î", "i", "ï", "i",
		"ô", "o", "û", "u", "ù", "u", "ç", "c",
		"’", "'",
	)
	return replacer.Replace(s)
}

// Cosine computes cosine similarity between two vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
