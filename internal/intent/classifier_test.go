package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding service down")
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return log
}

func TestClassifyHalalFAQ(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	res := c.Classify(context.Background(), "Est-ce halal?", nil)

	require.NotNil(t, res)
	assert.Equal(t, model.IntentFAQHalal, res.Primary.Intent)
	assert.GreaterOrEqual(t, res.Primary.Confidence, 0.8)
	assert.False(t, res.EscalationFlag)
	assert.False(t, res.RequiresContext)
}

func TestClassifyMissingItemWithOrderNumber(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	res := c.Classify(context.Background(), "il manque des frites dans ma commande 12345", nil)

	assert.Equal(t, model.IntentMissingItem, res.Primary.Intent)
	assert.Equal(t, "12345", res.Entities.OrderNumber)
	assert.True(t, res.EscalationFlag)
	assert.True(t, res.RequiresContext)
	assert.True(t, res.Sentiment.HasComplaint)
}

func TestClassifyAlwaysReturnsResult(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	for _, utterance := range []string{
		"",
		"xyzzy frobnicate",
		"Est-ce halal?",
		"je veux un remboursement MAINTENANT",
		"waar is mijn bestelling?",
	} {
		res := c.Classify(context.Background(), utterance, nil)
		require.NotNil(t, res, "utterance %q", utterance)
		assert.GreaterOrEqual(t, res.Primary.Confidence, 0.0)
		assert.LessOrEqual(t, res.Primary.Confidence, 1.0)
		assert.LessOrEqual(t, len(res.Alternatives), 2)
	}
}

func TestClassifyUnmatchedYieldsUnclear(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	res := c.Classify(context.Background(), "qqqq wwww", nil)

	assert.Equal(t, model.IntentUnclear, res.Primary.Intent)
	assert.Zero(t, res.Primary.Confidence)
}

func TestClassifyEmbeddingFailureFallsBackToKeywords(t *testing.T) {
	c := NewClassifier(failingEmbedder{}, testLogger(t))

	res := c.Classify(context.Background(), "Est-ce halal?", nil)

	assert.Equal(t, model.IntentFAQHalal, res.Primary.Intent)
	assert.GreaterOrEqual(t, res.Primary.Confidence, 0.8)
}

func TestClassifyEscalationOnUrgentPriority(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	res := c.Classify(context.Background(), "ou est ma commande ? c'est urgent", nil)

	assert.Equal(t, model.IntentOrderTracking, res.Primary.Intent)
	assert.Equal(t, model.PriorityUrgent, res.Entities.Priority)
	assert.True(t, res.EscalationFlag)
}

func TestClassifyNegativeSentimentAmplification(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	mild := c.Classify(context.Background(), "le plat etait froid", nil)
	harsh := c.Classify(context.Background(), "horrible, froid, degueulasse, une honte", nil)

	assert.Equal(t, "negative", mild.Sentiment.Polarity)
	assert.Equal(t, "negative", harsh.Sentiment.Polarity)
	assert.Less(t, harsh.Sentiment.Intensity, mild.Sentiment.Intensity)
	assert.True(t, harsh.EscalationFlag)
	assert.GreaterOrEqual(t, harsh.Sentiment.Intensity, -1.0)
}

func TestEntityBackfillFromMetadata(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))
	convCtx := model.NewConversationContext("s1")
	convCtx.Metadata.Branch = "ixelles"
	convCtx.Metadata.Platform = "deliveroo"

	res := c.Classify(context.Background(), "ou est ma commande 98765", convCtx)

	assert.Equal(t, "ixelles", res.Entities.Branch)
	assert.Equal(t, "deliveroo", res.Entities.Platform)
	assert.Equal(t, "98765", res.Entities.OrderNumber)
}

func TestEntityExtractionExplicitValues(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	res := c.Classify(context.Background(),
		"commande via uber eats a anderlecht, mon mail est jean@example.com, allergie arachide", nil)

	assert.Equal(t, "ubereats", res.Entities.Platform)
	assert.Equal(t, "anderlecht", res.Entities.Branch)
	assert.Equal(t, "jean@example.com", res.Entities.Email)
	assert.Contains(t, res.Entities.Allergens, "arachide")
}

func TestDetectLanguage(t *testing.T) {
	c := NewClassifier(nil, testLogger(t))

	assert.Equal(t, "fr", c.DetectLanguage("bonjour je veux ma commande", ""))
	assert.Equal(t, "nl", c.DetectLanguage("hallo waar is mijn bestelling", ""))
	assert.Equal(t, "en", c.DetectLanguage("hello where is my order please", ""))
	// No signal keeps the previous detection.
	assert.Equal(t, "nl", c.DetectLanguage("12345", "nl"))
}
