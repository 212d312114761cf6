package intent

import (
	"regexp"
	"strings"

	"github.com/resto-ai/support-engine/internal/model"
)

var (
	orderNumberRe = regexp.MustCompile(`(?:commande|order|bestelling|#)\s*#?\s*(\d{3,10})|\b(\d{5,10})\b`)
	emailRe       = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe       = regexp.MustCompile(`(?:\+|00)?\d[\d\s./\-]{7,14}\d`)
)

// Platform and branch vocabularies. Matching is case-insensitive on the
// normalized utterance.
var (
	platformNames = map[string]string{
		"uber eats":  "ubereats",
		"ubereats":   "ubereats",
		"deliveroo":  "deliveroo",
		"takeaway":   "takeaway",
		"just eat":   "takeaway",
		"sur place":  "onsite",
		"emporter":   "pickup",
		"pickup":     "pickup",
		"afhalen":    "pickup",
	}
	branchNames = []string{
		"anderlecht", "schaerbeek", "ixelles", "molenbeek", "bruxelles",
		"brussels", "gent", "gand", "antwerpen", "anvers", "liege", "luik",
	}
	allergenNames = []string{
		"gluten", "lactose", "arachide", "peanut", "pinda", "noix", "noten",
		"nuts", "soja", "soy", "sesame", "oeuf", "egg", "ei", "poisson",
		"fish", "vis", "crustace", "shellfish",
	}
)

// extractEntities pulls structured entities out of the normalized utterance
// and back-fills branch/platform from session metadata when absent.
func extractEntities(normalized string, convCtx *model.ConversationContext) model.EntityExtraction {
	var e model.EntityExtraction

	if m := orderNumberRe.FindStringSubmatch(normalized); m != nil {
		if m[1] != "" {
			e.OrderNumber = m[1]
		} else {
			e.OrderNumber = m[2]
		}
	}
	if m := emailRe.FindString(normalized); m != "" {
		e.Email = m
	}
	// Phone matching runs after order-number matching; skip the span we
	// already claimed as an order number to avoid double-capture.
	if m := phoneRe.FindString(normalized); m != "" && !strings.Contains(m, e.OrderNumber) {
		e.Phone = strings.TrimSpace(m)
	}

	for name, canonical := range platformNames {
		if strings.Contains(normalized, name) {
			e.Platform = canonical
			break
		}
	}
	for _, b := range branchNames {
		if strings.Contains(normalized, b) {
			e.Branch = b
			break
		}
	}
	for _, a := range allergenNames {
		if strings.Contains(normalized, a) {
			e.Allergens = append(e.Allergens, a)
		}
	}

	e.Priority = model.PriorityNormal
	for _, u := range urgencyWords {
		if strings.Contains(normalized, u) {
			e.Priority = model.PriorityUrgent
			break
		}
	}

	if convCtx != nil {
		if e.Branch == "" {
			e.Branch = convCtx.Metadata.Branch
		}
		if e.Platform == "" {
			e.Platform = convCtx.Metadata.Platform
		}
	}

	return e
}

// detectLanguage picks the language whose marker words dominate, keeping
// the previously detected language on a tie or no signal.
func detectLanguage(normalized, previous string) string {
	best, bestCount := previous, 0
	tokens := " " + normalized + " "
	for lang, markers := range languageMarkers {
		count := 0
		for _, m := range markers {
			if strings.Contains(tokens, " "+m+" ") || strings.Contains(tokens, m+"'") {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = lang, count
		}
	}
	if best == "" {
		best = "fr"
	}
	return best
}
