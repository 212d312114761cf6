package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resto-ai/support-engine/internal/model"
	"github.com/resto-ai/support-engine/pkg/logger"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	log, err := logger.NewDevelopment()
	require.NoError(t, err)
	return NewRegistry(log)
}

func TestResolveHalal(t *testing.T) {
	r := testRegistry(t)
	convCtx := model.NewConversationContext("s1")

	text, _, ok := r.Render(model.IntentFAQHalal, convCtx, model.EntityExtraction{})

	require.True(t, ok)
	assert.Equal(t, HalalAnswer, text)
}

func TestResolvePrefersConditionalTemplate(t *testing.T) {
	r := testRegistry(t)
	convCtx := model.NewConversationContext("s1")

	withOrder, _, ok := r.Render(model.IntentOrderTracking, convCtx, model.EntityExtraction{OrderNumber: "12345"})
	require.True(t, ok)
	assert.Contains(t, withOrder, "12345")

	withoutOrder, _, ok := r.Render(model.IntentOrderTracking, convCtx, model.EntityExtraction{})
	require.True(t, ok)
	assert.Contains(t, withoutOrder, "numéro de commande")
}

func TestResolveUnknownIntent(t *testing.T) {
	r := testRegistry(t)

	_, _, ok := r.Render(model.IntentUnclear, model.NewConversationContext("s1"), model.EntityExtraction{})

	assert.False(t, ok)
}

func TestGreetingFollowsDetectedLanguage(t *testing.T) {
	r := testRegistry(t)
	convCtx := model.NewConversationContext("s1")
	convCtx.Metadata.Language = "nl"

	text, _, ok := r.Render(model.IntentGreeting, convCtx, model.EntityExtraction{})

	require.True(t, ok)
	assert.Contains(t, text, "Hallo")
}

func TestAddTemplateRejectedAfterFreeze(t *testing.T) {
	r := testRegistry(t)

	custom := model.ResponseTemplate{
		ID:     "custom",
		Intent: model.IntentUnclear,
		Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
			return "custom answer"
		},
	}
	require.NoError(t, r.AddTemplate(custom, "ops-team"))

	r.Freeze()
	err := r.AddTemplate(custom, "ops-team")
	assert.Error(t, err)

	// The pre-freeze registration still resolves.
	text, _, ok := r.Render(model.IntentUnclear, model.NewConversationContext("s1"), model.EntityExtraction{})
	require.True(t, ok)
	assert.Equal(t, "custom answer", text)
}
