package template

import (
	"fmt"

	"github.com/resto-ai/support-engine/internal/model"
)

// HalalAnswer is the canonical halal FAQ response.
const HalalAnswer = "Oui, toute notre viande est 100% halal et certifiée par un organisme indépendant. N'hésitez pas si vous avez d'autres questions !"

// FallbackAnswer is the static last-resort response.
const FallbackAnswer = "Désolé, je n'ai pas bien compris votre demande. Pouvez-vous reformuler, ou souhaitez-vous parler à un membre de notre équipe ?"

// ApologyAnswer is returned when the pipeline fails unexpectedly.
const ApologyAnswer = "Désolé, un problème technique nous empêche de traiter votre message. Un membre de notre équipe va prendre le relais."

func builtinTemplates() []model.ResponseTemplate {
	return []model.ResponseTemplate{
		{
			ID:     "halal",
			Intent: model.IntentFAQHalal,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return HalalAnswer
			},
			Actions: []model.Action{
				{Type: "quick_reply", Label: "Voir le menu", Value: "menu"},
			},
			Metadata: model.TemplateMetadata{Tags: []string{"faq"}},
		},
		{
			ID:     "hours",
			Intent: model.IntentFAQHours,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				if e.Branch != "" {
					return fmt.Sprintf("Notre restaurant de %s est ouvert tous les jours de 11h30 à 22h00.", e.Branch)
				}
				return "Nos restaurants sont ouverts tous les jours de 11h30 à 22h00."
			},
			Metadata: model.TemplateMetadata{Tags: []string{"faq"}},
		},
		{
			ID:     "delivery",
			Intent: model.IntentFAQDelivery,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Nous livrons via Uber Eats, Deliveroo et Takeaway. Les frais et zones de livraison dépendent de la plateforme choisie."
			},
			Metadata: model.TemplateMetadata{Tags: []string{"faq"}},
		},
		{
			ID:     "allergens",
			Intent: model.IntentFAQAllergens,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				if len(e.Allergens) > 0 {
					return fmt.Sprintf("La liste complète des allergènes (%v compris) est disponible sur la fiche de chaque plat. En cas d'allergie sévère, signalez-le en commentaire de commande.", e.Allergens)
				}
				return "La liste des allergènes de chaque plat est disponible sur sa fiche produit. En cas d'allergie sévère, signalez-le en commentaire de commande."
			},
			Metadata: model.TemplateMetadata{CanEscalate: true, Tags: []string{"faq"}},
		},
		{
			ID:     "payment",
			Intent: model.IntentFAQPayment,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Nous acceptons Bancontact, Visa, Mastercard, les tickets restaurant et le cash sur place."
			},
			Metadata: model.TemplateMetadata{Tags: []string{"faq"}},
		},
		{
			ID:     "tracking_with_order",
			Intent: model.IntentOrderTracking,
			Condition: func(c *model.ConversationContext, e model.EntityExtraction) bool {
				return e.OrderNumber != ""
			},
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return fmt.Sprintf("Je vérifie la commande %s tout de suite.", e.OrderNumber)
			},
			Metadata: model.TemplateMetadata{Priority: 10},
		},
		{
			ID:     "tracking_no_order",
			Intent: model.IntentOrderTracking,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Pouvez-vous me donner votre numéro de commande ? Je le trouve dans votre email de confirmation."
			},
			Actions: []model.Action{
				{Type: "input", Label: "Numéro de commande", Value: "order_number"},
			},
		},
		{
			ID:     "missing_item",
			Intent: model.IntentMissingItem,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				if e.OrderNumber != "" {
					return fmt.Sprintf("Je suis désolé pour l'article manquant dans la commande %s. Je transmets immédiatement votre dossier à notre équipe pour un geste commercial.", e.OrderNumber)
				}
				return "Je suis désolé pour l'article manquant. Pouvez-vous me donner votre numéro de commande ? Je transmets votre dossier à notre équipe."
			},
			Metadata: model.TemplateMetadata{CanEscalate: true, Priority: 5},
		},
		{
			ID:     "refund",
			Intent: model.IntentRefundRequest,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Je comprends votre demande de remboursement. Notre équipe va examiner votre dossier et revenir vers vous rapidement."
			},
			Metadata: model.TemplateMetadata{CanEscalate: true},
		},
		{
			ID:     "speak_agent",
			Intent: model.IntentSpeakAgent,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Bien sûr, je vous mets en relation avec un membre de notre équipe. Pouvez-vous me confirmer votre adresse email ?"
			},
			Metadata: model.TemplateMetadata{CanEscalate: true},
		},
		{
			ID:     "contact_support",
			Intent: model.IntentContactSupport,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Vous pouvez joindre notre service client ici même, je crée un ticket pour vous. Quelle est votre adresse email ?"
			},
			Metadata: model.TemplateMetadata{CanEscalate: true},
		},
		{
			ID:     "greeting",
			Intent: model.IntentGreeting,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				switch c.Metadata.Language {
				case "en":
					return "Hello! How can I help you today?"
				case "nl":
					return "Hallo! Waarmee kan ik u helpen?"
				default:
					return "Bonjour ! Comment puis-je vous aider ?"
				}
			},
		},
		{
			ID:     "goodbye",
			Intent: model.IntentGoodbye,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Merci de votre visite, à bientôt !"
			},
		},
		{
			ID:     "thanks",
			Intent: model.IntentThanks,
			Render: func(c *model.ConversationContext, e model.EntityExtraction) string {
				return "Avec plaisir ! Autre chose pour vous ?"
			},
		},
	}
}
