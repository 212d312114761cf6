package intent

import (
	"github.com/resto-ai/support-engine/internal/model"
)

// pattern is one weighted keyword trigger for an intent. Keywords are
// matched against the normalized utterance as substrings, so French
// elisions ("l'adresse") and inflections still hit.
type pattern struct {
	keyword string
	weight  float64
}

// intentPatterns maps each intent to its FR/EN/NL trigger table. Weights
// are additive per intent and capped at 1.0.
var intentPatterns = map[model.Intent][]pattern{
	model.IntentFAQHalal: {
		{"halal", 0.9},
		{"viande", 0.2},
		{"certifi", 0.3},
	},
	model.IntentFAQHours: {
		{"horaire", 0.8}, {"ouvert", 0.7}, {"ferme", 0.5},
		{"opening hours", 0.9}, {"open today", 0.7},
		{"openingsuren", 0.9}, {"quelle heure", 0.6},
	},
	model.IntentFAQMenu: {
		{"menu", 0.8}, {"carte", 0.5}, {"plat", 0.4},
		{"kaart", 0.4}, {"dish", 0.4}, {"assortiment", 0.4},
	},
	model.IntentFAQDelivery: {
		{"livraison", 0.7}, {"livrez", 0.8}, {"zone", 0.3},
		{"deliver", 0.7}, {"bezorg", 0.8}, {"frais de livraison", 0.9},
	},
	model.IntentFAQAllergens: {
		{"allerg", 0.9}, {"gluten", 0.6}, {"lactose", 0.6},
		{"arachide", 0.6}, {"noten", 0.5}, {"peanut", 0.6},
	},
	model.IntentFAQPayment: {
		{"paiement", 0.8}, {"payer", 0.6}, {"payment", 0.8},
		{"betalen", 0.8}, {"bancontact", 0.7}, {"cash", 0.5},
		{"ticket restaurant", 0.8},
	},
	model.IntentOrderTracking: {
		{"ou est ma commande", 0.9}, {"suivi", 0.7}, {"track", 0.8},
		{"toujours pas recu", 0.6}, {"where is my order", 0.9},
		{"waar is mijn bestelling", 0.9}, {"en route", 0.3},
		{"combien de temps", 0.4},
	},
	model.IntentComplaint: {
		{"plainte", 0.9}, {"scandale", 0.7}, {"inadmissible", 0.8},
		{"complaint", 0.9}, {"klacht", 0.9}, {"deçu", 0.5},
		{"decu", 0.5}, {"disappointed", 0.6},
	},
	model.IntentRefundRequest: {
		{"rembours", 0.9}, {"refund", 0.9}, {"terugbetal", 0.9},
		{"rendre mon argent", 0.8}, {"money back", 0.8},
	},
	model.IntentMissingItem: {
		{"il manque", 0.9}, {"manquant", 0.8}, {"missing", 0.8},
		{"pas recu mes", 0.6}, {"ontbreekt", 0.8}, {"incomplet", 0.7},
		{"oublie", 0.5},
	},
	model.IntentWrongOrder: {
		{"mauvaise commande", 0.9}, {"pas ce que j'ai commande", 0.9},
		{"wrong order", 0.9}, {"verkeerde bestelling", 0.9},
		{"erreur dans ma commande", 0.8}, {"pas commande ca", 0.7},
	},
	model.IntentQualityIssue: {
		{"froid", 0.7}, {"cold", 0.6}, {"koud", 0.7},
		{"immangeable", 0.9}, {"pas frais", 0.7}, {"brule", 0.6},
		{"cru", 0.5}, {"degueulasse", 0.8}, {"not fresh", 0.7},
	},
	model.IntentContactSupport: {
		{"contacter", 0.7}, {"service client", 0.9}, {"support", 0.6},
		{"klantendienst", 0.9}, {"customer service", 0.9},
		{"joindre quelqu", 0.7},
	},
	model.IntentSpeakAgent: {
		{"parler a un", 0.8}, {"un humain", 0.9}, {"agent", 0.6},
		{"conseiller", 0.6}, {"real person", 0.9}, {"echte persoon", 0.9},
		{"speak to someone", 0.8}, {"medewerker", 0.6},
	},
	model.IntentGreeting: {
		{"bonjour", 0.9}, {"salut", 0.8}, {"hello", 0.9},
		{"hallo", 0.9}, {"bonsoir", 0.9}, {"goedendag", 0.9},
		{"hey", 0.5},
	},
	model.IntentGoodbye: {
		{"au revoir", 0.9}, {"bye", 0.8}, {"a bientot", 0.8},
		{"tot ziens", 0.9}, {"bonne journee", 0.7},
	},
	model.IntentThanks: {
		{"merci", 0.9}, {"thank", 0.9}, {"bedankt", 0.9},
		{"dank u", 0.9}, {"top", 0.3},
	},
}

// intentPrototypes are reference phrasings embedded once per intent and
// compared against the utterance embedding.
var intentPrototypes = map[model.Intent]string{
	model.IntentFAQHalal:       "Est-ce que la viande est halal ? Is your meat halal certified?",
	model.IntentFAQHours:       "Quels sont vos horaires d'ouverture ? What are your opening hours?",
	model.IntentFAQMenu:        "Qu'est-ce qu'il y a au menu ? What dishes do you serve?",
	model.IntentFAQDelivery:    "Est-ce que vous livrez chez moi ? Do you deliver to my area?",
	model.IntentFAQAllergens:   "Quels allergènes contiennent vos plats ? Which allergens are in your food?",
	model.IntentFAQPayment:     "Quels moyens de paiement acceptez-vous ? Which payment methods do you accept?",
	model.IntentOrderTracking:  "Où est ma commande ? Where is my order, how long will it take?",
	model.IntentComplaint:      "Je veux déposer une plainte, je suis très déçu du service.",
	model.IntentRefundRequest:  "Je veux être remboursé pour ma commande. I want a refund.",
	model.IntentMissingItem:    "Il manque un article dans ma commande. An item is missing from my order.",
	model.IntentWrongOrder:     "J'ai reçu la mauvaise commande. I received the wrong order.",
	model.IntentQualityIssue:   "La nourriture est arrivée froide et immangeable. The food was cold.",
	model.IntentContactSupport: "Comment contacter le service client ? How do I reach customer service?",
	model.IntentSpeakAgent:     "Je veux parler à un humain, pas à un robot. Let me talk to a real person.",
	model.IntentGreeting:       "Bonjour ! Hello! Hallo!",
	model.IntentGoodbye:        "Au revoir, bonne journée. Goodbye.",
	model.IntentThanks:         "Merci beaucoup pour votre aide. Thank you.",
}

// requiresContextIntents need order or ticket history before replying.
var requiresContextIntents = map[model.Intent]bool{
	model.IntentOrderTracking: true,
	model.IntentComplaint:     true,
	model.IntentRefundRequest: true,
	model.IntentMissingItem:   true,
	model.IntentWrongOrder:    true,
	model.IntentQualityIssue:  true,
}

// Sentiment lexicons.
var (
	negativeWords = []string{
		"mauvais", "horrible", "degueulasse", "froid", "honte", "nul",
		"inadmissible", "scandale", "jamais", "deçu", "decu", "furieux",
		"terrible", "awful", "disgusting", "cold", "worst", "angry",
		"unacceptable", "slecht", "koud", "schandalig", "boos", "walgelijk",
		"immangeable", "inacceptable",
	}
	positiveWords = []string{
		"merci", "super", "parfait", "excellent", "delicieux", "top",
		"great", "perfect", "amazing", "lekker", "prima", "bedankt",
		"genial",
	}
	complaintWords = []string{
		"plainte", "manque", "rembours", "erreur", "probleme", "jamais recu",
		"complaint", "missing", "refund", "wrong", "problem", "never arrived",
		"klacht", "ontbreekt", "terugbetal", "fout", "probleem",
	}
	urgencyWords = []string{
		"urgent", "vite", "immediatement", "tout de suite", "maintenant",
		"asap", "immediately", "right now", "dringend", "onmiddellijk",
	}
)

// Language marker words for FR/EN/NL detection.
var languageMarkers = map[string][]string{
	"fr": {"bonjour", "merci", "commande", "est-ce", "pas", "je", "ma", "vous", "pourquoi", "manque"},
	"nl": {"hallo", "bedankt", "bestelling", "niet", "mijn", "waar", "ik", "alstublieft", "graag"},
	"en": {"hello", "thanks", "order", "where", "my", "the", "please", "why", "refund"},
}
