package knowledge

// BuiltinPassages is the seed knowledge base shipped with the engine.
// Production deployments replace it via the store's Add method at boot.
func BuiltinPassages() []Passage {
	return []Passage{
		{
			ID:       "halal-certification",
			Title:    "Certification halal",
			Text:     "Toute notre viande est certifiée halal par un organisme de contrôle indépendant. Les certificats sont affichés dans chaque restaurant et disponibles sur demande.",
			Language: "fr",
			Tags:     []string{"halal", "faq"},
		},
		{
			ID:       "opening-hours",
			Title:    "Horaires d'ouverture",
			Text:     "Nos restaurants sont ouverts tous les jours de 11h30 à 22h00, y compris les jours fériés. Le service de livraison suit les mêmes horaires.",
			Language: "fr",
			Tags:     []string{"hours", "faq"},
		},
		{
			ID:       "delivery-platforms",
			Title:    "Plateformes de livraison",
			Text:     "Nous livrons via Uber Eats, Deliveroo et Takeaway. Les zones et frais de livraison dépendent de la plateforme et de votre adresse.",
			Language: "fr",
			Tags:     []string{"delivery", "faq"},
		},
		{
			ID:       "allergens-policy",
			Title:    "Allergènes",
			Text:     "La liste des allergènes de chaque plat figure sur sa fiche produit. Nos cuisines manipulent gluten, sésame, lait, œufs et fruits à coque. En cas d'allergie sévère, signalez-le en commentaire de commande.",
			Language: "fr",
			Tags:     []string{"allergens", "faq"},
		},
		{
			ID:       "payment-methods",
			Title:    "Moyens de paiement",
			Text:     "Nous acceptons Bancontact, Visa, Mastercard, les tickets restaurant et les espèces sur place. Le paiement en ligne est traité par la plateforme de commande.",
			Language: "fr",
			Tags:     []string{"payment", "faq"},
		},
		{
			ID:       "refund-policy",
			Title:    "Politique de remboursement",
			Text:     "Les demandes de remboursement sont examinées au cas par cas par notre équipe, en général sous 48 heures. Pour une commande passée via une plateforme de livraison, le remboursement transite par cette plateforme.",
			Language: "fr",
			Tags:     []string{"refund", "support"},
		},
	}
}
