package tool

import "strings"

// StaticCatalog serves the branch and menu reference data from memory.
// The chain's catalog changes a few times a year, so it ships with the
// binary rather than living behind another backend call.
type StaticCatalog struct {
	branches map[string]BranchInfo
	menu     []MenuItem
}

// NewStaticCatalog builds the catalog with the chain's current data.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		branches: map[string]BranchInfo{
			"anderlecht": {
				Name:    "Anderlecht",
				Address: "Rue Wayez 124, 1070 Anderlecht",
				Phone:   "+32 2 520 11 34",
				Hours:   "11:30-22:00 tous les jours",
			},
			"schaerbeek": {
				Name:    "Schaerbeek",
				Address: "Chaussée de Haecht 98, 1030 Schaerbeek",
				Phone:   "+32 2 245 67 01",
				Hours:   "11:30-22:30 tous les jours",
			},
			"ixelles": {
				Name:    "Ixelles",
				Address: "Chaussée d'Ixelles 210, 1050 Ixelles",
				Phone:   "+32 2 640 88 15",
				Hours:   "11:30-23:00, vendredi et samedi jusqu'à minuit",
			},
		},
		menu: []MenuItem{
			{Name: "Poulet rôti entier", PriceCents: 1450, Category: "plats", Halal: true},
			{Name: "Demi poulet rôti", PriceCents: 850, Category: "plats", Halal: true},
			{Name: "Tenders x6", PriceCents: 790, Category: "plats", Halal: true, Allergens: []string{"gluten"}},
			{Name: "Frites maison", PriceCents: 350, Category: "accompagnements"},
			{Name: "Salade coleslaw", PriceCents: 300, Category: "accompagnements", Allergens: []string{"oeuf"}},
			{Name: "Sauce andalouse", PriceCents: 100, Category: "sauces", Allergens: []string{"oeuf"}},
			{Name: "Tiramisu", PriceCents: 450, Category: "desserts", Allergens: []string{"lait", "oeuf", "gluten"}},
		},
	}
}

// Branch returns the branch record by its lowercased name.
func (c *StaticCatalog) Branch(name string) (*BranchInfo, bool) {
	info, ok := c.branches[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return &info, true
}

// MenuItems returns the menu, filtered by category when one is given.
func (c *StaticCatalog) MenuItems(category string) []MenuItem {
	if category == "" {
		return append([]MenuItem(nil), c.menu...)
	}
	category = strings.ToLower(strings.TrimSpace(category))
	var out []MenuItem
	for _, item := range c.menu {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}
