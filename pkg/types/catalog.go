package types

// Archetype describes a typical appliance and its wattage range. It is used to
// prefill a calculation.
type Archetype struct {
	Name         string `json:"name" yaml:"name" firestore:"name"`
	MinWatts     int    `json:"minWatts" yaml:"minWatts" firestore:"minWatts"`
	MaxWatts     int    `json:"maxWatts" yaml:"maxWatts" firestore:"maxWatts"`
	DefaultWatts int    `json:"defaultWatts" yaml:"defaultWatts" firestore:"defaultWatts"`
}

// Category groups archetypes under a display name.
type Category struct {
	Category   string      `json:"category" yaml:"category"`
	Appliances []Archetype `json:"appliances" yaml:"appliances"`
}

// CategorizedArchetype is an archetype flattened out of its category.
type CategorizedArchetype struct {
	Archetype
	Category string `json:"category"`
}

// Tariff is the current electricity rate along with the period it applies to.
type Tariff struct {
	Rate  float64 `json:"rate" yaml:"rate"`
	Month string  `json:"month" yaml:"month"`
	Year  string  `json:"year" yaml:"year"`
	Notes string  `json:"notes,omitempty" yaml:"notes"`
}

// Flatten returns every archetype across the categories, in order, tagged with
// its category name.
func Flatten(categories []Category) []CategorizedArchetype {
	var all []CategorizedArchetype
	for _, c := range categories {
		for _, a := range c.Appliances {
			all = append(all, CategorizedArchetype{
				Archetype: a,
				Category:  c.Category,
			})
		}
	}
	return all
}
