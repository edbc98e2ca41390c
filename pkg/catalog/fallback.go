package catalog

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/wattwise/wattwise/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Dataset is a complete catalog: categories plus the tariff in effect.
type Dataset struct {
	Categories []types.Category `yaml:"categories"`
	Tariff     types.Tariff     `yaml:"tariff"`
}

var fallback Dataset

func init() {
	d, err := ParseDataset(fallbackYAML)
	if err != nil {
		panic(fmt.Sprintf("failed to load fallback catalog: %v", err))
	}
	fallback = d
}

// ParseDataset decodes a YAML catalog.
func ParseDataset(b []byte) (Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return Dataset{}, fmt.Errorf("failed to unmarshal catalog yaml: %w", err)
	}
	if len(d.Categories) == 0 {
		return Dataset{}, fmt.Errorf("catalog has no categories")
	}
	if d.Tariff.Rate <= 0 {
		return Dataset{}, fmt.Errorf("catalog tariff rate must be positive, got %v", d.Tariff.Rate)
	}
	return d, nil
}

// Fallback returns a copy of the built-in catalog served when no remote source
// is available.
func Fallback() Dataset {
	return fallback.clone()
}

func (d Dataset) clone() Dataset {
	c := Dataset{
		Categories: make([]types.Category, len(d.Categories)),
		Tariff:     d.Tariff,
	}
	for i, cat := range d.Categories {
		c.Categories[i] = types.Category{
			Category:   cat.Category,
			Appliances: slices.Clone(cat.Appliances),
		}
	}
	return c
}
