package catalog

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
	"github.com/wattwise/wattwise/pkg/metrics"
)

// Configured sets up the catalog Provider based on flags. The returned
// provider is usable once lflag.Configure has run.
func Configured(m *metrics.Metrics) *Provider {
	source := lflag.String("catalog-source", "sheets", "Catalog source to use (available: sheets, firestore, none)")
	sheetsURL := lflag.String("catalog-sheets-api-url", "", "URL of the spreadsheet JSON endpoint serving the catalog")
	cacheDuration := lflag.Duration("catalog-cache-duration", DefaultCacheDuration, "How long fetched catalog data is cached")

	fs := configuredFirestore()
	p := &Provider{}

	lflag.Do(func() {
		var src Source
		switch *source {
		case "sheets":
			// without a url the fallback catalog is served, like source none
			if *sheetsURL != "" {
				ss := NewSheetsSource(*sheetsURL, Fallback().Tariff)
				if err := ss.Validate(); err != nil {
					panic(fmt.Sprintf("sheets validation failed: %v", err))
				}
				src = ss
			}
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			src = fs
		case "none":
		default:
			panic(fmt.Sprintf("unknown catalog source: %s", *source))
		}
		if *cacheDuration < 0 {
			panic(fmt.Sprintf("catalog-cache-duration must not be negative: %s", *cacheDuration))
		}
		*p = *NewProvider(src, WithCacheDuration(*cacheDuration), WithMetrics(m))
	})

	return p
}
