package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattwise/wattwise/pkg/log"
	"github.com/wattwise/wattwise/pkg/metrics"
	"github.com/wattwise/wattwise/pkg/types"
)

// DefaultCacheDuration is how long a successful fetch is served before the
// source is asked again.
const DefaultCacheDuration = 5 * time.Minute

// Provider serves the catalog from a cache in front of a Source. Source
// failures are logged and answered with the fallback dataset, which is never
// cached so the next call retries the source.
type Provider struct {
	src      Source
	fallback Dataset
	metrics  *metrics.Metrics

	cacheDuration time.Duration
	now           func() time.Time

	categories *Cache[[]types.Category]
	tariff     *Cache[types.Tariff]
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithCacheDuration sets how long fetched values are cached.
func WithCacheDuration(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.cacheDuration = d
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.now = now
	}
}

// WithFallback replaces the built-in fallback dataset.
func WithFallback(d Dataset) ProviderOption {
	return func(p *Provider) {
		p.fallback = d.clone()
	}
}

// WithMetrics records fetches and fallbacks.
func WithMetrics(m *metrics.Metrics) ProviderOption {
	return func(p *Provider) {
		p.metrics = m
	}
}

// NewProvider returns a provider reading from src. A nil src serves the
// fallback dataset.
func NewProvider(src Source, opts ...ProviderOption) *Provider {
	p := &Provider{
		src:           src,
		fallback:      Fallback(),
		cacheDuration: DefaultCacheDuration,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.categories = NewCache[[]types.Category](p.cacheDuration, p.now)
	p.tariff = NewCache[types.Tariff](p.cacheDuration, p.now)
	return p
}

// SourceName returns the name of the configured source, or "none".
func (p *Provider) SourceName() string {
	if p.src == nil {
		return "none"
	}
	return p.src.Name()
}

// Categories returns the categorized appliance catalog.
func (p *Provider) Categories(ctx context.Context) ([]types.Category, error) {
	if cats, ok := p.categories.Get(); ok {
		return cats, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.src == nil {
		log.Ctx(ctx).WarnContext(ctx, "catalog source not configured, using fallback categories")
		p.metrics.CatalogFallback(metrics.KindCategories)
		return p.fallback.clone().Categories, nil
	}

	cats, err := p.src.Categories(ctx)
	p.metrics.CatalogFetch(p.src.Name(), metrics.KindCategories, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Ctx(ctx).ErrorContext(
			ctx,
			"failed to fetch catalog categories, using fallback",
			slog.String("source", p.src.Name()),
			slog.Any("error", err),
		)
		p.metrics.CatalogFallback(metrics.KindCategories)
		return p.fallback.clone().Categories, nil
	}

	p.categories.Set(cats)
	return cats, nil
}

// Tariff returns the current tariff.
func (p *Provider) Tariff(ctx context.Context) (types.Tariff, error) {
	if t, ok := p.tariff.Get(); ok {
		return t, nil
	}
	if err := ctx.Err(); err != nil {
		return types.Tariff{}, err
	}
	if p.src == nil {
		log.Ctx(ctx).WarnContext(ctx, "catalog source not configured, using fallback tariff")
		p.metrics.CatalogFallback(metrics.KindTariff)
		return p.fallback.Tariff, nil
	}

	t, err := p.src.LatestTariff(ctx)
	p.metrics.CatalogFetch(p.src.Name(), metrics.KindTariff, err)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.Tariff{}, ctxErr
		}
		log.Ctx(ctx).ErrorContext(
			ctx,
			"failed to fetch tariff, using fallback",
			slog.String("source", p.src.Name()),
			slog.Any("error", err),
		)
		p.metrics.CatalogFallback(metrics.KindTariff)
		return p.fallback.Tariff, nil
	}

	p.tariff.Set(t)
	return t, nil
}

// AllAppliances returns every archetype tagged with its category.
func (p *Provider) AllAppliances(ctx context.Context) ([]types.CategorizedArchetype, error) {
	cats, err := p.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return types.Flatten(cats), nil
}

// ApplianceByName returns the first archetype whose name matches exactly.
func (p *Provider) ApplianceByName(ctx context.Context, name string) (types.CategorizedArchetype, bool, error) {
	all, err := p.AllAppliances(ctx)
	if err != nil {
		return types.CategorizedArchetype{}, false, err
	}
	for _, a := range all {
		if a.Name == name {
			return a, true, nil
		}
	}
	return types.CategorizedArchetype{}, false, nil
}

// DefaultRate returns the rate of the current tariff.
func (p *Provider) DefaultRate(ctx context.Context) (float64, error) {
	t, err := p.Tariff(ctx)
	if err != nil {
		return 0, err
	}
	return t.Rate, nil
}

// Refresh drops both caches so the next call goes to the source.
func (p *Provider) Refresh() {
	p.categories.Invalidate()
	p.tariff.Invalidate()
}
