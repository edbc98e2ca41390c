package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "wattwise_"

	resultSuccess = "success"
	resultError   = "error"
)

// Calculation modes.
const (
	ModeSingle   = "single"
	ModeMultiple = "multiple"
	ModeExport   = "export"
)

// Catalog fetch kinds.
const (
	KindCategories = "categories"
	KindTariff     = "tariff"
)

// Metrics bundles the service's collectors. All methods are safe to call on a
// nil *Metrics, which records nothing.
type Metrics struct {
	calculations     *prometheus.CounterVec
	catalogFetches   *prometheus.CounterVec
	catalogFallbacks *prometheus.CounterVec
}

// New constructs the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calculations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculations_total",
				Help: "Total calculations by mode and result",
			},
			[]string{"mode", "result"},
		),
		catalogFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "catalog_fetch_total",
				Help: "Total remote catalog fetches by source, kind and result",
			},
			[]string{"source", "kind", "result"},
		),
		catalogFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "catalog_fallback_total",
				Help: "Total times the static fallback catalog was served",
			},
			[]string{"kind"},
		),
	}
	reg.MustRegister(m.calculations, m.catalogFetches, m.catalogFallbacks)
	return m
}

// Calculation records a calculation of the given mode.
func (m *Metrics) Calculation(mode string, err error) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(mode, result(err)).Inc()
}

// CatalogFetch records a fetch from a remote catalog source.
func (m *Metrics) CatalogFetch(source, kind string, err error) {
	if m == nil {
		return
	}
	m.catalogFetches.WithLabelValues(source, kind, result(err)).Inc()
}

// CatalogFallback records that the fallback dataset was served.
func (m *Metrics) CatalogFallback(kind string) {
	if m == nil {
		return
	}
	m.catalogFallbacks.WithLabelValues(kind).Inc()
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
