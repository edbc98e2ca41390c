package catalog

import (
	"context"

	"github.com/wattwise/wattwise/pkg/types"
)

// Source is a remote origin for the appliance catalog and tariff.
type Source interface {
	// Categories returns every category with its appliances, in display order.
	Categories(ctx context.Context) ([]types.Category, error)
	// LatestTariff returns the most recent tariff.
	LatestTariff(ctx context.Context) (types.Tariff, error)
	// Name identifies the source in logs and metrics.
	Name() string
}
