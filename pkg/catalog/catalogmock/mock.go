package catalogmock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/wattwise/wattwise/pkg/catalog"
	"github.com/wattwise/wattwise/pkg/types"
)

type MockSource struct {
	mock.Mock
}

var _ catalog.Source = (*MockSource)(nil)

func (m *MockSource) Categories(ctx context.Context) ([]types.Category, error) {
	args := m.Called(ctx)
	if c, ok := args.Get(0).([]types.Category); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSource) LatestTariff(ctx context.Context) (types.Tariff, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Tariff), args.Error(1)
}

func (m *MockSource) Name() string {
	return "mock"
}
