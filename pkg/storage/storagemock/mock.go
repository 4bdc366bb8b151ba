package storagemock

import (
	"context"
	"time"

	"github.com/ehin/ehin/pkg/storage"
	"github.com/ehin/ehin/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetPrices(ctx context.Context, from, to time.Time) ([]types.PriceEntry, error) {
	args := m.Called(ctx, from, to)
	// return empty if not specified, or checks args
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PriceEntry), args.Error(1)
}

func (m *MockDatabase) UpsertPrices(ctx context.Context, entries []types.PriceEntry) (types.IngestionReport, error) {
	args := m.Called(ctx, entries)
	return args.Get(0).(types.IngestionReport), args.Error(1)
}

func (m *MockDatabase) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	return nil
}
