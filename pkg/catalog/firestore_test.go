package catalog

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wattwise/wattwise/pkg/types"
)

func TestFirestoreSource(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	// Use a random database for isolation
	randDB := fmt.Sprintf("test-db-%d", time.Now().UnixNano())
	f := NewFirestoreSource("test-project-id", randDB, Fallback().Tariff)

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("EmptyTariff", func(t *testing.T) {
		tariff, err := f.LatestTariff(ctx)
		require.NoError(t, err)
		assert.Equal(t, Fallback().Tariff, tariff)
	})

	t.Run("Seed", func(t *testing.T) {
		d := Fallback()
		require.NoError(t, f.Seed(ctx, d, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))

		cats, err := f.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, d.Categories, cats)

		tariff, err := f.LatestTariff(ctx)
		require.NoError(t, err)
		assert.Equal(t, d.Tariff, tariff)
	})

	t.Run("LatestRateWins", func(t *testing.T) {
		d := Fallback()
		d.Tariff = types.Tariff{Rate: 11.2, Month: "April", Year: "2025"}
		require.NoError(t, f.Seed(ctx, d, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))

		tariff, err := f.LatestTariff(ctx)
		require.NoError(t, err)
		assert.Equal(t, d.Tariff, tariff)
	})

	t.Run("SeedRejectsBlankNames", func(t *testing.T) {
		d := Dataset{Categories: []types.Category{{Category: "  "}}}
		assert.ErrorContains(t, f.Seed(ctx, d, time.Now()), "no usable name")
	})
}

func TestDocID(t *testing.T) {
	assert.Equal(t, "tv-led", docID("TV: LED"))
	assert.Equal(t, "electric-fan-desk", docID("Electric Fan: Desk"))
	assert.Equal(t, "air-conditioner", docID("  Air Conditioner  "))
	assert.Equal(t, "", docID("::"))
}
