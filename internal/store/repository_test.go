package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/pkg/config"
	"github.com/wonny/stockrate/backend/pkg/database"
)

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "IBM", normalizeTicker(" ibm "))
	assert.Equal(t, "BRK.B", normalizeTicker("brk.b"))
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg := config.DatabaseConfig{URL: os.Getenv("DATABASE_URL"), Enabled: true}
	db, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticker := "T" + uuid.NewString()[:6]
	for i, rate := range []int{40, 55} {
		s := &contracts.RatingSnapshot{
			RunID:      uuid.NewString(),
			Ticker:     ticker,
			FinalRate:  rate,
			Grade:      i + 1,
			ConfigHash: "abc",
			Payload:    map[string]interface{}{"rating": map[string]interface{}{"finalRate": rate}},
		}
		require.NoError(t, repo.Save(ctx, s))
		assert.NotZero(t, s.ID)
	}

	latest, err := repo.GetLatest(ctx, ticker)
	require.NoError(t, err)
	assert.Equal(t, 55, latest.FinalRate)
	assert.Contains(t, latest.Payload, "rating")

	history, err := repo.ListByTicker(ctx, ticker, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 55, history[0].FinalRate)

	_, err = repo.GetLatest(ctx, "NOPE"+ticker)
	assert.ErrorIs(t, err, ErrNotFound)
}
