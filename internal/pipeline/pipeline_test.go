package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/features"
	"github.com/wonny/stockrate/backend/internal/forecast"
	"github.com/wonny/stockrate/backend/internal/response"
	"github.com/wonny/stockrate/backend/pkg/logger"
	"github.com/wonny/stockrate/backend/pkg/metrics"
)

type fakeProvider struct {
	tables map[contracts.StatementType]contracts.RawTable
	err    error
	calls  []contracts.StatementType
}

func (f *fakeProvider) Fetch(ctx context.Context, ticker string, st contracts.StatementType) (contracts.RawTable, error) {
	f.calls = append(f.calls, st)
	if f.err != nil {
		return nil, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.tables[st], nil
}

type fakeStore struct {
	saved []*contracts.RatingSnapshot
	err   error
}

func (s *fakeStore) Save(ctx context.Context, snap *contracts.RatingSnapshot) error {
	s.saved = append(s.saved, snap)
	return s.err
}

type fakePublisher struct {
	topics []string
	events []interface{}
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, value)
	return nil
}

// fixture builds replies for quarters ending at the given dates and a
// monthly price series from first to last where the close of month k is
// 100+k
func fixture(quarters []string, first, last time.Time) map[contracts.StatementType]contracts.RawTable {
	reports := func(item string) []interface{} {
		out := make([]interface{}, 0, len(quarters))
		for i, q := range quarters {
			out = append(out, map[string]interface{}{
				"fiscalDateEnding": q,
				item:               fmt.Sprintf("%d", 1000+100*i),
			})
		}
		return out
	}

	series := make(map[string]interface{})
	k := 0
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		// month end
		end := time.Date(m.Year(), m.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		series[end.Format(contracts.DateLayout)] = map[string]interface{}{
			"5. adjusted close": fmt.Sprintf("%d", 100+k),
		}
		k++
	}

	return map[contracts.StatementType]contracts.RawTable{
		contracts.StatementPrices:   {"Monthly Adjusted Time Series": series},
		contracts.StatementIncome:   {"quarterlyReports": reports("totalRevenue")},
		contracts.StatementBalance:  {"quarterlyReports": reports("totalAssets")},
		contracts.StatementCashFlow: {"quarterlyReports": reports("operatingCashflow")},
		contracts.StatementOverview: {"Symbol": "IBM", "Sector": "TECHNOLOGY", "Name": "IBM"},
	}
}

func newTestPipeline(t *testing.T, provider contracts.MarketDataProvider, now time.Time, opts ...Option) *Pipeline {
	t.Helper()
	factory, err := forecast.NewFactory(forecast.RegressorLastLabel)
	require.NoError(t, err)

	ids := 0
	opts = append([]Option{
		WithDeriver(features.NewDeriver(features.WithClock(func() time.Time { return now }))),
		WithRunIDs(func() string {
			ids++
			return fmt.Sprintf("run-%d", ids)
		}),
		WithMetrics(metrics.New()),
	}, opts...)

	p, err := New(provider, factory, nil, logger.Nop(), opts...)
	require.NoError(t, err)
	return p
}

func TestRunRated(t *testing.T) {
	quarters := []string{"2023-03-31", "2023-06-30", "2023-09-30", "2023-12-31"}
	provider := &fakeProvider{tables: fixture(quarters,
		time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
	)}
	store := &fakeStore{}
	pub := &fakePublisher{}
	now := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)

	p := newTestPipeline(t, provider, now, WithStore(store), WithPublisher(pub, "rating.computed"))

	res, err := p.Run(context.Background(), " ibm ")
	require.NoError(t, err)

	assert.Equal(t, "IBM", res.Ticker)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, OutcomeRated, res.Outcome)
	assert.Equal(t, contracts.AllStatements, provider.calls)
	require.NotNil(t, res.Breakdown)
	assert.False(t, res.Payload.IsError())

	for _, key := range []string{response.KeyFinancialData, response.KeyPrediction, response.KeyRating} {
		assert.Contains(t, res.Payload, key)
	}

	// three labeled quarters, the last quarter forecast by the final batch
	prediction := res.Payload[response.KeyPrediction].(map[string]interface{})
	assert.Len(t, prediction, 3)
	assert.Contains(t, prediction, "2024-06")
	assert.Contains(t, prediction, "2024-12")

	rate := res.Payload[response.KeyRating].(map[string]interface{})["finalRate"].(int)
	assert.GreaterOrEqual(t, rate, 0)
	assert.LessOrEqual(t, rate, 100)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "run-1", store.saved[0].RunID)
	assert.Equal(t, res.ConfigHash, store.saved[0].ConfigHash)
	assert.NotEmpty(t, res.ConfigHash)

	require.Len(t, pub.events, 1)
	assert.Equal(t, []string{"rating.computed"}, pub.topics)
	event := pub.events[0].(contracts.RatingComputedEvent)
	assert.Equal(t, "IBM", event.Ticker)
	assert.Equal(t, res.Breakdown.FinalRate, event.FinalRate)
}

func TestRunStoreFailureKeepsPayload(t *testing.T) {
	quarters := []string{"2023-03-31", "2023-06-30", "2023-09-30", "2023-12-31"}
	provider := &fakeProvider{tables: fixture(quarters,
		time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
	)}
	store := &fakeStore{err: errors.New("db down")}
	now := time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC)

	res, err := newTestPipeline(t, provider, now, WithStore(store)).Run(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRated, res.Outcome)
	assert.False(t, res.Payload.IsError())
}

func TestRunNotAvailable(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("%w: empty reply", contracts.ErrNotAvailable)}
	store := &fakeStore{}
	pub := &fakePublisher{}

	p := newTestPipeline(t, provider, time.Now(), WithStore(store), WithPublisher(pub, "t"))
	res, err := p.Run(context.Background(), "XXXX")
	require.NoError(t, err)

	assert.Equal(t, OutcomeNotAvailable, res.Outcome)
	assert.Equal(t, response.Payload{"Error": "Information about XXXX not available"}, res.Payload)
	assert.Nil(t, res.Breakdown)
	assert.Len(t, provider.calls, 1, "stops at the first failed download")
	assert.Empty(t, store.saved)
	assert.Empty(t, pub.events)
}

func TestRunMalformedReply(t *testing.T) {
	tables := fixture([]string{"2023-03-31"},
		time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	)
	tables[contracts.StatementOverview] = contracts.RawTable{"Sector": "TECHNOLOGY"}

	res, err := newTestPipeline(t, &fakeProvider{tables: tables}, time.Now()).Run(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotAvailable, res.Outcome)
	assert.True(t, res.Payload.IsError())
}

func TestRunInsufficientHistory(t *testing.T) {
	// a single labeled quarter leaves nothing to forecast
	tables := fixture([]string{"2023-03-31"},
		time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	)
	now := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

	res, err := newTestPipeline(t, &fakeProvider{tables: tables}, now).Run(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, OutcomeShortHistory, res.Outcome)
	assert.Equal(t, response.Payload{"Error": "Not enough history to forecast IBM"}, res.Payload)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeProvider{tables: map[contracts.StatementType]contracts.RawTable{}}
	res, err := newTestPipeline(t, provider, time.Now()).Run(ctx, "IBM")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestRunEmptyTicker(t *testing.T) {
	_, err := newTestPipeline(t, &fakeProvider{}, time.Now()).Run(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyTicker)
}
