package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/pkg/config"
	"github.com/wonny/stockrate/backend/pkg/httputil"
	"github.com/wonny/stockrate/backend/pkg/logger"
	"github.com/wonny/stockrate/backend/pkg/metrics"
)

// Reply keys the provider uses instead of data
const (
	keyNote         = "Note"
	keyInformation  = "Information"
	keyErrorMessage = "Error Message"
)

// Client handles communication with the AlphaVantage API
// ⭐ SSOT: AlphaVantage calls go through this client only
type Client struct {
	http          *httputil.Client
	logger        *logger.Logger
	metrics       *metrics.Recorder
	apiKey        string
	baseURL       string
	rateLimitWait time.Duration
	maxAttempts   int
}

// NewClient creates a new AlphaVantage client
func NewClient(cfg config.AlphaVantageConfig, httpClient *httputil.Client, rec *metrics.Recorder, log *logger.Logger) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		http:          httpClient,
		logger:        log.WithField("component", "alphavantage"),
		metrics:       rec,
		apiKey:        cfg.APIKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		rateLimitWait: cfg.RateLimitWait,
		maxAttempts:   maxAttempts,
	}
}

// Fetch downloads one dataset.
// Quota notices are waited out and retried up to maxAttempts; every other
// failure, and an empty or error reply, is ErrNotAvailable.
func (c *Client) Fetch(ctx context.Context, ticker string, statement contracts.StatementType) (contracts.RawTable, error) {
	endpoint := c.endpoint(ticker, statement)
	log := c.logger.WithFields(map[string]interface{}{
		"ticker":    ticker,
		"statement": string(statement),
	})

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var table contracts.RawTable
		if err := c.http.GetJSON(ctx, endpoint, &table); err != nil {
			c.metrics.RecordProviderRequest(string(statement), "error")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s %s: %v", contracts.ErrNotAvailable, ticker, statement, err)
		}

		if notice, ok := throttleNotice(table); ok {
			c.metrics.RecordProviderThrottle(string(statement))
			log.WithField("attempt", attempt).WithField("notice", notice).Warn("API limit reached, waiting")
			if attempt == c.maxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.rateLimitWait):
			}
			continue
		}

		if len(table) == 0 {
			c.metrics.RecordProviderRequest(string(statement), "not_available")
			return nil, fmt.Errorf("%w: %s %s: empty reply", contracts.ErrNotAvailable, ticker, statement)
		}
		if msg, ok := table[keyErrorMessage]; ok {
			c.metrics.RecordProviderRequest(string(statement), "not_available")
			return nil, fmt.Errorf("%w: %s %s: %v", contracts.ErrNotAvailable, ticker, statement, msg)
		}

		c.metrics.RecordProviderRequest(string(statement), "ok")
		log.Debug("statement downloaded")
		return table, nil
	}

	c.metrics.RecordProviderRequest(string(statement), "throttled")
	return nil, fmt.Errorf("%w: %s %s: rate limit persisted after %d attempts",
		contracts.ErrNotAvailable, ticker, statement, c.maxAttempts)
}

func (c *Client) endpoint(ticker string, statement contracts.StatementType) string {
	q := url.Values{}
	q.Set("function", string(statement))
	q.Set("symbol", strings.ToUpper(ticker))
	q.Set("apikey", c.apiKey)
	return c.baseURL + "/query?" + q.Encode()
}

// throttleNotice detects a quota reply: a lone Note or Information message
func throttleNotice(table contracts.RawTable) (string, bool) {
	for _, k := range []string{keyNote, keyInformation} {
		if v, ok := table[k]; ok && len(table) == 1 {
			s, _ := v.(string)
			return s, true
		}
	}
	return "", false
}
