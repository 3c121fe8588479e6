package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stockrate/backend/internal/contracts"
	"github.com/wonny/stockrate/backend/internal/pipeline"
	"github.com/wonny/stockrate/backend/internal/response"
	"github.com/wonny/stockrate/backend/internal/store"
	"github.com/wonny/stockrate/backend/pkg/logger"
	"github.com/wonny/stockrate/backend/pkg/redis"
)

// Runner rates one ticker
type Runner interface {
	Run(ctx context.Context, ticker string) (*pipeline.Result, error)
}

// History reads stored snapshots
type History interface {
	GetLatest(ctx context.Context, ticker string) (*contracts.RatingSnapshot, error)
	ListByTicker(ctx context.Context, ticker string, limit int) ([]contracts.RatingSnapshot, error)
}

// RatingHandler serves the rating endpoints
// ⭐ SSOT: rating HTTP surface
type RatingHandler struct {
	runner  Runner
	history History
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewRatingHandler creates a rating handler. history and cache may be nil.
func NewRatingHandler(runner Runner, history History, cache *redis.Cache, log *logger.Logger) *RatingHandler {
	return &RatingHandler{
		runner:  runner,
		history: history,
		cache:   cache,
		logger:  log,
	}
}

// RatingRequest is the body of POST /api/rating
type RatingRequest struct {
	Ticker  string `json:"ticker" validate:"required,max=12,printascii,excludesall= /"`
	Refresh bool   `json:"refresh"`
}

// HistoryQuery holds GET /api/rating/{ticker}/history parameters
type HistoryQuery struct {
	Limit *int `default:"20" validate:"required,gte=1,lte=100"`
}

// SnapshotSummary is one history entry
type SnapshotSummary struct {
	RunID      string `json:"run_id"`
	FinalRate  int    `json:"final_rate"`
	Grade      int    `json:"grade"`
	ConfigHash string `json:"config_hash"`
	CreatedAt  string `json:"created_at"`
}

// Rate runs the pipeline for one ticker
// POST /api/rating {"ticker": "IBM"}
func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))

	if errs := bindAndValidate(r, &req); errs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	ctx := r.Context()
	key := redis.PayloadKey(req.Ticker)

	if h.cache != nil && !req.Refresh {
		var cached response.Payload
		found, err := h.cache.Get(ctx, key, &cached)
		if err != nil {
			h.logger.WithError(err).Warn("Payload cache read failed")
		}
		if found {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	res, err := h.runner.Run(ctx, req.Ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", req.Ticker).Error("Rating run failed")
		respondError(w, http.StatusInternalServerError, "Failed to compute rating")
		return
	}

	switch res.Outcome {
	case pipeline.OutcomeRated:
		if h.cache != nil {
			if err := h.cache.Set(ctx, key, res.Payload, redis.TTLMedium); err != nil {
				h.logger.WithError(err).Warn("Payload cache write failed")
			}
		}
		respondJSON(w, http.StatusOK, res.Payload)
	case pipeline.OutcomeShortHistory:
		respondJSON(w, http.StatusUnprocessableEntity, res.Payload)
	case pipeline.OutcomeNotAvailable:
		respondJSON(w, http.StatusNotFound, res.Payload)
	default:
		respondJSON(w, http.StatusBadGateway, res.Payload)
	}
}

// GetLatest returns the most recent stored payload
// GET /api/rating/{ticker}
func (h *RatingHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "rating history is not configured")
		return
	}
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	snapshot, err := h.history.GetLatest(r.Context(), ticker)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no rating stored for "+ticker)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to get latest rating")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve rating")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":      snapshot.RunID,
		"ticker":      snapshot.Ticker,
		"config_hash": snapshot.ConfigHash,
		"created_at":  snapshot.CreatedAt,
		"payload":     snapshot.Payload,
	})
}

// GetHistory lists stored ratings, newest first
// GET /api/rating/{ticker}/history?limit=20
func (h *RatingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "rating history is not configured")
		return
	}
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	var q HistoryQuery
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = &n
	}
	if errs := bindAndValidate(r, &q); errs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	snapshots, err := h.history.ListByTicker(r.Context(), ticker, *q.Limit)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to list ratings")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve rating history")
		return
	}

	out := make([]SnapshotSummary, len(snapshots))
	for i, s := range snapshots {
		out[i] = SnapshotSummary{
			RunID:      s.RunID,
			FinalRate:  s.FinalRate,
			Grade:      s.Grade,
			ConfigHash: s.ConfigHash,
			CreatedAt:  s.CreatedAt.Format(time.RFC3339),
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": ticker,
		"count":  len(out),
		"data":   out,
	})
}
