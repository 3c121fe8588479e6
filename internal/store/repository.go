package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/stockrate/backend/internal/contracts"
)

// ErrNotFound is returned when a ticker has no stored snapshot
var ErrNotFound = errors.New("snapshot not found")

// DefaultHistoryLimit caps ListByTicker when the caller passes no limit
const DefaultHistoryLimit = 20

// Repository persists rating snapshots
// ⭐ SSOT: rating.snapshots is written here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the snapshot schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate snapshots: %w", err)
	}
	return nil
}

// Save inserts a snapshot and fills its ID and CreatedAt
func (r *Repository) Save(ctx context.Context, s *contracts.RatingSnapshot) error {
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO rating.snapshots
			(run_id, ticker, final_rate, grade, config_hash, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = r.pool.QueryRow(ctx, query,
		s.RunID, normalizeTicker(s.Ticker), s.FinalRate, s.Grade, s.ConfigHash, payload,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", s.Ticker, err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for a ticker
func (r *Repository) GetLatest(ctx context.Context, ticker string) (*contracts.RatingSnapshot, error) {
	query := `
		SELECT id, run_id, ticker, final_rate, grade, config_hash, payload, created_at
		FROM rating.snapshots
		WHERE ticker = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	s, err := scanSnapshot(r.pool.QueryRow(ctx, query, normalizeTicker(ticker)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByTicker returns up to limit snapshots, newest first
func (r *Repository) ListByTicker(ctx context.Context, ticker string, limit int) ([]contracts.RatingSnapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
		SELECT id, run_id, ticker, final_rate, grade, config_hash, payload, created_at
		FROM rating.snapshots
		WHERE ticker = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, normalizeTicker(ticker), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []contracts.RatingSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*contracts.RatingSnapshot, error) {
	var (
		s       contracts.RatingSnapshot
		payload []byte
	)
	if err := row.Scan(
		&s.ID, &s.RunID, &s.Ticker, &s.FinalRate, &s.Grade, &s.ConfigHash, &payload, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &s.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &s, nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
