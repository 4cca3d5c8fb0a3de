package history

import (
	"context"
	"database/sql"
	"fmt"
	"francoggm/merchant-status-relay/internal/models"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500

	// Fixed width, so that text order is time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Entry is the outcome of one merchant in one live aggregation.
type Entry struct {
	ID        int64     `json:"id"`
	Region    string    `json:"region"`
	Merchant  string    `json:"merchant"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record appends one row per merchant of resp.
func (r *HistoryRepo) Record(ctx context.Context, region string, resp *models.AggregationResponse, fetchedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO merchant_status_history (region, merchant, ok, error, fetched_at) VALUES (?,?,?,?,?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	at := fetchedAt.UTC().Format(timeLayout)
	for i, result := range resp.Data {
		if _, err := stmt.ExecContext(ctx, region, result.Name, result.OK(), result.Error, at); err != nil {
			return fmt.Errorf("insert %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns the newest entries of a region first.
func (r *HistoryRepo) List(ctx context.Context, region string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, region, merchant, ok, error, fetched_at FROM merchant_status_history
		WHERE region = ? ORDER BY fetched_at DESC, id DESC LIMIT ?`,
		region, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var fetchedAt string
		if err := rows.Scan(&e.ID, &e.Region, &e.Merchant, &e.OK, &e.Error, &fetchedAt); err != nil {
			return nil, err
		}
		e.FetchedAt, err = time.Parse(timeLayout, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("parse fetched_at of entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
