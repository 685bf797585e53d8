package sentiment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gudapatin/sentalpha/internal/contracts"
)

// Repository persists sentiment records keyed by company+quarter.
// Records are append-only: conflicts are ignored, never updated.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sentiment repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByCompany retrieves a company's full history ordered by quarter
func (r *Repository) GetByCompany(ctx context.Context, company string) ([]contracts.SentimentRecord, error) {
	query := `
		SELECT company, quarter, finbert_score, vader_score, earnings_date, observed_at
		FROM signals.sentiment_records
		WHERE company = $1
		ORDER BY quarter ASC
	`

	rows, err := r.pool.Query(ctx, query, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []contracts.SentimentRecord
	for rows.Next() {
		var rec contracts.SentimentRecord
		if err := rows.Scan(
			&rec.Company, &rec.Quarter, &rec.FinbertScore, &rec.VaderScore,
			&rec.EarningsDate, &rec.ObservedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Save stores a single record. DO NOTHING on conflict keeps the
// history immutable under reruns.
func (r *Repository) Save(ctx context.Context, rec *contracts.SentimentRecord) error {
	query := `
		INSERT INTO signals.sentiment_records
			(company, quarter, finbert_score, vader_score, earnings_date, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company, quarter) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Company, rec.Quarter, rec.FinbertScore, rec.VaderScore,
		rec.EarningsDate, rec.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: save sentiment %s/%s: %v",
			contracts.ErrPersistence, rec.Company, rec.Quarter, err)
	}
	return nil
}

// SaveBatch stores multiple records
func (r *Repository) SaveBatch(ctx context.Context, records []contracts.SentimentRecord) error {
	for i := range records {
		if err := r.Save(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

// LatestObservedAt returns the newest observation time for a company,
// zero time when no records exist.
func (r *Repository) LatestObservedAt(ctx context.Context, company string) (time.Time, error) {
	query := `
		SELECT COALESCE(MAX(observed_at), 'epoch'::timestamptz)
		FROM signals.sentiment_records
		WHERE company = $1
	`

	var ts time.Time
	if err := r.pool.QueryRow(ctx, query, company).Scan(&ts); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}
