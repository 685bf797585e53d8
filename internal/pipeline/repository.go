package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gudapatin/sentalpha/internal/contracts"
)

// Repository persists pipeline artifacts.
//
// Signals are append-only (DO NOTHING on conflict: a rerun with
// unchanged inputs produces an identical row). AlphaResults are the
// one artifact overwritten on recomputation, keyed by company+quarter,
// which is what makes reruns idempotent rather than duplicating.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new pipeline artifact repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveSignal stores one classified signal
func (r *Repository) SaveSignal(ctx context.Context, sig *contracts.Signal) error {
	query := `
		INSERT INTO signals.trade_signals
			(company, quarter, action, issued_at, quarter_from,
			 delta_finbert, delta_vader, ensemble_delta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company, quarter) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		sig.Company, sig.QuarterTo, string(sig.Action), sig.IssuedAt,
		sig.Basis.QuarterFrom, sig.Basis.DeltaFinbert, sig.Basis.DeltaVader,
		sig.EnsembleDelta,
	)
	if err != nil {
		return fmt.Errorf("%w: save signal %s/%s: %v",
			contracts.ErrPersistence, sig.Company, sig.QuarterTo, err)
	}
	return nil
}

// SaveAlphaResult stores one alpha result, overwriting any prior
// result for the same key.
func (r *Repository) SaveAlphaResult(ctx context.Context, res *contracts.AlphaResult) error {
	query := `
		INSERT INTO signals.alpha_results
			(company, quarter, entry_date, exit_date,
			 strategy_return, benchmark_return, alpha, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (company, quarter) DO UPDATE SET
			entry_date = EXCLUDED.entry_date,
			exit_date = EXCLUDED.exit_date,
			strategy_return = EXCLUDED.strategy_return,
			benchmark_return = EXCLUDED.benchmark_return,
			alpha = EXCLUDED.alpha,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason
	`

	_, err := r.pool.Exec(ctx, query,
		res.Company, res.Quarter, res.EntryDate, res.ExitDate,
		res.StrategyReturn, res.BenchmarkReturn, res.Alpha,
		string(res.Status), res.Reason,
	)
	if err != nil {
		return fmt.Errorf("%w: save alpha %s/%s: %v",
			contracts.ErrPersistence, res.Company, res.Quarter, err)
	}
	return nil
}

// SaveReport stores the machine-readable company run report
func (r *Repository) SaveReport(ctx context.Context, report *contracts.CompanyReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: marshal report: %v", contracts.ErrPersistence, err)
	}

	query := `
		INSERT INTO signals.run_reports (run_id, company, state, config_hash, report)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, company) DO UPDATE SET
			state = EXCLUDED.state,
			config_hash = EXCLUDED.config_hash,
			report = EXCLUDED.report
	`

	_, err = r.pool.Exec(ctx, query,
		report.RunID, report.Company, string(report.State), report.ConfigHash, body,
	)
	if err != nil {
		return fmt.Errorf("%w: save report %s/%s: %v",
			contracts.ErrPersistence, report.RunID, report.Company, err)
	}
	return nil
}

// GetSignalsByCompany retrieves persisted signals ordered by quarter
func (r *Repository) GetSignalsByCompany(ctx context.Context, company string) ([]contracts.Signal, error) {
	query := `
		SELECT company, quarter, action, issued_at, quarter_from,
		       delta_finbert, delta_vader, ensemble_delta
		FROM signals.trade_signals
		WHERE company = $1
		ORDER BY quarter ASC
	`

	rows, err := r.pool.Query(ctx, query, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []contracts.Signal
	for rows.Next() {
		var sig contracts.Signal
		var action string
		if err := rows.Scan(
			&sig.Company, &sig.QuarterTo, &action, &sig.IssuedAt,
			&sig.Basis.QuarterFrom, &sig.Basis.DeltaFinbert,
			&sig.Basis.DeltaVader, &sig.EnsembleDelta,
		); err != nil {
			return nil, err
		}
		sig.Action = contracts.Action(action)
		sig.Basis.Company = sig.Company
		sig.Basis.QuarterTo = sig.QuarterTo
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// GetAlphaResultsByCompany retrieves persisted alpha results
func (r *Repository) GetAlphaResultsByCompany(ctx context.Context, company string) ([]contracts.AlphaResult, error) {
	query := `
		SELECT company, quarter, entry_date, exit_date,
		       strategy_return, benchmark_return, alpha, status, reason
		FROM signals.alpha_results
		WHERE company = $1
		ORDER BY quarter ASC
	`

	rows, err := r.pool.Query(ctx, query, company)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []contracts.AlphaResult
	for rows.Next() {
		var res contracts.AlphaResult
		var status string
		if err := rows.Scan(
			&res.Company, &res.Quarter, &res.EntryDate, &res.ExitDate,
			&res.StrategyReturn, &res.BenchmarkReturn, &res.Alpha,
			&status, &res.Reason,
		); err != nil {
			return nil, err
		}
		res.Status = contracts.AlphaStatus(status)
		results = append(results, res)
	}
	return results, rows.Err()
}

// GetReport retrieves one persisted company report
func (r *Repository) GetReport(ctx context.Context, runID, company string) (*contracts.CompanyReport, error) {
	query := `
		SELECT report
		FROM signals.run_reports
		WHERE run_id = $1 AND company = $2
	`

	var body []byte
	if err := r.pool.QueryRow(ctx, query, runID, company).Scan(&body); err != nil {
		return nil, err
	}

	var report contracts.CompanyReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
