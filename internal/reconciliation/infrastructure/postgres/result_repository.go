package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	recon "recon-cloud/internal/reconciliation/domain"
)

// ResultRepository persists confirmed reconciliation results. Records are
// write-once: a second insert with the same id is a no-op.
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository constructs a repository.
func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save archives a confirmed result. The full result is stored as a JSON
// snapshot next to the queryable summary columns.
func (r *ResultRepository) Save(ctx context.Context, result recon.ReconciliationResult) error {
	if r == nil || r.db == nil {
		return errors.New("result repo: nil db")
	}
	if result.ID == "" {
		return errors.New("result repo: empty result id")
	}
	snapshot, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO reconciliation_results (
	id, session_id, tenant_id, account_label, currency,
	operation_count, matched_count, included_count, ignored_count, match_rate,
	balance_gap, confirmed_at, snapshot
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)
ON CONFLICT (id) DO NOTHING`,
		result.ID, result.SessionID, result.TenantID,
		result.Statement.AccountLabel, result.Statement.Currency,
		result.Summary.OperationCount, result.Summary.MatchedCount,
		result.Summary.IncludedCount, result.Summary.IgnoredCount,
		result.Summary.MatchRate, result.Summary.BalanceGap.String(),
		result.ConfirmedAt, snapshot,
	)
	return err
}

// GetByID fetches one archived result.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*recon.ReconciliationResult, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("result repo: nil db")
	}
	var snapshot []byte
	err := r.db.QueryRowContext(ctx, `
SELECT snapshot FROM reconciliation_results WHERE id = $1 LIMIT 1`, id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, recon.ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	var result recon.ReconciliationResult
	if err := json.Unmarshal(snapshot, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByTenant lists archived results for a tenant, newest first. An empty
// tenant lists across tenants.
func (r *ResultRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]recon.ReconciliationResult, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("result repo: nil db")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if tenantID == "" {
		rows, err = r.db.QueryContext(ctx, `
SELECT snapshot FROM reconciliation_results
ORDER BY confirmed_at DESC
LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT snapshot FROM reconciliation_results
WHERE tenant_id = $1
ORDER BY confirmed_at DESC
LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []recon.ReconciliationResult
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, err
		}
		var result recon.ReconciliationResult
		if err := json.Unmarshal(snapshot, &result); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
