package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	"PairLab/pkg/postgres"
)

// MemoryAlertRepository keeps alerts for the process lifetime.
type MemoryAlertRepository struct {
	mu     sync.RWMutex
	alerts map[int64]models.Alert
}

func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{alerts: make(map[int64]models.Alert)}
}

var _ domrepo.AlertRepository = (*MemoryAlertRepository)(nil)

func (r *MemoryAlertRepository) Save(_ context.Context, a *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[a.ID] = *a
	return nil
}

func (r *MemoryAlertRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[id]; !ok {
		return domrepo.ErrNotFound
	}
	delete(r.alerts, id)
	return nil
}

func (r *MemoryAlertRepository) List(context.Context) ([]models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AlertsSchema creates the alerts table.
const AlertsSchema = `
CREATE TABLE IF NOT EXISTS alerts (
	id         BIGINT PRIMARY KEY,
	symbol_x   TEXT NOT NULL,
	symbol_y   TEXT NOT NULL,
	metric     TEXT NOT NULL,
	operator   TEXT NOT NULL,
	threshold  DOUBLE PRECISION NOT NULL,
	message    TEXT NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
)`

// PostgresAlertRepository persists alerts through pgx.
type PostgresAlertRepository struct {
	pool *postgres.Pool
}

func NewPostgresAlertRepository(pool *postgres.Pool) *PostgresAlertRepository {
	return &PostgresAlertRepository{pool: pool}
}

var _ domrepo.AlertRepository = (*PostgresAlertRepository)(nil)

// Init creates the alerts table if missing.
func (r *PostgresAlertRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, AlertsSchema); err != nil {
		return fmt.Errorf("create alerts table: %w", err)
	}
	return nil
}

func (r *PostgresAlertRepository) Save(ctx context.Context, a *models.Alert) error {
	const q = `
		INSERT INTO alerts (id, symbol_x, symbol_y, metric, operator, threshold, message, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			symbol_x = EXCLUDED.symbol_x, symbol_y = EXCLUDED.symbol_y, metric = EXCLUDED.metric,
			operator = EXCLUDED.operator, threshold = EXCLUDED.threshold,
			message = EXCLUDED.message, active = EXCLUDED.active`
	_, err := r.pool.Exec(ctx, q,
		a.ID, a.SymbolX, a.SymbolY, a.Metric, a.Operator, a.Threshold, a.Message, a.Active, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("save alert %d: %w", a.ID, err)
	}
	return nil
}

func (r *PostgresAlertRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}

func (r *PostgresAlertRepository) List(ctx context.Context) ([]models.Alert, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, symbol_x, symbol_y, metric, operator, threshold, message, active, created_at
		FROM alerts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(&a.ID, &a.SymbolX, &a.SymbolY, &a.Metric, &a.Operator,
			&a.Threshold, &a.Message, &a.Active, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
