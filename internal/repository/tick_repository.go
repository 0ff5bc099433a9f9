package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	pkgch "PairLab/pkg/clickhouse"
	applogger "PairLab/pkg/logger"
)

// TicksTable is the ClickHouse table holding raw ticks.
const TicksTable = "ticks"

// ClickHouseTickStore implements TickStore on a MergeTree table ordered by (symbol, ts).
type ClickHouseTickStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

// NewClickHouseTickStore creates a store on database.ticks.
func NewClickHouseTickStore(ch *pkgch.Client, l *applogger.Logger) *ClickHouseTickStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseTickStore{
		db:       ch.DB(),
		database: ch.Database(),
		table:    ch.Database() + "." + TicksTable,
		l:        l.With(applogger.String("store", "clickhouse")),
	}
}

var _ domrepo.TickStore = (*ClickHouseTickStore)(nil)

// SchemaStatements returns the DDL for database and ticks table.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			price Float64,
			size Float64
		) ENGINE = MergeTree ORDER BY (symbol, ts)`, database, TicksTable),
	}
}

func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	for _, stmt := range SchemaStatements(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return nil
}

// StoreBatch inserts ticks in one native batch.
func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (symbol, ts, price, size)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		if t == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, t.Symbol, t.Time.UTC(), t.Price, t.Size); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append tick: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.l.Error("clickhouse insert failed", applogger.Int("rows", len(ticks)), applogger.Error(err))
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseTickStore) Query(ctx context.Context, symbol string, from, to time.Time) ([]models.Tick, error) {
	q, args := tickQuery(s.table, symbol, from, to)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query failed", applogger.String("symbol", symbol), applogger.Error(err))
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tick, 0, 1024)
	for rows.Next() {
		var t models.Tick
		if err := rows.Scan(&t.Symbol, &t.Time, &t.Price, &t.Size); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Time = t.Time.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func tickQuery(table, symbol string, from, to time.Time) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT symbol, ts, price, size FROM %s WHERE symbol = ?", table)
	args := []interface{}{symbol}
	if !from.IsZero() {
		b.WriteString(" AND ts >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		b.WriteString(" AND ts <= ?")
		args = append(args, to.UTC())
	}
	b.WriteString(" ORDER BY ts ASC")
	return b.String(), args
}

func (s *ClickHouseTickStore) Stats(ctx context.Context) ([]models.SymbolStats, error) {
	q := fmt.Sprintf("SELECT symbol, count() AS cnt, min(ts), max(ts) FROM %s GROUP BY symbol ORDER BY symbol", s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tick stats: %w", err)
	}
	defer rows.Close()

	var out []models.SymbolStats
	for rows.Next() {
		var st models.SymbolStats
		var cnt uint64
		if err := rows.Scan(&st.Symbol, &cnt, &st.FirstTick, &st.LastTick); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		st.Count = int64(cnt)
		st.FirstTick, st.LastTick = st.FirstTick.UTC(), st.LastTick.UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the client owns the connection.
func (s *ClickHouseTickStore) Close() error {
	return nil
}
