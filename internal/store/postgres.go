package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/db"
	"github.com/sells-group/geoenrich/internal/enrich"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// The geometry is kept as EWKB so the store works without PostGIS;
// ST_GeomFromEWKB(geom_ewkb) reads it where the extension is installed.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	manifest       TEXT NOT NULL,
	target_epsg    INTEGER NOT NULL,
	input_count    INTEGER NOT NULL,
	enriched_count INTEGER NOT NULL,
	skipped_count  INTEGER NOT NULL,
	summary        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_sales (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	record_id       TEXT NOT NULL,
	price           DOUBLE PRECISION NOT NULL,
	year_built      INTEGER NOT NULL,
	x               DOUBLE PRECISION NOT NULL,
	y               DOUBLE PRECISION NOT NULL,
	admin           JSONB NOT NULL,
	nearest_market  TEXT NOT NULL,
	market_distance DOUBLE PRECISION NOT NULL,
	proximity       JSONB NOT NULL,
	geom_ewkb       BYTEA NOT NULL,
	PRIMARY KEY (run_id, record_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_target_epsg ON runs(target_epsg);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *Run, records []enrich.EnrichedRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	rows, err := saleRows(run.ID, records)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save run")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, manifest, target_epsg, input_count, enriched_count, skipped_count, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET manifest = $2, target_epsg = $3, input_count = $4,
		   enriched_count = $5, skipped_count = $6, summary = $7`,
		run.ID, run.Manifest, run.TargetEPSG, run.Input, run.Enriched, run.Skipped, summary, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	// A re-saved run replaces its sales rather than merging with them.
	if _, err := tx.Exec(ctx, `DELETE FROM run_sales WHERE run_id = $1`, run.ID); err != nil {
		return eris.Wrapf(err, "postgres: clear sales for run %s", run.ID)
	}

	n, err := db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        "run_sales",
		Columns:      saleColumns,
		ConflictKeys: []string{"run_id", "record_id"},
	}, rows)
	if err != nil {
		return eris.Wrapf(err, "postgres: save sales for run %s", run.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit run %s", run.ID)
	}

	zap.L().Debug("postgres: run saved", zap.String("run_id", run.ID), zap.Int64("sales", n))
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	r, err := scanPGRun(s.pool.QueryRow(ctx,
		`SELECT id, manifest, target_epsg, input_count, enriched_count, skipped_count, summary, created_at FROM runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: get run: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, manifest, target_epsg, input_count, enriched_count, skipped_count, summary, created_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TargetEPSG != 0 {
		query += fmt.Sprintf(` AND target_epsg = $%d`, argIdx)
		args = append(args, filter.TargetEPSG)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPGRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPGRun(row pgx.Row) (*Run, error) {
	var r Run
	var summary []byte
	if err := row.Scan(&r.ID, &r.Manifest, &r.TargetEPSG, &r.Input, &r.Enriched, &r.Skipped, &summary, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(summary, &r.Summary); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal summary")
	}
	return &r, nil
}
