package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geoenrich/internal/enrich"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	manifest       TEXT NOT NULL,
	target_epsg    INTEGER NOT NULL,
	input_count    INTEGER NOT NULL,
	enriched_count INTEGER NOT NULL,
	skipped_count  INTEGER NOT NULL,
	summary        TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_sales (
	run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	record_id       TEXT NOT NULL,
	price           REAL NOT NULL,
	year_built      INTEGER NOT NULL,
	x               REAL NOT NULL,
	y               REAL NOT NULL,
	admin           TEXT NOT NULL,
	nearest_market  TEXT NOT NULL,
	market_distance REAL NOT NULL,
	proximity       TEXT NOT NULL,
	geom_ewkb       BLOB NOT NULL,
	PRIMARY KEY (run_id, record_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_target_epsg ON runs(target_epsg);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, records []enrich.EnrichedRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	rows, err := saleRows(run.ID, records)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, manifest, target_epsg, input_count, enriched_count, skipped_count, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET manifest = excluded.manifest, target_epsg = excluded.target_epsg,
		   input_count = excluded.input_count, enriched_count = excluded.enriched_count,
		   skipped_count = excluded.skipped_count, summary = excluded.summary`,
		run.ID, run.Manifest, run.TargetEPSG, run.Input, run.Enriched, run.Skipped, string(summary), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_sales WHERE run_id = ?`, run.ID); err != nil {
		return eris.Wrapf(err, "sqlite: clear sales for run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_sales (run_id, record_id, price, year_built, x, y, admin, nearest_market, market_distance, proximity, geom_ewkb)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare sale insert")
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert sale %v", row[1])
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, manifest, target_epsg, input_count, enriched_count, skipped_count, summary, created_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, manifest, target_epsg, input_count, enriched_count, skipped_count, summary, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.TargetEPSG != 0 {
		query += ` AND target_epsg = ?`
		args = append(args, filter.TargetEPSG)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// CountSales returns the number of stored sales for a run.
func (s *SQLiteStore) CountSales(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_sales WHERE run_id = ?`, runID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count sales")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

// scanRun returns sql.ErrNoRows unwrapped so callers can detect a miss.
func scanRun(row scannable) (*Run, error) {
	var r Run
	var summary string

	err := row.Scan(&r.ID, &r.Manifest, &r.TargetEPSG, &r.Input, &r.Enriched, &r.Skipped, &summary, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &r, nil
}
