package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// TestNewSQLite_InvalidDSN verifies that NewSQLite returns an error for
// a path inside a nonexistent directory.
func TestNewSQLite_InvalidDSN(t *testing.T) {
	_, err := NewSQLite("/nonexistent/dir/subdir/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}

func TestNewSQLite_WALMode(t *testing.T) {
	st := newTestSQLiteStore(t)

	var mode string
	require.NoError(t, st.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_SaveRunStoresSales(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	res := sampleResult(t)
	run := NewRun("manifest.yaml", res)
	require.NoError(t, st.SaveRun(ctx, run, res.Records))

	n, err := st.CountSales(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var (
		admin, proximity, market string
		dist                     float64
		blob                     []byte
	)
	require.NoError(t, st.db.QueryRow(
		`SELECT admin, proximity, nearest_market, market_distance, geom_ewkb FROM run_sales WHERE run_id = ? AND record_id = ?`,
		run.ID, "s1",
	).Scan(&admin, &proximity, &market, &dist, &blob))
	assert.Equal(t, `{"zip":"95814"}`, admin)
	assert.Equal(t, "[false,true]", proximity)
	assert.Equal(t, "Midtown", market)
	assert.Equal(t, 1000.0, dist)

	g, err := ewkb.Unmarshal(blob)
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 32610, pt.SRID())
	assert.Equal(t, []float64{1000, 0}, pt.FlatCoords())
}

func TestSQLite_ResaveReplacesSales(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	res := sampleResult(t)
	run := NewRun("manifest.yaml", res)
	require.NoError(t, st.SaveRun(ctx, run, res.Records))
	require.NoError(t, st.SaveRun(ctx, run, res.Records[1:]))

	n, err := st.CountSales(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_SaveRunCancelled(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := sampleResult(t)
	err := st.SaveRun(ctx, NewRun("manifest.yaml", res), res.Records)
	require.Error(t, err)
}
