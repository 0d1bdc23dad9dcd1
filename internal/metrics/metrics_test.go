package metrics_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	"codeberg.org/mutker/profilectl/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) metrics.Config {
	t.Helper()
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "state", "history.db")

	return cfg
}

func transition(at time.Time, from, to string) *metrics.Transition {
	return &metrics.Transition{
		Timestamp: at,
		Reading:   70.5,
		From:      from,
		To:        to,
		Cause:     "test",
		Strategy:  "set",
	}
}

func TestDisabledRecorder(t *testing.T) {
	rec, err := metrics.NewRecorder(metrics.DefaultConfig(), logger.Default())
	require.NoError(t, err)
	assert.False(t, rec.Enabled())
	assert.NoError(t, rec.Record(context.Background(), transition(time.Now(), "inactive", "armed")))
	assert.NoError(t, rec.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.Config{Enabled: true}
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidDBPath))

	cfg.DBPath = "/tmp/x.db"
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidBatch))

	cfg.BatchSize = 10
	assert.True(t, errors.HasCode(cfg.Validate(), metrics.ErrInvalidBatch))

	cfg.BatchTimeout = time.Second
	assert.NoError(t, cfg.Validate())
}

func TestRepositoryRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	repo, err := metrics.NewRepository(cfg, logger.Default())
	require.NoError(t, err)

	base := time.UnixMilli(1_700_000_000_000)
	rec := metrics.NewRecorderWithRepository(repo)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, transition(base, "inactive", "armed")))
	require.NoError(t, rec.Record(ctx, transition(base.Add(5*time.Second), "armed", "active")))
	tol := transition(base.Add(9*time.Second), "active", "inactive")
	tol.Tolerated = true
	require.NoError(t, rec.Record(ctx, tol))

	got, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "inactive", got[0].To)
	assert.True(t, got[0].Tolerated)
	assert.True(t, got[0].Timestamp.Equal(base.Add(9*time.Second)))
	assert.Equal(t, "active", got[1].To)
	assert.InDelta(t, 70.5, got[1].Reading, 1e-9)

	assert.True(t, errors.HasCode(rec.Record(ctx, &metrics.Transition{}), metrics.ErrInvalidTransition))
	require.NoError(t, rec.Close())
}

func TestRepositoryBatchFlushedOnClose(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 100
	cfg.BatchTimeout = time.Hour

	repo, err := metrics.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(transition(time.Now(), "inactive", "armed")))
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	reopened, err := metrics.NewRepository(testConfigAt(cfg.DBPath), logger.Default())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Recent(10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func testConfigAt(path string) metrics.Config {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = path

	return cfg
}

func TestSchemaMismatchBacksUp(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));
		CREATE TABLE transitions (legacy TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	repo, err := metrics.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	defer repo.Close()

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.DBPath), "backups", "history_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	require.NoError(t, repo.Insert(transition(time.Now(), "inactive", "armed")))
	got, err := repo.Recent(1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenReadOnlyMissing(t *testing.T) {
	cfg := testConfig(t)

	_, err := metrics.OpenReadOnly(cfg, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrHistoryMissing))

	_, statErr := os.Stat(filepath.Dir(cfg.DBPath))
	assert.True(t, os.IsNotExist(statErr), "state directory must not be created")
}

func TestOpenReadOnly(t *testing.T) {
	cfg := testConfig(t)
	repo, err := metrics.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	require.NoError(t, repo.Insert(transition(time.Now(), "inactive", "armed")))
	require.NoError(t, repo.Close())

	cfg.Enabled = false
	ro, err := metrics.OpenReadOnly(cfg, logger.Default())
	require.NoError(t, err)
	defer ro.Close()

	got, err := ro.Recent(5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	err = ro.Insert(transition(time.Now(), "armed", "active"))
	assert.True(t, errors.HasCode(err, metrics.ErrReadOnly))
}

func TestOpenReadOnlySchemaMismatch(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = metrics.OpenReadOnly(cfg, logger.Default())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, metrics.ErrSchemaValidationFailed))

	backups, err := filepath.Glob(filepath.Join(filepath.Dir(cfg.DBPath), "backups", "*.db"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}
