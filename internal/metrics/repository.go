package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config

	mu       sync.Mutex
	buffer   []*Transition
	closed   bool
	readOnly bool

	flushTicker *time.Ticker
	shutdown    chan struct{}
	flushDone   chan struct{}
}

type phaseError struct {
	Phase string
	Path  string
	Error string
}

// NewRepository opens (creating if needed) the database at cfg.DBPath and
// brings its schema to SchemaVersion.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultBatchSize
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, phaseError{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, phaseError{
			Phase: "open_database",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}
	db.SetMaxOpenConns(1)

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, phaseError{
			Phase: "schema_version",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Transition history opened")

	repo := &repository{
		db:        db,
		logger:    log,
		cfg:       cfg,
		buffer:    make([]*Transition, 0, cfg.BatchSize),
		shutdown:  make(chan struct{}),
		flushDone: make(chan struct{}),
	}

	if cfg.BatchSize > 1 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go repo.flusher()
	} else {
		close(repo.flushDone)
	}

	return repo, nil
}

// OpenReadOnly opens an existing database for queries. It never creates the
// file or touches the schema; a version other than SchemaVersion is an error.
func OpenReadOnly(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if _, err := os.Stat(cfg.DBPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errFactory.WithData(ErrHistoryMissing, cfg.DBPath)
		}
		return nil, errFactory.WithData(ErrStorageInit, phaseError{
			Phase: "stat_database",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	db, err := sql.Open("sqlite3", "file:"+cfg.DBPath+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, phaseError{
			Phase: "open_database",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}
	db.SetMaxOpenConns(1)

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version != SchemaVersion {
		db.Close()
		return nil, errFactory.WithData(ErrSchemaValidationFailed, phaseError{
			Phase: "schema_version",
			Path:  cfg.DBPath,
			Error: fmt.Sprintf("found version %d, want %d", version, SchemaVersion),
		})
	}

	log.Debug().Str("path", cfg.DBPath).Msg("Transition history opened read-only")

	repo := &repository{
		db:        db,
		logger:    log,
		cfg:       cfg,
		readOnly:  true,
		shutdown:  make(chan struct{}),
		flushDone: make(chan struct{}),
	}
	close(repo.flushDone)

	return repo, nil
}

func (r *repository) Insert(t *Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(ErrStorageClose)
	}
	if r.readOnly {
		return errors.New().New(ErrReadOnly)
	}

	r.buffer = append(r.buffer, t)
	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Recent(limit int) ([]Transition, error) {
	errFactory := errors.New()

	r.mu.Lock()
	if err := r.flush(); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	rows, err := r.db.Query(selectRecentSQL, limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			t         Transition
			ts        int64
			tolerated int
		)
		if err := rows.Scan(&ts, &t.Reading, &t.From, &t.To, &t.Cause, &t.Strategy, &tolerated); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		t.Timestamp = time.UnixMilli(ts)
		t.Tolerated = tolerated != 0
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return out, nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.flushTicker != nil {
		close(r.shutdown)
		r.flushTicker.Stop()
	}
	<-r.flushDone

	r.mu.Lock()
	flushErr := r.flush()
	r.mu.Unlock()
	if flushErr != nil {
		r.logger.Warn().Err(flushErr).Msg("Dropped buffered transitions on close")
	}

	if r.readOnly {
		return r.db.Close()
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, phaseError{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, phaseError{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Debug().Msg("Transition history closed")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDone)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdown:
			return
		}
	}
}

// flush writes the buffer in one transaction. Callers hold r.mu.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertTransitionSQL)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, t := range r.buffer {
		_, err := stmt.Exec(
			t.Timestamp.UnixMilli(),
			t.Reading,
			t.From,
			t.To,
			t.Cause,
			t.Strategy,
			boolToInt(t.Tolerated),
		)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed transitions")
	r.buffer = r.buffer[:0]

	return nil
}
