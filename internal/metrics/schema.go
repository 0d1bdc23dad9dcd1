package metrics

import (
	"database/sql"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS transitions (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp   INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       reading     REAL NOT NULL,
	       from_phase  TEXT NOT NULL,
	       to_phase    TEXT NOT NULL,
	       cause       TEXT NOT NULL,
	       strategy    TEXT NOT NULL,
	       tolerated   INTEGER NOT NULL CHECK (tolerated IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS transitions_timestamp ON transitions (timestamp);`

	insertTransitionSQL = `
    INSERT INTO transitions (
        timestamp, reading, from_phase, to_phase, cause, strategy, tolerated
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectRecentSQL = `
    SELECT timestamp, reading, from_phase, to_phase, cause, strategy, tolerated
    FROM transitions
    ORDER BY timestamp DESC, id DESC
    LIMIT ?`
)

// managedTables lists every table the schema owns, dropped on migration.
var managedTables = []string{"transitions", "schema_versions"}

// InitSchema creates the current schema and records its version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to roll back schema creation")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, phaseError{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, phaseError{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().Int("version", SchemaVersion).Msg("History schema created")

	return nil
}

// GetSchemaVersion returns the recorded version, or 0 for an empty database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`SELECT version FROM schema_versions ORDER BY version DESC LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, phaseError{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func TableExists(db *sql.DB, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, name).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, phaseError{
			Phase: "check_table_exists",
			Path:  name,
			Error: err.Error(),
		})
	}

	return exists, nil
}
