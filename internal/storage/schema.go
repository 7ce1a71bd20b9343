package storage

import (
	"context"
	"database/sql"

	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS infrared_data (
	       id           INTEGER PRIMARY KEY,
	       reading_time REAL NOT NULL,
	       data         BLOB NOT NULL
	   );`

	insertReadingSQL = `INSERT INTO infrared_data (reading_time, data) VALUES (?, ?)`
)

// initSchema creates the tables if needed and records the schema version.
// An existing database written by a different schema version is rejected
// rather than rewritten.
func initSchema(ctx context.Context, db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback schema transaction")
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	var version int
	err = tx.QueryRowContext(ctx, `
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		log.Debug().Msg("Recording schema version...")
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO schema_versions (version, applied_at)
            VALUES (?, datetime('now'))
        `, SchemaVersion); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Phase string
				Error string
			}{
				Phase: "record_version",
				Error: err.Error(),
			})
		}
	case err != nil:
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	case version != SchemaVersion:
		return errFactory.WithData(ErrSchemaVersionMismatch, struct {
			Found    int
			Expected int
		}{
			Found:    version,
			Expected: SchemaVersion,
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Debug().
		Int("version", SchemaVersion).
		Msg("Schema ready")

	return nil
}
