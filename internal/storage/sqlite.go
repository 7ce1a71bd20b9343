package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores readings in the infrared_data table.
type SQLite struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	mu     sync.Mutex
	closed bool
}

var _ Store = (*SQLite)(nil)

func NewSQLite(ctx context.Context, cfg Config, log logger.Logger) (*SQLite, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.isMemory() && !cfg.isURI() {
		if cfg.RemoveExisting {
			if err := os.Remove(cfg.DBURI); err != nil && !os.IsNotExist(err) {
				return nil, errFactory.WithData(ErrStorageInit, struct {
					Phase string
					Path  string
					Error string
				}{
					Phase: "remove_existing",
					Path:  cfg.DBURI,
					Error: err.Error(),
				})
			}
			log.Info().Str("path", cfg.DBURI).Msg("Removed existing database")
		}

		// Ensure the directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.DBURI), defaultDirPerm); err != nil {
			return nil, errFactory.WithData(ErrStorageInit, struct {
				Phase string
				Path  string
				Error string
			}{
				Phase: "create_directory",
				Path:  cfg.DBURI,
				Error: err.Error(),
			})
		}
	}

	log.Info().Str("uri", cfg.DBURI).Msg("Connecting to database")

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}
	// A single connection keeps in-memory databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	if err := initSchema(ctx, db, log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &SQLite{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Append inserts one reading and commits it before returning.
func (s *SQLite) Append(ctx context.Context, timestamp float64, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errFactory := errors.New()
	if s.closed {
		return errFactory.WithMessage(ErrAppendFailed, "store is closed")
	}

	if _, err := s.db.ExecContext(ctx, insertReadingSQL, timestamp, record); err != nil {
		return errFactory.Wrap(ErrAppendFailed, err)
	}

	s.logger.Debug().
		Float64("reading_time", timestamp).
		Int("bytes", len(record)).
		Msg("Inserted reading")

	return nil
}

// Count returns the number of stored readings.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM infrared_data`).Scan(&n); err != nil {
		return 0, errors.New().Wrap(ErrQueryFailed, err)
	}
	return n, nil
}

// Records returns every stored reading ordered by id.
func (s *SQLite) Records(ctx context.Context) ([]Record, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, `SELECT id, reading_time, data FROM infrared_data ORDER BY id`)
	if err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.ReadingTime, &r.Data); err != nil {
			return nil, errFactory.Wrap(ErrQueryFailed, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQueryFailed, err)
	}

	return records, nil
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	errFactory := errors.New()
	s.logger.Info().Msg("Closing database connection")

	if !s.cfg.isMemory() {
		// Checkpoint WAL and cleanup on close
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to checkpoint WAL")
		}
	}

	if err := s.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	return nil
}
