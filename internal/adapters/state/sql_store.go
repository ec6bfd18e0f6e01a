package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/inbox-digest/internal/core"
)

const stateRowName = "default"

type dialect struct {
	driver      string
	createTable string
	upsert      string
}

var sqliteDialect = dialect{
	driver: "sqlite3",
	createTable: `
		CREATE TABLE IF NOT EXISTS digest_state (
			name TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	upsert: `
		INSERT OR REPLACE INTO digest_state (name, payload, updated_at)
		VALUES (?, ?, ?)`,
}

var mysqlDialect = dialect{
	driver: "mysql",
	createTable: `
		CREATE TABLE IF NOT EXISTS digest_state (
			name VARCHAR(64) PRIMARY KEY,
			payload LONGBLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	upsert: `
		INSERT INTO digest_state (name, payload, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)`,
}

// SQLStore keeps the state blob in a single row of a SQL table. The upsert
// replaces the whole row so readers never see a partial write.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

// NewSQLiteStore opens or creates a SQLite state database
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLStore, error) {
	return openSQLStore(sqliteDialect, dbPath, logger)
}

// NewMySQLStore connects to a MySQL state database
func NewMySQLStore(dsn string, logger *zap.Logger) (*SQLStore, error) {
	return openSQLStore(mysqlDialect, dsn, logger)
}

func openSQLStore(d dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.driver, err)
	}
	if d.driver == "sqlite3" {
		// single connection serializes writers
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// Load reads the state row. No row is an empty state.
func (s *SQLStore) Load(ctx context.Context) (*core.State, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM digest_state WHERE name = ?`, stateRowName).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.NewState(), nil
		}
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	return decode(payload)
}

// Save upserts the state row
func (s *SQLStore) Save(ctx context.Context, st *core.State) error {
	payload, err := encode(st)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, stateRowName, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	s.logger.Debug("State saved", zap.String("driver", s.dialect.driver), zap.Int("bytes", len(payload)))
	return nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close state database", zap.Error(err))
		return err
	}
	return nil
}
