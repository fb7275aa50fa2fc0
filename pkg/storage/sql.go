package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore keeps each key as a row in a table.
// It works with any database/sql driver for PostgreSQL, MySQL or SQLite.
// The table is created by EnsureSchema, or by hand:
//
//	CREATE TABLE fusion_state (
//	    name       VARCHAR(255) PRIMARY KEY,
//	    value      TEXT NOT NULL,
//	    updated_at TIMESTAMP NOT NULL
//	);
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
}

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite
)

// ParseDialect maps a dialect name to a SQLDialect.
func ParseDialect(name string) (SQLDialect, error) {
	switch name {
	case "postgres", "postgresql", "pgx":
		return DialectPostgreSQL, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("storage: unknown SQL dialect %q", name)
	}
}

// SQLOption configures SQLStore behavior.
type SQLOption func(*SQLStore)

// WithSQLTableName sets the table name. Default: "fusion_state".
func WithSQLTableName(name string) SQLOption {
	return func(s *SQLStore) {
		s.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect. Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLOption {
	return func(s *SQLStore) {
		s.dialect = dialect
	}
}

// NewSQLStore creates a SQLStore.
func NewSQLStore(db *sql.DB, opts ...SQLOption) *SQLStore {
	s := &SQLStore{
		db:        db,
		tableName: "fusion_state",
		dialect:   DialectPostgreSQL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSQL returns an Adapter backed by a SQL table.
func NewSQL(db *sql.DB, opts ...SQLOption) *Async {
	return NewAsync(NewSQLStore(db, opts...))
}

// placeholder returns the placeholder syntax for the dialect.
func (s *SQLStore) placeholder(n int) string {
	switch s.dialect {
	case DialectPostgreSQL:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// EnsureSchema creates the table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	valueType := "TEXT"
	if s.dialect == DialectMySQL {
		valueType = "LONGTEXT"
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			name VARCHAR(255) PRIMARY KEY,
			value %s NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`, s.tableName, valueType)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.tableName, err)
	}
	return nil
}

// Get retrieves the value for key.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE name = %s`,
		s.tableName, s.placeholder(1))

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Put upserts the value for key.
func (s *SQLStore) Put(ctx context.Context, key string, data []byte) error {
	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (name, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = NOW()
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (name, value, updated_at)
			VALUES (?, ?, NOW())
			ON DUPLICATE KEY UPDATE
				value = VALUES(value),
				updated_at = NOW()
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (name, value, updated_at)
			VALUES (?, ?, datetime('now'))
		`, s.tableName)
	}

	_, err := s.db.ExecContext(ctx, query, key, string(data))
	return err
}

// Delete removes the row for key.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE name = %s`,
		s.tableName, s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, key)
	return err
}

// TableName returns the configured table name.
func (s *SQLStore) TableName() string {
	return s.tableName
}
