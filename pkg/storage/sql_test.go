package storage

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLAdapterSQLite(t *testing.T) {
	db := openSQLite(t)
	store := NewSQLStore(db, WithSQLDialect(DialectSQLite), WithSQLTableName("app_state"))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, store.EnsureSchema(context.Background()), "EnsureSchema is idempotent")

	assert.Equal(t, "app_state", store.TableName())
	adapterRoundTrip(t, NewAsync(store))
}

func TestSQLMissingTable(t *testing.T) {
	db := openSQLite(t)
	a := NewSQL(db, WithSQLDialect(DialectSQLite))

	_, _, err := a.GetItem(context.Background(), "app")
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    SQLDialect
		wantErr bool
	}{
		{"postgres", DialectPostgreSQL, false},
		{"pgx", DialectPostgreSQL, false},
		{"mysql", DialectMySQL, false},
		{"sqlite3", DialectSQLite, false},
		{"oracle", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLPlaceholders(t *testing.T) {
	pg := NewSQLStore(nil)
	assert.Equal(t, "$2", pg.placeholder(2))

	my := NewSQLStore(nil, WithSQLDialect(DialectMySQL))
	assert.Equal(t, "?", my.placeholder(2))
}
