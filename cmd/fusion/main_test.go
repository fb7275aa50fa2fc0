package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/fusion/internal/config"
	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/devtools"
	"github.com/vango-dev/fusion/pkg/key"
	"github.com/vango-dev/fusion/pkg/store"
)

func TestOpenAdapterDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"memory", func(c *config.Config) { c.Storage.Driver = config.DriverMemory }},
		{"dir", func(c *config.Config) {
			c.Storage.Driver = config.DriverDir
			c.Storage.Dir = filepath.Join(dir, "state")
		}},
		{"sql", func(c *config.Config) {
			c.Storage.Driver = config.DriverSQL
			c.Storage.SQL.Driver = "sqlite3"
			c.Storage.SQL.Table = config.DefaultSQLTable
			c.Storage.SQL.DSN = filepath.Join(dir, "state.db")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			tt.modify(cfg)
			require.NoError(t, cfg.Validate())

			adapter, closer, err := openAdapter(ctx, cfg)
			require.NoError(t, err)
			defer closer()
			require.NotNil(t, adapter)

			require.NoError(t, adapter.SetItem(ctx, "shop", `{"cart":[1]}`))
			got, ok, err := adapter.GetItem(ctx, "shop")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"cart":[1]}`, got)

			require.NoError(t, adapter.RemoveItem(ctx, "shop"))
			_, ok, err = adapter.GetItem(ctx, "shop")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestOpenAdapterNone(t *testing.T) {
	adapter, closer, err := openAdapter(context.Background(), config.New())
	require.NoError(t, err)
	assert.Nil(t, adapter)
	assert.NoError(t, closer())

	_, closer, err = requireAdapter(context.Background(), config.New())
	assert.Equal(t, errors.StorageAdapterMissing, errors.CodeOf(err))
	assert.NotNil(t, closer)
}

func TestOpenAdapterS3(t *testing.T) {
	cfg := config.New()
	cfg.Storage.Driver = config.DriverS3
	cfg.Storage.S3.Bucket = "state"
	cfg.Storage.S3.Region = "us-east-1"
	cfg.Storage.S3.Endpoint = "http://localhost:9000"
	cfg.Storage.S3.PathStyle = true

	adapter, closer, err := openAdapter(context.Background(), cfg)
	require.NoError(t, err)
	defer closer()
	assert.NotNil(t, adapter)
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	_, err := envCredentials(context.Background())
	assert.Error(t, err)

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "token")
	creds, err := envCredentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.Equal(t, "token", creds.SessionToken)
}

func TestNormalizeRecord(t *testing.T) {
	got, err := normalizeRecord([]byte(" {\n  \"b\": 2, \"a\": [1, 2]\n}\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,2],"b":2}`, string(got))

	for _, bad := range []string{"", "null", "[1,2]", "42", "{"} {
		_, err := normalizeRecord([]byte(bad))
		assert.Equal(t, errors.ConfigInvalid, errors.CodeOf(err), "input %q", bad)
	}
}

func TestRecordKeys(t *testing.T) {
	names, err := recordKeys([]byte(`{"theme":"dark","cart":[],"user":null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"cart", "theme", "user"}, names)

	_, err = recordKeys([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestEventsURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:7777/stores/cart/events", eventsURL("http://localhost:7777", "cart"))
	assert.Equal(t, "wss://bridge/stores/a%20b/events", eventsURL("https://bridge", "a b"))
}

func TestPrintEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer

	require.NoError(t, printEvent(&buf, devtools.Event{
		Store:       "app",
		ChangedKeys: []string{},
		Snapshot:    map[string]any{"b": 2.0, "a": "x"},
		At:          at,
	}))
	out := buf.String()
	assert.Contains(t, out, "app  snapshot (2 keys)")
	assert.Less(t, strings.Index(out, "a = \"x\""), strings.Index(out, "b = 2"))

	buf.Reset()
	require.NoError(t, printEvent(&buf, devtools.Event{
		Store:       "app",
		ChangedKeys: []string{"a", "gone"},
		Snapshot:    map[string]any{"a": []any{1.0}},
		At:          at,
	}))
	out = buf.String()
	assert.Contains(t, out, "changed a, gone")
	assert.Contains(t, out, "a = [1]")
	assert.Contains(t, out, "gone  (removed)")
}

func TestTailAndSnapshot(t *testing.T) {
	s, err := store.New(store.WithName("cli-tail"), store.WithDevtools())
	require.NoError(t, err)
	defer s.Close(context.Background())
	_, err = s.DeclareInitial(key.Plain("count"), 1)
	require.NoError(t, err)

	srv := httptest.NewServer(devtools.NewBridge())
	defer srv.Close()

	var snap devtools.Event
	require.NoError(t, getJSON(context.Background(), srv.URL+"/stores/cli-tail", &snap))
	assert.Equal(t, 1.0, snap.Snapshot["count"])

	err = getJSON(context.Background(), srv.URL+"/stores/missing", &snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store not found")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan devtools.Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- tail(ctx, eventsURL(srv.URL, "cli-tail"), func(ev devtools.Event) error {
			events <- ev
			return nil
		})
	}()

	first := <-events
	assert.Empty(t, first.ChangedKeys)
	assert.Equal(t, 1.0, first.Snapshot["count"])

	require.NoError(t, s.Set(key.Plain("count"), store.Value(2)))
	second := <-events
	assert.Equal(t, []string{"count"}, second.ChangedKeys)
	assert.Equal(t, 2.0, second.Snapshot["count"])

	cancel()
	assert.NoError(t, <-done)
}

func TestCodedErrorOutput(t *testing.T) {
	defer func() {
		errors.EnableColors()
		configPath, noColor = "", false
	}()

	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, config.New().SaveTo(path))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--no-color", "--config", path, "storage", "get"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.StorageAdapterMissing, errors.CodeOf(err))

	var out bytes.Buffer
	errors.Fprint(&out, err)
	assert.Contains(t, out.String(), "ERROR StorageAdapterMissing:")
	assert.Contains(t, out.String(), "Set storage.driver in fusion.json")
	assert.NotContains(t, out.String(), "\033[", "--no-color disables ANSI codes")
}
