package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/storage"
	"github.com/vango-dev/fusion/pkg/store"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Namespace != store.DefaultNamespace {
		t.Errorf("Namespace = %q, want %q", cfg.Namespace, store.DefaultNamespace)
	}
	if cfg.PersistPrefix != store.DefaultPersistPrefix {
		t.Errorf("PersistPrefix = %q, want %q", cfg.PersistPrefix, store.DefaultPersistPrefix)
	}
	if cfg.Storage.Driver != DriverNone {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverNone)
	}
	if cfg.Devtools.Addr != DefaultDevtoolsAddr {
		t.Errorf("Devtools.Addr = %q, want %q", cfg.Devtools.Addr, DefaultDevtoolsAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if errors.CodeOf(err) != errors.ConfigNotFound {
		t.Errorf("Load on empty dir: code = %q, want %q", errors.CodeOf(err), errors.ConfigNotFound)
	}

	configJSON := `{
  "name": "shop",
  "namespace": "shop",
  "persistKeys": ["cart"],
  "debounce": "250ms",
  "storage": {
    "driver": "dir",
    "dir": "state"
  }
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "shop" {
		t.Errorf("Name = %q, want %q", cfg.Name, "shop")
	}
	if cfg.PersistPrefix != store.DefaultPersistPrefix {
		t.Errorf("PersistPrefix = %q, want default", cfg.PersistPrefix)
	}
	if len(cfg.PersistKeys) != 1 || cfg.PersistKeys[0] != "cart" {
		t.Errorf("PersistKeys = %v, want [cart]", cfg.PersistKeys)
	}
	if cfg.DebounceDuration() != 250*time.Millisecond {
		t.Errorf("DebounceDuration = %v, want 250ms", cfg.DebounceDuration())
	}
	if got, want := cfg.StorageDir(), filepath.Join(tmpDir, "state"); got != want {
		t.Errorf("StorageDir = %q, want %q", got, want)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir = %q, want %q", cfg.Dir(), tmpDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configYAML := `
namespace: app
persistPrefix: ""
persistKeys:
  - theme
storage:
  driver: s3
  s3:
    bucket: app-state
    region: us-east-1
    pathStyle: true
devtools:
  enabled: true
  addr: ":9000"
`
	if err := os.WriteFile(filepath.Join(tmpDir, YAMLConfigFileName), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.PersistPrefix != "" {
		t.Errorf("PersistPrefix = %q, want empty", cfg.PersistPrefix)
	}
	if cfg.Storage.S3.Bucket != "app-state" || !cfg.Storage.S3.PathStyle {
		t.Errorf("Storage.S3 = %+v", cfg.Storage.S3)
	}
	if !cfg.Devtools.Enabled {
		t.Error("Devtools.Enabled should be true")
	}
	if got := cfg.DevtoolsURL(); got != "http://localhost:9000" {
		t.Errorf("DevtoolsURL = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadPrefersJSON(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(`{"namespace":"from-json"}`), 0644)
	os.WriteFile(filepath.Join(tmpDir, YAMLConfigFileName), []byte("namespace: from-yaml\n"), 0644)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Namespace != "from-json" {
		t.Errorf("Namespace = %q, want from-json", cfg.Namespace)
	}
}

func TestLoadInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	os.WriteFile(path, []byte("{not json"), 0644)

	_, err := LoadFile(path)
	if errors.CodeOf(err) != errors.ConfigInvalid {
		t.Fatalf("code = %q, want %q", errors.CodeOf(err), errors.ConfigInvalid)
	}
	if !strings.Contains(err.(*errors.Error).Detail, ConfigFileName) {
		t.Errorf("detail should name the file: %q", err.(*errors.Error).Detail)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := New()
			cfg.Name = "saved"
			cfg.Storage.Driver = DriverSQL
			cfg.Storage.SQL.DSN = "file:state.db"
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.Name != "saved" {
				t.Errorf("Name = %q, want saved", loaded.Name)
			}
			if loaded.Storage.SQL.Driver != "sqlite3" || loaded.Storage.SQL.Table != DefaultSQLTable {
				t.Errorf("SQL defaults not applied: %+v", loaded.Storage.SQL)
			}
			if loaded.Path() != path {
				t.Errorf("Path = %q, want %q", loaded.Path(), path)
			}

			loaded.Name = "changed"
			if err := loaded.Save(); err != nil {
				t.Fatalf("Save: %v", err)
			}
		})
	}

	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad debounce", func(c *Config) { c.Debounce = "soon" }, true},
		{"negative debounce", func(c *Config) { c.Debounce = "-1s" }, true},
		{"empty namespace", func(c *Config) { c.Namespace = "" }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "floppy" }, true},
		{"dir without dir", func(c *Config) { c.Storage.Driver = DriverDir }, true},
		{"s3 without bucket", func(c *Config) {
			c.Storage.Driver = DriverS3
			c.Storage.S3.Region = "us-east-1"
		}, true},
		{"s3 without region", func(c *Config) {
			c.Storage.Driver = DriverS3
			c.Storage.S3.Bucket = "b"
		}, true},
		{"sql without dsn", func(c *Config) {
			c.Storage.Driver = DriverSQL
			c.Storage.SQL.Driver = "sqlite3"
		}, true},
		{"sql bad dialect", func(c *Config) {
			c.Storage.Driver = DriverSQL
			c.Storage.SQL.DSN = "x"
			c.Storage.SQL.Driver = "oracle"
		}, true},
		{"sql postgres", func(c *Config) {
			c.Storage.Driver = DriverSQL
			c.Storage.SQL.DSN = "postgres://localhost/app"
			c.Storage.SQL.Driver = "pgx"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLDialect(t *testing.T) {
	cfg := New()
	cfg.Storage.SQL.Driver = "sqlite3"
	if d, err := cfg.SQLDialect(); err != nil || d != storage.DialectSQLite {
		t.Errorf("SQLDialect = %v, %v", d, err)
	}

	cfg.Storage.SQL.Dialect = "mysql"
	if d, _ := cfg.SQLDialect(); d != storage.DialectMySQL {
		t.Errorf("explicit dialect should win, got %v", d)
	}
}

func TestDebounceDurationFallback(t *testing.T) {
	cfg := New()
	cfg.Debounce = "later"
	if cfg.DebounceDuration() != store.DefaultDebounce {
		t.Errorf("DebounceDuration = %v, want %v", cfg.DebounceDuration(), store.DefaultDebounce)
	}
}

func TestStoreOptions(t *testing.T) {
	cfg := New()
	cfg.Name = "from-config"
	cfg.PersistKeys = []string{"cart"}

	s, err := store.New(cfg.StoreOptions()...)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close(context.Background())
	if s.Name() != "from-config" {
		t.Errorf("Name = %q, want from-config", s.Name())
	}

	cfg.Storage.Driver = DriverMemory
	if _, err := store.New(cfg.StoreOptions()...); errors.CodeOf(err) != errors.StorageAdapterMissing {
		t.Errorf("persistence without adapter: err = %v", err)
	}
}

func TestDevtoolsURL(t *testing.T) {
	tests := map[string]string{
		"localhost:7777":         "http://localhost:7777",
		":8080":                  "http://localhost:8080",
		"http://inspector:1234/": "http://inspector:1234",
		"https://inspector:1234": "https://inspector:1234",
	}
	for addr, want := range tests {
		cfg := New()
		cfg.Devtools.Addr = addr
		if got := cfg.DevtoolsURL(); got != want {
			t.Errorf("DevtoolsURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(root, YAMLConfigFileName), []byte("namespace: x\n"), 0644)

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot: %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindProjectRoot = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists mismatch")
	}
}
