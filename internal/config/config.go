package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/fusion/internal/errors"
	"github.com/vango-dev/fusion/pkg/storage"
	"github.com/vango-dev/fusion/pkg/store"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "fusion.json"

	// YAMLConfigFileName is the name of the YAML configuration file. It is
	// used when no fusion.json exists.
	YAMLConfigFileName = "fusion.yaml"

	// DefaultDebounce is the default write-back delay.
	DefaultDebounce = "100ms"

	// DefaultDevtoolsAddr is the default devtools bridge address.
	DefaultDevtoolsAddr = "localhost:7777"

	// DefaultSQLTable is the default table for the sql driver.
	DefaultSQLTable = "fusion_state"
)

// Storage drivers.
const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverDir    = "dir"
	DriverS3     = "s3"
	DriverSQL    = "sql"
)

// Config represents fusion.json.
type Config struct {
	// Name is the store name shown in devtools.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Namespace is the adapter key the persisted record is stored under.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`

	// PersistPrefix marks keys as persisted by name prefix.
	PersistPrefix string `json:"persistPrefix,omitempty" yaml:"persistPrefix,omitempty"`

	// PersistKeys marks keys as persisted by exact name.
	PersistKeys []string `json:"persistKeys,omitempty" yaml:"persistKeys,omitempty"`

	// Debounce is the write-back delay (e.g., "250ms").
	Debounce string `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// Storage selects and configures the storage adapter.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	// Devtools configures the inspection bridge.
	Devtools DevtoolsConfig `json:"devtools,omitempty" yaml:"devtools,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StorageConfig selects the storage adapter.
type StorageConfig struct {
	// Driver is one of none, memory, dir, s3 or sql.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// Dir is the directory used by the dir driver.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// S3 configures the s3 driver.
	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`

	// SQL configures the sql driver.
	SQL SQLConfig `json:"sql,omitempty" yaml:"sql,omitempty"`
}

// S3Config configures the s3 driver. Credentials come from the
// environment (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN).
type S3Config struct {
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the service endpoint, for S3-compatible stores.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// PathStyle forces path-style addressing.
	PathStyle bool `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// SQLConfig configures the sql driver.
type SQLConfig struct {
	// Driver is the database/sql driver name (default: "sqlite3").
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`

	// DSN is the data source name passed to sql.Open.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// Table is the table name (default: "fusion_state").
	Table string `json:"table,omitempty" yaml:"table,omitempty"`

	// Dialect overrides the dialect derived from Driver.
	Dialect string `json:"dialect,omitempty" yaml:"dialect,omitempty"`
}

// DevtoolsConfig configures the inspection bridge.
type DevtoolsConfig struct {
	// Enabled registers the store with devtools.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Addr is where the bridge listens and where the CLI connects.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Namespace:     store.DefaultNamespace,
		PersistPrefix: store.DefaultPersistPrefix,
		Debounce:      DefaultDebounce,
		Storage: StorageConfig{
			Driver: DriverNone,
		},
		Devtools: DevtoolsConfig{
			Addr: DefaultDevtoolsAddr,
		},
	}
}

// Load reads configuration from dir. It looks for fusion.json, then
// fusion.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.ConfigNotFound).
		WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " found in " + dir)
}

// LoadFile reads configuration from path. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ConfigNotFound).
				WithDetail("No config file at " + path)
		}
		return nil, errors.New(errors.ConfigInvalid).Wrap(err)
	}

	cfg := New()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New(errors.ConfigInvalid).WithDetail("no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, as YAML or JSON by extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New(errors.ConfigInvalid).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.ConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Namespace == "" {
		c.Namespace = store.DefaultNamespace
	}
	if c.Debounce == "" {
		c.Debounce = DefaultDebounce
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverNone
	}
	if c.Storage.Driver == DriverSQL {
		if c.Storage.SQL.Driver == "" {
			c.Storage.SQL.Driver = "sqlite3"
		}
		if c.Storage.SQL.Table == "" {
			c.Storage.SQL.Table = DefaultSQLTable
		}
	}
	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultDevtoolsAddr
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return errors.New(errors.ConfigInvalid).WithDetail("namespace must not be empty")
	}
	if d, err := time.ParseDuration(c.Debounce); err != nil || d < 0 {
		return errors.New(errors.ConfigInvalid).
			WithDetail("debounce must be a non-negative duration such as \"100ms\", got " + quote(c.Debounce))
	}

	switch c.Storage.Driver {
	case DriverNone, DriverMemory:
	case DriverDir:
		if c.Storage.Dir == "" {
			return errors.New(errors.ConfigInvalid).WithDetail("storage.dir is required for the dir driver")
		}
	case DriverS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New(errors.ConfigInvalid).WithDetail("storage.s3.bucket is required for the s3 driver")
		}
		if c.Storage.S3.Region == "" {
			return errors.New(errors.ConfigInvalid).WithDetail("storage.s3.region is required for the s3 driver")
		}
	case DriverSQL:
		if c.Storage.SQL.DSN == "" {
			return errors.New(errors.ConfigInvalid).WithDetail("storage.sql.dsn is required for the sql driver")
		}
		if _, err := c.SQLDialect(); err != nil {
			return errors.New(errors.ConfigInvalid).Wrap(err)
		}
	default:
		return errors.New(errors.ConfigInvalid).
			WithDetail("unknown storage driver " + quote(c.Storage.Driver))
	}
	return nil
}

// DebounceDuration returns Debounce parsed, or the store default if it
// does not parse.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Debounce)
	if err != nil || d < 0 {
		return store.DefaultDebounce
	}
	return d
}

// StorageDir returns the absolute path of the dir driver's directory.
func (c *Config) StorageDir() string {
	if filepath.IsAbs(c.Storage.Dir) {
		return c.Storage.Dir
	}
	return filepath.Join(c.Dir(), c.Storage.Dir)
}

// SQLDialect returns the dialect for the sql driver.
func (c *Config) SQLDialect() (storage.SQLDialect, error) {
	name := c.Storage.SQL.Dialect
	if name == "" {
		name = c.Storage.SQL.Driver
	}
	return storage.ParseDialect(name)
}

// PersistenceEnabled reports whether a storage driver is configured.
func (c *Config) PersistenceEnabled() bool {
	return c.Storage.Driver != "" && c.Storage.Driver != DriverNone
}

// StoreOptions returns the store options described by the configuration.
// The adapter is not included; callers build it for the driver.
func (c *Config) StoreOptions() []store.Option {
	opts := []store.Option{
		store.WithNamespace(c.Namespace),
		store.WithPersistPrefix(c.PersistPrefix),
		store.WithDebounce(c.DebounceDuration()),
	}
	if c.Name != "" {
		opts = append(opts, store.WithName(c.Name))
	}
	if len(c.PersistKeys) > 0 {
		opts = append(opts, store.WithPersistKeys(c.PersistKeys...))
	}
	if c.PersistenceEnabled() {
		opts = append(opts, store.WithPersistence())
	}
	if c.Devtools.Enabled {
		opts = append(opts, store.WithDevtools())
	}
	return opts
}

// DevtoolsURL returns the base HTTP URL of the devtools bridge.
func (c *Config) DevtoolsURL() string {
	addr := c.Devtools.Addr
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.ConfigNotFound).
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

func quote(s string) string {
	return "\"" + s + "\""
}
