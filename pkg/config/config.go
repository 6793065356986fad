package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/types"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	DefaultSyncInterval    = 10 * time.Second
	DefaultBlockLotMaxSize = 1_000_000
	DefaultReceiptTimeout  = 10 * time.Second
)

// Config represents the complete configuration for the TokenIndexor.
type Config struct {
	// Chain contains the chain access gateway configuration
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// DB contains the database shared by all feeds
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Indexer contains the sync loop configuration
	Indexer IndexerConfig `yaml:"indexer" json:"indexer" toml:"indexer"`

	// PersonalInfo contains the issuer key configuration for the personal-info feed
	PersonalInfo PersonalInfoConfig `yaml:"personal_info" json:"personal_info" toml:"personal_info"`

	// Maintenance contains optional sqlite maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ChainConfig configures how the gateway reaches chain nodes.
type ChainConfig struct {
	// RPCURLs are the node endpoints, tried in order with failover
	RPCURLs []string `yaml:"rpc_urls" json:"rpc_urls" toml:"rpc_urls"`

	// ChainID is the expected chain id; 0 skips the check
	ChainID uint64 `yaml:"chain_id" json:"chain_id" toml:"chain_id"`

	// TxReceiptTimeout bounds the wait for a submitted transaction's receipt
	TxReceiptTimeout common.Duration `yaml:"tx_receipt_timeout" json:"tx_receipt_timeout" toml:"tx_receipt_timeout"`

	// HeaderCacheSize is the number of block headers kept for timestamp lookups
	HeaderCacheSize int `yaml:"header_cache_size" json:"header_cache_size" toml:"header_cache_size"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.TxReceiptTimeout.Duration == 0 {
		c.TxReceiptTimeout = common.NewDuration(DefaultReceiptTimeout)
	}
	if c.HeaderCacheSize == 0 {
		c.HeaderCacheSize = 4096
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.ApplyDefaults()
}

// Validate checks the endpoint list.
func (c *ChainConfig) Validate() error {
	if len(c.RPCURLs) == 0 {
		return fmt.Errorf("chain.rpc_urls: at least one endpoint is required")
	}

	for i, raw := range c.RPCURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("chain.rpc_urls[%d]: %w", i, err)
		}
		if !slices.Contains([]string{"http", "https", "ws", "wss"}, u.Scheme) {
			return fmt.Errorf("chain.rpc_urls[%d]: unsupported scheme %q", i, u.Scheme)
		}
	}

	if c.HeaderCacheSize < 0 {
		return fmt.Errorf("chain.header_cache_size must not be negative")
	}

	return nil
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per endpoint (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(500 * time.Millisecond) //nolint:mnd
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(10 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Driver selects the backend: "sqlite3" (default) or "postgres"
	Driver string `yaml:"driver" json:"driver" toml:"driver"`

	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// DSN is the postgres connection string
	DSN string `yaml:"dsn" json:"dsn" toml:"dsn"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the SQLite synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.Driver == "" {
		d.Driver = DriverSQLite
	}
	if d.Driver == DriverSQLite && d.Path == "" {
		d.Path = "indexer.db"
	}
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 10
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks driver specific settings.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("db.path is required for sqlite3")
		}
		if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
			return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
		}
		if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
			return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
		}
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("db.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("db.driver must be one of: %s, %s", DriverSQLite, DriverPostgres)
	}

	return nil
}

// IndexerConfig configures the sync loop shared by all feeds.
type IndexerConfig struct {
	// SyncInterval is the sleep between two cycles of a feed
	SyncInterval common.Duration `yaml:"sync_interval" json:"sync_interval" toml:"sync_interval"`

	// BlockLotMaxSize is the largest block span scanned in a single log query
	BlockLotMaxSize uint64 `yaml:"block_lot_max_size" json:"block_lot_max_size" toml:"block_lot_max_size"`

	// Feeds restricts which feeds run; empty runs every registered feed
	Feeds []string `yaml:"feeds,omitempty" json:"feeds,omitempty" toml:"feeds,omitempty"`

	// Finality is the block tag treated as the head: latest, safe or finalized
	Finality types.BlockFinality `yaml:"finality,omitempty" json:"finality,omitempty" toml:"finality,omitempty"`

	// Confirmations is subtracted from the tagged head before syncing
	Confirmations uint64 `yaml:"confirmations,omitempty" json:"confirmations,omitempty" toml:"confirmations,omitempty"`
}

// HeadPolicy returns the head selection of the loop.
func (i *IndexerConfig) HeadPolicy() types.HeadPolicy {
	return types.HeadPolicy{Finality: i.Finality, Confirmations: i.Confirmations}
}

// ApplyDefaults sets default values for optional indexer configuration fields.
func (i *IndexerConfig) ApplyDefaults() {
	if i.SyncInterval.Duration == 0 {
		i.SyncInterval = common.NewDuration(DefaultSyncInterval)
	}
	if i.BlockLotMaxSize == 0 {
		i.BlockLotMaxSize = DefaultBlockLotMaxSize
	}
	if i.Finality == "" {
		i.Finality = types.FinalityLatest
	}
	for n, feed := range i.Feeds {
		i.Feeds[n] = common.ToLowerWithTrim(feed)
	}
}

// Validate checks the loop settings.
func (i *IndexerConfig) Validate() error {
	if i.SyncInterval.Duration < 0 {
		return fmt.Errorf("indexer.sync_interval must not be negative")
	}
	if i.BlockLotMaxSize == 0 {
		return fmt.Errorf("indexer.block_lot_max_size must be positive")
	}
	if _, err := types.ParseBlockFinality(i.Finality.String()); err != nil {
		return fmt.Errorf("indexer.finality: %w", err)
	}
	return nil
}

// PersonalInfoConfig locates issuer private keys.
type PersonalInfoConfig struct {
	// KeyDir holds one PEM encoded RSA private key per issuer, named <issuer address>.pem
	KeyDir string `yaml:"key_dir" json:"key_dir" toml:"key_dir"`

	// Passphrase decrypts legacy encrypted PEM blocks, if any
	Passphrase string `yaml:"passphrase,omitempty" json:"passphrase,omitempty" toml:"passphrase,omitempty"`
}

// MaintenanceConfig configures sqlite maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// WALCheckpointMode is one of PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
	m.WALCheckpointMode = strings.ToUpper(m.WALCheckpointMode)
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if !slices.Contains([]string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}, m.WALCheckpointMode) {
		return fmt.Errorf("maintenance.wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
	}
	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components (see internal/common/components.go)
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
		return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" || m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
// Logging is always populated so component loggers never see a nil config.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.DB.ApplyDefaults()
	c.Indexer.ApplyDefaults()

	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Chain.Validate(); err != nil {
		return err
	}

	if err := c.DB.Validate(); err != nil {
		return err
	}

	if err := c.Indexer.Validate(); err != nil {
		return err
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return err
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
