package config

import (
	"testing"
	"time"

	"github.com/goran-ethernal/TokenIndexor/internal/types"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		Chain: ChainConfig{RPCURLs: []string{"http://localhost:8545"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := validConfig()

	require.Equal(t, DefaultSyncInterval, cfg.Indexer.SyncInterval.Duration)
	require.Equal(t, uint64(DefaultBlockLotMaxSize), cfg.Indexer.BlockLotMaxSize)
	require.Equal(t, types.HeadPolicy{Finality: types.FinalityLatest}, cfg.Indexer.HeadPolicy())
	require.Equal(t, DefaultReceiptTimeout, cfg.Chain.TxReceiptTimeout.Duration)
	require.Equal(t, 3, cfg.Chain.Retry.MaxAttempts)
	require.Equal(t, DriverSQLite, cfg.DB.Driver)
	require.Equal(t, "indexer.db", cfg.DB.Path)
	require.NotNil(t, cfg.Logging)
	require.Equal(t, "info", cfg.Logging.GetDefaultLevel())
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "no endpoints",
			mutate:  func(c *Config) { c.Chain.RPCURLs = nil },
			wantErr: "chain.rpc_urls",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.Chain.RPCURLs = []string{"ftp://node"} },
			wantErr: "unsupported scheme",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.DB.Driver = "mysql" },
			wantErr: "db.driver",
		},
		{
			name: "postgres without dsn",
			mutate: func(c *Config) {
				c.DB.Driver = DriverPostgres
			},
			wantErr: "db.dsn",
		},
		{
			name:    "bad journal mode",
			mutate:  func(c *Config) { c.DB.JournalMode = "FAST" },
			wantErr: "db.journal_mode",
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.Indexer.SyncInterval.Duration = -time.Second },
			wantErr: "indexer.sync_interval",
		},
		{
			name:    "zero span",
			mutate:  func(c *Config) { c.Indexer.BlockLotMaxSize = 0 },
			wantErr: "indexer.block_lot_max_size",
		},
		{
			name:    "bad finality",
			mutate:  func(c *Config) { c.Indexer.Finality = "pending" },
			wantErr: "indexer.finality",
		},
		{
			name:    "unknown log component",
			mutate:  func(c *Config) { c.Logging.ComponentLevels["downloader"] = "debug" },
			wantErr: "unknown component",
		},
		{
			name:    "bad component level",
			mutate:  func(c *Config) { c.Logging.ComponentLevels["scanner"] = "trace" },
			wantErr: "component_levels[scanner]",
		},
		{
			name: "bad checkpoint mode",
			mutate: func(c *Config) {
				c.Maintenance = &MaintenanceConfig{WALCheckpointMode: "SOMETIMES"}
			},
			wantErr: "wal_checkpoint_mode",
		},
		{
			name: "metrics path",
			mutate: func(c *Config) {
				c.Metrics = &MetricsConfig{Enabled: true, ListenAddress: ":9090", Path: "metrics"}
			},
			wantErr: "path must start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoggingConfig_ComponentLevel(t *testing.T) {
	l := &LoggingConfig{DefaultLevel: " WARN ", ComponentLevels: map[string]string{"delivery": "Debug"}}

	require.Equal(t, "debug", l.GetComponentLevel("delivery"))
	require.Equal(t, "warn", l.GetComponentLevel("transfer"))
	require.Equal(t, "warn", l.GetDefaultLevel())
}
