package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgconfig "github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

const jsonConfig = `{
  "chain": {"rpc_urls": ["https://node-a.example:8545"], "chain_id": 2017},
  "db": {"path": "indexer.db"},
  "indexer": {"sync_interval": "5s", "block_lot_max_size": 5000}
}`

const tomlConfig = `
[chain]
rpc_urls = ["ws://node-b.example:8546"]

[db]
driver = "postgres"
dsn = "postgres://indexer@localhost/indexer"

[indexer]
sync_interval = "1m"
feeds = ["Transfer", " delivery "]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Example(t *testing.T) {
	cfg, err := Load("../../config.example.yaml")
	require.NoError(t, err)

	require.Len(t, cfg.Chain.RPCURLs, 2)
	require.Equal(t, uint64(2017), cfg.Chain.ChainID)
	require.Equal(t, 10*time.Second, cfg.Chain.TxReceiptTimeout.Duration)
	require.Equal(t, pkgconfig.DriverSQLite, cfg.DB.Driver)
	require.Equal(t, uint64(1_000_000), cfg.Indexer.BlockLotMaxSize)
	require.Len(t, cfg.Indexer.Feeds, 5)
	require.Equal(t, "debug", cfg.Logging.GetComponentLevel("orchestrator"))
	require.Equal(t, "info", cfg.Logging.GetComponentLevel("scanner"))
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, "TRUNCATE", cfg.Maintenance.WALCheckpointMode)
}

func TestLoad_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "c.json", jsonConfig))
		require.NoError(t, err)
		require.Equal(t, 5*time.Second, cfg.Indexer.SyncInterval.Duration)
		require.Equal(t, uint64(5000), cfg.Indexer.BlockLotMaxSize)
		require.Equal(t, "WAL", cfg.DB.JournalMode)
		require.NotNil(t, cfg.Logging)
	})

	t.Run("toml", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "c.toml", tomlConfig))
		require.NoError(t, err)
		require.Equal(t, pkgconfig.DriverPostgres, cfg.DB.Driver)
		require.Equal(t, time.Minute, cfg.Indexer.SyncInterval.Duration)
		require.Equal(t, []string{"transfer", "delivery"}, cfg.Indexer.Feeds)
		require.Equal(t, uint64(pkgconfig.DefaultBlockLotMaxSize), cfg.Indexer.BlockLotMaxSize)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.ini", "x=1"))
		require.ErrorContains(t, err, "unsupported config file format")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := Load(writeFile(t, "c.json", `{"db": {"path": "x.db"}}`))
		require.ErrorContains(t, err, "chain.rpc_urls")
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("INDEXER_SYNC_INTERVAL", "3")
	t.Setenv("INDEXER_BLOCK_LOT_MAX_SIZE", "250000")
	t.Setenv("INDEXER_RPC_URLS", "http://a:8545, http://b:8545")
	t.Setenv("INDEXER_CHAIN_ID", "0x7e1")
	t.Setenv("INDEXER_LOG_LEVEL", "debug")

	cfg, err := Load(writeFile(t, "c.json", jsonConfig))
	require.NoError(t, err)

	require.Equal(t, 3*time.Second, cfg.Indexer.SyncInterval.Duration)
	require.Equal(t, uint64(250000), cfg.Indexer.BlockLotMaxSize)
	require.Equal(t, []string{"http://a:8545", "http://b:8545"}, cfg.Chain.RPCURLs)
	require.Equal(t, uint64(2017), cfg.Chain.ChainID)
	require.Equal(t, "debug", cfg.Logging.GetDefaultLevel())
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"INDEXER_SYNC_INTERVAL", "often"},
		{"INDEXER_BLOCK_LOT_MAX_SIZE", "0"},
		{"INDEXER_BLOCK_LOT_MAX_SIZE", "lots"},
		{"INDEXER_CHAIN_ID", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			require.Error(t, ApplyEnv(&pkgconfig.Config{}))
		})
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("INDEXER_RPC_URLS=http://dotenv:8545\n"), 0o600))
	t.Setenv("INDEXER_DATABASE_URL", "postgres://u@h/db")
	t.Cleanup(func() { os.Unsetenv("INDEXER_RPC_URLS") })

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"http://dotenv:8545"}, cfg.Chain.RPCURLs)
	require.Equal(t, pkgconfig.DriverPostgres, cfg.DB.Driver)
	require.Equal(t, "postgres://u@h/db", cfg.DB.DSN)
}
