package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goran-ethernal/TokenIndexor/internal/common"
	pkgconfig "github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "INDEXER"

	keySyncInterval    = "sync_interval"
	keyBlockLotMaxSize = "block_lot_max_size"
	keyRPCURLs         = "rpc_urls"
	keyChainID         = "chain_id"
	keyDatabaseURL     = "database_url"
	keyDBPath          = "db_path"
	keyLogLevel        = "log_level"
	keyKeyDir          = "personal_info_key_dir"
	keyFeeds           = "feeds"
)

var envKeys = []string{
	keySyncInterval,
	keyBlockLotMaxSize,
	keyRPCURLs,
	keyChainID,
	keyDatabaseURL,
	keyDBPath,
	keyLogLevel,
	keyKeyDir,
	keyFeeds,
}

// LoadDotEnv loads variables from path (".env" when empty) into the process
// environment. A missing file is not an error; variables already set win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any INDEXER_* variables present in the environment.
func ApplyEnv(cfg *pkgconfig.Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if v.IsSet(keySyncInterval) {
		d, err := common.ParseSecondsOrDuration(v.GetString(keySyncInterval))
		if err != nil {
			return fmt.Errorf("%s_SYNC_INTERVAL: %w", envPrefix, err)
		}
		cfg.Indexer.SyncInterval = common.NewDuration(d)
	}

	if v.IsSet(keyBlockLotMaxSize) {
		raw := v.GetString(keyBlockLotMaxSize)
		n, err := common.ParseUint64orHex(&raw)
		if err != nil || n == 0 {
			return fmt.Errorf("%s_BLOCK_LOT_MAX_SIZE: expected a positive integer, got %q", envPrefix, raw)
		}
		cfg.Indexer.BlockLotMaxSize = n
	}

	if v.IsSet(keyRPCURLs) {
		cfg.Chain.RPCURLs = splitList(v.GetString(keyRPCURLs))
	}

	if v.IsSet(keyChainID) {
		raw := v.GetString(keyChainID)
		id, err := common.ParseUint64orHex(&raw)
		if err != nil {
			return fmt.Errorf("%s_CHAIN_ID: %w", envPrefix, err)
		}
		cfg.Chain.ChainID = id
	}

	if v.IsSet(keyDatabaseURL) {
		cfg.DB.Driver = pkgconfig.DriverPostgres
		cfg.DB.DSN = v.GetString(keyDatabaseURL)
	}

	if v.IsSet(keyDBPath) {
		cfg.DB.Path = v.GetString(keyDBPath)
	}

	if v.IsSet(keyLogLevel) {
		if cfg.Logging == nil {
			cfg.Logging = &pkgconfig.LoggingConfig{}
		}
		cfg.Logging.DefaultLevel = v.GetString(keyLogLevel)
	}

	if v.IsSet(keyKeyDir) {
		cfg.PersonalInfo.KeyDir = v.GetString(keyKeyDir)
	}

	if v.IsSet(keyFeeds) {
		cfg.Indexer.Feeds = splitList(v.GetString(keyFeeds))
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
