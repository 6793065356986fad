package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/config"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/indexer"
	"github.com/goran-ethernal/TokenIndexor/internal/keystore"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/metrics"
	"github.com/goran-ethernal/TokenIndexor/internal/migrations"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
	pkgconfig "github.com/goran-ethernal/TokenIndexor/pkg/config"
	pkgindexer "github.com/goran-ethernal/TokenIndexor/pkg/indexer"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	// Register the built-in feeds
	_ "github.com/goran-ethernal/TokenIndexor/internal/feeds/delivery"
	_ "github.com/goran-ethernal/TokenIndexor/internal/feeds/issueredeem"
	_ "github.com/goran-ethernal/TokenIndexor/internal/feeds/personalinfo"
	_ "github.com/goran-ethernal/TokenIndexor/internal/feeds/transfer"
	_ "github.com/goran-ethernal/TokenIndexor/internal/feeds/transferapproval"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║           TokenIndexor v%s             ║
║    Security Token Event Indexing Engine   ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
	feedNames  []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "TokenIndexor - security token event indexer",
	Long: `TokenIndexor follows security token contracts and their exchanges,
and keeps deliveries, transfers, issue/redeem history, transfer approvals and
holder personal info in a relational store.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runIndexer,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync loops",
	RunE:  runIndexer,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available feeds",
	Long:  `List all registered feeds that can be enabled in indexer.feeds or with --feeds.`,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available feeds:")
		names := pkgindexer.ListRegistered()
		if len(names) == 0 {
			fmt.Fprintln(out, "  (no feeds registered)")
			return
		}
		for _, n := range names {
			fmt.Fprintf(out, "  - %s\n", n)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringSliceVar(&feedNames, "feeds", nil, "feeds to run (default: indexer.feeds, then all)")
	}

	rootCmd.AddCommand(runCmd, listCmd, schemaCmd, cursorCmd, tokenCmd, txCmd)
}

// loadConfig reads the --config file. A missing default file means
// environment-only configuration; a missing explicit one is an error.
func loadConfig(cmd *cobra.Command) (*pkgconfig.Config, error) {
	path := configPath
	if _, err := os.Stat(path); os.IsNotExist(err) && !cmd.Flags().Changed("config") {
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openDB connects to the configured store and brings its schema up to date.
func openDB(cfg *pkgconfig.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrations.RunMigrations(componentLogger(cfg, common.ComponentStore), database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

func componentLogger(cfg *pkgconfig.Config, component string) *logger.Logger {
	return logger.NewComponentLoggerFromConfig(component, cfg.Logging)
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	fmt.Printf(banner, version)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := componentLogger(cfg, common.ComponentCoordinator)
	logger.SetDefaultLogger(log)

	log.Infof("Connecting to %s...", strings.Join(cfg.Chain.RPCURLs, ", "))
	client, err := rpc.NewClient(ctx, cfg.Chain, componentLogger(cfg, common.ComponentGateway))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer client.Close()

	if err := client.VerifyChainID(ctx); err != nil {
		return err
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	maintenance := db.NewMaintenance(database, cfg.DB, cfg.Maintenance, componentLogger(cfg, common.ComponentMaintenance))

	metricsServer := metrics.NewServer(cfg.Metrics, log)
	if err := metricsServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer func() {
		if err := metricsServer.Stop(context.Background()); err != nil {
			log.Warnf("Failed to stop metrics server: %v", err)
		}
	}()

	newLog := func(component string) *logger.Logger { return componentLogger(cfg, component) }
	deps := pkgindexer.Deps{
		Gateway:   client,
		Registry:  contract.NewRegistry(),
		DB:        database,
		Keys:      keystore.New(cfg.PersonalInfo.KeyDir, cfg.PersonalInfo.Passphrase),
		Log:       log,
		NewLogger: newLog,
	}

	coordinator, err := indexer.Build(cfg.Indexer, deps, feedNames, newLog)
	if err != nil {
		return err
	}

	log.Infof("Starting feeds %v, interval %s, block lot max size %d",
		coordinator.Feeds(), cfg.Indexer.SyncInterval, cfg.Indexer.BlockLotMaxSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coordinator.Run(ctx) })
	if maintenance != nil {
		g.Go(func() error { return maintenance.Run(ctx) })
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("TokenIndexor stopped successfully")
	return nil
}
