package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/contract"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	pkgconfig "github.com/goran-ethernal/TokenIndexor/pkg/config"
	pkgindexer "github.com/goran-ethernal/TokenIndexor/pkg/indexer"
	"github.com/spf13/cobra"
)

var (
	resetFeed     string
	resetExchange string
	resetBlock    uint64
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspect or move feed block cursors",
}

var cursorListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the cursor of every feed and stream",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, database, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FEED\tEXCHANGE\tBLOCK")

		for _, name := range pkgindexer.ListRegistered() {
			feed, err := offlineFeed(cfg, database, name)
			if err != nil {
				return err
			}
			cursors, err := feed.Cursors().List(cmd.Context(), database)
			if err != nil {
				return err
			}
			for _, c := range cursors {
				key := "-"
				if !internalcommon.IsZeroAddress(c.Key) {
					key = c.Key.Hex()
				}
				fmt.Fprintf(w, "%s\t%s\t%d\n", name, key, c.Block)
			}
		}

		return w.Flush()
	},
}

var cursorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Set a cursor to a block, replaying everything after it on the next cycle",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, database, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		feed, err := offlineFeed(cfg, database, resetFeed)
		if err != nil {
			return err
		}

		cursors := feed.Cursors()
		key := internalcommon.ZeroAddress
		if cursors.Keyed {
			if !common.IsHexAddress(resetExchange) {
				return fmt.Errorf("feed %s needs --exchange", resetFeed)
			}
			key = common.HexToAddress(resetExchange)
		}

		err = database.InSession(cmd.Context(), nil, func(s *db.Session) error {
			return cursors.Reset(cmd.Context(), s, key, resetBlock)
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s cursor set to %d\n", resetFeed, resetBlock)
		return nil
	},
}

func init() {
	cursorResetCmd.Flags().StringVar(&resetFeed, "feed", "", "feed name")
	cursorResetCmd.Flags().StringVar(&resetExchange, "exchange", "", "exchange address for keyed feeds")
	cursorResetCmd.Flags().Uint64Var(&resetBlock, "block", 0, "last block considered indexed")
	_ = cursorResetCmd.MarkFlagRequired("feed")

	cursorCmd.AddCommand(cursorListCmd, cursorResetCmd)
}

func openStore(cmd *cobra.Command) (*pkgconfig.Config, *db.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	database, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	return cfg, database, nil
}

// offlineFeed builds a feed without a gateway, for cursor access only.
func offlineFeed(cfg *pkgconfig.Config, database *db.DB, name string) (pkgindexer.Feed, error) {
	return pkgindexer.Create(name, pkgindexer.Deps{
		Registry:  contract.NewRegistry(),
		DB:        database,
		Log:       logger.NewComponentLoggerFromConfig(internalcommon.ComponentStore, cfg.Logging),
		NewLogger: func(component string) *logger.Logger {
			return componentLogger(cfg, component)
		},
	})
}
