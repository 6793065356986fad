package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/store"
	"github.com/goran-ethernal/TokenIndexor/internal/watchset"
	"github.com/spf13/cobra"
)

var (
	tokenIssuer string
	tokenType   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Maintain the list of tokens to index",
}

var tokenAddCmd = &cobra.Command{
	Use:   "add <token address>",
	Short: "Register or reactivate a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		issuer, err := parseAddress(tokenIssuer)
		if err != nil {
			return fmt.Errorf("--issuer: %w", err)
		}
		name, ok := watchset.ContractName(tokenType)
		if !ok {
			return fmt.Errorf("unknown token type %q", tokenType)
		}

		_, database, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		err = database.InSession(cmd.Context(), nil, func(s *db.Session) error {
			return store.Tokens{}.Upsert(cmd.Context(), s, store.Token{
				TokenAddress:  addr,
				IssuerAddress: issuer,
				TokenType:     name,
				TokenStatus:   store.TokenStatusActive,
			})
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "token %s (%s) active\n", addr.Hex(), name)
		return nil
	},
}

var tokenDeactivateCmd = &cobra.Command{
	Use:   "deactivate <token address>",
	Short: "Stop adding a token to newly built watch sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		_, database, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		var found bool
		err = database.InSession(cmd.Context(), nil, func(s *db.Session) error {
			found, err = store.Tokens{}.SetStatus(cmd.Context(), s, addr, store.TokenStatusInactive)
			return err
		})
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("token %s is not registered", addr.Hex())
		}

		fmt.Fprintf(cmd.OutOrStdout(), "token %s deactivated\n", addr.Hex())
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print registered tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, database, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		tokens, err := store.Tokens{}.All(cmd.Context(), database)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOKEN\tISSUER\tTYPE\tACTIVE")
		for _, t := range tokens {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", t.TokenAddress.Hex(), t.IssuerAddress.Hex(), t.TokenType,
				t.TokenStatus == store.TokenStatusActive)
		}
		return w.Flush()
	},
}

func init() {
	tokenAddCmd.Flags().StringVar(&tokenIssuer, "issuer", "", "issuer address")
	tokenAddCmd.Flags().StringVar(&tokenType, "type", "share", "token type: bond or share")
	_ = tokenAddCmd.MarkFlagRequired("issuer")

	tokenCmd.AddCommand(tokenAddCmd, tokenDeactivateCmd, tokenListCmd)
}

func parseAddress(s string) (common.Address, error) {
	addr, ok := internalcommon.ParseAddress(s)
	if !ok {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}
