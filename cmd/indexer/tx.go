package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/TokenIndexor/internal/common"
	"github.com/goran-ethernal/TokenIndexor/internal/rpc"
	"github.com/spf13/cobra"
)

var rawTx string

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Submit transactions through the gateway",
}

var txSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a signed raw transaction and wait for its receipt",
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, err := hexutil.Decode(rawTx)
		if err != nil {
			return fmt.Errorf("--raw: %w", err)
		}

		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("decode transaction: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		client, err := rpc.NewClient(cmd.Context(), cfg.Chain, componentLogger(cfg, common.ComponentGateway))
		if err != nil {
			return fmt.Errorf("failed to create RPC client: %w", err)
		}
		defer client.Close()

		hash, receipt, err := client.SendTransactionAndWait(cmd.Context(), tx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "tx %s mined in block %d, status %d, gas used %d\n",
			hash.Hex(), receipt.BlockNumber.Uint64(), receipt.Status, receipt.GasUsed)
		return nil
	},
}

func init() {
	txSendCmd.Flags().StringVar(&rawTx, "raw", "", "signed transaction, 0x prefixed RLP/typed envelope")
	_ = txSendCmd.MarkFlagRequired("raw")

	txCmd.AddCommand(txSendCmd)
}
