package main

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-did-registry-sdk/config"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/log"
)

// ledgerClient is what the commands need from the ledger.
type ledgerClient interface {
	ledger.Client
	SubmitTransaction(ctx context.Context, txHex string) (common.Hash, error)
	Close()
}

// dialLedger connects to the configured node. Tests replace it.
var dialLedger = func(ctx context.Context, cfg *config.Config) (ledgerClient, error) {
	lc, err := cfg.Ledger()
	if err != nil {
		return nil, err
	}
	return ledger.Dial(ctx, lc)
}

type rootOptions struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vdr",
		Short: "Build and resolve DID registry transactions.",
		Long: `vdr builds unsigned DID registry transactions, resolves DID documents
and decodes raw registry results.

Settings are read from --config, then VDR_* environment variables, then flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log.InitConfig(cfg.Log)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().String("rpc-url", "", "ledger node RPC endpoint")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newBuildCmd(opts),
		newResolveCmd(opts),
		newParseCmd(opts),
		newSubmitCmd(opts),
	)
	return cmd
}

// withClient dials the ledger for the duration of fn.
func (o *rootOptions) withClient(ctx context.Context, fn func(client ledgerClient) error) error {
	client, err := dialLedger(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
