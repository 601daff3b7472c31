package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/pilacorp/go-did-registry-sdk/contracts/didregistry"
	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/log"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve DID",
		Short: "Resolve a DID document from the registry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := did.ParseDID(args[0])
			if err != nil {
				return err
			}
			return opts.withClient(cmd.Context(), func(client ledgerClient) error {
				doc, err := didregistry.ResolveDid(cmd.Context(), client, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			})
		},
	}
}

func newParseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse HEX",
		Short: "Decode the raw result of a resolve call.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHex(args[0])
			if err != nil {
				return err
			}
			return opts.withClient(cmd.Context(), func(client ledgerClient) error {
				doc, err := didregistry.ParseResolveDidResult(client, data)
				if err != nil {
					return err
				}
				return printJSON(cmd, doc)
			})
		},
	}
}

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "submit TXHEX",
		Short: "Submit a signed raw transaction.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd.Context(), func(client ledgerClient) error {
				hash, err := client.SubmitTransaction(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				log.L(cmd.Context()).Infof("Submitted %s", hash.Hex())
				return printJSON(cmd, map[string]string{"txHash": hash.Hex()})
			})
		},
	}
}

func decodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
