package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pilacorp/go-did-registry-sdk/contracts/didregistry"
	"github.com/pilacorp/go-did-registry-sdk/did"
	"github.com/pilacorp/go-did-registry-sdk/ledger"
	"github.com/pilacorp/go-did-registry-sdk/log"
	"github.com/pilacorp/go-did-registry-sdk/signer"
)

type buildOptions struct {
	*rootOptions
	from         string
	docFile      string
	privateKey   string
	signerURL    string
	signerAPIKey string
}

func newBuildCmd(root *rootOptions) *cobra.Command {
	opts := &buildOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a registry transaction.",
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Build a transaction registering a DID document.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.buildDocument(cmd, didregistry.BuildCreateDidTransaction)
		},
	}
	update := &cobra.Command{
		Use:   "update",
		Short: "Build a transaction replacing a DID document.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.buildDocument(cmd, didregistry.BuildUpdateDidTransaction)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&opts.docFile, "doc", "", "DID document JSON file")
		_ = c.MarkFlagRequired("doc")
	}

	deactivate := &cobra.Command{
		Use:   "deactivate DID",
		Short: "Build a transaction deactivating a DID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := did.ParseDID(args[0])
			if err != nil {
				return err
			}
			from, err := opts.sender()
			if err != nil {
				return err
			}
			return opts.withClient(cmd.Context(), func(client ledgerClient) error {
				tx, err := didregistry.BuildDeactivateDidTransaction(cmd.Context(), client, from, id)
				if err != nil {
					return err
				}
				return opts.output(cmd, tx)
			})
		},
	}

	resolve := &cobra.Command{
		Use:   "resolve DID",
		Short: "Build a read-only call resolving a DID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := did.ParseDID(args[0])
			if err != nil {
				return err
			}
			return opts.withClient(cmd.Context(), func(client ledgerClient) error {
				tx, err := didregistry.BuildResolveDidTransaction(cmd.Context(), client, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, tx)
			})
		},
	}

	for _, c := range []*cobra.Command{create, update, deactivate} {
		c.Flags().StringVar(&opts.from, "from", "", "sender account address")
		c.Flags().StringVar(&opts.privateKey, "private-key", "", "sign the transaction with this hex private key")
		c.Flags().StringVar(&opts.signerURL, "signer-url", "", "sign the transaction through this remote signing service")
		c.Flags().StringVar(&opts.signerAPIKey, "signer-api-key", "", "API key of the remote signing service")
		_ = c.MarkFlagRequired("from")
	}

	cmd.AddCommand(create, update, deactivate, resolve)
	return cmd
}

type documentBuilder func(ctx context.Context, client ledger.Client, from did.Address, doc *did.Document) (*ledger.Transaction, error)

func (o *buildOptions) buildDocument(cmd *cobra.Command, build documentBuilder) error {
	from, err := o.sender()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(o.docFile)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := did.ParseDocumentJSON(data)
	if err != nil {
		return err
	}

	ctx := log.WithLogField(cmd.Context(), "did", doc.ID.String())
	return o.withClient(ctx, func(client ledgerClient) error {
		tx, err := build(ctx, client, from, doc)
		if err != nil {
			return err
		}
		return o.output(cmd, tx)
	})
}

func (o *buildOptions) sender() (did.Address, error) {
	return did.ParseAddress(o.from)
}

// provider returns the configured signer, or nil when the transaction is
// printed unsigned.
func (o *buildOptions) provider() (signer.SignerProvider, error) {
	switch {
	case o.privateKey != "" && o.signerURL != "":
		return nil, fmt.Errorf("--private-key and --signer-url are mutually exclusive")
	case o.privateKey != "":
		return signer.NewDefaultProvider(o.privateKey)
	case o.signerURL != "":
		return signer.NewRemoteProvider(o.signerURL, o.signerAPIKey, o.from)
	}
	return nil, nil
}

// output prints tx, or the signed raw transaction when a signer was given.
func (o *buildOptions) output(cmd *cobra.Command, tx *ledger.Transaction) error {
	provider, err := o.provider()
	if err != nil {
		return err
	}
	if provider == nil {
		return printJSON(cmd, tx)
	}

	signed, err := tx.Sign(provider)
	if err != nil {
		return err
	}

	log.L(cmd.Context()).Infof("Signed transaction %s", signed.TxHash)
	return printJSON(cmd, signed)
}
