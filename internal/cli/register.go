package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
)

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	ID       uint64
	Quantity uint64
	Hash     string
	HashText string
	Caller   string
}

// ProductView is the CLI rendering of a product record.
type ProductView struct {
	ID       ir.ProductID `json:"id"`
	Quantity uint64       `json:"quantity"`
	Hash     ir.Hash      `json:"hash"`
	HashText string       `json:"hash_text,omitempty"`
	Owner    ir.Identity  `json:"owner"`
}

func newProductView(rec ir.ProductRecord) ProductView {
	v := ProductView{ID: rec.ID, Quantity: rec.Quantity, Hash: rec.Hash, Owner: rec.Owner}
	if text, err := ir.DecodeBytes32String(rec.Hash); err == nil {
		v.HashText = text
	}
	return v
}

func (v ProductView) String() string {
	hash := v.Hash.String()
	if v.HashText != "" {
		hash = fmt.Sprintf("%s (%q)", hash, v.HashText)
	}
	return fmt.Sprintf("product %s\n  quantity: %d\n  hash:     %s\n  owner:    %s", v.ID, v.Quantity, hash, v.Owner)
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new product",
		Long: `Register a product id with the caller as its owner.

The hash is either 64 hex digits (--hash) or a short label of up to 31
bytes encoded as bytes32 (--hash-text).

Exit codes:
  0 - Product registered
  1 - Registry rejected the request (E201 already registered, E204 invalid argument)
  2 - Command error

Examples:
  prodreg register --id 1 --quantity 10 --hash-text H1 --caller 0xA11CE
  prodreg register --id 2 --quantity 5 --hash 0x48...00 --caller 0xA11CE --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "product id (required)")
	cmd.Flags().Uint64Var(&opts.Quantity, "quantity", 0, "quantity")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "record hash as 64 hex digits")
	cmd.Flags().StringVar(&opts.HashText, "hash-text", "", "record hash as a short text label")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller identity, becomes the owner (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("caller")
	cmd.MarkFlagsMutuallyExclusive("hash", "hash-text")
	cmd.MarkFlagsOneRequired("hash", "hash-text")

	return cmd
}

func runRegister(ctx context.Context, opts *RegisterOptions, cmd *cobra.Command) error {
	hash, err := parseHashFlags(opts.Hash, opts.HashText)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid hash", err)
	}

	f := opts.formatter(cmd)
	return opts.withRegistry(ctx, func(ctx context.Context, reg *registry.Registry) error {
		got, err := reg.RegisterProduct(ctx, ir.ProductID(opts.ID), opts.Quantity, hash, ir.Identity(opts.Caller))
		if err != nil {
			return f.Fail(err)
		}
		view := newProductView(ir.ProductRecord(got))
		return f.Success(view, "Registered "+view.String())
	})
}

// parseHashFlags resolves --hash or --hash-text into a Hash.
func parseHashFlags(hexHash, text string) (ir.Hash, error) {
	if hexHash != "" {
		return ir.ParseHash(hexHash)
	}
	return ir.EncodeBytes32String(text)
}
