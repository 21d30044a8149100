package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
)

// ProductQueryOptions holds flags for the read commands.
type ProductQueryOptions struct {
	*RootOptions
	ID uint64
}

// ExistsView is the JSON payload of the exists command.
type ExistsView struct {
	ID     ir.ProductID `json:"id"`
	Exists bool         `json:"exists"`
}

// HistoryView is the JSON payload of the history command.
type HistoryView struct {
	ID     ir.ProductID      `json:"id"`
	Events []ir.ProductEvent `json:"events"`
}

func newProductQueryCommand(rootOpts *RootOptions, use, short, long string, run func(context.Context, *ProductQueryOptions, *cobra.Command) error) *cobra.Command {
	opts := &ProductQueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "product id (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return newProductQueryCommand(rootOpts, "get", "Show a product record",
		`Show a product record as id, quantity, hash, owner.

Exit codes:
  0 - Record found
  1 - Product not registered (E202)
  2 - Command error

Examples:
  prodreg get --id 1
  prodreg get --id 1 --format json`,
		runGet)
}

func runGet(ctx context.Context, opts *ProductQueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withRegistry(ctx, func(ctx context.Context, reg *registry.Registry) error {
		rec, err := reg.GetProduct(ctx, ir.ProductID(opts.ID))
		if err != nil {
			return f.Fail(err)
		}
		view := newProductView(rec)
		return f.Success(view, view.String())
	})
}

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	return newProductQueryCommand(rootOpts, "exists", "Check whether a product is registered",
		`Print true or false. Never fails for an unknown id.

Examples:
  prodreg exists --id 1`,
		runExists)
}

func runExists(ctx context.Context, opts *ProductQueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withRegistry(ctx, func(ctx context.Context, reg *registry.Registry) error {
		ok, err := reg.Exists(ctx, ir.ProductID(opts.ID))
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(ExistsView{ID: ir.ProductID(opts.ID), Exists: ok}, fmt.Sprintf("%t", ok))
	})
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return newProductQueryCommand(rootOpts, "history", "List a product's events in order",
		`List every event appended to a product, oldest first.

Exit codes:
  0 - History listed (possibly empty)
  1 - Product not registered (E202)
  2 - Command error

Examples:
  prodreg history --id 2`,
		runHistory)
}

func runHistory(ctx context.Context, opts *ProductQueryOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withRegistry(ctx, func(ctx context.Context, reg *registry.Registry) error {
		id := ir.ProductID(opts.ID)
		events, err := reg.ListEvents(ctx, id)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(HistoryView{ID: id, Events: events}, formatHistory(id, events))
	})
}

func formatHistory(id ir.ProductID, events []ir.ProductEvent) string {
	if len(events) == 0 {
		return fmt.Sprintf("No events for product %s.", id)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Product %s: %d event(s)", id, len(events))
	for _, ev := range events {
		fmt.Fprintf(&b, "\n  #%d  %s  %-13s %s", ev.Seq, ev.Timestamp.Format(time.RFC3339), ev.EventType, ev.EventData)
	}
	return b.String()
}
