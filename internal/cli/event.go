package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
)

// EventOptions holds flags for the event command.
type EventOptions struct {
	*RootOptions
	ID     uint64
	Type   string
	Data   string
	Caller string
}

// NewEventCommand creates the event command.
func NewEventCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "event",
		Short: "Append a lifecycle event to a product",
		Long: `Append an event to a product's history. Only the owner may append.

Common event types: CREATED, SHIPPED, DELIVERED, STORED, PROCESSED,
QUALITY_CHECK, SOLD. Any non-empty type is accepted.

Exit codes:
  0 - Event recorded
  1 - Registry rejected the request (E202 not found, E203 unauthorized, E204 invalid argument)
  2 - Command error

Examples:
  prodreg event --id 2 --type SHIPPED --data "to warehouse" --caller 0xA11CE`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvent(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.ID, "id", 0, "product id (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "event type (required)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "event data (required)")
	cmd.Flags().StringVar(&opts.Caller, "caller", "", "caller identity (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func runEvent(ctx context.Context, opts *EventOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	return opts.withRegistry(ctx, func(ctx context.Context, reg *registry.Registry) error {
		ev, err := reg.RegisterEvent(ctx, ir.ProductID(opts.ID), opts.Type, opts.Data, ir.Identity(opts.Caller))
		if err != nil {
			return f.Fail(err)
		}
		text := fmt.Sprintf("Recorded event #%d on product %s: %s %q at %s",
			ev.Seq, ev.ProductID, ev.EventType, ev.EventData, ev.Timestamp.Format(time.RFC3339Nano))
		return f.Success(ev, text)
	})
}
