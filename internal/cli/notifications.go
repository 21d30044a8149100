package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
)

// NotificationsOptions holds flags for the notifications command.
type NotificationsOptions struct {
	*RootOptions
	After        int64
	Follow       bool
	PollInterval time.Duration
}

// NotificationsView is the JSON payload of a one-shot listing.
type NotificationsView struct {
	Notifications []ir.Notification `json:"notifications"`
	LastSeq       int64             `json:"last_seq"`
}

// NewNotificationsCommand creates the notifications command.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NotificationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Replay or follow the notification log",
		Long: `Print ProductRegistered and ProductEvent notifications in commit order.

--after skips everything up to and including that log sequence number, so
a listener can resume where it stopped. --follow keeps polling the database
for new notifications until interrupted; with --format json each
notification is printed as one JSON line.

Examples:
  prodreg notifications
  prodreg notifications --after 42 --format json
  prodreg notifications --follow --poll-interval 500ms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotifications(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only show notifications with a greater log sequence")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "keep printing new notifications")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", time.Second, "database poll interval for --follow")

	return cmd
}

func runNotifications(ctx context.Context, opts *NotificationsOptions, cmd *cobra.Command) error {
	if opts.After < 0 {
		return NewExitError(ExitCommandError, "--after must not be negative")
	}
	if opts.Follow && opts.PollInterval <= 0 {
		return NewExitError(ExitCommandError, "--poll-interval must be positive")
	}

	f := opts.formatter(cmd)
	return opts.withRegistry(ctx, func(ctx context.Context, reg *registry.Registry) error {
		if opts.Follow {
			err := followNotifications(ctx, reg, opts.After, opts.PollInterval, func(n ir.Notification) error {
				return writeNotificationLine(f.Writer, f.Format, n)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return f.Fail(err)
			}
			return nil
		}

		view := NotificationsView{Notifications: []ir.Notification{}, LastSeq: opts.After}
		for n, err := range reg.Notifications(ctx, opts.After) {
			if err != nil {
				return f.Fail(err)
			}
			view.Notifications = append(view.Notifications, n)
			view.LastSeq = n.Seq
		}

		if f.Format == "json" {
			return f.Success(view, "")
		}
		if len(view.Notifications) == 0 {
			return f.Success(view, "No notifications.")
		}
		for _, n := range view.Notifications {
			if err := writeNotificationLine(f.Writer, f.Format, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// followNotifications polls the log after afterSeq until ctx is done.
// Writers in other processes never reach this process's broker, so the
// durable log is the only source.
func followNotifications(ctx context.Context, reg *registry.Registry, afterSeq int64, interval time.Duration, fn func(ir.Notification) error) error {
	last := afterSeq
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for n, err := range reg.Notifications(ctx, last) {
			if err != nil {
				return err
			}
			if err := fn(n); err != nil {
				return err
			}
			last = n.Seq
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func writeNotificationLine(w io.Writer, format string, n ir.Notification) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(n)
	}
	_, err := fmt.Fprintln(w, formatNotification(n))
	return err
}

func formatNotification(n ir.Notification) string {
	switch {
	case n.Registered != nil:
		r := n.Registered
		return fmt.Sprintf("#%d %s id=%s quantity=%d hash=%s owner=%s", n.Seq, n.Kind, r.ID, r.Quantity, r.Hash, r.Owner)
	case n.Event != nil:
		e := n.Event
		return fmt.Sprintf("#%d %s id=%s seq=%d type=%s data=%q at=%s", n.Seq, n.Kind, e.ProductID, e.Seq, e.EventType, e.EventData, e.Timestamp.Format(time.RFC3339Nano))
	default:
		return fmt.Sprintf("#%d %s id=%s", n.Seq, n.Kind, n.ProductID)
	}
}
