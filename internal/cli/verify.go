package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	Products      int64    `json:"products"`
	Events        int64    `json:"events"`
	Notifications int64    `json:"notifications"`
	Problems      []string `json:"problems"`
	OK            bool     `json:"ok"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay the notification log against stored state",
		Long: `Replay the notification log and check it against the product and event
tables: notification IDs, single registration per product, contiguous event
sequences, and stored rows matching what was announced.

Exit codes:
  0 - Log and state agree
  1 - Inconsistencies found (E301)
  2 - Command error (database not found, etc.)

Examples:
  prodreg verify --db ./prodreg.db
  prodreg verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}
	return cmd
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	f := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	v, err := st.VerifyLog(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay log", err)
	}
	stats, err := st.ReadStats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stats", err)
	}

	result := VerifyResult{
		Products:      stats.Products,
		Events:        stats.Events,
		Notifications: v.Notifications,
		Problems:      v.Problems,
		OK:            v.OK(),
	}

	if result.OK {
		text := fmt.Sprintf("✓ %d notification(s) replayed: %d product(s), %d event(s)",
			result.Notifications, result.Products, result.Events)
		return f.Success(result, text)
	}

	message := fmt.Sprintf("%d problem(s) found", len(result.Problems))
	if f.Format == "json" {
		if err := f.Error(ErrCodeLogInconsistent, message, result); err != nil {
			return err
		}
	} else {
		w := f.Writer
		fmt.Fprintf(w, "✗ %s\n", message)
		for _, p := range result.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return &ExitError{Code: ExitFailure, Message: message, Reported: true}
}
