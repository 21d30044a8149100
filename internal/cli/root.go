package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/prodreg/internal/config"
	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
	"github.com/roach88/prodreg/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	DB         string
	LogLevel   string
	ConfigFile string

	// Config is the resolved configuration, set before any subcommand runs.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the prodreg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "prodreg",
		Short:   "prodreg - product registry",
		Long:    "A product registry: register products once, append owner-only lifecycle events, and read records, histories and notifications.",
		Version: ir.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (forces debug logging)")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.DB, "db", config.Defaults().DB, "path to SQLite database")
	pf.StringVar(&opts.LogLevel, "log-level", config.Defaults().LogLevel, "log level (debug|info|warn|error)")
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default: ./prodreg.yaml or ~/.config/prodreg/config.yaml)")

	// Add subcommands
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewEventCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewNotificationsCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve merges flags, environment and config file into opts and installs
// the logger.
func (opts *RootOptions) resolve(cmd *cobra.Command) error {
	v := viper.New()
	pf := cmd.Root().PersistentFlags()
	binds := map[string]string{
		config.KeyDB:       "db",
		config.KeyFormat:   "format",
		config.KeyLogLevel: "log-level",
		config.KeyVerbose:  "verbose",
	}
	for key, flag := range binds {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return WrapExitError(ExitCommandError, "bind flags", err)
		}
	}

	cfg, err := config.Load(v, opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	opts.Config = cfg
	opts.Format = cfg.Format
	opts.Verbose = cfg.Verbose
	opts.DB = cfg.DB
	opts.Logger = newLogger(cmd.ErrOrStderr(), cfg.Format, level)
	return nil
}

// newLogger writes structured logs to w; JSON output gets JSON logs.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openStore opens the configured database.
func (opts *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open database %s", opts.DB), err)
	}
	return st, nil
}

// withRegistry opens the database, runs fn against a registry over it and
// closes both.
func (opts *RootOptions) withRegistry(ctx context.Context, fn func(context.Context, *registry.Registry) error) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reg := registry.New(st, registry.WithLogger(logger))
	defer reg.Close()

	return fn(ctx, reg)
}

// Execute runs the CLI with args and returns the process exit code.
// Errors not already written by a command go to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Flag and argument errors from cobra.
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCommandError
	}
	if !exitErr.Reported {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitErr.Code
}
