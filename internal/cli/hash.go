package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prodreg/internal/ir"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Decode bool
}

// HashView is the JSON payload of the hash command.
type HashView struct {
	Text string  `json:"text"`
	Hash ir.Hash `json:"hash"`
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash <text>",
		Short: "Encode a short label as a bytes32 hash",
		Long: `Encode text of up to 31 bytes as a left-aligned, zero-padded bytes32
value, the form --hash-text uses. With --decode the argument is a hash and
the label is printed.

Examples:
  prodreg hash H1
  prodreg hash --decode 0x4831000000000000000000000000000000000000000000000000000000000000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Decode, "decode", "d", false, "decode a hash back to text")

	return cmd
}

func runHash(opts *HashOptions, arg string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if opts.Decode {
		h, err := ir.ParseHash(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid hash", err)
		}
		text, err := ir.DecodeBytes32String(h)
		if err != nil {
			return WrapExitError(ExitCommandError, "hash is not a text label", err)
		}
		return f.Success(HashView{Text: text, Hash: h}, text)
	}

	h, err := ir.EncodeBytes32String(arg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot encode label", err)
	}
	return f.Success(HashView{Text: arg, Hash: h}, fmt.Sprint(h))
}
