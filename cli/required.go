package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NoArgs validates that a command has no positional arguments.
func NoArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%q accepts no arguments", cmd.CommandPath())
	}
	return nil
}

// ExactArgs returns an error if there are not exactly n positional args.
func ExactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%q requires exactly %d argument(s)", cmd.CommandPath(), n)
		}
		return nil
	}
}

// RequiresMinArgs returns an error if there is not at least min positional args.
func RequiresMinArgs(min int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min {
			return fmt.Errorf("%q requires at least %d argument(s)", cmd.CommandPath(), min)
		}
		return nil
	}
}

// RequiresMaxArgs returns an error if there are more than max positional args.
func RequiresMaxArgs(max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > max {
			return fmt.Errorf("%q accepts at most %d argument(s)", cmd.CommandPath(), max)
		}
		return nil
	}
}
