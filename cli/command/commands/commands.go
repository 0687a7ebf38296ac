package commands

import (
	"winforge/cli/command"
	"winforge/cli/command/download"
	"winforge/cli/command/install"
	"winforge/cli/command/ls"
	"winforge/cli/command/status"
	"winforge/cli/command/uninstall"
	"winforge/cli/command/why"

	"github.com/spf13/cobra"
)

// AddCommands registers every subcommand the Manager API exposes to the
// host.
func AddCommands(cmd *cobra.Command, winforgeCli command.Cli) {
	cmd.AddCommand(
		ls.NewLsCommand(winforgeCli),
		why.NewWhyCommand(winforgeCli),
		status.NewStatusCommand(winforgeCli),
		download.NewDownloadCommand(winforgeCli),
		install.NewInstallCommand(winforgeCli),
		uninstall.NewUninstallCommand(winforgeCli),
	)
}
