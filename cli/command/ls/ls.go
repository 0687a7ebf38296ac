package ls

import (
	"fmt"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/state"

	"github.com/morikuni/aec"
	"github.com/spf13/cobra"
)

// NewLsCommand builds `winforge ls`: lists every package in the catalog
// alongside its installed status as a flat table, since the application
// core's catalog has no single "root" to render a dependency tree from.
func NewLsCommand(winforgeCli command.Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List available packages and their installed status",
		Args:  cli.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(winforgeCli)
		},
	}
	return cmd
}

func runLs(winforgeCli command.Cli) error {
	cat, err := catalog.Load(winforgeCli.CatalogPath())
	if err != nil {
		return err
	}

	cfg := winforgeCli.AppcoreConfig()
	store := state.Open(cfg.StateFile)

	colorize := winforgeCli.Out().IsColorEnabled()

	for _, d := range cat.List() {
		status := "not installed"
		if rec, err := store.Get(d.AppID); err == nil {
			status = "installed@" + rec.Version
			if colorize {
				status = aec.GreenF.Apply(status)
			}
		} else if colorize {
			status = aec.LightBlackF.Apply(status)
		}
		winforgeCli.Out().WriteString(fmt.Sprintf("%-24s %-12s %s\n", d.AppID, d.Version, status))
	}

	return nil
}
