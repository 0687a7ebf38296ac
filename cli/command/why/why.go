package why

import (
	"fmt"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/manager"

	"github.com/morikuni/aec"
	"github.com/spf13/cobra"
)

// NewWhyCommand builds `winforge why <app_id>`: the read-only half of the
// uninstall guard, reporting which installed packages hold a dependency
// on app_id so a host can explain the relationship before an uninstall
// attempt fails with DependencyHeld.
func NewWhyCommand(winforgeCli command.Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "why [APP_ID]",
		Short: "Show which installed packages depend on a package",
		Args:  cli.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhy(winforgeCli, args[0])
		},
	}
	return cmd
}

func runWhy(winforgeCli command.Cli, appID string) error {
	cat, err := catalog.Load(winforgeCli.CatalogPath())
	if err != nil {
		return err
	}

	mgr := manager.New(cat, winforgeCli.AppcoreConfig())

	dependents, err := mgr.Why(appID)
	if err != nil {
		return err
	}

	if len(dependents) == 0 {
		msg := appID + " is not held by any installed package"
		if winforgeCli.Out().IsColorEnabled() {
			msg = aec.Bold.Apply(appID) + " is not held by any installed package"
		}
		winforgeCli.Out().WriteString(msg + "\n")
		return nil
	}

	for _, dep := range dependents {
		winforgeCli.Out().WriteString(fmt.Sprintf("%s depends on %s\n", dep, appID))
	}
	return nil
}
