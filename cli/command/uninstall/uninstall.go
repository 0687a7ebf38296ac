package uninstall

import (
	"context"
	"fmt"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/cli/version"
	"winforge/pkg/appcore"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/manager"
	"winforge/pkg/output"

	"github.com/morikuni/aec"
	"github.com/spf13/cobra"
)

// NewUninstallCommand builds `winforge uninstall <app_id>`: refuses when
// another installed package still depends on it, otherwise drives the
// Runner's uninstall command and removes the State Store record.
func NewUninstallCommand(winforgeCli command.Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uninstall [APP_ID]",
		Short:   "Remove an installed package",
		Aliases: []string{"remove", "rm"},
		Args:    cli.ExactArgs(1),
		Example: `  winforge uninstall git`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runUninstall(cmd.Context(), winforgeCli, args[0])
			if err != nil {
				suffix := "error:"
				if winforgeCli.Out().IsColorEnabled() {
					suffix = aec.RedF.Apply("error:")
				}
				err = fmt.Errorf("%s %w", suffix, err)
			}
			return err
		},
	}

	return cmd
}

func runUninstall(ctx context.Context, winforgeCli command.Cli, appID string) error {
	winforgeCli.Output().Prettyln(output.Text{
		Plain: "winforge uninstall v" + version.Version,
		Fancy: aec.Bold.Apply("winforge uninstall") + " " + aec.LightBlackF.Apply("v"+version.Version),
	})

	cat, err := catalog.Load(winforgeCli.CatalogPath())
	if err != nil {
		return err
	}

	mgr := manager.New(cat, winforgeCli.AppcoreConfig())

	if _, err := mgr.Uninstall(ctx, appID); err != nil {
		if ae, ok := err.(*appcore.AppError); ok && ae.Kind == appcore.KindDependencyHeld {
			winforgeCli.Err().WriteString(fmt.Sprintf("%q is still required by: %v\n", appID, ae.Dependents))
		}
		return err
	}

	winforgeCli.Out().WriteString(fmt.Sprintf("uninstalled %s\n", appID))
	return nil
}
