package status

import (
	"fmt"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/manager"

	"github.com/spf13/cobra"
)

// NewStatusCommand builds `winforge status [APP_ID]`: prints the
// InstallRecord for a single app_id, or every recorded install when no
// app_id is given.
func NewStatusCommand(winforgeCli command.Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [APP_ID]",
		Short: "Show recorded install state",
		Args:  cli.RequiresMaxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID := ""
			if len(args) == 1 {
				appID = args[0]
			}
			return runStatus(winforgeCli, appID)
		},
	}
	return cmd
}

func runStatus(winforgeCli command.Cli, appID string) error {
	cat, err := catalog.Load(winforgeCli.CatalogPath())
	if err != nil {
		return err
	}

	mgr := manager.New(cat, winforgeCli.AppcoreConfig())

	records, err := mgr.Status(appID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		winforgeCli.Out().WriteString("no packages installed\n")
		return nil
	}

	for _, rec := range records {
		winforgeCli.Out().WriteString(fmt.Sprintf(
			"%s@%s  installed=%s  hash=%s  signed=%t  path=%s\n",
			rec.AppID, rec.Version, rec.InstalledAt.Format("2006-01-02T15:04:05Z"),
			rec.HashVerified, rec.SignatureVerified, rec.InstallerPath,
		))
	}
	return nil
}
