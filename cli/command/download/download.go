package download

import (
	"context"
	"fmt"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/manager"

	"github.com/spf13/cobra"
)

// NewDownloadCommand builds `winforge download <app_id>`: fetches the
// installer artifact and checks its sha256 without running it, useful for
// staging installers ahead of an offline install. The HMAC and
// Authenticode checks run only at install time.
func NewDownloadCommand(winforgeCli command.Cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [APP_ID]",
		Short: "Fetch a package's installer without installing it",
		Args:  cli.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), winforgeCli, args[0])
		},
	}
	return cmd
}

func runDownload(ctx context.Context, winforgeCli command.Cli, appID string) error {
	cat, err := catalog.Load(winforgeCli.CatalogPath())
	if err != nil {
		return err
	}

	mgr := manager.New(cat, winforgeCli.AppcoreConfig())

	path, err := mgr.Download(ctx, appID)
	if err != nil {
		return err
	}

	winforgeCli.Out().WriteString(fmt.Sprintf("%s -> %s\n", appID, path))
	return nil
}
