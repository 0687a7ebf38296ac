package install

import (
	"context"
	"fmt"
	"strconv"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/cli/version"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/manager"
	"winforge/pkg/appcore/plan"
	"winforge/pkg/output"

	"github.com/morikuni/aec"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type installOptions struct {
	dryRun bool
	yes    bool
}

// NewInstallCommand builds `winforge install <app_id>`: resolves the
// dependency plan for the requested package, confirms with the user
// (unless --yes), and drives fetch -> verify -> run -> record for every
// step the Planner marked Install.
func NewInstallCommand(winforgeCli command.Cli) *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:     "install [OPTIONS] APP_ID",
		Short:   "Install a package and its dependencies",
		Args:    cli.ExactArgs(1),
		Example: `  winforge install git`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runInstall(cmd.Context(), winforgeCli, opts, args[0])
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

	flags := cmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Compose installer commands without running them")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Do not prompt for confirmation")

	return cmd
}

func runInstall(ctx context.Context, winforgeCli command.Cli, opts installOptions, appID string) error {
	winforgeCli.Output().Prettyln(output.Text{
		Plain: "winforge install v" + version.Version,
		Fancy: aec.Bold.Apply("winforge install") + " " + aec.LightBlackF.Apply("v"+version.Version),
	})

	cat, err := catalog.Load(winforgeCli.CatalogPath())
	if err != nil {
		return err
	}

	cfg := winforgeCli.AppcoreConfig()
	if opts.dryRun {
		cfg.DefaultDryRun = true
	}
	if !opts.yes {
		cfg.RequestConfirmation = func(prompt string) bool {
			ok, err := command.PromptForConfirmation(ctx, winforgeCli.In(), winforgeCli.Out(), prompt)
			return err == nil && ok
		}
	}

	mgr := manager.New(cat, cfg)

	p, err := mgr.BuildInstallPlan(appID)
	if err != nil {
		return err
	}
	printPlan(winforgeCli, p)

	if !p.IsExecutable {
		return errors.Errorf("install plan for %q is blocked, see warnings above", appID)
	}

	outcome, err := mgr.Install(ctx, appID)
	if err != nil {
		return err
	}

	if outcome.Record.AppID != "" {
		winforgeCli.Out().WriteString(fmt.Sprintf("installed %s@%s\n", outcome.Record.AppID, outcome.Record.Version))
	} else {
		winforgeCli.Out().WriteString("dry-run: no state was recorded\n")
	}
	return nil
}

func printPlan(winforgeCli command.Cli, p plan.InstallPlan) {
	colorize := winforgeCli.Out().IsColorEnabled()
	for _, step := range p.Steps {
		label := string(step.Action)
		if colorize {
			switch step.Action {
			case plan.ActionInstall:
				label = aec.GreenF.Apply(label)
			case plan.ActionSkip:
				label = aec.LightBlackF.Apply(label)
			case plan.ActionBlocked:
				label = aec.RedF.Apply(label)
			}
		}
		winforgeCli.Out().WriteString(fmt.Sprintf("  %-8s %s\n", label, step.AppID))
	}
	for _, w := range p.Warnings {
		winforgeCli.Err().WriteString("warning: " + w + "\n")
	}
	winforgeCli.Out().WriteString(strconv.Itoa(p.InstallCount) + " to install, " + strconv.Itoa(p.SkipCount) + " already satisfied\n")
}
