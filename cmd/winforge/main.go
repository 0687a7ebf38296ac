// Command winforge is the CLI host for the application management core
// (pkg/appcore): a thin cobra tree that consumes the Manager API directly.
// CLI/GUI presentation layers are not part of the core.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"winforge/cli"
	"winforge/cli/command"
	"winforge/cli/command/commands"
	cliflags "winforge/cli/flags"
	"winforge/cli/version"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

type errCtxSignalTerminated struct {
	signal os.Signal
}

func (errCtxSignalTerminated) Error() string {
	return ""
}

func main() {
	err := winforgeMain(context.Background())

	var userTerminated errCtxSignalTerminated
	if errors.As(err, &userTerminated) {
		os.Exit(getExitCode(err))
	}

	if err != nil {
		if err.Error() != "" {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(getExitCode(err))
	}
}

func notifyContext(ctx context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)

	ctxCause, cancel := context.WithCancelCause(ctx)

	go func() {
		select {
		case <-ctx.Done():
			signal.Stop(ch)
			return
		case sig := <-ch:
			cancel(errCtxSignalTerminated{signal: sig})
			signal.Stop(ch)
			return
		}
	}()

	return ctxCause, func() {
		signal.Stop(ch)
		cancel(nil)
	}
}

func winforgeMain(ctx context.Context) error {
	ctx, cancelNotify := notifyContext(ctx, terminationSignals...)
	defer cancelNotify()

	winforgeCli, err := command.NewWinforgeCli()
	if err != nil {
		return err
	}
	logrus.SetOutput(winforgeCli.Err())

	return runWinforge(ctx, winforgeCli)
}

// getExitCode returns the exit-code to use for the given error. If err is
// a [cli.StatusError] and has a StatusCode set, it uses the status-code
// from it, otherwise it returns 1 for any error.
func getExitCode(err error) int {
	if err == nil {
		return 0
	}

	var userTerminatedErr errCtxSignalTerminated
	if errors.As(err, &userTerminatedErr) {
		s, ok := userTerminatedErr.signal.(syscall.Signal)
		if !ok {
			return 1
		}
		return 128 + int(s)
	}

	var stErr cli.StatusError
	if errors.As(err, &stErr) && stErr.StatusCode != 0 {
		return stErr.StatusCode
	}

	return 1
}

func newWinforgeCommand(winforgeCli *command.WinforgeCli) *cli.TopLevelCommand {
	var (
		opts    *cliflags.ClientOptions
		helpCmd *cobra.Command
	)

	cmd := &cobra.Command{
		Use:              "winforge [OPTIONS] COMMAND [ARG...]",
		Short:            "Application management core for Windows system provisioning",
		SilenceUsage:     true,
		SilenceErrors:    true,
		TraverseChildren: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return command.ShowHelp(winforgeCli.Err())(cmd, args)
			}

			fmt.Fprintf(winforgeCli.Err(), "winforge: unknown command: winforge %s\n", args[0])

			var candidates []string
			if args[0] == "help" {
				candidates = []string{"--help"}
			} else {
				if cmd.SuggestionsMinimumDistance <= 0 {
					cmd.SuggestionsMinimumDistance = 2
				}
				candidates = cmd.SuggestionsFor(args[0])
			}

			if len(candidates) > 0 {
				fmt.Fprint(winforgeCli.Err(), "\nDid you mean this?\n")
				for _, c := range candidates {
					fmt.Fprintf(winforgeCli.Err(), "\t%s\n", c)
				}
			}

			return fmt.Errorf("\nRun 'winforge --help' for more information")
		},
		Version:               fmt.Sprintf("%s, build %s", version.Version, version.GitCommit),
		DisableFlagsInUseLine: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   false,
			HiddenDefaultCmd:    true,
			DisableDescriptions: true,
		},
	}
	cmd.SetIn(winforgeCli.In())
	cmd.SetOut(winforgeCli.Out())
	cmd.SetErr(winforgeCli.Err())

	opts, helpCmd = cli.SetupRootCommand(cmd)

	cmd.Flags().BoolP("version", "v", false, "Print version information and quit")

	setupHelpCommand(helpCmd)

	cmd.SetOut(winforgeCli.Out())
	commands.AddCommands(cmd, winforgeCli)

	cli.DisableFlagsInUseLine(cmd)

	// flags must be the top-level command flags, not cmd.Flags()
	return cli.NewTopLevelCommand(cmd, winforgeCli, opts, cmd.Flags())
}

// forceExitAfter3TerminationSignals waits for the first termination signal
// to be caught and the context to be marked as done, then registers a new
// signal handler for subsequent signals. It forces the process to exit
// after 3 SIGTERM/SIGINT signals, since an in-flight installer subprocess
// is allowed to run to completion and may otherwise block the CLI from
// responding at all.
func forceExitAfter3TerminationSignals(ctx context.Context, w io.Writer) {
	<-ctx.Done()
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, terminationSignals...)

	for i := 0; i < 2; i++ {
		<-sig
	}
	_, _ = fmt.Fprint(w, "\ngot 3 SIGTERM/SIGINTs, forcefully exiting\n")
	os.Exit(1)
}

func setupHelpCommand(helpCmd *cobra.Command) {
	origRun := helpCmd.Run
	origRunE := helpCmd.RunE

	helpCmd.Run = nil
	helpCmd.RunE = func(c *cobra.Command, args []string) error {
		if origRunE != nil {
			return origRunE(c, args)
		}
		origRun(c, args)
		return nil
	}
}

func runWinforge(ctx context.Context, winforgeCli *command.WinforgeCli) error {
	tcmd := newWinforgeCommand(winforgeCli)

	cmd, args, err := tcmd.HandleGlobalFlags()
	if err != nil {
		return err
	}

	if err := tcmd.Initialize(); err != nil {
		return err
	}

	// This is a fallback for the case where the command does not exit
	// based on context cancellation.
	go forceExitAfter3TerminationSignals(ctx, winforgeCli.Err())

	// We've parsed global args already, so reset args to those
	// which remain.
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
