// Package runner composes and executes platform-native installer and
// uninstaller invocations. It is polymorphic over the three installer
// kinds via the argv-composition functions in msi.go, exe.go and appx.go,
// rather than subclassing — a tagged-variant dispatch.
//
// Process invocation itself follows the exec.Command + CombinedOutput
// idiom common to tools that drive Windows command-line installers,
// generalized here to msiexec/EXE/APPX installers and to capturing
// stdout/stderr separately.
package runner

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"

	"winforge/pkg/appcore"
)

// RunResult carries everything the Manager needs to promote a process
// result to a State Store mutation, without re-executing the step.
type RunResult struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes composed argvs, or — in dry-run mode — composes them
// without spawning a process.
type Runner struct {
	// DryRun disables process execution. It defaults to true on
	// non-Windows hosts; the Manager/Configuration layer decides the
	// default and passes it in explicitly here.
	DryRun bool

	// Timeout, if non-zero, bounds a single child process. It applies
	// per child process only if configured; the default is no timeout.
	Timeout func(context.Context) (context.Context, context.CancelFunc)
}

// New returns a Runner. dryRun should be computed by the caller from
// Configuration (host OS check, explicit override).
func New(dryRun bool) *Runner {
	return &Runner{DryRun: dryRun}
}

// Install composes and, unless in dry-run mode, executes the install
// invocation for d at path.
func (r *Runner) Install(ctx context.Context, d appcore.PackageDescriptor, path string) (RunResult, error) {
	argv, err := composeInstall(d, path)
	if err != nil {
		return RunResult{}, err
	}
	return r.run(ctx, d.AppID, argv)
}

// Uninstall composes and, unless in dry-run mode, executes the uninstall
// invocation for d. path is the installer path recorded at install time;
// it may be empty for EXE uninstalls that use an explicit
// uninstall_command instead.
func (r *Runner) Uninstall(ctx context.Context, d appcore.PackageDescriptor, path string) (RunResult, error) {
	argv, err := composeUninstall(d, path)
	if err != nil {
		return RunResult{}, err
	}
	return r.run(ctx, d.AppID, argv)
}

func (r *Runner) run(ctx context.Context, appID string, argv []string) (RunResult, error) {
	if r.DryRun {
		return RunResult{Argv: argv, ExitCode: 0}, nil
	}

	if len(argv) == 0 {
		return RunResult{}, appcore.NewError(appcore.KindUninstallUnsupported, "empty command").WithAppID(appID)
	}

	if r.Timeout != nil {
		var cancel context.CancelFunc
		ctx, cancel = r.Timeout(ctx)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := RunResult{
		Argv:     argv,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, runErr),
	}

	if result.ExitCode != 0 {
		e := appcore.NewError(appcore.KindInstallerFailed, "installer exited with code %d", result.ExitCode).WithAppID(appID)
		e.ExitCode = result.ExitCode
		e.Stderr = result.Stderr
		return result, e
	}

	return result, nil
}

func exitCode(cmd *exec.Cmd, runErr error) int {
	if runErr == nil {
		return 0
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 1
}

// DefaultDryRun reports the host default: dry-run everywhere except
// Windows.
func DefaultDryRun() bool {
	return runtime.GOOS != "windows"
}
