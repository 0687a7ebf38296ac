// Package config resolves the Manager's Configuration collaborator:
// download_dir, state_file, default_dry_run, require_authenticode,
// acceptable_signature_statuses and the request_confirmation callback.
package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"winforge/pkg/appcore/runner"
	"winforge/pkg/appcore/verify"
)

// EnvOverrideHome overrides the base directory both defaults are rooted
// under, the same override mechanism pkg/config/config.go's
// EnvOverrideConfigDir provides for the CLI config directory.
const EnvOverrideHome = "WINFORGE_HOME"

const appDirName = ".winforge"

// Confirm is invoked by the Manager before the first Install step of a
// plan, when set. Returning false aborts the plan before any
// Fetcher/Verifier/Runner step runs.
type Confirm func(prompt string) bool

// Configuration is the full set of inputs a Manager needs beyond the
// Catalog document itself.
type Configuration struct {
	DownloadDir string
	StateFile   string

	// DefaultDryRun mirrors runner.DefaultDryRun()'s host-OS default but
	// is stored here so a host can override it explicitly.
	DefaultDryRun bool

	RequireAuthenticode   bool
	AcceptableStatuses    []verify.AuthenticodeStatus
	AuthenticodeBackend   verify.AuthenticodeBackend
	RequestConfirmation Confirm
	// RecordDryRunInstalls is an escape hatch that records a dry-run
	// install to the State Store as if it had really run; default false.
	RecordDryRunInstalls bool

	UserAgent string
}

// Default returns download_dir and state_file under <user-home>/.winforge,
// default_dry_run true on every host except Windows, and authenticode
// checking disabled.
func Default() Configuration {
	base := homeDir()
	return Configuration{
		DownloadDir:         filepath.Join(base, "downloads"),
		StateFile:           filepath.Join(base, "installed.json"),
		DefaultDryRun:       runner.DefaultDryRun(),
		RequireAuthenticode: false,
		AcceptableStatuses:  []verify.AuthenticodeStatus{verify.StatusValid},
		AuthenticodeBackend: verify.NoOpBackend{},
		UserAgent:           "winforge-appcore",
	}
}

// Policy derives a verify.Policy from the configuration.
func (c Configuration) Policy() verify.Policy {
	return verify.Policy{RequireAuthenticode: c.RequireAuthenticode, AcceptableStatuses: c.AcceptableStatuses}
}

func homeDir() string {
	if dir := os.Getenv(EnvOverrideHome); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	if home == "" && runtime.GOOS != "windows" {
		if u, err := user.Current(); err == nil {
			home = u.HomeDir
		}
	}
	return filepath.Join(home, appDirName)
}
