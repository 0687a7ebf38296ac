// Package manager implements the Manager: the single entry point that
// composes Catalog, State Store, Fetcher, Verifier, Planner and Runner
// into a resolve -> download -> verify -> run -> record orchestration.
package manager

import (
	"context"
	"strconv"
	"time"

	"winforge/pkg/appcore"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/config"
	"winforge/pkg/appcore/fetch"
	"winforge/pkg/appcore/plan"
	"winforge/pkg/appcore/runner"
	"winforge/pkg/appcore/state"
	"winforge/pkg/appcore/verify"
)

// InstallOutcome is the Manager's install(app_id) return shape: the
// final State Store record plus the terminal run result that produced
// it.
type InstallOutcome struct {
	Record appcore.InstallRecord
	Result runner.RunResult
}

// Manager is the orchestrator. Build one with New; a threading-capable
// host may run multiple Manager instances against distinct state files
// concurrently, as long as no two instances share a Store's path.
type Manager struct {
	cat    *catalog.Catalog
	store  *state.Store
	fetch  *fetch.Fetcher
	verify *verify.Verifier
	run    *runner.Runner
	cfg    config.Configuration
}

// New wires a Manager from a loaded Catalog and a Configuration. The
// State Store, Fetcher, Verifier and Runner collaborators are constructed
// from cfg so callers never have to wire them individually.
func New(cat *catalog.Catalog, cfg config.Configuration) *Manager {
	return &Manager{
		cat:    cat,
		store:  state.Open(cfg.StateFile),
		fetch:  fetch.New(cfg.DownloadDir, cfg.UserAgent),
		verify: verify.New(cfg.AuthenticodeBackend, cfg.Policy()),
		run:    runner.New(cfg.DefaultDryRun),
		cfg:    cfg,
	}
}

// ListAvailable returns every descriptor in the Catalog.
func (m *Manager) ListAvailable() []appcore.PackageDescriptor {
	return m.cat.List()
}

// BuildInstallPlan computes the InstallPlan for appID without performing
// any I/O beyond the Catalog and State Store reads the Planner already
// makes.
func (m *Manager) BuildInstallPlan(appID string) (plan.InstallPlan, error) {
	return plan.Plan(appID, m.cat, m.store)
}

// Download fetches appID's installer artifact without installing it.
func (m *Manager) Download(ctx context.Context, appID string) (string, error) {
	d, err := m.cat.Get(appID)
	if err != nil {
		return "", err
	}
	return m.fetch.Fetch(ctx, d)
}

// Install executes appID's full install plan: for every ActionInstall
// step, fetch, verify, run, and — on success — record.
// Steps already satisfied (ActionSkip) are not re-fetched or re-verified.
// The outcome returned describes the last ActionInstall step that ran,
// which is the target unless the target itself was already satisfied; it
// is the zero value when no step ran.
func (m *Manager) Install(ctx context.Context, appID string) (InstallOutcome, error) {
	p, err := m.BuildInstallPlan(appID)
	if err != nil {
		return InstallOutcome{}, err
	}
	if !p.IsExecutable {
		e := appcore.NewError(appcore.KindPlanBlocked, "plan for %q is not executable", appID).WithAppID(appID)
		e.Warnings = p.Warnings
		return InstallOutcome{}, e
	}

	if m.cfg.RequestConfirmation != nil && p.InstallCount > 0 {
		if !m.cfg.RequestConfirmation(confirmPrompt(p)) {
			return InstallOutcome{}, appcore.NewError(appcore.KindPlanBlocked, "installation was not confirmed").WithAppID(appID)
		}
	}

	var outcome InstallOutcome
	for _, step := range p.Steps {
		if step.Action != plan.ActionInstall {
			continue
		}

		rec, result, err := m.installStep(ctx, step.AppID)
		if err != nil {
			if ae, ok := err.(*appcore.AppError); ok {
				ae.WithStep(step.AppID)
			}
			return InstallOutcome{}, err
		}

		outcome = InstallOutcome{Record: rec, Result: result}
	}

	return outcome, nil
}

// installStep runs the fetch/verify/run/record sequence for a single
// app_id and returns the record that was (or would have been, in a
// non-recorded dry-run) committed.
func (m *Manager) installStep(ctx context.Context, appID string) (appcore.InstallRecord, runner.RunResult, error) {
	d, err := m.cat.Get(appID)
	if err != nil {
		return appcore.InstallRecord{}, runner.RunResult{}, err
	}

	path, err := m.fetch.Fetch(ctx, d)
	if err != nil {
		return appcore.InstallRecord{}, runner.RunResult{}, err
	}

	artifact, err := m.verify.Verify(d, path)
	if err != nil {
		return appcore.InstallRecord{}, runner.RunResult{}, err
	}

	result, err := m.run.Install(ctx, d, path)
	if err != nil {
		return appcore.InstallRecord{}, result, err
	}

	if m.run.DryRun && !m.cfg.RecordDryRunInstalls {
		return appcore.InstallRecord{}, result, nil
	}

	deps, err := m.transitiveDependencies(d.AppID)
	if err != nil {
		return appcore.InstallRecord{}, result, err
	}

	rec := appcore.InstallRecord{
		AppID:                 d.AppID,
		Version:               d.Version,
		InstallerPath:         path,
		InstalledAt:           time.Now().UTC(),
		DependenciesInstalled: deps,
		HashVerified:          artifact.HashVerified,
		SignatureVerified:     artifact.SignatureVerified,
	}

	if err := m.store.MarkInstalled(rec); err != nil {
		return appcore.InstallRecord{}, result, err
	}

	return rec, result, nil
}

// transitiveDependencies computes every dependency app_id of appID that
// is currently present in the State Store, following the catalog's
// dependency graph to full closure rather than just the descriptor's
// direct dependency list.
func (m *Manager) transitiveDependencies(appID string) ([]string, error) {
	d, err := m.cat.Get(appID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var closure []string

	var walk func(id string) error
	walk = func(id string) error {
		desc, err := m.cat.Get(id)
		if err != nil {
			return nil // a dependency missing from the catalog cannot be "installed"
		}
		for _, dep := range desc.Dependencies {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if ok, err := m.store.Contains(dep); err != nil {
				return err
			} else if ok {
				closure = append(closure, dep)
			}
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(d.AppID); err != nil {
		return nil, err
	}
	return closure, nil
}

// Uninstall removes appID after checking that no remaining InstallRecord
// still depends on it.
func (m *Manager) Uninstall(ctx context.Context, appID string) (runner.RunResult, error) {
	d, err := m.cat.Get(appID)
	if err != nil {
		return runner.RunResult{}, err
	}

	dependents, err := m.dependentsOf(appID)
	if err != nil {
		return runner.RunResult{}, err
	}
	if len(dependents) > 0 {
		e := appcore.NewError(appcore.KindDependencyHeld, "%d installed package(s) still depend on %q", len(dependents), appID).WithAppID(appID)
		e.Dependents = dependents
		return runner.RunResult{}, e
	}

	rec, recErr := m.store.Get(appID)
	var path string
	if recErr == nil {
		path = rec.InstallerPath
	}

	result, err := m.run.Uninstall(ctx, d, path)
	if err != nil {
		return result, err
	}

	if err := m.store.MarkUninstalled(appID); err != nil {
		return result, err
	}
	return result, nil
}

// Status returns the InstallRecord for appID, or every record when appID
// is empty.
func (m *Manager) Status(appID string) ([]appcore.InstallRecord, error) {
	if appID == "" {
		return m.store.List()
	}
	rec, err := m.store.Get(appID)
	if err != nil {
		return nil, err
	}
	return []appcore.InstallRecord{rec}, nil
}

// Why reports every installed app_id whose recorded DependenciesInstalled
// includes appID — the read-only half of the uninstall guard, surfaced so
// a host can explain a dependency relationship before attempting an
// uninstall rather than only after it fails.
func (m *Manager) Why(appID string) ([]string, error) {
	return m.dependentsOf(appID)
}

func (m *Manager) dependentsOf(appID string) ([]string, error) {
	records, err := m.store.List()
	if err != nil {
		return nil, err
	}

	var dependents []string
	for _, rec := range records {
		for _, dep := range rec.DependenciesInstalled {
			if dep == appID {
				dependents = append(dependents, rec.AppID)
				break
			}
		}
	}
	return dependents, nil
}

func confirmPrompt(p plan.InstallPlan) string {
	return "install " + p.AppID + " (" + strconv.Itoa(p.InstallCount) + " package(s) to install)?"
}
