// Package plan implements the Planner: a pure function from an app_id, a
// Catalog, and a State Store snapshot to a dependency-ordered InstallPlan,
// with cycle and missing-dependency diagnostics.
//
// The traversal recurses into declared dependencies, resolving each
// against the catalog and falling back to string equality when a version
// does not parse as semver, using a three-color DFS for cycle detection
// and post-order step emission.
package plan

import (
	"github.com/Masterminds/semver/v3"

	"winforge/pkg/appcore"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/state"
)

// Action is the per-step disposition the Planner assigns to an app_id in
// the plan.
type Action string

const (
	ActionInstall Action = "Install"
	ActionSkip    Action = "Skip"
	ActionBlocked Action = "Blocked"
)

// Step is one entry in an InstallPlan, in the order the Manager must
// execute it.
type Step struct {
	AppID  string
	Action Action
}

// InstallPlan is the Planner's pure output for one target app_id.
type InstallPlan struct {
	AppID string
	Steps []Step

	// Warnings holds human-readable Cycle / MissingDependency diagnostics
	// in the order they were discovered.
	Warnings []string

	InstallCount int
	SkipCount    int
	// IsExecutable is false whenever any step carries ActionBlocked.
	IsExecutable bool
}

type color int

const (
	white color = iota // unvisited
	gray               // on the active DFS stack
	black              // done
)

// Plan computes the dependency-ordered InstallPlan for appID. It never
// mutates catalog or store and never performs I/O beyond the reads those
// two collaborators already expose.
func Plan(appID string, cat *catalog.Catalog, store *state.Store) (InstallPlan, error) {
	if !cat.Contains(appID) {
		return InstallPlan{}, appcore.NewError(appcore.KindNotFound, "unknown app_id %q", appID).WithAppID(appID)
	}

	w := &walker{
		cat:     cat,
		store:   store,
		colors:  make(map[string]color),
		blocked: make(map[string]bool),
		stack:   nil,
	}
	w.visit(appID)

	plan := InstallPlan{AppID: appID, Steps: w.steps, Warnings: w.warnings}
	for _, s := range plan.Steps {
		switch s.Action {
		case ActionInstall:
			plan.InstallCount++
		case ActionSkip:
			plan.SkipCount++
		}
	}
	plan.IsExecutable = true
	for _, s := range plan.Steps {
		if s.Action == ActionBlocked {
			plan.IsExecutable = false
			break
		}
	}

	return plan, nil
}

// walker carries DFS state across recursive visit calls. Holding it as a
// struct (rather than threading maps through every call) keeps the
// recursive signature close to resolver.go's resolveDependency.
type walker struct {
	cat   *catalog.Catalog
	store *state.Store

	colors  map[string]color
	blocked map[string]bool
	stack   []string

	steps    []Step
	warnings []string
}

func (w *walker) visit(appID string) {
	switch w.colors[appID] {
	case black:
		return
	case gray:
		w.reportCycle(appID)
		return
	}

	w.colors[appID] = gray
	w.stack = append(w.stack, appID)

	d, err := w.cat.Get(appID)
	if err != nil {
		// Get only fails for app_ids Contains would also reject; the
		// caller already checked the root, so this only fires for a
		// dependency id absent from the catalog.
		w.blocked[appID] = true
		w.warnings = append(w.warnings, "MissingDependency: "+appID+" is not present in the catalog")
	} else {
		for _, dep := range d.Dependencies {
			if !w.cat.Contains(dep) {
				w.blocked[appID] = true
				w.warnings = append(w.warnings, "MissingDependency: "+appID+" depends on "+dep+", which is not present in the catalog")
				continue
			}
			w.visit(dep)
			if w.blocked[dep] {
				w.blocked[appID] = true
			}
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	w.colors[appID] = black

	w.steps = append(w.steps, Step{AppID: appID, Action: w.action(appID, d, err == nil)})
}

// reportCycle fires when the DFS reaches an on-stack node again: every id
// from that node to the top of the stack is part of the cycle and is
// marked Blocked.
func (w *walker) reportCycle(appID string) {
	start := 0
	for i, id := range w.stack {
		if id == appID {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, w.stack[start:]...), appID)

	w.warnings = append(w.warnings, "Cycle: "+joinIDs(cycle))
	for _, id := range w.stack[start:] {
		w.blocked[id] = true
	}
}

func (w *walker) action(appID string, d appcore.PackageDescriptor, haveDescriptor bool) Action {
	if w.blocked[appID] {
		return ActionBlocked
	}
	if !haveDescriptor {
		return ActionBlocked
	}

	rec, err := w.store.Get(appID)
	if err != nil {
		// Not found in the State Store: needs installing.
		return ActionInstall
	}
	if versionsEqual(rec.Version, d.Version) {
		return ActionSkip
	}
	return ActionInstall
}

// versionsEqual compares two version strings as semver when both parse;
// otherwise it falls back to exact string equality, the same fallback
// resolveConflict used when comparing a lockfile version against a
// resolved one.
func versionsEqual(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Equal(vb)
	}
	return a == b
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}
