package plan

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winforge/pkg/appcore"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/state"
)

func mustCatalog(t *testing.T, doc string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)
	return c
}

func hash(b byte) string {
	return strings.Repeat(string(rune('a'+b%26)), 64)
}

func TestPlanOrdersDependenciesBeforeTarget(t *testing.T) {
	doc := `[
		{"app_id":"runtime","name":"Runtime","version":"1.0","uri":"file://r.exe","installer_kind":"exe","sha256":"` + hash(0) + `"},
		{"app_id":"app","name":"App","version":"1.0","uri":"file://a.exe","installer_kind":"exe","dependencies":["runtime"],"sha256":"` + hash(1) + `"}
	]`
	c := mustCatalog(t, doc)
	s := state.Open(filepath.Join(t.TempDir(), "state.json"))

	p, err := Plan("app", c, s)
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	assert.Equal(t, "runtime", p.Steps[0].AppID)
	assert.Equal(t, "app", p.Steps[1].AppID)
	assert.True(t, p.IsExecutable)
	assert.Equal(t, 2, p.InstallCount)
}

func TestPlanEmitsSkipWhenVersionMatchesStateStore(t *testing.T) {
	doc := `[{"app_id":"app","name":"App","version":"1.0.0","uri":"file://a.exe","installer_kind":"exe","sha256":"` + hash(0) + `"}]`
	c := mustCatalog(t, doc)

	statePath := filepath.Join(t.TempDir(), "state.json")
	s := state.Open(statePath)
	require.NoError(t, s.MarkInstalled(appcore.InstallRecord{AppID: "app", Version: "1.0.0", InstalledAt: time.Now().UTC()}))

	p, err := Plan("app", c, s)
	require.NoError(t, err)

	require.Len(t, p.Steps, 1)
	assert.Equal(t, ActionSkip, p.Steps[0].Action)
	assert.Equal(t, 1, p.SkipCount)
}

func TestPlanEmitsInstallOnVersionMismatch(t *testing.T) {
	doc := `[{"app_id":"app","name":"App","version":"2.0.0","uri":"file://a.exe","installer_kind":"exe","sha256":"` + hash(0) + `"}]`
	c := mustCatalog(t, doc)

	statePath := filepath.Join(t.TempDir(), "state.json")
	s := state.Open(statePath)
	require.NoError(t, s.MarkInstalled(appcore.InstallRecord{AppID: "app", Version: "1.0.0"}))

	p, err := Plan("app", c, s)
	require.NoError(t, err)

	require.Len(t, p.Steps, 1)
	assert.Equal(t, ActionInstall, p.Steps[0].Action)
}

func TestPlanDetectsCycleAndBlocksParticipants(t *testing.T) {
	doc := `[
		{"app_id":"a","name":"A","version":"1.0","uri":"file://a.exe","installer_kind":"exe","dependencies":["b"],"sha256":"` + hash(0) + `"},
		{"app_id":"b","name":"B","version":"1.0","uri":"file://b.exe","installer_kind":"exe","dependencies":["a"],"sha256":"` + hash(1) + `"}
	]`
	c := mustCatalog(t, doc)
	s := state.Open(filepath.Join(t.TempDir(), "state.json"))

	p, err := Plan("a", c, s)
	require.NoError(t, err)

	assert.False(t, p.IsExecutable)
	require.NotEmpty(t, p.Warnings)
	for _, step := range p.Steps {
		assert.Equal(t, ActionBlocked, step.Action)
	}
}

func TestPlanDetectsMissingDependency(t *testing.T) {
	doc := `[{"app_id":"app","name":"App","version":"1.0","uri":"file://a.exe","installer_kind":"exe","dependencies":["ghost"],"sha256":"` + hash(0) + `"}]`
	c := mustCatalog(t, doc)
	s := state.Open(filepath.Join(t.TempDir(), "state.json"))

	p, err := Plan("app", c, s)
	require.NoError(t, err)
	assert.False(t, p.IsExecutable)

	found := false
	for _, w := range p.Warnings {
		if strings.Contains(w, "MissingDependency") && strings.Contains(w, "ghost") {
			found = true
		}
	}
	assert.True(t, found, "expected a MissingDependency warning naming ghost, got %v", p.Warnings)
}

func TestPlanRejectsUnknownTargetAppID(t *testing.T) {
	c := mustCatalog(t, `[]`)
	s := state.Open(filepath.Join(t.TempDir(), "state.json"))

	_, err := Plan("missing", c, s)
	assert.Error(t, err)
}

func TestPlanDiamondDependencyVisitsSharedNodeOnce(t *testing.T) {
	doc := `[
		{"app_id":"shared","name":"Shared","version":"1.0","uri":"file://s.exe","installer_kind":"exe","sha256":"` + hash(0) + `"},
		{"app_id":"left","name":"Left","version":"1.0","uri":"file://l.exe","installer_kind":"exe","dependencies":["shared"],"sha256":"` + hash(1) + `"},
		{"app_id":"right","name":"Right","version":"1.0","uri":"file://r.exe","installer_kind":"exe","dependencies":["shared"],"sha256":"` + hash(2) + `"},
		{"app_id":"top","name":"Top","version":"1.0","uri":"file://t.exe","installer_kind":"exe","dependencies":["left","right"],"sha256":"` + hash(3) + `"}
	]`
	c := mustCatalog(t, doc)
	s := state.Open(filepath.Join(t.TempDir(), "state.json"))

	p, err := Plan("top", c, s)
	require.NoError(t, err)

	require.Len(t, p.Steps, 4)
	assert.Equal(t, "top", p.Steps[len(p.Steps)-1].AppID)
}
