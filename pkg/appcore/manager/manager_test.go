package manager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winforge/pkg/appcore"
	"winforge/pkg/appcore/catalog"
	"winforge/pkg/appcore/config"
)

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func writeInstaller(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestManager(t *testing.T, catalogDoc string) *Manager {
	t.Helper()
	cat, err := catalog.LoadFromReader(strings.NewReader(catalogDoc), "")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.StateFile = filepath.Join(dir, "installed.json")
	cfg.DefaultDryRun = true

	return New(cat, cfg)
}

func TestInstallSingleAppDryRunDoesNotRecordState(t *testing.T) {
	srcDir := t.TempDir()
	installer := writeInstaller(t, srcDir, "app.exe", "installer bytes")

	doc := `[{"app_id":"app","name":"App","version":"1.0.0","uri":"file://` + filepath.ToSlash(installer) + `","installer_kind":"exe","sha256":"` + sha256Hex("installer bytes") + `"}]`
	m := newTestManager(t, doc)

	outcome, err := m.Install(context.Background(), "app")
	require.NoError(t, err)

	// Dry-run installs are not recorded by default.
	assert.Empty(t, outcome.Record.AppID)
	assert.Equal(t, 0, outcome.Result.ExitCode)
}

func TestInstallRecordsWhenDryRunRecordingEnabled(t *testing.T) {
	srcDir := t.TempDir()
	installer := writeInstaller(t, srcDir, "app.exe", "installer bytes")

	doc := `[{"app_id":"app","name":"App","version":"1.0.0","uri":"file://` + filepath.ToSlash(installer) + `","installer_kind":"exe","sha256":"` + sha256Hex("installer bytes") + `"}]`
	cat, err := catalog.LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.StateFile = filepath.Join(dir, "installed.json")
	cfg.DefaultDryRun = true
	cfg.RecordDryRunInstalls = true

	m := New(cat, cfg)
	outcome, err := m.Install(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, "app", outcome.Record.AppID)

	status, err := m.Status("app")
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "1.0.0", status[0].Version)
}

func TestInstallFailsWithPlanBlockedOnCycle(t *testing.T) {
	doc := `[
		{"app_id":"a","name":"A","version":"1.0","uri":"file://a.exe","installer_kind":"exe","dependencies":["b"],"sha256":"` + sha256Hex("a") + `"},
		{"app_id":"b","name":"B","version":"1.0","uri":"file://b.exe","installer_kind":"exe","dependencies":["a"],"sha256":"` + sha256Hex("b") + `"}
	]`
	m := newTestManager(t, doc)

	_, err := m.Install(context.Background(), "a")
	var ae *appcore.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, appcore.KindPlanBlocked, ae.Kind)
}

func TestUninstallGuardBlocksWhenDependentsRemain(t *testing.T) {
	srcDir := t.TempDir()
	runtimeInstaller := writeInstaller(t, srcDir, "runtime.exe", "runtime bytes")
	appInstaller := writeInstaller(t, srcDir, "app.exe", "app bytes")

	doc := `[
		{"app_id":"runtime","name":"Runtime","version":"1.0","uri":"file://` + filepath.ToSlash(runtimeInstaller) + `","installer_kind":"exe","sha256":"` + sha256Hex("runtime bytes") + `"},
		{"app_id":"app","name":"App","version":"1.0","uri":"file://` + filepath.ToSlash(appInstaller) + `","installer_kind":"exe","dependencies":["runtime"],"sha256":"` + sha256Hex("app bytes") + `"}
	]`
	cat, err := catalog.LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.StateFile = filepath.Join(dir, "installed.json")
	cfg.DefaultDryRun = true
	cfg.RecordDryRunInstalls = true

	m := New(cat, cfg)
	_, err = m.Install(context.Background(), "app")
	require.NoError(t, err)

	_, err = m.Uninstall(context.Background(), "runtime")
	var ae *appcore.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, appcore.KindDependencyHeld, ae.Kind)
	assert.Equal(t, []string{"app"}, ae.Dependents)
}

func TestWhyReportsDependents(t *testing.T) {
	srcDir := t.TempDir()
	runtimeInstaller := writeInstaller(t, srcDir, "runtime.exe", "runtime bytes")
	appInstaller := writeInstaller(t, srcDir, "app.exe", "app bytes")

	doc := `[
		{"app_id":"runtime","name":"Runtime","version":"1.0","uri":"file://` + filepath.ToSlash(runtimeInstaller) + `","installer_kind":"exe","sha256":"` + sha256Hex("runtime bytes") + `"},
		{"app_id":"app","name":"App","version":"1.0","uri":"file://` + filepath.ToSlash(appInstaller) + `","installer_kind":"exe","dependencies":["runtime"],"sha256":"` + sha256Hex("app bytes") + `"}
	]`
	cat, err := catalog.LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.StateFile = filepath.Join(dir, "installed.json")
	cfg.DefaultDryRun = true
	cfg.RecordDryRunInstalls = true

	m := New(cat, cfg)
	_, err = m.Install(context.Background(), "app")
	require.NoError(t, err)

	dependents, err := m.Why("runtime")
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, dependents)
}

func TestUninstallSucceedsWithNoDependents(t *testing.T) {
	srcDir := t.TempDir()
	installer := writeInstaller(t, srcDir, "app.exe", "app bytes")

	doc := `[{"app_id":"app","name":"App","version":"1.0","uri":"file://` + filepath.ToSlash(installer) + `","installer_kind":"exe","uninstall_command":"uninstall.exe /S","sha256":"` + sha256Hex("app bytes") + `"}]`
	cat, err := catalog.LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.StateFile = filepath.Join(dir, "installed.json")
	cfg.DefaultDryRun = true
	cfg.RecordDryRunInstalls = true

	m := New(cat, cfg)
	_, err = m.Install(context.Background(), "app")
	require.NoError(t, err)
	_, err = m.Uninstall(context.Background(), "app")
	require.NoError(t, err)

	_, err = m.Status("app")
	assert.Error(t, err)
}

func TestListAvailableReturnsCatalogContents(t *testing.T) {
	doc := `[{"app_id":"app","name":"App","version":"1.0","uri":"file://a.exe","installer_kind":"exe","sha256":"` + sha256Hex("x") + `"}]`
	m := newTestManager(t, doc)

	list := m.ListAvailable()
	require.Len(t, list, 1)
	assert.Equal(t, "app", list[0].AppID)
}
