package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winforge/pkg/appcore"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestFetchRejectsPlainHTTP(t *testing.T) {
	f := New(t.TempDir(), "")
	d := appcore.PackageDescriptor{AppID: "a", URI: "http://cdn.example.com/a.exe", InstallerKind: appcore.KindEXE}

	_, err := f.Fetch(context.Background(), d)
	assertAppErrKind(t, err, appcore.KindUnsupportedScheme)
}

func TestFetchRejectsUnvettedHTTPSHost(t *testing.T) {
	f := New(t.TempDir(), "")
	d := appcore.PackageDescriptor{
		AppID:         "a",
		URI:           "https://evil.example.com/a.exe",
		InstallerKind: appcore.KindEXE,
		VettedDomains: []string{"cdn.example.com"},
	}

	_, err := f.Fetch(context.Background(), d)
	assertAppErrKind(t, err, appcore.KindUnvettedDomain)
}

func TestFetchCopiesLocalFileOnHashMatch(t *testing.T) {
	srcDir := t.TempDir()
	src := writeFile(t, filepath.Join(srcDir, "payload.exe"), "installer bytes")

	f := New(t.TempDir(), "")
	d := appcore.PackageDescriptor{
		AppID:         "a",
		URI:           "file://" + filepath.ToSlash(src),
		InstallerKind: appcore.KindEXE,
		SHA256:        sha256Hex("installer bytes"),
	}

	path, err := f.Fetch(context.Background(), d)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "installer bytes", string(got))
}

func TestFetchRejectsLocalFileHashMismatch(t *testing.T) {
	srcDir := t.TempDir()
	src := writeFile(t, filepath.Join(srcDir, "payload.exe"), "installer bytes")

	f := New(t.TempDir(), "")
	d := appcore.PackageDescriptor{
		AppID:         "a",
		URI:           "file://" + filepath.ToSlash(src),
		InstallerKind: appcore.KindEXE,
		SHA256:        sha256Hex("different bytes"),
	}

	_, err := f.Fetch(context.Background(), d)
	assertAppErrKind(t, err, appcore.KindHashMismatch)
}

func TestFetchReturnsLocalSourceMissingForAbsentFile(t *testing.T) {
	f := New(t.TempDir(), "")
	d := appcore.PackageDescriptor{
		AppID:         "a",
		URI:           "file:///no/such/file.exe",
		InstallerKind: appcore.KindEXE,
		SHA256:        sha256Hex("anything"),
	}

	_, err := f.Fetch(context.Background(), d)
	assertAppErrKind(t, err, appcore.KindLocalSourceMissing)
}

func TestFetchIsCacheHitWhenTargetAlreadyMatches(t *testing.T) {
	downloadDir := t.TempDir()
	d := appcore.PackageDescriptor{
		AppID:         "a",
		URI:           "file:///no/such/file.exe",
		InstallerKind: appcore.KindEXE,
		SHA256:        sha256Hex("cached bytes"),
	}

	f := New(downloadDir, "")
	writeFile(t, f.targetPath(d), "cached bytes")

	// The source file does not exist, so a cache miss would fail; Fetch
	// must short-circuit via the on-disk cache instead.
	path, err := f.Fetch(context.Background(), d)
	require.NoError(t, err)

	got, _ := os.ReadFile(path)
	assert.Equal(t, "cached bytes", string(got))
}

func assertAppErrKind(t *testing.T, err error, kind appcore.Kind) {
	t.Helper()
	require.Error(t, err)
	var ae *appcore.AppError
	require.ErrorAsf(t, err, &ae, "expected *appcore.AppError of kind %s, got %T: %v", kind, err, err)
	assert.Equal(t, kind, ae.Kind)
}
