package catalog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winforge/pkg/appcore"
)

func TestLoadFromReaderParsesValidCatalog(t *testing.T) {
	doc := `[
		{
			"app_id": "acme.editor",
			"name": "Acme Editor",
			"version": "2.1.0",
			"uri": "file://./editor.msi",
			"installer_kind": "MSI",
			"sha256": "` + strings.Repeat("a", 64) + `"
		}
	]`

	c, err := LoadFromReader(strings.NewReader(doc), "/srv/catalog")
	require.NoError(t, err)

	d, err := c.Get("acme.editor")
	require.NoError(t, err)
	assert.Equal(t, appcore.KindMSI, d.InstallerKind)

	want := "file://" + filepath.ToSlash(filepath.Join("/srv/catalog", "editor.msi"))
	assert.Equal(t, want, d.URI)
}

func TestLoadFromReaderRejectsDuplicateAppID(t *testing.T) {
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "file://a.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("a", 64) + `"},
		{"app_id": "a", "name": "A2", "version": "2", "uri": "file://b.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("b", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)

	var appErr *appcore.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appcore.KindCatalogError, appErr.Kind)
}

func TestLoadFromReaderRejectsSelfDependency(t *testing.T) {
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "file://a.exe", "installer_kind": "exe", "dependencies": ["a"], "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot depend on itself")
}

func TestLoadFromReaderRejectsHTTPSWithoutVettedDomain(t *testing.T) {
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "https://cdn.example.com/a.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)
}

func TestLoadFromReaderRejectsMismatchedVettedDomain(t *testing.T) {
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "https://cdn.example.com/a.exe",
		 "installer_kind": "exe", "vetted_domains": ["other.example.com"], "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)
}

func TestLoadFromReaderAcceptsMatchingVettedDomainCaseInsensitive(t *testing.T) {
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "https://CDN.example.com/a.exe",
		 "installer_kind": "exe", "vetted_domains": ["cdn.EXAMPLE.com"], "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)
}

func TestLoadFromReaderRejectsUnpairedHMAC(t *testing.T) {
	sig := "c2lnbmF0dXJl"
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "file://a.exe", "installer_kind": "exe",
		 "signature": "` + sig + `", "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)
}

func TestLoadFromReaderRejectsUnknownInstallerKind(t *testing.T) {
	doc := `[
		{"app_id": "a", "name": "A", "version": "1", "uri": "file://a.zip", "installer_kind": "zip", "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)
}

func TestLoadFromReaderRejectsInvalidAppID(t *testing.T) {
	doc := `[
		{"app_id": " has spaces ", "name": "A", "version": "1", "uri": "file://a.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("a", 64) + `"}
	]`

	_, err := LoadFromReader(strings.NewReader(doc), "")
	require.Error(t, err)
}

func TestGetUnknownAppIDReturnsNotFound(t *testing.T) {
	c, err := LoadFromReader(strings.NewReader(`[]`), "")
	require.NoError(t, err)

	_, err = c.Get("missing")
	var appErr *appcore.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appcore.KindNotFound, appErr.Kind)
}

func TestListPreservesDocumentOrder(t *testing.T) {
	doc := `[
		{"app_id": "z", "name": "Z", "version": "1", "uri": "file://z.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("a", 64) + `"},
		{"app_id": "a", "name": "A", "version": "1", "uri": "file://a.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("b", 64) + `"}
	]`

	c, err := LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "z", list[0].AppID)
	assert.Equal(t, "a", list[1].AppID)
}

func TestContainsReflectsLoadedDescriptors(t *testing.T) {
	doc := `[{"app_id": "a", "name": "A", "version": "1", "uri": "file://a.exe", "installer_kind": "exe", "sha256": "` + strings.Repeat("a", 64) + `"}]`
	c, err := LoadFromReader(strings.NewReader(doc), "")
	require.NoError(t, err)

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
}
