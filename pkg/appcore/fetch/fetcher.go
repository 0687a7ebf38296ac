// Package fetch implements the Fetcher: retrieving installer bytes from
// an https:// or file:// URI, honoring per-descriptor domain allow-lists,
// and caching verified downloads under a path derived from app_id, reused
// only while their on-disk sha256 still matches. Downloads are streamed
// through an io.MultiWriter into a hasher and a sibling temp file in the
// download directory, then renamed into place on success or deleted on a
// hash mismatch.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"winforge/pkg/appcore"

	"github.com/pkg/errors"
)

// Fetcher retrieves and caches installer artifacts under a download
// directory owned by the Manager.
type Fetcher struct {
	downloadDir string
	client      *http.Client
}

// New returns a Fetcher that stages downloads under downloadDir and
// identifies itself to HTTPS origins as userAgent.
func New(downloadDir, userAgent string) *Fetcher {
	if userAgent == "" {
		userAgent = "winforge-appcore"
	}
	return &Fetcher{
		downloadDir: downloadDir,
		client:      newHTTPClient(userAgent),
	}
}

// Fetch retrieves descriptor's installer, returning the local path to a
// file whose on-disk sha256 equals descriptor.SHA256. It never returns a
// path whose hash does not match.
func (f *Fetcher) Fetch(ctx context.Context, d appcore.PackageDescriptor) (string, error) {
	u, err := url.Parse(d.URI)
	if err != nil {
		return "", appcore.NewError(appcore.KindUnsupportedScheme, "parse uri: %v", err).WithAppID(d.AppID)
	}

	switch u.Scheme {
	case "http":
		return "", appcore.NewError(appcore.KindUnsupportedScheme, "plain http is never permitted").WithAppID(d.AppID)
	case "https":
		host := appcore.FoldDomain(u.Hostname())
		if !vetted(host, d.VettedDomains) {
			return "", appcore.NewError(appcore.KindUnvettedDomain, "host %q is not in vetted_domains", host).WithAppID(d.AppID)
		}
	case "file":
		// handled below; no domain vetting applies to local sources.
	default:
		return "", appcore.NewError(appcore.KindUnsupportedScheme, "unsupported uri scheme %q", u.Scheme).WithAppID(d.AppID)
	}

	target := f.targetPath(d)

	if hit, err := cacheHit(target, d.SHA256); err != nil {
		return "", appcore.NewError(appcore.KindFetchFailed, "probe cache: %v", err).WithAppID(d.AppID)
	} else if hit {
		return target, nil
	}

	if err := os.MkdirAll(f.downloadDir, 0o755); err != nil {
		return "", appcore.NewError(appcore.KindFetchFailed, "create download dir: %v", err).WithAppID(d.AppID)
	}

	var src io.ReadCloser
	if u.Scheme == "file" {
		src, err = openLocal(u)
		if err != nil {
			return "", appcore.NewError(appcore.KindLocalSourceMissing, "%v", err).WithAppID(d.AppID)
		}
	} else {
		src, err = f.openHTTPS(ctx, d.URI)
		if err != nil {
			return "", appcore.NewError(appcore.KindFetchFailed, "%v", err).WithAppID(d.AppID)
		}
	}
	defer src.Close()

	return f.stageAndCommit(src, target, d.SHA256, d.AppID)
}

// stageAndCommit streams src into a sibling temp file while hashing, then
// renames into place on a hash match or deletes and fails on mismatch.
func (f *Fetcher) stageAndCommit(src io.Reader, target, wantSHA256, appID string) (string, error) {
	tmp, err := os.CreateTemp(f.downloadDir, filepath.Base(target)+".part-*")
	if err != nil {
		return "", appcore.NewError(appcore.KindFetchFailed, "create temp file: %v", err).WithAppID(appID)
	}
	tmpPath := tmp.Name()

	hasher := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(tmp, hasher), src)
	closeErr := tmp.Close()

	if copyErr != nil {
		os.Remove(tmpPath)
		return "", appcore.NewError(appcore.KindFetchFailed, "%v", copyErr).WithAppID(appID)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", appcore.NewError(appcore.KindFetchFailed, "%v", closeErr).WithAppID(appID)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if got != wantSHA256 {
		os.Remove(tmpPath)
		return "", appcore.NewError(appcore.KindHashMismatch, "expected %s, got %s", wantSHA256, got).WithAppID(appID)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", appcore.NewError(appcore.KindFetchFailed, "commit download: %v", err).WithAppID(appID)
	}

	return target, nil
}

func (f *Fetcher) openHTTPS(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "download")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

func openLocal(u *url.URL) (io.ReadCloser, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open local source %s", path)
	}
	return f, nil
}

// targetPath computes the deterministic on-disk cache path for a
// descriptor from its app_id and the URI's file extension.
func (f *Fetcher) targetPath(d appcore.PackageDescriptor) string {
	ext := filepath.Ext(basenameOf(d.URI))
	if ext == "" {
		ext = extensionFor(d.InstallerKind)
	}
	return filepath.Join(f.downloadDir, d.AppID+ext)
}

func extensionFor(k appcore.InstallerKind) string {
	switch k {
	case appcore.KindMSI:
		return ".msi"
	case appcore.KindAPPX:
		return ".appx"
	default:
		return ".exe"
	}
}

func basenameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return filepath.Base(u.Path)
}

// cacheHit reports whether target already exists on disk with a sha256
// matching want. Any mismatch is treated as a cache miss, not an error;
// the caller re-fetches and overwrites it.
func cacheHit(target, want string) (bool, error) {
	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(hasher.Sum(nil)) == want, nil
}

func vetted(host string, domains []string) bool {
	for _, d := range domains {
		if appcore.FoldDomain(d) == host {
			return true
		}
	}
	return false
}
