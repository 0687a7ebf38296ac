// Package catalog loads, validates, and indexes the immutable package
// descriptors that drive the rest of the application management core,
// from a single on-disk JSON document holding a top-level array of
// PackageDescriptor records.
package catalog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"winforge/pkg/appcore"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var appIDRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Catalog is an immutable, loaded-once index of PackageDescriptors keyed by
// app_id. The zero value is not usable; build one with Load or
// LoadFromReader.
type Catalog struct {
	order       []string
	descriptors map[string]appcore.PackageDescriptor
}

// Load reads and validates a catalog JSON document from path. Relative
// file:// URIs within descriptors are resolved against path's directory.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, appcore.NewError(appcore.KindCatalogError, "open catalog: %v", err)
	}
	defer f.Close()

	return LoadFromReader(f, filepath.Dir(path))
}

// LoadFromReader reads and validates a catalog JSON document from r.
// baseDir is used to resolve relative file:// URIs and may be empty if the
// catalog contains only absolute or https:// URIs.
func LoadFromReader(r io.Reader, baseDir string) (*Catalog, error) {
	var raw []rawDescriptor
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, appcore.NewError(appcore.KindCatalogError, "parse catalog: %v", err)
	}

	c := &Catalog{descriptors: make(map[string]appcore.PackageDescriptor, len(raw))}
	seen := make(map[string]bool, len(raw))

	// First pass: structural checks that must happen in document order
	// (duplicate detection, self-reference) before the concurrent
	// per-descriptor validation pass below.
	descs := make([]appcore.PackageDescriptor, len(raw))
	for i, rd := range raw {
		d, err := rd.toDescriptor(baseDir)
		if err != nil {
			return nil, err
		}

		if seen[d.AppID] {
			return nil, appcore.NewError(appcore.KindCatalogError, "duplicate app_id %q", d.AppID)
		}
		seen[d.AppID] = true

		for _, dep := range d.Dependencies {
			if dep == d.AppID {
				return nil, appcore.NewError(appcore.KindCatalogError, "app_id %q cannot depend on itself", d.AppID)
			}
		}

		descs[i] = d
	}

	v := newValidator()
	g := new(errgroup.Group)
	g.SetLimit(16)
	for _, d := range descs {
		d := d
		g.Go(func() error {
			return validateDescriptor(v, d)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, d := range descs {
		c.order = append(c.order, d.AppID)
		c.descriptors[d.AppID] = d
	}

	return c, nil
}

// Get returns the descriptor for app_id, or a KindNotFound AppError.
func (c *Catalog) Get(appID string) (appcore.PackageDescriptor, error) {
	d, ok := c.descriptors[appID]
	if !ok {
		return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindNotFound, "unknown app_id %q", appID).WithAppID(appID)
	}
	return d, nil
}

// Contains reports whether app_id is present in the catalog.
func (c *Catalog) Contains(appID string) bool {
	_, ok := c.descriptors[appID]
	return ok
}

// List returns every descriptor in catalog insertion order.
func (c *Catalog) List() []appcore.PackageDescriptor {
	out := make([]appcore.PackageDescriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.descriptors[id])
	}
	return out
}

// rawDescriptor mirrors the on-disk JSON shape before it is lowered
// into the frozen appcore.PackageDescriptor.
type rawDescriptor struct {
	AppID            string   `json:"app_id"`
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	URI              string   `json:"uri"`
	InstallerKind    string   `json:"installer_kind"`
	SHA256           string   `json:"sha256"`
	Signature        *string  `json:"signature,omitempty"`
	SignatureKey     *string  `json:"signature_key,omitempty"`
	VettedDomains    []string `json:"vetted_domains,omitempty"`
	Dependencies     []string `json:"dependencies,omitempty"`
	SilentArgs       []string `json:"silent_args,omitempty"`
	UninstallCommand *string  `json:"uninstall_command,omitempty"`
}

func (rd rawDescriptor) toDescriptor(baseDir string) (appcore.PackageDescriptor, error) {
	if rd.AppID == "" {
		return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "missing required field app_id")
	}
	if rd.Name == "" || rd.Version == "" || rd.URI == "" || rd.InstallerKind == "" || rd.SHA256 == "" {
		return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "app_id %q is missing a required field", rd.AppID)
	}

	kind := appcore.InstallerKind(strings.ToLower(rd.InstallerKind))
	if !kind.Valid() {
		return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "app_id %q has unknown installer_kind %q", rd.AppID, rd.InstallerKind)
	}

	if (rd.Signature == nil) != (rd.SignatureKey == nil) {
		return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "app_id %q has an unpaired hmac signature/key", rd.AppID)
	}

	var hmac *appcore.HMAC
	if rd.Signature != nil {
		if _, err := base64.StdEncoding.DecodeString(*rd.Signature); err != nil {
			return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "app_id %q has a malformed hmac signature: %v", rd.AppID, err)
		}
		if _, err := base64.StdEncoding.DecodeString(*rd.SignatureKey); err != nil {
			return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "app_id %q has a malformed hmac key: %v", rd.AppID, err)
		}
		hmac = &appcore.HMAC{SignatureB64: *rd.Signature, KeyB64: *rd.SignatureKey}
	}

	uri, err := resolveURI(rd.URI, baseDir)
	if err != nil {
		return appcore.PackageDescriptor{}, appcore.NewError(appcore.KindCatalogError, "app_id %q has an invalid uri: %v", rd.AppID, err)
	}

	var uninstall []string
	if rd.UninstallCommand != nil {
		uninstall = strings.Fields(*rd.UninstallCommand)
	}

	return appcore.PackageDescriptor{
		AppID:            rd.AppID,
		Name:             rd.Name,
		Version:          rd.Version,
		URI:              uri,
		InstallerKind:    kind,
		SHA256:           strings.ToLower(rd.SHA256),
		HMAC:             hmac,
		VettedDomains:    rd.VettedDomains,
		Dependencies:     rd.Dependencies,
		SilentArgs:       rd.SilentArgs,
		UninstallCommand: uninstall,
	}, nil
}

// resolveURI resolves a relative file:// URI against baseDir. Absolute
// file:// and https:// URIs pass through unchanged.
func resolveURI(raw, baseDir string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https", "http":
		return raw, nil
	case "file":
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		// "file://./x.msi" and "file://x.msi" parse with the first path
		// segment as the host; put it back so the path stays relative.
		if u.Host != "" {
			path = u.Host + path
		}
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		return "file://" + filepath.ToSlash(path), nil
	default:
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
}

func validateDescriptor(v *validator.Validate, d appcore.PackageDescriptor) error {
	if err := v.Struct(d); err != nil {
		return errors.Wrapf(appcore.NewError(appcore.KindCatalogError, "validation failed: %v", err), "app_id %q", d.AppID)
	}

	u, _ := url.Parse(d.URI)
	if u != nil && u.Scheme == "https" {
		if len(d.VettedDomains) == 0 {
			return appcore.NewError(appcore.KindCatalogError, "app_id %q uses an https uri but declares no vetted_domains", d.AppID).WithAppID(d.AppID)
		}

		host := appcore.FoldDomain(u.Hostname())
		found := false
		for _, vd := range d.VettedDomains {
			if appcore.FoldDomain(vd) == host {
				found = true
				break
			}
		}
		if !found {
			return appcore.NewError(appcore.KindCatalogError, "app_id %q has vetted_domains that do not include its own uri host %q", d.AppID, host).WithAppID(d.AppID)
		}
	}

	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("appcore_app_id", func(fl validator.FieldLevel) bool {
		return appIDRegexp.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("appcore_uri", func(fl validator.FieldLevel) bool {
		uri := fl.Field().String()
		return strings.HasPrefix(uri, "https://") || strings.HasPrefix(uri, "file://")
	})
	return v
}
