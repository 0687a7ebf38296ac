package appcore

import (
	"time"

	"golang.org/x/text/cases"
)

var domainFolder = cases.Fold()

// FoldDomain normalizes a hostname for case-insensitive comparison against
// vetted_domains. Plain ASCII lowercasing is not enough once a domain
// contains non-ASCII labels, so this uses Unicode case folding rather than
// strings.ToLower.
func FoldDomain(host string) string {
	return domainFolder.String(host)
}

// InstallerKind is the platform-native installer format a PackageDescriptor
// is distributed in.
type InstallerKind string

const (
	KindMSI  InstallerKind = "msi"
	KindEXE  InstallerKind = "exe"
	KindAPPX InstallerKind = "appx"
)

func (k InstallerKind) Valid() bool {
	switch k {
	case KindMSI, KindEXE, KindAPPX:
		return true
	default:
		return false
	}
}

// HMAC is the optional keyed-signature pair on a descriptor. Both fields
// are present or both are absent, enforced by the Catalog loader rather
// than by this type itself.
type HMAC struct {
	SignatureB64 string `json:"signature"`
	KeyB64       string `json:"signature_key"`
}

// PackageDescriptor is the immutable record produced by the Catalog for a
// single app_id. Instances are never mutated after Catalog.Load returns;
// mutating a descriptor obtained from a Catalog is a programming error.
type PackageDescriptor struct {
	AppID         string        `json:"app_id" validate:"required,appcore_app_id"`
	Name          string        `json:"name" validate:"required"`
	Version       string        `json:"version" validate:"required"`
	URI           string        `json:"uri" validate:"required,appcore_uri"`
	InstallerKind InstallerKind `json:"installer_kind" validate:"required,oneof=msi exe appx"`
	SHA256        string        `json:"sha256" validate:"required,len=64,hexadecimal,lowercase"`
	HMAC          *HMAC         `json:"hmac,omitempty"`
	VettedDomains []string      `json:"vetted_domains,omitempty"`
	Dependencies  []string      `json:"dependencies,omitempty"`
	SilentArgs    []string      `json:"silent_args,omitempty"`
	// UninstallCommand is a whitespace-tokenized command template; empty
	// means no uninstall command is configured.
	UninstallCommand []string `json:"uninstall_command,omitempty"`
}

// InstallRecord is the durable evidence that an app_id at a given version
// was successfully installed by this core. Stored one per app_id in the
// State Store.
type InstallRecord struct {
	AppID                 string    `json:"app_id"`
	Version               string    `json:"version"`
	InstallerPath         string    `json:"installer_path"`
	InstalledAt           time.Time `json:"installed_at"`
	DependenciesInstalled []string  `json:"dependencies_installed"`
	HashVerified          string    `json:"hash_verified"`
	SignatureVerified     bool      `json:"signature_verified"`
}
