// Package verify implements the Verifier: hash, HMAC, and Authenticode
// checks over a downloaded installer artifact. Verify never modifies the
// file it inspects.
//
// The HMAC stage decodes a base64 signature and key, hashes the file, and
// compares with hmac.Equal, the Go idiom for a constant-time keyed-MAC
// check.
package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"

	"winforge/pkg/appcore"
)

// VerifiedArtifact is the result of a successful Verify call.
type VerifiedArtifact struct {
	Path              string
	HashVerified      string
	SignatureVerified bool
	Authenticode      *AuthenticodeResult
}

// Verifier runs the hash/HMAC/Authenticode pipeline over a path on behalf
// of a PackageDescriptor.
type Verifier struct {
	backend AuthenticodeBackend
	policy  Policy
}

// New returns a Verifier using backend for Authenticode checks, governed by
// policy. Pass NoOpBackend{} and DefaultPolicy() to disable code-signing
// checks entirely.
func New(backend AuthenticodeBackend, policy Policy) *Verifier {
	if backend == nil {
		backend = NoOpBackend{}
	}
	return &Verifier{backend: backend, policy: policy}
}

// Verify runs every applicable stage in order and returns the first
// failure encountered.
func (v *Verifier) Verify(d appcore.PackageDescriptor, path string) (VerifiedArtifact, error) {
	sum, err := sha256File(path)
	if err != nil {
		return VerifiedArtifact{}, appcore.NewError(appcore.KindHashMismatch, "read file for hashing: %v", err).WithAppID(d.AppID)
	}
	if sum != d.SHA256 {
		return VerifiedArtifact{}, appcore.NewError(appcore.KindHashMismatch, "expected %s, got %s", d.SHA256, sum).WithAppID(d.AppID)
	}

	result := VerifiedArtifact{Path: path, HashVerified: sum}

	if d.HMAC != nil {
		if err := verifyHMAC(path, *d.HMAC); err != nil {
			return VerifiedArtifact{}, appcore.NewError(appcore.KindSignatureInvalid, "%v", err).WithAppID(d.AppID)
		}
		result.SignatureVerified = true
	}

	if d.InstallerKind == appcore.KindMSI || d.InstallerKind == appcore.KindEXE {
		ac, err := v.backend.Check(path)
		if err != nil {
			return VerifiedArtifact{}, appcore.NewError(appcore.KindCodeSigningRejected, "authenticode check failed: %v", err).WithAppID(d.AppID)
		}
		result.Authenticode = &ac
		if !v.policy.accepts(ac.Status) {
			e := appcore.NewError(appcore.KindCodeSigningRejected, "status %s is not acceptable", ac.Status).WithAppID(d.AppID)
			e.CodeSigningStatus = string(ac.Status)
			return VerifiedArtifact{}, e
		}
	}

	return result, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyHMAC decodes the descriptor's base64 signature and key, computes
// HMAC-SHA256 over the file's bytes under that key, and compares the two
// using hmac.Equal so that verification time is independent of where the
// signatures first differ.
func verifyHMAC(path string, h appcore.HMAC) error {
	sig, err := base64.StdEncoding.DecodeString(h.SignatureB64)
	if err != nil {
		return err
	}
	key, err := base64.StdEncoding.DecodeString(h.KeyB64)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mac := hmac.New(sha256.New, key)
	if _, err := io.Copy(mac, f); err != nil {
		return err
	}

	if !hmac.Equal(mac.Sum(nil), sig) {
		return errInvalidSignature
	}
	return nil
}

var errInvalidSignature = invalidSignatureError{}

type invalidSignatureError struct{}

func (invalidSignatureError) Error() string { return "hmac signature does not match" }
