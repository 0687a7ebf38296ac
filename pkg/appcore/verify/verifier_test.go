package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"winforge/pkg/appcore"
)

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.exe")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVerifyRejectsHashMismatch(t *testing.T) {
	path := writePayload(t, "bytes")
	v := New(nil, DefaultPolicy())

	wantHash := ""
	for len(wantHash) < 64 {
		wantHash += "0"
	}
	_, err := v.Verify(appcore.PackageDescriptor{AppID: "a", SHA256: wantHash, InstallerKind: appcore.KindEXE}, path)
	var ae *appcore.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, appcore.KindHashMismatch, ae.Kind)
}

func TestVerifyAcceptsCorrectHMAC(t *testing.T) {
	path := writePayload(t, "bytes")
	key := []byte("secret-key")
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("bytes"))
	sig := mac.Sum(nil)

	sum := sha256.Sum256([]byte("bytes"))
	d := appcore.PackageDescriptor{
		AppID:  "a",
		SHA256: hexEncode(sum[:]),
		HMAC: &appcore.HMAC{
			SignatureB64: base64.StdEncoding.EncodeToString(sig),
			KeyB64:       base64.StdEncoding.EncodeToString(key),
		},
		InstallerKind: appcore.KindMSI,
	}

	v := New(nil, DefaultPolicy())
	result, err := v.Verify(d, path)
	require.NoError(t, err)
	assert.True(t, result.SignatureVerified)
}

func TestVerifyRejectsIncorrectHMAC(t *testing.T) {
	path := writePayload(t, "bytes")
	key := []byte("secret-key")
	wrongSig := make([]byte, 32)

	sum := sha256.Sum256([]byte("bytes"))
	d := appcore.PackageDescriptor{
		AppID:  "a",
		SHA256: hexEncode(sum[:]),
		HMAC: &appcore.HMAC{
			SignatureB64: base64.StdEncoding.EncodeToString(wrongSig),
			KeyB64:       base64.StdEncoding.EncodeToString(key),
		},
		InstallerKind: appcore.KindMSI,
	}

	v := New(nil, DefaultPolicy())
	_, err := v.Verify(d, path)
	var ae *appcore.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, appcore.KindSignatureInvalid, ae.Kind)
}

func TestVerifySkipsHMACWhenDescriptorHasNone(t *testing.T) {
	path := writePayload(t, "bytes")
	sum := sha256.Sum256([]byte("bytes"))
	d := appcore.PackageDescriptor{AppID: "a", SHA256: hexEncode(sum[:]), InstallerKind: appcore.KindMSI}

	v := New(nil, DefaultPolicy())
	result, err := v.Verify(d, path)
	require.NoError(t, err)
	assert.False(t, result.SignatureVerified)
}

func TestVerifyRejectsUnacceptableAuthenticodeStatusWhenRequired(t *testing.T) {
	path := writePayload(t, "bytes")
	sum := sha256.Sum256([]byte("bytes"))
	d := appcore.PackageDescriptor{AppID: "a", SHA256: hexEncode(sum[:]), InstallerKind: appcore.KindEXE}

	policy := Policy{RequireAuthenticode: true, AcceptableStatuses: []AuthenticodeStatus{StatusValid}}
	v := New(NoOpBackend{}, policy)

	_, err := v.Verify(d, path)
	var ae *appcore.AppError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, appcore.KindCodeSigningRejected, ae.Kind)
	assert.Equal(t, string(StatusUnsigned), ae.CodeSigningStatus)
}

func TestVerifyToleratesUnsignedWhenAuthenticodeNotRequired(t *testing.T) {
	path := writePayload(t, "bytes")
	sum := sha256.Sum256([]byte("bytes"))
	d := appcore.PackageDescriptor{AppID: "a", SHA256: hexEncode(sum[:]), InstallerKind: appcore.KindEXE}

	v := New(NoOpBackend{}, DefaultPolicy())
	_, err := v.Verify(d, path)
	assert.NoError(t, err)
}

func TestVerifySkipsAuthenticodeForAPPX(t *testing.T) {
	path := writePayload(t, "bytes")
	sum := sha256.Sum256([]byte("bytes"))
	d := appcore.PackageDescriptor{AppID: "a", SHA256: hexEncode(sum[:]), InstallerKind: appcore.KindAPPX}

	policy := Policy{RequireAuthenticode: true, AcceptableStatuses: []AuthenticodeStatus{StatusValid}}
	v := New(NoOpBackend{}, policy)

	result, err := v.Verify(d, path)
	require.NoError(t, err)
	assert.Nil(t, result.Authenticode)
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}
