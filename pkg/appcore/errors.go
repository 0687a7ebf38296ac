// Package appcore contains the types shared across the application
// management core: the package descriptor model and the closed tagged-union
// error surface returned by Catalog, Fetcher, Verifier, Runner, Planner and
// Manager.
package appcore

import "fmt"

// Kind identifies which branch of the closed error union an AppError carries.
type Kind string

const (
	KindCatalogError         Kind = "CatalogError"
	KindNotFound             Kind = "NotFound"
	KindPlanBlocked          Kind = "PlanBlocked"
	KindUnvettedDomain       Kind = "UnvettedDomain"
	KindUnsupportedScheme    Kind = "UnsupportedScheme"
	KindFetchFailed          Kind = "FetchFailed"
	KindHashMismatch         Kind = "HashMismatch"
	KindSignatureInvalid     Kind = "SignatureInvalid"
	KindCodeSigningRejected  Kind = "CodeSigningRejected"
	KindInstallerFailed      Kind = "InstallerFailed"
	KindUninstallUnsupported Kind = "UninstallUnsupported"
	KindDependencyHeld       Kind = "DependencyHeld"
	KindStateStoreError      Kind = "StateStoreError"
	KindLocalSourceMissing   Kind = "LocalSourceMissing"
)

// AppError is the single error type returned across component boundaries.
// Each Kind carries exactly the context needed to be rendered by a host
// without re-executing the failing step.
type AppError struct {
	Kind Kind
	// Step names the plan step that failed, set by the Manager when it
	// wraps a component error to indicate which step in the plan failed.
	Step string

	AppID string

	// ExitCode / Stderr are populated for KindInstallerFailed.
	ExitCode int
	Stderr   string

	// CodeSigningStatus is populated for KindCodeSigningRejected.
	CodeSigningStatus string

	// Dependents is populated for KindDependencyHeld.
	Dependents []string

	// Warnings is populated for KindPlanBlocked.
	Warnings []string

	// Source is the wrapped cause returned by Unwrap. No component in this
	// module sets it: the Fetcher writes the cause of a KindFetchFailed
	// into Message instead.
	Source error

	Message string
}

func (e *AppError) Error() string {
	msg := string(e.Kind)
	if e.AppID != "" {
		msg += "(" + e.AppID + ")"
	}
	if e.Step != "" {
		msg += " at step " + e.Step
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Source
}

// Is allows errors.Is(err, &AppError{Kind: KindX}) to match on Kind alone.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

func NewError(kind Kind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *AppError) WithAppID(id string) *AppError {
	e.AppID = id
	return e
}

func (e *AppError) WithStep(step string) *AppError {
	e.Step = step
	return e
}
