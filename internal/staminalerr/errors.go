// Package staminalerr defines the typed error taxonomy of spec §7 and the
// wrap/compare helpers used throughout the host, in the same spirit as the
// teacher's kernel/utils/errors.go (fmt.Errorf-based wrap/new helpers) but
// extended with sentinel kinds so callers can branch with errors.Is/As.
package staminalerr

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy entries from spec §7.
type Kind string

const (
	AccessDenied         Kind = "AccessDenied"
	ManifestNotFound     Kind = "ManifestNotFound"
	ManifestInvalid      Kind = "ManifestInvalid"
	DependencyUnsatisfied Kind = "DependencyUnsatisfied"
	DependencyCycle      Kind = "DependencyCycle"
	ResourceNotFound     Kind = "ResourceNotFound"
	ResourceLoadFailed   Kind = "ResourceLoadFailed"
	EngineDisabled       Kind = "EngineDisabled"
	EngineAlreadyEnabled Kind = "EngineAlreadyEnabled"
	RuntimeNotRegistered Kind = "RuntimeNotRegistered"
	ScriptError          Kind = "ScriptError"
	NetworkError         Kind = "NetworkError"
	ConfigError          Kind = "ConfigError"
)

// Error is a taxonomy-tagged error carrying structured context.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error

	// Optional structured context, populated per-kind.
	ModID      string
	Constraint string
	Cycle      []string
	Status     int

	// exact marks messages whose wording is user-visible verbatim; Error()
	// returns them without the Kind prefix.
	exact bool
}

func (e *Error) Error() string {
	if e.exact {
		return e.Message
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is checks against the message-less sentinel for a Kind
// built by Sentinel below: any *Error of the same Kind matches it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinel returns a comparable placeholder for a Kind, suitable for
// errors.Is(err, staminalerr.Sentinel(staminalerr.AccessDenied)).
func Sentinel(k Kind) error { return &Error{Kind: k} }

// New creates a new typed error.
func New(k Kind, msg string) error {
	return &Error{Kind: k, Message: msg}
}

// Newf creates a new typed error with a formatted message.
func Newf(k Kind, format string, args ...interface{}) error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a Kind and message to an underlying error.
func Wrap(k Kind, err error, msg string) error {
	if err == nil {
		return New(k, msg)
	}
	return &Error{Kind: k, Message: msg, Wrapped: err}
}

// AccessDeniedf builds the exact message shape required by spec §7 for path
// traversal: "Access denied: path '<p>' escapes the permitted directory".
func AccessDeniedf(path string) error {
	return &Error{
		Kind:    AccessDenied,
		Message: fmt.Sprintf("Access denied: path '%s' escapes the permitted directory", path),
		exact:   true,
	}
}

// SideOnlyf builds the exact message shape required by spec §4.8 for
// misuse of a client-only/server-only operation.
func SideOnlyf(method, side, other string) error {
	return &Error{
		Kind:    ScriptError,
		Message: fmt.Sprintf("%s() is not available on the %s. This method is %s-only.", method, side, other),
		exact:   true,
	}
}

// CycleError reports a dependency cycle naming every participating mod, in
// the order the cycle was discovered, per spec §7/§8 scenario 5.
func CycleError(cycle []string) error {
	return &Error{
		Kind:    DependencyCycle,
		Message: fmt.Sprintf("dependency cycle: %s", joinCycle(cycle)),
		Cycle:   cycle,
	}
}

func joinCycle(cycle []string) string {
	out := ""
	for i, id := range cycle {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}

// KindOf extracts the Kind of err, if it (or something it wraps) is a
// *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
