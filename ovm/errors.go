package ovm

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Undecided is an expected outcome meaning "retry with more information";
// every other kind signals malformed input or an infrastructure failure.
type Kind string

const (
	KindInvalidWitness  Kind = "InvalidWitness"
	KindInvalidPreimage Kind = "InvalidPreimage"
	KindUndecided       Kind = "Undecided"
	KindCodec           Kind = "Codec"
	KindStore           Kind = "Store"
	KindNotImplemented  Kind = "NotImplemented"
	KindInvalidInput    Kind = "InvalidInput"
)

// Error is the engine's structured error type.
//
// RuleID is a stable identifier (e.g. OVM-WITNESS-001) naming the violated rule.
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsUndecided reports whether err means no decision could be reached yet.
func IsUndecided(err error) bool { return IsKind(err, KindUndecided) }

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
