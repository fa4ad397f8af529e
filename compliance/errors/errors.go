// Package errors provides the compliance runtime's unified error taxonomy.
//
// Every error kind named in spec §7 maps to a Kind constant here. Errors
// carry a stable Code (preserved across the wire, asserted on in tests)
// and support errors.As/errors.Is so callers branch on kind rather than
// string-matching messages.
package errors

import (
	"errors"
	"fmt"
)

// Kind is one of the error taxonomy buckets from spec §7.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindInvariant         Kind = "invariant"
	KindErasureValidation Kind = "erasure_validation"
	KindLegalHoldBlocked  Kind = "legal_hold_blocked"
	KindStateTransition   Kind = "state_transition"
	KindKeyNotFound       Kind = "key_not_found"
	KindCrypto            Kind = "crypto"
	KindBackupInvariant   Kind = "backup_invariant"
	KindDisposed          Kind = "disposed"
	KindCancelled         Kind = "cancelled"
)

// Code is a stable integer preserved across the wire (EncryptionErrorCode /
// MasterKeyBackupErrorCode in spec terms collapse into this single type;
// callers that need a name-spaced code can check Kind alongside it).
type Code int

const (
	CodeUnspecified Code = iota
	CodeNullArgument
	CodeDuplicateID
	CodeUnknownPrimary
	CodeUnknownLegacy
	CodeInvalidRequest
	CodeMissingTenant
	CodeMissingCategories
	CodeBlockedByLegalHold
	CodeInvalidStateTransition
	CodeConcurrentExecuteLost
	CodeKeyNotFound
	CodeDecryptionFailed
	CodeFIPSViolation
	CodeUnsupportedAlgorithm
	CodeUnsupportedCiphertext
	CodeShareMismatch
	CodeInsufficientShares
	CodeBackupExpired
	CodeDisposed
	CodeCancelled
	CodeMissingSigningKey
	CodeNotFound
	CodeInvalidSignature
)

// Error is the compliance runtime's structured error type.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s/%d] %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s/%d] %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, sentinel) style checks: it matches another
// *Error with the same Kind and Code, ignoring message/details.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && e.Code == other.Code
}

// WithDetails attaches a key/value pair and returns the error for chaining.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code Code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// GetKind extracts the Kind from an error chain, or "" if not a *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// GetCode extracts the Code from an error chain, or CodeUnspecified.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnspecified
}

// Is reports whether err is (wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Constructors, one family per §7 kind.

func Configuration(message string) *Error {
	return New(KindConfiguration, CodeNullArgument, message)
}

func ConfigurationWrap(message string, err error) *Error {
	return Wrap(KindConfiguration, CodeNullArgument, message, err)
}

func MissingSigningKey() *Error {
	return New(KindConfiguration, CodeMissingSigningKey, "signing key is required and must be at least 32 bytes")
}

func DuplicateProviderID(id string) *Error {
	return New(KindInvariant, CodeDuplicateID, "provider already registered").WithDetails("id", id)
}

func UnknownPrimary(id string) *Error {
	return New(KindInvariant, CodeUnknownPrimary, "primary provider is not registered").WithDetails("id", id)
}

func UnknownLegacy(id string) *Error {
	return New(KindInvariant, CodeUnknownLegacy, "legacy provider is not registered").WithDetails("id", id)
}

func NullArgument(name string) *Error {
	return New(KindConfiguration, CodeNullArgument, "argument must not be nil/empty").WithDetails("argument", name)
}

func InvalidErasureRequest(reason string) *Error {
	return New(KindErasureValidation, CodeInvalidRequest, reason)
}

func MissingTenant() *Error {
	return New(KindErasureValidation, CodeMissingTenant, "tenant scope requires a tenant id")
}

func MissingCategories() *Error {
	return New(KindErasureValidation, CodeMissingCategories, "selective scope requires at least one data category")
}

func BlockedByLegalHold(caseReference string) *Error {
	return New(KindLegalHoldBlocked, CodeBlockedByLegalHold,
		fmt.Sprintf("erasure is blocked by an active legal hold (case %s)", caseReference)).
		WithDetails("case_reference", caseReference)
}

func InvalidStateTransition(from, to string) *Error {
	return New(KindStateTransition, CodeInvalidStateTransition, "invalid state transition").
		WithDetails("from", from).WithDetails("to", to)
}

func ConcurrentExecuteLost(requestID string) *Error {
	return New(KindStateTransition, CodeConcurrentExecuteLost, "another execution claimed this request").
		WithDetails("request_id", requestID)
}

func KeyNotFound(keyID string) *Error {
	return New(KindKeyNotFound, CodeKeyNotFound, "key not found").WithDetails("key_id", keyID)
}

func DecryptionFailed(err error) *Error {
	return Wrap(KindCrypto, CodeDecryptionFailed, "decryption failed", err)
}

func FIPSViolation(algorithm string) *Error {
	return New(KindCrypto, CodeFIPSViolation, "algorithm is not FIPS-compliant").WithDetails("algorithm", algorithm)
}

func UnsupportedAlgorithm(algorithm string) *Error {
	return New(KindCrypto, CodeUnsupportedAlgorithm, "unsupported algorithm").WithDetails("algorithm", algorithm)
}

func UnsupportedCiphertext(reason string) *Error {
	return New(KindCrypto, CodeUnsupportedCiphertext, reason)
}

func ShareMismatch(reason string) *Error {
	return New(KindBackupInvariant, CodeShareMismatch, reason)
}

func InsufficientShares(have, need int) *Error {
	return New(KindBackupInvariant, CodeInsufficientShares, "insufficient shares to reconstruct").
		WithDetails("have", have).WithDetails("need", need)
}

func BackupExpired() *Error {
	return New(KindBackupInvariant, CodeBackupExpired, "backup or share has expired")
}

func Disposed(component string) *Error {
	return New(KindDisposed, CodeDisposed, "operation attempted after disposal").WithDetails("component", component)
}

func Cancelled() *Error {
	return New(KindCancelled, CodeCancelled, "operation was cancelled")
}

func NotFound(resource, id string) *Error {
	return New(KindErasureValidation, CodeNotFound, "resource not found").
		WithDetails("resource", resource).WithDetails("id", id)
}

func InvalidSignature(reason string) *Error {
	return New(KindCrypto, CodeInvalidSignature, reason)
}
