package domain

import "errors"

// Kind classifies a failure so the transport layer can translate it without
// inspecting messages. It is exposed to API clients as extensions.code.
type Kind string

const (
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "FORBIDDEN_ROLE"
	KindNotFound           Kind = "NOT_FOUND"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindStore              Kind = "STORE_FAILURE"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, logged but never sent to clients
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

// Extensions satisfies the graphql resolver-error interface so the kind
// travels to clients as extensions.code.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Kind)}
}

func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Msg: "invalid credentials"}
}

func InvalidToken(err error) *Error {
	return &Error{Kind: KindInvalidToken, Msg: "invalid token", Err: err}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Store masks a persistence failure behind an operation-specific message; the
// cause stays attached for operator logs only.
func Store(msg string, err error) *Error {
	return &Error{Kind: KindStore, Msg: msg, Err: err}
}

// KindOf extracts the Kind from any error in the chain, or "" for untyped
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
