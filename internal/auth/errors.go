package auth

import (
	"errors"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Stable codes returned to clients.
const (
	CodeValidation            = "validationFailed"
	CodeUserNotFound          = "userNotFound"
	CodeRoleNotFound          = "roleNotFound"
	CodePermissionNotFound    = "permissionNotFound"
	CodeCatNotFound           = "catNotFound"
	CodeUserExists            = "userExists"
	CodeRoleExists            = "roleExists"
	CodePermissionExists      = "permissionExists"
	CodePasswordIsIncorrect   = "passwordIsIncorrect"
	CodePasswordsAreDifferent = "passwordsAreDifferent"
	CodeIncorrectToken        = "incorrectToken"
	CodeInvalidToken          = "invalidToken"
	CodeMissingToken          = "missingToken"
	CodeTokenRevoked          = "tokenRevoked"
	CodeTokenWasExpired       = "tokenWasExpired"
	CodeForbidden             = "forbidden"

	CodeRoleHasPermissions = "roleHasAssociationWithPermission"
	CodePermissionHasRoles = "permissionHasAssociationWithRole"
)

// FieldError is a single schema violation.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error attaches a stable client code to one of the sentinel error classes.
type Error struct {
	Kind    error
	Code    string
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Path+" "+f.Message)
		}
		return e.Code + ": " + strings.Join(parts, "; ")
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(code string) error     { return &Error{Kind: ErrNotFound, Code: code} }
func Conflict(code string) error     { return &Error{Kind: ErrConflict, Code: code} }
func BadRequest(code string) error   { return &Error{Kind: ErrBadRequest, Code: code} }
func Unauthorized(code string) error { return &Error{Kind: ErrUnauthorized, Code: code} }
func Forbidden(code string) error    { return &Error{Kind: ErrForbidden, Code: code} }

// ConflictWith reports a referential conflict naming the blocking entities,
// e.g. "roleHasAssociationWithPermission: user:create, cat:create".
func ConflictWith(code string, names []string) error {
	return &Error{Kind: ErrConflict, Code: code, Message: code + ": " + strings.Join(names, ", ")}
}

// Validation wraps schema violations.
func Validation(fields []FieldError) error {
	return &Error{Kind: ErrValidation, Code: CodeValidation, Fields: fields}
}

// CodeOf returns the client code carried by err, if any.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// NotFoundAs turns a bare repository miss into a coded NotFound and passes
// every other error through untouched.
func NotFoundAs(err error, code string) error {
	if err == nil || !errors.Is(err, ErrNotFound) || CodeOf(err) != "" {
		return err
	}
	return NotFound(code)
}
