package errorbank

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the API answers it.
type Kind string

const (
	KindBadRequest Kind = "bad_request"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

type kindInfo struct {
	status  int
	message string
}

// Status codes and the message used when a constructor gets none.
var kinds = map[Kind]kindInfo{
	KindBadRequest: {http.StatusBadRequest, "Requisição inválida"},
	KindNotFound:   {http.StatusNotFound, "Recurso não encontrado"},
	KindConflict:   {http.StatusConflict, "Conflito com o estado atual do recurso"},
	KindInternal:   {http.StatusInternalServerError, "Erro interno do servidor"},
}

// MsgValidation heads every response listing rejected fields.
const MsgValidation = "Erro de validação"

// Violation describes a single rejected input field. Field is prefixed with
// where it came from: body.data_abertura, query.dia, params.id.
type Violation struct {
	Field   string `json:"campo"`
	Message string `json:"mensagem"`
}

// Violations collects rejected fields while a request is checked.
type Violations []Violation

// Add records a rejected field.
func (v *Violations) Add(field, message string) {
	*v = append(*v, Violation{Field: field, Message: message})
}

// Err is nil when nothing was rejected, else a validation error listing v.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return Validation(MsgValidation, v)
}

// AppError is an error the transports know how to answer.
type AppError struct {
	kind       Kind
	message    string
	violations []Violation
	cause      error
}

// Option mutates an AppError during construction.
type Option func(*AppError)

// WithCause attaches the underlying error. It is logged, and shown to the
// client only on 5xx answers.
func WithCause(err error) Option {
	return func(e *AppError) {
		e.cause = err
	}
}

// WithViolations attaches rejected fields.
func WithViolations(violations ...Violation) Option {
	return func(e *AppError) {
		e.violations = append(e.violations, violations...)
	}
}

// New builds an AppError. An unknown kind is treated as internal, and an
// empty message takes the kind's default.
func New(kind Kind, message string, opts ...Option) *AppError {
	info, ok := kinds[kind]
	if !ok {
		kind, info = KindInternal, kinds[KindInternal]
	}
	if message == "" {
		message = info.message
	}
	e := &AppError{kind: kind, message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BadRequest builds a 400 error.
func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

// Validation builds a 400 error listing the rejected fields.
func Validation(message string, violations []Violation, opts ...Option) *AppError {
	if message == "" {
		message = MsgValidation
	}
	return New(KindBadRequest, message, append(opts, WithViolations(violations...))...)
}

// Invalid rejects a single field.
func Invalid(field, message string) *AppError {
	return Validation(MsgValidation, []Violation{{Field: field, Message: message}})
}

// NotFound builds a 404 error.
func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

// Conflict builds a 409 error.
func Conflict(message string, opts ...Option) *AppError {
	return New(KindConflict, message, opts...)
}

// Internal builds a 500 error.
func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From returns err as an AppError, wrapping anything unexpected as internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var e *AppError
	if errors.As(err, &e) {
		return e
	}
	return Internal("", WithCause(err))
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *AppError
	return errors.As(err, &e) && e.kind == kind
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Cause returns the wrapped error, if any.
func (e *AppError) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind returns the error category; internal for a nil error.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the client-facing message.
func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Violations returns the rejected fields, if any.
func (e *AppError) Violations() []Violation {
	if e == nil {
		return nil
	}
	return e.violations
}

// Rejects reports whether field is among the violations.
func (e *AppError) Rejects(field string) bool {
	for _, v := range e.Violations() {
		if v.Field == field {
			return true
		}
	}
	return false
}

// StatusCode resolves the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return kinds[e.kind].status
}
