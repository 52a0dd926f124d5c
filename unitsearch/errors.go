package unitsearch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/ops"
	"github.com/nonibytes/unitsearch/unitsearch/query"
)

type ErrorKind string

const (
	ErrLex           ErrorKind = "lex"
	ErrParse         ErrorKind = "parse"
	ErrUnknownField  ErrorKind = "unknown_field"
	ErrTypeMismatch  ErrorKind = "type_mismatch"
	ErrCoercion      ErrorKind = "coercion"
	ErrQueryRejected ErrorKind = "query_rejected"
	ErrSort          ErrorKind = "sort"
	ErrCursor        ErrorKind = "cursor"
	ErrExecution     ErrorKind = "execution"
	ErrSchema        ErrorKind = "schema"
	ErrFeature       ErrorKind = "feature_missing"
)

// Error is the structured error returned by Engine. Span is set for
// errors that point into the query text.
type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Span    *query.Span
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func SchemaError(msg string) *Error {
	return &Error{Kind: ErrSchema, Message: msg}
}

func UnknownFieldError(field string) *Error {
	return &Error{Kind: ErrUnknownField, Message: "unknown field", Field: field}
}

func CursorError(msg string) *Error {
	return &Error{Kind: ErrCursor, Message: msg}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// fromQueryError classifies a lexer or parser failure.
func fromQueryError(err error) *Error {
	var lexErr *query.LexError
	if errors.As(err, &lexErr) {
		return &Error{
			Kind:    ErrLex,
			Message: strings.ReplaceAll(string(lexErr.Kind), "_", " "),
			Span:    &query.Span{Start: lexErr.Offset, End: lexErr.Offset + 1},
			Cause:   err,
		}
	}

	var pe *query.ParseError
	if !errors.As(err, &pe) {
		return Wrap(ErrParse, "parse query", err)
	}

	e := &Error{Field: pe.Field, Span: &pe.Span, Cause: err}
	switch pe.Kind {
	case query.ErrUnknownField:
		e.Kind, e.Message = ErrUnknownField, "unknown field"
	case query.ErrOperatorMismatch:
		e.Kind, e.Message = ErrTypeMismatch, "operator not supported by field"
	case query.ErrCoercion:
		e.Kind, e.Message = ErrCoercion, "invalid value"
		var ce *fields.CoercionError
		if errors.As(err, &ce) {
			e.Message = string(ce.Kind)
		}
	case query.ErrTooComplex:
		e.Kind, e.Message = ErrQueryRejected, "query too complex"
	default:
		e.Kind, e.Message = ErrParse, string(pe.Kind)
	}
	return e
}

// fromExecError classifies a store failure.
func fromExecError(msg string, err error) *Error {
	var ee *ops.ExecutionError
	if errors.As(err, &ee) {
		return Wrap(ErrExecution, msg, err)
	}
	return Wrap(ErrFeature, msg, err)
}
