package query

import "fmt"

// ErrorKind classifies a parse failure
type ErrorKind string

const (
	ErrUnknownField     ErrorKind = "unknown_field"
	ErrUnmatchedParen   ErrorKind = "unmatched_paren"
	ErrUnexpectedToken  ErrorKind = "unexpected_token"
	ErrOperatorMismatch ErrorKind = "operator_mismatch"
	ErrMalformedRange   ErrorKind = "malformed_range"
	ErrCoercion         ErrorKind = "coercion"
	ErrEmptyTerm        ErrorKind = "empty_term"
	ErrEmptyQuery       ErrorKind = "empty_query"
	ErrTooComplex       ErrorKind = "too_complex"

	ErrUnterminatedString ErrorKind = "unterminated_string"
	ErrUnterminatedRegex  ErrorKind = "unterminated_regex"
)

// ParseError locates a rejected query fragment. Cause holds the
// *fields.CoercionError for ErrCoercion.
type ParseError struct {
	Kind  ErrorKind
	Span  Span
	Field string
	Token string
	Cause error
}

func (e *ParseError) Error() string {
	base := fmt.Sprintf("%s at %d-%d", e.Kind, e.Span.Start, e.Span.End)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Token != "" {
		base = fmt.Sprintf("%s near %q", base, e.Token)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
