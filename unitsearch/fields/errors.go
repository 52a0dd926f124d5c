package fields

import "fmt"

// CoercionKind classifies a coercion failure
type CoercionKind string

const (
	UnparsableDate   CoercionKind = "unparsable_date"
	UnparsableNumber CoercionKind = "unparsable_number"
	UnparsableBool   CoercionKind = "unparsable_bool"
	UnknownEnumValue CoercionKind = "unknown_enum_value"
)

// CoercionError reports raw query text that does not fit a field's type.
type CoercionError struct {
	Kind  CoercionKind
	Field string
	Value string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: field=%s value=%q", e.Kind, e.Field, e.Value)
}
