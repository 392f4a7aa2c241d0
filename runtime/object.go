package runtime

import (
	"fmt"
	"math/big"
	"reflect"
	"unicode/utf8"
)

// Object is any value the runtime can operate on. Built-in
// representations are ordinary Go values: int32 (narrow integer), int64
// (wide integer), *big.Int (arbitrary precision), float64, bool and
// string. A host program may register further representations with a
// Registry; an Instance carries a language-level Type.
type Object = any

// NotImplemented is the sentinel an operator implementation returns to
// decline its operands. It is an ordinary return value, not an error:
// the dispatch machinery checks for it and tries the other operand's
// implementation before giving up. It must never escape to language
// code as a result.
var NotImplemented Object = notImplemented{}

type notImplemented struct{}

func (notImplemented) String() string { return "NotImplemented" }

// Kind classifies a representation for handler-table lookup. Concrete
// kinds identify one built-in representation each; KindNumber is the
// general operand kind a numeric handler may accept in place of a
// concrete one, and KindAny plays the same role for non-numeric
// handlers.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt32
	KindInt64
	KindBigInt
	KindFloat
	KindBool
	KindString
	KindInstance

	// General kinds, usable only in handler table signatures.
	KindNumber
	KindAny
)

var kindNames = [...]string{
	KindNone:     "none",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindBigInt:   "bigint",
	KindFloat:    "float",
	KindBool:     "bool",
	KindString:   "str",
	KindInstance: "instance",
	KindNumber:   "number",
	KindAny:      "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind?"
}

// Repr identifies one concrete runtime representation: the kind, plus
// the reflect.Type for registered extension representations (nil for
// built-ins). Two operands dispatch identically exactly when their
// Reprs are equal, which is what the call-site guard compares.
type Repr struct {
	Kind  Kind
	RType reflect.Type
}

// KindOf classifies a value without consulting a registry. Extension
// representations come back as KindNone; the registry resolves those
// through its reflect.Type map.
func KindOf(o Object) Kind {
	switch o.(type) {
	case int32:
		return KindInt32
	case int64:
		return KindInt64
	case *big.Int:
		return KindBigInt
	case float64:
		return KindFloat
	case bool:
		return KindBool
	case string:
		return KindString
	case *Instance:
		return KindInstance
	}
	return KindNone
}

// TypeName returns the language-level type name of a value, as used in
// diagnostics ("int", "float", "str", ...).
func TypeName(o Object) string {
	switch v := o.(type) {
	case int32, int64, *big.Int:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case string:
		return "str"
	case *Instance:
		return v.Type().Name
	case nil:
		return "nil"
	case notImplemented:
		return "NotImplementedType"
	}
	return reflect.TypeOf(o).String()
}

// Repr200 renders a value for a diagnostic, truncated to 200 runes so a
// pathological operand cannot flood an error message. Truncation is on
// a rune boundary, never inside a multi-byte sequence.
func Repr200(o Object) string {
	s := fmt.Sprint(o)
	if utf8.RuneCountInString(s) <= 200 {
		return s
	}
	runes := []rune(s)
	return string(runes[:200])
}
