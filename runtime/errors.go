package runtime

import (
	"fmt"
	"strings"
)

// All core failures are synchronous, non-retryable and structured: the
// caller gets a typed error carrying enough data to build a
// user-facing message, and Error() composes the committed diagnostic
// text. None of the subsystems recovers or retries internally.

// OperatorError reports a dispatch failure: no applicable operator
// implementation after trying both operand handlers (one handler for
// unary operators).
type OperatorError struct {
	Symbol    string
	Unary     bool
	TypeNames []string
}

func (e *OperatorError) Error() string {
	if e.Unary {
		return fmt.Sprintf("bad operand type for unary %s: '%.200s'",
			e.Symbol, e.TypeNames[0])
	}
	return fmt.Sprintf("unsupported operand type(s) for %s: '%.200s' and '%.200s'",
		e.Symbol, e.TypeNames[0], e.TypeNames[1])
}

// MROError reports that a type's declared bases cannot be linearized.
// Conflicting names the heads left unmerged; there are at least two.
type MROError struct {
	TypeName    string
	Conflicting []string
}

func (e *MROError) Error() string {
	return fmt.Sprintf(
		"cannot create a consistent method resolution order (MRO) for bases (%s)",
		strings.Join(e.Conflicting, ", "))
}

// ArgKind subdivides call-binding failures.
type ArgKind uint8

const (
	TooManyPositional ArgKind = iota
	MultipleValues
	UnexpectedKeyword
	PositionalOnlyKeyword
	MissingPositional
	MissingKeywordOnly
)

// ArgumentError reports a call-binding failure. The populated fields
// depend on Kind; Error() formats the committed diagnostic for each.
type ArgumentError struct {
	Kind     ArgKind
	FuncName string

	// TooManyPositional
	Given   int // positional arguments supplied
	Min     int // fewest positional parameters acceptable
	Max     int // most positional parameters acceptable
	KwGiven int // keyword-only arguments also supplied

	// MultipleValues / UnexpectedKeyword: the offending name.
	// PositionalOnlyKeyword / Missing*: every offending name.
	Names []string
}

func (e *ArgumentError) Error() string {
	switch e.Kind {
	case TooManyPositional:
		return e.tooManyPositional()
	case MultipleValues:
		return fmt.Sprintf("%.200s(): multiple values for argument '%s'",
			e.FuncName, e.Names[0])
	case UnexpectedKeyword:
		return fmt.Sprintf("%.200s(): unexpected keyword argument '%s'",
			e.FuncName, e.Names[0])
	case PositionalOnlyKeyword:
		return fmt.Sprintf("%.200s(): positional-only arguments passed by keyword: %s",
			e.FuncName, strings.Join(e.Names, ", "))
	case MissingPositional:
		return e.missing("positional")
	case MissingKeywordOnly:
		return e.missing("keyword-only")
	}
	return fmt.Sprintf("%.200s(): invalid arguments", e.FuncName)
}

func (e *ArgumentError) tooManyPositional() string {
	var posText string
	posPlural := false
	switch {
	case e.Min < e.Max:
		posPlural = true
		posText = fmt.Sprintf("from %d to %d", e.Min, e.Max)
	case e.Max == 0:
		posPlural = true
		posText = "no"
	default:
		posPlural = e.Max != 1
		posText = fmt.Sprintf("%d", e.Max)
	}

	givenText := ""
	if e.KwGiven > 0 {
		givenText = fmt.Sprintf(" positional argument%s (and %d keyword-only argument%s)",
			plural(e.Given), e.KwGiven, plural(e.KwGiven))
	}

	verb := "were"
	if e.Given == 1 && e.KwGiven == 0 {
		verb = "was"
	}
	return fmt.Sprintf("%s() takes %s positional argument%s but %d%s %s given",
		e.FuncName, posText, pluralIf(posPlural), e.Given, givenText, verb)
}

func (e *ArgumentError) missing(kind string) string {
	n := len(e.Names)
	return fmt.Sprintf("%s() missing %d required %s argument%s: %s",
		e.FuncName, n, kind, plural(n), joinAnd(e.Names))
}

// joinAnd renders a name list as "a", "a and b" or "a, b and c".
func joinAnd(names []string) string {
	switch n := len(names); n {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:n-2], ", ") +
			", " + names[n-2] + " and " + names[n-1]
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralIf(p bool) string {
	if p {
		return "s"
	}
	return ""
}

// SignatureError reports an invalid parameter signature at
// construction time (a defect in the caller, not in any call).
type SignatureError struct {
	FuncName string
	Reason   string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("invalid signature for %s(): %s", e.FuncName, e.Reason)
}
