package runtime

import (
	"fmt"
	"sort"
	"strings"
)

// Signature is the declared shape of a callable's parameters:
// positional-only, regular and keyword-only parameters, optional
// collectors for excess positional and keyword arguments, right-aligned
// positional defaults and named keyword-only defaults. A Signature is
// immutable after construction; Bind maps one call onto it.
//
// The bound parameter array is laid out like a frame: the regular
// parameters in declaration order, then the positional collector, then
// the keyword collector.
type Signature struct {
	Name string

	params   []string // regular parameters, keyword-only last
	posOnly  int      // leading parameters not addressable by keyword
	kwOnly   int      // trailing keyword-only parameters
	argCount int      // len(params) - kwOnly

	varArgsIndex int // index of the * collector in the frame, or -1
	varKwIndex   int // index of the ** collector, or -1
	names        []string

	defaults   []Object          // right-aligned over params[:argCount]
	kwDefaults map[string]Object // keyword-only defaults by name
}

// SignatureOption configures a Signature under construction.
type SignatureOption func(*sigConfig)

type sigConfig struct {
	posOnly    int
	kwOnly     int
	varArgs    string
	varKw      string
	defaults   []Object
	kwDefaults map[string]Object
}

// PosOnly declares the first n parameters positional-only.
func PosOnly(n int) SignatureOption {
	return func(c *sigConfig) { c.posOnly = n }
}

// KwOnly declares the last n parameters keyword-only.
func KwOnly(n int) SignatureOption {
	return func(c *sigConfig) { c.kwOnly = n }
}

// VarArgs declares a collector for excess positional arguments.
func VarArgs(name string) SignatureOption {
	return func(c *sigConfig) { c.varArgs = name }
}

// VarKeywords declares a collector for excess keyword arguments.
func VarKeywords(name string) SignatureOption {
	return func(c *sigConfig) { c.varKw = name }
}

// Defaults supplies positional default values, right-aligned: the last
// k defaults belong to the last k positional parameters.
func Defaults(values ...Object) SignatureOption {
	return func(c *sigConfig) { c.defaults = values }
}

// KwDefaults supplies keyword-only default values by parameter name.
func KwDefaults(values map[string]Object) SignatureOption {
	return func(c *sigConfig) { c.kwDefaults = values }
}

// NewSignature constructs a signature for the named callable over the
// given regular parameter names (keyword-only last). Invalid shapes
// are rejected with *SignatureError.
func NewSignature(name string, params []string, opts ...SignatureOption) (*Signature, error) {
	var c sigConfig
	for _, opt := range opts {
		opt(&c)
	}

	s := &Signature{
		Name:         name,
		params:       params,
		posOnly:      c.posOnly,
		kwOnly:       c.kwOnly,
		argCount:     len(params) - c.kwOnly,
		varArgsIndex: -1,
		varKwIndex:   -1,
		defaults:     c.defaults,
		kwDefaults:   c.kwDefaults,
	}

	n := len(params)
	s.names = make([]string, n, n+2)
	copy(s.names, params)
	if c.varArgs != "" {
		s.varArgsIndex = len(s.names)
		s.names = append(s.names, c.varArgs)
	}
	if c.varKw != "" {
		s.varKwIndex = len(s.names)
		s.names = append(s.names, c.varKw)
	}

	if err := s.checkShape(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustSignature is NewSignature for statically known-good shapes.
func MustSignature(name string, params []string, opts ...SignatureOption) *Signature {
	s, err := NewSignature(name, params, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Signature) checkShape() error {
	fail := func(format string, args ...any) error {
		return &SignatureError{FuncName: s.Name, Reason: fmt.Sprintf(format, args...)}
	}
	if s.kwOnly < 0 || s.kwOnly > len(s.params) {
		return fail("%d keyword-only parameters among %d", s.kwOnly, len(s.params))
	}
	if s.posOnly < 0 || s.posOnly > s.argCount {
		return fail("%d positional-only parameters among %d positional", s.posOnly, s.argCount)
	}
	if len(s.defaults) > s.argCount {
		return fail("more defaults (%d given) than positional parameters (%d allowed)",
			len(s.defaults), s.argCount)
	}
	// Only positional-only parameters may be anonymous.
	for n := s.posOnly; n < len(s.names); n++ {
		if s.names[n] == "" {
			return fail("misplaced empty parameter name at %d", n)
		}
	}
	for name := range s.kwDefaults {
		if s.kwOnlyIndex(name) < 0 {
			return fail("keyword default for '%s', which is not keyword-only", name)
		}
	}
	return nil
}

func (s *Signature) kwOnlyIndex(name string) int {
	for n := s.argCount; n < len(s.params); n++ {
		if s.params[n] == name {
			return n
		}
	}
	return -1
}

// ParseSignature builds a signature from a declaration in the style of
// a def statement's parameter list: names plus the markers "/" (end of
// positional-only), "*" (start of keyword-only), "*name" (positional
// collector) and "**name" (keyword collector).
//
//	ParseSignature("f", "a", "b", "/", "c", "*", "d", "**kw")
func ParseSignature(name string, decl ...string) (*Signature, error) {
	var params []string
	var opts []SignatureOption

	posCount := -1
	for _, d := range decl {
		switch {
		case d == "/":
			opts = append(opts, PosOnly(len(params)))
		case d == "*":
			posCount = len(params)
		case strings.HasPrefix(d, "**"):
			opts = append(opts, VarKeywords(d[2:]))
		case strings.HasPrefix(d, "*"):
			opts = append(opts, VarArgs(d[1:]))
			posCount = len(params)
		default:
			params = append(params, d)
		}
	}
	if posCount >= 0 {
		opts = append(opts, KwOnly(len(params)-posCount))
	}
	return NewSignature(name, params, opts...)
}

// HasVarArgs reports whether a positional collector is declared.
func (s *Signature) HasVarArgs() bool { return s.varArgsIndex >= 0 }

// HasVarKeywords reports whether a keyword collector is declared.
func (s *Signature) HasVarKeywords() bool { return s.varKwIndex >= 0 }

// FrameSize returns the length of the array Bind produces.
func (s *Signature) FrameSize() int { return len(s.names) }

// ParamNames returns the frame layout's names, collectors last.
// Callers must not modify the returned slice.
func (s *Signature) ParamNames() []string { return s.names }

// ---------------------------------------------------------------------------
// Binding
// ---------------------------------------------------------------------------

// Bind maps a call's positional and keyword arguments onto the
// signature, producing the populated frame or a structured
// *ArgumentError naming exactly what is wrong. Bind holds no state and
// never mutates its inputs.
func (s *Signature) Bind(positional []Object, keywords map[string]Object) ([]Object, error) {
	vals := make([]Object, len(s.names))
	nargs := len(positional)

	// Positional arguments fill parameter slots left to right, no
	// further than the regular positional region.
	n := nargs
	if n > s.argCount {
		n = s.argCount
	}
	copy(vals[:n], positional[:n])

	// A declared keyword collector starts out empty.
	var kwdict map[string]Object
	if s.HasVarKeywords() {
		kwdict = make(map[string]Object)
		vals[s.varKwIndex] = kwdict
	}

	// Keywords are matched in sorted order so diagnostics do not
	// depend on map iteration order.
	for _, name := range sortedNames(keywords) {
		value := keywords[name]
		idx := s.allowableIndex(name)
		switch {
		case idx < 0:
			if kwdict != nil {
				kwdict[name] = value
			} else {
				return nil, s.unexpectedKeyword(name, keywords)
			}
		case vals[idx] != nil:
			return nil, &ArgumentError{
				Kind: MultipleValues, FuncName: s.Name, Names: []string{name},
			}
		default:
			vals[idx] = value
		}
	}

	if nargs > s.argCount {
		if s.HasVarArgs() {
			excess := make([]Object, nargs-s.argCount)
			copy(excess, positional[s.argCount:])
			vals[s.varArgsIndex] = excess
		} else {
			return nil, s.tooManyPositional(nargs, vals)
		}
	} else {
		if s.HasVarArgs() {
			vals[s.varArgsIndex] = []Object{}
		}
		if nargs < s.argCount {
			if err := s.applyDefaults(vals); err != nil {
				return nil, err
			}
		}
	}

	if s.kwOnly > 0 {
		if err := s.applyKwDefaults(vals); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

// allowableIndex finds name among the parameters addressable by
// keyword: everything after the positional-only boundary up through
// the keyword-only region. Returns -1 when the name is not allowable.
func (s *Signature) allowableIndex(name string) int {
	for n := s.posOnly; n < len(s.params); n++ {
		if s.params[n] == name {
			return n
		}
	}
	return -1
}

// applyDefaults fills unbound positional parameters from the
// right-aligned defaults, then reports every still-unbound positional
// parameter in one diagnostic.
func (s *Signature) applyDefaults(vals []Object) error {
	m := s.argCount - len(s.defaults)

	var missing []string
	for n := 0; n < m; n++ {
		if vals[n] == nil {
			missing = append(missing, s.nameArg(n))
		}
	}
	if len(missing) > 0 {
		return &ArgumentError{
			Kind: MissingPositional, FuncName: s.Name, Names: missing,
		}
	}

	for j, def := range s.defaults {
		if i := m + j; vals[i] == nil {
			vals[i] = def
		}
	}
	return nil
}

// applyKwDefaults fills unbound keyword-only parameters from their
// declared defaults, reporting the remainder together, in wording
// distinct from the positional case.
func (s *Signature) applyKwDefaults(vals []Object) error {
	var missing []string
	for n := s.argCount; n < len(s.params); n++ {
		if vals[n] == nil {
			if def, ok := s.kwDefaults[s.params[n]]; ok {
				vals[n] = def
				continue
			}
			missing = append(missing, s.params[n])
		}
	}
	if len(missing) > 0 {
		return &ArgumentError{
			Kind: MissingKeywordOnly, FuncName: s.Name, Names: missing,
		}
	}
	return nil
}

// tooManyPositional builds the diagnostic for excess positional
// arguments with no collector, counting any keyword-only arguments
// that were also supplied.
func (s *Signature) tooManyPositional(posGiven int, vals []Object) error {
	kwGiven := 0
	for n := s.argCount; n < len(s.params); n++ {
		if vals[n] != nil {
			kwGiven++
		}
	}
	return &ArgumentError{
		Kind:     TooManyPositional,
		FuncName: s.Name,
		Given:    posGiven,
		Min:      s.argCount - len(s.defaults),
		Max:      s.argCount,
		KwGiven:  kwGiven,
	}
}

// unexpectedKeyword diagnoses a keyword that matched no allowable
// parameter. Since the failure is fatal anyway, every keyword in the
// call is checked against the positional-only names so the more
// specific diagnostic wins when it applies.
func (s *Signature) unexpectedKeyword(name string, keywords map[string]Object) error {
	var posOnlyNames []string
	for n := 0; n < s.posOnly; n++ {
		if _, used := keywords[s.params[n]]; used {
			posOnlyNames = append(posOnlyNames, s.params[n])
		}
	}
	if len(posOnlyNames) > 0 {
		sort.Strings(posOnlyNames)
		return &ArgumentError{
			Kind: PositionalOnlyKeyword, FuncName: s.Name, Names: posOnlyNames,
		}
	}
	return &ArgumentError{
		Kind: UnexpectedKeyword, FuncName: s.Name, Names: []string{name},
	}
}

// nameArg names parameter n for a diagnostic, inventing "arg N" for an
// anonymous positional-only parameter.
func (s *Signature) nameArg(n int) string {
	if s.params[n] == "" {
		return fmt.Sprintf("arg %d", n+1)
	}
	return s.params[n]
}

func sortedNames(m map[string]Object) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the signature the way it would be declared:
// f(a, b, /, c=3, *args, d, e=5, **kw).
func (s *Signature) String() string {
	var parts []string

	// Positional defaults start at d.
	d := s.argCount - len(s.defaults)

	n := 0
	for ; n < s.posOnly; n++ {
		parts = append(parts, s.positionalToString(n, d))
	}
	if n > 0 {
		parts = append(parts, "/")
	}
	for ; n < s.argCount; n++ {
		parts = append(parts, s.positionalToString(n, d))
	}

	if s.HasVarArgs() {
		parts = append(parts, "*"+s.names[s.varArgsIndex])
	} else if n < len(s.params) {
		parts = append(parts, "*")
	}

	for ; n < len(s.params); n++ {
		parts = append(parts, s.keywordToString(n))
	}

	if s.HasVarKeywords() {
		parts = append(parts, "**"+s.names[s.varKwIndex])
	}

	return s.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (s *Signature) positionalToString(n, d int) string {
	if n < d {
		return s.nameArg(n)
	}
	return fmt.Sprintf("%s=%v", s.nameArg(n), s.defaults[n-d])
}

func (s *Signature) keywordToString(n int) string {
	name := s.params[n]
	if def, ok := s.kwDefaults[name]; ok {
		return fmt.Sprintf("%s=%v", name, def)
	}
	return name
}
