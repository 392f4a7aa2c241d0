package runtime

import (
	"errors"
	"reflect"
	"testing"
)

func mustBind(t *testing.T, s *Signature, pos []Object, kw map[string]Object) []Object {
	t.Helper()
	vals, err := s.Bind(pos, kw)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return vals
}

func bindErr(t *testing.T, s *Signature, pos []Object, kw map[string]Object) *ArgumentError {
	t.Helper()
	_, err := s.Bind(pos, kw)
	if err == nil {
		t.Fatal("Expected a binding error")
	}
	var argErr *ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("Expected *ArgumentError, got %T: %v", err, err)
	}
	return argErr
}

func TestBindPositional(t *testing.T) {
	s := MustSignature("f", []string{"a", "b", "c", "d"}, Defaults(3, 4))

	vals := mustBind(t, s, []Object{10, 20, 30, 40}, nil)
	if !reflect.DeepEqual(vals, []Object{10, 20, 30, 40}) {
		t.Errorf("Expected [10 20 30 40], got %v", vals)
	}
}

func TestBindDefaultsRightAligned(t *testing.T) {
	s := MustSignature("f", []string{"a", "b", "c", "d"}, Defaults(3, 4))

	vals := mustBind(t, s, []Object{10, 20}, nil)
	if !reflect.DeepEqual(vals, []Object{10, 20, 3, 4}) {
		t.Errorf("Expected [10 20 3 4], got %v", vals)
	}

	// A keyword may override one defaulted parameter without the other.
	vals = mustBind(t, s, []Object{10, 20}, map[string]Object{"d": 99})
	if !reflect.DeepEqual(vals, []Object{10, 20, 3, 99}) {
		t.Errorf("Expected [10 20 3 99], got %v", vals)
	}
}

func TestBindKeywords(t *testing.T) {
	s := MustSignature("f", []string{"a", "b", "c", "d"}, Defaults(3, 4))

	vals := mustBind(t, s, []Object{1}, map[string]Object{"b": 2, "c": 7})
	if !reflect.DeepEqual(vals, []Object{1, 2, 7, 4}) {
		t.Errorf("Expected [1 2 7 4], got %v", vals)
	}
}

func TestBindMultipleValues(t *testing.T) {
	s := MustSignature("f", []string{"a", "b"})

	e := bindErr(t, s, []Object{1, 2}, map[string]Object{"a": 9})
	if e.Kind != MultipleValues {
		t.Errorf("Expected MultipleValues, got %v", e.Kind)
	}
	want := "f(): multiple values for argument 'a'"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}
}

func TestBindUnexpectedKeyword(t *testing.T) {
	s := MustSignature("g", []string{"a", "b"})

	e := bindErr(t, s, nil, map[string]Object{"a": 1, "z": 2})
	if e.Kind != UnexpectedKeyword {
		t.Errorf("Expected UnexpectedKeyword, got %v", e.Kind)
	}
	want := "g(): unexpected keyword argument 'z'"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}
}

func TestBindTooManyPositional(t *testing.T) {
	cases := []struct {
		sig  *Signature
		pos  []Object
		kw   map[string]Object
		want string
	}{
		{
			MustSignature("f", []string{"a", "b", "c", "d"}, Defaults(3, 4)),
			[]Object{1, 2, 3, 4, 5}, nil,
			"f() takes from 2 to 4 positional arguments but 5 were given",
		},
		{
			MustSignature("g", []string{"a", "b"}),
			[]Object{1, 2, 3}, nil,
			"g() takes 2 positional arguments but 3 were given",
		},
		{
			MustSignature("h", []string{}),
			[]Object{1}, nil,
			"h() takes no positional arguments but 1 was given",
		},
		{
			MustSignature("u", []string{"a"}),
			[]Object{1, 2}, nil,
			"u() takes 1 positional argument but 2 were given",
		},
		{
			MustSignature("k", []string{"a", "x"}, KwOnly(1)),
			[]Object{1, 2}, map[string]Object{"x": 5},
			"k() takes 1 positional argument but 2 positional arguments " +
				"(and 1 keyword-only argument) were given",
		},
	}
	for _, c := range cases {
		e := bindErr(t, c.sig, c.pos, c.kw)
		if e.Kind != TooManyPositional {
			t.Errorf("%s: expected TooManyPositional, got %v", c.sig.Name, e.Kind)
		}
		if e.Error() != c.want {
			t.Errorf("Expected %q, got %q", c.want, e.Error())
		}
	}
}

func TestBindMissingPositional(t *testing.T) {
	s := MustSignature("g", []string{"a", "b", "c"})

	e := bindErr(t, s, []Object{1}, nil)
	if e.Kind != MissingPositional {
		t.Errorf("Expected MissingPositional, got %v", e.Kind)
	}
	want := "g() missing 2 required positional arguments: b and c"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}

	// All three at once, joined with a final "and".
	e = bindErr(t, s, nil, nil)
	want = "g() missing 3 required positional arguments: a, b and c"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}
}

func TestBindPositionalOnly(t *testing.T) {
	s := MustSignature("p", []string{"a", "b", "c"}, PosOnly(2))

	vals := mustBind(t, s, []Object{1, 2}, map[string]Object{"c": 3})
	if !reflect.DeepEqual(vals, []Object{1, 2, 3}) {
		t.Errorf("Expected [1 2 3], got %v", vals)
	}

	// Addressing positional-only parameters by keyword names them all
	// in one diagnostic, not just the first one found.
	e := bindErr(t, s, nil, map[string]Object{"a": 1, "b": 2, "c": 3})
	if e.Kind != PositionalOnlyKeyword {
		t.Errorf("Expected PositionalOnlyKeyword, got %v", e.Kind)
	}
	want := "p(): positional-only arguments passed by keyword: a, b"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}
}

func TestBindPositionalOnlyIntoKeywordCollector(t *testing.T) {
	// With a ** collector, a keyword sharing a positional-only name is
	// an ordinary collected keyword, not an error.
	s := MustSignature("q", []string{"a"}, PosOnly(1), VarKeywords("kw"))

	vals := mustBind(t, s, []Object{1}, map[string]Object{"a": 2})
	if vals[0] != 1 {
		t.Errorf("Expected 1, got %v", vals[0])
	}
	kw := vals[1].(map[string]Object)
	if len(kw) != 1 || kw["a"] != 2 {
		t.Errorf("Expected collected {a: 2}, got %v", kw)
	}
}

func TestBindVarArgs(t *testing.T) {
	s := MustSignature("v", []string{"a"}, VarArgs("args"))

	vals := mustBind(t, s, []Object{1, 2, 3}, nil)
	if vals[0] != 1 {
		t.Errorf("Expected 1, got %v", vals[0])
	}
	if !reflect.DeepEqual(vals[1], []Object{2, 3}) {
		t.Errorf("Expected [2 3], got %v", vals[1])
	}

	// The collector is present and empty when nothing overflows.
	vals = mustBind(t, s, []Object{1}, nil)
	if args := vals[1].([]Object); len(args) != 0 {
		t.Errorf("Expected an empty collector, got %v", args)
	}
}

func TestBindKeywordOnly(t *testing.T) {
	s := MustSignature("w", []string{"a", "x", "y"},
		KwOnly(2), KwDefaults(map[string]Object{"y": 9}))

	vals := mustBind(t, s, []Object{1}, map[string]Object{"x": 2})
	if !reflect.DeepEqual(vals, []Object{1, 2, 9}) {
		t.Errorf("Expected [1 2 9], got %v", vals)
	}

	// Keyword-only parameters never bind positionally.
	e := bindErr(t, s, []Object{1, 2}, nil)
	if e.Kind != TooManyPositional {
		t.Errorf("Expected TooManyPositional, got %v", e.Kind)
	}

	e = bindErr(t, s, []Object{1}, nil)
	if e.Kind != MissingKeywordOnly {
		t.Errorf("Expected MissingKeywordOnly, got %v", e.Kind)
	}
	want := "w() missing 1 required keyword-only argument: x"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}
}

func TestBindFullSignature(t *testing.T) {
	s, err := ParseSignature("f", "a", "b", "/", "c", "*args", "d", "e", "**kw")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if s.FrameSize() != 7 {
		t.Fatalf("Expected frame size 7, got %d", s.FrameSize())
	}
	wantNames := []string{"a", "b", "c", "d", "e", "args", "kw"}
	if !reflect.DeepEqual(s.ParamNames(), wantNames) {
		t.Errorf("Expected frame names %v, got %v", wantNames, s.ParamNames())
	}

	keywords := map[string]Object{"d": 4, "e": 5, "extra": 99}
	vals := mustBind(t, s, []Object{1, 2, 3, 31, 32}, keywords)

	want := []Object{1, 2, 3, 4, 5}
	if !reflect.DeepEqual(vals[:5], want) {
		t.Errorf("Expected %v, got %v", want, vals[:5])
	}
	if !reflect.DeepEqual(vals[5], []Object{31, 32}) {
		t.Errorf("Expected collected [31 32], got %v", vals[5])
	}
	kw := vals[6].(map[string]Object)
	if len(kw) != 1 || kw["extra"] != 99 {
		t.Errorf("Expected collected {extra: 99}, got %v", kw)
	}

	// Binding never mutates the caller's keyword map.
	if len(keywords) != 3 {
		t.Errorf("Expected the input map untouched, got %v", keywords)
	}
}

func TestBindAnonymousPositionalOnly(t *testing.T) {
	s := MustSignature("m", []string{"", "", "c"}, PosOnly(2))

	e := bindErr(t, s, nil, nil)
	want := "m() missing 3 required positional arguments: arg 1, arg 2 and c"
	if e.Error() != want {
		t.Errorf("Expected %q, got %q", want, e.Error())
	}
}

func TestSignatureString(t *testing.T) {
	s, err := ParseSignature("f", "a", "b", "/", "c", "*args", "d", "e", "**kw")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}

	want := "f(a, b, /, c, *args, d, e, **kw)"
	if s.String() != want {
		t.Errorf("Expected %q, got %q", want, s.String())
	}

	s = MustSignature("g", []string{"a", "b", "x"},
		Defaults(3), KwOnly(1), KwDefaults(map[string]Object{"x": 7}))
	want = "g(a, b=3, *, x=7)"
	if s.String() != want {
		t.Errorf("Expected %q, got %q", want, s.String())
	}
}

func TestSignatureShapeErrors(t *testing.T) {
	var sigErr *SignatureError

	// More defaults than positional parameters.
	_, err := NewSignature("f", []string{"a"}, Defaults(1, 2))
	if !errors.As(err, &sigErr) {
		t.Fatalf("Expected *SignatureError, got %T: %v", err, err)
	}

	// A keyword default for a parameter that is not keyword-only.
	_, err = NewSignature("f", []string{"a", "x"}, KwOnly(1),
		KwDefaults(map[string]Object{"a": 1}))
	if !errors.As(err, &sigErr) {
		t.Fatalf("Expected *SignatureError, got %T: %v", err, err)
	}

	// An anonymous parameter outside the positional-only region.
	_, err = NewSignature("f", []string{"a", ""})
	if !errors.As(err, &sigErr) {
		t.Fatalf("Expected *SignatureError, got %T: %v", err, err)
	}

	// More keyword-only parameters than parameters.
	_, err = NewSignature("f", []string{"a"}, KwOnly(2))
	if !errors.As(err, &sigErr) {
		t.Fatalf("Expected *SignatureError, got %T: %v", err, err)
	}
}
