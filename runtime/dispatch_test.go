package runtime

import (
	"errors"
	"testing"
)

func TestCallSiteMonomorphic(t *testing.T) {
	reg := NewBuiltinRegistry()
	cs := NewCallSite(reg, OpAdd)

	if cs.State() != SiteUnresolved {
		t.Errorf("Expected unresolved state, got %v", cs.State())
	}

	r, err := cs.Resolve(int32(1), int32(2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(int32); !ok || v != 3 {
		t.Errorf("Expected int32 3, got %T %v", r, r)
	}
	if cs.State() != SiteMonomorphic {
		t.Errorf("Expected monomorphic state, got %v", cs.State())
	}
	if cs.Misses() != 1 {
		t.Errorf("Expected 1 miss, got %d", cs.Misses())
	}

	// Same representations: guard hit, no reinstall.
	r, err = cs.Resolve(int32(10), int32(20))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(int32); !ok || v != 30 {
		t.Errorf("Expected int32 30, got %T %v", r, r)
	}
	if cs.Hits() != 1 {
		t.Errorf("Expected 1 hit, got %d", cs.Hits())
	}
	if cs.Installs() != 1 {
		t.Errorf("Expected 1 install, got %d", cs.Installs())
	}
}

func TestCallSiteRespecializes(t *testing.T) {
	reg := NewBuiltinRegistry()
	cs := NewCallSite(reg, OpMul)

	if _, err := cs.Resolve(int32(3), int32(4)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Different representation pair: guard miss, new specialization.
	r, err := cs.Resolve(2.5, int32(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(float64); !ok || v != 10.0 {
		t.Errorf("Expected float64 10.0, got %T %v", r, r)
	}
	if cs.State() != SitePolymorphic {
		t.Errorf("Expected polymorphic state, got %v", cs.State())
	}

	// Back to the first pair: correct again, third install.
	r, err = cs.Resolve(int32(3), int32(4))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(int32); !ok || v != 12 {
		t.Errorf("Expected int32 12, got %T %v", r, r)
	}
	if cs.Installs() != 3 {
		t.Errorf("Expected 3 installs, got %d", cs.Installs())
	}
	if cs.Misses() != 3 {
		t.Errorf("Expected 3 misses, got %d", cs.Misses())
	}
}

func TestCallSiteMixedNumeric(t *testing.T) {
	reg := NewBuiltinRegistry()

	// The left handler declines; the right one converts and answers.
	cs := NewCallSite(reg, OpAdd)
	r, err := cs.Resolve(int32(1), 2.5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(float64); !ok || v != 3.5 {
		t.Errorf("Expected float64 3.5, got %T %v", r, r)
	}

	// Reflected order too.
	cs = NewCallSite(reg, OpSub)
	r, err = cs.Resolve(2.5, int32(1))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(float64); !ok || v != 1.5 {
		t.Errorf("Expected float64 1.5, got %T %v", r, r)
	}
}

func TestCallSiteTrueDivision(t *testing.T) {
	reg := NewBuiltinRegistry()
	cs := NewCallSite(reg, OpDiv)

	r, err := cs.Resolve(int32(7), int32(2))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(float64); !ok || v != 3.5 {
		t.Errorf("Expected float64 3.5, got %T %v", r, r)
	}
}

func TestCallSiteStringOperators(t *testing.T) {
	reg := NewBuiltinRegistry()

	cs := NewCallSite(reg, OpAdd)
	r, err := cs.Resolve("foo", "bar")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "foobar" {
		t.Errorf("Expected foobar, got %v", r)
	}

	cs = NewCallSite(reg, OpMul)
	r, err = cs.Resolve("ab", int32(3))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "ababab" {
		t.Errorf("Expected ababab, got %v", r)
	}

	// Repetition works operand-order independently.
	cs = NewCallSite(reg, OpMul)
	r, err = cs.Resolve(int32(2), "xy")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "xyxy" {
		t.Errorf("Expected xyxy, got %v", r)
	}
}

func TestCallSiteBinaryFailure(t *testing.T) {
	reg := NewBuiltinRegistry()
	cs := NewCallSite(reg, OpSub)

	_, err := cs.Resolve(int32(1), "x")
	if err == nil {
		t.Fatal("Expected an error")
	}
	var opErr *OperatorError
	if !errors.As(err, &opErr) {
		t.Fatalf("Expected *OperatorError, got %T", err)
	}
	want := "unsupported operand type(s) for -: 'int' and 'str'"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	// A failed resolution must not poison the site for later operands.
	r, err := cs.Resolve(int32(5), int32(3))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(int32); !ok || v != 2 {
		t.Errorf("Expected int32 2, got %T %v", r, r)
	}
}

func TestCallSiteUnary(t *testing.T) {
	reg := NewBuiltinRegistry()
	cs := NewCallSite(reg, OpNeg)

	r, err := cs.ResolveUnary(int32(5))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := r.(int32); !ok || v != -5 {
		t.Errorf("Expected int32 -5, got %T %v", r, r)
	}

	// Guard hit on the second execution.
	if _, err := cs.ResolveUnary(int32(9)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cs.Hits() != 1 {
		t.Errorf("Expected 1 hit, got %d", cs.Hits())
	}

	_, err = cs.ResolveUnary("x")
	if err == nil {
		t.Fatal("Expected an error")
	}
	want := "bad operand type for unary -: 'str'"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestCallSiteGuardDistinguishesSharedHandler(t *testing.T) {
	// int32 and int64 share the int handler but are distinct
	// representations: crossing between them must miss the guard.
	reg := NewBuiltinRegistry()
	cs := NewCallSite(reg, OpAdd)

	if _, err := cs.Resolve(int32(1), int32(2)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := cs.Resolve(int64(1<<40), int64(1)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cs.Hits() != 0 {
		t.Errorf("Expected 0 hits, got %d", cs.Hits())
	}
	if cs.Misses() != 2 {
		t.Errorf("Expected 2 misses, got %d", cs.Misses())
	}
}

// pointSum and vecSum are extension representations for the subtype
// preference tests.
type pointSum struct{ tag string }
type vecSum struct{ tag string }

func TestCallSiteSubtypePreference(t *testing.T) {
	reg := NewRegistry()

	baseH := NewHandler("point").
		Binary(OpAdd, KindNone, KindNone, func(v, w Object) Object {
			return "point.add"
		}).
		Build()
	subH := NewHandler("vec").
		SubtypeOf(baseH).
		Binary(OpAdd, KindNone, KindNone, func(v, w Object) Object {
			return "vec.add"
		}).
		Build()

	reg.RegisterRepr(pointSum{}, baseH)
	reg.RegisterRepr(vecSum{}, subH)
	reg.Seal()

	// Left operand's handler is a subtype of the right's: the right
	// handler answers first.
	cs := NewCallSite(reg, OpAdd)
	r, err := cs.Resolve(vecSum{"v"}, pointSum{"p"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "point.add" {
		t.Errorf("Expected point.add to win, got %v", r)
	}

	// No subtype relation in this direction: left wins as usual.
	cs = NewCallSite(reg, OpAdd)
	r, err = cs.Resolve(pointSum{"p"}, vecSum{"v"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "point.add" {
		t.Errorf("Expected point.add to win, got %v", r)
	}
}

func TestCallSiteDeclineChaining(t *testing.T) {
	reg := NewRegistry()

	// The left handler declines these operands at run time; the right
	// handler's implementation must still be reached.
	leftH := NewHandler("left").
		Binary(OpAdd, KindNone, KindNone, func(v, w Object) Object {
			return NotImplemented
		}).
		Build()
	rightH := NewHandler("right").
		Binary(OpAdd, KindNone, KindNone, func(v, w Object) Object {
			return "right.add"
		}).
		Build()

	reg.RegisterRepr(pointSum{}, leftH)
	reg.RegisterRepr(vecSum{}, rightH)
	reg.Seal()

	cs := NewCallSite(reg, OpAdd)
	r, err := cs.Resolve(pointSum{}, vecSum{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "right.add" {
		t.Errorf("Expected right.add, got %v", r)
	}
}

func TestCallSiteTableStats(t *testing.T) {
	reg := NewBuiltinRegistry()
	tbl := NewCallSiteTable(reg)

	// Two occurrences; the first runs a loop, the second re-specializes.
	add := tbl.Site(0, OpAdd)
	for i := 0; i < 10; i++ {
		if _, err := add.Resolve(int32(i), int32(1)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	mul := tbl.Site(4, OpMul)
	if _, err := mul.Resolve(int32(2), int32(3)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := mul.Resolve(1.5, int32(2)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := tbl.Site(0, OpAdd); got != add {
		t.Error("Expected the same cell for the same pc")
	}

	s := tbl.Stats()
	if s.Sites != 2 {
		t.Errorf("Expected 2 sites, got %d", s.Sites)
	}
	if s.Monomorphic != 1 || s.Polymorphic != 1 {
		t.Errorf("Expected 1 monomorphic and 1 polymorphic, got %d and %d",
			s.Monomorphic, s.Polymorphic)
	}
	if s.Hits != 9 || s.Misses != 3 {
		t.Errorf("Expected 9 hits and 3 misses, got %d and %d", s.Hits, s.Misses)
	}
	if rate := s.HitRate(); rate != 75.0 {
		t.Errorf("Expected 75%% hit rate, got %v", rate)
	}

	if tbl.Get(99) != nil {
		t.Error("Expected nil for an occurrence that never ran")
	}
}

type bagVal struct{ tag string }

func TestCallSiteGeneralKindWidening(t *testing.T) {
	reg := NewRegistry()

	// An extension handler with no concrete implementations: every
	// entry sits on the general kind, so resolution must widen both
	// operand sides to find it.
	h := NewHandler("bag").
		General(KindAny, KindNone).
		Binary(OpAdd, KindAny, KindAny, func(v, w Object) Object {
			return v.(bagVal).tag + "+" + w.(bagVal).tag
		}).
		Unary(OpNeg, KindAny, func(v Object) Object {
			return "-" + v.(bagVal).tag
		}).
		Build()
	reg.RegisterRepr(bagVal{}, h)
	reg.Seal()

	cs := NewCallSite(reg, OpAdd)
	r, err := cs.Resolve(bagVal{"l"}, bagVal{"r"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "l+r" {
		t.Errorf("Expected \"l+r\", got %v", r)
	}

	// The widened implementation specializes like any other: the
	// second call with the same representation is a guard hit.
	r, err = cs.Resolve(bagVal{"x"}, bagVal{"y"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "x+y" {
		t.Errorf("Expected \"x+y\", got %v", r)
	}
	if cs.Hits() != 1 || cs.Installs() != 1 {
		t.Errorf("Expected 1 hit and 1 install, got %d and %d", cs.Hits(), cs.Installs())
	}

	us := NewCallSite(reg, OpNeg)
	r, err = us.ResolveUnary(bagVal{"z"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r != "-z" {
		t.Errorf("Expected \"-z\", got %v", r)
	}
}
