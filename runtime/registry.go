package runtime

import (
	"math"
	"math/big"
	"reflect"
	"strings"
	"sync"
)

// Registry maps a host representation to its operand handler. It is an
// explicit object, not ambient state: the dispatch machinery is handed
// a registry, which keeps it testable against synthetic handler sets.
// Registration happens once at startup; Seal freezes the registry,
// after which lookup needs no locking.
type Registry struct {
	mu     sync.Mutex
	sealed bool

	byKind [KindInstance + 1]*Handler
	byType map[reflect.Type]*Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]*Handler)}
}

// Register maps a built-in representation kind to a handler. Several
// kinds may share one handler (int32 and int64 both dispatch to the
// int handler). Panics if the registry is sealed.
func (reg *Registry) Register(k Kind, h *Handler) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.sealed {
		panic("runtime: Register on sealed registry")
	}
	reg.byKind[k] = h
}

// RegisterRepr maps an extension representation, identified by the
// concrete Go type of sample, to a handler. Panics if sealed.
func (reg *Registry) RegisterRepr(sample Object, h *Handler) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.sealed {
		panic("runtime: RegisterRepr on sealed registry")
	}
	reg.byType[reflect.TypeOf(sample)] = h
}

// Seal freezes the registry. Further registration panics; lookups are
// lock-free from here on.
func (reg *Registry) Seal() {
	reg.mu.Lock()
	reg.sealed = true
	reg.mu.Unlock()
}

// HandlerOf resolves a value to its handler and concrete
// representation. The handler is nil for representations never
// registered.
func (reg *Registry) HandlerOf(o Object) (*Handler, Repr) {
	k := KindOf(o)
	if k != KindNone {
		return reg.byKind[k], Repr{Kind: k}
	}
	rt := reflect.TypeOf(o)
	return reg.byType[rt], Repr{Kind: KindNone, RType: rt}
}

// reprOf resolves only the concrete representation, for guard checks.
func (reg *Registry) reprOf(o Object) Repr {
	if k := KindOf(o); k != KindNone {
		return Repr{Kind: k}
	}
	return Repr{RType: reflect.TypeOf(o)}
}

// TypeNameOf names a value's type for diagnostics, preferring the
// registered handler's name.
func (reg *Registry) TypeNameOf(o Object) string {
	if h, _ := reg.HandlerOf(o); h != nil {
		return h.name
	}
	return TypeName(o)
}

// ---------------------------------------------------------------------------
// Conversions between numeric representations
// ---------------------------------------------------------------------------

// asInt64 widens the integral representations to the wide integer.
func asInt64(o Object) (int64, bool) {
	switch v := o.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// asBig widens any integral representation to arbitrary precision.
func asBig(o Object) (*big.Int, bool) {
	if v, ok := o.(*big.Int); ok {
		return v, true
	}
	if v, ok := asInt64(o); ok {
		return big.NewInt(v), true
	}
	return nil, false
}

// asFloat converts any numeric representation to floating point,
// lossily for very large integers.
func asFloat(o Object) (float64, bool) {
	switch v := o.(type) {
	case float64:
		return v, true
	case *big.Int:
		return bigToFloat(v), true
	}
	if v, ok := asInt64(o); ok {
		return float64(v), true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Built-in handlers
// ---------------------------------------------------------------------------

// NewBuiltinRegistry builds the registry of built-in representations:
// int (served by int32, int64 and bool), arbitrary-precision int,
// float, and str. The registry comes back sealed.
func NewBuiltinRegistry() *Registry {
	reg := NewRegistry()

	intH := buildIntHandler()
	bigH := buildBigHandler()
	floatH := buildFloatHandler()
	strH := buildStrHandler()

	reg.Register(KindInt32, intH)
	reg.Register(KindInt64, intH)
	reg.Register(KindBool, intH)
	reg.Register(KindBigInt, bigH)
	reg.Register(KindFloat, floatH)
	reg.Register(KindString, strH)

	reg.Seal()
	return reg
}

// intBinary adapts an int64 tower primitive to a BinaryFunc declining
// non-integral operands.
func intBinary(fn func(v, w int64) Object) BinaryFunc {
	return func(v, w Object) Object {
		a, ok := asInt64(v)
		if !ok {
			return NotImplemented
		}
		b, ok := asInt64(w)
		if !ok {
			return NotImplemented
		}
		return fn(a, b)
	}
}

func intCompare(fn func(v, w int64) bool) BinaryFunc {
	return intBinary(func(a, b int64) Object { return fn(a, b) })
}

func buildIntHandler() *Handler {
	b := NewHandler("int").
		General(KindNumber, KindInt32, KindInt64, KindBool)

	N := KindNumber
	b.Binary(OpAdd, N, N, intBinary(intAdd))
	b.Binary(OpSub, N, N, intBinary(intSub))
	b.Binary(OpMul, N, N, intBinary(intMul))
	b.Binary(OpDiv, N, N, intBinary(intTrueDiv))
	b.Binary(OpFloorDiv, N, N, intBinary(intFloorDiv))
	b.Binary(OpMod, N, N, intBinary(intMod))

	b.Binary(OpLt, N, N, intCompare(func(a, b int64) bool { return a < b }))
	b.Binary(OpLe, N, N, intCompare(func(a, b int64) bool { return a <= b }))
	b.Binary(OpEq, N, N, intCompare(func(a, b int64) bool { return a == b }))
	b.Binary(OpNe, N, N, intCompare(func(a, b int64) bool { return a != b }))
	b.Binary(OpGt, N, N, intCompare(func(a, b int64) bool { return a > b }))
	b.Binary(OpGe, N, N, intCompare(func(a, b int64) bool { return a >= b }))

	b.Unary(OpNeg, N, func(v Object) Object {
		a, ok := asInt64(v)
		if !ok {
			return NotImplemented
		}
		return intNeg(a)
	})
	b.Unary(OpPos, N, func(v Object) Object {
		a, ok := asInt64(v)
		if !ok {
			return NotImplemented
		}
		return narrowResult(a)
	})
	b.Unary(OpAbs, N, func(v Object) Object {
		a, ok := asInt64(v)
		if !ok {
			return NotImplemented
		}
		if a < 0 {
			return intNeg(a)
		}
		return narrowResult(a)
	})
	b.Unary(OpInvert, N, func(v Object) Object {
		a, ok := asInt64(v)
		if !ok {
			return NotImplemented
		}
		return narrowResult(^a)
	})

	return b.Build()
}

// bigBinary adapts a big.Int tower primitive, accepting any integral
// operand and widening it.
func bigBinary(fn func(v, w *big.Int) Object) BinaryFunc {
	return func(v, w Object) Object {
		a, ok := asBig(v)
		if !ok {
			return NotImplemented
		}
		b, ok := asBig(w)
		if !ok {
			return NotImplemented
		}
		return fn(a, b)
	}
}

func bigCompare(fn func(c int) bool) BinaryFunc {
	return bigBinary(func(a, b *big.Int) Object { return fn(a.Cmp(b)) })
}

func buildBigHandler() *Handler {
	b := NewHandler("int").
		General(KindNumber, KindInt32, KindInt64, KindBool, KindBigInt)

	N := KindNumber
	b.Binary(OpAdd, N, N, bigBinary(bigAdd))
	b.Binary(OpSub, N, N, bigBinary(bigSub))
	b.Binary(OpMul, N, N, bigBinary(bigMul))
	b.Binary(OpDiv, N, N, bigBinary(bigTrueDiv))
	b.Binary(OpFloorDiv, N, N, bigBinary(bigFloorDiv))
	b.Binary(OpMod, N, N, bigBinary(bigMod))

	b.Binary(OpLt, N, N, bigCompare(func(c int) bool { return c < 0 }))
	b.Binary(OpLe, N, N, bigCompare(func(c int) bool { return c <= 0 }))
	b.Binary(OpEq, N, N, bigCompare(func(c int) bool { return c == 0 }))
	b.Binary(OpNe, N, N, bigCompare(func(c int) bool { return c != 0 }))
	b.Binary(OpGt, N, N, bigCompare(func(c int) bool { return c > 0 }))
	b.Binary(OpGe, N, N, bigCompare(func(c int) bool { return c >= 0 }))

	b.Unary(OpNeg, N, func(v Object) Object {
		a, ok := asBig(v)
		if !ok {
			return NotImplemented
		}
		return normalizeBig(new(big.Int).Neg(a))
	})
	b.Unary(OpPos, N, func(v Object) Object {
		a, ok := asBig(v)
		if !ok {
			return NotImplemented
		}
		return normalizeBig(new(big.Int).Set(a))
	})
	b.Unary(OpAbs, N, func(v Object) Object {
		a, ok := asBig(v)
		if !ok {
			return NotImplemented
		}
		return normalizeBig(new(big.Int).Abs(a))
	})

	return b.Build()
}

// floatBinary adapts a float64 primitive; any numeric operand converts.
func floatBinary(fn func(v, w float64) Object) BinaryFunc {
	return func(v, w Object) Object {
		a, ok := asFloat(v)
		if !ok {
			return NotImplemented
		}
		b, ok := asFloat(w)
		if !ok {
			return NotImplemented
		}
		return fn(a, b)
	}
}

func floatCompare(fn func(v, w float64) bool) BinaryFunc {
	return floatBinary(func(a, b float64) Object { return fn(a, b) })
}

func buildFloatHandler() *Handler {
	b := NewHandler("float").
		General(KindNumber, KindInt32, KindInt64, KindBool, KindBigInt, KindFloat)

	N := KindNumber
	b.Binary(OpAdd, N, N, floatBinary(func(x, y float64) Object { return x + y }))
	b.Binary(OpSub, N, N, floatBinary(func(x, y float64) Object { return x - y }))
	b.Binary(OpMul, N, N, floatBinary(func(x, y float64) Object { return x * y }))
	b.Binary(OpDiv, N, N, floatBinary(func(x, y float64) Object { return x / y }))
	b.Binary(OpFloorDiv, N, N, floatBinary(func(x, y float64) Object {
		return math.Floor(x / y)
	}))
	b.Binary(OpMod, N, N, floatBinary(func(x, y float64) Object {
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m
	}))

	b.Binary(OpLt, N, N, floatCompare(func(a, b float64) bool { return a < b }))
	b.Binary(OpLe, N, N, floatCompare(func(a, b float64) bool { return a <= b }))
	b.Binary(OpEq, N, N, floatCompare(func(a, b float64) bool { return a == b }))
	b.Binary(OpNe, N, N, floatCompare(func(a, b float64) bool { return a != b }))
	b.Binary(OpGt, N, N, floatCompare(func(a, b float64) bool { return a > b }))
	b.Binary(OpGe, N, N, floatCompare(func(a, b float64) bool { return a >= b }))

	b.Unary(OpNeg, N, func(v Object) Object {
		a, ok := asFloat(v)
		if !ok {
			return NotImplemented
		}
		return -a
	})
	b.Unary(OpPos, N, func(v Object) Object {
		a, ok := asFloat(v)
		if !ok {
			return NotImplemented
		}
		return a
	})
	b.Unary(OpAbs, N, func(v Object) Object {
		a, ok := asFloat(v)
		if !ok {
			return NotImplemented
		}
		if a < 0 {
			return -a
		}
		return a
	})

	return b.Build()
}

func buildStrHandler() *Handler {
	b := NewHandler("str")

	concat := func(v, w Object) Object {
		a, okA := v.(string)
		c, okC := w.(string)
		if !okA || !okC {
			return NotImplemented
		}
		return a + c
	}
	repeat := func(v, w Object) Object {
		s, okS := v.(string)
		var other Object = w
		if !okS {
			s, okS = w.(string)
			other = v
		}
		n, okN := asInt64(other)
		if !okS || !okN {
			return NotImplemented
		}
		if n <= 0 {
			return ""
		}
		return strings.Repeat(s, int(n))
	}

	b.Binary(OpAdd, KindString, KindString, concat)
	for _, k := range []Kind{KindInt32, KindInt64, KindBool} {
		b.Binary(OpMul, KindString, k, repeat)
		b.Binary(OpMul, k, KindString, repeat)
	}

	strCompare := func(fn func(a, b string) bool) BinaryFunc {
		return func(v, w Object) Object {
			a, okA := v.(string)
			c, okC := w.(string)
			if !okA || !okC {
				return NotImplemented
			}
			return fn(a, c)
		}
	}
	b.Binary(OpLt, KindString, KindString, strCompare(func(a, b string) bool { return a < b }))
	b.Binary(OpLe, KindString, KindString, strCompare(func(a, b string) bool { return a <= b }))
	b.Binary(OpEq, KindString, KindString, strCompare(func(a, b string) bool { return a == b }))
	b.Binary(OpNe, KindString, KindString, strCompare(func(a, b string) bool { return a != b }))
	b.Binary(OpGt, KindString, KindString, strCompare(func(a, b string) bool { return a > b }))
	b.Binary(OpGe, KindString, KindString, strCompare(func(a, b string) bool { return a >= b }))

	return b.Build()
}
