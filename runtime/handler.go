package runtime

// Handler bundles one host representation's operator implementations.
// Implementations are stored in a table keyed by (operator, operand
// kind signature); lookup tries the most specific signature first and
// falls back to the handler's general operand kind. Handlers are built
// once at startup through a HandlerBuilder and are immutable afterward,
// so the dispatch machinery shares them without synchronization.

// BinaryFunc implements a binary operator. It receives the operands in
// source order (left, right) regardless of which handler supplied it,
// and returns NotImplemented to decline.
type BinaryFunc func(v, w Object) Object

// UnaryFunc implements a unary operator, returning NotImplemented to
// decline.
type UnaryFunc func(v Object) Object

type binKey struct {
	op   Op
	l, r Kind
}

type unKey struct {
	op Op
	k  Kind
}

// Handler is immutable once built; see HandlerBuilder.
type Handler struct {
	name    string // language-level type name, e.g. "int"
	general Kind   // the general operand kind this handler accepts
	accepts map[Kind]bool
	binary  map[binKey]BinaryFunc
	unary   map[unKey]UnaryFunc

	// supertypes breaks binary-dispatch ties: when the left operand's
	// handler declares itself a subtype of the right's, the right
	// implementation is tried first. A single-level declaration, not a
	// full MRO walk.
	supertypes map[*Handler]bool
}

// Name returns the language-level type name the handler serves.
func (h *Handler) Name() string { return h.name }

// IsSubtypeOf reports whether h declared itself a subtype of other.
func (h *Handler) IsSubtypeOf(other *Handler) bool {
	return h.supertypes[other]
}

// acceptable reports whether a concrete operand kind may stand in for
// the handler's general kind.
func (h *Handler) acceptable(k Kind) bool { return h.accepts[k] }

// findBinary locates an implementation of op for concrete operand
// kinds (l, r): the exact signature first, then signatures widened to
// the general kind on whichever sides are acceptable. Returns nil when
// the handler has nothing to offer, which dispatch treats the same as
// an implementation that returns NotImplemented.
func (h *Handler) findBinary(op Op, l, r Kind) BinaryFunc {
	if fn := h.binary[binKey{op, l, r}]; fn != nil {
		return fn
	}
	g := h.general
	if g == KindNone {
		return nil
	}
	if h.acceptable(r) {
		if fn := h.binary[binKey{op, l, g}]; fn != nil {
			return fn
		}
		if h.acceptable(l) {
			return h.binary[binKey{op, g, g}]
		}
		return nil
	}
	if h.acceptable(l) {
		return h.binary[binKey{op, g, r}]
	}
	return nil
}

// findUnary locates an implementation of op for a concrete operand
// kind, widening to the general kind when acceptable.
func (h *Handler) findUnary(op Op, k Kind) UnaryFunc {
	if fn := h.unary[unKey{op, k}]; fn != nil {
		return fn
	}
	if h.general != KindNone && h.acceptable(k) {
		return h.unary[unKey{op, h.general}]
	}
	return nil
}

// ---------------------------------------------------------------------------
// HandlerBuilder
// ---------------------------------------------------------------------------

// HandlerBuilder assembles a Handler. Build returns the finished,
// immutable handler; the builder must not be reused afterward.
type HandlerBuilder struct {
	h *Handler
}

// NewHandler starts building a handler for the named language type.
func NewHandler(name string) *HandlerBuilder {
	return &HandlerBuilder{h: &Handler{
		name:       name,
		accepts:    make(map[Kind]bool),
		binary:     make(map[binKey]BinaryFunc),
		unary:      make(map[unKey]UnaryFunc),
		supertypes: make(map[*Handler]bool),
	}}
}

// General declares the handler's general operand kind and the set of
// concrete kinds acceptable in its place.
func (b *HandlerBuilder) General(g Kind, concrete ...Kind) *HandlerBuilder {
	b.h.general = g
	for _, k := range concrete {
		b.h.accepts[k] = true
	}
	return b
}

// Binary registers an implementation of op for the (l, r) signature.
func (b *HandlerBuilder) Binary(op Op, l, r Kind, fn BinaryFunc) *HandlerBuilder {
	b.h.binary[binKey{op, l, r}] = fn
	return b
}

// Unary registers an implementation of op for operand kind k.
func (b *HandlerBuilder) Unary(op Op, k Kind, fn UnaryFunc) *HandlerBuilder {
	b.h.unary[unKey{op, k}] = fn
	return b
}

// SubtypeOf declares the handler a subtype of another handler, giving
// the other's implementations precedence in mixed binary dispatch.
func (b *HandlerBuilder) SubtypeOf(super *Handler) *HandlerBuilder {
	b.h.supertypes[super] = true
	return b
}

// Build finalizes and returns the handler.
func (b *HandlerBuilder) Build() *Handler {
	h := b.h
	b.h = nil
	return h
}
