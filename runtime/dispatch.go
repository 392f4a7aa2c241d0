package runtime

import (
	"sync/atomic"
)

// Operator inline caching.
//
// Each syntactic operator occurrence owns one CallSite. The first
// execution runs the generic resolution procedure and installs a
// specialization: a guard over the operands' concrete representations
// plus the resolved implementation. Later executions test the guard and
// run the implementation directly; a guard miss re-resolves and swaps
// in a fresh specialization. A site may cycle through many
// specializations over its lifetime; that is megamorphic tolerance,
// not an error.
//
// Replacement is swap-style: the (guard, implementation) pair lives
// behind one atomic pointer, so an execution that loaded the old pair
// finishes against it while a racing execution installs a new one.

// SiteState classifies a call site by the operand variety it has seen.
type SiteState uint8

const (
	SiteUnresolved  SiteState = iota // never executed
	SiteMonomorphic                  // one specialization, never replaced
	SitePolymorphic                  // re-specialized at least once
)

func (s SiteState) String() string {
	switch s {
	case SiteMonomorphic:
		return "monomorphic"
	case SitePolymorphic:
		return "polymorphic"
	}
	return "unresolved"
}

// binSpec is one installed binary specialization.
type binSpec struct {
	left, right Repr
	target      BinaryFunc
}

// unSpec is one installed unary specialization.
type unSpec struct {
	operand Repr
	target  UnaryFunc
}

// CallSite is the per-occurrence dispatch cell. Create one per static
// operator occurrence (see CallSiteTable); never share across
// occurrences.
type CallSite struct {
	op  Op
	reg *Registry

	bin atomic.Pointer[binSpec]
	un  atomic.Pointer[unSpec]

	hits     atomic.Uint64
	misses   atomic.Uint64
	installs atomic.Uint64
}

// NewCallSite creates an unresolved dispatch cell for op against the
// given registry.
func NewCallSite(reg *Registry, op Op) *CallSite {
	return &CallSite{op: op, reg: reg}
}

// Op returns the operator this site dispatches.
func (cs *CallSite) Op() Op { return cs.op }

// Resolve executes `v OP w` through the cell. The guard is tested
// first; on a miss the generic resolution procedure computes and
// installs a new specialization before producing the result.
func (cs *CallSite) Resolve(v, w Object) (Object, error) {
	if spec := cs.bin.Load(); spec != nil {
		lv := cs.reg.reprOf(v)
		rw := cs.reg.reprOf(w)
		if spec.left == lv && spec.right == rw {
			cs.hits.Add(1)
			if r := spec.target(v, w); r != NotImplemented {
				return r, nil
			}
			return nil, cs.binaryError(v, w)
		}
	}
	return cs.fallback(v, w)
}

// fallback is the generic resolution procedure for a binary operator.
func (cs *CallSite) fallback(v, w Object) (Object, error) {
	cs.misses.Add(1)

	hv, lv := cs.reg.HandlerOf(v)
	hw, rw := cs.reg.HandlerOf(w)
	if hv == nil && hw == nil {
		return nil, cs.binaryError(v, w)
	}

	target := cs.resolveBinary(hv, hw, lv.Kind, rw.Kind)
	if target == nil {
		// No implementation on either side; never cached.
		return nil, cs.binaryError(v, w)
	}

	r := target(v, w)
	if r == NotImplemented {
		// Both candidates declined these particular operands. The
		// specialization is still installed: the decline depended on
		// the values only in so far as their representations, and the
		// guard re-checks those.
		cs.install(&binSpec{left: lv, right: rw, target: target})
		return nil, cs.binaryError(v, w)
	}
	cs.install(&binSpec{left: lv, right: rw, target: target})
	return r, nil
}

// resolveBinary computes the specialized implementation for operand
// handlers (hv, hw) with concrete kinds (lk, rk):
//
//  1. look up hv's implementation, most specific signature first;
//  2. if hw is the same handler, that lookup is final;
//  3. otherwise look up hw's reflected implementation the same way;
//  4. if hv declares itself a subtype of hw, try hw's implementation
//     first, else hv's; the loser is the fallback candidate;
//  5. candidates decline by returning NotImplemented, checked by plain
//     control flow; failure is raised only after both decline.
//
// Returns nil when neither handler offers an implementation at all.
func (cs *CallSite) resolveBinary(hv, hw *Handler, lk, rk Kind) BinaryFunc {
	var fv, fw BinaryFunc
	if hv != nil {
		fv = hv.findBinary(cs.op, lk, rk)
	}
	if hw == hv {
		return fv
	}
	if hw != nil {
		fw = hw.findBinary(cs.op, lk, rk)
	}
	if fv == nil && fw == nil {
		return nil
	}

	first, second := fv, fw
	if hv != nil && hv.IsSubtypeOf(hw) {
		first, second = fw, fv
	}
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(v, w Object) Object {
		if r := first(v, w); r != NotImplemented {
			return r
		}
		return second(v, w)
	}
}

// ResolveUnary executes `OP v` through the cell.
func (cs *CallSite) ResolveUnary(v Object) (Object, error) {
	if spec := cs.un.Load(); spec != nil {
		if spec.operand == cs.reg.reprOf(v) {
			cs.hits.Add(1)
			if r := spec.target(v); r != NotImplemented {
				return r, nil
			}
			return nil, cs.unaryError(v)
		}
	}
	return cs.fallbackUnary(v)
}

func (cs *CallSite) fallbackUnary(v Object) (Object, error) {
	cs.misses.Add(1)

	hv, rv := cs.reg.HandlerOf(v)
	if hv == nil {
		return nil, cs.unaryError(v)
	}
	target := hv.findUnary(cs.op, rv.Kind)
	if target == nil {
		return nil, cs.unaryError(v)
	}

	r := target(v)
	cs.installUnary(&unSpec{operand: rv, target: target})
	if r == NotImplemented {
		return nil, cs.unaryError(v)
	}
	return r, nil
}

func (cs *CallSite) install(spec *binSpec) {
	cs.bin.Store(spec)
	cs.installs.Add(1)
}

func (cs *CallSite) installUnary(spec *unSpec) {
	cs.un.Store(spec)
	cs.installs.Add(1)
}

func (cs *CallSite) binaryError(v, w Object) error {
	return &OperatorError{
		Symbol:    cs.op.Symbol(),
		TypeNames: []string{cs.reg.TypeNameOf(v), cs.reg.TypeNameOf(w)},
	}
}

func (cs *CallSite) unaryError(v Object) error {
	return &OperatorError{
		Symbol:    cs.op.Symbol(),
		Unary:     true,
		TypeNames: []string{cs.reg.TypeNameOf(v)},
	}
}

// State classifies the site from its counters.
func (cs *CallSite) State() SiteState {
	switch cs.installs.Load() {
	case 0:
		return SiteUnresolved
	case 1:
		return SiteMonomorphic
	}
	return SitePolymorphic
}

// Hits returns the number of guard hits.
func (cs *CallSite) Hits() uint64 { return cs.hits.Load() }

// Misses returns the number of guard misses (including the first
// resolution).
func (cs *CallSite) Misses() uint64 { return cs.misses.Load() }

// Installs returns the number of specializations installed over the
// site's lifetime.
func (cs *CallSite) Installs() uint64 { return cs.installs.Load() }

// ---------------------------------------------------------------------------
// CallSiteTable
// ---------------------------------------------------------------------------

// CallSiteTable owns the dispatch cells of one code unit, keyed by the
// stable per-occurrence identity the interpreter supplies (its
// bytecode PC). Cells are created lazily on first execution.
type CallSiteTable struct {
	reg   *Registry
	sites map[int]*CallSite
}

// NewCallSiteTable creates an empty table against a registry.
func NewCallSiteTable(reg *Registry) *CallSiteTable {
	return &CallSiteTable{reg: reg, sites: make(map[int]*CallSite)}
}

// Site returns the cell for the occurrence at pc, creating it with the
// given operator on first use.
func (t *CallSiteTable) Site(pc int, op Op) *CallSite {
	if cs := t.sites[pc]; cs != nil {
		return cs
	}
	cs := NewCallSite(t.reg, op)
	t.sites[pc] = cs
	return cs
}

// Get returns the cell for pc, or nil if that occurrence never ran.
func (t *CallSiteTable) Get(pc int) *CallSite { return t.sites[pc] }

// Each calls fn for every materialized cell, in no particular order.
func (t *CallSiteTable) Each(fn func(pc int, cs *CallSite)) {
	for pc, cs := range t.sites {
		fn(pc, cs)
	}
}

// Len returns the number of materialized cells.
func (t *CallSiteTable) Len() int { return len(t.sites) }

// SiteStats aggregates dispatch statistics for a table.
type SiteStats struct {
	Sites       int
	Monomorphic int
	Polymorphic int
	Unresolved  int
	Hits        uint64
	Misses      uint64
}

// HitRate returns the aggregate guard hit rate as a percentage.
func (s SiteStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) * 100 / float64(total)
}

// Stats gathers aggregate statistics over every cell in the table.
func (t *CallSiteTable) Stats() SiteStats {
	var s SiteStats
	s.Sites = len(t.sites)
	for _, cs := range t.sites {
		switch cs.State() {
		case SiteMonomorphic:
			s.Monomorphic++
		case SitePolymorphic:
			s.Polymorphic++
		default:
			s.Unresolved++
		}
		s.Hits += cs.Hits()
		s.Misses += cs.Misses()
	}
	return s
}
