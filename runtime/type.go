package runtime

// Type is a language-level type descriptor: name, declared bases and
// the computed MRO. Descriptors are immutable once NewType returns;
// redefining a type produces a new descriptor. Types form a DAG via
// shared *Type references, never copies; a descriptor's MRO always has
// the descriptor itself first.
type Type struct {
	Name  string
	Bases []*Type

	mro []*Type

	// Instance layout: a per-instance attribute map, fixed named
	// slots, or both.
	HasDict bool
	Slots   []string
}

// TypeOption configures instance layout at type-definition time.
type TypeOption func(*Type)

// WithDict gives instances a per-instance attribute map.
func WithDict() TypeOption {
	return func(t *Type) { t.HasDict = true }
}

// WithSlots gives instances the named fixed slots.
func WithSlots(names ...string) TypeOption {
	return func(t *Type) { t.Slots = names }
}

// NewType defines a type from its declared bases, each already owning
// a valid MRO, and computes the new type's MRO. Returns *MROError when
// the bases cannot be linearized; the definition then aborts and no
// descriptor escapes.
func NewType(name string, bases []*Type, opts ...TypeOption) (*Type, error) {
	t := &Type{Name: name, Bases: bases}
	for _, opt := range opts {
		opt(t)
	}

	mro, err := computeMRO(t, bases)
	if err != nil {
		return nil, err
	}
	t.mro = mro
	return t, nil
}

// MRO returns the method resolution order: this type first, then its
// ancestors in linearized precedence order. Callers must not modify
// the returned slice.
func (t *Type) MRO() []*Type { return t.mro }

// IsSubtypeOf reports whether other occurs in t's MRO.
func (t *Type) IsSubtypeOf(other *Type) bool {
	for _, a := range t.mro {
		if a == other {
			return true
		}
	}
	return false
}

func (t *Type) String() string { return t.Name }

// ---------------------------------------------------------------------------
// Instances
// ---------------------------------------------------------------------------

// Instance is a value of a language-level type. Depending on the
// type's layout flags it carries an attribute map, fixed slot values,
// or both.
type Instance struct {
	typ   *Type
	dict  map[string]Object
	slots []Object
}

// NewInstance creates an instance of t with the layout its flags
// declare.
func NewInstance(t *Type) *Instance {
	inst := &Instance{typ: t}
	if t.HasDict {
		inst.dict = make(map[string]Object)
	}
	if len(t.Slots) > 0 {
		inst.slots = make([]Object, len(t.Slots))
	}
	return inst
}

// Type returns the instance's type descriptor.
func (i *Instance) Type() *Type { return i.typ }

// GetAttr reads an attribute: fixed slots first, then the dict.
func (i *Instance) GetAttr(name string) (Object, bool) {
	for n, slot := range i.typ.Slots {
		if slot == name {
			v := i.slots[n]
			return v, v != nil
		}
	}
	if i.dict != nil {
		v, ok := i.dict[name]
		return v, ok
	}
	return nil, false
}

// SetAttr writes an attribute; false when the type's layout has no
// place for it.
func (i *Instance) SetAttr(name string, v Object) bool {
	for n, slot := range i.typ.Slots {
		if slot == name {
			i.slots[n] = v
			return true
		}
	}
	if i.dict != nil {
		i.dict[name] = v
		return true
	}
	return false
}
