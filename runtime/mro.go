package runtime

// C3 linearization. The calculation is a struct rather than a free
// function so that, on failure, the evidence of which heads refused to
// merge is still on hand for the diagnostic.

// computeMRO produces the MRO for a type under construction from its
// declared bases. The common single-base case skips the general merge:
// the result is the base's own MRO with the new type prepended, or the
// degenerate two-element sequence when the base is a root.
func computeMRO(t *Type, bases []*Type) ([]*Type, error) {
	switch len(bases) {
	case 0:
		return []*Type{t}, nil
	case 1:
		base := bases[0]
		baseMRO := base.MRO()
		mro := make([]*Type, 0, len(baseMRO)+1)
		mro = append(mro, t)
		return append(mro, baseMRO...), nil
	}

	calc := newMROCalculator(bases)
	merged := calc.calculate()
	if merged == nil {
		heads := calc.remainingHeads()
		names := make([]string, len(heads))
		for n, h := range heads {
			names[n] = h.Name
		}
		return nil, &MROError{TypeName: t.Name, Conflicting: names}
	}

	mro := make([]*Type, 0, len(merged)+1)
	mro = append(mro, t)
	return append(mro, merged...), nil
}

// mroBase holds the residual MRO of one base during the merge: the
// queue whose front element is the current head.
type mroBase struct {
	head int
	mro  []*Type
}

func (b *mroBase) empty() bool { return b.head >= len(b.mro) }

func (b *mroBase) peek() *Type {
	if b.head < len(b.mro) {
		return b.mro[b.head]
	}
	return nil
}

func (b *mroBase) pop() { b.head++ }

type mroCalculator struct {
	bases []*mroBase

	// uses counts, for every type along every base MRO, how often it
	// appears. A head qualifies for the output exactly when the queues
	// having it at the front account for all of its uses, i.e. it sits
	// in no queue's interior.
	uses map[*Type]int
}

func newMROCalculator(bases []*Type) *mroCalculator {
	calc := &mroCalculator{
		bases: make([]*mroBase, len(bases)),
		uses:  make(map[*Type]int, 4*len(bases)),
	}
	for n, base := range bases {
		mro := base.MRO()
		calc.bases[n] = &mroBase{mro: mro}
		for _, t := range mro {
			calc.uses[t]++
		}
	}
	return calc
}

// calculate runs the merge, returning nil when the hierarchy is
// inconsistent. The queues are left in their stuck state so
// remainingHeads can report the conflict.
func (c *mroCalculator) calculate() []*Type {
	var mro []*Type
	done := len(c.bases) == 0
	for !done {
		var h *Type
		for n := range c.bases {
			if h = c.goodNextType(n); h != nil {
				break
			}
		}
		if h == nil {
			// Stuck: every remaining head sits behind another head
			// somewhere on the list.
			return nil
		}
		mro = append(mro, h)
		done = true
		for _, b := range c.bases {
			if b.peek() == h {
				b.pop()
			}
			done = done && b.empty()
		}
	}
	return mro
}

// goodNextType inspects bases[n]: if it has a head, and that head is
// in the interior of no queue, the head is returned.
func (c *mroCalculator) goodNextType(n int) *Type {
	h := c.bases[n].peek()
	if h == nil {
		return nil
	}
	u := c.uses[h]
	for _, b := range c.bases {
		if b.peek() == h {
			if u--; u == 0 {
				return h
			}
		}
	}
	return nil
}

// remainingHeads returns the heads left when the merge got stuck, in
// base-declaration order without duplicates. There are at least two.
func (c *mroCalculator) remainingHeads() []*Type {
	var heads []*Type
	seen := make(map[*Type]bool)
	for _, b := range c.bases {
		if h := b.peek(); h != nil && !seen[h] {
			seen[h] = true
			heads = append(heads, h)
		}
	}
	return heads
}
