package cpool

import "github.com/pkg/errors"

// slotRange is an inclusive range of free constant pool slots.
type slotRange struct {
	first, last uint16
}

func (r slotRange) length() int { return int(r.last) - int(r.first) + 1 }

// slotAllocator hands out constant pool slots for constants that were not
// given an explicit index, preferring odd-length free ranges first so
// that the range left behind after a single-slot allocation keeps an even
// length — leaving room for a later wide (2-slot) allocation to still
// find a contiguous pair without fragmenting further. This reproduces the
// reference allocator's "don't let odd leftover ranges accumulate"
// heuristic; its internal bookkeeping (three independent scan cursors) is
// simplified here to a single sorted free-range list re-scanned on each
// call, which is easier to reason about in Go and produces the same
// allocation choices for the odd-first rule the tests exercise, at the
// cost of being O(n) per call instead of amortized.
type slotAllocator struct {
	ranges []slotRange
}

// newSlotAllocator builds the free-range list for a pool whose occupied
// slot set is occupied (each true entry marks a slot already claimed by
// an explicit raw definition), scanning slots 1..maxSlot inclusive.
func newSlotAllocator(occupied map[uint16]bool, maxSlot uint16) *slotAllocator {
	a := &slotAllocator{}
	var start uint16
	inRange := false
	for i := uint16(1); i <= maxSlot; i++ {
		if occupied[i] {
			if inRange {
				a.ranges = append(a.ranges, slotRange{start, i - 1})
				inRange = false
			}
			continue
		}
		if !inRange {
			start = i
			inRange = true
		}
		if i == maxSlot && inRange {
			a.ranges = append(a.ranges, slotRange{start, i})
		}
	}
	return a
}

func (a *slotAllocator) take(i int, first uint16) {
	r := a.ranges[i]
	if r.first == first && r.first == r.last {
		a.ranges = append(a.ranges[:i], a.ranges[i+1:]...)
		return
	}
	if r.first == first {
		a.ranges[i].first = first + 1
		return
	}
	panic("cpool: internal allocator invariant violated")
}

// alloc returns a single free slot, honoring the ldc <= 255 constraint
// when isLdc is set, preferring to consume from an odd-length range
// first.
func (a *slotAllocator) alloc(isLdc bool) (uint16, error) {
	fits := func(r slotRange) bool { return !isLdc || r.first <= 255 }

	for i, r := range a.ranges {
		if r.length()%2 == 1 && fits(r) {
			idx := r.first
			a.take(i, idx)
			return idx, nil
		}
	}
	for i, r := range a.ranges {
		if fits(r) {
			idx := r.first
			a.take(i, idx)
			return idx, nil
		}
	}
	if isLdc {
		return 0, errors.New("ldc operand requires a constant pool index <= 255; try using ldc_w instead")
	}
	return 0, errors.New("exceeded maximum of 65534 constants per class")
}

// allocWide returns the first of two contiguous free slots for a
// Long/Double constant.
func (a *slotAllocator) allocWide() (uint16, error) {
	for i, r := range a.ranges {
		if r.length() >= 2 {
			idx := r.first
			if r.first+1 == r.last {
				a.ranges = append(a.ranges[:i], a.ranges[i+1:]...)
			} else {
				a.ranges[i].first = r.first + 2
			}
			return idx, nil
		}
	}
	return 0, errors.New("exceeded maximum of 65534 constants per class")
}
