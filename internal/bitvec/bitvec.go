// Copyright 2025 Gustavo C. Viegas. All rights reserved.

// Package bitvec defines a growable bit vector used for
// free list management of pooled GPU objects, such as
// descriptor heap slots and command buffers.
package bitvec

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// V is a growable bit vector with custom granularity.
// A set bit represents an index in use; an unset bit is
// free for allocation.
type V[T constraints.Unsigned] struct {
	s   []T
	rem int
}

// nbit returns the number of bits in T.
func (*V[T]) nbit() int { return int(unsafe.Sizeof(T(0))) * 8 }

// Len returns the number of bits in the vector.
func (v *V[_]) Len() int { return len(v.s) * v.nbit() }

// Rem returns the number of unset bits in the vector.
func (v *V[_]) Rem() int { return v.rem }

// Grow resizes the vector to contain nplus additional Uints.
// The new extent is appended as a contiguous range of unset
// bits. It returns the value of v.Len prior to appending the
// new extent, so if nplus is less than 1, this value will be
// out of bounds.
func (v *V[T]) Grow(nplus int) (index int) {
	index = v.Len()
	if nplus > 0 {
		v.rem += nplus * v.nbit()
		v.s = append(v.s, make([]T, nplus)...)
	}
	return
}

// Set sets a given bit.
func (v *V[T]) Set(index int) {
	n := v.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	if v.s[i]&b == 0 {
		v.s[i] |= b
		v.rem--
	}
}

// Unset unsets a given bit.
func (v *V[T]) Unset(index int) {
	n := v.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	if v.s[i]&b != 0 {
		v.s[i] &^= b
		v.rem++
	}
}

// IsSet checks whether a given bit is set.
func (v *V[T]) IsSet(index int) bool {
	n := v.nbit()
	i := index / n
	b := T(1) << (index & (n - 1))
	return v.s[i]&b != 0
}

// Search attempts to locate an unset bit in the vector.
// If ok is true, then index is a value suitable for use
// in a call to v.Set.
// This method will fail only when v.Rem() == 0.
func (v *V[T]) Search() (index int, ok bool) {
	if v.Rem() == 0 {
		return
	}
	for i, x := range v.s {
		if x == ^T(0) {
			continue
		}
		var b int
		for ; x&(1<<b) != 0; b++ {
		}
		index = i*v.nbit() + b
		ok = true
		break
	}
	return
}

// Alloc locates an unset bit, sets it and returns its index.
// If no bit is unset, the vector grows by one Uint first, so
// Alloc always succeeds. The second return value reports
// whether growth happened.
func (v *V[T]) Alloc() (index int, grew bool) {
	index, ok := v.Search()
	if !ok {
		index = v.Grow(1)
		grew = true
	}
	v.Set(index)
	return
}

// Clear unsets every bit in the vector.
func (v *V[T]) Clear() {
	n := v.Len()
	if n == v.Rem() {
		return
	}
	clear(v.s)
	v.rem = n
}
