// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package bitvec

import (
	"fmt"
	"testing"
)

func TestGrow(t *testing.T) {
	var v V[uint16]
	for _, n := range [...]int{0, 1, 3, 0, 8} {
		call := fmt.Sprintf("v.Grow(%d)", n)
		prev := v.Len()
		index := v.Grow(n)
		if index != prev {
			t.Errorf("%s\nhave %d\nwant %d", call, index, prev)
		}
		if x := v.Len(); x != prev+n*16 {
			t.Errorf("%s: v.Len()\nhave %d\nwant %d", call, x, prev+n*16)
		}
		if v.Rem() != v.Len() {
			t.Errorf("%s: v.Rem()\nhave %d\nwant %d", call, v.Rem(), v.Len())
		}
	}
}

func TestSetUnset(t *testing.T) {
	var v V[uint8]
	v.Grow(2)
	for _, i := range [...]int{0, 7, 8, 15} {
		v.Set(i)
		if !v.IsSet(i) {
			t.Errorf("v.Set(%d): v.IsSet(%d)\nhave false\nwant true", i, i)
		}
	}
	if v.Rem() != 12 {
		t.Errorf("v.Rem()\nhave %d\nwant 12", v.Rem())
	}
	// Setting a set bit must not change Rem.
	v.Set(7)
	if v.Rem() != 12 {
		t.Errorf("v.Rem()\nhave %d\nwant 12", v.Rem())
	}
	v.Unset(7)
	if v.IsSet(7) {
		t.Error("v.Unset(7): v.IsSet(7)\nhave true\nwant false")
	}
	v.Unset(7)
	if v.Rem() != 13 {
		t.Errorf("v.Rem()\nhave %d\nwant 13", v.Rem())
	}
	v.Clear()
	if v.Rem() != v.Len() {
		t.Errorf("v.Clear(): v.Rem()\nhave %d\nwant %d", v.Rem(), v.Len())
	}
}

func TestSearch(t *testing.T) {
	var v V[uint32]
	if _, ok := v.Search(); ok {
		t.Error("v.Search()\nhave _, true\nwant _, false")
	}
	v.Grow(1)
	for i := 0; i < 32; i++ {
		index, ok := v.Search()
		if !ok {
			t.Fatalf("v.Search()\nhave _, false\nwant %d, true", i)
		}
		if index != i {
			t.Errorf("v.Search()\nhave %d\nwant %d", index, i)
		}
		v.Set(index)
	}
	if _, ok := v.Search(); ok {
		t.Error("v.Search()\nhave _, true\nwant _, false")
	}
	v.Unset(13)
	if index, ok := v.Search(); !ok || index != 13 {
		t.Errorf("v.Search()\nhave %d, %t\nwant 13, true", index, ok)
	}
}

func TestAlloc(t *testing.T) {
	var v V[uint8]
	index, grew := v.Alloc()
	if index != 0 || !grew {
		t.Errorf("v.Alloc()\nhave %d, %t\nwant 0, true", index, grew)
	}
	for i := 1; i < 8; i++ {
		index, grew = v.Alloc()
		if index != i || grew {
			t.Errorf("v.Alloc()\nhave %d, %t\nwant %d, false", index, grew, i)
		}
	}
	index, grew = v.Alloc()
	if index != 8 || !grew {
		t.Errorf("v.Alloc()\nhave %d, %t\nwant 8, true", index, grew)
	}
	if v.Rem() != 7 {
		t.Errorf("v.Rem()\nhave %d\nwant 7", v.Rem())
	}
}
