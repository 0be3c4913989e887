// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import "testing"

func TestBytes(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	b := Bytes(v)
	if len(b) != len(v)*4 {
		t.Fatalf("len(Bytes):\nhave %d\nwant %d", len(b), len(v)*4)
	}
	// The bytes alias the slice memory.
	v[0] = 5
	c := Bytes(v[:1])
	if len(c) != 4 {
		t.Fatalf("len(Bytes):\nhave %d\nwant 4", len(c))
	}
	for i := range c {
		if c[i] != b[i] {
			t.Fatal("Bytes does not alias the slice memory")
		}
	}

	type vertex struct {
		Pos [3]float32
		UV  [2]float32
	}
	q := make([]vertex, 6)
	if n := len(Bytes(q)); n != 6*20 {
		t.Fatalf("len(Bytes):\nhave %d\nwant %d", n, 6*20)
	}

	if b := Bytes([]uint16(nil)); len(b) != 0 {
		t.Fatalf("len(Bytes(nil)):\nhave %d\nwant 0", len(b))
	}
}
