// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import "testing"

func TestFenceMonotonicTarget(t *testing.T) {
	r, nat := newTestRenderer(t)

	f, err := r.acquireFence()
	if err != nil {
		t.Fatalf("acquireFence failed: %v", err)
	}
	if f.target != 1 {
		t.Fatalf("fence.target:\nhave %d\nwant 1", f.target)
	}
	if f.Signaled() {
		t.Fatal("fence.Signaled:\nhave true\nwant false")
	}
	r.nat.signal(f.nat, f.target)
	nat.completeAll()
	if !f.Signaled() {
		t.Fatal("fence.Signaled:\nhave false\nwant true")
	}
	r.releaseFence(f)

	// Reuse must advance the target past the previous
	// signal, so the old completion is not observable.
	g, err := r.acquireFence()
	if err != nil {
		t.Fatalf("acquireFence failed: %v", err)
	}
	if g != f {
		t.Fatal("acquireFence did not reuse the pooled fence")
	}
	if g.target != 2 {
		t.Fatalf("fence.target:\nhave %d\nwant 2", g.target)
	}
	if g.Signaled() {
		t.Fatal("fence.Signaled after reuse:\nhave true\nwant false")
	}
	r.nat.signal(g.nat, g.target)
	nat.completeAll()
	if !g.Signaled() {
		t.Fatal("fence.Signaled after reuse:\nhave false\nwant true")
	}
	r.releaseFence(g)
}

func TestFenceSharedRefs(t *testing.T) {
	r, nat := newTestRenderer(t)

	f, err := r.acquireFence()
	if err != nil {
		t.Fatalf("acquireFence failed: %v", err)
	}
	f.refs.Add(1)
	r.releaseFence(f)
	r.fenceMu.Lock()
	n := len(r.fencePool)
	r.fenceMu.Unlock()
	if n != 0 {
		t.Fatalf("len(fencePool) with an outstanding ref:\nhave %d\nwant 0", n)
	}
	r.releaseFence(f)
	r.fenceMu.Lock()
	n = len(r.fencePool)
	r.fenceMu.Unlock()
	if n != 1 {
		t.Fatalf("len(fencePool) after last release:\nhave %d\nwant 1", n)
	}
	nat.completeAll()
}
