// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package wsi

import "testing"

func TestOffscreen(t *testing.T) {
	w := NewOffscreen(640, 480)
	if w.Width() != 640 || w.Height() != 480 {
		t.Fatalf("size:\nhave %dx%d\nwant 640x480", w.Width(), w.Height())
	}
	if w.Handle() != 0 {
		t.Fatalf("Handle:\nhave %#x\nwant 0", w.Handle())
	}
	if err := w.Map(); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := w.Unmap(); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if err := w.SetTitle("offscreen"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	if w.Title() != "offscreen" {
		t.Fatalf("Title:\nhave %q\nwant %q", w.Title(), "offscreen")
	}
	if err := w.Resize(800, 600); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if w.Width() != 800 || w.Height() != 600 {
		t.Fatalf("size after resize:\nhave %dx%d\nwant 800x600", w.Width(), w.Height())
	}
	if err := w.Resize(0, 600); err == nil {
		t.Fatal("Resize to zero width:\nhave nil\nwant error")
	}
	w.Close()
}
