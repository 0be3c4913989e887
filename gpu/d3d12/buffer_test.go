// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"fmt"
	"testing"

	"github.com/gviegas/ember/gpu"
)

func TestDefaultBufferState(t *testing.T) {
	for _, c := range [...]struct {
		usage gpu.Usage
		want  resState
	}{
		{0, resStateCommon},
		{gpu.UVertexData, resStateVertexConstBuf},
		{gpu.UIndexData, resStateIndexBuf},
		{gpu.UIndirect, resStateIndirectArg},
		{gpu.UShaderRead, resStateAllShaderResource},
		{gpu.UShaderWrite, resStateUnorderedAccess},
		{gpu.UVertexData | gpu.UShaderRead, resStateVertexConstBuf},
		{gpu.UShaderRead | gpu.UShaderWrite, resStateAllShaderResource},
	} {
		call := fmt.Sprintf("defaultBufferState(%d)", c.usage)
		if s := defaultBufferState(c.usage); s != c.want {
			t.Fatalf("%s:\nhave %#x\nwant %#x", call, s, c.want)
		}
	}
}

// uploadOnce records a single buffer upload and submits it
// without waiting, leaving the destination referenced by
// pending work.
func uploadOnce(t *testing.T, r *renderer, tb gpu.TransferBuffer, buf gpu.Buffer, cycle bool) {
	t.Helper()
	rec, err := r.AcquireCmdBuffer()
	if err != nil {
		t.Fatalf("AcquireCmdBuffer failed: %v", err)
	}
	rec.BeginCopyPass()
	rec.UploadToBuffer(
		&gpu.TransferLocation{TransferBuffer: tb},
		&gpu.BufferRegion{Buffer: buf, Size: 256},
		cycle)
	rec.EndCopyPass()
	if _, err := rec.Submit(false); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
}

func TestBufferCycling(t *testing.T) {
	r, nat := newTestRenderer(t)

	tb, err := r.NewTransferBuffer(256, false)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	buf, err := r.NewBuffer(256, gpu.UShaderRead)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	c := buf.(*bufferContainer)
	first := c.active

	uploadOnce(t, r, tb, buf, false)
	if c.active != first {
		t.Fatal("upload without cycle replaced the active allocation")
	}
	if n := first.refs.Load(); n == 0 {
		t.Fatal("active allocation unreferenced while work is pending")
	}

	// The active allocation is in flight, so cycling must
	// grow the container.
	uploadOnce(t, r, tb, buf, true)
	if len(c.bufs) != 2 {
		t.Fatalf("len(bufs) after cycle:\nhave %d\nwant 2", len(c.bufs))
	}
	if c.active == first {
		t.Fatal("cycle kept the referenced allocation active")
	}

	// Once the pending work completes, cycling reuses an
	// idle allocation instead of growing.
	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	uploadOnce(t, r, tb, buf, true)
	if len(c.bufs) != 2 {
		t.Fatalf("len(bufs) after idle cycle:\nhave %d\nwant 2", len(c.bufs))
	}

	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	r.ReleaseBuffer(buf)
	r.ReleaseTransferBuffer(tb)
}

func TestBufferLabelPropagation(t *testing.T) {
	r, nat := newTestRenderer(t)

	tb, err := r.NewTransferBuffer(256, false)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	buf, err := r.NewBuffer(256, gpu.UShaderRead)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	c := buf.(*bufferContainer)

	buf.SetLabel("staging")
	if name := c.active.res.(*testBuffer).name; name != "staging" {
		t.Fatalf("active name after SetLabel:\nhave %q\nwant %q", name, "staging")
	}

	// A cycled-in allocation carries the label too.
	uploadOnce(t, r, tb, buf, false)
	uploadOnce(t, r, tb, buf, true)
	if len(c.bufs) != 2 {
		t.Fatalf("len(bufs) after cycle:\nhave %d\nwant 2", len(c.bufs))
	}
	if name := c.active.res.(*testBuffer).name; name != "staging" {
		t.Fatalf("cycled allocation name:\nhave %q\nwant %q", name, "staging")
	}

	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	r.ReleaseBuffer(buf)
	r.ReleaseTransferBuffer(tb)
}

func TestMapTransferBufferCycle(t *testing.T) {
	r, nat := newTestRenderer(t)

	tb, err := r.NewTransferBuffer(512, false)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	buf, err := r.NewBuffer(512, gpu.UVertexData)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	c := tb.(*transferContainer)
	first := c.active

	if _, err := r.MapTransferBuffer(tb, true); err != nil {
		t.Fatalf("MapTransferBuffer failed: %v", err)
	}
	if c.active != first {
		t.Fatal("Map cycled an unreferenced allocation")
	}

	uploadOnce(t, r, tb, buf, false)
	if _, err := r.MapTransferBuffer(tb, false); err != nil {
		t.Fatalf("MapTransferBuffer failed: %v", err)
	}
	if c.active != first {
		t.Fatal("Map without cycle replaced the active allocation")
	}
	if _, err := r.MapTransferBuffer(tb, true); err != nil {
		t.Fatalf("MapTransferBuffer failed: %v", err)
	}
	if c.active == first {
		t.Fatal("Map with cycle kept the referenced allocation")
	}
	if len(c.bufs) != 2 {
		t.Fatalf("len(bufs):\nhave %d\nwant 2", len(c.bufs))
	}

	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	r.ReleaseBuffer(buf)
	r.ReleaseTransferBuffer(tb)
}
