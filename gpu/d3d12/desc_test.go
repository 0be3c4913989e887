// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"errors"
	"testing"

	"github.com/gviegas/ember/gpu"
)

func TestStagingHeapExhaustion(t *testing.T) {
	nat := newTestDevice()
	r, err := newRenderer(nat, false, Config{SamplerStaging: 1})
	if err != nil {
		t.Fatalf("newRenderer failed: %v", err)
	}
	defer r.Close()

	spln := gpu.Sampling{MaxAniso: 1}
	s, err := r.NewSampler(&spln)
	if err != nil {
		t.Fatalf("NewSampler failed: %v", err)
	}
	if _, err = r.NewSampler(&spln); !errors.Is(err, gpu.ErrTooLarge) {
		t.Fatalf("NewSampler on a full heap:\nhave %v\nwant %v", err, gpu.ErrTooLarge)
	}

	// Releasing the only sampler makes its slot available
	// again.
	r.ReleaseSampler(s)
	r.sweepDisposed()
	if _, err = r.NewSampler(&spln); err != nil {
		t.Fatalf("NewSampler after release:\nhave %v\nwant nil", err)
	}
}

func TestStagingHeapReuse(t *testing.T) {
	nat := newTestDevice()
	h, err := newStagingHeap(nat, descView, 128)
	if err != nil {
		t.Fatalf("newStagingHeap failed: %v", err)
	}
	a, err := h.alloc()
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	b, err := h.alloc()
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if a == b {
		t.Fatalf("alloc returned slot %d twice", a)
	}
	h.release(a)
	c, err := h.alloc()
	if err != nil {
		t.Fatalf("alloc failed: %v", err)
	}
	if c != a {
		t.Fatalf("alloc after release:\nhave %d\nwant %d", c, a)
	}
	// Negative slots are the "absent" encoding and must be
	// ignored.
	h.release(-1)
}

func TestGPUHeapRange(t *testing.T) {
	nat := newTestDevice()
	nh, err := nat.newDescHeap(descView, 8, true)
	if err != nil {
		t.Fatalf("newDescHeap failed: %v", err)
	}
	h := &gpuHeap{heap: nh, kind: descView, cap: 8}
	i, ok := h.allocRange(6)
	if !ok || i != 0 {
		t.Fatalf("allocRange(6):\nhave %d, %t\nwant 0, true", i, ok)
	}
	if _, ok = h.allocRange(3); ok {
		t.Fatal("allocRange(3) past capacity:\nhave true\nwant false")
	}
	i, ok = h.allocRange(2)
	if !ok || i != 6 {
		t.Fatalf("allocRange(2):\nhave %d, %t\nwant 6, true", i, ok)
	}
}

// TestDescTableExhaustion shrinks a command buffer's
// shader-visible view heap so the lazy table copy at draw
// time cannot fit, which must fail the recording with
// ErrTooLarge and skip execution.
func TestDescTableExhaustion(t *testing.T) {
	r, nat := newTestRenderer(t)

	vert, err := r.NewShader(&gpu.ShaderDesc{
		Code:     []byte{0xd, 0x3, 0xd, 0x12},
		Name:     "main",
		Stage:    gpu.SVertex,
		Samplers: 1,
	})
	if err != nil {
		t.Fatalf("NewShader failed: %v", err)
	}
	frag, err := r.NewShader(&gpu.ShaderDesc{
		Code:  []byte{0xd, 0x3, 0xd, 0x12},
		Name:  "main",
		Stage: gpu.SFragment,
	})
	if err != nil {
		t.Fatalf("NewShader failed: %v", err)
	}
	pl, err := r.NewGraphPipeline(&gpu.GraphState{
		Vert:     vert,
		Frag:     frag,
		Topology: gpu.TTriangle,
		Samples:  1,
		ColorFmt: []gpu.PixelFmt{gpu.RGBA8un},
	})
	if err != nil {
		t.Fatalf("NewGraphPipeline failed: %v", err)
	}
	tex, err := r.NewTexture(gpu.T2D, gpu.RGBA8un, gpu.Dim3D{Width: 4, Height: 4}, 1, 1, 1, gpu.UShaderSample|gpu.UShaderRead)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	target, err := r.NewTexture(gpu.T2D, gpu.RGBA8un, gpu.Dim3D{Width: 4, Height: 4}, 1, 1, 1, gpu.URenderTarget)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	spln, err := r.NewSampler(&gpu.Sampling{MaxAniso: 1})
	if err != nil {
		t.Fatalf("NewSampler failed: %v", err)
	}

	rec, err := r.AcquireCmdBuffer()
	if err != nil {
		t.Fatalf("AcquireCmdBuffer failed: %v", err)
	}
	cb := rec.(*cmdBuffer)
	cb.viewHeap.cap = 0

	cb.BeginRenderPass([]gpu.ColorTarget{{
		Texture: target,
		Load:    gpu.LClear,
		Store:   gpu.SStore,
	}}, nil)
	cb.BindPipeline(pl)
	cb.BindSamplers(gpu.SVertex, 0, []gpu.TextureSamplerBinding{{Texture: tex, Sampler: spln}})
	cb.Draw(3, 1, 0, 0)
	cb.EndRenderPass()
	if _, err = cb.Submit(false); !errors.Is(err, gpu.ErrTooLarge) {
		t.Fatalf("Submit of an exhausted recording:\nhave %v\nwant %v", err, gpu.ErrTooLarge)
	}
	if n := nat.drawCount(); n != 0 {
		t.Fatalf("native draws after failed Submit:\nhave %d\nwant 0", n)
	}

	// The shrunken heap went back to the pool; drop it so
	// later acquisitions get a fresh one.
	r.heapMu.Lock()
	r.viewHeaps = nil
	r.heapMu.Unlock()

	r.ReleasePipeline(pl)
	r.ReleaseTexture(tex)
	r.ReleaseTexture(target)
	r.ReleaseSampler(spln)
}
