// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"bytes"
	"testing"

	"github.com/gviegas/ember/gpu"
)

func TestBufferUploadDownload(t *testing.T) {
	r, nat := newTestRenderer(t)

	up, err := r.NewTransferBuffer(256, false)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	down, err := r.NewTransferBuffer(256, true)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	buf, err := r.NewBuffer(256, gpu.UShaderRead)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	mem, err := r.MapTransferBuffer(up, false)
	if err != nil {
		t.Fatalf("MapTransferBuffer failed: %v", err)
	}
	for i := range mem {
		mem[i] = byte(i)
	}
	r.UnmapTransferBuffer(up)

	rec, err := r.AcquireCmdBuffer()
	if err != nil {
		t.Fatalf("AcquireCmdBuffer failed: %v", err)
	}
	rec.BeginCopyPass()
	rec.UploadToBuffer(
		&gpu.TransferLocation{TransferBuffer: up},
		&gpu.BufferRegion{Buffer: buf, Size: 256},
		false)
	rec.DownloadFromBuffer(
		&gpu.BufferRegion{Buffer: buf, Size: 256},
		&gpu.TransferLocation{TransferBuffer: down})
	rec.EndCopyPass()
	if _, err := rec.Submit(false); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	got, err := r.MapTransferBuffer(down, false)
	if err != nil {
		t.Fatalf("MapTransferBuffer failed: %v", err)
	}
	if !bytes.Equal(got, mem) {
		t.Fatal("downloaded data differs from uploaded data")
	}

	r.ReleaseBuffer(buf)
	r.ReleaseTransferBuffer(up)
	r.ReleaseTransferBuffer(down)
}

// TestUploadToTextureRealign checks that a tightly-packed
// upload whose row pitch misses the alignment requirement
// goes through an intermediate buffer with padded rows.
func TestUploadToTextureRealign(t *testing.T) {
	r, nat := newTestRenderer(t)

	// 3 pixels of 4 bytes per row: 12-byte rows, far from
	// the 256-byte pitch requirement.
	const rowPitch = 12
	const rows = 3
	tb, err := r.NewTransferBuffer(rowPitch*rows, false)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	tex, err := r.NewTexture(gpu.T2D, gpu.RGBA8un, gpu.Dim3D{Width: 3, Height: 3}, 1, 1, 1, gpu.UShaderSample)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}

	mem, err := r.MapTransferBuffer(tb, false)
	if err != nil {
		t.Fatalf("MapTransferBuffer failed: %v", err)
	}
	for i := range mem {
		mem[i] = byte(i + 1)
	}

	rec, err := r.AcquireCmdBuffer()
	if err != nil {
		t.Fatalf("AcquireCmdBuffer failed: %v", err)
	}
	cb := rec.(*cmdBuffer)
	cb.BeginCopyPass()
	cb.UploadToTexture(
		&gpu.TextureTransferInfo{TransferBuffer: tb},
		&gpu.TextureRegion{Texture: tex, Dim: gpu.Dim3D{Width: 3, Height: 3, Depth: 1}},
		false)
	cb.EndCopyPass()
	if n := len(cb.temps); n != 1 {
		t.Fatalf("len(temps):\nhave %d\nwant 1", n)
	}
	// The fake applies buffer copies eagerly, so the
	// intermediate already holds the padded rows.
	tmp := cb.temps[0].(*testBuffer)
	for row := 0; row < rows; row++ {
		have := tmp.mem[row*rowPitchAlign:][:rowPitch]
		want := mem[row*rowPitch:][:rowPitch]
		if !bytes.Equal(have, want) {
			t.Fatalf("intermediate row %d differs from source", row)
		}
	}
	if _, err := cb.Submit(false); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !tmp.freed {
		t.Fatal("intermediate buffer not freed at reclamation")
	}
	r.ReleaseTexture(tex)
	r.ReleaseTransferBuffer(tb)
}

func TestUploadToTextureAligned(t *testing.T) {
	r, nat := newTestRenderer(t)

	// 64 pixels of 4 bytes per row: 256-byte rows, already
	// aligned, so no intermediate is needed.
	tb, err := r.NewTransferBuffer(256*64, false)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	tex, err := r.NewTexture(gpu.T2D, gpu.RGBA8un, gpu.Dim3D{Width: 64, Height: 64}, 1, 1, 1, gpu.UShaderSample)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}

	rec, err := r.AcquireCmdBuffer()
	if err != nil {
		t.Fatalf("AcquireCmdBuffer failed: %v", err)
	}
	cb := rec.(*cmdBuffer)
	cb.BeginCopyPass()
	cb.UploadToTexture(
		&gpu.TextureTransferInfo{TransferBuffer: tb},
		&gpu.TextureRegion{Texture: tex, Dim: gpu.Dim3D{Width: 64, Height: 64, Depth: 1}},
		false)
	cb.EndCopyPass()
	if n := len(cb.temps); n != 0 {
		t.Fatalf("len(temps):\nhave %d\nwant 0", n)
	}
	if _, err := cb.Submit(false); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	r.ReleaseTexture(tex)
	r.ReleaseTransferBuffer(tb)
}

func TestDownloadRepack(t *testing.T) {
	const rowPitch = 12
	const alignedPitch = 256
	const rows = 2
	const depth = 2

	tmp := &testBuffer{mem: make([]byte, alignedPitch*rows*depth)}
	for i := 0; i < rows*depth; i++ {
		for j := 0; j < rowPitch; j++ {
			tmp.mem[i*alignedPitch+j] = byte(i*rowPitch + j + 1)
		}
	}
	dst := &transferBuffer{
		res:      &testBuffer{mem: make([]byte, rowPitch*rows*depth)},
		size:     rowPitch * rows * depth,
		download: true,
	}
	d := downloadRepack{
		tmp:          tmp,
		dst:          dst,
		rowPitch:     rowPitch,
		alignedPitch: alignedPitch,
		rows:         rows,
		depth:        depth,
	}
	d.repack()

	got := dst.res.bytes()
	for i := range got {
		if got[i] != byte(i+1) {
			t.Fatalf("repacked byte %d:\nhave %d\nwant %d", i, got[i], byte(i+1))
		}
	}
}

func TestDownloadFromTextureRealign(t *testing.T) {
	r, nat := newTestRenderer(t)

	tb, err := r.NewTransferBuffer(64, true)
	if err != nil {
		t.Fatalf("NewTransferBuffer failed: %v", err)
	}
	tex, err := r.NewTexture(gpu.T2D, gpu.RGBA8un, gpu.Dim3D{Width: 3, Height: 3}, 1, 1, 1, gpu.UShaderSample)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}

	rec, err := r.AcquireCmdBuffer()
	if err != nil {
		t.Fatalf("AcquireCmdBuffer failed: %v", err)
	}
	cb := rec.(*cmdBuffer)
	cb.BeginCopyPass()
	cb.DownloadFromTexture(
		&gpu.TextureRegion{Texture: tex, Dim: gpu.Dim3D{Width: 3, Height: 3, Depth: 1}},
		&gpu.TextureTransferInfo{TransferBuffer: tb})
	cb.EndCopyPass()
	if n := len(cb.downloads); n != 1 {
		t.Fatalf("len(downloads):\nhave %d\nwant 1", n)
	}
	if _, err := cb.Submit(false); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The repack must not run until the work completed.
	nat.completeAll()
	if err := r.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	r.ReleaseTexture(tex)
	r.ReleaseTransferBuffer(tb)
}
