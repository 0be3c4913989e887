// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import (
	"fmt"
	"log"

	"github.com/gviegas/ember/wsi"
)

// Device owns every resource pool of an opened backend and
// is the single entry point a client obtains handles from.
// All methods are safe for concurrent use.
type Device struct {
	r       Renderer
	backend string
	debug   bool
}

// Backend returns the name of the backend that the device
// was opened from.
func (d *Device) Backend() string { return d.backend }

// Debug returns whether the device validates usage.
func (d *Device) Debug() bool { return d.debug }

// Limits returns the device limits.
func (d *Device) Limits() Limits { return d.r.Limits() }

// Close waits for pending work and destroys the device.
// Every handle created from the device becomes invalid.
func (d *Device) Close() {
	if err := d.r.Wait(); err != nil {
		log.Printf("[!] gpu: wait on close: %v", err)
	}
	d.r.Close()
}

// invalid wraps a usage violation found by debug
// validation.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// NewBuffer creates a new buffer.
func (d *Device) NewBuffer(size int64, usage Usage) (Buffer, error) {
	if d.debug {
		if size <= 0 {
			return nil, invalid("NewBuffer: size %d", size)
		}
		if usage&(UShaderSample|URenderTarget|UDSTarget) != 0 {
			return nil, invalid("NewBuffer: texture-only usage %#x", usage)
		}
	}
	return d.r.NewBuffer(size, usage)
}

// NewTexture creates a new texture.
// dim.Depth is only meaningful for T3D textures; layers is
// only meaningful for T2DArray and TCube.
func (d *Device) NewTexture(typ TexType, fmt PixelFmt, dim Dim3D, layers, levels, samples int, usage Usage) (Texture, error) {
	if d.debug {
		switch {
		case fmt == FInvalid:
			return nil, invalid("NewTexture: invalid format")
		case dim.Width <= 0 || dim.Height <= 0:
			return nil, invalid("NewTexture: dim %v", dim)
		case typ == T3D && dim.Depth <= 0:
			return nil, invalid("NewTexture: 3D dim %v", dim)
		case layers <= 0 || levels <= 0 || samples <= 0:
			return nil, invalid("NewTexture: layers/levels/samples %d/%d/%d", layers, levels, samples)
		case usage&(UVertexData|UIndexData|UIndirect) != 0:
			return nil, invalid("NewTexture: buffer-only usage %#x", usage)
		case !d.r.SupportsFormat(fmt, typ, usage):
			return nil, invalid("NewTexture: unsupported format %d for usage %#x", fmt, usage)
		}
	}
	return d.r.NewTexture(typ, fmt, dim, layers, levels, samples, usage)
}

// NewTransferBuffer creates a new transfer buffer for
// upload (download false) or readback (download true).
func (d *Device) NewTransferBuffer(size int64, download bool) (TransferBuffer, error) {
	if d.debug && size <= 0 {
		return nil, invalid("NewTransferBuffer: size %d", size)
	}
	return d.r.NewTransferBuffer(size, download)
}

// NewSampler creates a new sampler.
func (d *Device) NewSampler(spln *Sampling) (Sampler, error) {
	if d.debug && spln == nil {
		return nil, invalid("NewSampler: nil Sampling")
	}
	return d.r.NewSampler(spln)
}

// NewShader creates a new shader from backend-specific
// bytecode.
func (d *Device) NewShader(desc *ShaderDesc) (Shader, error) {
	if d.debug {
		switch {
		case desc == nil:
			return nil, invalid("NewShader: nil ShaderDesc")
		case len(desc.Code) == 0:
			return nil, invalid("NewShader: no code")
		case desc.Stage != SVertex && desc.Stage != SFragment && desc.Stage != SCompute:
			return nil, invalid("NewShader: stage %#x", desc.Stage)
		case desc.Samplers < 0 || desc.StorageTextures < 0 || desc.StorageBuffers < 0 || desc.UniformBuffers < 0:
			return nil, invalid("NewShader: negative resource count")
		}
	}
	return d.r.NewShader(desc)
}

// NewGraphPipeline creates a new graphics pipeline.
func (d *Device) NewGraphPipeline(state *GraphState) (Pipeline, error) {
	if d.debug {
		switch {
		case state == nil:
			return nil, invalid("NewGraphPipeline: nil GraphState")
		case state.Vert == nil || state.Vert.Stage() != SVertex:
			return nil, invalid("NewGraphPipeline: bad vertex shader")
		case state.Frag == nil || state.Frag.Stage() != SFragment:
			return nil, invalid("NewGraphPipeline: bad fragment shader")
		case len(state.ColorFmt) == 0 && state.DSFmt == FInvalid:
			return nil, invalid("NewGraphPipeline: no attachments")
		case len(state.Blend) != 0 && len(state.Blend) != len(state.ColorFmt):
			return nil, invalid("NewGraphPipeline: blend/format count mismatch")
		}
	}
	return d.r.NewGraphPipeline(state)
}

// NewCompPipeline creates a new compute pipeline.
func (d *Device) NewCompPipeline(state *CompState) (Pipeline, error) {
	if d.debug {
		switch {
		case state == nil:
			return nil, invalid("NewCompPipeline: nil CompState")
		case len(state.Code) == 0:
			return nil, invalid("NewCompPipeline: no code")
		}
	}
	return d.r.NewCompPipeline(state)
}

// The Release methods do not free memory immediately.
// The handle becomes invalid for the client, but backing
// allocations enter a deferred destruction queue and are
// freed once no pending command buffer references them.

// ReleaseBuffer releases a buffer.
func (d *Device) ReleaseBuffer(b Buffer) {
	if b == nil {
		return
	}
	d.r.ReleaseBuffer(b)
}

// ReleaseTexture releases a texture.
func (d *Device) ReleaseTexture(t Texture) {
	if t == nil {
		return
	}
	d.r.ReleaseTexture(t)
}

// ReleaseTransferBuffer releases a transfer buffer.
func (d *Device) ReleaseTransferBuffer(tb TransferBuffer) {
	if tb == nil {
		return
	}
	d.r.ReleaseTransferBuffer(tb)
}

// ReleaseSampler releases a sampler.
func (d *Device) ReleaseSampler(s Sampler) {
	if s == nil {
		return
	}
	d.r.ReleaseSampler(s)
}

// ReleaseShader releases a shader.
func (d *Device) ReleaseShader(s Shader) {
	if s == nil {
		return
	}
	d.r.ReleaseShader(s)
}

// ReleasePipeline releases a pipeline.
func (d *Device) ReleasePipeline(p Pipeline) {
	if p == nil {
		return
	}
	d.r.ReleasePipeline(p)
}

// MapTransferBuffer maps a transfer buffer into host
// memory. If cycle is true and the buffer is referenced by
// pending GPU work, it rotates to an idle backing
// allocation first, so the returned memory is never being
// read by the GPU.
func (d *Device) MapTransferBuffer(tb TransferBuffer, cycle bool) ([]byte, error) {
	if d.debug && tb == nil {
		return nil, invalid("MapTransferBuffer: nil TransferBuffer")
	}
	return d.r.MapTransferBuffer(tb, cycle)
}

// UnmapTransferBuffer unmaps a transfer buffer.
func (d *Device) UnmapTransferBuffer(tb TransferBuffer) {
	if tb == nil {
		return
	}
	d.r.UnmapTransferBuffer(tb)
}

// AcquireCmdBuffer obtains a command buffer from the
// device's pool. The command buffer must be recorded by a
// single goroutine and submitted exactly once.
func (d *Device) AcquireCmdBuffer() (*CmdBuffer, error) {
	rec, err := d.r.AcquireCmdBuffer()
	if err != nil {
		return nil, err
	}
	return &CmdBuffer{d: d, rec: rec}, nil
}

// Wait blocks until the device is idle.
func (d *Device) Wait() error { return d.r.Wait() }

// WaitForFences blocks until all (or any, if all is false)
// of the given fences signal.
func (d *Device) WaitForFences(all bool, fences ...Fence) error {
	if d.debug {
		if len(fences) == 0 {
			return invalid("WaitForFences: no fences")
		}
		for _, f := range fences {
			if f == nil {
				return invalid("WaitForFences: nil fence")
			}
		}
	}
	return d.r.WaitForFences(all, fences...)
}

// ReleaseFence releases a fence obtained from
// CmdBuffer.SubmitAndAcquireFence back to the pool.
func (d *Device) ReleaseFence(f Fence) {
	if f == nil {
		return
	}
	d.r.ReleaseFence(f)
}

// SupportsFormat returns whether textures of the given
// type/format/usage combination can be created.
func (d *Device) SupportsFormat(fmt PixelFmt, typ TexType, usage Usage) bool {
	return d.r.SupportsFormat(fmt, typ, usage)
}

// BestSampleCount returns the highest supported sample
// count for render targets of the given format.
func (d *Device) BestSampleCount(fmt PixelFmt) int { return d.r.BestSampleCount(fmt) }

// ClaimWindow creates a swapchain for the window, enabling
// CmdBuffer.AcquireSwapchainTexture.
func (d *Device) ClaimWindow(w wsi.Window) error {
	if d.debug && w == nil {
		return invalid("ClaimWindow: nil Window")
	}
	return d.r.ClaimWindow(w)
}

// UnclaimWindow destroys the window's swapchain.
func (d *Device) UnclaimWindow(w wsi.Window) {
	if w == nil {
		return
	}
	d.r.UnclaimWindow(w)
}

// SetSwapchainParams reconfigures the window's swapchain.
func (d *Device) SetSwapchainParams(w wsi.Window, comp Composition, mode PresentMode) error {
	if d.debug && w == nil {
		return invalid("SetSwapchainParams: nil Window")
	}
	return d.r.SetSwapchainParams(w, comp, mode)
}

// SwapchainFormat returns the texture format of the
// window's swapchain, or FInvalid if the window is not
// claimed.
func (d *Device) SwapchainFormat(w wsi.Window) PixelFmt { return d.r.SwapchainFormat(w) }
