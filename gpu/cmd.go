// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import (
	"log"

	"github.com/gviegas/ember/wsi"
)

// passKind identifies the pass a command buffer is
// currently recording.
type passKind int

const (
	passNone passKind = iota
	passRender
	passCompute
	passCopy
)

func (p passKind) String() string {
	switch p {
	case passRender:
		return "render pass"
	case passCompute:
		return "compute pass"
	case passCopy:
		return "copy pass"
	}
	return "no pass"
}

// CmdBuffer records draw/dispatch/copy work for a single
// submission.
//
// Recording follows a strict pass discipline: at most one
// of render/compute/copy pass may be in progress, and
// Submit is only legal with no pass open. Once submitted,
// the command buffer is spent; recording calls on a spent
// command buffer are usage errors.
//
// A CmdBuffer must be used by a single goroutine.
//
// On a device opened in debug mode, every method validates
// these preconditions; violations make the call a no-op
// (logged, and reported by methods that return an error).
// Without debug, violations are undefined behavior.
type CmdBuffer struct {
	d         *Device
	rec       CmdRecorder
	pass      passKind
	pipeline  Pipeline
	submitted bool
}

// check validates that the command buffer can record in
// the given pass. It returns nil when the device does not
// validate usage.
func (c *CmdBuffer) check(call string, want passKind) error {
	if !c.d.debug {
		return nil
	}
	if c.submitted {
		return invalid("%s: command buffer already submitted", call)
	}
	if c.pass != want {
		return invalid("%s: in %s, want %s", call, c.pass, want)
	}
	return nil
}

// checkBound validates the bound pipeline kind.
func (c *CmdBuffer) checkBound(call string, compute bool) error {
	if !c.d.debug {
		return nil
	}
	if c.pipeline == nil {
		return invalid("%s: no pipeline bound", call)
	}
	if c.pipeline.Compute() != compute {
		return invalid("%s: wrong pipeline kind", call)
	}
	return nil
}

// checkStage validates a binding stage against the
// current pass.
func (c *CmdBuffer) checkStage(call string, stage Stage) error {
	if !c.d.debug {
		return nil
	}
	switch stage {
	case SVertex, SFragment:
		return c.check(call, passRender)
	case SCompute:
		return c.check(call, passCompute)
	}
	return invalid("%s: stage %#x", call, stage)
}

// nope logs a validation failure for a void method.
func nope(err error) { log.Printf("[!] %v", err) }

// BeginRenderPass begins a render pass targeting the given
// attachments. At least one color or depth/stencil
// attachment is required.
// The default viewport and scissor cover the smallest
// mip-adjusted attachment extent.
func (c *CmdBuffer) BeginRenderPass(color []ColorTarget, ds *DSTarget) error {
	if err := c.check("BeginRenderPass", passNone); err != nil {
		return err
	}
	if c.d.debug {
		if len(color) == 0 && ds == nil {
			return invalid("BeginRenderPass: no attachments")
		}
		if len(color) > c.d.r.Limits().MaxColorTargets {
			return invalid("BeginRenderPass: %d color targets", len(color))
		}
		for i := range color {
			if color[i].Texture == nil {
				return invalid("BeginRenderPass: nil color target %d", i)
			}
			if color[i].Texture.Usage()&URenderTarget == 0 {
				return invalid("BeginRenderPass: color target %d not URenderTarget", i)
			}
		}
		if ds != nil {
			if ds.Texture == nil {
				return invalid("BeginRenderPass: nil DS target")
			}
			if ds.Texture.Usage()&UDSTarget == 0 {
				return invalid("BeginRenderPass: DS target not UDSTarget")
			}
		}
	}
	c.pass = passRender
	c.rec.BeginRenderPass(color, ds)
	return nil
}

// BindPipeline binds a graphics pipeline during a render
// pass or a compute pipeline during a compute pass.
func (c *CmdBuffer) BindPipeline(p Pipeline) {
	if c.d.debug {
		if p == nil {
			nope(invalid("BindPipeline: nil pipeline"))
			return
		}
		want := passRender
		if p.Compute() {
			want = passCompute
		}
		if err := c.check("BindPipeline", want); err != nil {
			nope(err)
			return
		}
	}
	c.pipeline = p
	c.rec.BindPipeline(p)
}

// SetViewport sets the viewport.
func (c *CmdBuffer) SetViewport(vp Viewport) {
	if err := c.check("SetViewport", passRender); err != nil {
		nope(err)
		return
	}
	c.rec.SetViewport(vp)
}

// SetScissor sets the scissor rectangle.
func (c *CmdBuffer) SetScissor(sc Scissor) {
	if err := c.check("SetScissor", passRender); err != nil {
		nope(err)
		return
	}
	c.rec.SetScissor(sc)
}

// SetBlendColor sets the constant blend color.
func (c *CmdBuffer) SetBlendColor(color [4]float32) {
	if err := c.check("SetBlendColor", passRender); err != nil {
		nope(err)
		return
	}
	c.rec.SetBlendColor(color)
}

// SetStencilRef sets the stencil reference value.
func (c *CmdBuffer) SetStencilRef(ref uint32) {
	if err := c.check("SetStencilRef", passRender); err != nil {
		nope(err)
		return
	}
	c.rec.SetStencilRef(ref)
}

// BindVertexBuffers binds vertex buffers to consecutive
// inputs starting at start.
func (c *CmdBuffer) BindVertexBuffers(start int, bindings []BufferBinding) {
	if err := c.check("BindVertexBuffers", passRender); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		for i := range bindings {
			if bindings[i].Buffer == nil || bindings[i].Buffer.Usage()&UVertexData == 0 {
				nope(invalid("BindVertexBuffers: binding %d not UVertexData", i))
				return
			}
		}
	}
	c.rec.BindVertexBuffers(start, bindings)
}

// BindIndexBuffer binds the index buffer.
func (c *CmdBuffer) BindIndexBuffer(binding BufferBinding, fmt IndexFmt) {
	if err := c.check("BindIndexBuffer", passRender); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (binding.Buffer == nil || binding.Buffer.Usage()&UIndexData == 0) {
		nope(invalid("BindIndexBuffer: not UIndexData"))
		return
	}
	c.rec.BindIndexBuffer(binding, fmt)
}

// BindSamplers binds texture/sampler pairs to consecutive
// slots of the given stage starting at start.
// Descriptors are staged on the CPU and written to the
// GPU-visible table at the next draw/dispatch.
func (c *CmdBuffer) BindSamplers(stage Stage, start int, bindings []TextureSamplerBinding) {
	if err := c.checkStage("BindSamplers", stage); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		for i := range bindings {
			if bindings[i].Texture == nil || bindings[i].Sampler == nil {
				nope(invalid("BindSamplers: nil binding %d", i))
				return
			}
			if bindings[i].Texture.Usage()&UShaderSample == 0 {
				nope(invalid("BindSamplers: texture %d not UShaderSample", i))
				return
			}
		}
	}
	c.rec.BindSamplers(stage, start, bindings)
}

// BindStorageTextures binds read-only storage textures to
// consecutive slots of the given stage starting at start.
func (c *CmdBuffer) BindStorageTextures(stage Stage, start int, textures []Texture) {
	if err := c.checkStage("BindStorageTextures", stage); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		for i := range textures {
			if textures[i] == nil || textures[i].Usage()&UShaderRead == 0 {
				nope(invalid("BindStorageTextures: texture %d not UShaderRead", i))
				return
			}
		}
	}
	c.rec.BindStorageTextures(stage, start, textures)
}

// BindStorageBuffers binds read-only storage buffers to
// consecutive slots of the given stage starting at start.
func (c *CmdBuffer) BindStorageBuffers(stage Stage, start int, buffers []Buffer) {
	if err := c.checkStage("BindStorageBuffers", stage); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		for i := range buffers {
			if buffers[i] == nil || buffers[i].Usage()&UShaderRead == 0 {
				nope(invalid("BindStorageBuffers: buffer %d not UShaderRead", i))
				return
			}
		}
	}
	c.rec.BindStorageBuffers(stage, start, buffers)
}

// PushUniform copies transient constant data for the given
// stage and uniform slot. Data is bound per draw/dispatch;
// pushing between draws does not disturb earlier draws.
func (c *CmdBuffer) PushUniform(stage Stage, slot int, data []byte) {
	if err := c.checkStage("PushUniform", stage); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		if slot < 0 || slot >= c.d.r.Limits().MaxUniformBuffers {
			nope(invalid("PushUniform: slot %d", slot))
			return
		}
		if len(data) == 0 {
			nope(invalid("PushUniform: no data"))
			return
		}
	}
	c.rec.PushUniform(stage, slot, data)
}

// Draw draws primitives.
func (c *CmdBuffer) Draw(vertexCount, instanceCount, baseVertex, baseInstance int) {
	if err := c.check("Draw", passRender); err != nil {
		nope(err)
		return
	}
	if err := c.checkBound("Draw", false); err != nil {
		nope(err)
		return
	}
	c.rec.Draw(vertexCount, instanceCount, baseVertex, baseInstance)
}

// DrawIndexed draws primitives using the bound index
// buffer.
func (c *CmdBuffer) DrawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int) {
	if err := c.check("DrawIndexed", passRender); err != nil {
		nope(err)
		return
	}
	if err := c.checkBound("DrawIndexed", false); err != nil {
		nope(err)
		return
	}
	c.rec.DrawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance)
}

// DrawIndirect draws primitives with parameters fetched
// from a buffer.
func (c *CmdBuffer) DrawIndirect(buf Buffer, off int64, drawCount, stride int) {
	if err := c.check("DrawIndirect", passRender); err != nil {
		nope(err)
		return
	}
	if err := c.checkBound("DrawIndirect", false); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (buf == nil || buf.Usage()&UIndirect == 0) {
		nope(invalid("DrawIndirect: not UIndirect"))
		return
	}
	c.rec.DrawIndirect(buf, off, drawCount, stride)
}

// DrawIndexedIndirect draws indexed primitives with
// parameters fetched from a buffer.
func (c *CmdBuffer) DrawIndexedIndirect(buf Buffer, off int64, drawCount, stride int) {
	if err := c.check("DrawIndexedIndirect", passRender); err != nil {
		nope(err)
		return
	}
	if err := c.checkBound("DrawIndexedIndirect", false); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (buf == nil || buf.Usage()&UIndirect == 0) {
		nope(invalid("DrawIndexedIndirect: not UIndirect"))
		return
	}
	c.rec.DrawIndexedIndirect(buf, off, drawCount, stride)
}

// EndRenderPass ends the current render pass, restoring
// every attachment to its default usage state.
func (c *CmdBuffer) EndRenderPass() {
	if err := c.check("EndRenderPass", passRender); err != nil {
		nope(err)
		return
	}
	c.pass = passNone
	c.pipeline = nil
	c.rec.EndRenderPass()
}

// BeginComputePass begins a compute pass. Textures and
// buffers to be written by the pass must be declared here;
// they are prepared for writing (cycling if requested) and
// restored at EndComputePass.
func (c *CmdBuffer) BeginComputePass(textures []StorageTextureRW, buffers []StorageBufferRW) error {
	if err := c.check("BeginComputePass", passNone); err != nil {
		return err
	}
	if c.d.debug {
		for i := range textures {
			if textures[i].Texture == nil || textures[i].Texture.Usage()&UShaderWrite == 0 {
				return invalid("BeginComputePass: texture %d not UShaderWrite", i)
			}
		}
		for i := range buffers {
			if buffers[i].Buffer == nil || buffers[i].Buffer.Usage()&UShaderWrite == 0 {
				return invalid("BeginComputePass: buffer %d not UShaderWrite", i)
			}
		}
	}
	c.pass = passCompute
	c.rec.BeginComputePass(textures, buffers)
	return nil
}

// Dispatch dispatches compute work groups.
func (c *CmdBuffer) Dispatch(x, y, z int) {
	if err := c.check("Dispatch", passCompute); err != nil {
		nope(err)
		return
	}
	if err := c.checkBound("Dispatch", true); err != nil {
		nope(err)
		return
	}
	c.rec.Dispatch(x, y, z)
}

// DispatchIndirect dispatches compute work groups with
// counts fetched from a buffer.
func (c *CmdBuffer) DispatchIndirect(buf Buffer, off int64) {
	if err := c.check("DispatchIndirect", passCompute); err != nil {
		nope(err)
		return
	}
	if err := c.checkBound("DispatchIndirect", true); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (buf == nil || buf.Usage()&UIndirect == 0) {
		nope(invalid("DispatchIndirect: not UIndirect"))
		return
	}
	c.rec.DispatchIndirect(buf, off)
}

// EndComputePass ends the current compute pass.
func (c *CmdBuffer) EndComputePass() {
	if err := c.check("EndComputePass", passCompute); err != nil {
		nope(err)
		return
	}
	c.pass = passNone
	c.pipeline = nil
	c.rec.EndComputePass()
}

// BeginCopyPass begins a copy pass.
func (c *CmdBuffer) BeginCopyPass() error {
	if err := c.check("BeginCopyPass", passNone); err != nil {
		return err
	}
	c.pass = passCopy
	c.rec.BeginCopyPass()
	return nil
}

// UploadToBuffer copies data from a transfer buffer into a
// buffer.
func (c *CmdBuffer) UploadToBuffer(src *TransferLocation, dst *BufferRegion, cycle bool) {
	if err := c.check("UploadToBuffer", passCopy); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		if src == nil || src.TransferBuffer == nil || dst == nil || dst.Buffer == nil {
			nope(invalid("UploadToBuffer: nil location"))
			return
		}
		if dst.Size <= 0 || src.Offset < 0 || dst.Offset < 0 {
			nope(invalid("UploadToBuffer: bad range"))
			return
		}
	}
	c.rec.UploadToBuffer(src, dst, cycle)
}

// UploadToTexture copies data from a transfer buffer into
// a texture region.
func (c *CmdBuffer) UploadToTexture(src *TextureTransferInfo, dst *TextureRegion, cycle bool) {
	if err := c.check("UploadToTexture", passCopy); err != nil {
		nope(err)
		return
	}
	if c.d.debug {
		if src == nil || src.TransferBuffer == nil || dst == nil || dst.Texture == nil {
			nope(invalid("UploadToTexture: nil location"))
			return
		}
		if dst.Dim.Width <= 0 || dst.Dim.Height <= 0 {
			nope(invalid("UploadToTexture: bad region"))
			return
		}
	}
	c.rec.UploadToTexture(src, dst, cycle)
}

// CopyBufferToBuffer copies data between buffers.
func (c *CmdBuffer) CopyBufferToBuffer(src, dst *BufferLocation, size int64, cycle bool) {
	if err := c.check("CopyBufferToBuffer", passCopy); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (src == nil || src.Buffer == nil || dst == nil || dst.Buffer == nil || size <= 0) {
		nope(invalid("CopyBufferToBuffer: bad copy"))
		return
	}
	c.rec.CopyBufferToBuffer(src, dst, size, cycle)
}

// CopyTextureToTexture copies data between texture
// subresources.
func (c *CmdBuffer) CopyTextureToTexture(src, dst *TextureLocation, dim Dim3D, cycle bool) {
	if err := c.check("CopyTextureToTexture", passCopy); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (src == nil || src.Texture == nil || dst == nil || dst.Texture == nil) {
		nope(invalid("CopyTextureToTexture: nil location"))
		return
	}
	c.rec.CopyTextureToTexture(src, dst, dim, cycle)
}

// DownloadFromBuffer copies data from a buffer into a
// transfer buffer for readback.
func (c *CmdBuffer) DownloadFromBuffer(src *BufferRegion, dst *TransferLocation) {
	if err := c.check("DownloadFromBuffer", passCopy); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (src == nil || src.Buffer == nil || dst == nil || dst.TransferBuffer == nil) {
		nope(invalid("DownloadFromBuffer: nil location"))
		return
	}
	c.rec.DownloadFromBuffer(src, dst)
}

// DownloadFromTexture copies data from a texture region
// into a transfer buffer for readback.
func (c *CmdBuffer) DownloadFromTexture(src *TextureRegion, dst *TextureTransferInfo) {
	if err := c.check("DownloadFromTexture", passCopy); err != nil {
		nope(err)
		return
	}
	if c.d.debug && (src == nil || src.Texture == nil || dst == nil || dst.TransferBuffer == nil) {
		nope(invalid("DownloadFromTexture: nil location"))
		return
	}
	c.rec.DownloadFromTexture(src, dst)
}

// EndCopyPass ends the current copy pass.
func (c *CmdBuffer) EndCopyPass() {
	if err := c.check("EndCopyPass", passCopy); err != nil {
		nope(err)
		return
	}
	c.pass = passNone
	c.rec.EndCopyPass()
}

// AcquireSwapchainTexture obtains the next texture of a
// claimed window's swapchain. The texture is valid until
// Submit, which transitions it to the present state.
// A nil texture with a nil error means the present queue
// has not drained yet; the caller should skip the frame.
func (c *CmdBuffer) AcquireSwapchainTexture(w wsi.Window) (Texture, Dim3D, error) {
	if err := c.check("AcquireSwapchainTexture", passNone); err != nil {
		return nil, Dim3D{}, err
	}
	if c.d.debug && w == nil {
		return nil, Dim3D{}, invalid("AcquireSwapchainTexture: nil Window")
	}
	return c.rec.AcquireSwapchainTexture(w)
}

// PushDebugGroup opens a named group of commands.
func (c *CmdBuffer) PushDebugGroup(name string) {
	if c.submitted {
		return
	}
	c.rec.PushDebugGroup(name)
}

// PopDebugGroup closes the innermost debug group.
func (c *CmdBuffer) PopDebugGroup() {
	if c.submitted {
		return
	}
	c.rec.PopDebugGroup()
}

// InsertDebugLabel inserts a named marker.
func (c *CmdBuffer) InsertDebugLabel(name string) {
	if c.submitted {
		return
	}
	c.rec.InsertDebugLabel(name)
}

// Submit enqueues the recorded work for execution.
// The command buffer is spent afterwards; its backing
// native state returns to the device pool once the GPU
// completes it.
func (c *CmdBuffer) Submit() error {
	if err := c.check("Submit", passNone); err != nil {
		return err
	}
	c.submitted = true
	_, err := c.rec.Submit(false)
	return err
}

// SubmitAndAcquireFence is like Submit but returns a fence
// that signals when the GPU completes the work. The caller
// must release the fence with Device.ReleaseFence.
func (c *CmdBuffer) SubmitAndAcquireFence() (Fence, error) {
	if err := c.check("SubmitAndAcquireFence", passNone); err != nil {
		return nil, err
	}
	c.submitted = true
	return c.rec.Submit(true)
}
