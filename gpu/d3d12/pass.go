// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"github.com/gviegas/ember/gpu"
)

// prepareTargetWrite makes a container's active allocation
// safe to write: with cycle set and the previous contents
// irrelevant, a referenced allocation rotates out for an
// idle one. Loading forces the current allocation, since
// its contents are the point.
func (cb *cmdBuffer) prepareTargetWrite(c *textureContainer, cycle, loads bool) *texture {
	if cycle && !loads && c.active.referenced() {
		if err := c.cycle(); err != nil {
			cb.fail(err)
			return nil
		}
	}
	return c.active
}

// BeginRenderPass prepares the attachments, applies their
// load operations and derives the default viewport and
// scissor from the smallest attachment.
func (cb *cmdBuffer) BeginRenderPass(color []gpu.ColorTarget, ds *gpu.DSTarget) {
	if cb.err != nil {
		return
	}
	var rtvs []cpuHandle
	var dsv *cpuHandle
	dim := gpu.Dim3D{Width: 1 << 30, Height: 1 << 30}
	for i := range color {
		c := color[i].Texture.(*textureContainer)
		t := cb.prepareTargetWrite(c, color[i].Cycle, color[i].Load == gpu.LLoad)
		if t == nil {
			return
		}
		s := t.sub(color[i].Layer, color[i].Level)
		cb.trackTexture(t)
		cb.trackSub(s)
		cb.textureBarrier(t, s.index, resStateRenderTarget)
		cb.atts = append(cb.atts, attRestore{tex: t, sub: s.index, state: resStateRenderTarget})
		h := cb.r.staging[descRTV].at(s.rtv)
		if color[i].Load == gpu.LClear {
			cb.list.clearRTV(h, color[i].Clear)
		}
		rtvs = append(rtvs, h)
		if w := t.dim.Width >> color[i].Level; w < dim.Width {
			dim.Width = w
		}
		if ht := t.dim.Height >> color[i].Level; ht < dim.Height {
			dim.Height = ht
		}
	}
	if ds != nil {
		c := ds.Texture.(*textureContainer)
		// Loading either aspect pins the allocation; a
		// cycle here would drop the contents the stencil
		// (or depth) load op asked to keep.
		t := cb.prepareTargetWrite(c, ds.Cycle, ds.Load == gpu.LLoad || ds.StencilLoad == gpu.LLoad)
		if t == nil {
			return
		}
		s := t.sub(0, 0)
		cb.trackTexture(t)
		cb.trackSub(s)
		cb.textureBarrier(t, s.index, resStateDepthWrite)
		cb.atts = append(cb.atts, attRestore{tex: t, sub: s.index, state: resStateDepthWrite})
		h := cb.r.staging[descDSV].at(s.dsv)
		if ds.Load == gpu.LClear || ds.StencilLoad == gpu.LClear {
			cb.list.clearDSV(h, ds.ClearDepth, ds.ClearStencil, t.fmt.HasStencil())
		}
		dsv = &h
		if t.dim.Width < dim.Width {
			dim.Width = t.dim.Width
		}
		if t.dim.Height < dim.Height {
			dim.Height = t.dim.Height
		}
	}
	cb.list.setRenderTargets(rtvs, dsv)
	cb.list.setViewport(gpu.Viewport{
		Width:  float32(dim.Width),
		Height: float32(dim.Height),
		Zfar:   1,
	})
	cb.list.setScissor(gpu.Scissor{Width: dim.Width, Height: dim.Height})
}

// EndRenderPass restores every attachment to its default
// usage state and unbinds the pipeline.
func (cb *cmdBuffer) EndRenderPass() {
	for i := range cb.atts {
		a := &cb.atts[i]
		cb.textureBarrierBack(a.tex, a.sub, a.state)
	}
	cb.atts = cb.atts[:0]
	cb.graph = nil
}

// BeginComputePass prepares the read-write storage bindings
// for writing, cycling where requested, and transitions
// them for unordered access.
func (cb *cmdBuffer) BeginComputePass(textures []gpu.StorageTextureRW, buffers []gpu.StorageBufferRW) {
	if cb.err != nil {
		return
	}
	for i := range textures {
		c := textures[i].Texture.(*textureContainer)
		if textures[i].Cycle && c.active.referenced() {
			if err := c.cycle(); err != nil {
				cb.fail(err)
				return
			}
		}
		t := c.active
		s := t.sub(textures[i].Layer, textures[i].Level)
		cb.trackTexture(t)
		cb.trackSub(s)
		cb.textureBarrier(t, s.index, resStateUnorderedAccess)
		cb.rwBound = append(cb.rwBound, rwRestore{tex: t, sub: s.index})
		cb.rwTexs[i] = cb.r.staging[descView].at(s.uav)
	}
	for i := range buffers {
		c := buffers[i].Buffer.(*bufferContainer)
		if buffers[i].Cycle && c.active.refs.Load() > 0 {
			if err := c.cycle(); err != nil {
				cb.fail(err)
				return
			}
		}
		b := c.active
		cb.trackBuffer(b)
		cb.bufferBarrier(b, resStateUnorderedAccess)
		cb.rwBound = append(cb.rwBound, rwRestore{buf: b})
		cb.rwBufs[i] = cb.r.staging[descView].at(b.uav)
	}
	cb.rwDirty = len(textures) > 0 || len(buffers) > 0
}

// EndComputePass restores the read-write bindings to their
// default usage states and unbinds the pipeline.
func (cb *cmdBuffer) EndComputePass() {
	for i := range cb.rwBound {
		switch rw := &cb.rwBound[i]; {
		case rw.tex != nil:
			cb.textureBarrierBack(rw.tex, rw.sub, resStateUnorderedAccess)
		case rw.buf != nil:
			cb.bufferBarrierBack(rw.buf, resStateUnorderedAccess)
		}
	}
	cb.rwBound = cb.rwBound[:0]
	cb.comp = nil
}
