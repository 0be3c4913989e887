// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"github.com/gviegas/ember/gpu"
)

// stageBindings is the CPU-side staging of one stage's
// read-only binding categories. Handles point into the
// device staging heaps; they are copied into the command
// buffer's shader-visible heaps when a draw/dispatch finds
// the category dirty.
type stageBindings struct {
	samplers    [maxSamplersPerStage]cpuHandle
	samplerTexs [maxSamplersPerStage]cpuHandle
	storageTexs [maxStorageTexturesPerStage]cpuHandle
	storageBufs [maxStorageBuffersPerStage]cpuHandle

	samplersDirty   bool
	storageTexDirty bool
	storageBufDirty bool
}

// attRestore records the transient state of a pass
// attachment so End*Pass can restore the default.
type attRestore struct {
	tex   *texture
	sub   int
	state resState
}

// rwRestore likewise for compute read-write bindings.
type rwRestore struct {
	buf *buffer
	tex *texture
	sub int
}

// cmdBuffer implements gpu.CmdRecorder. It owns a native
// command list, a pair of shader-visible descriptor heaps
// and whatever uniform rings its pipelines demand, all
// returned to their pools when the submission's fence
// signals.
type cmdBuffer struct {
	r    *renderer
	list nativeList
	// First recording failure; Submit reports it and
	// nothing is executed.
	err error

	viewHeap    *gpuHeap
	samplerHeap *gpuHeap

	graph *graphPipeline
	comp  *compPipeline

	// Indexed by stageIndex: vertex, fragment, compute.
	bindings [3]stageBindings

	vbufs     [maxVertexBuffers]vertexBufferView
	vbufCount int
	vbufDirty bool

	uniforms     [3][maxUniformBuffersPerStage]*uniformBuffer
	uniformDirty [3][maxUniformBuffersPerStage]bool

	// Compute pass read-write bindings.
	rwTexs  [maxStorageTexturesPerStage]cpuHandle
	rwBufs  [maxStorageBuffersPerStage]cpuHandle
	rwDirty bool

	atts    []attRestore
	rwBound []rwRestore

	// Resources referenced by recorded commands. Their
	// counts drop when the command buffer is cleaned.
	trackedBufs      []*buffer
	trackedTransfers []*transferBuffer
	trackedTexs      []*texture
	trackedSubs      []*textureSub
	trackedSamplers  []*sampler
	trackedGraphs    []*graphPipeline
	trackedComps     []*compPipeline
	trackedUniforms  []*uniformBuffer

	// Intermediate buffers for realigned texture
	// transfers, freed at clean.
	temps []nativeBuffer
	// Downloads repacked into their transfer buffers at
	// clean, when the GPU data is known complete.
	downloads []downloadRepack

	presents []presentOp

	fence     *fence
	autoFence bool
}

// stageIndex maps a stage to its binding/uniform slot.
func stageIndex(s gpu.Stage) int {
	switch s {
	case gpu.SVertex:
		return 0
	case gpu.SFragment:
		return 1
	}
	return 2
}

// AcquireCmdBuffer obtains a recorder from the pool,
// creating one on demand. The native list begins recording
// and the shader-visible heaps are bound up front.
func (r *renderer) AcquireCmdBuffer() (gpu.CmdRecorder, error) {
	r.cmdMu.Lock()
	var cb *cmdBuffer
	if n := len(r.cmdPool); n > 0 {
		cb = r.cmdPool[n-1]
		r.cmdPool = r.cmdPool[:n-1]
	}
	r.cmdMu.Unlock()
	if cb == nil {
		list, err := r.nat.newList()
		if err != nil {
			return nil, err
		}
		cb = &cmdBuffer{r: r, list: list}
	} else if err := cb.list.reset(); err != nil {
		r.cmdMu.Lock()
		r.cmdPool = append(r.cmdPool, cb)
		r.cmdMu.Unlock()
		return nil, err
	}
	vh, err := r.acquireGPUHeap(descView)
	if err != nil {
		r.cmdMu.Lock()
		r.cmdPool = append(r.cmdPool, cb)
		r.cmdMu.Unlock()
		return nil, err
	}
	sh, err := r.acquireGPUHeap(descSampler)
	if err != nil {
		r.returnGPUHeap(vh)
		r.cmdMu.Lock()
		r.cmdPool = append(r.cmdPool, cb)
		r.cmdMu.Unlock()
		return nil, err
	}
	cb.viewHeap, cb.samplerHeap = vh, sh
	cb.list.setDescHeaps(vh.heap, sh.heap)
	cb.graph, cb.comp = nil, nil
	cb.bindings = [3]stageBindings{}
	cb.vbufCount, cb.vbufDirty = 0, false
	cb.uniforms = [3][maxUniformBuffersPerStage]*uniformBuffer{}
	cb.uniformDirty = [3][maxUniformBuffersPerStage]bool{}
	cb.rwDirty = false
	cb.atts = cb.atts[:0]
	cb.rwBound = cb.rwBound[:0]
	return cb, nil
}

// fail records the first recording failure.
func (cb *cmdBuffer) fail(err error) {
	if cb.err == nil {
		cb.err = err
	}
}

// Reference tracking. Each resource is counted once per
// command buffer regardless of how many commands use it.

func (cb *cmdBuffer) trackBuffer(b *buffer) {
	for _, x := range cb.trackedBufs {
		if x == b {
			return
		}
	}
	b.refs.Add(1)
	cb.trackedBufs = append(cb.trackedBufs, b)
}

func (cb *cmdBuffer) trackTransfer(t *transferBuffer) {
	for _, x := range cb.trackedTransfers {
		if x == t {
			return
		}
	}
	t.refs.Add(1)
	cb.trackedTransfers = append(cb.trackedTransfers, t)
}

func (cb *cmdBuffer) trackTexture(t *texture) {
	for _, x := range cb.trackedTexs {
		if x == t {
			return
		}
	}
	t.refs.Add(1)
	cb.trackedTexs = append(cb.trackedTexs, t)
}

func (cb *cmdBuffer) trackSub(s *textureSub) {
	for _, x := range cb.trackedSubs {
		if x == s {
			return
		}
	}
	s.refs.Add(1)
	cb.trackedSubs = append(cb.trackedSubs, s)
}

func (cb *cmdBuffer) trackSampler(s *sampler) {
	for _, x := range cb.trackedSamplers {
		if x == s {
			return
		}
	}
	s.refs.Add(1)
	cb.trackedSamplers = append(cb.trackedSamplers, s)
}

func (cb *cmdBuffer) trackGraph(p *graphPipeline) {
	for _, x := range cb.trackedGraphs {
		if x == p {
			return
		}
	}
	p.refs.Add(1)
	cb.trackedGraphs = append(cb.trackedGraphs, p)
}

func (cb *cmdBuffer) trackComp(p *compPipeline) {
	for _, x := range cb.trackedComps {
		if x == p {
			return
		}
	}
	p.refs.Add(1)
	cb.trackedComps = append(cb.trackedComps, p)
}

// Barriers. Buffers and textures rest in their default
// usage state between passes; commands that need another
// state transition in and back out.

func (cb *cmdBuffer) bufferBarrier(b *buffer, to resState) {
	from := b.state
	if !b.transitioned {
		from = resStateCommon
		b.transitioned = true
	}
	if from == to {
		return
	}
	cb.list.transition([]transitionDesc{{
		buffer: b.res,
		sub:    transitionAllSubs,
		before: from,
		after:  to,
	}})
}

func (cb *cmdBuffer) bufferBarrierBack(b *buffer, from resState) {
	if from == b.state {
		return
	}
	cb.list.transition([]transitionDesc{{
		buffer: b.res,
		sub:    transitionAllSubs,
		before: from,
		after:  b.state,
	}})
}

func (cb *cmdBuffer) textureBarrier(t *texture, sub int, to resState) {
	if t.state == to {
		return
	}
	cb.list.transition([]transitionDesc{{
		texture: t.res,
		sub:     sub,
		before:  t.state,
		after:   to,
	}})
}

func (cb *cmdBuffer) textureBarrierBack(t *texture, sub int, from resState) {
	if from == t.state {
		return
	}
	cb.list.transition([]transitionDesc{{
		texture: t.res,
		sub:     sub,
		before:  from,
		after:   t.state,
	}})
}

// acquireUniform assigns a ring to the given stage/slot.
func (cb *cmdBuffer) acquireUniform(si, slot int) *uniformBuffer {
	ub, err := cb.r.acquireUniformBuffer()
	if err != nil {
		cb.fail(err)
		return nil
	}
	cb.trackedUniforms = append(cb.trackedUniforms, ub)
	cb.uniforms[si][slot] = ub
	return ub
}

// BindPipeline binds a pipeline, invalidating every binding
// category the pipeline declares and assigning uniform
// rings to its uniform slots.
func (cb *cmdBuffer) BindPipeline(p gpu.Pipeline) {
	if cb.err != nil {
		return
	}
	switch p := p.(type) {
	case *graphPipeline:
		cb.graph, cb.comp = p, nil
		cb.trackGraph(p)
		cb.list.setGraphicsRootSignature(p.root.rs)
		cb.list.setPipeline(p.ps)
		cb.list.setTopology(p.topology)
		for si := 0; si < 2; si++ {
			root := &p.root.stage[si]
			bind := &cb.bindings[si]
			bind.samplersDirty = root.samplerCount > 0
			bind.storageTexDirty = root.storageTexCount > 0
			bind.storageBufDirty = root.storageBufCount > 0
			for slot := 0; slot < root.uniformCount && slot < maxUniformBuffersPerStage; slot++ {
				if cb.uniforms[si][slot] == nil && cb.acquireUniform(si, slot) == nil {
					return
				}
				cb.uniformDirty[si][slot] = true
			}
		}
		cb.vbufDirty = cb.vbufCount > 0
	case *compPipeline:
		cb.comp, cb.graph = p, nil
		cb.trackComp(p)
		cb.list.setComputeRootSignature(p.root.rs)
		cb.list.setPipeline(p.ps)
		root := &p.root
		bind := &cb.bindings[2]
		bind.samplersDirty = root.samplerCount > 0
		bind.storageTexDirty = root.storageTexCount > 0
		bind.storageBufDirty = root.storageBufCount > 0
		for slot := 0; slot < root.uniformCount && slot < maxUniformBuffersPerStage; slot++ {
			if cb.uniforms[2][slot] == nil && cb.acquireUniform(2, slot) == nil {
				return
			}
			cb.uniformDirty[2][slot] = true
		}
		cb.rwDirty = root.rwTexCount > 0 || root.rwBufCount > 0
	}
}

func (cb *cmdBuffer) SetViewport(vp gpu.Viewport)    { cb.list.setViewport(vp) }
func (cb *cmdBuffer) SetScissor(sc gpu.Scissor)      { cb.list.setScissor(sc) }
func (cb *cmdBuffer) SetBlendColor(color [4]float32) { cb.list.setBlendColor(color) }
func (cb *cmdBuffer) SetStencilRef(ref uint32)       { cb.list.setStencilRef(ref) }

// BindVertexBuffers stages vertex fetch bindings. The
// strides come from the pipeline, so the views are written
// out at draw time.
func (cb *cmdBuffer) BindVertexBuffers(start int, bindings []gpu.BufferBinding) {
	for i := range bindings {
		b := bindings[i].Buffer.(*bufferContainer).active
		cb.trackBuffer(b)
		cb.vbufs[start+i] = vertexBufferView{
			addr: b.res.gpuAddress() + uint64(bindings[i].Offset),
			size: int(b.size - bindings[i].Offset),
		}
	}
	if n := start + len(bindings); n > cb.vbufCount {
		cb.vbufCount = n
	}
	cb.vbufDirty = true
}

// BindIndexBuffer binds the index buffer.
func (cb *cmdBuffer) BindIndexBuffer(binding gpu.BufferBinding, fmt gpu.IndexFmt) {
	b := binding.Buffer.(*bufferContainer).active
	cb.trackBuffer(b)
	cb.list.setIndexBuffer(indexBufferView{
		addr: b.res.gpuAddress() + uint64(binding.Offset),
		size: int(b.size - binding.Offset),
		fmt:  fmt,
	})
}

// BindSamplers stages texture/sampler pairs for shader
// sampling.
func (cb *cmdBuffer) BindSamplers(stage gpu.Stage, start int, bindings []gpu.TextureSamplerBinding) {
	si := stageIndex(stage)
	bind := &cb.bindings[si]
	for i := range bindings {
		s := bindings[i].Sampler.(*sampler)
		cb.trackSampler(s)
		bind.samplers[start+i] = cb.r.staging[descSampler].at(s.index)
		t := bindings[i].Texture.(*textureContainer).active
		cb.trackTexture(t)
		bind.samplerTexs[start+i] = cb.r.staging[descView].at(t.srv)
	}
	bind.samplersDirty = true
}

// BindStorageTextures stages read-only storage textures.
func (cb *cmdBuffer) BindStorageTextures(stage gpu.Stage, start int, textures []gpu.Texture) {
	si := stageIndex(stage)
	bind := &cb.bindings[si]
	for i := range textures {
		t := textures[i].(*textureContainer).active
		cb.trackTexture(t)
		bind.storageTexs[start+i] = cb.r.staging[descView].at(t.srv)
	}
	bind.storageTexDirty = true
}

// BindStorageBuffers stages read-only storage buffers.
func (cb *cmdBuffer) BindStorageBuffers(stage gpu.Stage, start int, buffers []gpu.Buffer) {
	si := stageIndex(stage)
	bind := &cb.bindings[si]
	for i := range buffers {
		b := buffers[i].(*bufferContainer).active
		cb.trackBuffer(b)
		bind.storageBufs[start+i] = cb.r.staging[descView].at(b.srv)
	}
	bind.storageBufDirty = true
}

// PushUniform copies data into the ring assigned to the
// stage/slot. A full ring rotates out for a fresh one; the
// old ring stays tracked until the command buffer is
// cleaned, since earlier draws still read it.
func (cb *cmdBuffer) PushUniform(stage gpu.Stage, slot int, data []byte) {
	if cb.err != nil {
		return
	}
	si := stageIndex(stage)
	ub := cb.uniforms[si][slot]
	if ub == nil {
		if ub = cb.acquireUniform(si, slot); ub == nil {
			return
		}
	}
	if !ub.push(data) {
		if ub = cb.acquireUniform(si, slot); ub == nil {
			return
		}
		if !ub.push(data) {
			// Larger than an entire ring.
			cb.fail(gpu.ErrTooLarge)
			return
		}
	}
	cb.uniformDirty[si][slot] = true
}

// copyTable copies staged descriptors into a range of the
// shader-visible heap and returns the table base.
func (cb *cmdBuffer) copyTable(heap *gpuHeap, kind descKind, handles []cpuHandle) (gpuHandle, bool) {
	base, ok := heap.allocRange(len(handles))
	if !ok {
		return 0, false
	}
	for i, h := range handles {
		cb.r.nat.copyDescriptors(heap.cpuAt(base+i), h, 1, kind)
	}
	return heap.gpuAt(base), true
}

// flushGraphics writes every dirty binding category of the
// bound graphics pipeline to the shader-visible heaps and
// the root parameters. Exhausting a heap fails the command
// buffer; there is no mid-recording recovery.
func (cb *cmdBuffer) flushGraphics() {
	p := cb.graph
	for si := 0; si < 2; si++ {
		root := &p.root.stage[si]
		bind := &cb.bindings[si]
		if bind.samplersDirty && root.samplerCount > 0 {
			g, ok := cb.copyTable(cb.samplerHeap, descSampler, bind.samplers[:root.samplerCount])
			if !ok {
				cb.fail(gpu.ErrTooLarge)
				return
			}
			cb.list.setGraphicsRootTable(root.samplerTable, g)
			if g, ok = cb.copyTable(cb.viewHeap, descView, bind.samplerTexs[:root.samplerCount]); !ok {
				cb.fail(gpu.ErrTooLarge)
				return
			}
			cb.list.setGraphicsRootTable(root.samplerTexTable, g)
			bind.samplersDirty = false
		}
		if bind.storageTexDirty && root.storageTexCount > 0 {
			g, ok := cb.copyTable(cb.viewHeap, descView, bind.storageTexs[:root.storageTexCount])
			if !ok {
				cb.fail(gpu.ErrTooLarge)
				return
			}
			cb.list.setGraphicsRootTable(root.storageTexTable, g)
			bind.storageTexDirty = false
		}
		if bind.storageBufDirty && root.storageBufCount > 0 {
			g, ok := cb.copyTable(cb.viewHeap, descView, bind.storageBufs[:root.storageBufCount])
			if !ok {
				cb.fail(gpu.ErrTooLarge)
				return
			}
			cb.list.setGraphicsRootTable(root.storageBufTable, g)
			bind.storageBufDirty = false
		}
		for slot := range root.uniform {
			if cb.uniformDirty[si][slot] && root.uniform[slot] >= 0 {
				cb.list.setGraphicsRootCBV(root.uniform[slot], cb.uniforms[si][slot].bindAddress())
				cb.uniformDirty[si][slot] = false
			}
		}
	}
	if cb.vbufDirty {
		for i := 0; i < cb.vbufCount; i++ {
			cb.vbufs[i].stride = p.strides[i]
		}
		cb.list.setVertexBuffers(0, cb.vbufs[:cb.vbufCount])
		cb.vbufDirty = false
	}
}

// flushCompute likewise for the bound compute pipeline.
func (cb *cmdBuffer) flushCompute() {
	p := cb.comp
	root := &p.root
	bind := &cb.bindings[2]
	if bind.samplersDirty && root.samplerCount > 0 {
		g, ok := cb.copyTable(cb.samplerHeap, descSampler, bind.samplers[:root.samplerCount])
		if !ok {
			cb.fail(gpu.ErrTooLarge)
			return
		}
		cb.list.setComputeRootTable(root.samplerTable, g)
		if g, ok = cb.copyTable(cb.viewHeap, descView, bind.samplerTexs[:root.samplerCount]); !ok {
			cb.fail(gpu.ErrTooLarge)
			return
		}
		cb.list.setComputeRootTable(root.samplerTexTable, g)
		bind.samplersDirty = false
	}
	if bind.storageTexDirty && root.storageTexCount > 0 {
		g, ok := cb.copyTable(cb.viewHeap, descView, bind.storageTexs[:root.storageTexCount])
		if !ok {
			cb.fail(gpu.ErrTooLarge)
			return
		}
		cb.list.setComputeRootTable(root.storageTexTable, g)
		bind.storageTexDirty = false
	}
	if bind.storageBufDirty && root.storageBufCount > 0 {
		g, ok := cb.copyTable(cb.viewHeap, descView, bind.storageBufs[:root.storageBufCount])
		if !ok {
			cb.fail(gpu.ErrTooLarge)
			return
		}
		cb.list.setComputeRootTable(root.storageBufTable, g)
		bind.storageBufDirty = false
	}
	for slot := range root.uniform {
		if cb.uniformDirty[2][slot] && root.uniform[slot] >= 0 {
			cb.list.setComputeRootCBV(root.uniform[slot], cb.uniforms[2][slot].bindAddress())
			cb.uniformDirty[2][slot] = false
		}
	}
	if cb.rwDirty {
		if root.rwTexCount > 0 {
			g, ok := cb.copyTable(cb.viewHeap, descView, cb.rwTexs[:root.rwTexCount])
			if !ok {
				cb.fail(gpu.ErrTooLarge)
				return
			}
			cb.list.setComputeRootTable(root.rwTexTable, g)
		}
		if root.rwBufCount > 0 {
			g, ok := cb.copyTable(cb.viewHeap, descView, cb.rwBufs[:root.rwBufCount])
			if !ok {
				cb.fail(gpu.ErrTooLarge)
				return
			}
			cb.list.setComputeRootTable(root.rwBufTable, g)
		}
		cb.rwDirty = false
	}
}

func (cb *cmdBuffer) Draw(vertexCount, instanceCount, baseVertex, baseInstance int) {
	if cb.err != nil {
		return
	}
	cb.flushGraphics()
	if cb.err != nil {
		return
	}
	cb.list.draw(vertexCount, instanceCount, baseVertex, baseInstance)
}

func (cb *cmdBuffer) DrawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int) {
	if cb.err != nil {
		return
	}
	cb.flushGraphics()
	if cb.err != nil {
		return
	}
	cb.list.drawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance)
}

func (cb *cmdBuffer) DrawIndirect(buf gpu.Buffer, off int64, drawCount, stride int) {
	if cb.err != nil {
		return
	}
	b := buf.(*bufferContainer).active
	cb.trackBuffer(b)
	cb.flushGraphics()
	if cb.err != nil {
		return
	}
	cb.list.drawIndirect(false, b.res, off, drawCount, stride)
}

func (cb *cmdBuffer) DrawIndexedIndirect(buf gpu.Buffer, off int64, drawCount, stride int) {
	if cb.err != nil {
		return
	}
	b := buf.(*bufferContainer).active
	cb.trackBuffer(b)
	cb.flushGraphics()
	if cb.err != nil {
		return
	}
	cb.list.drawIndirect(true, b.res, off, drawCount, stride)
}

func (cb *cmdBuffer) Dispatch(x, y, z int) {
	if cb.err != nil {
		return
	}
	cb.flushCompute()
	if cb.err != nil {
		return
	}
	cb.list.dispatch(x, y, z)
}

func (cb *cmdBuffer) DispatchIndirect(buf gpu.Buffer, off int64) {
	if cb.err != nil {
		return
	}
	b := buf.(*bufferContainer).active
	cb.trackBuffer(b)
	cb.flushCompute()
	if cb.err != nil {
		return
	}
	cb.list.dispatchIndirect(b.res, off)
}

// Debug labels are dropped unless the device was opened in
// debug mode.

func (cb *cmdBuffer) PushDebugGroup(name string) {
	if cb.r.debug {
		cb.list.beginEvent(name)
	}
}

func (cb *cmdBuffer) PopDebugGroup() {
	if cb.r.debug {
		cb.list.endEvent()
	}
}

func (cb *cmdBuffer) InsertDebugLabel(name string) {
	if cb.r.debug {
		cb.list.marker(name)
	}
}
