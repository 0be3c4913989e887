// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"github.com/gviegas/ember/gpu"
	"github.com/gviegas/ember/wsi"
)

// The command/resource machinery in this package operates
// on the narrow native contracts below rather than on COM
// interfaces directly. native_windows.go realizes them
// over D3D12; tests realize them with an in-memory fake.

// resState mirrors D3D12_RESOURCE_STATES.
type resState uint32

const (
	resStateCommon           resState = 0
	resStateVertexConstBuf   resState = 0x1
	resStateIndexBuf         resState = 0x2
	resStateRenderTarget     resState = 0x4
	resStateUnorderedAccess  resState = 0x8
	resStateDepthWrite       resState = 0x10
	resStateDepthRead        resState = 0x20
	resStateNonPixelResource resState = 0x40
	resStatePixelResource    resState = 0x80
	resStateIndirectArg      resState = 0x200
	resStateCopyDst          resState = 0x400
	resStateCopySrc          resState = 0x800
	resStateGenericRead      resState = 0xac3
	resStatePresent          resState = 0

	resStateAllShaderResource = resStateNonPixelResource | resStatePixelResource
)

// heapKind selects the memory heap of a native buffer.
type heapKind int

const (
	heapDefault heapKind = iota
	heapUpload
	heapReadback
)

// descKind selects a descriptor heap type.
type descKind int

const (
	descView descKind = iota // CBV/SRV/UAV
	descSampler
	descRTV
	descDSV
)

// cpuHandle is a CPU descriptor handle.
type cpuHandle uintptr

// gpuHandle is a GPU descriptor handle.
type gpuHandle uint64

// nativeDevice is the contract of the native API device.
// All methods are safe for concurrent use.
type nativeDevice interface {
	// newBuffer creates a committed buffer resource.
	// Buffers on heapUpload are persistently mapped and
	// always in the generic read state; heapReadback
	// buffers are created in the copy destination state.
	newBuffer(size int64, heap heapKind, state resState, uav bool) (nativeBuffer, error)

	// newTexture creates a committed texture resource in
	// the given initial state. clear supplies the
	// optimized clear value for targets; it may be nil.
	newTexture(typ gpu.TexType, fmt gpu.PixelFmt, dim gpu.Dim3D, layers, levels, samples int, usage gpu.Usage, state resState, clear *clearValue) (nativeTexture, error)

	// newDescHeap creates a descriptor heap with count
	// slots.
	newDescHeap(kind descKind, count int, shaderVisible bool) (nativeDescHeap, error)

	// View creation. dst identifies a slot of a non
	// shader-visible (staging) descriptor heap.

	bufferSRV(b nativeBuffer, size int64, dst cpuHandle)
	bufferUAV(b nativeBuffer, size int64, dst cpuHandle)
	textureSRV(t nativeTexture, typ gpu.TexType, fmt gpu.PixelFmt, layers, levels int, dst cpuHandle)
	textureUAV(t nativeTexture, fmt gpu.PixelFmt, layer, level int, dst cpuHandle)
	textureRTV(t nativeTexture, typ gpu.TexType, fmt gpu.PixelFmt, layer, level int, dst cpuHandle)
	textureDSV(t nativeTexture, fmt gpu.PixelFmt, layer, level int, dst cpuHandle)
	sampler(spln *gpu.Sampling, dst cpuHandle)

	// copyDescriptors copies n descriptors between heaps
	// of the same kind.
	copyDescriptors(dst, src cpuHandle, n int, kind descKind)

	// newRootSignature builds a root signature from the
	// given parameters, in order.
	newRootSignature(params []rootParam) (nativeRootSignature, error)

	// newGraphPipeline creates a graphics pipeline state.
	newGraphPipeline(state *gpu.GraphState, rs nativeRootSignature) (nativePipeline, error)

	// newCompPipeline creates a compute pipeline state.
	newCompPipeline(state *gpu.CompState, rs nativeRootSignature) (nativePipeline, error)

	// newList creates a direct command list and its
	// allocator, left in the recording state.
	newList() (nativeList, error)

	// newFence creates a fence with initial value 0.
	newFence() (nativeFence, error)

	// newSwapchain creates a swapchain for the window.
	newSwapchain(w wsi.Window, count int, fmt gpu.PixelFmt, mode gpu.PresentMode) (nativeSwapchain, error)

	// execute submits closed command lists to the direct
	// queue.
	execute(lists []nativeList)

	// signal enqueues a fence signal on the direct queue.
	signal(f nativeFence, value uint64)

	// waitFences blocks until all (or any) fences reach
	// the paired values.
	waitFences(fences []nativeFence, values []uint64, all bool) error

	supportsFormat(fmt gpu.PixelFmt, typ gpu.TexType, usage gpu.Usage) bool
	bestSampleCount(fmt gpu.PixelFmt) int

	// removed returns a non-nil error describing the
	// native reason when the device was removed or hung.
	removed() error

	free()
}

// nativeBuffer is a committed buffer resource.
type nativeBuffer interface {
	// bytes returns the persistent mapping of an upload
	// or readback buffer; nil for default heap buffers.
	bytes() []byte

	// gpuAddress returns the GPU virtual address.
	gpuAddress() uint64

	// setName sets the debug name of the resource.
	setName(string)

	free()
}

// nativeTexture is a committed texture resource.
type nativeTexture interface {
	// setName sets the debug name of the resource.
	setName(string)

	free()
}

// nativeDescHeap is a descriptor heap.
type nativeDescHeap interface {
	// cpuStart returns the CPU handle of slot 0.
	cpuStart() cpuHandle

	// gpuStart returns the GPU handle of slot 0.
	// Only valid for shader-visible heaps.
	gpuStart() gpuHandle

	// stride returns the slot increment in bytes.
	stride() int

	free()
}

// nativeRootSignature is an opaque root signature.
type nativeRootSignature interface {
	free()
}

// nativePipeline is an opaque pipeline state.
type nativePipeline interface {
	free()
}

// nativeFence is a monotonic native sync object.
type nativeFence interface {
	// completed returns the last value the GPU signaled.
	completed() uint64

	free()
}

// nativeSwapchain presents to a window surface.
type nativeSwapchain interface {
	// buffer returns backbuffer i.
	buffer(i int) nativeTexture

	// index returns the current backbuffer index.
	index() int

	// present presents the current backbuffer.
	present() error

	// resize resizes the backbuffers. The caller must
	// ensure the GPU is idle and all buffer references
	// dropped.
	resize(width, height int) error

	free()
}

// nativeList is a direct command list.
type nativeList interface {
	// reset recycles the allocator and begins recording.
	reset() error

	// close ends recording.
	close() error

	transition(ts []transitionDesc)
	clearRTV(h cpuHandle, color [4]float32)
	clearDSV(h cpuHandle, depth float32, stencil uint32, hasStencil bool)
	setRenderTargets(rtvs []cpuHandle, dsv *cpuHandle)
	setViewport(vp gpu.Viewport)
	setScissor(sc gpu.Scissor)
	setBlendColor(color [4]float32)
	setStencilRef(ref uint32)
	setDescHeaps(view, sampler nativeDescHeap)
	setGraphicsRootSignature(rs nativeRootSignature)
	setComputeRootSignature(rs nativeRootSignature)
	setPipeline(p nativePipeline)
	setTopology(t gpu.Topology)
	setVertexBuffers(start int, views []vertexBufferView)
	setIndexBuffer(view indexBufferView)
	setGraphicsRootTable(param int, base gpuHandle)
	setComputeRootTable(param int, base gpuHandle)
	setGraphicsRootCBV(param int, addr uint64)
	setComputeRootCBV(param int, addr uint64)
	draw(vertexCount, instanceCount, baseVertex, baseInstance int)
	drawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int)
	drawIndirect(indexed bool, b nativeBuffer, off int64, drawCount, stride int)
	dispatch(x, y, z int)
	dispatchIndirect(b nativeBuffer, off int64)
	copyBufferRegion(dst nativeBuffer, dstOff int64, src nativeBuffer, srcOff, size int64)
	copyBufferToTexture(src nativeBuffer, srcOff int64, rowPitch, rows int, fmt gpu.PixelFmt, dim gpu.Dim3D, dst nativeTexture, sub int, off gpu.Off3D)
	copyTextureToBuffer(src nativeTexture, sub int, off gpu.Off3D, dim gpu.Dim3D, fmt gpu.PixelFmt, dst nativeBuffer, dstOff int64, rowPitch, rows int)
	copyTextureRegion(dst nativeTexture, dstSub int, dstOff gpu.Off3D, src nativeTexture, srcSub int, srcOff gpu.Off3D, dim gpu.Dim3D)
	beginEvent(name string)
	endEvent()
	marker(name string)

	free()
}

// transitionDesc describes one resource state transition.
// sub is the subresource index, or transitionAllSubs.
type transitionDesc struct {
	buffer  nativeBuffer
	texture nativeTexture
	sub     int
	before  resState
	after   resState
}

const transitionAllSubs = -1

// clearValue is an optimized clear value for targets.
type clearValue struct {
	color   [4]float32
	depth   float32
	stencil uint32
	ds      bool
}

// rootParamKind is the type of a root parameter.
type rootParamKind int

const (
	// Descriptor table over the view heap (SRV/UAV).
	rootTableSRV rootParamKind = iota
	rootTableUAV
	// Descriptor table over the sampler heap.
	rootTableSampler
	// Root CBV bound by GPU virtual address.
	rootCBV
)

// rootParam describes one root signature parameter.
type rootParam struct {
	kind rootParamKind
	// First shader register and count for tables;
	// register for rootCBV.
	register int
	count    int
	// Register space, per stage convention.
	space int
	// Stage visibility.
	stage gpu.Stage
}

// vertexBufferView mirrors D3D12_VERTEX_BUFFER_VIEW.
type vertexBufferView struct {
	addr   uint64
	size   int
	stride int
}

// indexBufferView mirrors D3D12_INDEX_BUFFER_VIEW.
type indexBufferView struct {
	addr uint64
	size int
	fmt  gpu.IndexFmt
}
