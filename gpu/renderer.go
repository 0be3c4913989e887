// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import (
	"errors"

	"github.com/gviegas/ember/wsi"
)

// ErrCannotPresent means that the backend and/or device do
// not support presentation.
var ErrCannotPresent = errors.New("gpu: presentation not supported")

// ErrWindow represents an error related to a specific window.
// This error usually indicates that a window misconfiguration
// is preventing correct operation.
var ErrWindow = errors.New("gpu: window-related error")

// ErrSwapchain represents an error related to a specific
// swapchain.
// This error usually indicates that changes to the window or
// compositor made the swapchain unusable.
var ErrSwapchain = errors.New("gpu: swapchain-related error")

// Buffer is an opaque handle to a GPU buffer.
// The handle is logical: writes requested with cycling may
// rotate it to a different backing allocation.
type Buffer interface {
	// Size returns the size of the buffer in bytes.
	Size() int64

	// Usage returns the usage flags given at creation.
	Usage() Usage

	// Label returns the debug name of the buffer.
	Label() string

	// SetLabel sets the debug name of the buffer.
	// The name applies to the current backing allocation
	// and to any allocation created by future cycling.
	SetLabel(string)
}

// Texture is an opaque handle to a GPU texture.
// The handle is logical: writes requested with cycling may
// rotate it to a different backing allocation.
type Texture interface {
	// Type returns the texture type.
	Type() TexType

	// Format returns the pixel format.
	Format() PixelFmt

	// Dim returns the size of mip level 0.
	Dim() Dim3D

	// Layers returns the number of array layers.
	Layers() int

	// Levels returns the number of mip levels.
	Levels() int

	// Samples returns the sample count.
	Samples() int

	// Usage returns the usage flags given at creation.
	Usage() Usage

	// Label returns the debug name of the texture.
	Label() string

	// SetLabel sets the debug name of the texture.
	SetLabel(string)
}

// TransferBuffer is an opaque handle to a host-visible
// staging allocation used to upload/download resource data.
type TransferBuffer interface {
	// Size returns the size of the transfer buffer
	// in bytes.
	Size() int64

	// Download returns whether the transfer buffer was
	// created for GPU-to-CPU transfers.
	Download() bool
}

// Sampler is an opaque handle to a texture sampler.
type Sampler interface {
	// Sampling returns the state given at creation.
	Sampling() Sampling
}

// Shader is an opaque handle to a shader created from
// backend-specific bytecode.
type Shader interface {
	// Stage returns the stage the shader executes in.
	Stage() Stage
}

// Pipeline is an opaque handle to a GPU pipeline.
type Pipeline interface {
	// Compute returns whether this is a compute pipeline.
	Compute() bool
}

// Fence is an opaque handle to a GPU-to-CPU completion
// signal with a monotonic target value.
type Fence interface {
	// Signaled returns whether the fence has reached its
	// current target value.
	Signaled() bool
}

// Renderer is the interface that a backend implements to
// realize a device. Every resource pool - command buffers,
// fences, descriptor heaps, uniform rings - lives behind
// this interface.
//
// Renderer methods other than Wait/WaitForFences do not
// block. Creation methods are safe for concurrent use.
type Renderer interface {
	// NewBuffer creates a new buffer.
	NewBuffer(size int64, usage Usage) (Buffer, error)

	// NewTexture creates a new texture.
	// dim.Depth is only meaningful for T3D textures.
	NewTexture(typ TexType, fmt PixelFmt, dim Dim3D, layers, levels, samples int, usage Usage) (Texture, error)

	// NewTransferBuffer creates a new transfer buffer.
	NewTransferBuffer(size int64, download bool) (TransferBuffer, error)

	// NewSampler creates a new sampler.
	NewSampler(*Sampling) (Sampler, error)

	// NewShader creates a new shader.
	NewShader(*ShaderDesc) (Shader, error)

	// NewGraphPipeline creates a new graphics pipeline.
	NewGraphPipeline(*GraphState) (Pipeline, error)

	// NewCompPipeline creates a new compute pipeline.
	NewCompPipeline(*CompState) (Pipeline, error)

	// The Release methods defer destruction until no
	// pending command buffer references the resource.

	ReleaseBuffer(Buffer)
	ReleaseTexture(Texture)
	ReleaseTransferBuffer(TransferBuffer)
	ReleaseSampler(Sampler)
	ReleaseShader(Shader)
	ReleasePipeline(Pipeline)

	// MapTransferBuffer maps the transfer buffer into
	// host memory. If cycle is true and the buffer is
	// referenced by pending GPU work, it rotates to an
	// idle backing allocation first.
	MapTransferBuffer(tb TransferBuffer, cycle bool) ([]byte, error)

	// UnmapTransferBuffer unmaps the transfer buffer.
	UnmapTransferBuffer(TransferBuffer)

	// AcquireCmdBuffer obtains a recorder from the
	// device's command buffer pool.
	AcquireCmdBuffer() (CmdRecorder, error)

	// Wait blocks until the device is idle, then reclaims
	// every completed command buffer.
	Wait() error

	// WaitForFences blocks until all (or any, if all is
	// false) of the given fences signal, then reclaims
	// every completed command buffer.
	WaitForFences(all bool, fences ...Fence) error

	// ReleaseFence releases a fence obtained from
	// CmdRecorder.Submit back to the fence pool.
	ReleaseFence(Fence)

	// SupportsFormat returns whether textures of the
	// given type/format/usage combination can be created.
	SupportsFormat(fmt PixelFmt, typ TexType, usage Usage) bool

	// BestSampleCount returns the highest supported
	// sample count for render targets of the given
	// format.
	BestSampleCount(fmt PixelFmt) int

	// Limits returns the device limits.
	Limits() Limits

	// ClaimWindow creates a swapchain for the window.
	ClaimWindow(wsi.Window) error

	// UnclaimWindow destroys the window's swapchain.
	UnclaimWindow(wsi.Window)

	// SetSwapchainParams reconfigures the window's
	// swapchain.
	SetSwapchainParams(w wsi.Window, comp Composition, mode PresentMode) error

	// SwapchainFormat returns the texture format of the
	// window's swapchain.
	SwapchainFormat(w wsi.Window) PixelFmt

	// Close destroys the device. It must not be called
	// while any command buffer is pending.
	Close()
}

// CmdRecorder is the interface that a backend implements
// to realize command buffer recording. A recorder is used
// by a single goroutine and becomes invalid after Submit;
// the backing native command buffer returns to the pool
// once its fence signals.
//
// The recorder performs no usage validation - that is the
// caller's responsibility (see CmdBuffer). Recording
// failures such as descriptor pool exhaustion mark the
// recorder as failed; Submit reports the first such error.
type CmdRecorder interface {
	// BeginRenderPass prepares the attachments for
	// writing (cycling if requested), applies load
	// operations and derives the default viewport and
	// scissor from the attachment sizes.
	BeginRenderPass(color []ColorTarget, ds *DSTarget)

	// BindPipeline binds a graphics pipeline during a
	// render pass or a compute pipeline during a compute
	// pass. It invalidates every resource binding
	// category and acquires one uniform ring slot per
	// uniform buffer declared by the pipeline's shaders.
	BindPipeline(Pipeline)

	SetViewport(Viewport)
	SetScissor(Scissor)
	SetBlendColor([4]float32)
	SetStencilRef(uint32)

	BindVertexBuffers(start int, bindings []BufferBinding)
	BindIndexBuffer(binding BufferBinding, fmt IndexFmt)

	// The Bind methods below stage resource views on the
	// CPU and mark the category dirty; GPU-visible
	// descriptors are written lazily at draw/dispatch.

	BindSamplers(stage Stage, start int, bindings []TextureSamplerBinding)
	BindStorageTextures(stage Stage, start int, textures []Texture)
	BindStorageBuffers(stage Stage, start int, buffers []Buffer)

	// PushUniform copies data into the uniform ring
	// assigned to the given stage and slot.
	PushUniform(stage Stage, slot int, data []byte)

	Draw(vertexCount, instanceCount, baseVertex, baseInstance int)
	DrawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int)
	DrawIndirect(buf Buffer, off int64, drawCount, stride int)
	DrawIndexedIndirect(buf Buffer, off int64, drawCount, stride int)

	// EndRenderPass restores every attachment to its
	// default usage state and unbinds the pipeline.
	EndRenderPass()

	// BeginComputePass prepares the read-write storage
	// bindings for writing (cycling if requested).
	BeginComputePass(textures []StorageTextureRW, buffers []StorageBufferRW)

	Dispatch(x, y, z int)
	DispatchIndirect(buf Buffer, off int64)

	// EndComputePass restores the read-write storage
	// bindings to their default usage states and unbinds
	// the pipeline.
	EndComputePass()

	BeginCopyPass()
	UploadToBuffer(src *TransferLocation, dst *BufferRegion, cycle bool)
	UploadToTexture(src *TextureTransferInfo, dst *TextureRegion, cycle bool)
	CopyBufferToBuffer(src, dst *BufferLocation, size int64, cycle bool)
	CopyTextureToTexture(src, dst *TextureLocation, dim Dim3D, cycle bool)
	DownloadFromBuffer(src *BufferRegion, dst *TransferLocation)
	DownloadFromTexture(src *TextureRegion, dst *TextureTransferInfo)
	EndCopyPass()

	// AcquireSwapchainTexture obtains the next swapchain
	// texture of a claimed window. A nil texture with a
	// nil error means the present queue has not drained;
	// the caller is expected to skip the frame.
	AcquireSwapchainTexture(wsi.Window) (Texture, Dim3D, error)

	// Debug labels. No-ops unless the device was opened
	// in debug mode.

	PushDebugGroup(name string)
	PopDebugGroup()
	InsertDebugLabel(name string)

	// Submit closes the native command list, enqueues it
	// for execution and registers the command buffer in
	// the device's pending list. If wantFence is true,
	// the returned fence can be queried/waited on and
	// must be released by the caller.
	// It reports the first recording error, if any.
	Submit(wantFence bool) (Fence, error)
}
