// Copyright 2025 Gustavo C. Viegas. All rights reserved.

// Package d3d12 implements the gpu interfaces on Direct3D 12.
//
// The package is split in two layers. The lifecycle engine -
// resource containers and cycling, descriptor tables, uniform
// rings, fence pool, submission tracking and deferred
// destruction - is platform-independent and drives the narrow
// native contracts declared in native.go. native_windows.go
// realizes those contracts over COM.
package d3d12

import (
	"sync"

	"golang.org/x/exp/constraints"

	"github.com/gviegas/ember/gpu"
	"github.com/gviegas/ember/internal/bitvec"
	"github.com/gviegas/ember/wsi"
)

// Per-stage binding capacities and pool sizes.
const (
	maxSamplersPerStage        = 16
	maxStorageTexturesPerStage = 8
	maxStorageBuffersPerStage  = 8
	maxUniformBuffersPerStage  = 4
	maxVertexBuffers           = 16
	maxColorTargets            = 4

	// Uniform ring buffers.
	uniformBufferSize = 1 << 20
	uniformBlockAlign = 256

	// Texture transfer alignment.
	rowPitchAlign  = 256
	placementAlign = 512

	// Shader-visible descriptor heaps, per command buffer.
	viewHeapSize    = 65536
	samplerHeapSize = 2048

	// Frames that may be in flight per swapchain.
	maxFramesInFlight = 2
	swapchainBufs     = 2
)

// Config holds the sizes of the device-lifetime staging
// descriptor heaps. The zero value selects the defaults.
type Config struct {
	ViewStaging    int
	SamplerStaging int
	RTVStaging     int
	DSVStaging     int
}

func (c *Config) setDefaults() {
	if c.ViewStaging == 0 {
		c.ViewStaging = 1_000_000
	}
	if c.SamplerStaging == 0 {
		c.SamplerStaging = 2048
	}
	if c.RTVStaging == 0 {
		c.RTVStaging = 65536
	}
	if c.DSVStaging == 0 {
		c.DSVStaging = 4096
	}
}

var (
	confMu sync.Mutex
	conf   Config
)

// Configure sets the Config used by subsequent opens of
// the backend. It does not affect open devices.
func Configure(c Config) {
	confMu.Lock()
	conf = c
	confMu.Unlock()
}

// backend implements gpu.Backend.
type backend struct{}

func (backend) Name() string { return "d3d12" }

func (backend) Open(debug bool) (gpu.Renderer, error) {
	nat, err := openNative(debug)
	if err != nil {
		return nil, err
	}
	confMu.Lock()
	c := conf
	confMu.Unlock()
	r, err := newRenderer(nat, debug, c)
	if err != nil {
		nat.free()
		return nil, err
	}
	return r, nil
}

func init() { gpu.Register(backend{}) }

// renderer implements gpu.Renderer.
// Each pool below is guarded by its own mutex; unrelated
// subsystems never contend on a shared lock.
type renderer struct {
	nat   nativeDevice
	debug bool

	// Device-lifetime staging descriptor heaps,
	// indexed by descKind.
	staging [4]*stagingHeap

	// Shader-visible heaps, pooled per command buffer.
	heapMu       sync.Mutex
	viewHeaps    []*gpuHeap
	samplerHeaps []*gpuHeap

	cmdMu   sync.Mutex
	cmdPool []*cmdBuffer

	uniformMu   sync.Mutex
	uniformPool []*uniformBuffer

	fenceMu   sync.Mutex
	fencePool []*fence

	submitMu  sync.Mutex
	submitted []*cmdBuffer

	disposeMu sync.Mutex
	disposed  []disposeEntry

	windowMu sync.Mutex
	windows  map[wsi.Window]*windowData
}

func newRenderer(nat nativeDevice, debug bool, c Config) (*renderer, error) {
	c.setDefaults()
	r := &renderer{
		nat:     nat,
		debug:   debug,
		windows: make(map[wsi.Window]*windowData),
	}
	sizes := [4]int{c.ViewStaging, c.SamplerStaging, c.RTVStaging, c.DSVStaging}
	for _, k := range [4]descKind{descView, descSampler, descRTV, descDSV} {
		h, err := newStagingHeap(nat, k, sizes[k])
		if err != nil {
			for _, s := range r.staging {
				if s != nil {
					s.heap.free()
				}
			}
			return nil, err
		}
		r.staging[k] = h
	}
	return r, nil
}

// Close destroys the device. The caller must have waited
// for pending work.
func (r *renderer) Close() {
	r.sweepDisposed()
	r.windowMu.Lock()
	for w := range r.windows {
		r.destroyWindowData(r.windows[w])
		delete(r.windows, w)
	}
	r.windowMu.Unlock()
	r.cmdMu.Lock()
	for _, cb := range r.cmdPool {
		cb.list.free()
	}
	r.cmdPool = nil
	r.cmdMu.Unlock()
	r.uniformMu.Lock()
	for _, ub := range r.uniformPool {
		ub.buf.free()
	}
	r.uniformPool = nil
	r.uniformMu.Unlock()
	r.fenceMu.Lock()
	for _, f := range r.fencePool {
		f.nat.free()
	}
	r.fencePool = nil
	r.fenceMu.Unlock()
	r.heapMu.Lock()
	for _, h := range r.viewHeaps {
		h.heap.free()
	}
	for _, h := range r.samplerHeaps {
		h.heap.free()
	}
	r.viewHeaps, r.samplerHeaps = nil, nil
	r.heapMu.Unlock()
	for _, s := range r.staging {
		s.heap.free()
	}
	r.nat.free()
}

// Limits returns the device limits.
func (r *renderer) Limits() gpu.Limits {
	return gpu.Limits{
		MaxTexture2D:      16384,
		MaxTextureCube:    16384,
		MaxTexture3D:      2048,
		MaxLayers:         2048,
		MaxColorTargets:   maxColorTargets,
		MaxVertexIn:       maxVertexBuffers,
		MaxSamplers:       maxSamplersPerStage,
		MaxStorage:        maxStorageTexturesPerStage,
		MaxUniformBuffers: maxUniformBuffersPerStage,
		UniformAlign:      uniformBlockAlign,
		MaxDispatch:       [3]int{65535, 65535, 65535},
	}
}

// SupportsFormat returns whether textures of the given
// type/format/usage combination can be created.
func (r *renderer) SupportsFormat(fmt gpu.PixelFmt, typ gpu.TexType, usage gpu.Usage) bool {
	if fmt == gpu.FInvalid {
		return false
	}
	if fmt.IsDS() && usage&(gpu.URenderTarget|gpu.UShaderWrite) != 0 {
		return false
	}
	if !fmt.IsDS() && usage&gpu.UDSTarget != 0 {
		return false
	}
	return r.nat.supportsFormat(fmt, typ, usage)
}

// BestSampleCount returns the highest supported sample
// count for render targets of the given format.
func (r *renderer) BestSampleCount(fmt gpu.PixelFmt) int { return r.nat.bestSampleCount(fmt) }

// align rounds x up to a multiple of a.
// a must be a power of two.
func align[T constraints.Integer](x, a T) T { return (x + a - 1) &^ (a - 1) }

// stagingHeap is a device-lifetime, CPU-only descriptor
// heap with a free list. View objects live here; they are
// copied into shader-visible heaps at draw/dispatch.
type stagingHeap struct {
	mu   sync.Mutex
	heap nativeDescHeap
	kind descKind
	free bitvec.V[uint64]
	cap  int
}

func newStagingHeap(nat nativeDevice, kind descKind, n int) (*stagingHeap, error) {
	h, err := nat.newDescHeap(kind, n, false)
	if err != nil {
		return nil, err
	}
	s := &stagingHeap{heap: h, kind: kind, cap: n}
	s.free.Grow((n + 63) / 64)
	return s, nil
}

// alloc reserves one descriptor slot.
func (s *stagingHeap) alloc() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.free.Search()
	if !ok || i >= s.cap {
		return 0, gpu.ErrTooLarge
	}
	s.free.Set(i)
	return i, nil
}

// release returns a descriptor slot to the free list.
func (s *stagingHeap) release(i int) {
	if i < 0 {
		return
	}
	s.mu.Lock()
	s.free.Unset(i)
	s.mu.Unlock()
}

// at returns the CPU handle of slot i.
func (s *stagingHeap) at(i int) cpuHandle {
	return s.heap.cpuStart() + cpuHandle(i*s.heap.stride())
}

// gpuHeap is a shader-visible descriptor heap acquired by
// one command buffer at a time. Descriptors are
// bump-allocated; the cursor resets when the heap returns
// to the pool.
type gpuHeap struct {
	heap   nativeDescHeap
	kind   descKind
	cap    int
	cursor int
}

// allocRange reserves n contiguous slots.
// Exhaustion is not recoverable mid-recording; the caller
// must fail the command buffer.
func (h *gpuHeap) allocRange(n int) (int, bool) {
	if h.cursor+n > h.cap {
		return 0, false
	}
	i := h.cursor
	h.cursor += n
	return i, true
}

// cpuAt returns the CPU handle of slot i.
func (h *gpuHeap) cpuAt(i int) cpuHandle {
	return h.heap.cpuStart() + cpuHandle(i*h.heap.stride())
}

// gpuAt returns the GPU handle of slot i.
func (h *gpuHeap) gpuAt(i int) gpuHandle {
	return h.heap.gpuStart() + gpuHandle(i*h.heap.stride())
}

// acquireGPUHeap obtains a shader-visible heap from the
// pool, creating one on demand.
func (r *renderer) acquireGPUHeap(kind descKind) (*gpuHeap, error) {
	r.heapMu.Lock()
	pool := &r.viewHeaps
	n := viewHeapSize
	if kind == descSampler {
		pool = &r.samplerHeaps
		n = samplerHeapSize
	}
	if ln := len(*pool); ln > 0 {
		h := (*pool)[ln-1]
		*pool = (*pool)[:ln-1]
		r.heapMu.Unlock()
		return h, nil
	}
	r.heapMu.Unlock()
	nh, err := r.nat.newDescHeap(kind, n, true)
	if err != nil {
		return nil, err
	}
	return &gpuHeap{heap: nh, kind: kind, cap: n}, nil
}

// returnGPUHeap resets a heap's cursor and returns it to
// the pool.
func (r *renderer) returnGPUHeap(h *gpuHeap) {
	h.cursor = 0
	r.heapMu.Lock()
	if h.kind == descSampler {
		r.samplerHeaps = append(r.samplerHeaps, h)
	} else {
		r.viewHeaps = append(r.viewHeaps, h)
	}
	r.heapMu.Unlock()
}
