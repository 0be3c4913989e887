// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gviegas/ember/gpu"
	"github.com/gviegas/ember/wsi"
)

// testDevice implements nativeDevice in memory. Queue
// signals are deferred until completeAll, so tests control
// exactly when "the GPU" finishes.
type testDevice struct {
	mu         sync.Mutex
	draws      int
	dispatches int
	executes   int
	pending    []pendingSignal
	removeErr  error

	nextAddr atomic.Uint64
	nextHeap atomic.Uint64
}

type pendingSignal struct {
	f     *testFence
	value uint64
}

func newTestDevice() *testDevice {
	d := &testDevice{}
	d.nextAddr.Store(1 << 20)
	return d
}

// completeAll resolves every pending queue signal.
func (d *testDevice) completeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.pending {
		if p.value > p.f.val.Load() {
			p.f.val.Store(p.value)
		}
	}
	d.pending = nil
}

func (d *testDevice) drawCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

type testBuffer struct {
	mem   []byte
	addr  uint64
	name  string
	freed bool
}

func (b *testBuffer) bytes() []byte       { return b.mem }
func (b *testBuffer) gpuAddress() uint64  { return b.addr }
func (b *testBuffer) setName(name string) { b.name = name }
func (b *testBuffer) free()               { b.freed = true }

func (d *testDevice) newBuffer(size int64, heap heapKind, state resState, uav bool) (nativeBuffer, error) {
	// Device-local memory is host-visible in the fake so
	// recorded copies can be checked for content.
	return &testBuffer{
		mem:  make([]byte, size),
		addr: d.nextAddr.Add(uint64(size)),
	}, nil
}

type testTexture struct {
	name  string
	freed bool
}

func (t *testTexture) setName(name string) { t.name = name }
func (t *testTexture) free()               { t.freed = true }

func (d *testDevice) newTexture(typ gpu.TexType, fmt gpu.PixelFmt, dim gpu.Dim3D, layers, levels, samples int, usage gpu.Usage, state resState, clear *clearValue) (nativeTexture, error) {
	return &testTexture{}, nil
}

type testDescHeap struct {
	base cpuHandle
	gpu  gpuHandle
}

func (h *testDescHeap) cpuStart() cpuHandle { return h.base }
func (h *testDescHeap) gpuStart() gpuHandle { return h.gpu }
func (h *testDescHeap) stride() int         { return 32 }
func (h *testDescHeap) free()               {}

func (d *testDevice) newDescHeap(kind descKind, count int, shaderVisible bool) (nativeDescHeap, error) {
	n := d.nextHeap.Add(1)
	return &testDescHeap{base: cpuHandle(n << 32), gpu: gpuHandle(n << 32)}, nil
}

func (d *testDevice) bufferSRV(b nativeBuffer, size int64, dst cpuHandle) {}
func (d *testDevice) bufferUAV(b nativeBuffer, size int64, dst cpuHandle) {}
func (d *testDevice) textureSRV(t nativeTexture, typ gpu.TexType, fmt gpu.PixelFmt, layers, levels int, dst cpuHandle) {
}
func (d *testDevice) textureUAV(t nativeTexture, fmt gpu.PixelFmt, layer, level int, dst cpuHandle) {}
func (d *testDevice) textureRTV(t nativeTexture, typ gpu.TexType, fmt gpu.PixelFmt, layer, level int, dst cpuHandle) {
}
func (d *testDevice) textureDSV(t nativeTexture, fmt gpu.PixelFmt, layer, level int, dst cpuHandle) {}
func (d *testDevice) sampler(spln *gpu.Sampling, dst cpuHandle)                                     {}
func (d *testDevice) copyDescriptors(dst, src cpuHandle, n int, kind descKind)                      {}

type testRootSignature struct{ freed bool }

func (rs *testRootSignature) free() { rs.freed = true }

func (d *testDevice) newRootSignature(params []rootParam) (nativeRootSignature, error) {
	return &testRootSignature{}, nil
}

type testPipeline struct{ freed bool }

func (p *testPipeline) free() { p.freed = true }

func (d *testDevice) newGraphPipeline(state *gpu.GraphState, rs nativeRootSignature) (nativePipeline, error) {
	return &testPipeline{}, nil
}

func (d *testDevice) newCompPipeline(state *gpu.CompState, rs nativeRootSignature) (nativePipeline, error) {
	return &testPipeline{}, nil
}

type testFence struct {
	val   atomic.Uint64
	freed bool
}

func (f *testFence) completed() uint64 { return f.val.Load() }
func (f *testFence) free()             { f.freed = true }

func (d *testDevice) newFence() (nativeFence, error) { return &testFence{}, nil }

func (d *testDevice) signal(f nativeFence, value uint64) {
	d.mu.Lock()
	d.pending = append(d.pending, pendingSignal{f: f.(*testFence), value: value})
	d.mu.Unlock()
}

// waitFences simulates blocking by completing every
// pending signal.
func (d *testDevice) waitFences(fences []nativeFence, values []uint64, all bool) error {
	d.completeAll()
	return nil
}

type testSwapchain struct {
	count int
	idx   int
	freed bool
}

func (s *testSwapchain) buffer(i int) nativeTexture { return &testTexture{} }
func (s *testSwapchain) index() int                 { return s.idx }

func (s *testSwapchain) present() error {
	s.idx = (s.idx + 1) % s.count
	return nil
}

func (s *testSwapchain) resize(width, height int) error { return nil }
func (s *testSwapchain) free()                          { s.freed = true }

func (d *testDevice) newSwapchain(w wsi.Window, count int, fmt gpu.PixelFmt, mode gpu.PresentMode) (nativeSwapchain, error) {
	return &testSwapchain{count: count}, nil
}

func (d *testDevice) execute(lists []nativeList) {
	d.mu.Lock()
	d.executes += len(lists)
	d.mu.Unlock()
}

func (d *testDevice) supportsFormat(fmt gpu.PixelFmt, typ gpu.TexType, usage gpu.Usage) bool {
	return true
}

func (d *testDevice) bestSampleCount(fmt gpu.PixelFmt) int { return 8 }

func (d *testDevice) removed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeErr
}

func (d *testDevice) free() {}

type testList struct {
	d      *testDevice
	closed bool
}

func (d *testDevice) newList() (nativeList, error) { return &testList{d: d}, nil }

func (l *testList) reset() error {
	l.closed = false
	return nil
}

func (l *testList) close() error {
	l.closed = true
	return nil
}

func (l *testList) transition(ts []transitionDesc)                                       {}
func (l *testList) clearRTV(h cpuHandle, color [4]float32)                               {}
func (l *testList) clearDSV(h cpuHandle, depth float32, stencil uint32, hasStencil bool) {}
func (l *testList) setRenderTargets(rtvs []cpuHandle, dsv *cpuHandle)                    {}
func (l *testList) setViewport(vp gpu.Viewport)                                          {}
func (l *testList) setScissor(sc gpu.Scissor)                                            {}
func (l *testList) setBlendColor(color [4]float32)                                       {}
func (l *testList) setStencilRef(ref uint32)                                             {}
func (l *testList) setDescHeaps(view, sampler nativeDescHeap)                            {}
func (l *testList) setGraphicsRootSignature(rs nativeRootSignature)                      {}
func (l *testList) setComputeRootSignature(rs nativeRootSignature)                       {}
func (l *testList) setPipeline(p nativePipeline)                                         {}
func (l *testList) setTopology(t gpu.Topology)                                           {}
func (l *testList) setVertexBuffers(start int, views []vertexBufferView)                 {}
func (l *testList) setIndexBuffer(view indexBufferView)                                  {}
func (l *testList) setGraphicsRootTable(param int, base gpuHandle)                       {}
func (l *testList) setComputeRootTable(param int, base gpuHandle)                        {}
func (l *testList) setGraphicsRootCBV(param int, addr uint64)                            {}
func (l *testList) setComputeRootCBV(param int, addr uint64)                             {}

func (l *testList) draw(vertexCount, instanceCount, baseVertex, baseInstance int) {
	l.d.mu.Lock()
	l.d.draws++
	l.d.mu.Unlock()
}

func (l *testList) drawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int) {
	l.d.mu.Lock()
	l.d.draws++
	l.d.mu.Unlock()
}

func (l *testList) drawIndirect(indexed bool, b nativeBuffer, off int64, drawCount, stride int) {
	l.d.mu.Lock()
	l.d.draws++
	l.d.mu.Unlock()
}

func (l *testList) dispatch(x, y, z int) {
	l.d.mu.Lock()
	l.d.dispatches++
	l.d.mu.Unlock()
}

func (l *testList) dispatchIndirect(b nativeBuffer, off int64) {
	l.d.mu.Lock()
	l.d.dispatches++
	l.d.mu.Unlock()
}

func (l *testList) copyBufferRegion(dst nativeBuffer, dstOff int64, src nativeBuffer, srcOff, size int64) {
	// Host-visible source and destination can be copied
	// eagerly; the tests only submit ordered copies.
	s := src.(*testBuffer)
	d := dst.(*testBuffer)
	if s.mem != nil && d.mem != nil {
		copy(d.mem[dstOff:], s.mem[srcOff:srcOff+size])
	}
}

func (l *testList) copyBufferToTexture(src nativeBuffer, srcOff int64, rowPitch, rows int, fmt gpu.PixelFmt, dim gpu.Dim3D, dst nativeTexture, sub int, off gpu.Off3D) {
}

func (l *testList) copyTextureToBuffer(src nativeTexture, sub int, off gpu.Off3D, dim gpu.Dim3D, fmt gpu.PixelFmt, dst nativeBuffer, dstOff int64, rowPitch, rows int) {
}

func (l *testList) copyTextureRegion(dst nativeTexture, dstSub int, dstOff gpu.Off3D, src nativeTexture, srcSub int, srcOff gpu.Off3D, dim gpu.Dim3D) {
}

func (l *testList) beginEvent(name string) {}
func (l *testList) endEvent()              {}
func (l *testList) marker(name string)     {}
func (l *testList) free()                  {}

// newTestRenderer creates a renderer over a fresh fake
// device.
func newTestRenderer(t *testing.T) (*renderer, *testDevice) {
	t.Helper()
	nat := newTestDevice()
	r, err := newRenderer(nat, false, Config{})
	if err != nil {
		t.Fatalf("newRenderer failed: %v", err)
	}
	t.Cleanup(func() {
		nat.completeAll()
		r.Wait()
		r.Close()
	})
	return r, nat
}

// testShaders creates a vertex/fragment shader pair with
// the given uniform buffer count per stage.
func testShaders(t *testing.T, r *renderer, uniforms int) (gpu.Shader, gpu.Shader) {
	t.Helper()
	vert, err := r.NewShader(&gpu.ShaderDesc{
		Code:           []byte{0xd, 0x3, 0xd, 0x12},
		Name:           "main",
		Stage:          gpu.SVertex,
		UniformBuffers: uniforms,
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
	return vert, frag
}
