// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import (
	"github.com/gviegas/ember/wsi"
)

// mockRenderer implements Renderer for validation tests.
// Its recorder logs the calls that reach the backend, so
// tests can tell a forwarded call from a rejected one.
type mockRenderer struct {
	rec      mockRecorder
	windows  map[wsi.Window]bool
	released int
}

type mockRecorder struct {
	calls []string
}

func (r *mockRecorder) log(call string) { r.calls = append(r.calls, call) }

type mockBuffer struct {
	size  int64
	usage Usage
	label string
}

func (b *mockBuffer) Size() int64           { return b.size }
func (b *mockBuffer) Usage() Usage          { return b.usage }
func (b *mockBuffer) Label() string         { return b.label }
func (b *mockBuffer) SetLabel(label string) { b.label = label }

type mockTexture struct {
	typ     TexType
	fmt     PixelFmt
	dim     Dim3D
	layers  int
	levels  int
	samples int
	usage   Usage
	label   string
}

func (t *mockTexture) Type() TexType         { return t.typ }
func (t *mockTexture) Format() PixelFmt      { return t.fmt }
func (t *mockTexture) Dim() Dim3D            { return t.dim }
func (t *mockTexture) Layers() int           { return t.layers }
func (t *mockTexture) Levels() int           { return t.levels }
func (t *mockTexture) Samples() int          { return t.samples }
func (t *mockTexture) Usage() Usage          { return t.usage }
func (t *mockTexture) Label() string         { return t.label }
func (t *mockTexture) SetLabel(label string) { t.label = label }

type mockTransfer struct {
	size     int64
	download bool
}

func (t *mockTransfer) Size() int64    { return t.size }
func (t *mockTransfer) Download() bool { return t.download }

type mockSampler struct{ spln Sampling }

func (s *mockSampler) Sampling() Sampling { return s.spln }

type mockShader struct{ stage Stage }

func (s *mockShader) Stage() Stage { return s.stage }

type mockPipeline struct{ compute bool }

func (p *mockPipeline) Compute() bool { return p.compute }

type mockFence struct{ signaled bool }

func (f *mockFence) Signaled() bool { return f.signaled }

func newMockRenderer() *mockRenderer {
	return &mockRenderer{windows: make(map[wsi.Window]bool)}
}

// mockDevice wraps a mock renderer in a Device.
func mockDevice(debug bool) (*Device, *mockRenderer) {
	r := newMockRenderer()
	return &Device{r: r, backend: "mock", debug: debug}, r
}

func (r *mockRenderer) NewBuffer(size int64, usage Usage) (Buffer, error) {
	return &mockBuffer{size: size, usage: usage}, nil
}

func (r *mockRenderer) NewTexture(typ TexType, fmt PixelFmt, dim Dim3D, layers, levels, samples int, usage Usage) (Texture, error) {
	return &mockTexture{
		typ:     typ,
		fmt:     fmt,
		dim:     dim,
		layers:  layers,
		levels:  levels,
		samples: samples,
		usage:   usage,
	}, nil
}

func (r *mockRenderer) NewTransferBuffer(size int64, download bool) (TransferBuffer, error) {
	return &mockTransfer{size: size, download: download}, nil
}

func (r *mockRenderer) NewSampler(spln *Sampling) (Sampler, error) {
	return &mockSampler{spln: *spln}, nil
}

func (r *mockRenderer) NewShader(desc *ShaderDesc) (Shader, error) {
	return &mockShader{stage: desc.Stage}, nil
}

func (r *mockRenderer) NewGraphPipeline(state *GraphState) (Pipeline, error) {
	return &mockPipeline{}, nil
}

func (r *mockRenderer) NewCompPipeline(state *CompState) (Pipeline, error) {
	return &mockPipeline{compute: true}, nil
}

func (r *mockRenderer) ReleaseBuffer(Buffer)                 { r.released++ }
func (r *mockRenderer) ReleaseTexture(Texture)               { r.released++ }
func (r *mockRenderer) ReleaseTransferBuffer(TransferBuffer) { r.released++ }
func (r *mockRenderer) ReleaseSampler(Sampler)               { r.released++ }
func (r *mockRenderer) ReleaseShader(Shader)                 { r.released++ }
func (r *mockRenderer) ReleasePipeline(Pipeline)             { r.released++ }

func (r *mockRenderer) MapTransferBuffer(tb TransferBuffer, cycle bool) ([]byte, error) {
	return make([]byte, tb.Size()), nil
}

func (r *mockRenderer) UnmapTransferBuffer(TransferBuffer) {}

func (r *mockRenderer) AcquireCmdBuffer() (CmdRecorder, error) { return &r.rec, nil }

func (r *mockRenderer) Wait() error                                   { return nil }
func (r *mockRenderer) WaitForFences(all bool, fences ...Fence) error { return nil }
func (r *mockRenderer) ReleaseFence(Fence)                            {}

func (r *mockRenderer) SupportsFormat(fmt PixelFmt, typ TexType, usage Usage) bool {
	return fmt != FInvalid
}

func (r *mockRenderer) BestSampleCount(fmt PixelFmt) int { return 4 }

func (r *mockRenderer) Limits() Limits {
	return Limits{
		MaxTexture2D:      16384,
		MaxColorTargets:   4,
		MaxVertexIn:       16,
		MaxSamplers:       16,
		MaxStorage:        8,
		MaxUniformBuffers: 4,
		UniformAlign:      256,
	}
}

func (r *mockRenderer) ClaimWindow(w wsi.Window) error {
	if r.windows[w] {
		return ErrWindow
	}
	r.windows[w] = true
	return nil
}

func (r *mockRenderer) UnclaimWindow(w wsi.Window) { delete(r.windows, w) }

func (r *mockRenderer) SetSwapchainParams(w wsi.Window, comp Composition, mode PresentMode) error {
	if !r.windows[w] {
		return ErrWindow
	}
	return nil
}

func (r *mockRenderer) SwapchainFormat(w wsi.Window) PixelFmt {
	if !r.windows[w] {
		return FInvalid
	}
	return BGRA8un
}

func (r *mockRenderer) Close() {}

func (r *mockRecorder) BeginRenderPass(color []ColorTarget, ds *DSTarget) { r.log("BeginRenderPass") }
func (r *mockRecorder) BindPipeline(Pipeline)                             { r.log("BindPipeline") }
func (r *mockRecorder) SetViewport(Viewport)                              { r.log("SetViewport") }
func (r *mockRecorder) SetScissor(Scissor)                                { r.log("SetScissor") }
func (r *mockRecorder) SetBlendColor([4]float32)                          { r.log("SetBlendColor") }
func (r *mockRecorder) SetStencilRef(uint32)                              { r.log("SetStencilRef") }

func (r *mockRecorder) BindVertexBuffers(start int, bindings []BufferBinding) {
	r.log("BindVertexBuffers")
}

func (r *mockRecorder) BindIndexBuffer(binding BufferBinding, fmt IndexFmt) {
	r.log("BindIndexBuffer")
}

func (r *mockRecorder) BindSamplers(stage Stage, start int, bindings []TextureSamplerBinding) {
	r.log("BindSamplers")
}

func (r *mockRecorder) BindStorageTextures(stage Stage, start int, textures []Texture) {
	r.log("BindStorageTextures")
}

func (r *mockRecorder) BindStorageBuffers(stage Stage, start int, buffers []Buffer) {
	r.log("BindStorageBuffers")
}

func (r *mockRecorder) PushUniform(stage Stage, slot int, data []byte) { r.log("PushUniform") }

func (r *mockRecorder) Draw(vertexCount, instanceCount, baseVertex, baseInstance int) {
	r.log("Draw")
}

func (r *mockRecorder) DrawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int) {
	r.log("DrawIndexed")
}

func (r *mockRecorder) DrawIndirect(buf Buffer, off int64, drawCount, stride int) {
	r.log("DrawIndirect")
}

func (r *mockRecorder) DrawIndexedIndirect(buf Buffer, off int64, drawCount, stride int) {
	r.log("DrawIndexedIndirect")
}

func (r *mockRecorder) EndRenderPass() { r.log("EndRenderPass") }

func (r *mockRecorder) BeginComputePass(textures []StorageTextureRW, buffers []StorageBufferRW) {
	r.log("BeginComputePass")
}

func (r *mockRecorder) Dispatch(x, y, z int)                   { r.log("Dispatch") }
func (r *mockRecorder) DispatchIndirect(buf Buffer, off int64) { r.log("DispatchIndirect") }
func (r *mockRecorder) EndComputePass()                        { r.log("EndComputePass") }
func (r *mockRecorder) BeginCopyPass()                         { r.log("BeginCopyPass") }

func (r *mockRecorder) UploadToBuffer(src *TransferLocation, dst *BufferRegion, cycle bool) {
	r.log("UploadToBuffer")
}

func (r *mockRecorder) UploadToTexture(src *TextureTransferInfo, dst *TextureRegion, cycle bool) {
	r.log("UploadToTexture")
}

func (r *mockRecorder) CopyBufferToBuffer(src, dst *BufferLocation, size int64, cycle bool) {
	r.log("CopyBufferToBuffer")
}

func (r *mockRecorder) CopyTextureToTexture(src, dst *TextureLocation, dim Dim3D, cycle bool) {
	r.log("CopyTextureToTexture")
}

func (r *mockRecorder) DownloadFromBuffer(src *BufferRegion, dst *TransferLocation) {
	r.log("DownloadFromBuffer")
}

func (r *mockRecorder) DownloadFromTexture(src *TextureRegion, dst *TextureTransferInfo) {
	r.log("DownloadFromTexture")
}

func (r *mockRecorder) EndCopyPass() { r.log("EndCopyPass") }

func (r *mockRecorder) AcquireSwapchainTexture(w wsi.Window) (Texture, Dim3D, error) {
	r.log("AcquireSwapchainTexture")
	dim := Dim3D{Width: w.Width(), Height: w.Height(), Depth: 1}
	return &mockTexture{typ: T2D, fmt: BGRA8un, dim: dim, usage: URenderTarget}, dim, nil
}

func (r *mockRecorder) PushDebugGroup(name string)   { r.log("PushDebugGroup") }
func (r *mockRecorder) PopDebugGroup()               { r.log("PopDebugGroup") }
func (r *mockRecorder) InsertDebugLabel(name string) { r.log("InsertDebugLabel") }

func (r *mockRecorder) Submit(wantFence bool) (Fence, error) {
	r.log("Submit")
	if wantFence {
		return &mockFence{}, nil
	}
	return nil, nil
}
