// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

// Usage is a mask indicating valid uses for a resource.
type Usage int

// Usage flags for Buffer and Texture.
const (
	// The resource can be read as storage in shaders.
	UShaderRead Usage = 1 << iota
	// The resource can be written as storage in shaders.
	UShaderWrite
	// The resource can be sampled in shaders.
	// Valid only for Texture.
	UShaderSample
	// The resource can provide vertex data for draw calls.
	// Valid only for Buffer.
	UVertexData
	// The resource can provide index data for draw calls.
	// Valid only for Buffer.
	UIndexData
	// The resource can provide indirect draw/dispatch
	// parameters.
	// Valid only for Buffer.
	UIndirect
	// The resource can be used as color render target.
	// Valid only for Texture.
	URenderTarget
	// The resource can be used as depth/stencil target.
	// Valid only for Texture.
	UDSTarget
	// The resource can be used for any purpose valid for
	// its kind.
	UGeneric Usage = 1<<iota - 1
)

// PixelFmt describes the format of a pixel.
type PixelFmt int

// FInvalid is the zero-value format. It is not valid for
// resource creation; it indicates an absent attachment.
const FInvalid PixelFmt = 0

// Pixel formats.
const (
	// Color, 8-bit channels.
	RGBA8un PixelFmt = 1 + iota
	RGBA8sRGB
	BGRA8un
	BGRA8sRGB
	RG8un
	R8un
	// Color, 10/11-bit channels.
	RGB10A2un
	// Color, 16-bit channels.
	RGBA16f
	RG16f
	R16f
	// Color, 32-bit channels.
	RGBA32f
	RG32f
	R32f
	// Depth/Stencil.
	D16un
	D32f
	D24unS8ui
	D32fS8ui
)

// IsDS returns whether f is a depth/stencil format.
func (f PixelFmt) IsDS() bool {
	switch f {
	case D16un, D32f, D24unS8ui, D32fS8ui:
		return true
	}
	return false
}

// HasStencil returns whether f has a stencil aspect.
func (f PixelFmt) HasStencil() bool {
	switch f {
	case D24unS8ui, D32fS8ui:
		return true
	}
	return false
}

// Size returns the number of bytes per pixel of f.
func (f PixelFmt) Size() int {
	switch f {
	case R8un:
		return 1
	case RG8un, R16f, D16un:
		return 2
	case RGBA8un, RGBA8sRGB, BGRA8un, BGRA8sRGB, RGB10A2un, RG16f, R32f, D32f, D24unS8ui:
		return 4
	case RGBA16f, RG32f, D32fS8ui:
		return 8
	case RGBA32f:
		return 16
	}
	return 0
}

// TexType is the type of a texture.
type TexType int

// Texture types.
const (
	T2D TexType = iota
	T2DArray
	T3D
	TCube
)

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}

// LoadOp is the type of an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is the type of an attachment's store operation.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// ColorTarget describes a single color attachment of a
// render pass.
// If Cycle is true and Load is not LLoad, the texture may
// rotate to an idle backing allocation when the active one
// is still referenced by pending GPU work.
type ColorTarget struct {
	Texture Texture
	Layer   int
	Level   int
	Load    LoadOp
	Store   StoreOp
	Clear   [4]float32
	Cycle   bool
}

// DSTarget describes the depth/stencil attachment of a
// render pass.
type DSTarget struct {
	Texture      Texture
	Load         LoadOp
	Store        StoreOp
	StencilLoad  LoadOp
	StencilStore StoreOp
	ClearDepth   float32
	ClearStencil uint32
	Cycle        bool
}

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor defines a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// Stage is a mask of programmable stages.
type Stage int

// Stages.
const (
	SVertex Stage = 1 << iota
	SFragment
	SCompute
)

// IndexFmt describes the format of index buffer data.
type IndexFmt int

// Index formats.
const (
	Index16 IndexFmt = 2
	Index32 IndexFmt = 4
)

// VertexFmt describes the format of a vertex input.
type VertexFmt int

// Vertex formats.
const (
	// Signed 32-bit integer, 1-4 components.
	Int32 VertexFmt = iota
	Int32x2
	Int32x3
	Int32x4
	// Unsigned 32-bit integer, 1-4 components.
	UInt32
	UInt32x2
	UInt32x3
	UInt32x4
	// Single precision floating-point, 1-4 components.
	Float32
	Float32x2
	Float32x3
	Float32x4
	// Normalized unsigned 8-bit integer, 4 components.
	UNorm8x4
)

// VertexIn describes a vertex input.
// Consecutive vertices are fetched Stride bytes apart.
// Each vertex input represents a separate buffer binding,
// interleaved inputs are not supported.
// The meaning of the Nr field is shader-specific.
type VertexIn struct {
	Format   VertexFmt
	Stride   int
	Nr       int
	Instance bool
}

// Topology is the type of primitive topologies,
// which determines how vertex data is assembled.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TLnStrip
	TTriangle
	TTriStrip
)

// CullMode is the type of cull modes, which
// determines primitive culling based on triangle
// facing direction.
type CullMode int

// Cull modes.
const (
	CNone CullMode = iota
	CFront
	CBack
)

// FillMode is the type of triangle fill modes, which
// determines the final rasterization of triangles.
type FillMode int

// Triangle fill modes.
const (
	FFill FillMode = iota
	FLines
)

// RasterState defines the rasterization state of a
// graphics pipeline.
type RasterState struct {
	// Winding order is either clockwise or counter-clockwise.
	Clockwise bool
	Cull      CullMode
	Fill      FillMode
	// DepthBias enables depth bias computation.
	DepthBias bool
	BiasValue float32
	BiasSlope float32
	BiasClamp float32
}

// CmpFunc is the type of comparison functions.
type CmpFunc int

// Comparison functions.
const (
	CNever CmpFunc = iota
	CLess
	CEqual
	CLessEqual
	CGreater
	CNotEqual
	CGreaterEqual
	CAlways
)

// StencilOp is the type of stencil operations.
type StencilOp int

// Stencil operations.
const (
	SKeep StencilOp = iota
	SZero
	SReplace
	SIncClamp
	SDecClamp
	SInvert
	SIncWrap
	SDecWrap
)

// StencilT defines stencil test parameters for the
// depth/stencil state of a graphics pipeline.
type StencilT struct {
	DSFail    [2]StencilOp
	Pass      StencilOp
	ReadMask  uint32
	WriteMask uint32
	Cmp       CmpFunc
}

// DSState defines the depth/stencil state of a
// graphics pipeline.
type DSState struct {
	// DepthTest enables the depth test.
	DepthTest bool
	// DepthWrite enables depth writes.
	DepthWrite bool
	DepthCmp   CmpFunc
	// StencilTest enables the stencil test.
	StencilTest bool
	Front       StencilT
	Back        StencilT
}

// BlendOp is the type of blend operations.
type BlendOp int

// Blend operations.
const (
	BAdd BlendOp = iota
	BSubtract
	BRevSubtract
	BMin
	BMax
)

// BlendFac is the type of blend factors.
type BlendFac int

// Blend factors.
const (
	BZero BlendFac = iota
	BOne
	BSrcColor
	BInvSrcColor
	BSrcAlpha
	BInvSrcAlpha
	BDstColor
	BInvDstColor
	BDstAlpha
	BInvDstAlpha
	BSrcAlphaSaturated
	BBlendColor
	BInvBlendColor
)

// ColorMask is the type of a color write mask.
type ColorMask int

// Color write masks.
const (
	CRed ColorMask = 1 << iota
	CGreen
	CBlue
	CAlpha
	// Write to all channels.
	CAll ColorMask = 1<<iota - 1
)

// ColorBlend defines a render target's blend parameters
// for the color blend state of a graphics pipeline.
type ColorBlend struct {
	// Blend enables blending.
	Blend bool
	// WriteMask specifies which color channels to write.
	// If blending is not enabled, the incoming samples
	// are written unmodified to the specified channels.
	WriteMask ColorMask
	// In the arrays that follow, [0] is for color and
	// [1] is for alpha.
	Op     [2]BlendOp
	SrcFac [2]BlendFac
	DstFac [2]BlendFac
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// AddrMode is the type of sampler address modes.
type AddrMode int

// Address modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)

// Sampling describes texture sampler state.
type Sampling struct {
	Min      Filter
	Mag      Filter
	Mipmap   Filter
	AddrU    AddrMode
	AddrV    AddrMode
	AddrW    AddrMode
	MaxAniso int
	// Compare enables the comparison function.
	Compare bool
	Cmp     CmpFunc
	MinLOD  float32
	MaxLOD  float32
}

// ShaderDesc describes a shader to be created.
// The resource counts declare how many of each binding
// category the shader accesses; they determine the
// pipeline's binding layout.
type ShaderDesc struct {
	// Code holds backend-specific shader bytecode.
	Code []byte
	// Name of the entry point.
	Name  string
	Stage Stage
	// Binding categories, in layout order.
	Samplers        int
	StorageTextures int
	StorageBuffers  int
	UniformBuffers  int
}

// GraphState defines the combination of programmable and
// fixed stages of a graphics pipeline.
// Graphics pipelines are created from graphics states.
type GraphState struct {
	Vert     Shader
	Frag     Shader
	Input    []VertexIn
	Topology Topology
	Raster   RasterState
	Samples  int
	DS       DSState
	// Blend contains color blend parameters for each
	// render target, matching ColorFmt.
	Blend []ColorBlend
	// Formats of the render pass attachments this
	// pipeline will be used with.
	// DSFmt is FInvalid when there is no depth/stencil
	// attachment.
	ColorFmt []PixelFmt
	DSFmt    PixelFmt
}

// CompState defines the state of a compute pipeline.
// Compute pipelines are created from compute states.
type CompState struct {
	// Code holds backend-specific shader bytecode.
	Code []byte
	// Name of the entry point.
	Name string
	// Read-only binding categories, in layout order.
	Samplers        int
	StorageTextures int
	StorageBuffers  int
	// Read-write binding categories, in layout order.
	RWStorageTextures int
	RWStorageBuffers  int
	UniformBuffers    int
}

// BufferBinding describes a buffer range bound for
// vertex/index fetch.
type BufferBinding struct {
	Buffer Buffer
	Offset int64
}

// TextureSamplerBinding describes a texture/sampler pair
// bound for shader sampling.
type TextureSamplerBinding struct {
	Texture Texture
	Sampler Sampler
}

// StorageTextureRW describes a texture subresource bound
// for read-write storage access in a compute pass.
type StorageTextureRW struct {
	Texture Texture
	Layer   int
	Level   int
	Cycle   bool
}

// StorageBufferRW describes a buffer bound for read-write
// storage access in a compute pass.
type StorageBufferRW struct {
	Buffer Buffer
	Cycle  bool
}

// TransferLocation describes a location in a transfer
// buffer.
type TransferLocation struct {
	TransferBuffer TransferBuffer
	Offset         int64
}

// TextureTransferInfo describes the layout of texture
// data in a transfer buffer.
// PixelsPerRow and RowsPerLayer of zero mean tightly
// packed rows/layers.
type TextureTransferInfo struct {
	TransferBuffer TransferBuffer
	Offset         int64
	PixelsPerRow   int
	RowsPerLayer   int
}

// TextureRegion describes a region of a texture
// subresource.
type TextureRegion struct {
	Texture Texture
	Layer   int
	Level   int
	Off     Off3D
	Dim     Dim3D
}

// TextureLocation describes an offset into a texture
// subresource.
type TextureLocation struct {
	Texture Texture
	Layer   int
	Level   int
	Off     Off3D
}

// BufferLocation describes an offset into a buffer.
type BufferLocation struct {
	Buffer Buffer
	Offset int64
}

// BufferRegion describes a range of a buffer.
type BufferRegion struct {
	Buffer Buffer
	Offset int64
	Size   int64
}

// PresentMode is the type of swapchain present modes.
type PresentMode int

// Present modes.
const (
	// PVsync waits for the vertical blank; acquisition
	// blocks until the present queue drains.
	PVsync PresentMode = iota
	// PImmediate presents without waiting; acquisition
	// never blocks and may skip frames.
	PImmediate
	// PMailbox replaces the pending image; acquisition
	// never blocks and may skip frames.
	PMailbox
)

// Composition is the type of swapchain compositions.
type Composition int

// Swapchain compositions.
const (
	CompSDR Composition = iota
	CompSDRLinear
)

// Limits describes implementation limits.
// These may vary across backends and devices.
type Limits struct {
	// Maximum width and height of 2D textures.
	MaxTexture2D int
	// Maximum width and height of cube textures.
	MaxTextureCube int
	// Maximum width, height and depth of 3D textures.
	MaxTexture3D int
	// Maximum number of layers in a texture.
	MaxLayers int
	// Maximum number of color render targets in a
	// render pass.
	MaxColorTargets int
	// Maximum number of vertex inputs.
	MaxVertexIn int
	// Maximum number of bound samplers per stage.
	MaxSamplers int
	// Maximum number of bound storage resources
	// per stage.
	MaxStorage int
	// Maximum number of uniform buffer slots
	// per stage.
	MaxUniformBuffers int
	// Required alignment of uniform data pushes.
	UniformAlign int
	// Maximum dispatch count.
	MaxDispatch [3]int
}
