// Copyright 2025 Gustavo C. Viegas. All rights reserved.

//go:build windows

package d3d12

import (
	"fmt"
	"math"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/gviegas/ember/gpu"
	"github.com/gviegas/ember/wsi"
)

var (
	dllD3D12 = windows.NewLazySystemDLL("d3d12.dll")
	dllDXGI  = windows.NewLazySystemDLL("dxgi.dll")

	procD3D12CreateDevice           = dllD3D12.NewProc("D3D12CreateDevice")
	procD3D12GetDebugInterface      = dllD3D12.NewProc("D3D12GetDebugInterface")
	procD3D12SerializeRootSignature = dllD3D12.NewProc("D3D12SerializeRootSignature")
	procCreateDXGIFactory2          = dllDXGI.NewProc("CreateDXGIFactory2")
)

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

var (
	iidDevice           = guid{0x189819f1, 0x1db6, 0x4b57, [8]byte{0xbe, 0x54, 0x18, 0x21, 0x33, 0x9b, 0x85, 0xf7}}
	iidCommandQueue     = guid{0x0ec870a6, 0x5d7e, 0x4c22, [8]byte{0x8c, 0xfc, 0x5b, 0xaa, 0xe0, 0x76, 0x16, 0xed}}
	iidCommandAllocator = guid{0x6102dee4, 0xaf59, 0x4b09, [8]byte{0xb9, 0x99, 0xb4, 0x4d, 0x73, 0xf0, 0x9b, 0x24}}
	iidGraphicsList     = guid{0x5b160d0f, 0xac1b, 0x4185, [8]byte{0x8b, 0xa8, 0xb3, 0xae, 0x42, 0xa5, 0xa4, 0x55}}
	iidResource         = guid{0x696442be, 0xa72e, 0x4059, [8]byte{0xbc, 0x79, 0x5b, 0x5c, 0x98, 0x04, 0x0f, 0xad}}
	iidDescriptorHeap   = guid{0x8efb471d, 0x616c, 0x4f49, [8]byte{0x90, 0xf7, 0x12, 0x7b, 0xb7, 0x63, 0xfa, 0x51}}
	iidRootSignature    = guid{0xc54a6b66, 0x72df, 0x4ee8, [8]byte{0x8b, 0xe5, 0xa9, 0x46, 0xa1, 0x42, 0x92, 0x14}}
	iidPipelineState    = guid{0x765a30f3, 0xf624, 0x4c6f, [8]byte{0xa8, 0x28, 0xac, 0xe9, 0x48, 0x62, 0x24, 0x45}}
	iidFence            = guid{0x0a753dcf, 0xc4d8, 0x4b91, [8]byte{0xad, 0xf6, 0xbe, 0x5a, 0x60, 0xd9, 0x5a, 0x76}}
	iidDebug            = guid{0x344488b7, 0x6846, 0x474b, [8]byte{0xb9, 0x89, 0xf0, 0x27, 0x44, 0x82, 0x45, 0xe0}}
	iidCommandSignature = guid{0xc36a797c, 0xec80, 0x4f0a, [8]byte{0x89, 0x85, 0xa7, 0xb2, 0x47, 0x50, 0x82, 0xd1}}
	iidFactory4         = guid{0x1bc6ea02, 0xef36, 0x464f, [8]byte{0xbf, 0x0c, 0x21, 0xca, 0x39, 0xe5, 0x16, 0x8a}}
	iidAdapter1         = guid{0x29038f61, 0x3839, 0x4626, [8]byte{0x91, 0xfd, 0x08, 0x68, 0x79, 0x01, 0x1a, 0x05}}
	iidSwapChain3       = guid{0x94d99bdb, 0xf1f8, 0x4ab0, [8]byte{0xb2, 0x36, 0x7d, 0xa0, 0x17, 0x0e, 0xda, 0xb1}}
)

// call invokes slot n of a COM object's vtable.
func call(obj uintptr, slot uintptr, args ...uintptr) uintptr {
	vt := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vt + slot*unsafe.Sizeof(uintptr(0))))
	a := make([]uintptr, 0, len(args)+1)
	a = append(a, obj)
	a = append(a, args...)
	r, _, _ := syscall.SyscallN(fn, a...)
	return r
}

// release drops one COM reference (IUnknown::Release).
func release(obj uintptr) {
	if obj != 0 {
		call(obj, 2)
	}
}

func hres(r uintptr, op string) error {
	if int32(r) < 0 {
		return fmt.Errorf("d3d12: %s failed (0x%08x)", op, uint32(r))
	}
	return nil
}

// setName sets the debug name of an ID3D12Object.
func setObjectName(obj uintptr, name string) {
	if obj == 0 || name == "" {
		return
	}
	if p, err := windows.UTF16PtrFromString(name); err == nil {
		call(obj, 6, uintptr(unsafe.Pointer(p)))
	}
}

// dxgiFormat maps a pixel format to DXGI_FORMAT.
func dxgiFormat(f gpu.PixelFmt) uint32 {
	switch f {
	case gpu.RGBA8un:
		return 28
	case gpu.RGBA8sRGB:
		return 29
	case gpu.BGRA8un:
		return 87
	case gpu.BGRA8sRGB:
		return 91
	case gpu.RG8un:
		return 49
	case gpu.R8un:
		return 61
	case gpu.RGB10A2un:
		return 24
	case gpu.RGBA16f:
		return 10
	case gpu.RG16f:
		return 34
	case gpu.R16f:
		return 54
	case gpu.RGBA32f:
		return 2
	case gpu.RG32f:
		return 16
	case gpu.R32f:
		return 41
	case gpu.D16un:
		return 55 // DXGI_FORMAT_D16_UNORM
	case gpu.D32f:
		return 40 // DXGI_FORMAT_D32_FLOAT
	case gpu.D24unS8ui:
		return 45 // DXGI_FORMAT_D24_UNORM_S8_UINT
	case gpu.D32fS8ui:
		return 20 // DXGI_FORMAT_D32_FLOAT_S8X24_UINT
	}
	return 0
}

// vertexFormat maps a vertex format to DXGI_FORMAT.
func vertexFormat(f gpu.VertexFmt) uint32 {
	switch f {
	case gpu.Int32:
		return 43
	case gpu.Int32x2:
		return 38
	case gpu.Int32x3:
		return 32
	case gpu.Int32x4:
		return 4
	case gpu.UInt32:
		return 42
	case gpu.UInt32x2:
		return 37
	case gpu.UInt32x3:
		return 31
	case gpu.UInt32x4:
		return 3
	case gpu.Float32:
		return 41
	case gpu.Float32x2:
		return 16
	case gpu.Float32x3:
		return 6
	case gpu.Float32x4:
		return 2
	case gpu.UNorm8x4:
		return 28
	}
	return 0
}

// Struct mirrors of the D3D12/DXGI ABI. Union fields are
// flattened into appropriately aligned words.

type sampleDesc struct {
	count   uint32
	quality uint32
}

type commandQueueDesc struct {
	typ      int32
	priority int32
	flags    uint32
	nodeMask uint32
}

type descriptorHeapDesc struct {
	typ      uint32
	count    uint32
	flags    uint32
	nodeMask uint32
}

type heapProperties struct {
	typ          uint32
	cpuPageProp  uint32
	memPoolPref  uint32
	creationMask uint32
	visibleMask  uint32
}

type resourceDesc struct {
	dimension        uint32
	_                uint32
	alignment        uint64
	width            uint64
	height           uint32
	depthOrArraySize uint16
	mipLevels        uint16
	format           uint32
	sample           sampleDesc
	layout           uint32
	flags            uint32
}

type d3dClearValue struct {
	format uint32
	// Color, or Depth in [0] and the stencil byte's bits
	// in [1] for depth/stencil formats.
	value [4]float32
}

type resourceBarrier struct {
	typ      uint32
	flags    uint32
	resource uintptr
	sub      uint32
	before   uint32
	after    uint32
	_        uint32
}

type descriptorRange struct {
	typ      uint32
	count    uint32
	baseReg  uint32
	space    uint32
	tableOff uint32
}

type d3dRootParameter struct {
	typ uint32
	_   uint32
	// Table: count, ranges pointer.
	// Root descriptor: register|space<<32, unused.
	u0         uint64
	u1         uint64
	visibility uint32
	_          uint32
}

type rootSignatureDesc struct {
	numParams   uint32
	_           uint32
	params      uintptr
	numSamplers uint32
	_           uint32
	samplers    uintptr
	flags       uint32
	_           uint32
}

type shaderBytecode struct {
	data uintptr
	size uintptr
}

type streamOutputDesc struct {
	decl       uintptr
	numEntries uint32
	_          uint32
	strides    uintptr
	numStrides uint32
	rasterized uint32
}

type renderTargetBlendDesc struct {
	blendEnable   int32
	logicOpEnable int32
	srcBlend      uint32
	dstBlend      uint32
	blendOp       uint32
	srcBlendAlpha uint32
	dstBlendAlpha uint32
	blendOpAlpha  uint32
	logicOp       uint32
	writeMask     uint8
	_             [3]byte
}

type blendDesc struct {
	alphaToCoverage  int32
	independentBlend int32
	targets          [8]renderTargetBlendDesc
}

type rasterizerDesc struct {
	fillMode        uint32
	cullMode        uint32
	frontCCW        int32
	depthBias       int32
	depthBiasClamp  float32
	slopeScaledBias float32
	depthClip       int32
	multisample     int32
	antialiasedLine int32
	forcedSamples   uint32
	conservative    uint32
}

type depthStencilOpDesc struct {
	fail      uint32
	depthFail uint32
	pass      uint32
	fn        uint32
}

type depthStencilDesc struct {
	depthEnable   int32
	depthWrite    uint32
	depthFn       uint32
	stencilEnable int32
	readMask      uint8
	writeMask     uint8
	_             [2]byte
	front         depthStencilOpDesc
	back          depthStencilOpDesc
}

type inputElementDesc struct {
	semanticName  *byte
	semanticIndex uint32
	format        uint32
	slot          uint32
	alignedOff    uint32
	slotClass     uint32
	stepRate      uint32
}

type inputLayoutDesc struct {
	elements uintptr
	count    uint32
	_        uint32
}

type cachedPSO struct {
	blob uintptr
	size uintptr
}

type graphicsPipelineStateDesc struct {
	rootSignature uintptr
	vs            shaderBytecode
	ps            shaderBytecode
	ds            shaderBytecode
	hs            shaderBytecode
	gs            shaderBytecode
	streamOutput  streamOutputDesc
	blend         blendDesc
	sampleMask    uint32
	raster        rasterizerDesc
	depthStencil  depthStencilDesc
	inputLayout   inputLayoutDesc
	stripCut      uint32
	topologyType  uint32
	numTargets    uint32
	rtvFormats    [8]uint32
	dsvFormat     uint32
	sample        sampleDesc
	nodeMask      uint32
	cached        cachedPSO
	flags         uint32
	_             uint32
}

type computePipelineStateDesc struct {
	rootSignature uintptr
	cs            shaderBytecode
	nodeMask      uint32
	_             uint32
	cached        cachedPSO
	flags         uint32
	_             uint32
}

type srvDesc struct {
	format    uint32
	dimension uint32
	mapping   uint32
	_         uint32
	u         [3]uint64
}

type uavDesc struct {
	format    uint32
	dimension uint32
	u         [4]uint64
}

type rtvDesc struct {
	format    uint32
	dimension uint32
	u         [2]uint64
}

type dsvDesc struct {
	format    uint32
	dimension uint32
	flags     uint32
	u         [3]uint32
}

type samplerDesc struct {
	filter      uint32
	addrU       uint32
	addrV       uint32
	addrW       uint32
	mipLODBias  float32
	maxAniso    uint32
	cmpFn       uint32
	borderColor [4]float32
	minLOD      float32
	maxLOD      float32
}

type textureCopyLocation struct {
	resource uintptr
	typ      uint32
	_        uint32
	// Placed footprint, or the subresource index in the
	// low word of off.
	off      uint64
	format   uint32
	width    uint32
	height   uint32
	depth    uint32
	rowPitch uint32
	_        uint32
}

type d3dBox struct {
	left   uint32
	top    uint32
	front  uint32
	right  uint32
	bottom uint32
	back   uint32
}

type d3dViewport struct {
	x, y, w, h, zmin, zmax float32
}

type d3dRect struct {
	left, top, right, bottom int32
}

type vertexBufferViewABI struct {
	addr   uint64
	size   uint32
	stride uint32
}

type indexBufferViewABI struct {
	addr uint64
	size uint32
	fmt  uint32
}

type commandSignatureDesc struct {
	byteStride uint32
	numArgs    uint32
	args       uintptr
	nodeMask   uint32
	_          uint32
}

type indirectArgumentDesc struct {
	typ uint32
	u   [2]uint32
}

type swapChainDesc1 struct {
	width       uint32
	height      uint32
	format      uint32
	stereo      int32
	sample      sampleDesc
	bufferUsage uint32
	bufferCount uint32
	scaling     uint32
	swapEffect  uint32
	alphaMode   uint32
	flags       uint32
}

type multisampleQualityLevels struct {
	format        uint32
	sampleCount   uint32
	flags         uint32
	qualityLevels uint32
}

type formatSupport struct {
	format   uint32
	support1 uint32
	support2 uint32
}

// comDevice implements nativeDevice over COM.
type comDevice struct {
	factory uintptr
	dev     uintptr
	queue   uintptr

	// Descriptor slot increments by descKind.
	strides [4]int

	// Command signatures for indirect draws/dispatches,
	// keyed by argument type and stride.
	sigMu sync.Mutex
	sigs  map[[2]int]uintptr

	event windows.Handle
}

func openNative(debug bool) (nativeDevice, error) {
	if err := procD3D12CreateDevice.Find(); err != nil {
		return nil, gpu.ErrNotInstalled
	}
	var factoryFlags uintptr
	if debug {
		var dbg uintptr
		r, _, _ := procD3D12GetDebugInterface.Call(uintptr(unsafe.Pointer(&iidDebug)), uintptr(unsafe.Pointer(&dbg)))
		if int32(r) >= 0 {
			call(dbg, 3) // EnableDebugLayer
			release(dbg)
		}
		factoryFlags = 0x1 // DXGI_CREATE_FACTORY_DEBUG
	}
	var factory uintptr
	r, _, _ := procCreateDXGIFactory2.Call(factoryFlags, uintptr(unsafe.Pointer(&iidFactory4)), uintptr(unsafe.Pointer(&factory)))
	if err := hres(r, "CreateDXGIFactory2"); err != nil {
		return nil, err
	}
	const featureLevel11 = 0xb000
	var dev uintptr
	for i := uintptr(0); ; i++ {
		var adapter uintptr
		if int32(call(factory, 12, i, uintptr(unsafe.Pointer(&adapter)))) < 0 {
			break
		}
		r, _, _ := procD3D12CreateDevice.Call(adapter, featureLevel11, uintptr(unsafe.Pointer(&iidDevice)), uintptr(unsafe.Pointer(&dev)))
		release(adapter)
		if int32(r) >= 0 {
			break
		}
		dev = 0
	}
	if dev == 0 {
		// Fall back to the software rasterizer.
		var warp uintptr
		if int32(call(factory, 27, uintptr(unsafe.Pointer(&iidAdapter1)), uintptr(unsafe.Pointer(&warp)))) >= 0 {
			r, _, _ := procD3D12CreateDevice.Call(warp, featureLevel11, uintptr(unsafe.Pointer(&iidDevice)), uintptr(unsafe.Pointer(&dev)))
			release(warp)
			if int32(r) < 0 {
				dev = 0
			}
		}
	}
	if dev == 0 {
		release(factory)
		return nil, gpu.ErrNoDevice
	}
	qd := commandQueueDesc{} // direct, normal priority
	var queue uintptr
	r = call(dev, 8, uintptr(unsafe.Pointer(&qd)), uintptr(unsafe.Pointer(&iidCommandQueue)), uintptr(unsafe.Pointer(&queue)))
	if err := hres(r, "CreateCommandQueue"); err != nil {
		release(dev)
		release(factory)
		return nil, err
	}
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		release(queue)
		release(dev)
		release(factory)
		return nil, err
	}
	d := &comDevice{
		factory: factory,
		dev:     dev,
		queue:   queue,
		sigs:    make(map[[2]int]uintptr),
		event:   event,
	}
	// Heap types: CBV_SRV_UAV, SAMPLER, RTV, DSV.
	for i := range d.strides {
		d.strides[i] = int(call(dev, 15, uintptr(i)))
	}
	return d, nil
}

func (d *comDevice) free() {
	d.sigMu.Lock()
	for _, s := range d.sigs {
		release(s)
	}
	d.sigs = nil
	d.sigMu.Unlock()
	windows.CloseHandle(d.event)
	release(d.queue)
	release(d.dev)
	release(d.factory)
}

func (d *comDevice) removed() error {
	if r := call(d.dev, 37); int32(r) < 0 {
		return fmt.Errorf("%w (0x%08x)", gpu.ErrDeviceLost, uint32(r))
	}
	return nil
}

// comBuffer implements nativeBuffer.
type comBuffer struct {
	res  uintptr
	mem  []byte
	addr uint64
}

func (b *comBuffer) bytes() []byte       { return b.mem }
func (b *comBuffer) gpuAddress() uint64  { return b.addr }
func (b *comBuffer) setName(name string) { setObjectName(b.res, name) }
func (b *comBuffer) free()               { release(b.res) }

func (d *comDevice) newBuffer(size int64, heap heapKind, state resState, uav bool) (nativeBuffer, error) {
	hp := heapProperties{typ: uint32(heap) + 1} // DEFAULT=1, UPLOAD=2, READBACK=3
	rd := resourceDesc{
		dimension:        1, // BUFFER
		width:            uint64(size),
		height:           1,
		depthOrArraySize: 1,
		mipLevels:        1,
		sample:           sampleDesc{count: 1},
		layout:           1, // ROW_MAJOR
	}
	if uav {
		rd.flags = 0x4 // ALLOW_UNORDERED_ACCESS
	}
	var res uintptr
	r := call(d.dev, 27,
		uintptr(unsafe.Pointer(&hp)), 0,
		uintptr(unsafe.Pointer(&rd)), uintptr(state), 0,
		uintptr(unsafe.Pointer(&iidResource)), uintptr(unsafe.Pointer(&res)))
	if err := hres(r, "CreateCommittedResource"); err != nil {
		if heap == heapDefault {
			return nil, fmt.Errorf("%w: %v", gpu.ErrNoDeviceMemory, err)
		}
		return nil, fmt.Errorf("%w: %v", gpu.ErrNoHostMemory, err)
	}
	b := &comBuffer{res: res, addr: uint64(call(res, 11))}
	if heap != heapDefault {
		var p uintptr
		if err := hres(call(res, 8, 0, 0, uintptr(unsafe.Pointer(&p))), "Map"); err != nil {
			release(res)
			return nil, err
		}
		b.mem = unsafe.Slice((*byte)(unsafe.Pointer(p)), size)
	}
	return b, nil
}

// comTexture implements nativeTexture.
type comTexture struct {
	res uintptr
}

func (t *comTexture) setName(name string) { setObjectName(t.res, name) }
func (t *comTexture) free()               { release(t.res) }

func (d *comDevice) newTexture(typ gpu.TexType, pf gpu.PixelFmt, dim gpu.Dim3D, layers, levels, samples int, usage gpu.Usage, state resState, clear *clearValue) (nativeTexture, error) {
	rd := resourceDesc{
		dimension:        3, // TEXTURE2D
		width:            uint64(dim.Width),
		height:           uint32(dim.Height),
		depthOrArraySize: uint16(layers),
		mipLevels:        uint16(levels),
		format:           dxgiFormat(pf),
		sample:           sampleDesc{count: uint32(samples)},
	}
	if typ == gpu.T3D {
		rd.dimension = 4 // TEXTURE3D
		rd.depthOrArraySize = uint16(dim.Depth)
	}
	if usage&gpu.URenderTarget != 0 {
		rd.flags |= 0x1 // ALLOW_RENDER_TARGET
	}
	if usage&gpu.UDSTarget != 0 {
		rd.flags |= 0x2 // ALLOW_DEPTH_STENCIL
	}
	if usage&gpu.UShaderWrite != 0 {
		rd.flags |= 0x4 // ALLOW_UNORDERED_ACCESS
	}
	hp := heapProperties{typ: 1}
	var cv *d3dClearValue
	if clear != nil {
		cv = &d3dClearValue{format: rd.format}
		if clear.ds {
			cv.value[0] = clear.depth
			cv.value[1] = math.Float32frombits(clear.stencil)
		} else {
			cv.value = clear.color
		}
	}
	var res uintptr
	r := call(d.dev, 27,
		uintptr(unsafe.Pointer(&hp)), 0,
		uintptr(unsafe.Pointer(&rd)), uintptr(state), uintptr(unsafe.Pointer(cv)),
		uintptr(unsafe.Pointer(&iidResource)), uintptr(unsafe.Pointer(&res)))
	if err := hres(r, "CreateCommittedResource"); err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrNoDeviceMemory, err)
	}
	return &comTexture{res: res}, nil
}

// comDescHeap implements nativeDescHeap.
type comDescHeap struct {
	heap uintptr
	cpu  cpuHandle
	gpu  gpuHandle
	inc  int
}

func (h *comDescHeap) cpuStart() cpuHandle { return h.cpu }
func (h *comDescHeap) gpuStart() gpuHandle { return h.gpu }
func (h *comDescHeap) stride() int         { return h.inc }
func (h *comDescHeap) free()               { release(h.heap) }

func (d *comDevice) newDescHeap(kind descKind, count int, shaderVisible bool) (nativeDescHeap, error) {
	hd := descriptorHeapDesc{typ: uint32(kind), count: uint32(count)}
	if shaderVisible {
		hd.flags = 0x1 // SHADER_VISIBLE
	}
	var heap uintptr
	r := call(d.dev, 14, uintptr(unsafe.Pointer(&hd)), uintptr(unsafe.Pointer(&iidDescriptorHeap)), uintptr(unsafe.Pointer(&heap)))
	if err := hres(r, "CreateDescriptorHeap"); err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrNoDeviceMemory, err)
	}
	h := &comDescHeap{heap: heap, inc: d.strides[kind]}
	// These return the handle through a hidden pointer.
	var c uintptr
	call(heap, 9, uintptr(unsafe.Pointer(&c)))
	h.cpu = cpuHandle(c)
	if shaderVisible {
		var g uint64
		call(heap, 10, uintptr(unsafe.Pointer(&g)))
		h.gpu = gpuHandle(g)
	}
	return h, nil
}

func srvDimension(typ gpu.TexType) uint32 {
	switch typ {
	case gpu.T2DArray:
		return 5 // TEXTURE2DARRAY
	case gpu.T3D:
		return 8 // TEXTURE3D
	case gpu.TCube:
		return 9 // TEXTURECUBE
	}
	return 4 // TEXTURE2D
}

const defaultMapping = 0x1688 // D3D12_DEFAULT_SHADER_4_COMPONENT_MAPPING

func (d *comDevice) bufferSRV(b nativeBuffer, size int64, dst cpuHandle) {
	sd := srvDesc{
		dimension: 1, // BUFFER
		mapping:   defaultMapping,
	}
	// Raw buffer view: R32 typeless elements.
	sd.format = 39 // DXGI_FORMAT_R32_TYPELESS
	sd.u[1] = uint64(uint32(size / 4))
	sd.u[2] = 0x1 // D3D12_BUFFER_SRV_FLAG_RAW
	call(d.dev, 18, b.(*comBuffer).res, uintptr(unsafe.Pointer(&sd)), uintptr(dst))
}

func (d *comDevice) bufferUAV(b nativeBuffer, size int64, dst cpuHandle) {
	ud := uavDesc{
		format:    39, // R32_TYPELESS
		dimension: 1,  // BUFFER
	}
	ud.u[1] = uint64(uint32(size / 4))
	ud.u[3] = 0x1 // RAW
	call(d.dev, 19, b.(*comBuffer).res, 0, uintptr(unsafe.Pointer(&ud)), uintptr(dst))
}

func (d *comDevice) textureSRV(t nativeTexture, typ gpu.TexType, pf gpu.PixelFmt, layers, levels int, dst cpuHandle) {
	sd := srvDesc{
		format:    dxgiFormat(pf),
		dimension: srvDimension(typ),
		mapping:   defaultMapping,
	}
	switch typ {
	case gpu.T2DArray:
		sd.u[0] = uint64(levels) << 32
		sd.u[1] = uint64(layers) << 32
	default:
		sd.u[0] = uint64(levels) << 32
	}
	call(d.dev, 18, t.(*comTexture).res, uintptr(unsafe.Pointer(&sd)), uintptr(dst))
}

func (d *comDevice) textureUAV(t nativeTexture, pf gpu.PixelFmt, layer, level int, dst cpuHandle) {
	ud := uavDesc{
		format:    dxgiFormat(pf),
		dimension: 4, // TEXTURE2D
	}
	ud.u[0] = uint64(uint32(level))
	if layer > 0 {
		ud.dimension = 5 // TEXTURE2DARRAY
		ud.u[0] |= uint64(uint32(layer)) << 32
		ud.u[1] = 1 // ArraySize
	}
	call(d.dev, 19, t.(*comTexture).res, 0, uintptr(unsafe.Pointer(&ud)), uintptr(dst))
}

func (d *comDevice) textureRTV(t nativeTexture, typ gpu.TexType, pf gpu.PixelFmt, layer, level int, dst cpuHandle) {
	rd := rtvDesc{
		format:    dxgiFormat(pf),
		dimension: 4, // TEXTURE2D
	}
	rd.u[0] = uint64(uint32(level))
	if typ == gpu.T2DArray || typ == gpu.TCube || layer > 0 {
		rd.dimension = 5 // TEXTURE2DARRAY
		rd.u[0] |= uint64(uint32(layer)) << 32
		rd.u[1] = 1 // ArraySize
	} else if typ == gpu.T3D {
		rd.dimension = 8 // TEXTURE3D
	}
	call(d.dev, 20, t.(*comTexture).res, uintptr(unsafe.Pointer(&rd)), uintptr(dst))
}

func (d *comDevice) textureDSV(t nativeTexture, pf gpu.PixelFmt, layer, level int, dst cpuHandle) {
	dd := dsvDesc{
		format:    dxgiFormat(pf),
		dimension: 3, // TEXTURE2D
	}
	dd.u[0] = uint32(level)
	if layer > 0 {
		dd.dimension = 4 // TEXTURE2DARRAY
		dd.u[1] = uint32(layer)
		dd.u[2] = 1
	}
	call(d.dev, 21, t.(*comTexture).res, uintptr(unsafe.Pointer(&dd)), uintptr(dst))
}

func d3dFilter(spln *gpu.Sampling) uint32 {
	if spln.MaxAniso > 1 {
		if spln.Compare {
			return 0xd5 // COMPARISON_ANISOTROPIC
		}
		return 0x55 // ANISOTROPIC
	}
	var f uint32
	if spln.Mipmap == gpu.FLinear {
		f |= 0x1
	}
	if spln.Mag == gpu.FLinear {
		f |= 0x4
	}
	if spln.Min == gpu.FLinear {
		f |= 0x10
	}
	if spln.Compare {
		f |= 0x80
	}
	return f
}

func d3dAddr(m gpu.AddrMode) uint32 {
	switch m {
	case gpu.AMirror:
		return 2
	case gpu.AClamp:
		return 3
	}
	return 1 // WRAP
}

func d3dCmp(fn gpu.CmpFunc) uint32 { return uint32(fn) + 1 }

func (d *comDevice) sampler(spln *gpu.Sampling, dst cpuHandle) {
	sd := samplerDesc{
		filter:   d3dFilter(spln),
		addrU:    d3dAddr(spln.AddrU),
		addrV:    d3dAddr(spln.AddrV),
		addrW:    d3dAddr(spln.AddrW),
		maxAniso: uint32(max(spln.MaxAniso, 1)),
		cmpFn:    d3dCmp(spln.Cmp),
		minLOD:   spln.MinLOD,
		maxLOD:   spln.MaxLOD,
	}
	if !spln.Compare {
		sd.cmpFn = 1 // NEVER
	}
	if sd.maxLOD == 0 {
		sd.maxLOD = math.MaxFloat32
	}
	call(d.dev, 22, uintptr(unsafe.Pointer(&sd)), uintptr(dst))
}

func (d *comDevice) copyDescriptors(dst, src cpuHandle, n int, kind descKind) {
	call(d.dev, 24, uintptr(dst), uintptr(src), uintptr(n), uintptr(kind))
}

func d3dVisibility(s gpu.Stage) uint32 {
	switch s {
	case gpu.SVertex:
		return 1 // VERTEX
	case gpu.SFragment:
		return 5 // PIXEL
	}
	return 0 // ALL
}

func (d *comDevice) newRootSignature(params []rootParam) (nativeRootSignature, error) {
	var ranges []descriptorRange
	dparams := make([]d3dRootParameter, len(params))
	// Reserve up front so range pointers stay valid.
	ranges = make([]descriptorRange, 0, len(params))
	for i, p := range params {
		dp := &dparams[i]
		dp.visibility = d3dVisibility(p.stage)
		switch p.kind {
		case rootCBV:
			dp.typ = 2 // CBV
			dp.u0 = uint64(uint32(p.register)) | uint64(uint32(p.space))<<32
		default:
			var rt uint32
			switch p.kind {
			case rootTableSRV:
				rt = 0
			case rootTableUAV:
				rt = 1
			case rootTableSampler:
				rt = 3
			}
			ranges = append(ranges, descriptorRange{
				typ:      rt,
				count:    uint32(p.count),
				baseReg:  uint32(p.register),
				space:    uint32(p.space),
				tableOff: 0xffffffff, // APPEND
			})
			dp.typ = 0 // DESCRIPTOR_TABLE
			dp.u0 = 1
			dp.u1 = uint64(uintptr(unsafe.Pointer(&ranges[len(ranges)-1])))
		}
	}
	rsd := rootSignatureDesc{
		numParams: uint32(len(dparams)),
		flags:     0x1, // ALLOW_INPUT_ASSEMBLER_INPUT_LAYOUT
	}
	if len(dparams) > 0 {
		rsd.params = uintptr(unsafe.Pointer(&dparams[0]))
	}
	var blob, errBlob uintptr
	r, _, _ := procD3D12SerializeRootSignature.Call(
		uintptr(unsafe.Pointer(&rsd)), 1,
		uintptr(unsafe.Pointer(&blob)), uintptr(unsafe.Pointer(&errBlob)))
	release(errBlob)
	if err := hres(r, "D3D12SerializeRootSignature"); err != nil {
		return nil, err
	}
	defer release(blob)
	var rs uintptr
	r = call(d.dev, 16, 0, call(blob, 3), call(blob, 4), uintptr(unsafe.Pointer(&iidRootSignature)), uintptr(unsafe.Pointer(&rs)))
	if err := hres(r, "CreateRootSignature"); err != nil {
		return nil, err
	}
	return comRootSignature(rs), nil
}

type comRootSignature uintptr

func (rs comRootSignature) free() { release(uintptr(rs)) }

type comPipeline uintptr

func (p comPipeline) free() { release(uintptr(p)) }

func d3dBlendFac(f gpu.BlendFac) uint32 {
	switch f {
	case gpu.BZero:
		return 1
	case gpu.BOne:
		return 2
	case gpu.BSrcColor:
		return 3
	case gpu.BInvSrcColor:
		return 4
	case gpu.BSrcAlpha:
		return 5
	case gpu.BInvSrcAlpha:
		return 6
	case gpu.BDstAlpha:
		return 7
	case gpu.BInvDstAlpha:
		return 8
	case gpu.BDstColor:
		return 9
	case gpu.BInvDstColor:
		return 10
	case gpu.BSrcAlphaSaturated:
		return 11
	case gpu.BBlendColor:
		return 14
	case gpu.BInvBlendColor:
		return 15
	}
	return 1
}

func d3dStencilOp(op gpu.StencilOp) uint32 { return uint32(op) + 1 }

func d3dStencilOpDesc(st *gpu.StencilT) depthStencilOpDesc {
	return depthStencilOpDesc{
		fail:      d3dStencilOp(st.DSFail[0]),
		depthFail: d3dStencilOp(st.DSFail[1]),
		pass:      d3dStencilOp(st.Pass),
		fn:        d3dCmp(st.Cmp),
	}
}

var semanticTexcoord = [9]byte{'T', 'E', 'X', 'C', 'O', 'O', 'R', 'D', 0}

func (d *comDevice) newGraphPipeline(state *gpu.GraphState, rs nativeRootSignature) (nativePipeline, error) {
	vert := state.Vert.(*shader)
	frag := state.Frag.(*shader)
	pd := graphicsPipelineStateDesc{
		rootSignature: uintptr(rs.(comRootSignature)),
		vs:            shaderBytecode{data: uintptr(unsafe.Pointer(&vert.code[0])), size: uintptr(len(vert.code))},
		ps:            shaderBytecode{data: uintptr(unsafe.Pointer(&frag.code[0])), size: uintptr(len(frag.code))},
		sampleMask:    0xffffffff,
		sample:        sampleDesc{count: uint32(max(state.Samples, 1))},
	}
	for i := range state.ColorFmt {
		pd.rtvFormats[i] = dxgiFormat(state.ColorFmt[i])
		pd.numTargets++
		tb := &pd.blend.targets[i]
		if i < len(state.Blend) {
			b := &state.Blend[i]
			tb.writeMask = uint8(b.WriteMask)
			if b.Blend {
				tb.blendEnable = 1
				tb.blendOp = uint32(b.Op[0]) + 1
				tb.blendOpAlpha = uint32(b.Op[1]) + 1
				tb.srcBlend = d3dBlendFac(b.SrcFac[0])
				tb.srcBlendAlpha = d3dBlendFac(b.SrcFac[1])
				tb.dstBlend = d3dBlendFac(b.DstFac[0])
				tb.dstBlendAlpha = d3dBlendFac(b.DstFac[1])
			}
		} else {
			tb.writeMask = uint8(gpu.CAll)
		}
	}
	pd.blend.independentBlend = 1
	pd.raster = rasterizerDesc{
		fillMode:  3, // SOLID
		cullMode:  1, // NONE
		depthClip: 1,
	}
	if state.Raster.Fill == gpu.FLines {
		pd.raster.fillMode = 2 // WIREFRAME
	}
	switch state.Raster.Cull {
	case gpu.CFront:
		pd.raster.cullMode = 2
	case gpu.CBack:
		pd.raster.cullMode = 3
	}
	if !state.Raster.Clockwise {
		pd.raster.frontCCW = 1
	}
	if state.Raster.DepthBias {
		pd.raster.depthBias = int32(state.Raster.BiasValue)
		pd.raster.slopeScaledBias = state.Raster.BiasSlope
		pd.raster.depthBiasClamp = state.Raster.BiasClamp
	}
	if state.DSFmt != gpu.FInvalid {
		pd.dsvFormat = dxgiFormat(state.DSFmt)
		ds := &pd.depthStencil
		if state.DS.DepthTest {
			ds.depthEnable = 1
			ds.depthFn = d3dCmp(state.DS.DepthCmp)
		}
		if state.DS.DepthWrite {
			ds.depthWrite = 1 // WRITE_MASK_ALL
		}
		if state.DS.StencilTest {
			ds.stencilEnable = 1
			ds.readMask = uint8(state.DS.Front.ReadMask)
			ds.writeMask = uint8(state.DS.Front.WriteMask)
			ds.front = d3dStencilOpDesc(&state.DS.Front)
			ds.back = d3dStencilOpDesc(&state.DS.Back)
		}
	}
	var elems []inputElementDesc
	for i := range state.Input {
		in := &state.Input[i]
		e := inputElementDesc{
			semanticName:  &semanticTexcoord[0],
			semanticIndex: uint32(in.Nr),
			format:        vertexFormat(in.Format),
			slot:          uint32(in.Nr),
		}
		if in.Instance {
			e.slotClass = 1 // PER_INSTANCE_DATA
			e.stepRate = 1
		}
		elems = append(elems, e)
	}
	if len(elems) > 0 {
		pd.inputLayout = inputLayoutDesc{
			elements: uintptr(unsafe.Pointer(&elems[0])),
			count:    uint32(len(elems)),
		}
	}
	switch state.Topology {
	case gpu.TPoint:
		pd.topologyType = 1
	case gpu.TLine, gpu.TLnStrip:
		pd.topologyType = 2
	default:
		pd.topologyType = 3 // TRIANGLE
	}
	var ps uintptr
	r := call(d.dev, 10, uintptr(unsafe.Pointer(&pd)), uintptr(unsafe.Pointer(&iidPipelineState)), uintptr(unsafe.Pointer(&ps)))
	if err := hres(r, "CreateGraphicsPipelineState"); err != nil {
		return nil, err
	}
	return comPipeline(ps), nil
}

func (d *comDevice) newCompPipeline(state *gpu.CompState, rs nativeRootSignature) (nativePipeline, error) {
	pd := computePipelineStateDesc{
		rootSignature: uintptr(rs.(comRootSignature)),
		cs:            shaderBytecode{data: uintptr(unsafe.Pointer(&state.Code[0])), size: uintptr(len(state.Code))},
	}
	var ps uintptr
	r := call(d.dev, 11, uintptr(unsafe.Pointer(&pd)), uintptr(unsafe.Pointer(&iidPipelineState)), uintptr(unsafe.Pointer(&ps)))
	if err := hres(r, "CreateComputePipelineState"); err != nil {
		return nil, err
	}
	return comPipeline(ps), nil
}

// commandSignature returns a cached command signature for
// indirect arguments of the given type and stride.
func (d *comDevice) commandSignature(argType, stride int) (uintptr, error) {
	key := [2]int{argType, stride}
	d.sigMu.Lock()
	defer d.sigMu.Unlock()
	if s, ok := d.sigs[key]; ok {
		return s, nil
	}
	arg := indirectArgumentDesc{typ: uint32(argType)}
	sd := commandSignatureDesc{
		byteStride: uint32(stride),
		numArgs:    1,
		args:       uintptr(unsafe.Pointer(&arg)),
	}
	var sig uintptr
	r := call(d.dev, 40, uintptr(unsafe.Pointer(&sd)), 0, uintptr(unsafe.Pointer(&iidCommandSignature)), uintptr(unsafe.Pointer(&sig)))
	if err := hres(r, "CreateCommandSignature"); err != nil {
		return 0, err
	}
	d.sigs[key] = sig
	return sig, nil
}

// comFence implements nativeFence.
type comFence struct {
	fence uintptr
}

func (f *comFence) completed() uint64 { return uint64(call(f.fence, 8)) }
func (f *comFence) free()             { release(f.fence) }

func (d *comDevice) newFence() (nativeFence, error) {
	var fence uintptr
	r := call(d.dev, 36, 0, 0, uintptr(unsafe.Pointer(&iidFence)), uintptr(unsafe.Pointer(&fence)))
	if err := hres(r, "CreateFence"); err != nil {
		return nil, err
	}
	return &comFence{fence: fence}, nil
}

func (d *comDevice) signal(f nativeFence, value uint64) {
	call(d.queue, 14, f.(*comFence).fence, uintptr(value))
}

func (d *comDevice) waitFences(fences []nativeFence, values []uint64, all bool) error {
	if all {
		for i, f := range fences {
			cf := f.(*comFence)
			if cf.completed() >= values[i] {
				continue
			}
			if err := hres(call(cf.fence, 9, uintptr(values[i]), uintptr(d.event)), "SetEventOnCompletion"); err != nil {
				return err
			}
			windows.WaitForSingleObject(d.event, windows.INFINITE)
		}
		return d.removed()
	}
	for {
		for i, f := range fences {
			if f.(*comFence).completed() >= values[i] {
				return d.removed()
			}
		}
		// Arm every fence on the shared event and wait for
		// the first.
		for i, f := range fences {
			if err := hres(call(f.(*comFence).fence, 9, uintptr(values[i]), uintptr(d.event)), "SetEventOnCompletion"); err != nil {
				return err
			}
		}
		windows.WaitForSingleObject(d.event, windows.INFINITE)
	}
}

func (d *comDevice) execute(lists []nativeList) {
	if len(lists) == 0 {
		return
	}
	ptrs := make([]uintptr, len(lists))
	for i, l := range lists {
		ptrs[i] = l.(*comList).list
	}
	call(d.queue, 10, uintptr(len(ptrs)), uintptr(unsafe.Pointer(&ptrs[0])))
}

func (d *comDevice) supportsFormat(pf gpu.PixelFmt, typ gpu.TexType, usage gpu.Usage) bool {
	fs := formatSupport{format: dxgiFormat(pf)}
	if fs.format == 0 {
		return false
	}
	if int32(call(d.dev, 13, 2, uintptr(unsafe.Pointer(&fs)), uintptr(unsafe.Sizeof(fs)))) < 0 {
		return false
	}
	var need uint32
	switch typ {
	case gpu.T3D:
		need |= 0x40 // TEXTURE3D
	case gpu.TCube:
		need |= 0x80 // TEXTURECUBE
	default:
		need |= 0x20 // TEXTURE2D
	}
	if usage&gpu.UShaderSample != 0 {
		need |= 0x100 // SHADER_SAMPLE
	}
	if usage&gpu.URenderTarget != 0 {
		need |= 0x4000 // RENDER_TARGET
	}
	if usage&gpu.UDSTarget != 0 {
		need |= 0x10000 // DEPTH_STENCIL
	}
	if fs.support1&need != need {
		return false
	}
	if usage&gpu.UShaderWrite != 0 && fs.support2&0xc0 == 0 { // UAV typed load/store
		return false
	}
	return true
}

func (d *comDevice) bestSampleCount(pf gpu.PixelFmt) int {
	for _, n := range [...]int{16, 8, 4, 2} {
		q := multisampleQualityLevels{format: dxgiFormat(pf), sampleCount: uint32(n)}
		if int32(call(d.dev, 13, 1, uintptr(unsafe.Pointer(&q)), uintptr(unsafe.Sizeof(q)))) >= 0 && q.qualityLevels > 0 {
			return n
		}
	}
	return 1
}

// comSwapchain implements nativeSwapchain.
type comSwapchain struct {
	sc     uintptr
	count  int
	format uint32
	flags  uint32
	vsync  bool
}

func (s *comSwapchain) buffer(i int) nativeTexture {
	var res uintptr
	call(s.sc, 9, uintptr(i), uintptr(unsafe.Pointer(&iidResource)), uintptr(unsafe.Pointer(&res)))
	return &comTexture{res: res}
}

func (s *comSwapchain) index() int { return int(call(s.sc, 36)) }

func (s *comSwapchain) present() error {
	var sync, flags uintptr
	if s.vsync {
		sync = 1
	}
	return hres(call(s.sc, 8, sync, flags), "Present")
}

func (s *comSwapchain) resize(width, height int) error {
	r := call(s.sc, 13, uintptr(s.count), uintptr(width), uintptr(height), uintptr(s.format), uintptr(s.flags))
	return hres(r, "ResizeBuffers")
}

func (s *comSwapchain) free() { release(s.sc) }

func (d *comDevice) newSwapchain(w wsi.Window, count int, pf gpu.PixelFmt, mode gpu.PresentMode) (nativeSwapchain, error) {
	hwnd := w.Handle()
	if hwnd == 0 {
		return nil, gpu.ErrCannotPresent
	}
	sd := swapChainDesc1{
		width:       uint32(w.Width()),
		height:      uint32(w.Height()),
		format:      dxgiFormat(pf),
		sample:      sampleDesc{count: 1},
		bufferUsage: 0x20, // RENDER_TARGET_OUTPUT
		bufferCount: uint32(count),
		swapEffect:  4, // FLIP_DISCARD
	}
	var sc1 uintptr
	r := call(d.factory, 15, d.queue, hwnd, uintptr(unsafe.Pointer(&sd)), 0, 0, uintptr(unsafe.Pointer(&sc1)))
	if err := hres(r, "CreateSwapChainForHwnd"); err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrSwapchain, err)
	}
	var sc3 uintptr
	r = call(sc1, 0, uintptr(unsafe.Pointer(&iidSwapChain3)), uintptr(unsafe.Pointer(&sc3)))
	release(sc1)
	if err := hres(r, "QueryInterface"); err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrSwapchain, err)
	}
	return &comSwapchain{
		sc:     sc3,
		count:  count,
		format: sd.format,
		vsync:  mode == gpu.PVsync,
	}, nil
}

// comList implements nativeList over a graphics command
// list and its allocator.
type comList struct {
	d     *comDevice
	alloc uintptr
	list  uintptr
}

func (d *comDevice) newList() (nativeList, error) {
	var alloc uintptr
	r := call(d.dev, 9, 0, uintptr(unsafe.Pointer(&iidCommandAllocator)), uintptr(unsafe.Pointer(&alloc)))
	if err := hres(r, "CreateCommandAllocator"); err != nil {
		return nil, err
	}
	var list uintptr
	r = call(d.dev, 12, 0, 0, alloc, 0, uintptr(unsafe.Pointer(&iidGraphicsList)), uintptr(unsafe.Pointer(&list)))
	if err := hres(r, "CreateCommandList"); err != nil {
		release(alloc)
		return nil, err
	}
	return &comList{d: d, alloc: alloc, list: list}, nil
}

func (l *comList) reset() error {
	if err := hres(call(l.alloc, 8), "ID3D12CommandAllocator::Reset"); err != nil {
		return err
	}
	return hres(call(l.list, 10, l.alloc, 0), "ID3D12GraphicsCommandList::Reset")
}

func (l *comList) close() error { return hres(call(l.list, 9), "Close") }

func (l *comList) free() {
	release(l.list)
	release(l.alloc)
}

func (l *comList) transition(ts []transitionDesc) {
	barriers := make([]resourceBarrier, len(ts))
	for i := range ts {
		t := &ts[i]
		var res uintptr
		if t.buffer != nil {
			res = t.buffer.(*comBuffer).res
		} else {
			res = t.texture.(*comTexture).res
		}
		sub := uint32(0xffffffff) // ALL_SUBRESOURCES
		if t.sub != transitionAllSubs {
			sub = uint32(t.sub)
		}
		barriers[i] = resourceBarrier{
			resource: res,
			sub:      sub,
			before:   uint32(t.before),
			after:    uint32(t.after),
		}
	}
	call(l.list, 26, uintptr(len(barriers)), uintptr(unsafe.Pointer(&barriers[0])))
}

func (l *comList) clearRTV(h cpuHandle, color [4]float32) {
	call(l.list, 48, uintptr(h), uintptr(unsafe.Pointer(&color[0])), 0, 0)
}

func (l *comList) clearDSV(h cpuHandle, depth float32, stencil uint32, hasStencil bool) {
	flags := uintptr(0x1) // CLEAR_FLAG_DEPTH
	if hasStencil {
		flags |= 0x2 // CLEAR_FLAG_STENCIL
	}
	call(l.list, 47, uintptr(h), flags, uintptr(math.Float32bits(depth)), uintptr(stencil&0xff), 0, 0)
}

func (l *comList) setRenderTargets(rtvs []cpuHandle, dsv *cpuHandle) {
	var p, pd uintptr
	if len(rtvs) > 0 {
		p = uintptr(unsafe.Pointer(&rtvs[0]))
	}
	if dsv != nil {
		pd = uintptr(unsafe.Pointer(dsv))
	}
	call(l.list, 46, uintptr(len(rtvs)), p, 0, pd)
}

func (l *comList) setViewport(vp gpu.Viewport) {
	v := d3dViewport{x: vp.X, y: vp.Y, w: vp.Width, h: vp.Height, zmin: vp.Znear, zmax: vp.Zfar}
	call(l.list, 21, 1, uintptr(unsafe.Pointer(&v)))
}

func (l *comList) setScissor(sc gpu.Scissor) {
	r := d3dRect{
		left:   int32(sc.X),
		top:    int32(sc.Y),
		right:  int32(sc.X + sc.Width),
		bottom: int32(sc.Y + sc.Height),
	}
	call(l.list, 22, 1, uintptr(unsafe.Pointer(&r)))
}

func (l *comList) setBlendColor(color [4]float32) {
	call(l.list, 23, uintptr(unsafe.Pointer(&color[0])))
}

func (l *comList) setStencilRef(ref uint32) { call(l.list, 24, uintptr(ref)) }

func (l *comList) setDescHeaps(view, sampler nativeDescHeap) {
	heaps := [2]uintptr{view.(*comDescHeap).heap, sampler.(*comDescHeap).heap}
	call(l.list, 28, 2, uintptr(unsafe.Pointer(&heaps[0])))
}

func (l *comList) setGraphicsRootSignature(rs nativeRootSignature) {
	call(l.list, 30, uintptr(rs.(comRootSignature)))
}

func (l *comList) setComputeRootSignature(rs nativeRootSignature) {
	call(l.list, 29, uintptr(rs.(comRootSignature)))
}

func (l *comList) setPipeline(p nativePipeline) { call(l.list, 25, uintptr(p.(comPipeline))) }

func (l *comList) setTopology(t gpu.Topology) {
	var top uintptr
	switch t {
	case gpu.TPoint:
		top = 1
	case gpu.TLine:
		top = 2
	case gpu.TLnStrip:
		top = 3
	case gpu.TTriangle:
		top = 4
	case gpu.TTriStrip:
		top = 5
	}
	call(l.list, 20, top)
}

func (l *comList) setVertexBuffers(start int, views []vertexBufferView) {
	abi := make([]vertexBufferViewABI, len(views))
	for i := range views {
		abi[i] = vertexBufferViewABI{
			addr:   views[i].addr,
			size:   uint32(views[i].size),
			stride: uint32(views[i].stride),
		}
	}
	call(l.list, 44, uintptr(start), uintptr(len(abi)), uintptr(unsafe.Pointer(&abi[0])))
}

func (l *comList) setIndexBuffer(view indexBufferView) {
	f := uint32(42) // DXGI_FORMAT_R32_UINT
	if view.fmt == gpu.Index16 {
		f = 57 // DXGI_FORMAT_R16_UINT
	}
	abi := indexBufferViewABI{addr: view.addr, size: uint32(view.size), fmt: f}
	call(l.list, 43, uintptr(unsafe.Pointer(&abi)))
}

func (l *comList) setGraphicsRootTable(param int, base gpuHandle) {
	call(l.list, 32, uintptr(param), uintptr(base))
}

func (l *comList) setComputeRootTable(param int, base gpuHandle) {
	call(l.list, 31, uintptr(param), uintptr(base))
}

func (l *comList) setGraphicsRootCBV(param int, addr uint64) {
	call(l.list, 38, uintptr(param), uintptr(addr))
}

func (l *comList) setComputeRootCBV(param int, addr uint64) {
	call(l.list, 37, uintptr(param), uintptr(addr))
}

func (l *comList) draw(vertexCount, instanceCount, baseVertex, baseInstance int) {
	call(l.list, 12, uintptr(vertexCount), uintptr(instanceCount), uintptr(baseVertex), uintptr(baseInstance))
}

func (l *comList) drawIndexed(indexCount, instanceCount, baseIndex, vertexOff, baseInstance int) {
	call(l.list, 13, uintptr(indexCount), uintptr(instanceCount), uintptr(baseIndex), uintptr(vertexOff), uintptr(baseInstance))
}

func (l *comList) drawIndirect(indexed bool, b nativeBuffer, off int64, drawCount, stride int) {
	argType := 0 // DRAW
	if indexed {
		argType = 1 // DRAW_INDEXED
	}
	sig, err := l.d.commandSignature(argType, stride)
	if err != nil {
		return
	}
	call(l.list, 59, sig, uintptr(drawCount), b.(*comBuffer).res, uintptr(off), 0, 0)
}

func (l *comList) dispatch(x, y, z int) {
	call(l.list, 14, uintptr(x), uintptr(y), uintptr(z))
}

func (l *comList) dispatchIndirect(b nativeBuffer, off int64) {
	sig, err := l.d.commandSignature(2, 12) // DISPATCH
	if err != nil {
		return
	}
	call(l.list, 59, sig, 1, b.(*comBuffer).res, uintptr(off), 0, 0)
}

func (l *comList) copyBufferRegion(dst nativeBuffer, dstOff int64, src nativeBuffer, srcOff, size int64) {
	call(l.list, 15, dst.(*comBuffer).res, uintptr(dstOff), src.(*comBuffer).res, uintptr(srcOff), uintptr(size))
}

func texCopyPlaced(res uintptr, off int64, pf gpu.PixelFmt, dim gpu.Dim3D, rowPitch, rows int) textureCopyLocation {
	return textureCopyLocation{
		resource: res,
		typ:      1, // PLACED_FOOTPRINT
		off:      uint64(off),
		format:   dxgiFormat(pf),
		width:    uint32(dim.Width),
		height:   uint32(max(rows, dim.Height)),
		depth:    uint32(max(dim.Depth, 1)),
		rowPitch: uint32(rowPitch),
	}
}

func texCopySub(res uintptr, sub int) textureCopyLocation {
	return textureCopyLocation{
		resource: res,
		typ:      0, // SUBRESOURCE_INDEX
		off:      uint64(uint32(sub)),
	}
}

func (l *comList) copyBufferToTexture(src nativeBuffer, srcOff int64, rowPitch, rows int, pf gpu.PixelFmt, dim gpu.Dim3D, dst nativeTexture, sub int, off gpu.Off3D) {
	d := texCopySub(dst.(*comTexture).res, sub)
	s := texCopyPlaced(src.(*comBuffer).res, srcOff, pf, dim, rowPitch, rows)
	call(l.list, 16,
		uintptr(unsafe.Pointer(&d)), uintptr(off.X), uintptr(off.Y), uintptr(off.Z),
		uintptr(unsafe.Pointer(&s)), 0)
}

func (l *comList) copyTextureToBuffer(src nativeTexture, sub int, off gpu.Off3D, dim gpu.Dim3D, pf gpu.PixelFmt, dst nativeBuffer, dstOff int64, rowPitch, rows int) {
	d := texCopyPlaced(dst.(*comBuffer).res, dstOff, pf, dim, rowPitch, rows)
	s := texCopySub(src.(*comTexture).res, sub)
	box := d3dBox{
		left:   uint32(off.X),
		top:    uint32(off.Y),
		front:  uint32(off.Z),
		right:  uint32(off.X + dim.Width),
		bottom: uint32(off.Y + dim.Height),
		back:   uint32(off.Z + max(dim.Depth, 1)),
	}
	call(l.list, 16,
		uintptr(unsafe.Pointer(&d)), 0, 0, 0,
		uintptr(unsafe.Pointer(&s)), uintptr(unsafe.Pointer(&box)))
}

func (l *comList) copyTextureRegion(dst nativeTexture, dstSub int, dstOff gpu.Off3D, src nativeTexture, srcSub int, srcOff gpu.Off3D, dim gpu.Dim3D) {
	d := texCopySub(dst.(*comTexture).res, dstSub)
	s := texCopySub(src.(*comTexture).res, srcSub)
	box := d3dBox{
		left:   uint32(srcOff.X),
		top:    uint32(srcOff.Y),
		front:  uint32(srcOff.Z),
		right:  uint32(srcOff.X + dim.Width),
		bottom: uint32(srcOff.Y + dim.Height),
		back:   uint32(srcOff.Z + max(dim.Depth, 1)),
	}
	call(l.list, 16,
		uintptr(unsafe.Pointer(&d)), uintptr(dstOff.X), uintptr(dstOff.Y), uintptr(dstOff.Z),
		uintptr(unsafe.Pointer(&s)), uintptr(unsafe.Pointer(&box)))
}

func (l *comList) beginEvent(name string) {
	if p, err := windows.UTF16FromString(name); err == nil {
		call(l.list, 57, 1, uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)*2))
	}
}

func (l *comList) endEvent() { call(l.list, 58) }

func (l *comList) marker(name string) {
	if p, err := windows.UTF16FromString(name); err == nil {
		call(l.list, 56, 1, uintptr(unsafe.Pointer(&p[0])), uintptr(len(p)*2))
	}
}
