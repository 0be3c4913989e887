// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"sync/atomic"

	"github.com/gviegas/ember/gpu"
)

// Register space convention, shared with shader bytecode:
// read-only resources of a stage live in the first space,
// uniform buffers in the second. Fragment spaces follow
// the vertex ones; compute read-write resources take the
// space between read-only and uniforms.
const (
	spaceVertexRO        = 0
	spaceVertexUniform   = 1
	spaceFragmentRO      = 2
	spaceFragmentUniform = 3
	spaceComputeRO       = 0
	spaceComputeRW       = 1
	spaceComputeUniform  = 2
)

// shader implements gpu.Shader. It owns a copy of the
// bytecode and the resource counts that shape the root
// signature.
type shader struct {
	code            []byte
	name            string
	stage           gpu.Stage
	samplers        int
	storageTextures int
	storageBuffers  int
	uniformBuffers  int
}

func (s *shader) Stage() gpu.Stage { return s.stage }

// NewShader creates a new shader from DXIL bytecode.
func (r *renderer) NewShader(desc *gpu.ShaderDesc) (gpu.Shader, error) {
	code := make([]byte, len(desc.Code))
	copy(code, desc.Code)
	return &shader{
		code:            code,
		name:            desc.Name,
		stage:           desc.Stage,
		samplers:        desc.Samplers,
		storageTextures: desc.StorageTextures,
		storageBuffers:  desc.StorageBuffers,
		uniformBuffers:  desc.UniformBuffers,
	}, nil
}

// ReleaseShader releases a shader. Shaders are host-side
// bytecode only; nothing is GPU resident.
func (r *renderer) ReleaseShader(s gpu.Shader) {}

// stageRoot holds the root parameter indices of one
// graphics stage's binding categories. Empty categories
// have index -1.
type stageRoot struct {
	samplerCount    int
	storageTexCount int
	storageBufCount int
	uniformCount    int

	samplerTable    int
	samplerTexTable int
	storageTexTable int
	storageBufTable int
	uniform         [maxUniformBuffersPerStage]int
}

// addStageParams appends the root parameters of one stage
// and records their indices.
func addStageParams(params []rootParam, s *shader, stage gpu.Stage, roSpace, uniformSpace int) ([]rootParam, stageRoot) {
	sr := stageRoot{
		samplerCount:    s.samplers,
		storageTexCount: s.storageTextures,
		storageBufCount: s.storageBuffers,
		uniformCount:    s.uniformBuffers,
		samplerTable:    -1,
		samplerTexTable: -1,
		storageTexTable: -1,
		storageBufTable: -1,
	}
	for i := range sr.uniform {
		sr.uniform[i] = -1
	}
	reg := 0
	if s.samplers > 0 {
		sr.samplerTable = len(params)
		params = append(params, rootParam{kind: rootTableSampler, register: 0, count: s.samplers, space: roSpace, stage: stage})
		sr.samplerTexTable = len(params)
		params = append(params, rootParam{kind: rootTableSRV, register: reg, count: s.samplers, space: roSpace, stage: stage})
		reg += s.samplers
	}
	if s.storageTextures > 0 {
		sr.storageTexTable = len(params)
		params = append(params, rootParam{kind: rootTableSRV, register: reg, count: s.storageTextures, space: roSpace, stage: stage})
		reg += s.storageTextures
	}
	if s.storageBuffers > 0 {
		sr.storageBufTable = len(params)
		params = append(params, rootParam{kind: rootTableSRV, register: reg, count: s.storageBuffers, space: roSpace, stage: stage})
	}
	// Uniform buffers get one root descriptor each; their
	// address changes every draw, so a table would force a
	// descriptor write per draw.
	for i := 0; i < s.uniformBuffers && i < maxUniformBuffersPerStage; i++ {
		sr.uniform[i] = len(params)
		params = append(params, rootParam{kind: rootCBV, register: i, space: uniformSpace, stage: stage})
	}
	return params, sr
}

// graphRoot is the compiled binding layout of a graphics
// pipeline. stage[0] is the vertex stage, stage[1] the
// fragment stage.
type graphRoot struct {
	rs    nativeRootSignature
	stage [2]stageRoot
}

func (r *renderer) buildGraphRoot(vert, frag *shader) (graphRoot, error) {
	var params []rootParam
	var g graphRoot
	params, g.stage[0] = addStageParams(params, vert, gpu.SVertex, spaceVertexRO, spaceVertexUniform)
	params, g.stage[1] = addStageParams(params, frag, gpu.SFragment, spaceFragmentRO, spaceFragmentUniform)
	rs, err := r.nat.newRootSignature(params)
	if err != nil {
		return graphRoot{}, err
	}
	g.rs = rs
	return g, nil
}

// compRoot is the compiled binding layout of a compute
// pipeline.
type compRoot struct {
	stageRoot
	rwTexCount int
	rwBufCount int
	rwTexTable int
	rwBufTable int
	rs         nativeRootSignature
}

func (r *renderer) buildCompRoot(state *gpu.CompState) (compRoot, error) {
	s := shader{
		samplers:        state.Samplers,
		storageTextures: state.StorageTextures,
		storageBuffers:  state.StorageBuffers,
		uniformBuffers:  state.UniformBuffers,
	}
	var params []rootParam
	var c compRoot
	params, c.stageRoot = addStageParams(params, &s, gpu.SCompute, spaceComputeRO, spaceComputeUniform)
	c.rwTexCount = state.RWStorageTextures
	c.rwBufCount = state.RWStorageBuffers
	c.rwTexTable, c.rwBufTable = -1, -1
	reg := 0
	if c.rwTexCount > 0 {
		c.rwTexTable = len(params)
		params = append(params, rootParam{kind: rootTableUAV, register: reg, count: c.rwTexCount, space: spaceComputeRW, stage: gpu.SCompute})
		reg += c.rwTexCount
	}
	if c.rwBufCount > 0 {
		c.rwBufTable = len(params)
		params = append(params, rootParam{kind: rootTableUAV, register: reg, count: c.rwBufCount, space: spaceComputeRW, stage: gpu.SCompute})
	}
	rs, err := r.nat.newRootSignature(params)
	if err != nil {
		return compRoot{}, err
	}
	c.rs = rs
	return c, nil
}

// graphPipeline implements gpu.Pipeline for graphics.
type graphPipeline struct {
	ps       nativePipeline
	root     graphRoot
	topology gpu.Topology
	// Vertex fetch strides by input slot.
	strides [maxVertexBuffers]int
	refs    atomic.Int32
}

func (*graphPipeline) Compute() bool { return false }

// compPipeline implements gpu.Pipeline for compute.
type compPipeline struct {
	ps   nativePipeline
	root compRoot
	refs atomic.Int32
}

func (*compPipeline) Compute() bool { return true }

// NewGraphPipeline creates a new graphics pipeline.
func (r *renderer) NewGraphPipeline(state *gpu.GraphState) (gpu.Pipeline, error) {
	vert := state.Vert.(*shader)
	frag := state.Frag.(*shader)
	root, err := r.buildGraphRoot(vert, frag)
	if err != nil {
		return nil, err
	}
	ps, err := r.nat.newGraphPipeline(state, root.rs)
	if err != nil {
		root.rs.free()
		return nil, err
	}
	p := &graphPipeline{ps: ps, root: root, topology: state.Topology}
	for i := range state.Input {
		if nr := state.Input[i].Nr; nr >= 0 && nr < maxVertexBuffers {
			p.strides[nr] = state.Input[i].Stride
		}
	}
	return p, nil
}

// NewCompPipeline creates a new compute pipeline.
func (r *renderer) NewCompPipeline(state *gpu.CompState) (gpu.Pipeline, error) {
	root, err := r.buildCompRoot(state)
	if err != nil {
		return nil, err
	}
	ps, err := r.nat.newCompPipeline(state, root.rs)
	if err != nil {
		root.rs.free()
		return nil, err
	}
	return &compPipeline{ps: ps, root: root}, nil
}

// ReleasePipeline defers destruction of a pipeline.
func (r *renderer) ReleasePipeline(p gpu.Pipeline) {
	switch p := p.(type) {
	case *graphPipeline:
		r.enqueueDispose(disposeEntry{graphPipelines: []*graphPipeline{p}})
	case *compPipeline:
		r.enqueueDispose(disposeEntry{compPipelines: []*compPipeline{p}})
	}
}
