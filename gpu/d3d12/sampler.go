// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"sync/atomic"

	"github.com/gviegas/ember/gpu"
)

// sampler implements gpu.Sampler. The native sampler
// object is a descriptor in the staging sampler heap,
// copied into the shader-visible heap at draw/dispatch.
type sampler struct {
	index int
	spln  gpu.Sampling
	refs  atomic.Int32
}

func (s *sampler) Sampling() gpu.Sampling { return s.spln }

// NewSampler creates a new sampler.
func (r *renderer) NewSampler(spln *gpu.Sampling) (gpu.Sampler, error) {
	i, err := r.staging[descSampler].alloc()
	if err != nil {
		return nil, err
	}
	r.nat.sampler(spln, r.staging[descSampler].at(i))
	return &sampler{index: i, spln: *spln}, nil
}

// ReleaseSampler defers destruction of the sampler.
func (r *renderer) ReleaseSampler(s gpu.Sampler) {
	r.enqueueDispose(disposeEntry{samplers: []*sampler{s.(*sampler)}})
}
