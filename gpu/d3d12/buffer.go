// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"sync/atomic"

	"github.com/gviegas/ember/gpu"
)

// buffer is one physical allocation backing a buffer
// container.
// refs counts pending command buffers that recorded a use
// of this allocation; the deferred destruction queue only
// frees allocations whose count reached zero.
type buffer struct {
	res   nativeBuffer
	size  int64
	usage gpu.Usage
	// Default usage state, derived from usage flags.
	// The allocation rests in this state between passes.
	state resState
	// Staging view-heap slots, -1 when absent.
	srv int
	uav int
	// Committed resources start in the common state; the
	// first transition departs from there instead of the
	// default state.
	transitioned bool
	refs         atomic.Int32
}

// defaultBufferState derives the resting state of a buffer
// from its usage flags. The order of the checks matters:
// the narrowest capability wins.
func defaultBufferState(usage gpu.Usage) resState {
	switch {
	case usage&gpu.UVertexData != 0:
		return resStateVertexConstBuf
	case usage&gpu.UIndexData != 0:
		return resStateIndexBuf
	case usage&gpu.UIndirect != 0:
		return resStateIndirectArg
	case usage&gpu.UShaderRead != 0:
		return resStateAllShaderResource
	case usage&gpu.UShaderWrite != 0:
		return resStateUnorderedAccess
	}
	return resStateCommon
}

// newBuffer creates one physical buffer allocation and its
// staging views.
func (r *renderer) newBuffer(size int64, usage gpu.Usage) (*buffer, error) {
	uav := usage&gpu.UShaderWrite != 0
	res, err := r.nat.newBuffer(size, heapDefault, resStateCommon, uav)
	if err != nil {
		return nil, err
	}
	b := &buffer{
		res:   res,
		size:  size,
		usage: usage,
		state: defaultBufferState(usage),
		srv:   -1,
		uav:   -1,
	}
	views := r.staging[descView]
	if usage&gpu.UShaderRead != 0 {
		if b.srv, err = views.alloc(); err != nil {
			b.free(r)
			return nil, err
		}
		r.nat.bufferSRV(res, size, views.at(b.srv))
	}
	if uav {
		if b.uav, err = views.alloc(); err != nil {
			b.free(r)
			return nil, err
		}
		r.nat.bufferUAV(res, size, views.at(b.uav))
	}
	return b, nil
}

// free releases the staging slots and the native resource.
func (b *buffer) free(r *renderer) {
	r.staging[descView].release(b.srv)
	r.staging[descView].release(b.uav)
	b.srv, b.uav = -1, -1
	b.res.free()
}

// bufferContainer implements gpu.Buffer. It is the logical
// handle: a list of physical allocations with one active.
// Containers are written by one recording goroutine at a
// time; concurrent writers are a usage error.
type bufferContainer struct {
	r      *renderer
	active *buffer
	bufs   []*buffer
	size   int64
	usage  gpu.Usage
	label  string
}

func (c *bufferContainer) Size() int64      { return c.size }
func (c *bufferContainer) Usage() gpu.Usage { return c.usage }
func (c *bufferContainer) Label() string    { return c.label }

func (c *bufferContainer) SetLabel(label string) {
	c.label = label
	if c.active != nil {
		c.active.res.setName(label)
	}
}

// cycle makes an idle allocation active, reusing the first
// one whose reference count is zero and allocating a new
// one when none is idle.
func (c *bufferContainer) cycle() error {
	for _, b := range c.bufs {
		if b.refs.Load() == 0 {
			c.active = b
			return nil
		}
	}
	b, err := c.r.newBuffer(c.size, c.usage)
	if err != nil {
		return err
	}
	if c.label != "" {
		b.res.setName(c.label)
	}
	c.bufs = append(c.bufs, b)
	c.active = b
	return nil
}

// NewBuffer creates a new buffer.
func (r *renderer) NewBuffer(size int64, usage gpu.Usage) (gpu.Buffer, error) {
	b, err := r.newBuffer(size, usage)
	if err != nil {
		return nil, err
	}
	return &bufferContainer{
		r:      r,
		active: b,
		bufs:   []*buffer{b},
		size:   size,
		usage:  usage,
	}, nil
}

// ReleaseBuffer defers destruction of every allocation of
// the container.
func (r *renderer) ReleaseBuffer(b gpu.Buffer) {
	c := b.(*bufferContainer)
	r.enqueueDispose(disposeEntry{bufs: c.bufs})
	c.active = nil
	c.bufs = nil
}
