// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"sync/atomic"

	"github.com/gviegas/ember/gpu"
)

// transferBuffer is one physical host-visible allocation
// backing a transfer buffer container. Upload buffers live
// on the upload heap in the generic read state; download
// buffers live on the readback heap in the copy
// destination state. Both are persistently mapped.
type transferBuffer struct {
	res      nativeBuffer
	size     int64
	download bool
	refs     atomic.Int32
}

func (r *renderer) newTransferBuffer(size int64, download bool) (*transferBuffer, error) {
	heap := heapUpload
	state := resStateGenericRead
	if download {
		heap = heapReadback
		state = resStateCopyDst
	}
	res, err := r.nat.newBuffer(size, heap, state, false)
	if err != nil {
		return nil, err
	}
	return &transferBuffer{res: res, size: size, download: download}, nil
}

// transferContainer implements gpu.TransferBuffer.
type transferContainer struct {
	r        *renderer
	active   *transferBuffer
	bufs     []*transferBuffer
	size     int64
	download bool
}

func (c *transferContainer) Size() int64    { return c.size }
func (c *transferContainer) Download() bool { return c.download }

// cycle makes an idle allocation active, allocating a new
// one when none is idle.
func (c *transferContainer) cycle() error {
	for _, b := range c.bufs {
		if b.refs.Load() == 0 {
			c.active = b
			return nil
		}
	}
	b, err := c.r.newTransferBuffer(c.size, c.download)
	if err != nil {
		return err
	}
	c.bufs = append(c.bufs, b)
	c.active = b
	return nil
}

// NewTransferBuffer creates a new transfer buffer.
func (r *renderer) NewTransferBuffer(size int64, download bool) (gpu.TransferBuffer, error) {
	b, err := r.newTransferBuffer(size, download)
	if err != nil {
		return nil, err
	}
	return &transferContainer{
		r:        r,
		active:   b,
		bufs:     []*transferBuffer{b},
		size:     size,
		download: download,
	}, nil
}

// MapTransferBuffer returns the host memory of the active
// allocation. With cycle set, an allocation still
// referenced by pending GPU work is rotated out first, so
// the caller never overwrites data the GPU is reading.
func (r *renderer) MapTransferBuffer(tb gpu.TransferBuffer, cycle bool) ([]byte, error) {
	c := tb.(*transferContainer)
	if cycle && c.active.refs.Load() > 0 {
		if err := c.cycle(); err != nil {
			return nil, err
		}
	}
	return c.active.res.bytes(), nil
}

// UnmapTransferBuffer is a no-op on this backend; transfer
// memory stays persistently mapped.
func (r *renderer) UnmapTransferBuffer(tb gpu.TransferBuffer) {}

// ReleaseTransferBuffer defers destruction of every
// allocation of the container.
func (r *renderer) ReleaseTransferBuffer(tb gpu.TransferBuffer) {
	c := tb.(*transferContainer)
	r.enqueueDispose(disposeEntry{transfers: c.bufs})
	c.active = nil
	c.bufs = nil
}
