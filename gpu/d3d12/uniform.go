// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

// uniformBuffer is a fixed-size ring of transient constant
// data. Pushes advance writeOffset in 256-byte blocks;
// drawOffset marks the block the next draw/dispatch binds
// (by raw GPU address, no descriptor indirection).
//
// A ring acquired by a command buffer returns to the
// device pool only after that command buffer is cleaned,
// which guarantees the GPU finished reading every offset.
type uniformBuffer struct {
	buf         nativeBuffer
	writeOffset int
	drawOffset  int
}

// acquireUniformBuffer obtains a ring from the pool,
// creating one on demand.
func (r *renderer) acquireUniformBuffer() (*uniformBuffer, error) {
	r.uniformMu.Lock()
	if n := len(r.uniformPool); n > 0 {
		ub := r.uniformPool[n-1]
		r.uniformPool = r.uniformPool[:n-1]
		r.uniformMu.Unlock()
		return ub, nil
	}
	r.uniformMu.Unlock()
	buf, err := r.nat.newBuffer(uniformBufferSize, heapUpload, resStateGenericRead, false)
	if err != nil {
		return nil, err
	}
	return &uniformBuffer{buf: buf}, nil
}

// returnUniformBuffer resets a ring and returns it to the
// pool. Only called during command buffer clean.
func (r *renderer) returnUniformBuffer(ub *uniformBuffer) {
	ub.writeOffset = 0
	ub.drawOffset = 0
	r.uniformMu.Lock()
	r.uniformPool = append(r.uniformPool, ub)
	r.uniformMu.Unlock()
}

// push copies data into the ring at the write cursor.
// It reports whether the ring had room; on false the
// caller must swap in a replacement ring first.
func (ub *uniformBuffer) push(data []byte) bool {
	n := int(align(len(data), uniformBlockAlign))
	if ub.writeOffset+n > uniformBufferSize {
		return false
	}
	copy(ub.buf.bytes()[ub.writeOffset:], data)
	ub.drawOffset = ub.writeOffset
	ub.writeOffset += n
	return true
}

// bindAddress returns the GPU virtual address of the block
// the next draw/dispatch reads.
func (ub *uniformBuffer) bindAddress() uint64 {
	return ub.buf.gpuAddress() + uint64(ub.drawOffset)
}
