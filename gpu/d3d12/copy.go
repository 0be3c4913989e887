// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"github.com/gviegas/ember/gpu"
)

// Buffer-to-texture copies require the row pitch to be a
// multiple of rowPitchAlign and the placement offset a
// multiple of placementAlign. Transfers that violate either
// go through an intermediate buffer: uploads copy row by
// row into it at the aligned pitch before the texture copy,
// downloads land in it at the aligned pitch and are
// repacked into the transfer buffer when the command buffer
// is cleaned.

// downloadRepack is one pending tightly-packed download.
type downloadRepack struct {
	tmp          nativeBuffer
	dst          *transferBuffer
	dstOff       int64
	rowPitch     int
	alignedPitch int
	rows         int
	depth        int
}

// repack copies the aligned rows into the transfer buffer.
// Only called after the download's fence signaled.
func (d *downloadRepack) repack() {
	src := d.tmp.bytes()
	dst := d.dst.res.bytes()
	for z := 0; z < d.depth; z++ {
		for row := 0; row < d.rows; row++ {
			i := z*d.rows + row
			copy(dst[d.dstOff+int64(i*d.rowPitch):], src[i*d.alignedPitch:][:d.rowPitch])
		}
	}
}

// BeginCopyPass begins a copy pass. Transfer commands
// handle their own state transitions, so there is nothing
// to set up.
func (cb *cmdBuffer) BeginCopyPass() {}

// EndCopyPass ends a copy pass.
func (cb *cmdBuffer) EndCopyPass() {}

// prepareBufferWrite rotates a referenced allocation out
// when the caller asked for cycling.
func (cb *cmdBuffer) prepareBufferWrite(c *bufferContainer, cycle bool) *buffer {
	if cycle && c.active.refs.Load() > 0 {
		if err := c.cycle(); err != nil {
			cb.fail(err)
			return nil
		}
	}
	return c.active
}

// UploadToBuffer copies transfer buffer data into a buffer.
func (cb *cmdBuffer) UploadToBuffer(src *gpu.TransferLocation, dst *gpu.BufferRegion, cycle bool) {
	if cb.err != nil {
		return
	}
	b := cb.prepareBufferWrite(dst.Buffer.(*bufferContainer), cycle)
	if b == nil {
		return
	}
	tb := src.TransferBuffer.(*transferContainer).active
	cb.trackBuffer(b)
	cb.trackTransfer(tb)
	cb.bufferBarrier(b, resStateCopyDst)
	cb.list.copyBufferRegion(b.res, dst.Offset, tb.res, src.Offset, dst.Size)
	cb.bufferBarrierBack(b, resStateCopyDst)
}

// UploadToTexture copies transfer buffer data into a region
// of a texture subresource.
func (cb *cmdBuffer) UploadToTexture(src *gpu.TextureTransferInfo, dst *gpu.TextureRegion, cycle bool) {
	if cb.err != nil {
		return
	}
	c := dst.Texture.(*textureContainer)
	if cycle && c.canBeCycled && c.active.referenced() {
		if err := c.cycle(); err != nil {
			cb.fail(err)
			return
		}
	}
	t := c.active
	s := t.sub(dst.Layer, dst.Level)
	tb := src.TransferBuffer.(*transferContainer).active
	cb.trackTexture(t)
	cb.trackSub(s)
	cb.trackTransfer(tb)
	px := t.fmt.Size()
	rowPitch := src.PixelsPerRow * px
	if rowPitch == 0 {
		rowPitch = dst.Dim.Width * px
	}
	rows := src.RowsPerLayer
	if rows == 0 {
		rows = dst.Dim.Height
	}
	depth := max(dst.Dim.Depth, 1)
	cb.textureBarrier(t, s.index, resStateCopyDst)
	alignedPitch := align(rowPitch, rowPitchAlign)
	if rowPitch == alignedPitch && src.Offset%placementAlign == 0 {
		cb.list.copyBufferToTexture(tb.res, src.Offset, rowPitch, rows, t.fmt, dst.Dim, t.res, s.index, dst.Off)
	} else {
		tmp, err := cb.r.nat.newBuffer(int64(alignedPitch*rows*depth), heapUpload, resStateGenericRead, false)
		if err != nil {
			cb.fail(err)
			return
		}
		cb.temps = append(cb.temps, tmp)
		for z := 0; z < depth; z++ {
			for row := 0; row < rows; row++ {
				i := z*rows + row
				cb.list.copyBufferRegion(tmp, int64(i*alignedPitch), tb.res, src.Offset+int64(i*rowPitch), int64(rowPitch))
			}
		}
		cb.list.copyBufferToTexture(tmp, 0, alignedPitch, rows, t.fmt, dst.Dim, t.res, s.index, dst.Off)
	}
	cb.textureBarrierBack(t, s.index, resStateCopyDst)
}

// CopyBufferToBuffer copies data between buffers.
func (cb *cmdBuffer) CopyBufferToBuffer(src, dst *gpu.BufferLocation, size int64, cycle bool) {
	if cb.err != nil {
		return
	}
	db := cb.prepareBufferWrite(dst.Buffer.(*bufferContainer), cycle)
	if db == nil {
		return
	}
	sb := src.Buffer.(*bufferContainer).active
	cb.trackBuffer(sb)
	cb.trackBuffer(db)
	cb.bufferBarrier(sb, resStateCopySrc)
	cb.bufferBarrier(db, resStateCopyDst)
	cb.list.copyBufferRegion(db.res, dst.Offset, sb.res, src.Offset, size)
	cb.bufferBarrierBack(sb, resStateCopySrc)
	cb.bufferBarrierBack(db, resStateCopyDst)
}

// CopyTextureToTexture copies a region between texture
// subresources.
func (cb *cmdBuffer) CopyTextureToTexture(src, dst *gpu.TextureLocation, dim gpu.Dim3D, cycle bool) {
	if cb.err != nil {
		return
	}
	dc := dst.Texture.(*textureContainer)
	if cycle && dc.canBeCycled && dc.active.referenced() {
		if err := dc.cycle(); err != nil {
			cb.fail(err)
			return
		}
	}
	st := src.Texture.(*textureContainer).active
	dt := dc.active
	ss := st.sub(src.Layer, src.Level)
	ds := dt.sub(dst.Layer, dst.Level)
	cb.trackTexture(st)
	cb.trackSub(ss)
	cb.trackTexture(dt)
	cb.trackSub(ds)
	cb.textureBarrier(st, ss.index, resStateCopySrc)
	cb.textureBarrier(dt, ds.index, resStateCopyDst)
	cb.list.copyTextureRegion(dt.res, ds.index, dst.Off, st.res, ss.index, src.Off, dim)
	cb.textureBarrierBack(st, ss.index, resStateCopySrc)
	cb.textureBarrierBack(dt, ds.index, resStateCopyDst)
}

// DownloadFromBuffer copies buffer data into a transfer
// buffer for readback.
func (cb *cmdBuffer) DownloadFromBuffer(src *gpu.BufferRegion, dst *gpu.TransferLocation) {
	if cb.err != nil {
		return
	}
	b := src.Buffer.(*bufferContainer).active
	tb := dst.TransferBuffer.(*transferContainer).active
	cb.trackBuffer(b)
	cb.trackTransfer(tb)
	cb.bufferBarrier(b, resStateCopySrc)
	cb.list.copyBufferRegion(tb.res, dst.Offset, b.res, src.Offset, src.Size)
	cb.bufferBarrierBack(b, resStateCopySrc)
}

// DownloadFromTexture copies a region of a texture
// subresource into a transfer buffer for readback.
func (cb *cmdBuffer) DownloadFromTexture(src *gpu.TextureRegion, dst *gpu.TextureTransferInfo) {
	if cb.err != nil {
		return
	}
	t := src.Texture.(*textureContainer).active
	s := t.sub(src.Layer, src.Level)
	tb := dst.TransferBuffer.(*transferContainer).active
	cb.trackTexture(t)
	cb.trackSub(s)
	cb.trackTransfer(tb)
	px := t.fmt.Size()
	rowPitch := dst.PixelsPerRow * px
	if rowPitch == 0 {
		rowPitch = src.Dim.Width * px
	}
	rows := dst.RowsPerLayer
	if rows == 0 {
		rows = src.Dim.Height
	}
	depth := max(src.Dim.Depth, 1)
	cb.textureBarrier(t, s.index, resStateCopySrc)
	alignedPitch := align(rowPitch, rowPitchAlign)
	if rowPitch == alignedPitch && dst.Offset%placementAlign == 0 {
		cb.list.copyTextureToBuffer(t.res, s.index, src.Off, src.Dim, t.fmt, tb.res, dst.Offset, rowPitch, rows)
	} else {
		tmp, err := cb.r.nat.newBuffer(int64(alignedPitch*rows*depth), heapReadback, resStateCopyDst, false)
		if err != nil {
			cb.fail(err)
			return
		}
		cb.temps = append(cb.temps, tmp)
		cb.list.copyTextureToBuffer(t.res, s.index, src.Off, src.Dim, t.fmt, tmp, 0, alignedPitch, rows)
		cb.downloads = append(cb.downloads, downloadRepack{
			tmp:          tmp,
			dst:          tb,
			dstOff:       dst.Offset,
			rowPitch:     rowPitch,
			alignedPitch: alignedPitch,
			rows:         rows,
			depth:        depth,
		})
	}
	cb.textureBarrierBack(t, s.index, resStateCopySrc)
}
