// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"fmt"

	"github.com/gviegas/ember/gpu"
	"github.com/gviegas/ember/wsi"
)

// windowData is the presentation state of a claimed window.
// The containers wrap the swapchain's backbuffers; they
// never cycle, since the backend decides which image a
// frame renders to. inFlight paces acquisition to
// maxFramesInFlight pending presents.
type windowData struct {
	w          wsi.Window
	sc         nativeSwapchain
	containers [swapchainBufs]*textureContainer
	inFlight   [maxFramesInFlight]*fence
	frame      int

	fmt  gpu.PixelFmt
	mode gpu.PresentMode
	comp gpu.Composition

	width  int
	height int
}

// presentOp is one pending present of a command buffer.
type presentOp struct {
	wd  *windowData
	tex *texture
}

// wrapSwapchainTexture builds a texture over a backbuffer.
// The resource is created (and freed) by the swapchain
// machinery rather than by newTexture.
func (r *renderer) wrapSwapchainTexture(res nativeTexture, pf gpu.PixelFmt, dim gpu.Dim3D) (*texture, error) {
	t := &texture{
		res:     res,
		typ:     gpu.T2D,
		fmt:     pf,
		dim:     dim,
		layers:  1,
		levels:  1,
		samples: 1,
		usage:   gpu.URenderTarget,
		state:   resStateRenderTarget,
		srv:     -1,
	}
	t.subs = []textureSub{{parent: t, rtv: -1, dsv: -1, uav: -1}}
	i, err := r.staging[descRTV].alloc()
	if err != nil {
		res.free()
		return nil, err
	}
	t.subs[0].rtv = i
	r.nat.textureRTV(res, gpu.T2D, pf, 0, 0, r.staging[descRTV].at(i))
	return t, nil
}

// createSwapchainTextures (re)wraps the backbuffers of
// wd.sc into wd's containers.
func (r *renderer) createSwapchainTextures(wd *windowData) error {
	dim := gpu.Dim3D{Width: wd.width, Height: wd.height, Depth: 1}
	for i := range wd.containers {
		t, err := r.wrapSwapchainTexture(wd.sc.buffer(i), wd.fmt, dim)
		if err != nil {
			return err
		}
		c := wd.containers[i]
		if c == nil {
			c = &textureContainer{
				r:       r,
				typ:     gpu.T2D,
				fmt:     wd.fmt,
				layers:  1,
				levels:  1,
				samples: 1,
				usage:   gpu.URenderTarget,
			}
			wd.containers[i] = c
		}
		c.active = t
		c.texs = []*texture{t}
		c.dim = dim
	}
	return nil
}

// releaseSwapchainTextures frees the wrapped backbuffers,
// keeping the containers.
func (r *renderer) releaseSwapchainTextures(wd *windowData) {
	for _, c := range wd.containers {
		if c == nil || c.active == nil {
			continue
		}
		c.active.free(r)
		c.active = nil
		c.texs = nil
	}
}

// ClaimWindow creates a swapchain for the window.
func (r *renderer) ClaimWindow(w wsi.Window) error {
	r.windowMu.Lock()
	defer r.windowMu.Unlock()
	if _, ok := r.windows[w]; ok {
		return fmt.Errorf("%w (already claimed)", gpu.ErrWindow)
	}
	wd := &windowData{
		w:      w,
		fmt:    gpu.BGRA8un,
		mode:   gpu.PVsync,
		comp:   gpu.CompSDR,
		width:  w.Width(),
		height: w.Height(),
	}
	sc, err := r.nat.newSwapchain(w, swapchainBufs, wd.fmt, wd.mode)
	if err != nil {
		return err
	}
	wd.sc = sc
	if err := r.createSwapchainTextures(wd); err != nil {
		r.releaseSwapchainTextures(wd)
		sc.free()
		return err
	}
	r.windows[w] = wd
	return nil
}

// destroyWindowData frees the presentation state. The
// caller must ensure the GPU is idle.
func (r *renderer) destroyWindowData(wd *windowData) {
	for i, f := range wd.inFlight {
		if f != nil {
			r.releaseFence(f)
			wd.inFlight[i] = nil
		}
	}
	r.releaseSwapchainTextures(wd)
	wd.sc.free()
}

// UnclaimWindow destroys the window's swapchain.
func (r *renderer) UnclaimWindow(w wsi.Window) {
	r.Wait()
	r.windowMu.Lock()
	if wd, ok := r.windows[w]; ok {
		r.destroyWindowData(wd)
		delete(r.windows, w)
	}
	r.windowMu.Unlock()
}

// SetSwapchainParams reconfigures the window's swapchain.
// The swapchain is recreated, so pending work completes
// first.
func (r *renderer) SetSwapchainParams(w wsi.Window, comp gpu.Composition, mode gpu.PresentMode) error {
	if err := r.Wait(); err != nil {
		return err
	}
	r.windowMu.Lock()
	defer r.windowMu.Unlock()
	wd, ok := r.windows[w]
	if !ok {
		return gpu.ErrWindow
	}
	r.releaseSwapchainTextures(wd)
	wd.sc.free()
	wd.comp = comp
	wd.mode = mode
	if comp == gpu.CompSDRLinear {
		wd.fmt = gpu.BGRA8sRGB
	} else {
		wd.fmt = gpu.BGRA8un
	}
	sc, err := r.nat.newSwapchain(w, swapchainBufs, wd.fmt, mode)
	if err != nil {
		delete(r.windows, w)
		return fmt.Errorf("%w: %v", gpu.ErrSwapchain, err)
	}
	wd.sc = sc
	if err := r.createSwapchainTextures(wd); err != nil {
		r.releaseSwapchainTextures(wd)
		sc.free()
		delete(r.windows, w)
		return err
	}
	return nil
}

// SwapchainFormat returns the texture format of the
// window's swapchain.
func (r *renderer) SwapchainFormat(w wsi.Window) gpu.PixelFmt {
	r.windowMu.Lock()
	defer r.windowMu.Unlock()
	if wd, ok := r.windows[w]; ok {
		return wd.fmt
	}
	return gpu.FInvalid
}

// resizeSwapchain recreates the backbuffers at the
// window's current size.
func (r *renderer) resizeSwapchain(wd *windowData) error {
	if err := r.Wait(); err != nil {
		return err
	}
	r.releaseSwapchainTextures(wd)
	wd.width = wd.w.Width()
	wd.height = wd.w.Height()
	if err := wd.sc.resize(wd.width, wd.height); err != nil {
		return fmt.Errorf("%w: %v", gpu.ErrSwapchain, err)
	}
	return r.createSwapchainTextures(wd)
}

// AcquireSwapchainTexture obtains the next backbuffer of a
// claimed window. With too many frames in flight, PVsync
// blocks on the oldest one; the other modes return a nil
// texture so the caller can skip the frame.
func (cb *cmdBuffer) AcquireSwapchainTexture(w wsi.Window) (gpu.Texture, gpu.Dim3D, error) {
	r := cb.r
	r.windowMu.Lock()
	wd := r.windows[w]
	r.windowMu.Unlock()
	if wd == nil {
		return nil, gpu.Dim3D{}, gpu.ErrWindow
	}
	if w.Width() != wd.width || w.Height() != wd.height {
		if err := r.resizeSwapchain(wd); err != nil {
			return nil, gpu.Dim3D{}, err
		}
	}
	if f := wd.inFlight[wd.frame%maxFramesInFlight]; f != nil && !f.Signaled() {
		if wd.mode != gpu.PVsync {
			return nil, gpu.Dim3D{}, nil
		}
		if err := r.WaitForFences(true, f); err != nil {
			return nil, gpu.Dim3D{}, err
		}
	}
	c := wd.containers[wd.sc.index()]
	t := c.active
	cb.trackTexture(t)
	cb.trackSub(&t.subs[0])
	// Backbuffers rest in the present state between frames.
	cb.list.transition([]transitionDesc{{
		texture: t.res,
		sub:     0,
		before:  resStatePresent,
		after:   resStateRenderTarget,
	}})
	cb.presents = append(cb.presents, presentOp{wd: wd, tex: t})
	return c, t.dim, nil
}
