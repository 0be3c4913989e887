// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"sync/atomic"

	"github.com/gviegas/ember/gpu"
)

// texture is one physical allocation backing a texture
// container, together with its per-(layer,level)
// subresources.
type texture struct {
	res     nativeTexture
	typ     gpu.TexType
	fmt     gpu.PixelFmt
	dim     gpu.Dim3D
	layers  int
	levels  int
	samples int
	usage   gpu.Usage
	// Default usage state; textures are created directly
	// in it.
	state resState
	// Whole-resource shader view, -1 when absent.
	srv  int
	subs []textureSub
	refs atomic.Int32
}

// textureSub is one (layer,level) region of a texture and
// the target/storage views into it.
type textureSub struct {
	parent *texture
	layer  int
	level  int
	// index is the native subresource index
	// (level + layer*levels).
	index int
	// Staging slots, -1 when absent.
	rtv  int
	dsv  int
	uav  int
	refs atomic.Int32
}

// referenced reports whether the allocation or any of its
// subresources is referenced by pending command buffers.
func (t *texture) referenced() bool {
	if t.refs.Load() > 0 {
		return true
	}
	for i := range t.subs {
		if t.subs[i].refs.Load() > 0 {
			return true
		}
	}
	return false
}

// sub returns the subresource for the given layer/level.
func (t *texture) sub(layer, level int) *textureSub {
	return &t.subs[level+layer*t.levels]
}

// defaultTextureState derives the resting state of a
// texture from its usage flags. The order of the checks
// matters: shader visibility wins over target use.
func defaultTextureState(usage gpu.Usage) resState {
	switch {
	case usage&gpu.UShaderSample != 0:
		return resStateAllShaderResource
	case usage&gpu.UShaderRead != 0:
		return resStateAllShaderResource
	case usage&gpu.URenderTarget != 0:
		return resStateRenderTarget
	case usage&gpu.UDSTarget != 0:
		return resStateDepthWrite
	case usage&gpu.UShaderWrite != 0:
		return resStateUnorderedAccess
	}
	return resStateCommon
}

// newTexture creates one physical texture allocation and
// the views its usage calls for.
func (r *renderer) newTexture(typ gpu.TexType, fmt gpu.PixelFmt, dim gpu.Dim3D, layers, levels, samples int, usage gpu.Usage) (*texture, error) {
	var clear *clearValue
	switch {
	case usage&gpu.URenderTarget != 0:
		clear = &clearValue{}
	case usage&gpu.UDSTarget != 0:
		clear = &clearValue{ds: true}
	}
	state := defaultTextureState(usage)
	res, err := r.nat.newTexture(typ, fmt, dim, layers, levels, samples, usage, state, clear)
	if err != nil {
		return nil, err
	}
	t := &texture{
		res:     res,
		typ:     typ,
		fmt:     fmt,
		dim:     dim,
		layers:  layers,
		levels:  levels,
		samples: samples,
		usage:   usage,
		state:   state,
		srv:     -1,
	}
	if usage&(gpu.UShaderSample|gpu.UShaderRead) != 0 {
		views := r.staging[descView]
		if t.srv, err = views.alloc(); err != nil {
			t.free(r)
			return nil, err
		}
		r.nat.textureSRV(res, typ, fmt, layers, levels, views.at(t.srv))
	}
	t.subs = make([]textureSub, layers*levels)
	for layer := 0; layer < layers; layer++ {
		for level := 0; level < levels; level++ {
			s := t.sub(layer, level)
			*s = textureSub{
				parent: t,
				layer:  layer,
				level:  level,
				index:  level + layer*levels,
				rtv:    -1,
				dsv:    -1,
				uav:    -1,
			}
			if usage&gpu.URenderTarget != 0 {
				if s.rtv, err = r.staging[descRTV].alloc(); err != nil {
					t.free(r)
					return nil, err
				}
				r.nat.textureRTV(res, typ, fmt, layer, level, r.staging[descRTV].at(s.rtv))
			}
			if usage&gpu.UDSTarget != 0 {
				if s.dsv, err = r.staging[descDSV].alloc(); err != nil {
					t.free(r)
					return nil, err
				}
				r.nat.textureDSV(res, fmt, layer, level, r.staging[descDSV].at(s.dsv))
			}
			if usage&gpu.UShaderWrite != 0 {
				if s.uav, err = r.staging[descView].alloc(); err != nil {
					t.free(r)
					return nil, err
				}
				r.nat.textureUAV(res, fmt, layer, level, r.staging[descView].at(s.uav))
			}
		}
	}
	return t, nil
}

// free releases the staging slots and the native resource.
func (t *texture) free(r *renderer) {
	r.staging[descView].release(t.srv)
	t.srv = -1
	for i := range t.subs {
		s := &t.subs[i]
		r.staging[descRTV].release(s.rtv)
		r.staging[descDSV].release(s.dsv)
		r.staging[descView].release(s.uav)
		s.rtv, s.dsv, s.uav = -1, -1, -1
	}
	t.res.free()
}

// textureContainer implements gpu.Texture.
type textureContainer struct {
	r       *renderer
	active  *texture
	texs    []*texture
	typ     gpu.TexType
	fmt     gpu.PixelFmt
	dim     gpu.Dim3D
	layers  int
	levels  int
	samples int
	usage   gpu.Usage
	label   string
	// Swapchain containers always target the
	// backend-assigned image.
	canBeCycled bool
}

func (c *textureContainer) Type() gpu.TexType    { return c.typ }
func (c *textureContainer) Format() gpu.PixelFmt { return c.fmt }
func (c *textureContainer) Dim() gpu.Dim3D       { return c.dim }
func (c *textureContainer) Layers() int          { return c.layers }
func (c *textureContainer) Levels() int          { return c.levels }
func (c *textureContainer) Samples() int         { return c.samples }
func (c *textureContainer) Usage() gpu.Usage     { return c.usage }
func (c *textureContainer) Label() string        { return c.label }

func (c *textureContainer) SetLabel(label string) {
	c.label = label
	if c.active != nil {
		c.active.res.setName(label)
	}
}

// cycle makes an idle allocation active, allocating a new
// one when none is idle. Swapchain containers never cycle.
func (c *textureContainer) cycle() error {
	if !c.canBeCycled {
		return nil
	}
	for _, t := range c.texs {
		if !t.referenced() {
			c.active = t
			return nil
		}
	}
	t, err := c.r.newTexture(c.typ, c.fmt, c.dim, c.layers, c.levels, c.samples, c.usage)
	if err != nil {
		return err
	}
	if c.label != "" {
		t.res.setName(c.label)
	}
	c.texs = append(c.texs, t)
	c.active = t
	return nil
}

// NewTexture creates a new texture.
func (r *renderer) NewTexture(typ gpu.TexType, fmt gpu.PixelFmt, dim gpu.Dim3D, layers, levels, samples int, usage gpu.Usage) (gpu.Texture, error) {
	if typ != gpu.T3D {
		dim.Depth = 1
	}
	if typ == gpu.TCube {
		layers = 6
	}
	t, err := r.newTexture(typ, fmt, dim, layers, levels, samples, usage)
	if err != nil {
		return nil, err
	}
	return &textureContainer{
		r:           r,
		active:      t,
		texs:        []*texture{t},
		typ:         typ,
		fmt:         fmt,
		dim:         dim,
		layers:      layers,
		levels:      levels,
		samples:     samples,
		usage:       usage,
		canBeCycled: true,
	}, nil
}

// ReleaseTexture defers destruction of every allocation of
// the container.
func (r *renderer) ReleaseTexture(t gpu.Texture) {
	c := t.(*textureContainer)
	if !c.canBeCycled {
		// Swapchain images belong to their window.
		return
	}
	r.enqueueDispose(disposeEntry{texs: c.texs})
	c.active = nil
	c.texs = nil
}
