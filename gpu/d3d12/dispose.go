// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

// disposeEntry is one batch of released resources awaiting
// destruction. The batch is freed as a unit once none of
// its members is referenced by a pending command buffer.
type disposeEntry struct {
	bufs           []*buffer
	transfers      []*transferBuffer
	texs           []*texture
	samplers       []*sampler
	graphPipelines []*graphPipeline
	compPipelines  []*compPipeline
}

// ready reports whether every member's reference count
// reached zero.
func (e *disposeEntry) ready() bool {
	for _, b := range e.bufs {
		if b.refs.Load() > 0 {
			return false
		}
	}
	for _, t := range e.transfers {
		if t.refs.Load() > 0 {
			return false
		}
	}
	for _, t := range e.texs {
		if t.referenced() {
			return false
		}
	}
	for _, s := range e.samplers {
		if s.refs.Load() > 0 {
			return false
		}
	}
	for _, p := range e.graphPipelines {
		if p.refs.Load() > 0 {
			return false
		}
	}
	for _, p := range e.compPipelines {
		if p.refs.Load() > 0 {
			return false
		}
	}
	return true
}

func (e *disposeEntry) dispose(r *renderer) {
	for _, b := range e.bufs {
		b.free(r)
	}
	for _, t := range e.transfers {
		t.res.free()
	}
	for _, t := range e.texs {
		t.free(r)
	}
	for _, s := range e.samplers {
		r.staging[descSampler].release(s.index)
	}
	for _, p := range e.graphPipelines {
		p.ps.free()
		p.root.rs.free()
	}
	for _, p := range e.compPipelines {
		p.ps.free()
		p.root.rs.free()
	}
}

// enqueueDispose defers destruction of a batch of released
// resources.
func (r *renderer) enqueueDispose(e disposeEntry) {
	r.disposeMu.Lock()
	r.disposed = append(r.disposed, e)
	r.disposeMu.Unlock()
}

// sweepDisposed frees every queued batch whose resources
// are no longer referenced. It runs after command buffers
// are reclaimed, when reference counts have settled.
func (r *renderer) sweepDisposed() {
	r.disposeMu.Lock()
	for i := 0; i < len(r.disposed); {
		if !r.disposed[i].ready() {
			i++
			continue
		}
		e := r.disposed[i]
		n := len(r.disposed) - 1
		r.disposed[i] = r.disposed[n]
		r.disposed[n] = disposeEntry{}
		r.disposed = r.disposed[:n]
		e.dispose(r)
	}
	r.disposeMu.Unlock()
}
