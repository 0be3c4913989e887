// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package d3d12

import (
	"log"
	"sync/atomic"

	"github.com/gviegas/ember/gpu"
)

// fence implements gpu.Fence over a pooled native fence.
// The target value is monotonic: acquiring the fence for a
// new submission bumps target instead of resetting the
// native counter, so a stale Signaled check can never
// observe a signal from an earlier reuse.
type fence struct {
	nat    nativeFence
	target uint64
	// refs counts the handles that keep the fence out of
	// the pool: the caller of Submit and any swapchain
	// pacing slot.
	refs atomic.Int32
}

// Signaled returns whether the fence reached its current
// target value.
func (f *fence) Signaled() bool { return f.nat.completed() >= f.target }

// acquireFence obtains a fence from the pool, creating one
// on demand, and advances its target for the submission it
// will track.
func (r *renderer) acquireFence() (*fence, error) {
	r.fenceMu.Lock()
	var f *fence
	if n := len(r.fencePool); n > 0 {
		f = r.fencePool[n-1]
		r.fencePool = r.fencePool[:n-1]
	}
	r.fenceMu.Unlock()
	if f == nil {
		nf, err := r.nat.newFence()
		if err != nil {
			return nil, err
		}
		f = &fence{nat: nf}
	}
	f.target++
	f.refs.Store(1)
	return f, nil
}

// releaseFence drops one reference, returning the fence to
// the pool when none remain.
func (r *renderer) releaseFence(f *fence) {
	if f.refs.Add(-1) > 0 {
		return
	}
	r.fenceMu.Lock()
	r.fencePool = append(r.fencePool, f)
	r.fenceMu.Unlock()
}

// ReleaseFence releases a fence obtained from Submit.
func (r *renderer) ReleaseFence(f gpu.Fence) { r.releaseFence(f.(*fence)) }

// Submit closes the command list, executes it and registers
// the command buffer for reclamation when its fence signals.
func (cb *cmdBuffer) Submit(wantFence bool) (gpu.Fence, error) {
	r := cb.r
	if cb.err != nil {
		// Unwind a failed recording without executing.
		cb.list.close()
		err := cb.err
		r.cleanCmdBuffer(cb)
		return nil, err
	}
	for i := range cb.presents {
		p := &cb.presents[i]
		cb.textureBarrier(p.tex, transitionAllSubs, resStatePresent)
	}
	if err := cb.list.close(); err != nil {
		r.cleanCmdBuffer(cb)
		return nil, err
	}
	f, err := r.acquireFence()
	if err != nil {
		r.cleanCmdBuffer(cb)
		return nil, err
	}
	cb.fence = f
	cb.autoFence = !wantFence
	r.nat.execute([]nativeList{cb.list})
	r.nat.signal(f.nat, f.target)
	var submitErr error
	if err := r.nat.removed(); err != nil {
		log.Printf("[!] d3d12: %v", err)
		submitErr = err
	}
	var presentErr error
	for i := range cb.presents {
		wd := cb.presents[i].wd
		if err := wd.sc.present(); err != nil && presentErr == nil {
			presentErr = err
		}
		slot := wd.frame % maxFramesInFlight
		if old := wd.inFlight[slot]; old != nil {
			r.releaseFence(old)
		}
		f.refs.Add(1)
		wd.inFlight[slot] = f
		wd.frame++
	}
	r.submitMu.Lock()
	r.submitted = append(r.submitted, cb)
	r.submitMu.Unlock()
	r.reclaimCompleted()
	r.sweepDisposed()
	if submitErr == nil {
		submitErr = presentErr
	}
	if !wantFence {
		return nil, submitErr
	}
	return f, submitErr
}

// cleanCmdBuffer reclaims a command buffer whose work is
// known complete (or was never executed): it repacks
// pending downloads, returns the pooled heaps and rings,
// drops every tracked reference and returns the command
// buffer to the pool.
func (r *renderer) cleanCmdBuffer(cb *cmdBuffer) {
	if cb.viewHeap != nil {
		r.returnGPUHeap(cb.viewHeap)
		cb.viewHeap = nil
	}
	if cb.samplerHeap != nil {
		r.returnGPUHeap(cb.samplerHeap)
		cb.samplerHeap = nil
	}
	for i := range cb.downloads {
		cb.downloads[i].repack()
	}
	cb.downloads = cb.downloads[:0]
	for _, t := range cb.temps {
		t.free()
	}
	cb.temps = cb.temps[:0]
	for _, ub := range cb.trackedUniforms {
		r.returnUniformBuffer(ub)
	}
	cb.trackedUniforms = cb.trackedUniforms[:0]
	for _, b := range cb.trackedBufs {
		b.refs.Add(-1)
	}
	cb.trackedBufs = cb.trackedBufs[:0]
	for _, t := range cb.trackedTransfers {
		t.refs.Add(-1)
	}
	cb.trackedTransfers = cb.trackedTransfers[:0]
	for _, t := range cb.trackedTexs {
		t.refs.Add(-1)
	}
	cb.trackedTexs = cb.trackedTexs[:0]
	for _, s := range cb.trackedSubs {
		s.refs.Add(-1)
	}
	cb.trackedSubs = cb.trackedSubs[:0]
	for _, s := range cb.trackedSamplers {
		s.refs.Add(-1)
	}
	cb.trackedSamplers = cb.trackedSamplers[:0]
	for _, p := range cb.trackedGraphs {
		p.refs.Add(-1)
	}
	cb.trackedGraphs = cb.trackedGraphs[:0]
	for _, p := range cb.trackedComps {
		p.refs.Add(-1)
	}
	cb.trackedComps = cb.trackedComps[:0]
	cb.presents = cb.presents[:0]
	if cb.fence != nil {
		if cb.autoFence {
			r.releaseFence(cb.fence)
		}
		cb.fence = nil
	}
	cb.err = nil
	r.cmdMu.Lock()
	r.cmdPool = append(r.cmdPool, cb)
	r.cmdMu.Unlock()
}

// reclaimCompleted cleans every pending command buffer
// whose fence has signaled.
func (r *renderer) reclaimCompleted() {
	var done []*cmdBuffer
	r.submitMu.Lock()
	for i := 0; i < len(r.submitted); {
		cb := r.submitted[i]
		if !cb.fence.Signaled() {
			i++
			continue
		}
		n := len(r.submitted) - 1
		r.submitted[i] = r.submitted[n]
		r.submitted[n] = nil
		r.submitted = r.submitted[:n]
		done = append(done, cb)
	}
	r.submitMu.Unlock()
	for _, cb := range done {
		r.cleanCmdBuffer(cb)
	}
}

// Wait blocks until the device is idle and reclaims every
// pending command buffer.
func (r *renderer) Wait() error {
	r.submitMu.Lock()
	pending := make([]*cmdBuffer, len(r.submitted))
	copy(pending, r.submitted)
	r.submitMu.Unlock()
	if len(pending) > 0 {
		fences := make([]nativeFence, len(pending))
		values := make([]uint64, len(pending))
		for i, cb := range pending {
			fences[i] = cb.fence.nat
			values[i] = cb.fence.target
		}
		if err := r.nat.waitFences(fences, values, true); err != nil {
			log.Printf("[!] d3d12: wait failed: %v", err)
			return err
		}
	}
	r.reclaimCompleted()
	r.sweepDisposed()
	return nil
}

// WaitForFences blocks until all (or any) of the given
// fences signal, then reclaims completed command buffers.
func (r *renderer) WaitForFences(all bool, fences ...gpu.Fence) error {
	if len(fences) == 0 {
		return nil
	}
	nats := make([]nativeFence, len(fences))
	values := make([]uint64, len(fences))
	for i, f := range fences {
		f := f.(*fence)
		nats[i] = f.nat
		values[i] = f.target
	}
	if err := r.nat.waitFences(nats, values, all); err != nil {
		log.Printf("[!] d3d12: wait failed: %v", err)
		return err
	}
	r.reclaimCompleted()
	r.sweepDisposed()
	return nil
}
