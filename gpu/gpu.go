// Copyright 2025 Gustavo C. Viegas. All rights reserved.

// Package gpu defines an explicit GPU command/resource layer.
// Clients record draw/dispatch/copy work into command buffers
// and the layer manages GPU synchronization on their behalf:
// resource cycling, descriptor table management, fence-gated
// cleanup and deferred destruction.
// It is designed to allow platform-specific APIs to be
// implemented in a mostly straightforward manner.
package gpu

import (
	"errors"
	"log"
	"sync"
)

// Backend is the interface that provides methods for
// identifying and instantiating an underlying native
// implementation.
type Backend interface {
	// Name returns the name of the backend.
	// It must not cause a device to be created.
	Name() string

	// Open creates a new device instance.
	// If debug is true, the device validates every call
	// at the cost of throughput.
	// Callers should assume that Open is not safe for
	// parallel execution.
	Open(debug bool) (Renderer, error)
}

// ErrNotInstalled means that a platform-specific library
// required for the backend to work is not present in the
// system.
var ErrNotInstalled = errors.New("gpu: missing required library")

// ErrNoDevice means that no suitable device could be
// found.
var ErrNoDevice = errors.New("gpu: no suitable device found")

// ErrNoHostMemory means that host memory could not be
// allocated.
var ErrNoHostMemory = errors.New("gpu: out of host memory")

// ErrNoDeviceMemory means that device memory could not
// be allocated.
var ErrNoDeviceMemory = errors.New("gpu: out of device memory")

// ErrDeviceLost means that the native device was removed
// or hung. There is no recovery: the application must
// destroy the Device and open a new one.
var ErrDeviceLost = errors.New("gpu: device lost")

// ErrInvalidState means that a call violated a usage
// precondition, such as beginning a pass while another
// pass is in progress. It is only ever returned by
// devices opened in debug mode; without debug, such
// calls are undefined behavior.
var ErrInvalidState = errors.New("gpu: invalid state for call")

// ErrTooLarge means that a requested allocation exceeds a
// fixed pool capacity, such as a GPU-visible descriptor
// table. Pools are not grown mid-recording; the device
// must be configured with larger pools instead.
var ErrTooLarge = errors.New("gpu: fixed pool capacity exceeded")

// ErrFatal means that the device is in an unrecoverable
// state. Upon encountering such an error, the application
// must destroy everything that it created using the
// Device and then call the Close method.
var ErrFatal = errors.New("gpu: fatal error")

// Backends returns the registered Backends.
// Backend packages register themselves on init, so only
// imported backends are considered for selection.
func Backends() []Backend {
	mu.Lock()
	defer mu.Unlock()
	b := make([]Backend, len(backends))
	copy(b, backends)
	return b
}

// Register registers a Backend.
// Backend implementations are expected to call Register
// exactly once, from an init function.
// If a backend with the same name has already been
// registered, it will be replaced by b.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	for i := range backends {
		if backends[i].Name() == b.Name() {
			backends[i] = b
			log.Printf("[!] gpu: backend '%s' replaced", b.Name())
			return
		}
	}
	backends = append(backends, b)
	log.Printf("gpu: backend '%s' registered", b.Name())
}

// Open creates a Device from the first registered backend
// that opens successfully. The name parameter, if non-empty,
// restricts the choice to the named backend.
func Open(name string, debug bool) (*Device, error) {
	var err error
	for _, b := range Backends() {
		if name != "" && b.Name() != name {
			continue
		}
		var r Renderer
		if r, err = b.Open(debug); err == nil {
			return &Device{r: r, backend: b.Name(), debug: debug}, nil
		}
		log.Printf("[!] gpu: backend '%s' failed to open: %v", b.Name(), err)
	}
	if err == nil {
		err = ErrNoDevice
	}
	return nil, err
}

// Variables used for backend registration.
var (
	mu       sync.Mutex
	backends = make([]Backend, 0, 1)
)
