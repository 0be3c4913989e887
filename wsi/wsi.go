// Copyright 2025 Gustavo C. Viegas. All rights reserved.

// Package wsi provides window system integration (WSI)
// for GPU backends.
// Because a system need not have a window system, WSI
// is conditionally supported. The package exposes just
// enough surface for a backend to create a swapchain:
// a drawable window and its native handle.
package wsi

import (
	"errors"
)

// ErrNotSupported means that the platform has no window
// system, or that it could not be initialized.
var ErrNotSupported = errors.New("wsi: window system not supported")

// Window is the interface that defines a drawable window.
// The purpose of a window is to provide a surface into
// which a GPU can present.
type Window interface {
	// Map makes the window visible.
	Map() error

	// Unmap hides the window.
	Unmap() error

	// Resize resizes the window.
	Resize(width, height int) error

	// SetTitle sets the window's title.
	SetTitle(title string) error

	// Close closes the window.
	// The window must not be used afterwards.
	Close()

	// Width returns the window's width.
	Width() int

	// Height returns the window's height.
	Height() int

	// Title returns the window's title.
	Title() string

	// Handle returns the native window handle (HWND on
	// Windows). It is zero for windows that have no
	// native surface.
	Handle() uintptr
}

// NewWindow creates a new window of the given size.
// It fails with ErrNotSupported when the platform has no
// window system.
func NewWindow(width, height int, title string) (Window, error) {
	return newWindow(width, height, title)
}

// NewOffscreen creates a window that is not backed by the
// platform window system. Its Handle is zero and Map/Unmap
// have no effect.
// Backends that require a native surface reject offscreen
// windows; backends with headless support (and test fakes)
// accept them.
func NewOffscreen(width, height int) Window {
	return &offscreen{width: width, height: height}
}

// offscreen implements Window without a native surface.
type offscreen struct {
	width, height int
	title         string
	closed        bool
}

func (w *offscreen) Map() error   { return nil }
func (w *offscreen) Unmap() error { return nil }

func (w *offscreen) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New("wsi: invalid size")
	}
	w.width, w.height = width, height
	return nil
}

func (w *offscreen) SetTitle(title string) error {
	w.title = title
	return nil
}

func (w *offscreen) Close()          { w.closed = true }
func (w *offscreen) Width() int      { return w.width }
func (w *offscreen) Height() int     { return w.height }
func (w *offscreen) Title() string   { return w.title }
func (w *offscreen) Handle() uintptr { return 0 }
