// Copyright 2025 Gustavo C. Viegas. All rights reserved.

//go:build !windows

package wsi

// Only offscreen windows are available on platforms
// without a Win32 window system.
// TODO: XCB/Wayland support for a future Vulkan backend.
func newWindow(width, height int, title string) (Window, error) {
	return nil, ErrNotSupported
}
