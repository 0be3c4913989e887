// Copyright 2025 Gustavo C. Viegas. All rights reserved.

//go:build !windows

package d3d12

import "github.com/gviegas/ember/gpu"

// openNative reports the backend missing on platforms
// without D3D12.
func openNative(debug bool) (nativeDevice, error) { return nil, gpu.ErrNotInstalled }
