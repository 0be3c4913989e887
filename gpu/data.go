// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import "honnef.co/go/safeish"

// Bytes reinterprets a slice of fixed-size values as raw
// bytes, suitable for PushUniform and transfer buffer
// writes. T must not contain pointers.
func Bytes[T any](s []T) []byte { return safeish.SliceCast[[]byte](s) }
