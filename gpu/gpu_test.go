// Copyright 2025 Gustavo C. Viegas. All rights reserved.

package gpu

import (
	"errors"
	"testing"
)

// testBackend registers a mock renderer under a given name.
type testBackend struct {
	name string
	err  error
}

func (b *testBackend) Name() string { return b.name }

func (b *testBackend) Open(debug bool) (Renderer, error) {
	if b.err != nil {
		return nil, b.err
	}
	return newMockRenderer(), nil
}

func countBackends(name string) int {
	var n int
	for _, b := range Backends() {
		if b.Name() == name {
			n++
		}
	}
	return n
}

func TestRegister(t *testing.T) {
	Register(&testBackend{name: "test-a"})
	Register(&testBackend{name: "test-b"})
	if n := countBackends("test-a"); n != 1 {
		t.Fatalf("registered backends named 'test-a':\nhave %d\nwant 1", n)
	}
	if n := countBackends("test-b"); n != 1 {
		t.Fatalf("registered backends named 'test-b':\nhave %d\nwant 1", n)
	}

	// Re-registering a name replaces the backend rather
	// than duplicating it.
	repl := &testBackend{name: "test-a"}
	Register(repl)
	if n := countBackends("test-a"); n != 1 {
		t.Fatalf("registered backends named 'test-a' after replace:\nhave %d\nwant 1", n)
	}
	for _, b := range Backends() {
		if b.Name() == "test-a" && b != Backend(repl) {
			t.Fatal("Register did not replace the backend")
		}
	}
}

func TestOpen(t *testing.T) {
	Register(&testBackend{name: "test-broken", err: ErrNotInstalled})
	Register(&testBackend{name: "test-good"})

	d, err := Open("test-good", false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if d.Backend() != "test-good" {
		t.Fatalf("Device.Backend:\nhave %q\nwant %q", d.Backend(), "test-good")
	}
	if d.Debug() {
		t.Fatal("Device.Debug:\nhave true\nwant false")
	}
	d.Close()

	// A named backend that fails to open reports its own
	// error.
	if _, err = Open("test-broken", false); !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("Open of a broken backend:\nhave %v\nwant %v", err, ErrNotInstalled)
	}

	// An unknown name matches nothing.
	if _, err = Open("test-missing", false); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("Open of an unknown backend:\nhave %v\nwant %v", err, ErrNoDevice)
	}

	// Unnamed selection skips failing backends and settles
	// on one that opens.
	d, err = Open("", true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !d.Debug() {
		t.Fatal("Device.Debug:\nhave false\nwant true")
	}
	d.Close()
}

func TestDeviceValidation(t *testing.T) {
	d, _ := mockDevice(true)

	for _, c := range [...]struct {
		call string
		err  error
	}{
		{"NewBuffer size", func() error { _, err := d.NewBuffer(0, UVertexData); return err }()},
		{"NewBuffer usage", func() error { _, err := d.NewBuffer(256, URenderTarget); return err }()},
		{"NewTexture format", func() error {
			_, err := d.NewTexture(T2D, FInvalid, Dim3D{Width: 4, Height: 4}, 1, 1, 1, UShaderSample)
			return err
		}()},
		{"NewTexture dim", func() error {
			_, err := d.NewTexture(T2D, RGBA8un, Dim3D{}, 1, 1, 1, UShaderSample)
			return err
		}()},
		{"NewTexture usage", func() error {
			_, err := d.NewTexture(T2D, RGBA8un, Dim3D{Width: 4, Height: 4}, 1, 1, 1, UIndexData)
			return err
		}()},
		{"NewTransferBuffer size", func() error { _, err := d.NewTransferBuffer(-1, false); return err }()},
		{"NewSampler nil", func() error { _, err := d.NewSampler(nil); return err }()},
		{"NewShader code", func() error {
			_, err := d.NewShader(&ShaderDesc{Stage: SVertex})
			return err
		}()},
		{"NewGraphPipeline shaders", func() error {
			_, err := d.NewGraphPipeline(&GraphState{})
			return err
		}()},
		{"NewCompPipeline code", func() error {
			_, err := d.NewCompPipeline(&CompState{})
			return err
		}()},
		{"WaitForFences empty", d.WaitForFences(true)},
	} {
		if !errors.Is(c.err, ErrInvalidState) {
			t.Fatalf("%s:\nhave %v\nwant %v", c.call, c.err, ErrInvalidState)
		}
	}
}

func TestDeviceCreation(t *testing.T) {
	d, _ := mockDevice(true)

	buf, err := d.NewBuffer(1024, UVertexData|UIndexData)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	if buf.Size() != 1024 {
		t.Fatalf("Buffer.Size:\nhave %d\nwant 1024", buf.Size())
	}
	buf.SetLabel("staging")
	if buf.Label() != "staging" {
		t.Fatalf("Buffer.Label:\nhave %q\nwant %q", buf.Label(), "staging")
	}
	d.ReleaseBuffer(buf)

	tex, err := d.NewTexture(TCube, RGBA8un, Dim3D{Width: 64, Height: 64}, 6, 1, 1, UShaderSample)
	if err != nil {
		t.Fatalf("NewTexture failed: %v", err)
	}
	if tex.Format() != RGBA8un {
		t.Fatalf("Texture.Format:\nhave %v\nwant %v", tex.Format(), RGBA8un)
	}
	d.ReleaseTexture(tex)

	// Releasing nil handles is a no-op.
	d.ReleaseBuffer(nil)
	d.ReleaseTexture(nil)
	d.ReleasePipeline(nil)
	d.ReleaseFence(nil)
}
