// Copyright 2025 Gustavo C. Viegas. All rights reserved.

// Gpucaps opens a GPU device and prints its capabilities:
// the backend in use, the device limits and a texture
// format support table.
//
// Usage:
//
//	gpucaps [-backend name] [-debug] [-config file.toml]
//
// The config file selects the backend and sizes its
// descriptor pools:
//
//	backend = "d3d12"
//	debug = false
//
//	[d3d12]
//	view-staging = 1000000
//	sampler-staging = 2048
//	rtv-staging = 65536
//	dsv-staging = 4096
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/BurntSushi/toml"

	"github.com/gviegas/ember/gpu"
	"github.com/gviegas/ember/gpu/d3d12"
)

type config struct {
	Backend string      `toml:"backend"`
	Debug   bool        `toml:"debug"`
	D3D12   d3d12Config `toml:"d3d12"`
}

type d3d12Config struct {
	ViewStaging    int `toml:"view-staging"`
	SamplerStaging int `toml:"sampler-staging"`
	RTVStaging     int `toml:"rtv-staging"`
	DSVStaging     int `toml:"dsv-staging"`
}

var formatNames = [...]struct {
	fmt  gpu.PixelFmt
	name string
}{
	{gpu.RGBA8un, "rgba8un"},
	{gpu.RGBA8sRGB, "rgba8srgb"},
	{gpu.BGRA8un, "bgra8un"},
	{gpu.BGRA8sRGB, "bgra8srgb"},
	{gpu.RG8un, "rg8un"},
	{gpu.R8un, "r8un"},
	{gpu.RGB10A2un, "rgb10a2un"},
	{gpu.RGBA16f, "rgba16f"},
	{gpu.RG16f, "rg16f"},
	{gpu.R16f, "r16f"},
	{gpu.RGBA32f, "rgba32f"},
	{gpu.RG32f, "rg32f"},
	{gpu.R32f, "r32f"},
	{gpu.D16un, "d16un"},
	{gpu.D32f, "d32f"},
	{gpu.D24unS8ui, "d24uns8ui"},
	{gpu.D32fS8ui, "d32fs8ui"},
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("gpucaps: ")

	backend := flag.String("backend", "", "restrict selection to the named backend")
	debug := flag.Bool("debug", false, "open the device in debug mode")
	confFile := flag.String("config", "", "TOML configuration file")
	flag.Parse()

	var conf config
	if *confFile != "" {
		if _, err := toml.DecodeFile(*confFile, &conf); err != nil {
			log.Fatal(err)
		}
	}
	if *backend != "" {
		conf.Backend = *backend
	}
	conf.Debug = conf.Debug || *debug

	d3d12.Configure(d3d12.Config{
		ViewStaging:    conf.D3D12.ViewStaging,
		SamplerStaging: conf.D3D12.SamplerStaging,
		RTVStaging:     conf.D3D12.RTVStaging,
		DSVStaging:     conf.D3D12.DSVStaging,
	})

	d, err := gpu.Open(conf.Backend, conf.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	fmt.Printf("backend: %s\n", d.Backend())
	fmt.Printf("debug: %t\n\n", d.Debug())

	printLimits(d.Limits())
	printFormats(d)
}

func printLimits(l gpu.Limits) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "max 2D texture\t%d\n", l.MaxTexture2D)
	fmt.Fprintf(w, "max cube texture\t%d\n", l.MaxTextureCube)
	fmt.Fprintf(w, "max 3D texture\t%d\n", l.MaxTexture3D)
	fmt.Fprintf(w, "max layers\t%d\n", l.MaxLayers)
	fmt.Fprintf(w, "max color targets\t%d\n", l.MaxColorTargets)
	fmt.Fprintf(w, "max vertex inputs\t%d\n", l.MaxVertexIn)
	fmt.Fprintf(w, "max samplers\t%d\n", l.MaxSamplers)
	fmt.Fprintf(w, "max storage\t%d\n", l.MaxStorage)
	fmt.Fprintf(w, "max uniform buffers\t%d\n", l.MaxUniformBuffers)
	fmt.Fprintf(w, "uniform align\t%d\n", l.UniformAlign)
	fmt.Fprintf(w, "max dispatch\t%dx%dx%d\n", l.MaxDispatch[0], l.MaxDispatch[1], l.MaxDispatch[2])
	w.Flush()
	fmt.Println()
}

func printFormats(d *gpu.Device) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "format\tsample\ttarget\tstorage\tsamples")
	mark := func(ok bool) string {
		if ok {
			return "yes"
		}
		return "-"
	}
	for _, f := range formatNames {
		sample := d.SupportsFormat(f.fmt, gpu.T2D, gpu.UShaderSample)
		var target bool
		if f.fmt.IsDS() {
			target = d.SupportsFormat(f.fmt, gpu.T2D, gpu.UDSTarget)
		} else {
			target = d.SupportsFormat(f.fmt, gpu.T2D, gpu.URenderTarget)
		}
		storage := d.SupportsFormat(f.fmt, gpu.T2D, gpu.UShaderRead|gpu.UShaderWrite)
		var samples int
		if target {
			samples = d.BestSampleCount(f.fmt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			f.name, mark(sample), mark(target), mark(storage), samples)
	}
	w.Flush()
}
