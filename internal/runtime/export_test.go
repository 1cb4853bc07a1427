package runtime

import (
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestApplyImageConfig(t *testing.T) {
	config := ocispec.Image{}
	config.Config.Cmd = []string{"/bin/sh"}
	config.Config.Env = []string{"PATH=/usr/bin", "LANG=C"}

	applyImageConfig(&config, ImageConfig{
		Entrypoint: []string{"python", "main.py"},
		Env:        []string{"PYTHONUNBUFFERED=1", "LANG=C.UTF-8"},
		WorkingDir: "/app",
		User:       "999:999",
	})

	if len(config.Config.Entrypoint) != 2 || config.Config.Entrypoint[0] != "python" {
		t.Fatalf("entrypoint = %v", config.Config.Entrypoint)
	}
	if config.Config.Cmd != nil {
		t.Fatalf("cmd = %v, want cleared", config.Config.Cmd)
	}
	if config.Config.WorkingDir != "/app" {
		t.Fatalf("workingDir = %q", config.Config.WorkingDir)
	}
	if config.Config.User != "999:999" {
		t.Fatalf("user = %q", config.Config.User)
	}

	env := make(map[string]bool)
	for _, e := range config.Config.Env {
		env[e] = true
	}
	if !env["PYTHONUNBUFFERED=1"] || !env["PATH=/usr/bin"] {
		t.Fatalf("env = %v, want merged entries", config.Config.Env)
	}
	if !env["LANG=C.UTF-8"] || env["LANG=C"] {
		t.Fatalf("env = %v, want LANG overridden", config.Config.Env)
	}
}

func TestApplyImageConfigZeroValues(t *testing.T) {
	config := ocispec.Image{}
	config.Config.Cmd = []string{"/bin/sh"}
	config.Config.Env = []string{"PATH=/usr/bin"}
	config.Config.User = "root"

	applyImageConfig(&config, ImageConfig{})

	if config.Config.Cmd == nil {
		t.Fatal("cmd cleared without an entrypoint")
	}
	if len(config.Config.Env) != 1 || config.Config.Env[0] != "PATH=/usr/bin" {
		t.Fatalf("env = %v, want untouched", config.Config.Env)
	}
	if config.Config.User != "root" {
		t.Fatalf("user = %q, want untouched", config.Config.User)
	}
}

func TestManifestGCLabels(t *testing.T) {
	m := ocispec.Manifest{
		Config: ocispec.Descriptor{
			Digest: digest.FromString("config"),
		},
		Layers: []ocispec.Descriptor{
			{Digest: digest.FromString("layer0")},
			{Digest: digest.FromString("layer1")},
		},
	}

	labels := manifestGCLabels(m)

	configLabel := labels["containerd.io/gc.ref.content.config"]
	if configLabel != m.Config.Digest.String() {
		t.Fatalf("config label = %q, want %q", configLabel, m.Config.Digest.String())
	}

	for i, layer := range m.Layers {
		key := "containerd.io/gc.ref.content.l." + string(rune('0'+i))
		got := labels[key]
		if got != layer.Digest.String() {
			t.Fatalf("labels[%q] = %q, want %q", key, got, layer.Digest.String())
		}
	}

	if len(labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(labels))
	}
}

func TestIndexGCLabels(t *testing.T) {
	idx := ocispec.Index{
		Manifests: []ocispec.Descriptor{
			{Digest: digest.FromString("m0")},
			{Digest: digest.FromString("m1")},
		},
	}

	labels := indexGCLabels(idx)
	if len(labels) != 2 {
		t.Fatalf("len(labels) = %d, want 2", len(labels))
	}
	if labels["containerd.io/gc.ref.content.m.0"] != idx.Manifests[0].Digest.String() {
		t.Fatal("manifest 0 label mismatch")
	}
	if labels["containerd.io/gc.ref.content.m.1"] != idx.Manifests[1].Digest.String() {
		t.Fatal("manifest 1 label mismatch")
	}
}
