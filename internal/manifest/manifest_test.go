package manifest

import (
	"errors"
	"strings"
	"testing"
)

const validManifest = `
base: docker.io/library/python:3.12-slim
env:
  PYTHONUNBUFFERED: "1"
  PYTHONDONTWRITEBYTECODE: "1"
workdir: /app
identity:
  group: bot
  user: bot
dependencies:
  manifest: requirements.txt
entrypoint: [python, main.py]
`

func TestParse(t *testing.T) {
	b, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if b.Base != "docker.io/library/python:3.12-slim" {
		t.Fatalf("base = %q", b.Base)
	}
	if b.Env["PYTHONUNBUFFERED"] != "1" || b.Env["PYTHONDONTWRITEBYTECODE"] != "1" {
		t.Fatalf("env = %v, want interpreter flags", b.Env)
	}
	if b.Workdir != "/app" {
		t.Fatalf("workdir = %q", b.Workdir)
	}
	if b.Identity.User != "bot" || b.Identity.Group != "bot" {
		t.Fatalf("identity = %+v", b.Identity)
	}
	if len(b.Entrypoint) != 2 || b.Entrypoint[0] != "python" {
		t.Fatalf("entrypoint = %v", b.Entrypoint)
	}

	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseDefaults(t *testing.T) {
	b, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if b.Source != "." {
		t.Fatalf("source = %q, want .", b.Source)
	}
	if len(b.Dependencies.Installer) == 0 || b.Dependencies.Installer[0] != "pip" {
		t.Fatalf("installer = %v, want pip default", b.Dependencies.Installer)
	}
	found := false
	for _, arg := range b.Dependencies.Installer {
		if arg == "--no-cache-dir" {
			found = true
		}
	}
	if !found {
		t.Fatalf("installer %v does not disable the local cache", b.Dependencies.Installer)
	}
}

func TestParseUnknownField(t *testing.T) {
	if _, err := Parse([]byte("base: python:3.12\nbogus: true\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateBase(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		wantErr bool
	}{
		{name: "pinned tag", base: "docker.io/library/python:3.12-slim"},
		{name: "digest", base: "python@sha256:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{name: "local archive", base: "base/image.tar"},
		{name: "latest tag", base: "python:latest", wantErr: true},
		{name: "no tag", base: "python", wantErr: true},
		{name: "empty", base: "", wantErr: true},
		{name: "invalid reference", base: "UPPER CASE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBase(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateBase(%q) = %v, wantErr %v", tt.base, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsRootIdentity(t *testing.T) {
	b, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	b.Identity.User = "root"
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for root user")
	}
}

func TestValidateRelativeWorkdir(t *testing.T) {
	b, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	b.Workdir = "app"
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for relative workdir")
	}
}

func TestValidateMissingEntrypoint(t *testing.T) {
	b, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	b.Entrypoint = nil
	err = b.Validate()
	if err == nil {
		t.Fatal("expected error for missing entrypoint")
	}
	if !errors.Is(err, ErrManifest) {
		t.Fatalf("error %v is not ErrManifest", err)
	}
}

func TestValidateAbsoluteDependencyManifest(t *testing.T) {
	b, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	b.Dependencies.Manifest = "/etc/requirements.txt"
	if err := b.Validate(); err == nil {
		t.Fatal("expected error for absolute dependency manifest path")
	}
}

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{name: "simple", account: "bot"},
		{name: "underscore prefix", account: "_svc"},
		{name: "dashes", account: "web-worker"},
		{name: "uppercase", account: "Bot", wantErr: true},
		{name: "leading digit", account: "1bot", wantErr: true},
		{name: "too long", account: strings.Repeat("a", 33), wantErr: true},
		{name: "empty", account: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName("user", tt.account)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateAccountName(%q) = %v, wantErr %v", tt.account, err, tt.wantErr)
			}
		})
	}
}

func TestBaseIsArchive(t *testing.T) {
	b := &Bootstrap{Base: "dist/image.tar"}
	if !b.BaseIsArchive() {
		t.Fatal("archive path not detected")
	}

	b.Base = "python:3.12-slim"
	if b.BaseIsArchive() {
		t.Fatal("registry reference detected as archive")
	}
}
