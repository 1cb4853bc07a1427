package pipeline

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// Reads every entry from a tar stream into a name->content map.
func readTar(t *testing.T, r io.Reader) map[string]string {
	t.Helper()

	entries := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar read: %v", err)
		}

		var content bytes.Buffer
		if _, err := io.Copy(&content, tr); err != nil {
			t.Fatalf("tar content: %v", err)
		}
		entries[header.Name] = content.String()
	}
	return entries
}

func TestWriteFileToTar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(path, []byte("requests==2.31.0\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFileToTar(tw, path, "requirements.txt"); err != nil {
		t.Fatalf("writeFileToTar: %v", err)
	}
	tw.Close()

	entries := readTar(t, &buf)
	if entries["requirements.txt"] != "requests==2.31.0\n" {
		t.Fatalf("entries = %v, want requirements content", entries)
	}
}

func TestWriteDirToTar(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "pkg"), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('hi')\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pkg", "util.py"), []byte("pass\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeDirToTar(tw, dir, "."); err != nil {
		t.Fatalf("writeDirToTar: %v", err)
	}
	tw.Close()

	entries := readTar(t, &buf)

	// The tree's entries sit at the archive root, not under a subdirectory.
	if entries["main.py"] != "print('hi')\n" {
		t.Fatalf("entries = %v, want main.py at root", entries)
	}
	if entries["pkg/util.py"] != "pass\n" {
		t.Fatalf("entries = %v, want pkg/util.py", entries)
	}
}

func TestWriteDirToTarPrefix(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeDirToTar(tw, dir, "app"); err != nil {
		t.Fatalf("writeDirToTar: %v", err)
	}
	tw.Close()

	entries := readTar(t, &buf)
	if _, ok := entries["app/a.txt"]; !ok {
		t.Fatalf("entries = %v, want app/a.txt", entries)
	}
}

func TestPlatformSlug(t *testing.T) {
	if platformSlug("linux/amd64") != "linux-amd64" {
		t.Fatalf("platformSlug = %q", platformSlug("linux/amd64"))
	}
	if platformSlug("linux/arm/v7") != "linux-arm-v7" {
		t.Fatalf("platformSlug = %q", platformSlug("linux/arm/v7"))
	}
}
