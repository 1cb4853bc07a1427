package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"

	"github.com/kilnhq/kilnd/internal/manifest"
	"github.com/kilnhq/kilnd/internal/paths"
)

// File extension of cached layer archives.
const archiveExt = ".tar"

// A content-addressed store of dependency layer archives.
//
// Each entry is the exported OCI archive of a build container immediately
// after dependency installation, keyed by a digest over every input that
// feeds that state. Entries are immutable once stored.
type Cache struct {
	dir string
}

// Opens the layer cache rooted at dir, creating it if needed. An empty dir
// uses the default location under the user cache directory.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		dir = paths.LayerCache()
	}
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCache, err)
	}
	return &Cache{dir: dir}, nil
}

// Inputs that determine the dependency layer's content.
//
// The source tree is deliberately absent: source changes must not
// invalidate the dependency layer.
type keyInputs struct {
	Base         string            `json:"base"`
	Env          map[string]string `json:"env"`
	Workdir      string            `json:"workdir"`
	Identity     manifest.Identity `json:"identity"`
	Installer    []string          `json:"installer"`
	Requirements string            `json:"requirements"`
	Platform     string            `json:"platform"`
}

// Computes the cache key for a bootstrap's dependency layer.
//
// The key covers the base reference, environment, workdir, identity,
// installer invocation, the raw requirements bytes, and the target
// platform. Map keys serialize in sorted order, so the encoding is
// canonical and the key is deterministic.
func Key(b *manifest.Bootstrap, requirements []byte, platform string) (digest.Digest, error) {
	inputs := keyInputs{
		Base:         b.Base,
		Env:          b.Env,
		Workdir:      b.Workdir,
		Identity:     b.Identity,
		Installer:    b.Dependencies.Installer,
		Requirements: string(requirements),
		Platform:     platform,
	}

	encoded, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCache, err)
	}

	return digest.SHA256.FromBytes(encoded), nil
}

// Returns the path of the cached archive for key and whether it exists.
func (c *Cache) Lookup(key digest.Digest) (string, bool) {
	path := c.entryPath(key)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// Copies the archive at src into the cache under key.
//
// The archive is written to a temporary file and renamed into place, so a
// failed or cancelled store never leaves a partial entry behind. Storing
// an existing key is a no-op.
func (c *Cache) Store(key digest.Digest, src string) error {
	if _, ok := c.Lookup(key); ok {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(c.dir, "store-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %w", ErrCache, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}

	if err := os.Rename(tmp.Name(), c.entryPath(key)); err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}

	slog.Debug("layer cached", "key", key.Encoded())
	return nil
}

// Removes every entry from the cache.
func (c *Cache) Prune() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != archiveExt {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("%w: %w", ErrCache, err)
		}
	}

	return nil
}

// Returns the on-disk path for a cache key.
func (c *Cache) entryPath(key digest.Digest) string {
	return filepath.Join(c.dir, key.Encoded()+archiveExt)
}
