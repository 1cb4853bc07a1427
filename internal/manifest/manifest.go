package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/distribution/reference"
	"sigs.k8s.io/yaml"
)

// Default installer invocation when the manifest does not declare one.
// The requirements file path is appended as the final argument.
var defaultInstaller = []string{"pip", "install", "--no-cache-dir", "-r"}

// Matches valid system account names (useradd conventions).
var accountNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

// Maximum length of a system account name.
const maxAccountNameLen = 32

// Describes the bootstrap of a runtime image: base image, interpreter
// environment, restricted identity, dependency installation, source tree,
// and entrypoint.
type Bootstrap struct {
	Base         string            `json:"base"`                   // Pinned base image reference or OCI archive path.
	Env          map[string]string `json:"env,omitempty"`          // Environment applied to every build step and the final process.
	Workdir      string            `json:"workdir"`                // Absolute working directory inside the image.
	Identity     Identity          `json:"identity"`               // Restricted system account the application runs as.
	Dependencies Dependencies      `json:"dependencies"`           // Dependency manifest and installer.
	Source       string            `json:"source,omitempty"`       // Source tree relative to the build context. Defaults to ".".
	Entrypoint   []string          `json:"entrypoint"`             // Default command of the image.
}

// The restricted system group and user provisioned during the build.
type Identity struct {
	Group string `json:"group"`
	User  string `json:"user"`
}

// Declares the dependency manifest and how to install it.
type Dependencies struct {
	Manifest  string   `json:"manifest"`            // Requirements file, relative to the build context.
	Installer []string `json:"installer,omitempty"` // Installer argv. The manifest path is appended.
}

// Reads and parses a bootstrap manifest from disk.
func Load(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}
	return Parse(data)
}

// Parses a bootstrap manifest from YAML.
//
// Unknown fields are rejected so that typos surface as build failures
// instead of silently dropped configuration.
func Parse(data []byte) (*Bootstrap, error) {
	var b Bootstrap
	if err := yaml.UnmarshalStrict(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifest, err)
	}

	if b.Source == "" {
		b.Source = "."
	}
	if len(b.Dependencies.Installer) == 0 {
		b.Dependencies.Installer = append([]string(nil), defaultInstaller...)
	}

	return &b, nil
}

// Checks the manifest for the invariants the pipeline depends on.
//
// Base references must be pinned, the workdir must be absolute, the
// identity must name a valid system account, and an entrypoint must be
// declared. Validation failures abort the build before any container is
// created.
func (b *Bootstrap) Validate() error {
	if err := validateBase(b.Base); err != nil {
		return err
	}

	if !filepath.IsAbs(b.Workdir) {
		return fmt.Errorf("%w: workdir %q must be absolute", ErrManifest, b.Workdir)
	}

	if err := validateAccountName("group", b.Identity.Group); err != nil {
		return err
	}
	if err := validateAccountName("user", b.Identity.User); err != nil {
		return err
	}
	if b.Identity.User == "root" || b.Identity.Group == "root" {
		return fmt.Errorf("%w: identity must not be root", ErrManifest)
	}

	if b.Dependencies.Manifest == "" {
		return fmt.Errorf("%w: dependencies.manifest is required", ErrManifest)
	}
	if filepath.IsAbs(b.Dependencies.Manifest) {
		return fmt.Errorf("%w: dependencies.manifest %q must be relative to the build context", ErrManifest, b.Dependencies.Manifest)
	}

	if len(b.Entrypoint) == 0 {
		return fmt.Errorf("%w: entrypoint is required", ErrManifest)
	}

	return nil
}

// Whether the base refers to a local OCI archive rather than a registry
// reference. Archives follow the exported image.tar convention.
func (b *Bootstrap) BaseIsArchive() bool {
	return strings.HasSuffix(b.Base, ".tar")
}

// Validates a base image reference.
//
// Registry references must parse and must be pinned to a tag other than
// "latest" or to a digest, so that rebuilds are reproducible. Local
// archive paths are accepted as-is; resolution happens at import time.
func validateBase(base string) error {
	if base == "" {
		return fmt.Errorf("%w: base is required", ErrManifest)
	}

	if strings.HasSuffix(base, ".tar") {
		return nil
	}

	named, err := reference.ParseNormalizedNamed(base)
	if err != nil {
		return fmt.Errorf("%w: base %q: %w", ErrManifest, base, err)
	}

	if _, ok := named.(reference.Canonical); ok {
		return nil
	}

	tagged, ok := named.(reference.NamedTagged)
	if !ok || tagged.Tag() == "latest" {
		return fmt.Errorf("%w: base %q must be pinned to a version tag or digest", ErrManifest, base)
	}

	return nil
}

// Validates a system account name.
func validateAccountName(field, name string) error {
	if name == "" {
		return fmt.Errorf("%w: identity.%s is required", ErrManifest, field)
	}
	if len(name) > maxAccountNameLen || !accountNamePattern.MatchString(name) {
		return fmt.Errorf("%w: identity.%s %q is not a valid account name", ErrManifest, field, name)
	}
	return nil
}
