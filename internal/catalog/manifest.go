package catalog

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"sigs.k8s.io/yaml"

	"switchboard/internal/capability"
)

// InstanceSharing values accepted in a manifest.
const (
	SharingNone      = "none"
	SharingSingleton = "singleton"
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9_.\-]*$`)

// Options controls how the broker treats instances of a service.
type Options struct {
	// InstanceSharing is "none" (one instance per user) or "singleton"
	// (one instance serves every user).
	InstanceSharing string `json:"instanceSharing,omitempty"`
}

// Entry is one service manifest.
type Entry struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`

	// Package names the service that hosts this one. Empty means the
	// service is started by a runner of its own.
	Package string `json:"package,omitempty"`

	// Instance is the default instance qualifier.
	Instance string `json:"instance,omitempty"`

	Capabilities capability.Spec `json:"capabilities,omitempty"`
	Options      Options         `json:"options,omitempty"`

	// Source is the file the entry was read from, if any.
	Source string `json:"-"`
}

// Singleton reports whether one instance serves every user.
func (e *Entry) Singleton() bool {
	return e.Options.InstanceSharing == SharingSingleton
}

// Validate checks the manifest fields.
func (e *Entry) Validate() error {
	if !validName.MatchString(e.Name) {
		return fmt.Errorf("manifest name %q is invalid", e.Name)
	}
	if e.Package != "" && !validName.MatchString(e.Package) {
		return fmt.Errorf("manifest %s: package name %q is invalid", e.Name, e.Package)
	}
	if e.Package == e.Name {
		return fmt.Errorf("manifest %s: a service cannot be its own package", e.Name)
	}
	switch e.Options.InstanceSharing {
	case "", SharingNone, SharingSingleton:
	default:
		return fmt.Errorf("manifest %s: unknown instanceSharing %q", e.Name, e.Options.InstanceSharing)
	}
	return nil
}

// ParseManifest decodes a YAML or JSON manifest. When the document has no
// name, the file name without extension is used.
func ParseManifest(data []byte, path string) (*Entry, error) {
	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest from %s: %w", path, err)
	}
	if entry.Name == "" && path != "" {
		entry.Name = nameFromPath(path)
	}
	entry.Source = path
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalManifest encodes an entry as YAML.
func MarshalManifest(entry *Entry) ([]byte, error) {
	return yaml.Marshal(entry)
}

var manifestExtensions = []string{".yaml", ".yml", ".json"}

func isManifestFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range manifestExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
