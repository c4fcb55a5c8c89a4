package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"switchboard/internal/api"
	"switchboard/internal/capability"
	"switchboard/pkg/logging"
)

// ResolveResult is what the broker needs to place a service.
type ResolveResult struct {
	// Name is the name that was resolved.
	Name string
	// ResolvedName is the service that hosts Name: the package, or Name
	// itself.
	ResolvedName string
	// Qualifier is the default instance qualifier.
	Qualifier string
	// Spec is the capability spec of Name.
	Spec capability.Spec
	// Singleton is true when one instance serves every user.
	Singleton bool
	// DisplayName is informational.
	DisplayName string
}

// Packaged reports whether the service is hosted by another service.
func (r *ResolveResult) Packaged() bool {
	return r.ResolvedName != r.Name
}

// Catalog holds service manifests. Entries come from a manifest directory
// or are added in code; directory entries missing from memory are read on
// first lookup.
type Catalog struct {
	mu sync.RWMutex

	// dir is the manifest directory; empty for in-memory catalogs
	dir string

	entries map[string]*Entry

	// files maps manifest paths to the entry name read from them
	files map[string]string

	// lookups deduplicates concurrent disk reads of one name
	lookups singleflight.Group
}

// New creates a catalog backed by dir. An empty dir gives an in-memory
// catalog.
func New(dir string) *Catalog {
	return &Catalog{
		dir:     dir,
		entries: make(map[string]*Entry),
		files:   make(map[string]string),
	}
}

// Dir returns the manifest directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Load reads every manifest in the directory. Invalid files are logged and
// skipped; the returned error only reports an unreadable directory.
func (c *Catalog) Load() error {
	if c.dir == "" {
		return nil
	}

	files, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("Catalog", "Manifest directory %s does not exist", c.dir)
			return nil
		}
		return fmt.Errorf("failed to read manifest directory %s: %w", c.dir, err)
	}

	loaded := 0
	for _, f := range files {
		if f.IsDir() || !isManifestFile(f.Name()) {
			continue
		}
		path := filepath.Join(c.dir, f.Name())
		if _, err := c.loadFile(path); err != nil {
			logging.Warn("Catalog", "Skipping manifest %s: %v", path, err)
			continue
		}
		loaded++
	}

	logging.Info("Catalog", "Loaded %d manifests from %s", loaded, c.dir)
	return nil
}

func (c *Catalog) loadFile(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file %s: %w", path, err)
	}
	entry, err := ParseManifest(data, path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if previous, ok := c.files[path]; ok && previous != entry.Name {
		delete(c.entries, previous)
	}
	c.entries[entry.Name] = entry
	c.files[path] = entry.Name
	return entry, nil
}

// forgetFile drops the entry read from path.
func (c *Catalog) forgetFile(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, ok := c.files[path]
	if !ok {
		return "", false
	}
	delete(c.files, path)
	if entry, exists := c.entries[name]; exists && entry.Source == path {
		delete(c.entries, name)
	}
	return name, true
}

// AddEntry registers an in-memory manifest, replacing any entry of the same
// name.
func (c *Catalog) AddEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cannot add nil manifest")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Name] = entry
	return nil
}

// RemoveEntry drops a manifest.
func (c *Catalog) RemoveEntry(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; !ok {
		return api.NewNotFoundError("manifest", name)
	}
	delete(c.entries, name)
	return nil
}

// Entries returns all loaded manifests sorted by name.
func (c *Catalog) Entries() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the manifest for name, reading it from the directory if it
// has not been loaded yet.
func (c *Catalog) Lookup(ctx context.Context, name string) (*Entry, error) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if c.dir == "" || !validName.MatchString(name) {
		return nil, api.NewNotFoundError("manifest", name)
	}

	ch := c.lookups.DoChan(name, func() (interface{}, error) {
		c.mu.RLock()
		cached, ok := c.entries[name]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}
		for _, ext := range manifestExtensions {
			path := filepath.Join(c.dir, name+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			loaded, err := c.loadFile(path)
			if err != nil {
				return nil, err
			}
			if loaded.Name != name {
				return nil, fmt.Errorf("manifest %s declares name %q", path, loaded.Name)
			}
			return loaded, nil
		}
		return nil, api.NewNotFoundError("manifest", name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("lookup of %s: %w", name, ctx.Err())
	}
}

// Resolve maps name to its placement.
func (c *Catalog) Resolve(ctx context.Context, name string) (*ResolveResult, error) {
	entry, err := c.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	result := &ResolveResult{
		Name:         entry.Name,
		ResolvedName: entry.Name,
		Qualifier:    entry.Instance,
		Spec:         entry.Capabilities.Clone(),
		Singleton:    entry.Singleton(),
		DisplayName:  entry.DisplayName,
	}
	if entry.Package != "" {
		if _, err := c.Lookup(ctx, entry.Package); err != nil {
			if api.IsNotFound(err) {
				return nil, fmt.Errorf("package %s of %s: %w", entry.Package, name, err)
			}
			return nil, err
		}
		result.ResolvedName = entry.Package
	}
	return result, nil
}

// Singletons returns the names of all loaded singleton manifests.
func (c *Catalog) Singletons() []string {
	var out []string
	for _, e := range c.Entries() {
		if e.Singleton() {
			out = append(out, e.Name)
		}
	}
	return out
}

// IsTimeout reports whether a lookup failed on its deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
