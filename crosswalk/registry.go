package crosswalk

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Registry holds the configured crosswalks.
type Registry struct {
	mu         sync.RWMutex
	crosswalks map[string]*Crosswalk
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		crosswalks: make(map[string]*Crosswalk),
	}
}

// Register adds a crosswalk. Names are case insensitive and unique.
func (r *Registry) Register(c *Crosswalk) error {
	key := strings.ToLower(c.Name())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.crosswalks[key]; ok {
		return fmt.Errorf("crosswalk %s already registered", c.Name())
	}
	r.crosswalks[key] = c
	return nil
}

// Get retrieves a crosswalk by name.
func (r *Registry) Get(name string) (*Crosswalk, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.crosswalks[strings.ToLower(name)]
	return c, ok
}

// Lookup retrieves a crosswalk by name or fails.
func (r *Registry) Lookup(name string) (*Crosswalk, error) {
	c, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown crosswalk: %s", name)
	}
	return c, nil
}

// List returns the registered crosswalk names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.crosswalks))
	for _, c := range r.crosswalks {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// All returns the registered crosswalks ordered by name.
func (r *Registry) All() []*Crosswalk {
	names := r.List()
	all := make([]*Crosswalk, 0, len(names))
	for _, name := range names {
		if c, ok := r.Get(name); ok {
			all = append(all, c)
		}
	}
	return all
}

// Using returns the crosswalks reading the template file at path.
func (r *Registry) Using(path string) []*Crosswalk {
	path = filepath.Clean(path)
	var using []*Crosswalk
	for _, c := range r.All() {
		if slices.Contains(c.TemplatePaths(), path) {
			using = append(using, c)
		}
	}
	return using
}

// Dirs returns the directories holding template files, sorted.
func (r *Registry) Dirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, c := range r.All() {
		for _, p := range c.TemplatePaths() {
			dir := filepath.Dir(p)
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	sort.Strings(dirs)
	return dirs
}
