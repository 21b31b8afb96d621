// Package discovery resolves named search configurations and runs the
// scoped queries that find records related to a given record.
package discovery

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/refer/item"
)

// Sort orders search results by the first value of a metadata field.
type Sort struct {
	Field string `yaml:"field" json:"field"`
	// Order is "asc" (default) or "desc".
	Order string `yaml:"order,omitempty" json:"order,omitempty"`
}

// Descending reports whether the sort order is descending.
func (s *Sort) Descending() bool {
	return s != nil && (s.Order == "desc" || s.Order == "DESC")
}

// Configuration is a named search configuration.
type Configuration struct {
	// ID identifies the configuration in queries. Defaults to its name.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	// DefaultFilterQueries are filter templates applied to every query run
	// with this configuration. {0} is replaced by the scope record ID.
	DefaultFilterQueries []string `yaml:"default_filter_queries,omitempty" json:"default_filter_queries,omitempty"`

	// Sort is the default result order.
	Sort *Sort `yaml:"sort,omitempty" json:"sort,omitempty"`
}

// ConfigurationService looks configurations up by name or scope.
type ConfigurationService interface {
	// ByNameOrScope returns the configuration registered under name, or the
	// one bound to the scope record, or nil.
	ByNameOrScope(name string, scope *item.Item) *Configuration
}

// Registry is an in-memory ConfigurationService.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*Configuration
	scopes  map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[string]*Configuration),
		scopes:  make(map[string]string),
	}
}

// Register adds a configuration under name.
func (r *Registry) Register(name string, c *Configuration) {
	if c.ID == "" {
		c.ID = name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = c
}

// BindScope makes the configuration named name the one used for records
// with the given ID when no configuration matches by name.
func (r *Registry) BindScope(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[id] = name
}

// Get retrieves a configuration by name.
func (r *Registry) Get(name string) (*Configuration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[name]
	return c, ok
}

// ByNameOrScope implements ConfigurationService.
func (r *Registry) ByNameOrScope(name string, scope *item.Item) *Configuration {
	if c, ok := r.Get(name); ok {
		return c
	}
	if scope == nil {
		return nil
	}
	r.mu.RLock()
	bound, ok := r.scopes[scope.ID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	c, _ := r.Get(bound)
	return c
}

// Names returns the registered configuration names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type registryFile struct {
	Configurations map[string]*Configuration `yaml:"configurations"`
	Scopes         map[string]string         `yaml:"scopes,omitempty"`
}

// LoadFile loads search configurations from a YAML file:
//
//	configurations:
//	  RELATION.Person.researchoutputs:
//	    default_filter_queries:
//	      - "dc.contributor.author:{0}"
//	    sort: {field: dc.date.issued, order: desc}
//	scopes:
//	  <record id>: RELATION.Person.researchoutputs
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading discovery file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes loads search configurations from YAML bytes.
func LoadBytes(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing discovery YAML: %w", err)
	}

	r := NewRegistry()
	for name, c := range f.Configurations {
		if c == nil {
			c = &Configuration{}
		}
		for _, fq := range c.DefaultFilterQueries {
			if _, err := ParseFilter(FormatFilter(fq, "x")); err != nil {
				return nil, fmt.Errorf("configuration %s: %w", name, err)
			}
		}
		r.Register(name, c)
	}
	for id, name := range f.Scopes {
		if _, ok := r.Get(name); !ok {
			return nil, fmt.Errorf("scope %s: unknown configuration %s", id, name)
		}
		r.BindScope(id, name)
	}
	return r, nil
}
