package provider

import (
	"fmt"
	"sort"

	"github.com/pixelwanderer/server/internal/tile"
)

// DefaultName is the provider used when a request does not pick one.
const DefaultName = "dalle"

// Registry maps provider names onto the closed set of registered variants.
type Registry struct {
	defaultName string
	providers   map[string]Provider
}

// NewRegistry builds a registry over the given providers. defaultName must
// be one of them; an empty defaultName falls back to DefaultName.
func NewRegistry(defaultName string, providers ...Provider) (*Registry, error) {
	if defaultName == "" {
		defaultName = DefaultName
	}
	r := &Registry{
		defaultName: defaultName,
		providers:   make(map[string]Provider, len(providers)),
	}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.Name())
		}
		r.providers[p.Name()] = p
	}
	if _, ok := r.providers[defaultName]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultName)
	}
	return r, nil
}

// Resolve returns the provider for name, or the default when name is empty.
// Unknown names fail with tile.ErrUnsupportedProvider.
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", tile.ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
