package provider

import (
	"fmt"
	"sort"

	"NoiseGate/internal/ports"
)

// Registry keeps a mapping from provider names to classifier implementations.
type Registry struct {
	classifiers map[string]ports.Classifier
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{classifiers: map[string]ports.Classifier{}}
}

// Register adds or replaces a classifier under name.
func (r *Registry) Register(name string, c ports.Classifier) {
	if r.classifiers == nil {
		r.classifiers = map[string]ports.Classifier{}
	}
	r.classifiers[name] = c
}

// Resolve returns the classifier registered as name.
func (r *Registry) Resolve(name string) (ports.Classifier, error) {
	if c, ok := r.classifiers[name]; ok && c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("classifier provider %q is not registered (known: %v)", name, r.Names())
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classifiers))
	for name := range r.classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
