package gelly

import "sort"

// Factory builds a fresh handler for one tag invocation.
type Factory func() Tag

// Registry maps tag names to handler factories for one namespace. It is
// populated once at wiring time and read-only afterwards; resolution is a
// pure lookup.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register binds name to a factory. Later registrations replace earlier ones.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Resolve looks up the factory for name.
func (r *Registry) Resolve(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered tag names, sorted, for diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
