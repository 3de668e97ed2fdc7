package formula

import (
	"sort"
	"sync"
)

// Registry holds named custom formulas. It is safe for concurrent use.
// Built-in names are always resolvable and cannot be registered over.
type Registry struct {
	mu      sync.RWMutex
	formula map[string]Formula
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{formula: make(map[string]Formula)}
}

// Default is the process-wide registry used when none is injected.
var Default = NewRegistry()

// Register adds a named formula. fn is anything FromFunc accepts.
func (r *Registry) Register(name string, fn interface{}) error {
	if name == "" {
		return formulaError("formula name must not be empty")
	}
	f, err := FromFunc(fn)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if IsBuiltin(name) {
		return formulaError("%s is a built-in formula", name)
	}
	if _, exists := r.formula[name]; exists {
		return formulaError("formula %s is already registered", name)
	}
	r.formula[name] = f
	return nil
}

// Unregister removes a named formula.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formula[name]; !exists {
		if IsBuiltin(name) {
			return formulaError("built-in formula %s cannot be unregistered", name)
		}
		return formulaError("formula %s is not registered", name)
	}
	delete(r.formula, name)
	return nil
}

// IsRegistered reports whether name resolves to a formula.
func (r *Registry) IsRegistered(name string) bool {
	if IsBuiltin(name) {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.formula[name]
	return ok
}

// Names lists the custom formula names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.formula))
	for name := range r.formula {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Resolve turns a formula reference into a Formula. v is a built-in or
// registered name, or a function FromFunc accepts.
func (r *Registry) Resolve(v interface{}) (Formula, error) {
	name, ok := v.(string)
	if !ok {
		return FromFunc(v)
	}
	if f, found := builtins[name]; found {
		return f, nil
	}

	r.mu.RLock()
	f, found := r.formula[name]
	r.mu.RUnlock()
	if !found {
		return nil, formulaError("unknown formula %q", name)
	}
	return f, nil
}
