package extension

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-twigview/pkg/options"
)

// ErrNotFound reports an extension that was never registered.
var ErrNotFound = errors.New("extension: not found")

// FilterFunc is the pongo2 filter signature exposed to extensions.
type FilterFunc = pongo2.FilterFunction

// Environment is the surface an extension may mutate.
type Environment interface {
	AddFilter(name string, fn FilterFunc) error
	AddFunction(name string, fn any) error
	AddGlobal(name string, value any) error
	AddPath(path, alias string)
}

// Func receives the environment by reference and may change it freely.
type Func func(env Environment) error

// Registry stores extension functions by name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]Func),
	}
}

// DefaultRegistry backs the package-level Register helpers and is what
// renderers use unless configured otherwise.
var DefaultRegistry = NewRegistry()

// Register adds fn under name. Duplicate names return an error.
func (r *Registry) Register(name string, fn Func) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("extension: name is required")
	}
	if fn == nil {
		return fmt.Errorf("extension: function for %q is required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("extension: %q already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Get retrieves an extension by name.
func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return fn, nil
}

// Lookup resolves an options entry, preferring the qualified "file#func" key
// over the bare function name.
func (r *Registry) Lookup(ext options.Extension) (Func, error) {
	if file := strings.TrimSpace(ext.File); file != "" {
		if fn, err := r.Get(Key(file, ext.Func)); err == nil {
			return fn, nil
		}
	}
	return r.Get(strings.TrimSpace(ext.Func))
}

// List returns a sorted list of extension names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an extension is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.funcs[name]
	return ok
}

// Key builds the qualified registry key for a file and function pair.
func Key(file, fn string) string {
	return strings.TrimSpace(file) + "#" + strings.TrimSpace(fn)
}

// Register adds fn to DefaultRegistry.
func Register(name string, fn Func) error {
	return DefaultRegistry.Register(name, fn)
}

// MustRegister adds fn to DefaultRegistry and panics on failure.
func MustRegister(name string, fn Func) {
	DefaultRegistry.MustRegister(name, fn)
}
