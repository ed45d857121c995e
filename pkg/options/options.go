package options

import (
	"maps"
	"sync"
)

// Extension names a function that mutates the template environment before a
// render. File identifies where the function lives; in-process renders look
// the pair up in an extension registry, the exec bridge forwards it verbatim.
type Extension struct {
	File string `json:"file" yaml:"file"`
	Func string `json:"func" yaml:"func"`
}

// Options is the record merged from process defaults and call-time values on
// every render.
type Options struct {
	// Root is the directory includes and extends resolve against. When empty
	// the directory of the entry template is used.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
	// Extensions run in order against the environment before rendering.
	Extensions []Extension `json:"extensions,omitempty" yaml:"extensions,omitempty"`
	// Context holds the variables exposed to the template.
	Context map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	// Aliases maps a namespace (used as "@name/file.twig") to a directory.
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Clone returns a copy that shares no slices or maps with o. Context values
// themselves are not deep-copied.
func (o Options) Clone() Options {
	out := Options{Root: o.Root}
	if o.Extensions != nil {
		out.Extensions = append(make([]Extension, 0, len(o.Extensions)), o.Extensions...)
	}
	if o.Context != nil {
		out.Context = maps.Clone(o.Context)
	}
	if o.Aliases != nil {
		out.Aliases = maps.Clone(o.Aliases)
	}
	return out
}

// Merge overlays override on base field by field. A field in override counts
// as set when it is non-empty (Root) or non-nil (everything else); set fields
// replace the base value wholesale. Neither argument is modified.
func Merge(base, override Options) Options {
	out := base.Clone()
	if override.Root != "" {
		out.Root = override.Root
	}
	if override.Extensions != nil {
		out.Extensions = append(make([]Extension, 0, len(override.Extensions)), override.Extensions...)
	}
	if override.Context != nil {
		out.Context = maps.Clone(override.Context)
	}
	if override.Aliases != nil {
		out.Aliases = maps.Clone(override.Aliases)
	}
	return out
}

// Defaults stores the options every render starts from. It is safe for
// concurrent use.
type Defaults struct {
	mu      sync.RWMutex
	initial Options
	current Options
}

// NewDefaults seeds a defaults store. Reset returns to initial.
func NewDefaults(initial Options) *Defaults {
	return &Defaults{
		initial: initial.Clone(),
		current: initial.Clone(),
	}
}

// Get returns a copy of the current defaults.
func (d *Defaults) Get() Options {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current.Clone()
}

// Apply merges o into the stored defaults and returns the result.
func (d *Defaults) Apply(o Options) Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = Merge(d.current, o)
	return d.current.Clone()
}

// Reset restores the options the store was created with.
func (d *Defaults) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = d.initial.Clone()
}
