package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-twigview/pkg/extension"
	"github.com/goliatone/go-twigview/pkg/loader"
)

// ErrNilEnvironment is returned by methods called on a nil or unconfigured
// Environment.
var ErrNilEnvironment = errors.New("engine: environment is nil")

// Option configures an Environment before construction.
type Option func(*config)

type config struct {
	root       string
	paths      []string
	aliases    map[string]string
	globals    map[string]any
	debug      bool
	autoReload bool
	logger     *slog.Logger
}

// WithRoot sets the directory template names resolve against.
func WithRoot(dir string) Option {
	return func(cfg *config) {
		cfg.root = strings.TrimSpace(dir)
	}
}

// WithPaths appends extra main-namespace search paths searched after the
// root.
func WithPaths(dirs ...string) Option {
	return func(cfg *config) {
		for _, dir := range dirs {
			if trimmed := strings.TrimSpace(dir); trimmed != "" {
				cfg.paths = append(cfg.paths, trimmed)
			}
		}
	}
}

// WithAliases registers "@alias/" namespaces.
func WithAliases(aliases map[string]string) Option {
	return func(cfg *config) {
		if len(aliases) == 0 {
			return
		}
		if cfg.aliases == nil {
			cfg.aliases = make(map[string]string, len(aliases))
		}
		for alias, dir := range aliases {
			cfg.aliases[strings.TrimSpace(alias)] = dir
		}
	}
}

// WithGlobals seeds global context values available to every template.
func WithGlobals(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[strings.TrimSpace(key)] = value
		}
	}
}

// WithDebug recompiles file templates on every render and turns on pongo2's
// debug logging.
func WithDebug(debug bool) Option {
	return func(cfg *config) {
		cfg.debug = debug
	}
}

// WithAutoReload controls whether compiled templates are dropped when a file
// they were read from changes on disk. It is on by default; turn it off when
// something else, such as a Watcher, calls Invalidate.
func WithAutoReload(enabled bool) Option {
	return func(cfg *config) {
		cfg.autoReload = enabled
	}
}

// WithLogger sets the logger used for cache and registration events.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Environment is a pongo2 template set backed by an AliasLoader. It is the
// value handed to extensions.
type Environment struct {
	mu sync.RWMutex

	loader     *loader.AliasLoader
	set        *pongo2.TemplateSet
	templates  map[string]*pongo2.Template
	globals    pongo2.Context
	debug      bool
	autoReload bool
	logger     *slog.Logger
}

// Ensure Environment can be passed to extensions.
var _ extension.Environment = (*Environment)(nil)

// New constructs an Environment. The root directory must exist.
func New(options ...Option) (*Environment, error) {
	cfg := &config{
		autoReload: true,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	if cfg.root == "" && len(cfg.paths) == 0 && len(cfg.aliases) == 0 {
		return nil, errors.New("engine: need to provide a root directory, search paths or aliases")
	}

	var paths []string
	if cfg.root != "" {
		paths = append(paths, cfg.root)
	}
	paths = append(paths, cfg.paths...)
	for _, dir := range paths {
		if err := checkDir(dir); err != nil {
			return nil, err
		}
	}

	env := &Environment{
		loader:     loader.NewAliasLoader(paths, cfg.aliases),
		templates:  make(map[string]*pongo2.Template),
		globals:    make(pongo2.Context),
		debug:      cfg.debug,
		autoReload: cfg.autoReload,
		logger:     cfg.logger,
	}
	env.set = env.newSet()
	registerDefaultFilters()

	for key, value := range cfg.globals {
		if err := env.AddGlobal(key, value); err != nil {
			return nil, fmt.Errorf("engine: apply global %q: %w", key, err)
		}
	}

	return env, nil
}

// Loader exposes the alias loader backing the environment.
func (e *Environment) Loader() *loader.AliasLoader {
	if e == nil {
		return nil
	}
	return e.loader
}

// Dirs lists every directory the loader searches, across namespaces.
func (e *Environment) Dirs() []string {
	if e == nil || e.loader == nil {
		return nil
	}
	var dirs []string
	for _, ns := range e.loader.Namespaces() {
		dirs = append(dirs, e.loader.Paths(ns)...)
	}
	return dirs
}

// Render executes the named template with data, writing the result to any
// provided writers as well.
func (e *Environment) Render(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", ErrNilEnvironment
	}

	tmpl, err := e.getTemplate(name)
	if err != nil {
		return "", err
	}

	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("engine: convert data: %w", err)
	}

	var buf bytes.Buffer

	e.mu.RLock()
	err = tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()

	if err != nil {
		return "", fmt.Errorf("engine: execute template %q: %w", name, err)
	}
	return writeAll(buf.String(), out)
}

// RenderString compiles and executes templateContent. Includes inside it
// resolve through the loader like any other template.
func (e *Environment) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.set == nil {
		return "", ErrNilEnvironment
	}

	e.mu.RLock()
	set := e.set
	e.mu.RUnlock()

	tmpl, err := set.FromString(templateContent)
	if err != nil {
		return "", fmt.Errorf("engine: parse template string: %w", err)
	}

	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("engine: convert data: %w", err)
	}

	var buf bytes.Buffer

	e.mu.RLock()
	err = tmpl.ExecuteWriter(viewContext, &buf)
	e.mu.RUnlock()

	if err != nil {
		return "", fmt.Errorf("engine: execute template string: %w", err)
	}
	return writeAll(buf.String(), out)
}

// AddFilter registers a filter. pongo2 filters are process-wide, so a name
// that already exists keeps its current implementation.
func (e *Environment) AddFilter(name string, fn extension.FilterFunc) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return errors.New("engine: filter name and function required")
	}
	if pongo2.FilterExists(trimmed) {
		e.logger.Debug("filter already registered, keeping existing", "filter", trimmed)
		return nil
	}
	if err := pongo2.RegisterFilter(trimmed, fn); err != nil {
		return fmt.Errorf("engine: register filter %q: %w", trimmed, err)
	}
	return nil
}

// AddFunction exposes a Go function to templates as a callable global.
func (e *Environment) AddFunction(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("engine: function name required")
	}
	if !isCallable(fn) {
		return fmt.Errorf("engine: %q is not a function", trimmed)
	}
	return e.setGlobal(trimmed, fn)
}

// AddGlobal exposes value to every template rendered by the environment.
func (e *Environment) AddGlobal(name string, value any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("engine: global name required")
	}
	converted, err := normalizeValue(value)
	if err != nil {
		return fmt.Errorf("engine: convert global %q: %w", trimmed, err)
	}
	return e.setGlobal(trimmed, converted)
}

// AddPath registers another search path under alias and drops compiled
// templates whose names may now resolve elsewhere.
func (e *Environment) AddPath(path, alias string) {
	if e == nil || e.loader == nil {
		return
	}
	e.loader.AddPath(path, alias)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates = make(map[string]*pongo2.Template)
	e.set = e.newSet()
}

// Invalidate drops compiled templates and cached lookups. Globals and search
// paths survive.
func (e *Environment) Invalidate() {
	if e == nil || e.loader == nil {
		return
	}
	e.reset()
	e.logger.Debug("template cache invalidated", "dirs", len(e.Dirs()))
}

func (e *Environment) reset() {
	e.loader.Invalidate()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates = make(map[string]*pongo2.Template)
	e.set = e.newSet()
}

func (e *Environment) setGlobal(name string, value any) error {
	if e == nil || e.set == nil {
		return ErrNilEnvironment
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.globals[name] = value
	e.set.Globals[name] = value
	return nil
}

// newSet builds a fresh template set sharing the environment globals. The
// caller must hold e.mu for writing, or be the constructor.
func (e *Environment) newSet() *pongo2.TemplateSet {
	set := pongo2.NewSet("twigview", e.loader)
	set.Debug = e.debug
	set.Globals = make(pongo2.Context, len(e.globals))
	set.Globals.Update(e.globals)
	return set
}

func (e *Environment) getTemplate(name string) (*pongo2.Template, error) {
	if e.debug {
		e.mu.Lock()
		defer e.mu.Unlock()

		tmpl, err := e.set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("engine: load template %q: %w", name, err)
		}
		return tmpl, nil
	}

	if e.autoReload && e.loader.Changed() {
		e.reset()
		e.logger.Debug("template files changed, recompiling", "template", name)
	}

	e.mu.RLock()
	if tmpl, ok := e.templates[name]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if tmpl, ok := e.templates[name]; ok {
		return tmpl, nil
	}

	tmpl, err := e.set.FromFile(name)
	if err != nil {
		return nil, fmt.Errorf("engine: load template %q: %w", name, err)
	}

	e.templates[name] = tmpl
	return tmpl, nil
}

func writeAll(rendered string, out []io.Writer) (string, error) {
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("engine: template directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("engine: template directory %q is not a directory", dir)
	}
	return nil
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}
