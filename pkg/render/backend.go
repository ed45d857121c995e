package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-twigview/pkg/engine"
	"github.com/goliatone/go-twigview/pkg/extension"
	"github.com/goliatone/go-twigview/pkg/loader"
	"github.com/goliatone/go-twigview/pkg/options"
)

// Backend produces markup for an entry template using fully merged options.
// Template failures are reported as *TemplateError; any other error is a
// failure of the backend itself.
type Backend interface {
	Render(ctx context.Context, entry string, opts options.Options) (string, error)
}

// InProcessOption configures an InProcess backend.
type InProcessOption func(*InProcess)

// WithExtensionRegistry sets the registry extensions are looked up in.
func WithExtensionRegistry(reg *extension.Registry) InProcessOption {
	return func(p *InProcess) {
		if reg != nil {
			p.registry = reg
		}
	}
}

// WithEngineDebug makes every environment recompile templates on each render.
func WithEngineDebug(debug bool) InProcessOption {
	return func(p *InProcess) {
		p.debug = debug
	}
}

// WithAutoReload controls whether environments recompile templates whose
// files changed since they were read. On by default.
func WithAutoReload(enabled bool) InProcessOption {
	return func(p *InProcess) {
		p.autoReload = enabled
	}
}

// WithBackendLogger sets the logger handed to environments.
func WithBackendLogger(logger *slog.Logger) InProcessOption {
	return func(p *InProcess) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// InProcess renders with pongo2 in the calling process. Environments are
// cached per root, alias set and extension list; extensions run once when
// their environment is built. Edited template files are picked up on the
// next render unless auto reload is turned off.
type InProcess struct {
	mu         sync.Mutex
	envs       map[string]*engine.Environment
	registry   *extension.Registry
	debug      bool
	autoReload bool
	logger     *slog.Logger
}

// Ensure InProcess satisfies the backend and watcher contracts.
var (
	_ Backend            = (*InProcess)(nil)
	_ engine.Invalidator = (*InProcess)(nil)
)

// NewInProcess constructs the default backend.
func NewInProcess(opts ...InProcessOption) *InProcess {
	p := &InProcess{
		envs:       make(map[string]*engine.Environment),
		registry:   extension.DefaultRegistry,
		autoReload: true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Render resolves the template name relative to the root and executes it.
func (p *InProcess) Render(ctx context.Context, entry string, opts options.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rootDir, name := loader.EntryName(opts.Root, entry)

	env, err := p.environment(rootDir, opts)
	if err != nil {
		return "", err
	}

	out, err := env.Render(name, opts.Context)
	if err != nil {
		return "", &TemplateError{Entry: entry, Err: err}
	}
	return out, nil
}

// Invalidate drops every cached environment. The next render rebuilds them
// and runs their extensions again.
func (p *InProcess) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("dropping cached environments", "count", len(p.envs))
	p.envs = make(map[string]*engine.Environment)
}

func (p *InProcess) environment(rootDir string, opts options.Options) (*engine.Environment, error) {
	key, err := environmentKey(rootDir, opts)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if env, ok := p.envs[key]; ok {
		return env, nil
	}

	env, err := engine.New(
		engine.WithRoot(rootDir),
		engine.WithAliases(opts.Aliases),
		engine.WithDebug(p.debug),
		engine.WithAutoReload(p.autoReload),
		engine.WithLogger(p.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("render: create environment: %w", err)
	}
	if err := extension.Invoke(p.registry, opts.Extensions, env); err != nil {
		return nil, fmt.Errorf("render: invoke extensions: %w", err)
	}

	p.envs[key] = env
	return env, nil
}

func environmentKey(rootDir string, opts options.Options) (string, error) {
	b, err := json.Marshal(struct {
		Root       string              `json:"root"`
		Aliases    map[string]string   `json:"aliases"`
		Extensions []options.Extension `json:"extensions"`
	}{rootDir, opts.Aliases, opts.Extensions})
	if err != nil {
		return "", fmt.Errorf("render: environment key: %w", err)
	}
	return string(b), nil
}
