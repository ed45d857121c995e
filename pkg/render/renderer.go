package render

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/goliatone/go-twigview/pkg/engine"
	"github.com/goliatone/go-twigview/pkg/options"
)

// RenderFunc renders an entry template with options merged over the
// renderer defaults.
type RenderFunc func(ctx context.Context, entry string, opts options.Options) (string, error)

// Option configures a Renderer.
type Option func(*config)

type config struct {
	defaults  options.Options
	backend   Backend
	errorMode ErrorMode
	errorPage func(message string) string
	logger    *slog.Logger
	inProcess []InProcessOption
}

// WithDefaults seeds the options every render starts from.
func WithDefaults(defaults options.Options) Option {
	return func(cfg *config) {
		cfg.defaults = defaults
	}
}

// WithBackend replaces the in-process pongo2 backend.
func WithBackend(backend Backend) Option {
	return func(cfg *config) {
		if backend != nil {
			cfg.backend = backend
		}
	}
}

// WithErrorMode chooses between the error page and a returned error for
// template failures.
func WithErrorMode(mode ErrorMode) Option {
	return func(cfg *config) {
		cfg.errorMode = mode
	}
}

// WithErrorPage overrides the markup produced for template failures.
func WithErrorPage(page func(message string) string) Option {
	return func(cfg *config) {
		if page != nil {
			cfg.errorPage = page
		}
	}
}

// WithLogger sets the logger for the renderer and its default backend.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithInProcessOptions configures the default backend. Ignored when
// WithBackend supplies another one.
func WithInProcessOptions(opts ...InProcessOption) Option {
	return func(cfg *config) {
		cfg.inProcess = append(cfg.inProcess, opts...)
	}
}

// Renderer merges options and drives a Backend.
type Renderer struct {
	defaults  *options.Defaults
	backend   Backend
	errorMode ErrorMode
	errorPage func(message string) string
	logger    *slog.Logger
}

// New constructs a Renderer. Without WithBackend it renders in-process.
func New(opts ...Option) *Renderer {
	cfg := &config{
		errorMode: ErrorModePage,
		errorPage: ErrorPage,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	backend := cfg.backend
	if backend == nil {
		inProcess := append([]InProcessOption{WithBackendLogger(cfg.logger)}, cfg.inProcess...)
		backend = NewInProcess(inProcess...)
	}

	return &Renderer{
		defaults:  options.NewDefaults(cfg.defaults),
		backend:   backend,
		errorMode: cfg.errorMode,
		errorPage: cfg.errorPage,
		logger:    cfg.logger,
	}
}

// Defaults exposes the defaults store shared by every render.
func (r *Renderer) Defaults() *options.Defaults {
	return r.defaults
}

// Backend returns the configured backend.
func (r *Renderer) Backend() Backend {
	return r.backend
}

// RenderFile merges opts over the defaults and renders entry. Backend
// failures are returned as is. Template failures become the error page unless
// the renderer runs in ErrorModeReturn. Trailing whitespace is trimmed from
// the output.
func (r *Renderer) RenderFile(ctx context.Context, entry string, opts options.Options) (string, error) {
	merged := options.Merge(r.defaults.Get(), opts)

	start := time.Now()
	out, err := r.backend.Render(ctx, entry, merged)
	if err != nil {
		var tplErr *TemplateError
		if r.errorMode == ErrorModePage && errors.As(err, &tplErr) {
			r.logger.Warn("template failed, serving error page", "entry", entry, "error", tplErr.Message())
			return trimTrailing(r.errorPage(tplErr.Message())), nil
		}
		r.logger.Debug("render failed", "entry", entry, "error", err)
		return "", err
	}

	r.logger.Debug("rendered", "entry", entry, "root", merged.Root, "duration", time.Since(start))
	return trimTrailing(out), nil
}

// CreateEngine merges opts into the defaults, replacing them, and returns the
// render function. The new defaults apply to every later render.
func (r *Renderer) CreateEngine(opts options.Options) RenderFunc {
	r.defaults.Apply(opts)
	return r.RenderFile
}

// Invalidate drops backend caches when the backend keeps any.
func (r *Renderer) Invalidate() {
	if inv, ok := r.backend.(engine.Invalidator); ok {
		inv.Invalidate()
	}
}

func trimTrailing(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
