package view

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-twigview/pkg/engine"
	"github.com/goliatone/go-twigview/pkg/options"
	"github.com/goliatone/go-twigview/pkg/render"
)

// DefaultExtension is appended to view names without one.
const DefaultExtension = ".twig"

// Option configures an Engine.
type Option func(*Engine)

// WithExtension overrides the template extension appended to view names.
func WithExtension(ext string) Option {
	return func(e *Engine) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		e.ext = trimmed
	}
}

// WithContentType overrides the Content-Type written by handlers.
func WithContentType(contentType string) Option {
	return func(e *Engine) {
		if contentType != "" {
			e.contentType = contentType
		}
	}
}

// Engine renders views below a directory through a Renderer.
type Engine struct {
	renderer    *render.Renderer
	dir         string
	ext         string
	contentType string
}

// New returns an Engine rendering views found in dir. dir also acts as the
// template root unless the renderer defaults set one.
func New(renderer *render.Renderer, dir string, opts ...Option) *Engine {
	e := &Engine{
		renderer:    renderer,
		dir:         dir,
		ext:         DefaultExtension,
		contentType: "text/html; charset=utf-8",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Path maps a view name to its template file.
func (e *Engine) Path(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(name)), "/")
	if filepath.Ext(name) == "" {
		name += e.ext
	}
	if filepath.IsAbs(name) || e.dir == "" {
		return filepath.FromSlash(name)
	}
	return filepath.Join(e.dir, filepath.FromSlash(name))
}

// Render writes the named view to w. data may be a map, an options.Options
// or anything that marshals to a JSON object.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	return e.RenderContext(context.Background(), w, name, data)
}

// RenderContext is Render with a caller supplied context.
func (e *Engine) RenderContext(ctx context.Context, w io.Writer, name string, data any) error {
	opts, err := e.options(data)
	if err != nil {
		return err
	}
	out, err := e.renderer.RenderFile(ctx, e.Path(name), opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// Handler serves the named view. data builds the template context per
// request and may be nil.
func (e *Engine) Handler(name string, data func(*http.Request) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload any
		if data != nil {
			var err error
			payload, err = data(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		var buf strings.Builder
		if err := e.RenderContext(r.Context(), &buf, name, payload); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", e.contentType)
		_, _ = io.WriteString(w, buf.String())
	})
}

func (e *Engine) options(data any) (options.Options, error) {
	opts := options.Options{}
	if !e.hasDefaultRoot() {
		opts.Root = e.dir
	}

	switch v := data.(type) {
	case nil:
		return opts, nil
	case options.Options:
		return options.Merge(opts, v), nil
	case *options.Options:
		if v == nil {
			return opts, nil
		}
		return options.Merge(opts, *v), nil
	case map[string]any:
		opts.Context = v
		return opts, nil
	default:
		vars, err := engine.NormalizeContext(v)
		if err != nil {
			return options.Options{}, fmt.Errorf("view: convert data: %w", err)
		}
		opts.Context = vars
		return opts, nil
	}
}

func (e *Engine) hasDefaultRoot() bool {
	return e.renderer.Defaults().Get().Root != ""
}
