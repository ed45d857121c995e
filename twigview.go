// Package twigview renders Twig-style templates from Go. The package-level
// functions drive a process-wide default Renderer; build your own with New to
// keep defaults scoped to a component.
package twigview

import (
	"context"
	"sync"

	"github.com/goliatone/go-twigview/pkg/options"
	"github.com/goliatone/go-twigview/pkg/render"
	"github.com/goliatone/go-twigview/pkg/view"
)

// Options aliases options.Options so callers can stay on the root package.
type Options = options.Options

// Extension aliases options.Extension.
type Extension = options.Extension

// RenderFunc aliases render.RenderFunc.
type RenderFunc = render.RenderFunc

var (
	defaultOnce     sync.Once
	defaultRenderer *render.Renderer
)

// Default returns the process-wide renderer used by the package-level
// helpers.
func Default() *render.Renderer {
	defaultOnce.Do(func() {
		defaultRenderer = render.New()
	})
	return defaultRenderer
}

// New constructs an independent renderer.
func New(opts ...render.Option) *render.Renderer {
	return render.New(opts...)
}

// RenderFile renders entry with opts merged over the default renderer's
// options.
func RenderFile(ctx context.Context, entry string, opts Options) (string, error) {
	return Default().RenderFile(ctx, entry, opts)
}

// CreateEngine merges opts into the default renderer's options and returns
// RenderFile.
func CreateEngine(opts Options) RenderFunc {
	return Default().CreateEngine(opts)
}

// Express returns a view engine for viewsDir backed by the default renderer,
// ready to plug into a framework's Render(w, name, data) seam.
func Express(viewsDir string, opts ...view.Option) *view.Engine {
	return view.New(Default(), viewsDir, opts...)
}
