// Package render is the entry point for rendering a template file. A Renderer
// owns the default options, merges call-time options over them, and hands
// the result to a Backend: pongo2 in-process by default, or an external
// process through the bridge package.
//
// Template failures (missing templates, syntax or execution errors) are
// turned into an HTML error page by default; everything else is returned to
// the caller untouched.
package render
