// Package view adapts a render.Renderer to the view-engine seams web
// frameworks expect: Render(w, name, data) and plain net/http handlers.
package view
