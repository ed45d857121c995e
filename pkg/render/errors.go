package render

import (
	"errors"
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// ErrorMode decides what a template failure turns into.
type ErrorMode int

const (
	// ErrorModePage replaces the output with an HTML error page and reports
	// success.
	ErrorModePage ErrorMode = iota
	// ErrorModeReturn returns the *TemplateError to the caller.
	ErrorModeReturn
)

func (m ErrorMode) String() string {
	switch m {
	case ErrorModePage:
		return "page"
	case ErrorModeReturn:
		return "return"
	default:
		return fmt.Sprintf("ErrorMode(%d)", int(m))
	}
}

// TemplateError wraps a failure raised by the template engine itself: a
// missing template, a syntax error or an execution error. Failures of the
// surrounding plumbing are never wrapped in it.
type TemplateError struct {
	Entry string
	Err   error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("render: template %q: %v", e.Entry, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Message is the text shown on the error page. It prefers the engine's own
// message over the wrapping added on the way up.
func (e *TemplateError) Message() string {
	if e == nil || e.Err == nil {
		return ""
	}
	var perr *pongo2.Error
	if errors.As(e.Err, &perr) {
		return perr.Error()
	}
	return e.Err.Error()
}
