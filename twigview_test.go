package twigview_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	twigview "github.com/goliatone/go-twigview"
	"github.com/goliatone/go-twigview/pkg/testsupport"
)

func TestPackageLevelHelpers(t *testing.T) {
	root := testsupport.WriteTemplates(t, map[string]string{
		"index.twig": "{{ greeting }}, {{ name }}\n",
	})
	t.Cleanup(twigview.Default().Defaults().Reset)

	renderFn := twigview.CreateEngine(twigview.Options{
		Root:    root,
		Context: map[string]any{"greeting": "Hello", "name": "default"},
	})

	got, err := renderFn(context.Background(), filepath.Join(root, "index.twig"), twigview.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello, default" {
		t.Fatalf("unexpected output %q", got)
	}

	got, err = twigview.RenderFile(context.Background(), filepath.Join(root, "index.twig"), twigview.Options{
		Context: map[string]any{"greeting": "Hi", "name": "call"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hi, call" {
		t.Fatalf("unexpected output %q", got)
	}

	var buf bytes.Buffer
	if err := twigview.Express(root).Render(&buf, "index", map[string]any{"greeting": "Hey", "name": "view"}); err != nil {
		t.Fatalf("express render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Hey, view" {
		t.Fatalf("unexpected view output %q", buf.String())
	}
}
