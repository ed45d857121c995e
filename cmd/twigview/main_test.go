package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-twigview/pkg/render"
	"github.com/goliatone/go-twigview/pkg/testsupport"
	"github.com/goliatone/go-twigview/pkg/view"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRenderCommandStdout(t *testing.T) {
	dir := testsupport.WriteTemplates(t, map[string]string{
		"page.twig": "Hello {{ name }} from {{ site }}",
	})

	out, err := runCLI(t, "render", filepath.Join(dir, "page.twig"), "--set", "name=Ada", "--set", "site=docs")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Ada from docs\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderCommandConfigAndOutputFile(t *testing.T) {
	dir := testsupport.WriteTemplates(t, map[string]string{
		"views/page.twig":       `{% include "@shared/footer.twig" %}`,
		"shared/footer.twig":    "footer {{ year }}",
		"twigview.yaml":         "aliases:\n  shared: shared\ncontext:\n  year: 2024\n",
		"context/override.yaml": "year: 2025\n",
	})
	target := filepath.Join(dir, "out.html")

	_, err := runCLI(t,
		"render", filepath.Join(dir, "views", "page.twig"),
		"--config", filepath.Join(dir, "twigview.yaml"),
		"--context", filepath.Join(dir, "context", "override.yaml"),
		"--output", target,
	)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if got := string(data); got != "footer 2025\n" {
		t.Fatalf("unexpected file contents %q", got)
	}
}

func TestRenderCommandErrorPage(t *testing.T) {
	dir := testsupport.WriteTemplates(t, map[string]string{
		"broken.twig": "{% if %}",
	})

	out, err := runCLI(t, "render", filepath.Join(dir, "broken.twig"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `class="error"`) {
		t.Fatalf("expected error page, got %q", out)
	}
}

func TestRenderCommandStrict(t *testing.T) {
	dir := testsupport.WriteTemplates(t, map[string]string{
		"broken.twig": "{% if %}",
	})

	if _, err := runCLI(t, "render", "--strict", filepath.Join(dir, "broken.twig")); err == nil {
		t.Fatalf("expected strict render to fail")
	}
}

func TestRenderCommandRejectsMalformedFlags(t *testing.T) {
	dir := testsupport.WriteTemplates(t, map[string]string{"page.twig": "x"})
	entry := filepath.Join(dir, "page.twig")

	if _, err := runCLI(t, "render", entry, "--set", "novalue"); err == nil {
		t.Fatalf("expected --set without '=' to fail")
	}
	if _, err := runCLI(t, "render", entry, "--alias", "=dir"); err == nil {
		t.Fatalf("expected --alias without name to fail")
	}
}

func TestViewHandlerMapsPathsAndQuery(t *testing.T) {
	dir := testsupport.WriteTemplates(t, map[string]string{
		"index.twig": "home",
		"greet.twig": "hi {{ who }}{% for t in tag %} #{{ t }}{% endfor %}",
	})
	views := view.New(render.New(), dir)
	handler := viewHandler(views)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "home" {
		t.Fatalf("index: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/greet?who=ada&tag=a&tag=b", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hi ada #a #b" {
		t.Fatalf("greet: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/greet", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
