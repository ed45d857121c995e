package bridge_test

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigview/pkg/bridge"
	"github.com/goliatone/go-twigview/pkg/options"
	"github.com/goliatone/go-twigview/pkg/render"
	"github.com/goliatone/go-twigview/pkg/testsupport"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExec_SendsRequestOnStdin(t *testing.T) {
	requireShell(t)

	x := &bridge.Exec{Name: "cat"}
	opts := options.Options{
		Root:       "/views",
		Extensions: []options.Extension{{File: "ext.php", Func: "setup"}},
		Context:    map[string]any{"name": "Ada"},
	}

	out, err := x.Render(testsupport.Context(), "/views/index.twig", opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	var got bridge.Request
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode echoed request: %v", err)
	}
	want := bridge.Request{Entry: "/views/index.twig", Options: opts}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestExec_FailureCarriesStderrAndExitCode(t *testing.T) {
	requireShell(t)

	x := &bridge.Exec{Name: "sh", Args: []string{"-c", "echo 'php: fatal' >&2; exit 3"}}

	_, err := x.Render(testsupport.Context(), "index.twig", options.Options{})
	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("expected bridge.Error, got %v", err)
	}
	if bridgeErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", bridgeErr.ExitCode)
	}
	if !strings.Contains(bridgeErr.Error(), "php: fatal") {
		t.Fatalf("stderr missing from error: %v", bridgeErr)
	}
}

func TestExec_SpawnFailure(t *testing.T) {
	x := &bridge.Exec{Name: "twigview-definitely-missing-binary"}

	_, err := x.Render(testsupport.Context(), "index.twig", options.Options{})
	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("expected bridge.Error, got %v", err)
	}
	if bridgeErr.ExitCode != -1 {
		t.Fatalf("expected -1 exit code for spawn failure, got %d", bridgeErr.ExitCode)
	}
}

func TestExec_AsRendererBackend(t *testing.T) {
	requireShell(t)

	x := &bridge.Exec{Name: "sh", Args: []string{"-c", "printf '<p>remote</p>\\n\\n'"}}
	r := render.New(render.WithBackend(x))

	out, err := r.RenderFile(testsupport.Context(), "index.twig", options.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<p>remote</p>" {
		t.Fatalf("unexpected output %q", out)
	}

	failing := &bridge.Exec{Name: "sh", Args: []string{"-c", "exit 1"}}
	_, err = render.New(render.WithBackend(failing)).RenderFile(testsupport.Context(), "index.twig", options.Options{})
	var bridgeErr *bridge.Error
	if !errors.As(err, &bridgeErr) {
		t.Fatalf("expected bridge failure to reach the caller, got %v", err)
	}
}

func TestCommand_RequiresName(t *testing.T) {
	if _, err := bridge.Command("   "); err == nil {
		t.Fatalf("expected error for empty command")
	}
	x, err := bridge.Command("php bridge/twig.php")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if x.Name != "php" || len(x.Args) != 1 || x.Args[0] != "bridge/twig.php" {
		t.Fatalf("unexpected command %+v", x)
	}
}
