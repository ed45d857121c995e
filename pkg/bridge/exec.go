package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-twigview/pkg/options"
	"github.com/goliatone/go-twigview/pkg/render"
)

// Request is the payload written to the command's stdin.
type Request struct {
	Entry   string          `json:"entry"`
	Options options.Options `json:"options"`
}

// Error reports a command that could not be started or exited non-zero.
type Error struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("bridge: %s: %v", e.Command, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Exec is a render.Backend that runs Name with Args once per render.
type Exec struct {
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Logger *slog.Logger
}

// Ensure Exec can stand in for the in-process backend.
var _ render.Backend = (*Exec)(nil)

// Command builds an Exec from a shell-like command line split on spaces,
// e.g. "php bridge/twig.php".
func Command(line string) (*Exec, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("bridge: command is required")
	}
	return &Exec{Name: fields[0], Args: fields[1:]}, nil
}

// Render sends the request and returns stdout untouched.
func (x *Exec) Render(ctx context.Context, entry string, opts options.Options) (string, error) {
	const errCtx = "bridge: encode request"

	logger := x.Logger
	if logger == nil {
		logger = slog.Default()
	}

	payload, err := json.Marshal(Request{Entry: entry, Options: opts})
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	logger.Debug(
		"executing",
		"cmd", x.Name,
		"args", strings.Join(x.Args, " "),
		"entry", entry,
	)

	cmd := exec.CommandContext(ctx, x.Name, x.Args...)
	if x.Dir != "" {
		cmd.Dir = x.Dir
	}
	if len(x.Env) > 0 {
		cmd.Env = append(cmd.Environ(), x.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logger.Debug("bridge failed", "cmd", x.Name, "exit", exitCode, "stderr", stderr.String())
		return "", &Error{
			Command:  strings.TrimSpace(x.Name + " " + strings.Join(x.Args, " ")),
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	logger.Debug("output", "bytes", stdout.Len())
	return stdout.String(), nil
}
