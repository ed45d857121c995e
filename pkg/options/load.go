package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile decodes an options file. YAML and JSON are both accepted since
// JSON is valid YAML. Relative root and alias directories resolve against the
// directory holding the file.
func LoadFile(path string) (Options, error) {
	if strings.TrimSpace(path) == "" {
		return Options{}, errors.New("options: file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("options: read %q: %w", path, err)
	}

	opts, err := Decode(data)
	if err != nil {
		return Options{}, fmt.Errorf("options: decode %q: %w", path, err)
	}

	base := filepath.Dir(path)
	opts.Root = resolveDir(base, opts.Root)
	for alias, dir := range opts.Aliases {
		opts.Aliases[alias] = resolveDir(base, dir)
	}
	return opts, nil
}

// Decode parses options from YAML or JSON bytes without touching the
// filesystem.
func Decode(data []byte) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, err
	}
	for i, ext := range opts.Extensions {
		if strings.TrimSpace(ext.Func) == "" {
			return Options{}, fmt.Errorf("extension %d: func is required", i)
		}
	}
	return opts, nil
}

// LoadContext reads a YAML or JSON document holding template variables.
func LoadContext(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("options: read context %q: %w", path, err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("options: decode context %q: %w", path, err)
	}
	return out, nil
}

func resolveDir(base, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
