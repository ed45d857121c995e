package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-twigview/pkg/bridge"
	"github.com/goliatone/go-twigview/pkg/options"
	"github.com/goliatone/go-twigview/pkg/render"
)

var version = "dev"

type globalFlags struct {
	verbose bool
	config  string
	root    string
	aliases []string
	exec    string
	strict  bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "twigview",
		Short:         "Render Twig-style templates",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVarP(&flags.config, "config", "c", "", "options file (YAML or JSON)")
	pf.StringVar(&flags.root, "root", "", "template root directory")
	pf.StringArrayVar(&flags.aliases, "alias", nil, "template alias in NAME=DIR format (repeatable)")
	pf.StringVar(&flags.exec, "exec", "", "render through an external command instead of in-process")
	pf.BoolVar(&flags.strict, "strict", false, "fail on template errors instead of printing the error page")

	cmd.AddCommand(newRenderCmd(flags), newServeCmd(flags))
	return cmd
}

func (f *globalFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// defaults layers the options file under the command line flags.
func (f *globalFlags) defaults() (options.Options, error) {
	var opts options.Options
	if f.config != "" {
		loaded, err := options.LoadFile(f.config)
		if err != nil {
			return options.Options{}, err
		}
		opts = loaded
	}

	override := options.Options{Root: f.root}
	if len(f.aliases) > 0 {
		override.Aliases = make(map[string]string, len(opts.Aliases)+len(f.aliases))
		for alias, dir := range opts.Aliases {
			override.Aliases[alias] = dir
		}
		for _, pair := range f.aliases {
			name, dir, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(name) == "" {
				return options.Options{}, fmt.Errorf("alias must be NAME=DIR, got %s", pair)
			}
			override.Aliases[strings.TrimSpace(name)] = dir
		}
	}
	return options.Merge(opts, override), nil
}

func (f *globalFlags) renderer(logger *slog.Logger, extra ...render.Option) (*render.Renderer, error) {
	defaults, err := f.defaults()
	if err != nil {
		return nil, err
	}

	opts := []render.Option{
		render.WithDefaults(defaults),
		render.WithLogger(logger),
	}
	if f.strict {
		opts = append(opts, render.WithErrorMode(render.ErrorModeReturn))
	}
	if f.exec != "" {
		backend, err := bridge.Command(f.exec)
		if err != nil {
			return nil, err
		}
		backend.Logger = logger
		opts = append(opts, render.WithBackend(backend))
	}
	return render.New(append(opts, extra...)...), nil
}
