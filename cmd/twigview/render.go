package main

import (
	"fmt"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-twigview/pkg/options"
)

func newRenderCmd(flags *globalFlags) *cobra.Command {
	var (
		contextFile string
		sets        []string
		output      string
	)

	cmd := &cobra.Command{
		Use:   "render <entry>",
		Short: "Render a template file to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.logger()

			r, err := flags.renderer(logger)
			if err != nil {
				return err
			}

			vars, err := buildContext(contextFile, sets)
			if err != nil {
				return err
			}

			out, err := r.RenderFile(cmd.Context(), args[0], options.Options{Context: vars})
			if err != nil {
				return err
			}

			if output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}
			if err := atomic.WriteFile(output, strings.NewReader(out+"\n")); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info("rendered", "entry", args[0], "output", output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&contextFile, "context", "", "template variables file (YAML or JSON)")
	f.StringArrayVar(&sets, "set", nil, "template variable in KEY=VALUE format (repeatable)")
	f.StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

// buildContext returns nil when no variables were given so that the options
// file context stays in effect.
func buildContext(contextFile string, sets []string) (map[string]any, error) {
	if contextFile == "" && len(sets) == 0 {
		return nil, nil
	}

	vars := map[string]any{}
	if contextFile != "" {
		loaded, err := options.LoadContext(contextFile)
		if err != nil {
			return nil, err
		}
		vars = loaded
	}
	for _, pair := range sets {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("variable must be KEY=VALUE, got %s", pair)
		}
		vars[strings.TrimSpace(key)] = value
	}
	return vars, nil
}
