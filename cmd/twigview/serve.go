package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-twigview/pkg/engine"
	"github.com/goliatone/go-twigview/pkg/render"
	"github.com/goliatone/go-twigview/pkg/view"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr  string
		views string
		ext   string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve templates over HTTP, one view per path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := flags.logger()

			var extra []render.Option
			if watch {
				// The watcher invalidates caches itself.
				extra = append(extra, render.WithInProcessOptions(render.WithAutoReload(false)))
			}
			r, err := flags.renderer(logger, extra...)
			if err != nil {
				return err
			}
			engineViews := view.New(r, views, view.WithExtension(ext))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if watch {
				dirs := []string{views}
				defaults := r.Defaults().Get()
				if defaults.Root != "" && defaults.Root != views {
					dirs = append(dirs, defaults.Root)
				}
				for _, dir := range defaults.Aliases {
					dirs = append(dirs, dir)
				}
				w := engine.NewWatcher(r, dirs, logger)
				go func() {
					if err := w.Run(ctx); err != nil {
						logger.Error("template watcher stopped", "error", err)
					}
				}()
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           viewHandler(engineViews),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("serving templates", "addr", addr, "views", views)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.StringVar(&views, "views", "views", "views directory")
	f.StringVar(&ext, "ext", view.DefaultExtension, "template extension appended to view names")
	f.BoolVar(&watch, "watch", false, "drop template caches when files change")
	return cmd
}

// viewHandler renders GET /<name> with the query string as context. The root
// path maps to "index".
func viewHandler(views *view.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		name := strings.Trim(r.URL.Path, "/")
		if name == "" {
			name = "index"
		}
		views.Handler(name, queryContext).ServeHTTP(w, r)
	})
}

func queryContext(r *http.Request) (any, error) {
	vars := make(map[string]any, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			vars[key] = values[0]
			continue
		}
		list := make([]any, 0, len(values))
		for _, v := range values {
			list = append(list, v)
		}
		vars[key] = list
	}
	return vars, nil
}
