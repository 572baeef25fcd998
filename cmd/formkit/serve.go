package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	formkit "github.com/goliatone/go-formkit"
	"github.com/goliatone/go-formkit/pkg/controls/htmlcontrols"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/hosts/httpform"
)

const (
	shutdownTimeout = 5 * time.Second
	assetsPath      = "/assets/"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a form over HTTP",
	Long: `Starts an HTTP server that mounts one form instance per session. Accepted
submissions are printed as JSON lines on stdout. Prometheus metrics are exposed on
/metrics and the default stylesheet under /assets/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		prefix, _ := cmd.Flags().GetString("prefix")

		def, err := loadDefinition(cmd.Context(), readSourceFlags(cmd),
			formkit.WithKitOptions(htmlcontrols.WithStylesheets(assetsPath+formkit.StylesheetName)))
		if err != nil {
			return err
		}

		handler, err := newServeHandler(def, serveConfig{
			Prefix:   prefix,
			Logger:   logger,
			Registry: prometheus.NewRegistry(),
			Out:      cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("form server listening", "addr", srv.Addr, "prefix", prefix)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-cmd.Context().Done():
			logger.Info("shutting down form server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("prefix", "/form", "Path the form is served under")
}

type serveConfig struct {
	Prefix   string
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Out      io.Writer
}

// newServeHandler mounts the form server under cfg.Prefix next to /metrics and
// the static assets. The root path redirects to the form.
func newServeHandler(def *formkit.Definition, cfg serveConfig) (http.Handler, error) {
	prefix := "/" + strings.Trim(cfg.Prefix, "/")
	if prefix == "/" {
		return nil, errors.New("--prefix must not be the root path")
	}
	cfg.Registry.MustRegister(collectors.NewGoCollector())

	var mu sync.Mutex
	encoder := json.NewEncoder(cfg.Out)
	submit := func(_ context.Context, model form.Record) error {
		mu.Lock()
		defer mu.Unlock()
		return encoder.Encode(model)
	}

	formServer, err := httpform.New(def.Form,
		httpform.WithLogger(cfg.Logger),
		httpform.WithRegisterer(cfg.Registry),
		httpform.WithName(strings.Trim(prefix, "/")),
		httpform.WithTitle(def.Title),
		httpform.WithMountOptions(def.MountOptions...),
		httpform.WithSeed(func(*http.Request) (form.Record, error) { return def.Seed, nil }),
		httpform.WithSubmitHandler(submit),
	)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	r.Handle(assetsPath+"*", http.StripPrefix(assetsPath, http.FileServerFS(formkit.Assets())))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, prefix, http.StatusFound)
	})
	r.Mount(prefix, formServer)
	return r, nil
}
