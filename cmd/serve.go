package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/knowledge"
	"github.com/sells-group/compliance-cli/internal/metrics"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/pipeline"
	"github.com/sells-group/compliance-cli/internal/progress"
	"github.com/sells-group/compliance-cli/internal/resilience"
)

var servePort int

// checkRunner runs one compliance check. *pipeline.Pipeline satisfies it.
type checkRunner interface {
	Run(ctx context.Context, p model.BusinessProfile, sink progress.Sink) (*model.Result, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the compliance check HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := pipeline.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env, env.Knowledge, cfg.Server.AllowedOrigins, time.Duration(cfg.Server.RunTimeoutSecs)*time.Second),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the HTTP API. A nil runner answers checks with 503.
func buildRouter(runner checkRunner, kb *knowledge.Base, origins []string, runTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/checks", func(w http.ResponseWriter, req *http.Request) {
			if runner == nil {
				writeError(w, http.StatusServiceUnavailable, "compliance checks are not configured")
				return
			}
			var p model.BusinessProfile
			if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}

			ctx := req.Context()
			if runTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, runTimeout)
				defer cancel()
			}

			res, err := runner.Run(ctx, p, progress.LogSink{})
			if err != nil {
				zap.L().Warn("serve: compliance check failed",
					zap.String("request_id", middleware.GetReqID(req.Context())),
					zap.Error(err),
				)
				writeError(w, checkStatus(err), err.Error())
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/knowledge", func(w http.ResponseWriter, req *http.Request) {
			if kb == nil {
				writeError(w, http.StatusServiceUnavailable, "knowledge base is not loaded")
				return
			}
			q := req.URL.Query()
			if q.Get("state") == "" && q.Get("industry") == "" && q.Get("employees") == "" {
				writeJSON(w, http.StatusOK, kb.Entries())
				return
			}
			p := model.BusinessProfile{
				State:    q.Get("state"),
				City:     q.Get("city"),
				Industry: q.Get("industry"),
			}
			if s := q.Get("employees"); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil || n < 0 {
					writeError(w, http.StatusBadRequest, "employees must be a non-negative integer")
					return
				}
				p.EmployeeCount = n
			}
			writeJSON(w, http.StatusOK, kb.Applicable(p))
		})
	})

	return r
}

// checkStatus maps a fatal run error onto an HTTP status.
func checkStatus(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidProfile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoURLs):
		return http.StatusFailedDependency
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case resilience.IsAuth(err), errors.Is(err, pipeline.ErrMissingCredentials):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
