package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/arbiter"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/fetcher"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/model"
	"github.com/ftsl575/jarvis.hpe-v1.0.0/internal/partnum"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		handler := newRouter(&api{
			resolver:   env.Orchestrator,
			aggregator: env.Aggregator,
			arbiter:    env.Arbiter,
			live:       cfg.Fetch.Live,
		}, cfg.Server.CORSOrigins)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port), zap.Bool("live", cfg.Fetch.Live))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type partResolver interface {
	Resolve(ctx context.Context, raw string) (*model.Row, error)
}

type partAggregator interface {
	Aggregate(ctx context.Context, pn model.PartNumber) model.AggregateRow
}

type evidenceArbiter interface {
	Arbitrate(ctx context.Context, ev arbiter.Evidence) model.Verdict
}

// api serves the HTTP endpoints over the resolution engines.
type api struct {
	resolver   partResolver
	aggregator partAggregator
	arbiter    evidenceArbiter
	// live is the server-wide setting; ?live=1 cannot exceed it.
	live bool
}

func newRouter(a *api, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", a.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/part", a.part)
		r.Post("/part/verify", a.verify)
		r.Get("/aggregate", a.aggregate)
	})

	return otelhttp.NewHandler(r, "partsurfer")
}

// requestLogger logs method, path, status and duration for every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) part(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("pn"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, model.CodeInvalidPartNumber, "pn is required")
		return
	}
	ctx, ok := a.liveContext(w, r)
	if !ok {
		return
	}

	row, err := a.resolver.Resolve(ctx, raw)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type verifyRequest struct {
	SKU         string `json:"sku"`
	HTML        string `json:"html"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (a *api) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	v := a.arbiter.Arbitrate(r.Context(), arbiter.Evidence{
		HTML:                 req.HTML,
		ExpectedSKU:          req.SKU,
		CandidateTitle:       req.Title,
		CandidateDescription: req.Description,
		URL:                  req.URL,
	})
	writeJSON(w, http.StatusOK, v)
}

func (a *api) aggregate(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("pn"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, model.CodeInvalidPartNumber, "pn is required")
		return
	}
	pn, err := partnum.Normalize(raw)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, ok := a.liveContext(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.aggregator.Aggregate(ctx, pn))
}

// liveContext applies the ?live= override. Asking for live access on a
// server configured offline is answered with 503.
func (a *api) liveContext(w http.ResponseWriter, r *http.Request) (context.Context, bool) {
	ctx := r.Context()
	switch strings.ToLower(r.URL.Query().Get("live")) {
	case "1", "true":
		if !a.live {
			writeError(w, http.StatusServiceUnavailable, model.CodeLiveModeDisabled, "live mode is disabled on this server")
			return nil, false
		}
		return fetcher.WithLive(ctx, true), true
	case "0", "false":
		return fetcher.WithLive(ctx, false), true
	}
	return ctx, true
}

func writeErr(w http.ResponseWriter, err error) {
	code := model.Code(err)
	status := http.StatusBadGateway
	msg := "upstream lookup failed"
	switch code {
	case model.CodeInvalidPartNumber:
		status, msg = http.StatusBadRequest, "invalid part number"
	case model.CodeLiveModeDisabled:
		status, msg = http.StatusServiceUnavailable, "live mode is disabled"
	}
	zap.L().Warn("api error", zap.String("code", code), zap.Error(err))
	writeError(w, status, code, msg)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
