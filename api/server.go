package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vitwit/x402cats/logger"
	"github.com/vitwit/x402cats/metrics"
	"github.com/vitwit/x402cats/types"
	"github.com/vitwit/x402cats/utils"
)

// SchemaPath is where the payment-schema document is served.
const SchemaPath = "/api/x402"

type Option func(*handler)

func WithLogger(l logger.Logger) Option {
	return func(h *handler) {
		h.logger = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(h *handler) {
		h.metrics = r
	}
}

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *handler) {
		h.gatherer = g
	}
}

type handler struct {
	body     []byte
	logger   logger.Logger
	metrics  metrics.Recorder
	gatherer prometheus.Gatherer
}

// NewRouter serves doc on SchemaPath for GET and POST, answers OPTIONS
// with 200 and allows any origin.
func NewRouter(doc *types.X402Response, opts ...Option) (http.Handler, error) {
	if err := utils.ValidateX402Response(doc); err != nil {
		return nil, err
	}
	body, err := utils.SerializeX402Response(doc)
	if err != nil {
		return nil, err
	}

	h := &handler{
		body:    body,
		logger:  logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route(SchemaPath, func(r chi.Router) {
		r.Use(openCORS)
		r.Get("/", h.schema)
		r.Post("/", h.schema)
		r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	return r, nil
}

func (h *handler) schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.body); err != nil {
		h.logger.Warn("failed to write schema", map[string]any{"err": err})
		return
	}
	h.metrics.IncCounter(metrics.EventSchemaServed, map[string]string{"stage": r.Method})
}

// openCORS sets the CORS headers on every schema response, including
// requests that carry no Origin header.
func openCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		})
	})
}

// Server runs the router until its context ends.
type Server struct {
	srv    *http.Server
	logger logger.Logger
}

func NewServer(addr string, h http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("schema endpoint listening", map[string]any{"addr": s.srv.Addr})
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("schema endpoint stopped", nil)
	return nil
}
