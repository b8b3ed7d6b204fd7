package api

import (
	"context"
	"net/http"
	"time"

	"pastabin/cfg"
	"pastabin/svc/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
)

// Pinger reports whether the storage backend is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	name       string
	router     *chi.Mux
	backend    Pinger
	httpServer *http.Server
}

// NewServer serves pastes. Every path is handed to the dispatcher, so
// operational endpoints live on the admin server instead.
func NewServer(c *cfg.Cfg, d *Dispatcher) *Server {
	r := chi.NewRouter()
	mw := NewMw()
	r.Use(mw.RequestID)
	r.Use(mw.Recoverer)
	r.Use(hlog.NewHandler(util.GetLogger()))
	r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, dur time.Duration) {
		hlog.FromRequest(req).Info().
			Str("method", req.Method).
			Str("target", util.RedactQuery(req.URL.RequestURI())).
			Int("status", status).
			Int("size", size).
			Dur("duration", dur).
			Str("client_ip", util.RedactIP(req.RemoteAddr)).
			Str("request_id", util.GetRequestID(req.Context())).
			Msg("http request")
	}))
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Metrics)
	hdl := NewHdl(d)
	r.Handle("/", hdl)
	r.Handle("/*", hdl)
	r.NotFound(hdl.ServeHTTP)
	r.MethodNotAllowed(hdl.ServeHTTP)
	s := newServer("paste", c.Port, nil, c)
	s.setRouter(r)
	return s
}

// NewAdminServer serves health, readiness, metrics and pprof.
func NewAdminServer(c *cfg.Cfg, backend Pinger) *Server {
	s := newServer("admin", c.AdminPort, backend, c)
	r := chi.NewRouter()
	mw := NewMw()
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Get("/health", s.Health)
		r.Get("/ready", s.Ready)
		r.Handle("/metrics", promhttp.Handler())
	})
	r.Mount("/debug", middleware.Profiler())
	s.setRouter(r)
	return s
}

func newServer(name, port string, backend Pinger, c *cfg.Cfg) *Server {
	return &Server{
		name:    name,
		backend: backend,
		httpServer: &http.Server{
			Addr:           ":" + port,
			ReadTimeout:    c.ReadTimeout,
			WriteTimeout:   c.WriteTimeout,
			IdleTimeout:    c.IdleTimeout,
			MaxHeaderBytes: 256 * 1024,
		},
	}
}
func (s *Server) setRouter(r *chi.Mux) {
	s.router = r
	s.httpServer.Handler = r
}
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
func (s *Server) Start() error {
	util.Info().Str("server", s.name).Str("addr", s.httpServer.Addr).Msg("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		util.Error().Err(err).Str("server", s.name).Msg("server failed to start")
		return err
	}
	return nil
}
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
