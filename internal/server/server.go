package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/webpods/webpods/internal/api"
	"github.com/webpods/webpods/internal/auth"
	"github.com/webpods/webpods/internal/config"
	"github.com/webpods/webpods/internal/engine"
	"github.com/webpods/webpods/internal/ratelimit"
)

// Server owns the HTTP listener. The request handler reads config through
// an atomic pointer, so most settings apply to in-flight traffic without a
// restart; a verifier change swaps the handler wholesale.
type Server struct {
	cfg        atomic.Value
	engine     *engine.Engine
	limiter    ratelimit.Limiter
	handler    *swapHandler
	httpServer *http.Server
}

func New(cfg *config.Config, eng *engine.Engine, verifier *auth.Verifier, limiter ratelimit.Limiter) *Server {
	s := &Server{engine: eng, limiter: limiter}
	s.cfg.Store(cfg)
	configProvider := func() *config.Config { return s.cfg.Load().(*config.Config) }

	s.handler = newSwapHandler(api.NewHandler(configProvider, eng, verifier, limiter))
	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// UpdateConfig swaps the active config and, when a new verifier is given,
// rebuilds the handler around it.
func (s *Server) UpdateConfig(cfg *config.Config, verifier *auth.Verifier) {
	if cfg == nil {
		return
	}
	s.cfg.Store(cfg)
	if verifier != nil {
		configProvider := func() *config.Config { return s.cfg.Load().(*config.Config) }
		s.handler.Swap(api.NewHandler(configProvider, s.engine, verifier, s.limiter))
	}
}
