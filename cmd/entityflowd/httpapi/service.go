package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/event"
	"github.com/entityflow/entityflow/internal/execution"
	"github.com/entityflow/entityflow/internal/registry"
	"github.com/entityflow/entityflow/pkg/logging"
)

// Service owns the HTTP server's listen/shutdown lifecycle, the same
// start/stop shape as the teacher's httpapi.Service.
type Service struct {
	addr   string
	server *http.Server
	log    *logging.Logger
}

// NewService builds the router over the given runtime resources and
// wraps it in a Service ready for Start/Stop.
func NewService(addr string, reg *registry.Registry, callables *callable.Registry, eng *execution.Engine, bus *event.Bus, eventLog *event.Log) *Service {
	return &Service{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(reg, callables, eng, bus, eventLog),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // the event stream route holds its connection open indefinitely
		},
		log: logging.NewFromEnv("httpapi"),
	}
}

func (s *Service) Name() string { return "httpapi" }

// Start begins serving in the background; a non-shutdown error is
// logged rather than returned, since it surfaces on a goroutine no
// caller is blocked on.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server error")
		}
	}()
	return nil
}

// Stop gracefully drains in-flight requests until ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
