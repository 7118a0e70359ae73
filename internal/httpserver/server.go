package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/n2kbridge/internal/domain"
)

type clientLister interface {
	Clients(ctx context.Context) ([]domain.ClientInfo, error)
}

// Server is the admin HTTP surface: health probes, build info, the live
// client list and Prometheus metrics.
type Server struct {
	echo  *echo.Echo
	addr  string
	clock clockwork.Clock

	clients      clientLister
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(addr string, clients clientLister, clock clockwork.Clock, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		addr:         addr,
		clock:        clock,
		clients:      clients,
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting admin server", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil {
		return fmt.Errorf("failed to start admin server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown admin server: %w", err)
	}
	return nil
}
