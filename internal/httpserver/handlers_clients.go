package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/n2kbridge/internal/domain"
)

type clientsResponse struct {
	Count   int                 `json:"count"`
	Clients []domain.ClientInfo `json:"clients"`
}

func (s *Server) handleClients(c echo.Context) error {
	clients, err := s.clients.Clients(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	}
	if clients == nil {
		clients = []domain.ClientInfo{}
	}

	if err := c.JSON(http.StatusOK, clientsResponse{Count: len(clients), Clients: clients}); err != nil {
		return fmt.Errorf("failed to write clients response: %w", err)
	}
	return nil
}
