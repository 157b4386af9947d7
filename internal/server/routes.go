package server

import (
	"net/http"
	"time"

	"vmeter2mqtt/pkg/victron_modbus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/snapshot", s.SnapshotHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	if s.poller.Healthy() {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// SnapshotHandler serves the latest cycle as a name to value mapping;
// unavailable measurements render as null.
func (s *Server) SnapshotHandler(c echo.Context) error {
	last := s.poller.Last()
	if last == nil {
		return c.String(http.StatusServiceUnavailable, "no snapshot yet")
	}
	values := make(map[string]victron_modbus.Measurement)
	for _, value := range last.NamedValues() {
		values[value.Name] = value.Measurement
	}
	return c.JSON(http.StatusOK, snapshotResponse{
		Timestamp:        last.Timestamp,
		BasicReadFailure: last.BasicReadFailure,
		Values:           values,
	})
}

type snapshotResponse struct {
	Timestamp        time.Time                             `json:"timestamp"`
	BasicReadFailure bool                                  `json:"basic_read_failure"`
	Values           map[string]victron_modbus.Measurement `json:"values"`
}
