package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vmeter2mqtt/internal/config"
	"vmeter2mqtt/internal/poll"
	"vmeter2mqtt/pkg/victron_modbus"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopPublisher struct{}

func (noopPublisher) PublishMeterAvailability(bool) error      { return nil }
func (noopPublisher) PublishMeasurement(string, float64) error { return nil }

func testServerPoller(t *testing.T) *poll.Poller {
	reader, err := victron_modbus.CreateTestMeterModbusReader()
	require.NoError(t, err)
	return poll.NewPoller(reader, noopPublisher{}, time.Second, zap.NewNop())
}

func TestHealthCheck(t *testing.T) {

	require := require.New(t)

	poller := testServerPoller(t)
	handler := (&Server{poller: poller}).RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(http.StatusServiceUnavailable, rec.Code, "unhealthy before first poll")

	poller.PollOnce(context.Background())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(http.StatusOK, rec.Code)
}

func TestSnapshotEndpoint(t *testing.T) {

	require := require.New(t)

	poller := testServerPoller(t)
	handler := (&Server{poller: poller}).RegisterRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(http.StatusServiceUnavailable, rec.Code)

	poller.PollOnce(context.Background())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	require.Equal(http.StatusOK, rec.Code)

	var body struct {
		BasicReadFailure bool                `json:"basic_read_failure"`
		Values           map[string]*float64 `json:"values"`
	}
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(body.BasicReadFailure)
	require.Len(body.Values, 24)
	require.NotNil(body.Values["P_total_W"])
	require.InDelta(3389, *body.Values["P_total_W"], 1e-9)
}

func TestNewServerConfig(t *testing.T) {

	require := require.New(t)

	srv := NewServer(config.Config{Port: 8080}, testServerPoller(t))
	require.Equal(":8080", srv.Addr)
	require.NotNil(srv.Handler)
}
