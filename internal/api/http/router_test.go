package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/room-ticket-service/internal/clock"
	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/observability"
	"github.com/spec-kit/room-ticket-service/internal/persistence"
	"github.com/spec-kit/room-ticket-service/internal/repository"
	"github.com/spec-kit/room-ticket-service/internal/service"
)

var now = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	app      *fiber.App
	tickets  *repository.MemoryTicketRepository
	readings *repository.MemoryReadingRepository
}

func newTestServer(t *testing.T, redisPing handlers.Pinger) *testServer {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	clk := clock.NewFake(now)

	tickets := repository.NewMemoryTicketRepository()
	history := repository.NewMemoryTicketHistoryRepository()
	readings := repository.NewMemoryReadingRepository()
	rooms := repository.NewMemoryRoomRepository(domain.Room{ID: "r1", Name: "Atlas", Capacity: 10, Floor: 2, Building: "HQ"})

	scanService := service.NewScanService(service.ScanDependencies{
		ReadingRepo: readings,
		RoomRepo:    rooms,
		TicketRepo:  tickets,
		HistoryRepo: history,
		Summaries:   repository.NewMemoryScanSummaryStore(),
		Factory:     service.NewTicketFactory(clk, service.DelayPolicy{}),
		Clock:       clk,
		Logger:      logger,
		Metrics:     metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		Clock:       clk,
		Logger:      logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("room-ticket-service", "test", pingFunc(func(context.Context) error { return persistence.ErrNotConfigured }), redisPing),
		Scans:    handlers.NewScansHandler(scanService),
		Tickets:  handlers.NewTicketsHandler(ticketService, service.NewQueryFacade(tickets, clk)),
		Gatherer: reg,
	})
	return &testServer{app: app, tickets: tickets, readings: readings}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestScanAndResolveFlow(t *testing.T) {
	s := newTestServer(t, nil)
	s.readings.Append(domain.SensorReading{
		ID: "reading-1", RoomID: "r1", Occupancy: 16, Temperature: 23, NoiseLevel: 50, AirQuality: 80,
		Timestamp: now.Add(-time.Minute),
	})

	status, _ := s.do(t, http.MethodGet, "/api/v1/scans/latest", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, body := s.do(t, http.MethodPost, "/api/v1/scans", "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 1, data["readings_analyzed"])
	assert.EqualValues(t, 1, data["tickets_created"])

	status, body = s.do(t, http.MethodGet, "/api/v1/scans/latest", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["tickets_created"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets?status=queued", "")
	require.Equal(t, http.StatusOK, status)
	list := body["data"].([]any)
	require.Len(t, list, 1)
	ticket := list[0].(map[string]any)
	assert.Equal(t, "critical", ticket["severity"])
	assert.EqualValues(t, 1, ticket["priority"])
	assert.Equal(t, "on-track", ticket["sla_status"])
	assert.EqualValues(t, 160, ticket["violation_data"].(map[string]any)["violation_percentage"])
	id := ticket["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/resolve", `{"resolution_notes":"Fixed"}`)
	require.Equal(t, http.StatusOK, status)
	resolved := body["data"].(map[string]any)
	assert.Equal(t, "resolved", resolved["status"])
	assert.Equal(t, "Fixed", resolved["resolution_notes"])
	assert.Nil(t, resolved["assigned_to"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets/"+id+"/history", "")
	require.Equal(t, http.StatusOK, status)
	history := body["data"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "DETECTOR", history[0].(map[string]any)["actor"])
	assert.Equal(t, "MANUAL", history[1].(map[string]any)["actor"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets/counts", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"queued": 0.0, "processing": 0.0, "assigned": 0.0, "resolved": 1.0}, body["data"])
}

func TestTicketEndpoints_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, http.MethodGet, "/api/v1/tickets/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets?status=closed", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])

	status, _ = s.do(t, http.MethodGet, "/api/v1/tickets/high-priority?max_priority=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/tickets/recent?hours=0", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/tickets/missing/resolve", `{"resolution_notes":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/tickets/missing/resolve", `{`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/v1/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestTicketEndpoints_HighPriorityAndRecent(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	for i, p := range []int{3, 1, 2} {
		created := now.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, s.tickets.Create(ctx, &domain.ServiceTicket{
			ID:         string(rune('a' + i)),
			RoomID:     string(rune('A' + i)),
			TicketType: domain.TicketTypeCapacityViolation,
			Status:     domain.TicketStatusQueued,
			Severity:   domain.SeverityMedium,
			Priority:   p,
			CreatedAt:  created,
			UpdatedAt:  created,
		}))
	}

	status, body := s.do(t, http.MethodGet, "/api/v1/tickets/high-priority", "")
	require.Equal(t, http.StatusOK, status)
	list := body["data"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].(map[string]any)["id"])
	assert.Equal(t, "at-risk", list[0].(map[string]any)["sla_status"])
	assert.Equal(t, "c", list[1].(map[string]any)["id"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tickets/recent?hours=2", "")
	require.Equal(t, http.StatusOK, status)
	list = body["data"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].(map[string]any)["id"])
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"postgres": "disabled", "redis": "disabled"}, body["dependencies"])

	down := newTestServer(t, pingFunc(func(context.Context) error { return errors.New("connection refused") }))
	status, body = down.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "connection refused", details["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/health/live", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "/health/live")
}

func TestMetricsEndpoint_ErrorsOnDifferentTicketIDs(t *testing.T) {
	s := newTestServer(t, nil)
	for _, id := range []string{"aaaa", "bbbb", "cccc"} {
		status, _ := s.do(t, http.MethodGet, "/api/v1/tickets/"+id, "")
		require.Equal(t, http.StatusNotFound, status)
	}
	status, _ := s.do(t, http.MethodGet, "/api/v1/nope", "")
	require.Equal(t, http.StatusNotFound, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	body := string(raw)
	assert.Contains(t, body, `room_tickets_http_errors_total{code="NOT_FOUND",method="GET",path="/api/v1/tickets/:id"} 3`)
	assert.NotContains(t, body, "aaaa")
	assert.NotContains(t, body, "bbbb")
}
