package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/room-ticket-service/internal/api/dto"
	"github.com/spec-kit/room-ticket-service/internal/domain"
	"github.com/spec-kit/room-ticket-service/internal/service"
	apperrors "github.com/spec-kit/room-ticket-service/pkg/util/errorutil"
)

const (
	defaultMaxPriority = 2
	defaultRecentHours = 24
	maxRecentHours     = 24 * 90
)

// TicketsHandler serves the dashboard read side and manual resolution.
type TicketsHandler struct {
	tickets *service.TicketService
	queries *service.QueryFacade
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, queries *service.QueryFacade) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, queries: queries}
}

// ListTickets GET /api/v1/tickets?status=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	status := domain.TicketStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status != "" && !status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": status, "allowed": domain.TicketStatuses})
	}
	views, err := h.queries.FilterByStatus(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketsFromViews(views)})
}

// CountTickets GET /api/v1/tickets/counts.
func (h *TicketsHandler) CountTickets(c *fiber.Ctx) error {
	counts, err := h.queries.CountsByStatus(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}

// HighPriority GET /api/v1/tickets/high-priority?max_priority=.
func (h *TicketsHandler) HighPriority(c *fiber.Ctx) error {
	maxPriority, err := intQuery(c, "max_priority", defaultMaxPriority, 1, 4)
	if err != nil {
		return err
	}
	views, err := h.queries.HighPriorityOpenTickets(c.UserContext(), maxPriority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketsFromViews(views)})
}

// RecentActivity GET /api/v1/tickets/recent?hours=.
func (h *TicketsHandler) RecentActivity(c *fiber.Ctx) error {
	hours, err := intQuery(c, "hours", defaultRecentHours, 1, maxRecentHours)
	if err != nil {
		return err
	}
	views, err := h.queries.RecentActivity(c.UserContext(), hours)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketsFromViews(views)})
}

// GetTicket GET /api/v1/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	view := h.queries.View(*ticket)
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(view.Ticket, view.SLA)})
}

// GetHistory GET /api/v1/tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.tickets.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.HistoryFromDomain(entries)})
}

// ResolveTicket POST /api/v1/tickets/:id/resolve.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	var req dto.ResolveTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Resolve(c.UserContext(), c.Params("id"), req.ResolutionNotes)
	if err != nil {
		return err
	}
	view := h.queries.View(*ticket)
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(view.Ticket, view.SLA)})
}

func intQuery(c *fiber.Ctx, key string, fallback, lowest, highest int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lowest || v > highest {
		return 0, apperrors.NewValidationError("invalid "+key, map[string]any{"min": lowest, "max": highest})
	}
	return v, nil
}
