package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/room-ticket-service/internal/repository"
	"github.com/spec-kit/room-ticket-service/internal/service"
	apperrors "github.com/spec-kit/room-ticket-service/pkg/util/errorutil"
)

// ScansHandler exposes the detection trigger.
type ScansHandler struct {
	service *service.ScanService
}

// NewScansHandler constructs handler.
func NewScansHandler(scanService *service.ScanService) *ScansHandler {
	return &ScansHandler{service: scanService}
}

// TriggerScan POST /api/v1/scans.
func (h *ScansHandler) TriggerScan(c *fiber.Ctx) error {
	result, err := h.service.Scan(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": result})
}

// LatestScan GET /api/v1/scans/latest.
func (h *ScansHandler) LatestScan(c *fiber.Ctx) error {
	result, err := h.service.LatestResult(c.UserContext())
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("scan result", nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
