package sweeper

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the maintenance sweeps as admin endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a sweeper HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SweepTransactions fails stale pending transactions on demand.
func (h *Handler) SweepTransactions(c *fiber.Ctx) error {
	n, err := h.service.SweepPendingTransactions(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"expired": n})
}

// SweepAPIKeys revokes expired API keys on demand.
func (h *Handler) SweepAPIKeys(c *fiber.Ctx) error {
	n, err := h.service.SweepExpiredAPIKeys(c.UserContext())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"revoked": n})
}
