package apikey

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes credential management HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a credential HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	Expiry      string   `json:"expiry"`
}

type rolloverRequest struct {
	ExpiredKeyID string `json:"expired_key_id"`
	Expiry       string `json:"expiry"`
}

type issuedResponse struct {
	APIKey    string `json:"api_key"`
	ExpiresAt string `json:"expires_at"`
}

type keyResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Prefix      string   `json:"prefix"`
	Permissions []string `json:"permissions"`
	Status      string   `json:"status"`
	ExpiresAt   string   `json:"expires_at"`
	CreatedAt   string   `json:"created_at"`
}

// Create issues a new credential for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	issued, err := h.service.Issue(c.UserContext(), IssueInput{
		UserID:      callerID(c),
		Name:        req.Name,
		Permissions: toPermissions(req.Permissions),
		Expiry:      req.Expiry,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrLimitExceeded):
			return fiber.NewError(http.StatusConflict, "maximum 5 active API keys allowed per user")
		case errors.Is(err, ErrInvalidExpiry), errors.Is(err, ErrInvalidPermission):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(issuedResponse{
		APIKey:    issued.Secret,
		ExpiresAt: issued.Key.ExpiresAt.Format(time.RFC3339),
	})
}

// Rollover replaces an expired credential with a fresh one.
func (h *Handler) Rollover(c *fiber.Ctx) error {
	var req rolloverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	issued, err := h.service.Rotate(c.UserContext(), callerID(c), req.ExpiredKeyID, req.Expiry)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "invalid or not expired API key")
		case errors.Is(err, ErrLimitExceeded):
			return fiber.NewError(http.StatusConflict, "maximum 5 active API keys allowed per user")
		case errors.Is(err, ErrInvalidExpiry):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(issuedResponse{
		APIKey:    issued.Secret,
		ExpiresAt: issued.Key.ExpiresAt.Format(time.RFC3339),
	})
}

// Revoke marks a credential as revoked.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	keyID := c.Params("id")
	if err := h.service.Revoke(c.UserContext(), callerID(c), keyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "API key not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "revoked"})
}

// List returns the caller's credentials with derived status.
func (h *Handler) List(c *fiber.Ctx) error {
	infos, err := h.service.List(c.UserContext(), callerID(c))
	if err != nil {
		return err
	}
	out := make([]keyResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, keyResponse{
			ID:          info.ID,
			Name:        info.Name,
			Prefix:      info.Prefix,
			Permissions: fromPermissions(info.Permissions),
			Status:      string(info.Status),
			ExpiresAt:   info.ExpiresAt.Format(time.RFC3339),
			CreatedAt:   info.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"api_keys": out})
}

// callerID reads the authenticated user id set by the auth middleware. Kept
// local to avoid an import cycle with the middleware package.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func toPermissions(in []string) []Permission {
	out := make([]Permission, 0, len(in))
	for _, p := range in {
		out = append(out, Permission(p))
	}
	return out
}

func fromPermissions(in []Permission) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		out = append(out, string(p))
	}
	return out
}
