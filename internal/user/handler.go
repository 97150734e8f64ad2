package user

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes user HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a user HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type provisionRequest struct {
	GoogleID string `json:"google_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type accountResponse struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Name         string          `json:"name"`
	WalletNumber string          `json:"wallet_number"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    string          `json:"created_at"`
}

// Provision registers a user arriving from the external auth layer and creates
// their wallet.
func (h *Handler) Provision(c *fiber.Ctx) error {
	var req provisionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	u, err := h.service.Provision(c.UserContext(), ProvisionInput{
		GoogleID: req.GoogleID,
		Email:    req.Email,
		Name:     req.Name,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name})
}

// Get returns a user with wallet details.
func (h *Handler) Get(c *fiber.Ctx) error {
	acc, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(toAccountResponse(acc))
}

// List returns all users with wallet numbers and balances.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, toAccountResponse(acc))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"users": out})
}

func toAccountResponse(acc Account) accountResponse {
	return accountResponse{
		ID:           acc.ID,
		Email:        acc.Email,
		Name:         acc.Name,
		WalletNumber: acc.WalletNumber,
		Balance:      acc.Balance,
		CreatedAt:    acc.CreatedAt.Format(time.RFC3339),
	}
}
