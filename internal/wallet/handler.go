package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Belladihno/paystack-wallet-service/internal/gateway"
	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
	"github.com/Belladihno/paystack-wallet-service/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Deposit initiates a gateway deposit for the authenticated user.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	userID := middleware.UserID(c)
	email := middleware.UserEmail(c)

	res, err := h.service.Deposit(c.UserContext(), userID, email, req.Amount)
	if err != nil {
		var dup *DuplicateDepositError
		switch {
		case errors.As(err, &dup):
			return c.Status(http.StatusConflict).JSON(fiber.Map{
				"error":            "duplicate deposit request",
				"reference":        dup.Reference,
				"retry_in_seconds": int64(dup.RetryIn.Round(time.Second).Seconds()),
			})
		case errors.Is(err, ErrAmountOutOfRange):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, gateway.ErrUpstream):
			return fiber.NewError(http.StatusBadGateway, "failed to initialize payment")
		default:
			return err
		}
	}

	return c.Status(http.StatusOK).JSON(DepositResponse{
		Reference:        res.Reference,
		AuthorizationURL: res.AuthorizationURL,
	})
}

// Transfer moves funds from the authenticated user's wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	userID := middleware.UserID(c)

	_, err := h.service.Transfer(c.UserContext(), userID, req.WalletNumber, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrAmountOutOfRange), errors.Is(err, ledger.ErrSelfTransfer):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, "insufficient balance")
		default:
			return err
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Transfer completed",
	})
}

// Balance returns the authenticated user's wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": balance})
}

// DepositStatus reports the lifecycle state of a deposit by reference.
func (h *Handler) DepositStatus(c *fiber.Ctx) error {
	reference := c.Params("reference")
	tr, err := h.service.DepositStatus(c.UserContext(), reference)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"reference": reference,
		"status":    tr.Status,
		"amount":    tr.Amount,
	})
}

// DepositCallback handles the browser redirect after gateway checkout. The
// authoritative settlement arrives via webhook; this only reports status.
func (h *Handler) DepositCallback(c *fiber.Ctx) error {
	reference := c.Query("reference")
	trxref := c.Query("trxref")

	tr, err := h.service.DepositStatus(c.UserContext(), reference)
	if err != nil {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"message":   "Payment callback received",
			"reference": reference,
			"trxref":    trxref,
			"status":    "unknown",
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":   "Payment callback received",
		"reference": reference,
		"trxref":    trxref,
		"status":    tr.Status,
		"amount":    tr.Amount,
	})
}

// Transactions lists the authenticated user's transaction history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	trs, err := h.service.Transactions(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return err
	}
	out := make([]TransactionResponse, 0, len(trs))
	for _, tr := range trs {
		out = append(out, TransactionResponse{
			Type:      string(tr.Type),
			Amount:    tr.Amount,
			Status:    string(tr.Status),
			Reference: tr.Reference,
			CreatedAt: tr.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}
