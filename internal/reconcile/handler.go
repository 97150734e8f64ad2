package reconcile

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Belladihno/paystack-wallet-service/internal/gateway"
)

const signatureHeader = "X-Paystack-Signature"

// Handler receives gateway webhook deliveries.
type Handler struct {
	service *Service
	secret  []byte
}

// NewHandler builds a webhook handler keyed with the gateway shared secret.
func NewHandler(service *Service, secret string) *Handler {
	return &Handler{service: service, secret: []byte(secret)}
}

// HandleWebhook verifies the delivery signature over the untouched raw body
// bytes, then hands the event to the reconciliation service.
func (h *Handler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty body")
	}

	signature := c.Get(signatureHeader)
	if signature == "" {
		return fiber.NewError(http.StatusUnauthorized, "webhook signature required")
	}
	if !gateway.VerifySignature(h.secret, body, signature) {
		return fiber.NewError(http.StatusUnauthorized, "invalid webhook signature")
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid JSON")
	}

	if err := h.service.Process(c.UserContext(), evt); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": true})
}
