package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
)

// Event is a settlement notification delivered by the gateway.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the transaction outcome. Amount is in kobo.
type EventData struct {
	ID        json.Number `json:"id"`
	Reference string      `json:"reference"`
	Status    string      `json:"status"`
	Amount    int64       `json:"amount"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Service applies gateway settlement events to the ledger idempotently.
// Signature verification happens at the HTTP boundary, on the raw body bytes,
// before an event reaches this service.
type Service struct {
	store  ledger.Store
	logger *slog.Logger
}

// NewService builds a reconciliation service.
func NewService(store ledger.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Process settles one verified event. Deliveries for unknown or already
// settled references are acknowledged as no-ops; gateway retries are expected
// and harmless.
func (s *Service) Process(ctx context.Context, evt Event) error {
	if !strings.HasPrefix(evt.Event, "charge.") {
		s.logger.Info("ignoring webhook event", "event", evt.Event)
		return nil
	}

	res, err := s.store.Settle(ctx, ledger.SettleInput{
		Reference: evt.Data.Reference,
		EventID:   evt.Data.ID.String(),
		Success:   evt.Data.Status == "success",
		Amount:    decimal.New(evt.Data.Amount, -2),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			s.logger.Info("settlement for unknown reference", "reference", evt.Data.Reference)
			return nil
		}
		return err
	}

	if res.Applied {
		s.logger.Info("settlement applied", "reference", evt.Data.Reference, "status", res.Status)
	} else {
		s.logger.Info("settlement skipped", "reference", evt.Data.Reference, "status", res.Status)
	}
	return nil
}
