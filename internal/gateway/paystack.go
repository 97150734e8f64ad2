package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ErrUpstream indicates the payment gateway call failed or timed out.
var ErrUpstream = errors.New("payment gateway error")

// InitializeInput carries the data Paystack requires to start a deposit.
// AmountMinor is in kobo.
type InitializeInput struct {
	AmountMinor int64
	Email       string
	Reference   string
	CallbackURL string
}

// InitializeResult holds the redirect URL the payer must visit.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
}

// Gateway represents a connector to the external payment processor.
type Gateway interface {
	InitializeTransaction(ctx context.Context, input InitializeInput) (InitializeResult, error)
}

// PaystackClient calls the Paystack REST API.
type PaystackClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewPaystackClient builds a Paystack connector with a bounded request timeout.
func NewPaystackClient(baseURL, secretKey string, timeout time.Duration) *PaystackClient {
	return &PaystackClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type initializeRequest struct {
	Amount      int64  `json:"amount"`
	Email       string `json:"email"`
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url"`
}

type initializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// InitializeTransaction obtains a payment redirect URL for the given reference.
func (p *PaystackClient) InitializeTransaction(ctx context.Context, input InitializeInput) (InitializeResult, error) {
	payload, err := json.Marshal(initializeRequest{
		Amount:      input.AmountMinor,
		Email:       input.Email,
		Reference:   input.Reference,
		CallbackURL: input.CallbackURL,
	})
	if err != nil {
		return InitializeResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return InitializeResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return InitializeResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var decoded initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return InitializeResult{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK || !decoded.Status {
		return InitializeResult{}, fmt.Errorf("%w: %s", ErrUpstream, decoded.Message)
	}

	return InitializeResult{
		AuthorizationURL: decoded.Data.AuthorizationURL,
		AccessCode:       decoded.Data.AccessCode,
	}, nil
}

// StaticGateway simulates a successful gateway integration for development and tests.
type StaticGateway struct{}

// InitializeTransaction returns a synthetic checkout URL.
func (StaticGateway) InitializeTransaction(_ context.Context, input InitializeInput) (InitializeResult, error) {
	return InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + input.Reference,
		AccessCode:       uuid.NewString(),
	}, nil
}
