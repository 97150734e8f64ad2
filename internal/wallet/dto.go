package wallet

import "github.com/shopspring/decimal"

// DepositRequest captures user-provided data to fund a wallet via the gateway.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// DepositResponse returns the payment link for a newly initiated deposit.
type DepositResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// TransferRequest captures data to move funds to another wallet.
type TransferRequest struct {
	WalletNumber string          `json:"wallet_number"`
	Amount       decimal.Decimal `json:"amount"`
}

// TransactionResponse is a read-only projection of a logged transaction.
type TransactionResponse struct {
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Reference string          `json:"reference,omitempty"`
	CreatedAt string          `json:"created_at"`
}
