package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets a wallet balance directly when using
// the in-memory store.
func SeedBalance(s Store, walletNumber string, balance decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if w, exists := mem.wallets[walletNumber]; exists {
			w.Balance = balance
		}
	}
}

// BackdateTransaction is a test helper that rewrites a transaction's creation
// time when using the in-memory store, for sweep and dedup-window tests.
func BackdateTransaction(s Store, id string, createdAt time.Time) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		if tr, exists := mem.transactions[id]; exists {
			tr.CreatedAt = createdAt
		}
	}
}
