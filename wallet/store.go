/*
Package wallet is the orchestration layer around the reward engine.

PURPOSE:
  The engine itself is pure: it takes a card, a transaction, a usage map
  and a cumulative-spending function, and computes. This package owns
  everything the engine was deliberately decoupled from:
  - the persisted card/transaction store (behind the Store interface)
  - building the UsageMap from persisted snapshots
  - supplying the cumulative-spending closure
  - the convenience entry points: Simulate, Record, Recalculate, Rank,
    and cap-progress tracking

ORDERING DISCIPLINE:
  When historical transactions must be re-derived after an edit,
  Recalculate processes them strictly in ascending date order, threading
  an accumulating usage map forward, so cumulative and fixed-reward state
  stays causally consistent. That ordering is a documented precondition,
  not an implementation detail.

SEE ALSO:
  - store/sqlite: production store
  - store/memory: in-memory store for tests/dev
*/
package wallet

import (
	"context"
	"errors"

	"github.com/cardwise/reward-engine/engine"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCardNotFound is returned when a referenced card doesn't exist.
	ErrCardNotFound = errors.New("card not found")

	// ErrTransactionNotFound is returned when a referenced transaction
	// doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCardNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// =============================================================================
// STORE - Persistence interface for cards and transactions
// =============================================================================

// Store persists cards and transactions. Save semantics are upsert:
// Recalculate rewrites calculation snapshots in place.
//
// ListTransactions MUST return transactions in ascending date order
// (ties broken by ID); Recalculate depends on it.
type Store interface {
	SaveCard(ctx context.Context, card *engine.Card) error
	GetCard(ctx context.Context, id string) (*engine.Card, error)
	ListCards(ctx context.Context) ([]*engine.Card, error)
	DeleteCard(ctx context.Context, id string) error

	SaveTransaction(ctx context.Context, tx *engine.Transaction) error
	GetTransaction(ctx context.Context, id string) (*engine.Transaction, error)
	ListTransactions(ctx context.Context, cardID string) ([]engine.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}
