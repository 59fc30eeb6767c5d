// Package memory provides an in-memory wallet.Store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cardwise/reward-engine/engine"
	"github.com/cardwise/reward-engine/wallet"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu    sync.RWMutex
	cards map[string]*engine.Card
	txs   map[string]*engine.Transaction
}

var _ wallet.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		cards: make(map[string]*engine.Card),
		txs:   make(map[string]*engine.Transaction),
	}
}

// =============================================================================
// CARDS
// =============================================================================

func (s *Store) SaveCard(_ context.Context, card *engine.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	c := *card
	s.cards[c.ID] = &c
	return nil
}

func (s *Store) GetCard(_ context.Context, id string) (*engine.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, wallet.ErrCardNotFound
	}
	c := *card
	return &c, nil
}

func (s *Store) ListCards(_ context.Context) ([]*engine.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*engine.Card, 0, len(s.cards))
	for _, card := range s.cards {
		c := *card
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return wallet.ErrCardNotFound
	}
	delete(s.cards, id)
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) SaveTransaction(_ context.Context, tx *engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	t := *tx
	s.txs[t.ID] = &t
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (*engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, wallet.ErrTransactionNotFound
	}
	t := *tx
	return &t, nil
}

// ListTransactions returns the card's transactions in ascending date
// order, ties broken by ID (the wallet.Store contract).
func (s *Store) ListTransactions(_ context.Context, cardID string) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []engine.Transaction
	for _, tx := range s.txs {
		if tx.CardID == cardID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return wallet.ErrTransactionNotFound
	}
	delete(s.txs, id)
	return nil
}
