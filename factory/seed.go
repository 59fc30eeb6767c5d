package factory

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cardwise/reward-engine/engine"
)

// =============================================================================
// SEED FILES - YAML fixtures for demo/dev data
// =============================================================================

// SeedFile describes a wallet to preload: cards in the same schema the
// store persists, plus optional historical transactions.
type SeedFile struct {
	Cards        []CardJSON        `yaml:"cards"`
	Transactions []TransactionJSON `yaml:"transactions,omitempty"`
}

// TransactionJSON is the wire/seed representation of a purchase record.
type TransactionJSON struct {
	ID            string  `json:"id,omitempty" yaml:"id,omitempty"`
	CardID        string  `json:"card_id" yaml:"card_id"`
	Amount        float64 `json:"amount" yaml:"amount"`
	Currency      string  `json:"currency" yaml:"currency"`
	ExchangeRate  float64 `json:"exchange_rate,omitempty" yaml:"exchange_rate,omitempty"`
	Category      string  `json:"category,omitempty" yaml:"category,omitempty"`
	Merchant      string  `json:"merchant,omitempty" yaml:"merchant,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty" yaml:"payment_method,omitempty"`
	Date          string  `json:"date" yaml:"date"` // 2006-01-02
}

// TransactionFromJSON validates and converts a wire transaction.
func TransactionFromJSON(tj TransactionJSON) (*engine.Transaction, error) {
	cur, err := engine.ParseCurrency(tj.Currency)
	if err != nil {
		return nil, invalidf("transaction: %v", err)
	}
	date, err := engine.ParseDate(tj.Date)
	if err != nil {
		return nil, invalidf("transaction: %v", err)
	}
	if tj.Amount < 0 {
		return nil, invalidf("transaction amount must not be negative")
	}
	if cur == engine.CurrencyJPY && tj.ExchangeRate <= 0 {
		return nil, invalidf("JPY transaction requires a positive exchange_rate")
	}
	return &engine.Transaction{
		ID:            tj.ID,
		CardID:        tj.CardID,
		Amount:        decimal.NewFromFloat(tj.Amount),
		Currency:      cur,
		ExchangeRate:  decimal.NewFromFloat(tj.ExchangeRate),
		Category:      tj.Category,
		Merchant:      tj.Merchant,
		PaymentMethod: tj.PaymentMethod,
		Date:          date,
	}, nil
}

// LoadSeed reads and parses a YAML seed file.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses YAML seed data.
func ParseSeed(data []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}
	return &seed, nil
}

// CardSaver is the slice of the wallet store the seeder needs.
type CardSaver interface {
	SaveCard(ctx context.Context, card *engine.Card) error
	SaveTransaction(ctx context.Context, tx *engine.Transaction) error
}

// ApplySeed validates and persists every card and transaction in the seed.
func ApplySeed(ctx context.Context, store CardSaver, seed *SeedFile) error {
	for _, cj := range seed.Cards {
		card, err := FromJSON(cj)
		if err != nil {
			return err
		}
		if err := store.SaveCard(ctx, card); err != nil {
			return fmt.Errorf("failed to seed card %s: %w", card.Name, err)
		}
	}
	for _, tj := range seed.Transactions {
		tx, err := TransactionFromJSON(tj)
		if err != nil {
			return err
		}
		if err := store.SaveTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to seed transaction %s: %w", tx.ID, err)
		}
	}
	return nil
}
