/*
Package sqlite provides a SQLite-backed implementation of wallet.Store.

PURPOSE:
  Persists cards and transactions. Cards are stored as JSON configuration
  blobs (the factory schema), so program/rule evolution never requires a
  schema migration; transactions are first-class rows because the usage
  calculator filters them by card and date range.

KEY TABLES:
  cards:        id + name + config_json (factory.CardJSON)
  transactions: purchase fields plus the calculation snapshot
                (calculated_reward, applied_rules_json, rule_usage_json)

SNAPSHOT COLUMNS:
  The snapshot is what makes historical totals stable under rule edits:
  the progress UI reads rule_usage_json back instead of re-deriving
  rewards from current rule definitions.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/wallet.db")
  if err != nil { log.Fatal(err) }
  defer store.Close()
  planner := wallet.NewPlanner(store)

SEE ALSO:
  - wallet/store.go: interface definition and ordering contract
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/cardwise/reward-engine/engine"
	"github.com/cardwise/reward-engine/factory"
	"github.com/cardwise/reward-engine/wallet"
)

// Store implements wallet.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ wallet.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		exchange_rate TEXT NOT NULL,
		category TEXT,
		merchant TEXT,
		payment_method TEXT,
		tx_date TEXT NOT NULL,
		calculated_reward TEXT,
		applied_rules_json TEXT,
		rule_usage_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: period-windowed usage aggregation per card
	CREATE INDEX IF NOT EXISTS idx_transactions_card_date
		ON transactions(card_id, tx_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CARDS
// =============================================================================

func (s *Store) SaveCard(ctx context.Context, card *engine.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	cfg, err := json.Marshal(factory.ToJSON(card))
	if err != nil {
		return fmt.Errorf("failed to serialize card config: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cards (id, name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at`,
		card.ID, card.Name, string(cfg), now, now)
	return err
}

func (s *Store) GetCard(ctx context.Context, id string) (*engine.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg string
	err := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM cards WHERE id = ?`, id).Scan(&cfg)
	if err == sql.ErrNoRows {
		return nil, wallet.ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.decodeCard(id, cfg)
}

func (s *Store) ListCards(ctx context.Context) ([]*engine.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, config_json FROM cards ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []*engine.Card
	for rows.Next() {
		var id, cfg string
		if err := rows.Scan(&id, &cfg); err != nil {
			return nil, err
		}
		card, err := s.decodeCard(id, cfg)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wallet.ErrCardNotFound
	}
	return nil
}

func (s *Store) decodeCard(id, cfg string) (*engine.Card, error) {
	var cj factory.CardJSON
	if err := json.Unmarshal([]byte(cfg), &cj); err != nil {
		return nil, fmt.Errorf("corrupt card config for %s: %w", id, err)
	}
	card, err := factory.FromJSON(cj)
	if err != nil {
		return nil, fmt.Errorf("corrupt card config for %s: %w", id, err)
	}
	card.ID = id
	return card, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) SaveTransaction(ctx context.Context, tx *engine.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	appliedJSON, err := json.Marshal(tx.AppliedRuleNames)
	if err != nil {
		return err
	}
	usageJSON, err := marshalUsage(tx.RuleUsage)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, card_id, amount, currency, exchange_rate,
			category, merchant, payment_method, tx_date,
			calculated_reward, applied_rules_json, rule_usage_json,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			card_id = excluded.card_id,
			amount = excluded.amount,
			currency = excluded.currency,
			exchange_rate = excluded.exchange_rate,
			category = excluded.category,
			merchant = excluded.merchant,
			payment_method = excluded.payment_method,
			tx_date = excluded.tx_date,
			calculated_reward = excluded.calculated_reward,
			applied_rules_json = excluded.applied_rules_json,
			rule_usage_json = excluded.rule_usage_json,
			updated_at = excluded.updated_at`,
		tx.ID, tx.CardID, tx.Amount.String(), string(tx.Currency),
		tx.ExchangeRate.String(), tx.Category, tx.Merchant,
		tx.PaymentMethod, tx.Date.String(),
		tx.CalculatedReward.String(), string(appliedJSON), usageJSON,
		now, now)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, txSelect+` WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, wallet.ErrTransactionNotFound
	}
	return tx, err
}

// ListTransactions returns the card's transactions in ascending date
// order, ties broken by ID (the wallet.Store contract).
func (s *Store) ListTransactions(ctx context.Context, cardID string) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		txSelect+` WHERE card_id = ? ORDER BY tx_date, id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []engine.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wallet.ErrTransactionNotFound
	}
	return nil
}

// =============================================================================
// ROW MAPPING
// =============================================================================

const txSelect = `
	SELECT id, card_id, amount, currency, exchange_rate,
	       category, merchant, payment_method, tx_date,
	       calculated_reward, applied_rules_json, rule_usage_json
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*engine.Transaction, error) {
	var (
		tx                     engine.Transaction
		amount, rate, reward   string
		currency, txDate       string
		category, merchant     sql.NullString
		payMethod              sql.NullString
		appliedJSON, usageJSON sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.CardID, &amount, &currency, &rate,
		&category, &merchant, &payMethod, &txDate,
		&reward, &appliedJSON, &usageJSON)
	if err != nil {
		return nil, err
	}

	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount for tx %s: %w", tx.ID, err)
	}
	if tx.ExchangeRate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("corrupt exchange rate for tx %s: %w", tx.ID, err)
	}
	if tx.CalculatedReward, err = decimal.NewFromString(reward); err != nil {
		tx.CalculatedReward = decimal.Zero
	}
	tx.Currency = engine.Currency(currency)
	tx.Category = category.String
	tx.Merchant = merchant.String
	tx.PaymentMethod = payMethod.String

	if tx.Date, err = engine.ParseDate(txDate); err != nil {
		return nil, fmt.Errorf("corrupt date for tx %s: %w", tx.ID, err)
	}
	if appliedJSON.Valid && appliedJSON.String != "" {
		if err := json.Unmarshal([]byte(appliedJSON.String), &tx.AppliedRuleNames); err != nil {
			return nil, fmt.Errorf("corrupt applied rules for tx %s: %w", tx.ID, err)
		}
	}
	if usageJSON.Valid && usageJSON.String != "" {
		usage, err := unmarshalUsage(usageJSON.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt rule usage for tx %s: %w", tx.ID, err)
		}
		tx.RuleUsage = usage
	}
	return &tx, nil
}

// marshalUsage stores decimals as strings so precision survives the
// round-trip.
func marshalUsage(usage map[string]decimal.Decimal) (string, error) {
	if usage == nil {
		return "", nil
	}
	m := make(map[string]string, len(usage))
	for k, v := range usage {
		m[k] = v.String()
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func unmarshalUsage(data string) (map[string]decimal.Decimal, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, err
	}
	usage := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		usage[k] = d
	}
	return usage, nil
}
