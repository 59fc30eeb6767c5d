package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwise/reward-engine/engine"
	"github.com/cardwise/reward-engine/store/sqlite"
	"github.com/cardwise/reward-engine/wallet"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCard() *engine.Card {
	fee := decimal.NewFromFloat(1.5)
	return &engine.Card{
		ID:            "card-1",
		Name:          "JP Cashback",
		ForeignTxFee:  &fee,
		StatementDate: 10,
		BillingCycle:  engine.CycleStatement,
		Programs: []engine.Program{
			{
				ID:               "q2",
				Name:             "Q2 Campaign",
				StartDate:        engine.NewDate(2025, time.April, 1),
				EndDate:          engine.NewDate(2025, time.June, 30),
				BaseRateOverseas: decimal.NewFromFloat(0.03),
				BaseRateDomestic: decimal.NewFromFloat(0.005),
				Rules: []engine.BonusRule{
					{
						ID:     "dining",
						Name:   "Dining 5%",
						Reward: engine.PercentageReward{Rate: decimal.NewFromFloat(0.05)},
						Region: engine.RegionJapan,
						Cap: &engine.Cap{
							Amount:   decimal.NewFromInt(1000),
							Currency: engine.CurrencyTWD,
							Period:   engine.CapMonthly,
						},
					},
				},
			},
		},
	}
}

// =============================================================================
// CARDS
// =============================================================================

func TestSQLiteStore_CardRoundTrip(t *testing.T) {
	// GIVEN: A card with programs, rules, cap and fee configuration
	// WHEN: Saving and reading it back
	// THEN: The configuration survives the config_json round-trip

	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCard(ctx, testCard()))

	got, err := store.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, "JP Cashback", got.Name)
	assert.Equal(t, 10, got.StatementDate)
	assert.Equal(t, engine.CycleStatement, got.BillingCycle)
	require.NotNil(t, got.ForeignTxFee)
	assert.True(t, got.ForeignTxFee.Equal(decimal.NewFromFloat(1.5)))

	require.Len(t, got.Programs, 1)
	require.Len(t, got.Programs[0].Rules, 1)
	rule := got.Programs[0].Rules[0]
	require.NotNil(t, rule.Cap)
	assert.True(t, rule.Cap.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, engine.RegionJapan, rule.Region)
}

func TestSQLiteStore_SaveCardIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard()
	require.NoError(t, store.SaveCard(ctx, card))
	card.Name = "Renamed"
	require.NoError(t, store.SaveCard(ctx, card))

	got, err := store.GetCard(ctx, "card-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	cards, err := store.ListCards(ctx)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestSQLiteStore_SaveCardAssignsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	card := testCard()
	card.ID = ""
	require.NoError(t, store.SaveCard(ctx, card))
	assert.NotEmpty(t, card.ID, "save must assign an ID")

	_, err := store.GetCard(ctx, card.ID)
	assert.NoError(t, err)
}

func TestSQLiteStore_CardNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCard(ctx, "nope")
	assert.ErrorIs(t, err, wallet.ErrCardNotFound)
	assert.ErrorIs(t, store.DeleteCard(ctx, "nope"), wallet.ErrCardNotFound)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLiteStore_TransactionRoundTrip(t *testing.T) {
	// GIVEN: A transaction with a full calculation snapshot
	// WHEN: Saving and reading it back
	// THEN: Decimals, the snapshot and the usage map survive exactly

	store := newTestStore(t)
	ctx := context.Background()

	tx := &engine.Transaction{
		ID:               "tx-1",
		CardID:           "card-1",
		Amount:           decimal.NewFromFloat(30000),
		Currency:         engine.CurrencyJPY,
		ExchangeRate:     decimal.NewFromFloat(0.21),
		Category:         "dining",
		Merchant:         "Ichiran",
		PaymentMethod:    "contactless",
		Date:             engine.NewDate(2025, time.May, 10),
		CalculatedReward: decimal.NewFromInt(378),
		AppliedRuleNames: []string{"Dining 5%"},
		RuleUsage:        map[string]decimal.Decimal{"dining": decimal.NewFromInt(315)},
	}
	require.NoError(t, store.SaveTransaction(ctx, tx))

	got, err := store.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromFloat(30000)))
	assert.True(t, got.ExchangeRate.Equal(decimal.NewFromFloat(0.21)))
	assert.Equal(t, engine.CurrencyJPY, got.Currency)
	assert.Equal(t, "Ichiran", got.Merchant)
	assert.True(t, got.Date.Equal(engine.NewDate(2025, time.May, 10)))
	assert.True(t, got.CalculatedReward.Equal(decimal.NewFromInt(378)))
	assert.Equal(t, []string{"Dining 5%"}, got.AppliedRuleNames)
	require.NotNil(t, got.RuleUsage)
	assert.True(t, got.RuleUsage["dining"].Equal(decimal.NewFromInt(315)))
}

func TestSQLiteStore_ListTransactionsOrdering(t *testing.T) {
	// GIVEN: Transactions inserted out of order, two sharing a date
	// WHEN: Listing
	// THEN: Ascending date, ties broken by ID (Recalculate depends on this)

	store := newTestStore(t)
	ctx := context.Background()

	for _, tx := range []*engine.Transaction{
		{ID: "tx-c", CardID: "card-1", Amount: decimal.NewFromInt(1), Currency: engine.CurrencyTWD, Date: engine.NewDate(2025, time.May, 20)},
		{ID: "tx-b", CardID: "card-1", Amount: decimal.NewFromInt(1), Currency: engine.CurrencyTWD, Date: engine.NewDate(2025, time.May, 10)},
		{ID: "tx-a", CardID: "card-1", Amount: decimal.NewFromInt(1), Currency: engine.CurrencyTWD, Date: engine.NewDate(2025, time.May, 10)},
		{ID: "tx-other", CardID: "card-2", Amount: decimal.NewFromInt(1), Currency: engine.CurrencyTWD, Date: engine.NewDate(2025, time.May, 1)},
	} {
		require.NoError(t, store.SaveTransaction(ctx, tx))
	}

	txs, err := store.ListTransactions(ctx, "card-1")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "tx-a", txs[0].ID)
	assert.Equal(t, "tx-b", txs[1].ID)
	assert.Equal(t, "tx-c", txs[2].ID)
}

func TestSQLiteStore_TransactionNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetTransaction(ctx, "nope")
	assert.ErrorIs(t, err, wallet.ErrTransactionNotFound)
	assert.ErrorIs(t, store.DeleteTransaction(ctx, "nope"), wallet.ErrTransactionNotFound)
}
