package engine_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cardwise/reward-engine/engine"
)

// End-to-end pipeline scenarios with hand-checked figures.

func scenarioCard() *engine.Card {
	return &engine.Card{
		ID:   "jp-card",
		Name: "JP Travel Card",
		Programs: []engine.Program{
			{
				ID:               "jp-2025",
				Name:             "Japan 2025",
				StartDate:        date(2025, time.January, 1),
				EndDate:          date(2025, time.December, 31),
				BaseRateOverseas: dec(0.01),
				BaseRateDomestic: dec(0.005),
			},
		},
	}
}

func scenarioTx(amount float64) *engine.Transaction {
	return &engine.Transaction{
		ID:           "tx-1",
		CardID:       "jp-card",
		Amount:       dec(amount),
		Currency:     engine.CurrencyJPY,
		ExchangeRate: dec(0.22),
		Category:     "general_japan",
		Date:         date(2025, time.May, 10),
	}
}

func TestScenario_BaseRewardOnly(t *testing.T) {
	// 10000 JPY at 0.22 with a 1% overseas base: floor(2200*0.01) = 22

	calc := &engine.Calculator{}
	res := calc.Calculate(scenarioCard(), scenarioTx(10000), nil, engine.ModeTravel)

	assertDecimal(t, dec(2200), res.AmountTWD, "amountTWD")
	assertDecimal(t, dec(22), res.TotalReward, "base reward")
}

func TestScenario_CategoryBonusStacks(t *testing.T) {
	// Adding a 5% general_japan bonus: 22 + floor(2200*0.05) = 132

	card := withRule(scenarioCard(), engine.BonusRule{
		ID:         "jp-general",
		Name:       "Japan general 5%",
		Reward:     engine.PercentageReward{Rate: dec(0.05)},
		Categories: []string{"general_japan"},
		Region:     engine.RegionJapan,
	})
	calc := &engine.Calculator{}
	res := calc.Calculate(card, scenarioTx(10000), nil, engine.ModeTravel)

	assertDecimal(t, dec(132), res.TotalReward, "stacked reward")
}

func TestScenario_CapClampsToHeadroom(t *testing.T) {
	// 10% bonus would pay 220; a 100 TWD cap with 50 already used clamps to 50

	card := withRule(scenarioCard(), engine.BonusRule{
		ID:         "jp-big",
		Name:       "Japan 10%",
		Reward:     engine.PercentageReward{Rate: dec(0.10)},
		Categories: []string{"general_japan"},
		Region:     engine.RegionJapan,
		Cap: &engine.Cap{
			Amount:   dec(100),
			Currency: engine.CurrencyTWD,
			Period:   engine.CapMonthly,
		},
	})
	usage := engine.UsageMap{"jp-big": dec(50)}
	calc := &engine.Calculator{}
	res := calc.Calculate(card, scenarioTx(10000), usage, engine.ModeTravel)

	entry := res.Breakdown[1]
	assertDecimal(t, dec(50), entry.Amount, "clamped bonus")
	if !entry.Capped {
		t.Error("expected capped flag")
	}
}

func TestScenario_ForeignFeeReducesNet(t *testing.T) {
	// 1.5% fee on 2200 TWD: floor(33) = 33; net = total - 33

	fee := dec(1.5)
	card := scenarioCard()
	card.ForeignTxFee = &fee
	calc := &engine.Calculator{}
	res := calc.Calculate(card, scenarioTx(10000), nil, engine.ModeTravel)

	assertDecimal(t, dec(33), res.TransactionFee, "fee")
	assertDecimal(t, res.TotalReward.Sub(dec(33)), res.NetReward, "net reward")
}

func TestScenario_ExpiredFallbackKeepsCalculating(t *testing.T) {
	// A 2026 purchase falls after the program; it is still priced against it

	tx := scenarioTx(10000)
	tx.Date = date(2026, time.February, 1)
	calc := &engine.Calculator{}
	res := calc.Calculate(scenarioCard(), tx, nil, engine.ModeTravel)

	if res.ProgramID != "jp-2025" {
		t.Errorf("expected fallback program jp-2025, got %q", res.ProgramID)
	}
	if !res.HasWarning(engine.WarnProgramExpired) {
		t.Error("expected program_expired warning")
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "expired") {
			found = true
		}
	}
	if !found {
		t.Error("expected an expired mention in the warning message")
	}
	assertDecimal(t, dec(22), res.TotalReward, "fallback reward")
}

func TestScenario_CumulativeThresholdUnlocksFixedPayout(t *testing.T) {
	// 100000 JPY cumulative threshold, 60000 prior + 40000 now = exactly met;
	// the 500 JPY fixed payout converts to floor(500*0.22) = 110 TWD and
	// pays only once

	card := withRule(scenarioCard(), engine.BonusRule{
		ID:     "jp-campaign",
		Name:   "Campaign payout",
		Reward: engine.FixedReward{Amount: dec(500), Currency: engine.CurrencyJPY},
		Region: engine.RegionJapan,
		MinSpend: &engine.Threshold{
			Amount:   dec(100000),
			Currency: engine.CurrencyJPY,
			Type:     engine.Cumulative,
		},
	})
	calc := &engine.Calculator{
		CumulativeSpend: func(excludeTxID string, period engine.Period, currency engine.Currency) decimal.Decimal {
			if currency == engine.CurrencyJPY {
				return dec(60000)
			}
			return dec(13200)
		},
	}

	res := calc.Calculate(card, scenarioTx(40000), nil, engine.ModeTravel)
	if len(res.Breakdown) != 2 {
		t.Fatalf("expected the payout to unlock at exactly 100000, got %d entries", len(res.Breakdown))
	}
	assertDecimal(t, dec(110), res.Breakdown[1].Amount, "fixed payout")

	// Already paid this period: the payout must not repeat.
	again := calc.Calculate(card, scenarioTx(40000), engine.UsageMap{"jp-campaign": dec(500)}, engine.ModeTravel)
	if len(again.Breakdown) != 1 {
		t.Errorf("expected the payout to fire once per period, got %d entries", len(again.Breakdown))
	}
}
