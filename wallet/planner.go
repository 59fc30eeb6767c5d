package wallet

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cardwise/reward-engine/engine"
)

// =============================================================================
// PLANNER - Convenience entry points over the pure engine
// =============================================================================

// Planner wires the engine to a Store. It builds the per-rule usage map
// and the cumulative-spending closure the engine expects as inputs.
type Planner struct {
	Store Store
}

func NewPlanner(store Store) *Planner {
	return &Planner{Store: store}
}

// Simulate evaluates a draft transaction against a stored card without
// persisting anything.
func (p *Planner) Simulate(ctx context.Context, cardID string, draft engine.Transaction, mode engine.Mode) (*engine.CalculationResult, error) {
	card, err := p.Store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	txs, err := p.Store.ListTransactions(ctx, cardID)
	if err != nil {
		return nil, err
	}
	draft.CardID = cardID
	res := p.evaluate(card, &draft, txs, mode)
	return &res, nil
}

// Record evaluates a draft transaction, snapshots the outcome onto it
// (reward amount, applied rule names, per-rule usage contributions) and
// persists it. Later rule-definition edits never retroactively change the
// snapshot; only Recalculate rewrites it.
func (p *Planner) Record(ctx context.Context, draft engine.Transaction, mode engine.Mode) (*engine.Transaction, *engine.CalculationResult, error) {
	res, err := p.Simulate(ctx, draft.CardID, draft, mode)
	if err != nil {
		return nil, nil, err
	}
	applySnapshot(&draft, res)
	if err := p.Store.SaveTransaction(ctx, &draft); err != nil {
		return nil, nil, err
	}
	return &draft, res, nil
}

// evaluate runs one calculation with usage and cumulative spend derived
// from the given transaction history (the draft itself excluded).
func (p *Planner) evaluate(card *engine.Card, tx *engine.Transaction, history []engine.Transaction, mode engine.Mode) engine.CalculationResult {
	// EffectiveProgram, not FindApplicableProgram: post-expiry and
	// pre-launch purchases still accrue against the fallback program, so
	// their usage state must thread through the same way.
	program := engine.EffectiveProgram(card, tx.Date)
	usage := buildUsage(card, program, tx.Date, history, tx.ID)
	calc := engine.Calculator{CumulativeSpend: cumulativeSpendOver(history)}
	return calc.Calculate(card, tx, usage, mode)
}

// buildUsage derives the usage map for every rule of the active program
// from persisted snapshots, each rule scoped to its own accrual window.
func buildUsage(card *engine.Card, program *engine.Program, date engine.Date, txs []engine.Transaction, excludeTxID string) engine.UsageMap {
	usage := engine.UsageMap{}
	if program == nil {
		return usage
	}
	history := txs
	if excludeTxID != "" {
		history = make([]engine.Transaction, 0, len(txs))
		for _, tx := range txs {
			if tx.ID != excludeTxID {
				history = append(history, tx)
			}
		}
	}
	for i := range program.Rules {
		rule := &program.Rules[i]
		period := engine.UsagePeriodFor(date, rule, program, card.StatementDate, card.BillingCycle)
		usage[rule.ID] = engine.RuleUsage(history, rule, card.ID, period)
	}
	return usage
}

// cumulativeSpendOver closes over a transaction history, converting each
// transaction with its OWN exchange rate into the requested currency.
func cumulativeSpendOver(txs []engine.Transaction) engine.CumulativeSpendFunc {
	return func(excludeTxID string, period engine.Period, currency engine.Currency) decimal.Decimal {
		total := decimal.Zero
		for i := range txs {
			tx := &txs[i]
			if tx.ID == excludeTxID || !period.Contains(tx.Date) {
				continue
			}
			total = total.Add(engine.Convert(tx.Amount, tx.Currency, currency, tx.FXRate()))
		}
		return total
	}
}

func applySnapshot(tx *engine.Transaction, res *engine.CalculationResult) {
	tx.CalculatedReward = res.TotalReward
	tx.AppliedRuleNames = res.AppliedRuleNames()
	tx.RuleUsage = res.RuleContributions()
}

// =============================================================================
// RECALCULATE - Sequential re-derivation of historical transactions
// =============================================================================

// Recalculate re-derives the calculation snapshot of every transaction on
// the card, strictly in ascending date order, threading a per-rule usage
// accumulator forward. The accumulator resets whenever a rule's accrual
// window rolls over, so fixed payouts fire once per period and cumulative
// totals stay causally consistent. Returns the rewritten transactions.
func (p *Planner) Recalculate(ctx context.Context, cardID string, mode engine.Mode) ([]engine.Transaction, error) {
	card, err := p.Store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	txs, err := p.Store.ListTransactions(ctx, cardID)
	if err != nil {
		return nil, err
	}
	// The store contract already orders ascending; sort defensively since
	// causal consistency depends on it.
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})

	type ruleWindow struct {
		period engine.Period
		used   decimal.Decimal
	}
	acc := make(map[string]*ruleWindow)
	processed := make([]engine.Transaction, 0, len(txs))

	// Cumulative spend sees only transactions already re-derived, never
	// future ones.
	spend := func(excludeTxID string, period engine.Period, currency engine.Currency) decimal.Decimal {
		return cumulativeSpendOver(processed)(excludeTxID, period, currency)
	}
	calc := engine.Calculator{CumulativeSpend: spend}

	for i := range txs {
		tx := txs[i]
		program := engine.EffectiveProgram(card, tx.Date)

		usage := engine.UsageMap{}
		if program != nil {
			for j := range program.Rules {
				rule := &program.Rules[j]
				period := engine.UsagePeriodFor(tx.Date, rule, program, card.StatementDate, card.BillingCycle)
				w := acc[rule.ID]
				if w == nil || !w.period.Equal(period) {
					w = &ruleWindow{period: period, used: decimal.Zero}
					acc[rule.ID] = w
				}
				usage[rule.ID] = w.used
			}
		}

		res := calc.Calculate(card, &tx, usage, mode)
		applySnapshot(&tx, &res)

		for _, e := range res.Breakdown {
			if e.RuleID == engine.BaseRuleID {
				continue
			}
			if w := acc[e.RuleID]; w != nil {
				w.used = w.used.Add(e.Contribution)
			}
		}

		if err := p.Store.SaveTransaction(ctx, &tx); err != nil {
			return nil, err
		}
		processed = append(processed, tx)
	}
	return processed, nil
}

// =============================================================================
// RANK - Best card for a purchase
// =============================================================================

// RankedCard pairs a candidate card with its simulated outcome.
type RankedCard struct {
	Card   *engine.Card
	Result engine.CalculationResult
}

// Rank simulates the draft against every stored card and sorts by net
// reward descending (name ascending on ties for a stable display order).
func (p *Planner) Rank(ctx context.Context, draft engine.Transaction, mode engine.Mode) ([]RankedCard, error) {
	cards, err := p.Store.ListCards(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedCard, 0, len(cards))
	for _, card := range cards {
		txs, err := p.Store.ListTransactions(ctx, card.ID)
		if err != nil {
			return nil, err
		}
		candidate := draft
		candidate.CardID = card.ID
		res := p.evaluate(card, &candidate, txs, mode)
		ranked = append(ranked, RankedCard{Card: card, Result: res})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].Result.NetReward.Equal(ranked[j].Result.NetReward) {
			return ranked[i].Result.NetReward.GreaterThan(ranked[j].Result.NetReward)
		}
		return ranked[i].Card.Name < ranked[j].Card.Name
	})
	return ranked, nil
}

// =============================================================================
// PROGRESS - "Amount used / cap" bars for the tracking UI
// =============================================================================

// RuleProgress reports cap consumption for one capped rule in its current
// accrual window, re-derived from persisted snapshots.
type RuleProgress struct {
	CardID    string
	ProgramID string
	RuleID    string
	RuleName  string

	Used     decimal.Decimal
	Cap      decimal.Decimal
	Currency engine.Currency
	Period   engine.Period
}

// Remaining returns the cap headroom left, clamped at zero.
func (rp RuleProgress) Remaining() decimal.Decimal {
	rem := rp.Cap.Sub(rp.Used)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Progress returns cap consumption for every capped rule of the program
// active on asOf. An empty slice when no program covers the date.
func (p *Planner) Progress(ctx context.Context, cardID string, asOf engine.Date) ([]RuleProgress, error) {
	card, err := p.Store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	program := engine.FindApplicableProgram(card, asOf)
	if program == nil {
		return nil, nil
	}
	txs, err := p.Store.ListTransactions(ctx, cardID)
	if err != nil {
		return nil, err
	}

	var out []RuleProgress
	for i := range program.Rules {
		rule := &program.Rules[i]
		if rule.Cap == nil {
			continue
		}
		period := engine.UsagePeriodFor(asOf, rule, program, card.StatementDate, card.BillingCycle)
		out = append(out, RuleProgress{
			CardID:    card.ID,
			ProgramID: program.ID,
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			Used:      engine.RuleUsage(txs, rule, card.ID, period),
			Cap:       rule.Cap.Amount,
			Currency:  rule.Cap.Currency,
			Period:    period,
		})
	}
	return out, nil
}
