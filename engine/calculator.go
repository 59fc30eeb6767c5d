/*
calculator.go - The reward calculation pipeline

PURPOSE:
  Orchestrates program selection, currency normalization, per-rule
  applicability filtering, reward computation (percentage or fixed), cap
  enforcement, and fee/net computation. Owns all business rules.

ALGORITHM:
  1. Resolve the program (matcher + nearest-boundary fallback).
  2. Normalize the amount: amountTWD = floor(amount * rate), rate 1 for TWD.
  3. Base reward: floor(amountTWD * base rate), breakdown id "base".
  4. Evaluate bonus rules in program order. All eligible rules apply
     additively; order is never a tie-break. Rules failing the filter are
     skipped silently.
  5. Effective rate = totalReward / amountTWD (reward per TWD spent).
  6. Foreign-transaction fee: always in travel mode, and for non-TWD
     purchases in daily mode. Conservative by construction.
  7. Net reward = total - fee. Primary ranking key across cards.

FAILURE SEMANTICS:
  There are no fatal conditions. Missing programs, exhausted caps and
  expired campaigns all produce a well-formed CalculationResult with
  warnings and zero/clamped values.

SEE ALSO:
  - matcher.go: program selection
  - usage.go: how callers derive the UsageMap input
*/
package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// defaultForeignTxFeePercent applies when the card does not configure one.
var defaultForeignTxFeePercent = decimal.NewFromFloat(1.5)

// Calculator evaluates transactions against card reward configurations.
// The zero value is usable: a nil CumulativeSpend treats cumulative
// thresholds as satisfied (permissive default).
type Calculator struct {
	CumulativeSpend CumulativeSpendFunc
}

// Calculate computes the reward for one transaction. Pure: card and tx are
// never mutated, and identical inputs always produce identical results.
func (c *Calculator) Calculate(card *Card, tx *Transaction, usage UsageMap, mode Mode) CalculationResult {
	res := CalculationResult{
		TotalReward:    decimal.Zero,
		EffectiveRate:  decimal.Zero,
		TransactionFee: decimal.Zero,
		NetReward:      decimal.Zero,
		AmountTWD:      decimal.Zero,
	}
	if usage == nil {
		usage = UsageMap{}
	}

	// 1. Program resolution.
	program := FindApplicableProgram(card, tx.Date)
	if program == nil {
		if program = fallbackProgram(card, tx.Date); program != nil {
			if IsExpired(program, tx.Date) {
				res.Warnings = append(res.Warnings, expiredProgramWarning(program))
			} else {
				res.Warnings = append(res.Warnings, upcomingProgramWarning(program))
			}
		}
	}
	if program == nil {
		res.Warnings = append(res.Warnings, noProgramWarning(card))
		return res
	}
	res.ProgramID = program.ID
	res.ProgramName = program.Name

	// 2. Currency normalization. All downstream money math is in TWD.
	rate := tx.FXRate()
	amountTWD := tx.AmountTWD()
	res.AmountTWD = amountTWD

	// 3. Base reward.
	baseRate := program.BaseRateDomestic
	if mode == ModeTravel {
		baseRate = program.BaseRateOverseas
	}
	base := amountTWD.Mul(baseRate).Floor()
	total := base
	res.Breakdown = append(res.Breakdown, BreakdownEntry{
		RuleID:        BaseRuleID,
		RuleName:      program.Name,
		Amount:        base,
		Contribution:  decimal.Zero,
		UsageCurrency: CurrencyTWD,
	})

	// 4. Bonus-rule evaluation loop.
	for i := range program.Rules {
		rule := &program.Rules[i]
		if !c.ruleApplies(rule, program, tx, mode, rate) {
			continue
		}

		reward := c.ruleReward(rule, program, tx, usage, amountTWD, rate)
		uncapped := reward

		entry := BreakdownEntry{
			RuleID:        rule.ID,
			RuleName:      rule.Name,
			UsageCurrency: rule.UsageCurrency(),
		}

		if rule.Cap != nil {
			remaining := rule.Cap.Amount.Sub(usage[rule.ID])
			if remaining.IsNegative() {
				remaining = decimal.Zero
			}
			remainingTWD := Convert(remaining, rule.Cap.Currency, CurrencyTWD, rate)
			if reward.GreaterThan(remainingTWD) {
				reward = remainingTWD.Floor()
				entry.Capped = true
				res.Warnings = append(res.Warnings, ruleCappedWarning(rule))
			}
			after := remaining.Sub(Convert(reward, CurrencyTWD, rule.Cap.Currency, rate))
			if after.IsNegative() {
				after = decimal.Zero
			}
			entry.CapRemaining = &after
		}

		// A fully capped rule still shows up (amount 0, capped) so the UI
		// can report "hit cap". Zero rewards with no cap involvement are
		// not reported.
		if !reward.IsPositive() && !(entry.Capped && uncapped.IsPositive()) {
			continue
		}

		entry.Amount = reward
		entry.Contribution = Convert(reward, CurrencyTWD, entry.UsageCurrency, rate)
		res.Breakdown = append(res.Breakdown, entry)
		total = total.Add(reward)
	}

	// 5. Effective rate: reward per TWD spent.
	res.TotalReward = total
	if amountTWD.IsPositive() {
		res.EffectiveRate = total.Div(amountTWD)
	}

	// 6. Transaction fee.
	if mode == ModeTravel || (mode == ModeDaily && tx.Currency != CurrencyTWD) {
		pct := defaultForeignTxFeePercent
		if card.ForeignTxFee != nil {
			pct = *card.ForeignTxFee
		}
		res.TransactionFee = amountTWD.Mul(pct).Div(decimal.NewFromInt(100)).Floor()
	}

	// 7. Net reward.
	res.NetReward = total.Sub(res.TransactionFee)
	return res
}

// =============================================================================
// FALLBACK PROGRAM SELECTION - Nearest boundary, with a warning
// =============================================================================

// fallbackProgram handles dates outside every program window. After every
// end date: the latest-ending program. Before every start date: the
// earliest-starting program. A date in a gap BETWEEN programs selects
// nothing; the caller reports the no-program condition.
func fallbackProgram(card *Card, date Date) *Program {
	if len(card.Programs) == 0 {
		return nil
	}

	afterAll, beforeAll := true, true
	for i := range card.Programs {
		p := &card.Programs[i]
		if date.BeforeOrEqual(p.EndDate) {
			afterAll = false
		}
		if date.AfterOrEqual(p.StartDate) {
			beforeAll = false
		}
	}

	switch {
	case afterAll:
		latest := &card.Programs[0]
		for i := range card.Programs {
			if card.Programs[i].EndDate.After(latest.EndDate) {
				latest = &card.Programs[i]
			}
		}
		return latest

	case beforeAll:
		earliest := &card.Programs[0]
		for i := range card.Programs {
			if card.Programs[i].StartDate.Before(earliest.StartDate) {
				earliest = &card.Programs[i]
			}
		}
		return earliest
	}
	return nil
}

// =============================================================================
// APPLICABILITY FILTER - All predicates must pass; failures skip silently
// =============================================================================

func (c *Calculator) ruleApplies(rule *BonusRule, program *Program, tx *Transaction, mode Mode, rate decimal.Decimal) bool {
	// Rule-local dates override the program window.
	if rule.StartDate != nil && tx.Date.Before(*rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && tx.Date.After(*rule.EndDate) {
		return false
	}

	if !rule.EffectiveRegion().allowedInMode(mode) {
		return false
	}

	if len(rule.Categories) > 0 && !containsString(rule.Categories, tx.Category) {
		return false
	}

	if len(rule.Merchants) > 0 && !merchantMatches(rule.Merchants, tx.Merchant) {
		return false
	}

	if len(rule.PaymentMethods) > 0 && !containsString(rule.PaymentMethods, tx.PaymentMethod) {
		return false
	}

	if rule.MinSpend != nil {
		// The raw (possibly fractional) amount is compared, not the floored
		// TWD normalization used for reward math.
		amt := Convert(tx.Amount, tx.Currency, rule.MinSpend.Currency, rate)
		switch rule.MinSpend.Type {
		case Cumulative:
			if c.CumulativeSpend == nil {
				break // permissive default: threshold treated as satisfied
			}
			prior := c.CumulativeSpend(tx.ID, program.Window(), rule.MinSpend.Currency)
			if prior.Add(amt).LessThan(rule.MinSpend.Amount) {
				return false
			}
		default: // per-transaction
			if amt.LessThan(rule.MinSpend.Amount) {
				return false
			}
		}
	}
	return true
}

func merchantMatches(patterns []string, merchant string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(merchant, p) {
			return true
		}
	}
	return false
}

// =============================================================================
// REWARD COMPUTATION - Per accrual model
// =============================================================================

func (c *Calculator) ruleReward(rule *BonusRule, program *Program, tx *Transaction, usage UsageMap, amountTWD, rate decimal.Decimal) decimal.Decimal {
	// Reward-from-nothing guard: a zero-value purchase earns nothing
	// regardless of reward type.
	if amountTWD.IsZero() {
		return decimal.Zero
	}

	priorUsage := usage[rule.ID]

	switch rw := rule.Reward.(type) {
	case FixedReward:
		// One-time payout per accrual period, attributed to whichever
		// transaction first satisfies the rule.
		if priorUsage.IsPositive() {
			return decimal.Zero
		}
		return Convert(rw.Amount, rw.Currency, CurrencyTWD, rate).Floor()

	case PercentageReward:
		if rule.MinSpend != nil && rule.MinSpend.Type == Cumulative {
			// Marginal payout: only the reward the cumulative total newly
			// unlocks, so repeated evaluation across a period is additive
			// and idempotent in total.
			accumulatedTWD := amountTWD
			if c.CumulativeSpend != nil {
				prior := c.CumulativeSpend(tx.ID, program.Window(), CurrencyTWD)
				accumulatedTWD = prior.Add(amountTWD)
			}
			expected := accumulatedTWD.Mul(rw.Rate).Floor()
			paidTWD := Convert(priorUsage, rule.UsageCurrency(), CurrencyTWD, rate)
			marginal := expected.Sub(paidTWD).Floor()
			if marginal.IsNegative() {
				return decimal.Zero
			}
			return marginal
		}
		return amountTWD.Mul(rw.Rate).Floor()
	}
	return decimal.Zero
}
