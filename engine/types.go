/*
Package engine provides the core reward calculation engine.

PURPOSE:
  This package contains the deterministic rules-evaluation pipeline that,
  given a card's time-boxed reward programs, a purchase, and prior usage,
  computes the reward earned, identifies which bonus rules fired, applies
  currency-aware caps, and reports a net (reward minus foreign-transaction
  fee) figure.

KEY CONCEPTS IN THIS FILE (types.go):
  - Card / Program / BonusRule: the reward configuration hierarchy
  - Transaction: an immutable purchase record with calculation snapshots
  - UsageMap: prior-period contribution per rule (caller-supplied)
  - CalculationResult: the engine's output with per-rule breakdown

DESIGN PRINCIPLES:
  1. Purity: every function is a deterministic computation over its inputs.
     No I/O, no shared mutable state, nothing to cancel or time out.
  2. Precision: uses decimal.Decimal to avoid floating-point errors.
     Rewards are floored to whole TWD.
  3. No business-rule exceptions: missing programs, exhausted caps and
     expired campaigns are reported through Warnings, never as errors.
  4. Tagged reward variants: percentage vs fixed payouts are separate
     types, so illegal field combinations are unrepresentable.

USAGE:
  calc := engine.Calculator{CumulativeSpend: spendFn}
  result := calc.Calculate(card, tx, usage, engine.ModeTravel)
  for _, e := range result.Breakdown { ... }

SEE ALSO:
  - matcher.go: program selection and overlap diagnostics
  - usage.go: accrual-period resolution and usage aggregation
  - calculator.go: the rule-evaluation pipeline
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MODE - Caller-selected global toggle (travel vs daily)
// =============================================================================

// Mode decides which base rate and which rule-region set apply. It is an
// explicit parameter threaded through every call, never ambient state.
type Mode string

const (
	ModeTravel Mode = "travel"
	ModeDaily  Mode = "daily"
)

// ParseMode validates a mode string from an external caller.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTravel, ModeDaily:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want travel or daily)", s)
	}
}

// =============================================================================
// REGION - Where a bonus rule applies
// =============================================================================

type Region string

const (
	RegionGlobal Region = "global"
	RegionJapan  Region = "japan"
	RegionTaiwan Region = "taiwan"
)

// allowedInMode reports whether a rule region is live under the given mode.
// Travel mode admits {global, japan}; daily mode admits {global, taiwan}.
func (r Region) allowedInMode(mode Mode) bool {
	if r == RegionGlobal {
		return true
	}
	if mode == ModeTravel {
		return r == RegionJapan
	}
	return r == RegionTaiwan
}

// =============================================================================
// CARD - Issuer-level entity owning an ordered list of programs
// =============================================================================

type BillingCycleType string

const (
	CycleCalendar  BillingCycleType = "calendar"
	CycleStatement BillingCycleType = "statement"
)

// Card is immutable during a single calculation. It is authored and
// validated by the card-management layer (see the factory package).
type Card struct {
	ID     string
	Name   string
	Issuer string

	// Programs are ordered; program non-overlap is assumed but NOT enforced
	// (see ValidatePrograms for the advisory check).
	Programs []Program

	// ForeignTxFee is a percentage (1.5 means 1.5%). Nil means the
	// issuer default of 1.5% applies.
	ForeignTxFee *decimal.Decimal

	// StatementDate anchors statement billing cycles (day 1-31, 0 = unset).
	StatementDate int

	BillingCycle BillingCycleType
}

// =============================================================================
// PROGRAM - A reward configuration valid for [StartDate, EndDate]
// =============================================================================

type Program struct {
	ID   string
	Name string

	// Inclusive calendar-date validity window.
	StartDate Date
	EndDate   Date

	// Base rates as fractions (0.03 = 3%).
	BaseRateOverseas decimal.Decimal
	BaseRateDomestic decimal.Decimal

	Rules []BonusRule
}

// Window returns the program's validity period.
func (p *Program) Window() Period {
	return Period{Start: p.StartDate, End: p.EndDate}
}

// =============================================================================
// BONUS RULE - A conditional reward modifier layered on the base rate
// =============================================================================

// Reward is the tagged variant for how a rule pays out: either a
// per-event percentage or a one-time fixed payout per accrual period.
type Reward interface {
	isReward()
}

// PercentageReward pays floor(amountTWD * Rate) per matching transaction,
// or the marginal cumulative payout when the rule's threshold is cumulative.
type PercentageReward struct {
	Rate decimal.Decimal // fraction, e.g. 0.05
}

// FixedReward pays Amount (in Currency) exactly once per accrual period,
// attributed to whichever transaction first satisfies the rule.
type FixedReward struct {
	Amount   decimal.Decimal
	Currency Currency
}

func (PercentageReward) isReward() {}
func (FixedReward) isReward()      {}

type ThresholdType string

const (
	PerTransaction ThresholdType = "per_transaction"
	Cumulative     ThresholdType = "cumulative"
)

// Threshold is a minimum-spend predicate on a rule.
type Threshold struct {
	Amount   decimal.Decimal
	Currency Currency
	Type     ThresholdType
}

type CapPeriod string

const (
	CapMonthly  CapPeriod = "monthly"
	CapCampaign CapPeriod = "campaign"
)

// Cap limits the reward a rule can pay within one accrual period.
type Cap struct {
	Amount   decimal.Decimal
	Currency Currency
	Period   CapPeriod
}

// BonusRule belongs to exactly one Program.
type BonusRule struct {
	ID     string
	Name   string
	Reward Reward

	// Matching predicates. Empty slices are wildcards.
	Categories     []string
	Merchants      []string // substring match against the transaction merchant
	PaymentMethods []string // exact match
	Region         Region   // empty resolves to japan (legacy default)

	// Rule-local validity window. When set, these OVERRIDE the program's
	// window for this rule (they do not intersect with it).
	StartDate *Date
	EndDate   *Date

	MinSpend *Threshold
	Cap      *Cap

	// Informational only. The engine does not enforce registration.
	RequiresRegistration bool
}

// EffectiveRegion resolves the legacy nil-region default.
func (r *BonusRule) EffectiveRegion() Region {
	if r.Region == "" {
		return RegionJapan
	}
	return r.Region
}

// UsageCurrency is the currency in which this rule's usage-map
// contributions are denominated: the cap currency when capped, the payout
// currency for fixed rewards, TWD otherwise.
func (r *BonusRule) UsageCurrency() Currency {
	if r.Cap != nil {
		return r.Cap.Currency
	}
	if f, ok := r.Reward.(FixedReward); ok {
		return f.Currency
	}
	return CurrencyTWD
}

// =============================================================================
// TRANSACTION - Immutable purchase record
// =============================================================================

type Transaction struct {
	ID     string
	CardID string

	Amount   decimal.Decimal
	Currency Currency

	// ExchangeRate is the JPY->TWD multiplier in force when the purchase
	// was made. It is applied uniformly to every rule-local currency
	// touching this transaction.
	ExchangeRate decimal.Decimal

	Category      string
	Merchant      string
	PaymentMethod string
	Date          Date

	// Calculation snapshot. Persisted so later rule edits never
	// retroactively change historical totals.
	CalculatedReward decimal.Decimal
	AppliedRuleNames []string
	RuleUsage        map[string]decimal.Decimal // ruleID -> contribution, usage currency
}

// FXRate returns the JPY->TWD rate to use for rule-currency conversion.
// A missing rate degrades to 1 rather than failing the calculation.
func (t *Transaction) FXRate() decimal.Decimal {
	if t.ExchangeRate.IsPositive() {
		return t.ExchangeRate
	}
	return decimal.NewFromInt(1)
}

// AmountTWD normalizes the purchase amount: floor(amount * rate), with
// rate = 1 for TWD transactions.
func (t *Transaction) AmountTWD() decimal.Decimal {
	if t.Currency == CurrencyTWD {
		return t.Amount.Floor()
	}
	return t.Amount.Mul(t.FXRate()).Floor()
}

// =============================================================================
// USAGE MAP - Prior contribution per rule, scoped to one accrual period
// =============================================================================

// UsageMap maps ruleID to the amount already counted against that rule's
// cap or cumulative payout in the current period, denominated in the
// rule's usage currency. Transient; supplied by the caller.
type UsageMap map[string]decimal.Decimal

// CumulativeSpendFunc is the injected prior-spend lookup. It sums the
// amounts of transactions inside period (excluding excludeTxID) expressed
// in the requested currency. A nil function is a valid configuration:
// cumulative thresholds then default to "always satisfied".
type CumulativeSpendFunc func(excludeTxID string, period Period, currency Currency) decimal.Decimal

// =============================================================================
// CALCULATION RESULT - Created fresh per Calculate call, never persisted
// =============================================================================

// BreakdownEntry reports one reward source. The synthetic id "base"
// identifies the program base-rate entry.
type BreakdownEntry struct {
	RuleID   string
	RuleName string

	// Amount is the reward in whole TWD.
	Amount decimal.Decimal

	// Contribution is the amount to feed back into the caller's usage map,
	// denominated in UsageCurrency.
	Contribution  decimal.Decimal
	UsageCurrency Currency

	Capped bool

	// CapRemaining is the cap headroom left after this transaction, in the
	// cap currency. Nil for uncapped rules.
	CapRemaining *decimal.Decimal
}

// BaseRuleID is the synthetic breakdown id for the program base rate.
const BaseRuleID = "base"

type CalculationResult struct {
	ProgramID   string
	ProgramName string

	AmountTWD decimal.Decimal

	TotalReward decimal.Decimal // whole TWD

	// EffectiveRate is reward per TWD spent (NOT per original-currency
	// unit). Zero when AmountTWD is zero.
	EffectiveRate decimal.Decimal

	Breakdown []BreakdownEntry

	TransactionFee decimal.Decimal
	NetReward      decimal.Decimal // TotalReward - TransactionFee; ranking key

	Warnings []Warning
}

// AppliedRuleNames lists the bonus rules that fired, for snapshotting onto
// a persisted transaction. The base entry is excluded.
func (r *CalculationResult) AppliedRuleNames() []string {
	var names []string
	for _, e := range r.Breakdown {
		if e.RuleID == BaseRuleID {
			continue
		}
		names = append(names, e.RuleName)
	}
	return names
}

// RuleContributions maps ruleID to its usage-currency contribution, for
// snapshotting onto a persisted transaction.
func (r *CalculationResult) RuleContributions() map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal)
	for _, e := range r.Breakdown {
		if e.RuleID == BaseRuleID {
			continue
		}
		m[e.RuleID] = e.Contribution
	}
	return m
}
