/*
Package factory provides JSON card-configuration to domain conversion.

PURPOSE:
  Converts JSON card definitions (programs, bonus rules) into engine.Card
  structures. This enables reward configuration without code changes -
  cards can be authored in an admin UI or a config file, stored as plain
  JSON, and materialized back into validated domain records.

JSON SCHEMA:
  {
    "id": "shin-kong-jp",
    "name": "Shin Kong JP Cashback",
    "foreign_tx_fee": 1.5,
    "statement_date": 10,
    "billing_cycle_type": "statement",
    "programs": [{
      "id": "q2-campaign",
      "name": "2025 Q2 Japan Campaign",
      "start_date": "2025-04-01",
      "end_date": "2025-06-30",
      "base_rate_overseas": 0.01,
      "base_rate_domestic": 0.005,
      "bonus_rules": [{
        "id": "jp-dining",
        "name": "Japan dining 5%",
        "rate": 0.05,
        "categories": ["dining"],
        "region": "japan",
        "cap_amount": 1000,
        "cap_amount_currency": "TWD",
        "cap_period": "monthly"
      }]
    }]
  }

KEY FEATURES:
  - Validates dates, currencies, enumerations and reward-type coherence
  - Maps the flat optional-field rule shape onto the engine's tagged
    reward variants (percentage vs fixed)
  - Round-trips: ToJSON(FromJSON(x)) preserves the configuration, which
    the SQLite store relies on for its config_json column

USAGE:
  card, err := factory.ParseCard(jsonStr)
  cfg := factory.ToJSON(card) // for persistence

SEE ALSO:
  - engine/types.go: the domain shapes
  - seed.go: YAML seed files built from the same schema
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cardwise/reward-engine/engine"
)

// ErrInvalidConfig wraps every validation failure in this package.
var ErrInvalidConfig = errors.New("invalid card config")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CardJSON is the wire/storage representation of a card configuration.
type CardJSON struct {
	ID               string        `json:"id,omitempty" yaml:"id,omitempty"`
	Name             string        `json:"name" yaml:"name"`
	Issuer           string        `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	ForeignTxFee     *float64      `json:"foreign_tx_fee,omitempty" yaml:"foreign_tx_fee,omitempty"` // percent
	StatementDate    int           `json:"statement_date,omitempty" yaml:"statement_date,omitempty"`
	BillingCycleType string        `json:"billing_cycle_type,omitempty" yaml:"billing_cycle_type,omitempty"` // calendar | statement
	Programs         []ProgramJSON `json:"programs" yaml:"programs"`
}

type ProgramJSON struct {
	ID               string     `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	StartDate        string     `json:"start_date" yaml:"start_date"` // 2006-01-02
	EndDate          string     `json:"end_date" yaml:"end_date"`
	BaseRateOverseas float64    `json:"base_rate_overseas" yaml:"base_rate_overseas"` // fraction
	BaseRateDomestic float64    `json:"base_rate_domestic" yaml:"base_rate_domestic"`
	BonusRules       []RuleJSON `json:"bonus_rules,omitempty" yaml:"bonus_rules,omitempty"`
}

type RuleJSON struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// Reward: "percentage" (default, uses rate) or "fixed" (uses
	// fixed_reward_amount/currency).
	RewardType          string  `json:"reward_type,omitempty" yaml:"reward_type,omitempty"`
	Rate                float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	FixedRewardAmount   float64 `json:"fixed_reward_amount,omitempty" yaml:"fixed_reward_amount,omitempty"`
	FixedRewardCurrency string  `json:"fixed_reward_currency,omitempty" yaml:"fixed_reward_currency,omitempty"`

	Categories        []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	SpecificMerchants []string `json:"specific_merchants,omitempty" yaml:"specific_merchants,omitempty"`
	PaymentMethods    []string `json:"payment_methods,omitempty" yaml:"payment_methods,omitempty"`
	Region            string   `json:"region,omitempty" yaml:"region,omitempty"`

	StartDate string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty" yaml:"end_date,omitempty"`

	MinAmount         *float64 `json:"min_amount,omitempty" yaml:"min_amount,omitempty"`
	MinAmountCurrency string   `json:"min_amount_currency,omitempty" yaml:"min_amount_currency,omitempty"`
	MinAmountType     string   `json:"min_amount_type,omitempty" yaml:"min_amount_type,omitempty"` // per_transaction | cumulative

	CapAmount         *float64 `json:"cap_amount,omitempty" yaml:"cap_amount,omitempty"`
	CapAmountCurrency string   `json:"cap_amount_currency,omitempty" yaml:"cap_amount_currency,omitempty"`
	CapPeriod         string   `json:"cap_period,omitempty" yaml:"cap_period,omitempty"` // monthly | campaign

	RequiresRegistration bool `json:"requires_registration,omitempty" yaml:"requires_registration,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseCard parses a JSON string into a validated engine.Card.
func ParseCard(jsonStr string) (*engine.Card, error) {
	var cj CardJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse card JSON: %w", err)
	}
	return FromJSON(cj)
}

// FromJSON converts CardJSON into a validated engine.Card.
func FromJSON(cj CardJSON) (*engine.Card, error) {
	if cj.Name == "" {
		return nil, invalidf("card name is required")
	}
	if cj.StatementDate < 0 || cj.StatementDate > 31 {
		return nil, invalidf("statement_date %d out of range 1-31", cj.StatementDate)
	}

	cycle := engine.BillingCycleType(cj.BillingCycleType)
	switch cycle {
	case "", engine.CycleCalendar, engine.CycleStatement:
	default:
		return nil, invalidf("unknown billing_cycle_type %q", cj.BillingCycleType)
	}

	card := &engine.Card{
		ID:            cj.ID,
		Name:          cj.Name,
		Issuer:        cj.Issuer,
		StatementDate: cj.StatementDate,
		BillingCycle:  cycle,
	}
	if cj.ForeignTxFee != nil {
		fee := decimal.NewFromFloat(*cj.ForeignTxFee)
		if fee.IsNegative() {
			return nil, invalidf("foreign_tx_fee must not be negative")
		}
		card.ForeignTxFee = &fee
	}

	for _, pj := range cj.Programs {
		program, err := programFromJSON(pj)
		if err != nil {
			return nil, err
		}
		card.Programs = append(card.Programs, *program)
	}
	return card, nil
}

func programFromJSON(pj ProgramJSON) (*engine.Program, error) {
	if pj.Name == "" {
		return nil, invalidf("program name is required")
	}
	start, err := engine.ParseDate(pj.StartDate)
	if err != nil {
		return nil, invalidf("program %s: %v", pj.Name, err)
	}
	end, err := engine.ParseDate(pj.EndDate)
	if err != nil {
		return nil, invalidf("program %s: %v", pj.Name, err)
	}
	if end.Before(start) {
		return nil, invalidf("program %s: end_date before start_date", pj.Name)
	}

	program := &engine.Program{
		ID:               pj.ID,
		Name:             pj.Name,
		StartDate:        start,
		EndDate:          end,
		BaseRateOverseas: decimal.NewFromFloat(pj.BaseRateOverseas),
		BaseRateDomestic: decimal.NewFromFloat(pj.BaseRateDomestic),
	}
	for _, rj := range pj.BonusRules {
		rule, err := ruleFromJSON(rj)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", pj.Name, err)
		}
		program.Rules = append(program.Rules, *rule)
	}
	return program, nil
}

func ruleFromJSON(rj RuleJSON) (*engine.BonusRule, error) {
	if rj.Name == "" {
		return nil, invalidf("rule name is required")
	}

	rule := &engine.BonusRule{
		ID:                   rj.ID,
		Name:                 rj.Name,
		Categories:           rj.Categories,
		Merchants:            rj.SpecificMerchants,
		PaymentMethods:       rj.PaymentMethods,
		RequiresRegistration: rj.RequiresRegistration,
	}

	// Region: empty is tolerated and resolves to japan at evaluation time
	// (legacy-data compatibility shim).
	switch engine.Region(rj.Region) {
	case "", engine.RegionGlobal, engine.RegionJapan, engine.RegionTaiwan:
		rule.Region = engine.Region(rj.Region)
	default:
		return nil, invalidf("rule %s: unknown region %q", rj.Name, rj.Region)
	}

	switch rj.RewardType {
	case "", "percentage":
		rule.Reward = engine.PercentageReward{Rate: decimal.NewFromFloat(rj.Rate)}
	case "fixed":
		cur, err := engine.ParseCurrency(rj.FixedRewardCurrency)
		if err != nil {
			return nil, invalidf("rule %s: fixed reward: %v", rj.Name, err)
		}
		if rj.FixedRewardAmount <= 0 {
			return nil, invalidf("rule %s: fixed_reward_amount must be positive", rj.Name)
		}
		rule.Reward = engine.FixedReward{
			Amount:   decimal.NewFromFloat(rj.FixedRewardAmount),
			Currency: cur,
		}
	default:
		return nil, invalidf("rule %s: unknown reward_type %q", rj.Name, rj.RewardType)
	}

	if rj.StartDate != "" {
		d, err := engine.ParseDate(rj.StartDate)
		if err != nil {
			return nil, invalidf("rule %s: %v", rj.Name, err)
		}
		rule.StartDate = &d
	}
	if rj.EndDate != "" {
		d, err := engine.ParseDate(rj.EndDate)
		if err != nil {
			return nil, invalidf("rule %s: %v", rj.Name, err)
		}
		rule.EndDate = &d
	}

	if rj.MinAmount != nil {
		cur, err := engine.ParseCurrency(orDefault(rj.MinAmountCurrency, string(engine.CurrencyTWD)))
		if err != nil {
			return nil, invalidf("rule %s: min_amount: %v", rj.Name, err)
		}
		thType := engine.ThresholdType(orDefault(rj.MinAmountType, string(engine.PerTransaction)))
		if thType != engine.PerTransaction && thType != engine.Cumulative {
			return nil, invalidf("rule %s: unknown min_amount_type %q", rj.Name, rj.MinAmountType)
		}
		rule.MinSpend = &engine.Threshold{
			Amount:   decimal.NewFromFloat(*rj.MinAmount),
			Currency: cur,
			Type:     thType,
		}
	}

	if rj.CapAmount != nil {
		cur, err := engine.ParseCurrency(orDefault(rj.CapAmountCurrency, string(engine.CurrencyTWD)))
		if err != nil {
			return nil, invalidf("rule %s: cap: %v", rj.Name, err)
		}
		capPeriod := engine.CapPeriod(orDefault(rj.CapPeriod, string(engine.CapMonthly)))
		if capPeriod != engine.CapMonthly && capPeriod != engine.CapCampaign {
			return nil, invalidf("rule %s: unknown cap_period %q", rj.Name, rj.CapPeriod)
		}
		rule.Cap = &engine.Cap{
			Amount:   decimal.NewFromFloat(*rj.CapAmount),
			Currency: cur,
			Period:   capPeriod,
		}
	}

	return rule, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// =============================================================================
// SERIALIZATION - Domain back to the JSON schema (storage round-trip)
// =============================================================================

// ToJSON converts an engine.Card back into its storage representation.
func ToJSON(card *engine.Card) CardJSON {
	cj := CardJSON{
		ID:               card.ID,
		Name:             card.Name,
		Issuer:           card.Issuer,
		StatementDate:    card.StatementDate,
		BillingCycleType: string(card.BillingCycle),
	}
	if card.ForeignTxFee != nil {
		fee, _ := card.ForeignTxFee.Float64()
		cj.ForeignTxFee = &fee
	}
	for i := range card.Programs {
		cj.Programs = append(cj.Programs, programToJSON(&card.Programs[i]))
	}
	return cj
}

func programToJSON(p *engine.Program) ProgramJSON {
	overseas, _ := p.BaseRateOverseas.Float64()
	domestic, _ := p.BaseRateDomestic.Float64()
	pj := ProgramJSON{
		ID:               p.ID,
		Name:             p.Name,
		StartDate:        p.StartDate.String(),
		EndDate:          p.EndDate.String(),
		BaseRateOverseas: overseas,
		BaseRateDomestic: domestic,
	}
	for i := range p.Rules {
		pj.BonusRules = append(pj.BonusRules, ruleToJSON(&p.Rules[i]))
	}
	return pj
}

func ruleToJSON(r *engine.BonusRule) RuleJSON {
	rj := RuleJSON{
		ID:                   r.ID,
		Name:                 r.Name,
		Categories:           r.Categories,
		SpecificMerchants:    r.Merchants,
		PaymentMethods:       r.PaymentMethods,
		Region:               string(r.Region),
		RequiresRegistration: r.RequiresRegistration,
	}

	switch rw := r.Reward.(type) {
	case engine.PercentageReward:
		rj.RewardType = "percentage"
		rj.Rate, _ = rw.Rate.Float64()
	case engine.FixedReward:
		rj.RewardType = "fixed"
		rj.FixedRewardAmount, _ = rw.Amount.Float64()
		rj.FixedRewardCurrency = string(rw.Currency)
	}

	if r.StartDate != nil {
		rj.StartDate = r.StartDate.String()
	}
	if r.EndDate != nil {
		rj.EndDate = r.EndDate.String()
	}
	if r.MinSpend != nil {
		v, _ := r.MinSpend.Amount.Float64()
		rj.MinAmount = &v
		rj.MinAmountCurrency = string(r.MinSpend.Currency)
		rj.MinAmountType = string(r.MinSpend.Type)
	}
	if r.Cap != nil {
		v, _ := r.Cap.Amount.Float64()
		rj.CapAmount = &v
		rj.CapAmountCurrency = string(r.Cap.Currency)
		rj.CapPeriod = string(r.Cap.Period)
	}
	return rj
}
