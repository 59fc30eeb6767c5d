/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Card
  configurations ride on the factory schema directly, so the authoring
  UI, the seed files and the store all share one shape.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - factory/card.go: CardJSON / TransactionJSON schema
*/
package api

import (
	"github.com/cardwise/reward-engine/engine"
	"github.com/cardwise/reward-engine/factory"
	"github.com/cardwise/reward-engine/wallet"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CardDTO represents a card in API responses.
type CardDTO struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Config factory.CardJSON `json:"config"`
}

// SimulateRequest evaluates a draft purchase against one card without
// persisting anything.
type SimulateRequest struct {
	CardID      string                  `json:"card_id"`
	Transaction factory.TransactionJSON `json:"transaction"`
	Mode        string                  `json:"mode"` // travel | daily
}

// RankRequest evaluates a draft purchase against every stored card.
type RankRequest struct {
	Transaction factory.TransactionJSON `json:"transaction"`
	Mode        string                  `json:"mode"`
}

// RecordRequest persists a purchase together with its calculation
// snapshot.
type RecordRequest struct {
	Transaction factory.TransactionJSON `json:"transaction"`
	Mode        string                  `json:"mode"`
}

// BreakdownDTO is one reward source in a calculation result. The id
// "base" marks the program base-rate entry.
type BreakdownDTO struct {
	RuleID        string   `json:"rule_id"`
	RuleName      string   `json:"rule_name"`
	Amount        float64  `json:"amount"` // TWD
	Contribution  float64  `json:"contribution"`
	UsageCurrency string   `json:"usage_currency"`
	Capped        bool     `json:"capped"`
	CapRemaining  *float64 `json:"cap_remaining,omitempty"`
}

type WarningDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CalculationResultDTO is the engine output on the wire.
type CalculationResultDTO struct {
	ProgramID      string         `json:"program_id,omitempty"`
	ProgramName    string         `json:"program_name,omitempty"`
	AmountTWD      float64        `json:"amount_twd"`
	TotalReward    float64        `json:"total_reward"`
	EffectiveRate  float64        `json:"effective_rate"`
	Breakdown      []BreakdownDTO `json:"breakdown"`
	TransactionFee float64        `json:"transaction_fee"`
	NetReward      float64        `json:"net_reward"`
	Warnings       []WarningDTO   `json:"warnings,omitempty"`
}

// RankedCardDTO pairs a candidate card with its simulated outcome,
// ordered best-first by net reward.
type RankedCardDTO struct {
	CardID   string               `json:"card_id"`
	CardName string               `json:"card_name"`
	Result   CalculationResultDTO `json:"result"`
}

// TransactionDTO represents a persisted purchase with its snapshot.
type TransactionDTO struct {
	factory.TransactionJSON
	CalculatedReward float64            `json:"calculated_reward"`
	AppliedRuleNames []string           `json:"applied_rule_names,omitempty"`
	RuleUsage        map[string]float64 `json:"rule_usage,omitempty"`
}

// ProgressDTO is one "amount used / cap" bar.
type ProgressDTO struct {
	ProgramID   string  `json:"program_id"`
	RuleID      string  `json:"rule_id"`
	RuleName    string  `json:"rule_name"`
	Used        float64 `json:"used"`
	Cap         float64 `json:"cap"`
	Remaining   float64 `json:"remaining"`
	Currency    string  `json:"currency"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
}

// ProgramStatusDTO summarizes one program's lifecycle relative to a
// reference date, for the card detail view.
type ProgramStatusDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Status        string `json:"status"` // active | expired | upcoming
	RemainingDays int    `json:"remaining_days"`
}

// OverlapDTO names a conflicting program pair (advisory).
type OverlapDTO struct {
	ProgramA string `json:"program_a"`
	ProgramB string `json:"program_b"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toResultDTO(res *engine.CalculationResult) CalculationResultDTO {
	dto := CalculationResultDTO{
		ProgramID:   res.ProgramID,
		ProgramName: res.ProgramName,
	}
	dto.AmountTWD, _ = res.AmountTWD.Float64()
	dto.TotalReward, _ = res.TotalReward.Float64()
	dto.EffectiveRate, _ = res.EffectiveRate.Float64()
	dto.TransactionFee, _ = res.TransactionFee.Float64()
	dto.NetReward, _ = res.NetReward.Float64()

	for _, e := range res.Breakdown {
		b := BreakdownDTO{
			RuleID:        e.RuleID,
			RuleName:      e.RuleName,
			UsageCurrency: string(e.UsageCurrency),
			Capped:        e.Capped,
		}
		b.Amount, _ = e.Amount.Float64()
		b.Contribution, _ = e.Contribution.Float64()
		if e.CapRemaining != nil {
			v, _ := e.CapRemaining.Float64()
			b.CapRemaining = &v
		}
		dto.Breakdown = append(dto.Breakdown, b)
	}
	for _, w := range res.Warnings {
		dto.Warnings = append(dto.Warnings, WarningDTO{Code: string(w.Code), Message: w.Message})
	}
	return dto
}

func toTransactionDTO(tx *engine.Transaction) TransactionDTO {
	amount, _ := tx.Amount.Float64()
	rate, _ := tx.ExchangeRate.Float64()
	reward, _ := tx.CalculatedReward.Float64()

	dto := TransactionDTO{
		TransactionJSON: factory.TransactionJSON{
			ID:            tx.ID,
			CardID:        tx.CardID,
			Amount:        amount,
			Currency:      string(tx.Currency),
			ExchangeRate:  rate,
			Category:      tx.Category,
			Merchant:      tx.Merchant,
			PaymentMethod: tx.PaymentMethod,
			Date:          tx.Date.String(),
		},
		CalculatedReward: reward,
		AppliedRuleNames: tx.AppliedRuleNames,
	}
	if tx.RuleUsage != nil {
		dto.RuleUsage = make(map[string]float64, len(tx.RuleUsage))
		for k, v := range tx.RuleUsage {
			dto.RuleUsage[k], _ = v.Float64()
		}
	}
	return dto
}

func toProgressDTOs(items []wallet.RuleProgress) []ProgressDTO {
	dtos := make([]ProgressDTO, 0, len(items))
	for _, rp := range items {
		d := ProgressDTO{
			ProgramID:   rp.ProgramID,
			RuleID:      rp.RuleID,
			RuleName:    rp.RuleName,
			Currency:    string(rp.Currency),
			PeriodStart: rp.Period.Start.String(),
			PeriodEnd:   rp.Period.End.String(),
		}
		d.Used, _ = rp.Used.Float64()
		d.Cap, _ = rp.Cap.Float64()
		d.Remaining, _ = rp.Remaining().Float64()
		dtos = append(dtos, d)
	}
	return dtos
}
