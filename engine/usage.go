/*
usage.go - Period-windowed usage aggregation

PURPOSE:
  Answers "how much has already been counted against this rule's
  cap/threshold in the current period?" by summing the per-rule
  contributions snapshotted onto past transactions. The calculator never
  calls this itself; callers use it to build the UsageMap input, and the
  progress UI uses it directly for "amount used / cap" bars.

SNAPSHOT VS LEGACY:
  Transactions persisted by this system carry a RuleUsage snapshot
  (ruleID -> contribution, currency-correct). Pre-migration records only
  carry AppliedRuleNames; for those the ENTIRE transaction amount counts as
  usage - a coarse approximation kept solely for old data.

SEE ALSO:
  - period.go: resolves the accrual window a date falls into
*/
package engine

import "github.com/shopspring/decimal"

// RuleUsage sums, over transactions belonging to cardID whose date falls
// within period (inclusive), each transaction's contribution to the rule.
// The snapshot map is authoritative when present; AppliedRuleNames is the
// legacy fallback.
func RuleUsage(txs []Transaction, rule *BonusRule, cardID string, period Period) decimal.Decimal {
	total := decimal.Zero
	for i := range txs {
		tx := &txs[i]
		if tx.CardID != cardID || !period.Contains(tx.Date) {
			continue
		}
		if tx.RuleUsage != nil {
			if v, ok := tx.RuleUsage[rule.ID]; ok {
				total = total.Add(v)
			}
			continue
		}
		if containsString(tx.AppliedRuleNames, rule.Name) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
