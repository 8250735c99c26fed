// Package ledger implements the payment ledger arithmetic shared by every
// screen: amount and date canonicalization, the (due, paid, remaining)
// totals triple, and the 1-to-3 entry installment plan.
package ledger

import (
	"math"
	"strconv"
	"strings"
)

// Payment is a single recorded payment. Insertion order is chronological
// entry order, not necessarily date order.
type Payment struct {
	Date   string `json:"date"`
	Amount Amount `json:"amount"`
	Method string `json:"method"`
}

// PlanEntry is one intended installment of a payment plan. It is never
// reconciled against actual payments.
type PlanEntry struct {
	Index   int    `json:"index"`
	Amount  Amount `json:"amount"`
	DueDate string `json:"dueDate"`
	// Date is a legacy alias for DueDate still present in older records.
	Date string `json:"date,omitempty"`
}

// Totals is the derived financial triple for a member.
type Totals struct {
	TotalDue  float64 `json:"totalDue"`
	TotalPaid float64 `json:"totalPaid"`
	Remaining float64 `json:"remaining"`
}

// Amount is a float64 that decodes from numeric JSON or from textual input
// using either a comma or a point as decimal separator. Anything that cannot
// be parsed decodes to zero.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*a = Amount(parseAmount(s))
	return nil
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// NormalizeAmount coerces numeric or textual input to a value rounded to two
// decimal places. Non-numeric input yields zero. Idempotent.
func NormalizeAmount(value any) float64 {
	return round2(NumberFromValue(value))
}

// NumberFromValue coerces a value to float64 without rounding. Non-numeric
// input yields zero.
func NumberFromValue(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0
		}
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case Amount:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseAmount(v)
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BoolFromValue coerces boolean-like input: "oui", "yes", "true" and "1"
// (case-insensitive) are true, anything else is false.
func BoolFromValue(value any) bool {
	if b, ok := value.(bool); ok {
		return b
	}
	if value == nil {
		return false
	}
	s := strings.ToLower(strings.TrimSpace(toString(value)))
	return s == "true" || s == "yes" || s == "oui" || s == "1"
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// FormatPaymentDate canonicalizes a date string for display. DD/MM/YYYY
// input passes through; YYYY-MM-DD input is converted; empty input yields an
// empty string. Anything else passes through untouched.
func FormatPaymentDate(value string) string {
	if value == "" {
		return ""
	}
	if strings.Contains(value, "/") {
		return value
	}
	parts := strings.SplitN(value, "-", 3)
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "" {
		return parts[2] + "/" + parts[1] + "/" + parts[0]
	}
	return value
}

// ClonePayments returns a normalized copy of a payment list: dates in
// display form, amounts rounded to two decimals, methods preserved.
func ClonePayments(payments []Payment) []Payment {
	cloned := make([]Payment, 0, len(payments))
	for _, p := range payments {
		cloned = append(cloned, Payment{
			Date:   FormatPaymentDate(p.Date),
			Amount: Amount(NormalizeAmount(p.Amount)),
			Method: p.Method,
		})
	}
	return cloned
}

// ComputeTotals derives the totals triple from a due amount and a payment
// list. Remaining may be negative when overpaid; it is not clamped. The
// invariant totalDue - totalPaid == remaining holds within 0.01 by
// construction.
func ComputeTotals(due float64, payments []Payment) Totals {
	sum := 0.0
	for _, p := range payments {
		sum += NormalizeAmount(p.Amount)
	}
	totalDue := NormalizeAmount(due)
	totalPaid := NormalizeAmount(sum)
	return Totals{
		TotalDue:  totalDue,
		TotalPaid: totalPaid,
		Remaining: NormalizeAmount(totalDue - totalPaid),
	}
}

// LegacyPaid derives a synthetic paid amount from the single-field legacy
// shape (due minus remainingBalance). It returns 0 and false when the
// derivation does not produce a positive figure.
func LegacyPaid(due, remainingBalance float64) (float64, bool) {
	if due == 0 && remainingBalance == 0 {
		return 0, false
	}
	paid := NormalizeAmount(due - remainingBalance)
	if paid <= 0 {
		return 0, false
	}
	return paid, true
}

// ClampPlanCount coerces a value to an installment count in [1,3].
// Non-numeric input defaults to 1; out-of-range input clamps to the nearest
// bound.
func ClampPlanCount(value any) int {
	var n int
	switch v := value.(type) {
	case int:
		n = v
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 1
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 1
			}
			parsed = int(f)
		}
		n = parsed
	default:
		return 1
	}
	if n < 1 {
		return 1
	}
	if n > 3 {
		return 3
	}
	return n
}

// BuildPlan rebuilds an installment plan of the given count from raw
// entries. Entries matching an index are carried over with normalized
// amounts; missing indexes get a zero amount and empty due date. Entries
// with an index beyond count are dropped entirely.
func BuildPlan(count int, raw []PlanEntry) []PlanEntry {
	if count < 1 {
		count = 1
	}
	if count > 3 {
		count = 3
	}
	plan := make([]PlanEntry, 0, count)
	for index := 1; index <= count; index++ {
		entry := PlanEntry{Index: index}
		for _, r := range raw {
			if r.Index == index {
				entry.Amount = Amount(NormalizeAmount(r.Amount))
				entry.DueDate = r.DueDate
				if entry.DueDate == "" {
					entry.DueDate = r.Date
				}
				break
			}
		}
		plan = append(plan, entry)
	}
	return plan
}
