// Package reconcile turns raw, inconsistently-shaped member records into
// canonical ones and merges imported batches into the existing collection.
// Every entry point (seed load, form submit, CSV import, detail edit) goes
// through the same normalizer so independent screens converge on the same
// shape and the same arithmetic.
package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qbbc/clubadmin/internal/ledger"
	"github.com/qbbc/clubadmin/internal/model"
)

// NowISO returns the timestamp format used on member records.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NormalizeMember folds a raw member record into canonical form in place.
// It never fails: any field that cannot be coerced degrades to a safe
// default. Applying it twice yields the same record as applying it once.
func NormalizeMember(m *model.Member) {
	if m == nil {
		return
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = "active"
	}

	m.PassSportAmount = ledger.Amount(ledger.NumberFromValue(m.PassSportAmount))
	m.Payments = ledger.ClonePayments(m.Payments)

	var paidFallback, remainingFallback *float64
	if m.TotalPaid != nil {
		v := ledger.NormalizeAmount(*m.TotalPaid)
		paidFallback = &v
	}
	if m.Remaining != nil {
		v := ledger.NormalizeAmount(*m.Remaining)
		remainingFallback = &v
	}

	// Legacy single-field records carry remainingBalance instead of an
	// itemized payment list. Derive a synthetic paid figure from it so the
	// totals stay meaningful; the payments list itself stays empty.
	if len(m.Payments) == 0 && (m.RemainingBalance != nil || paidFallback == nil) {
		var legacy float64
		if m.RemainingBalance != nil {
			legacy = ledger.NumberFromValue(*m.RemainingBalance)
		}
		due := float64(m.PassSportAmount)
		if due != 0 || legacy != 0 {
			if paid, ok := ledger.LegacyPaid(due, legacy); ok {
				if paidFallback == nil {
					paidFallback = &paid
				}
				if remainingFallback == nil {
					v := ledger.NormalizeAmount(due - *paidFallback)
					remainingFallback = &v
				}
			}
		}
	}

	totals := ledger.ComputeTotals(float64(m.PassSportAmount), m.Payments)
	if len(m.Payments) == 0 && paidFallback != nil {
		totals.TotalPaid = *paidFallback
		if remainingFallback != nil {
			totals.Remaining = *remainingFallback
		} else {
			totals.Remaining = ledger.NormalizeAmount(totals.TotalDue - totals.TotalPaid)
		}
	}

	m.TotalDue = totals.TotalDue
	paid := totals.TotalPaid
	remaining := totals.Remaining
	m.TotalPaid = &paid
	m.Remaining = &remaining
	// remainingBalance mirrors remaining for compatibility with older
	// exports; both are kept in sync on every normalization.
	balance := remaining
	m.RemainingBalance = &balance

	normalizePlan(m)

	if m.PaymentMethod == "" && len(m.Payments) > 0 {
		m.PaymentMethod = m.Payments[len(m.Payments)-1].Method
	}
}

// normalizePlan rebuilds the installment plan from the structured entries
// merged with any legacy paymentN/paymentNAmount/paymentNDate triplets still
// on the record, preferring the structured entry when both exist. The legacy
// mirrors are rewritten to match.
func normalizePlan(m *model.Member) {
	source := m.PaymentPlan
	count := int(m.PaymentCount)
	if count == 0 {
		count = len(source)
	}
	count = ledger.ClampPlanCount(count)

	legacyAmounts := []ledger.Amount{m.Payment1Amount, m.Payment2Amount, m.Payment3Amount}
	legacyDates := []string{
		firstNonEmpty(m.Payment1Date, m.Payment1),
		firstNonEmpty(m.Payment2Date, m.Payment2),
		firstNonEmpty(m.Payment3Date, m.Payment3),
	}

	plan := make([]ledger.PlanEntry, 0, count)
	mirrorsAmount := [3]ledger.Amount{}
	mirrorsDate := [3]string{}
	for index := 1; index <= 3; index++ {
		var amount ledger.Amount
		var dueDate string
		if index <= count {
			if entry, ok := findPlanEntry(source, index); ok {
				amount = ledger.Amount(ledger.NormalizeAmount(entry.Amount))
				dueDate = firstNonEmpty(entry.DueDate, entry.Date, legacyDates[index-1])
			} else {
				amount = ledger.Amount(ledger.NormalizeAmount(legacyAmounts[index-1]))
				dueDate = legacyDates[index-1]
			}
			plan = append(plan, ledger.PlanEntry{Index: index, Amount: amount, DueDate: dueDate})
		}
		mirrorsAmount[index-1] = amount
		mirrorsDate[index-1] = dueDate
	}

	m.PaymentCount = model.Count(count)
	m.PaymentPlan = plan
	m.Payment1, m.Payment2, m.Payment3 = mirrorsDate[0], mirrorsDate[1], mirrorsDate[2]
	m.Payment1Date, m.Payment2Date, m.Payment3Date = mirrorsDate[0], mirrorsDate[1], mirrorsDate[2]
	m.Payment1Amount, m.Payment2Amount, m.Payment3Amount = mirrorsAmount[0], mirrorsAmount[1], mirrorsAmount[2]
}

func findPlanEntry(entries []ledger.PlanEntry, index int) (ledger.PlanEntry, bool) {
	for _, e := range entries {
		if e.Index == index {
			return e, true
		}
	}
	return ledger.PlanEntry{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GenerateMembershipNumber returns the next free QBBC-<year>-<seq> number,
// scanning forward past collisions. Numbers stay unique across active and
// inactive members.
func GenerateMembershipNumber(members []model.Member) string {
	prefix := fmt.Sprintf("QBBC-%d-", time.Now().Year())
	next := 1
	existing := make(map[string]struct{}, len(members))
	for _, m := range members {
		existing[m.MembershipNumber] = struct{}{}
		if !strings.HasPrefix(m.MembershipNumber, prefix) {
			continue
		}
		seq, err := strconv.Atoi(m.MembershipNumber[strings.LastIndex(m.MembershipNumber, "-")+1:])
		if err != nil {
			continue
		}
		if seq+1 > next {
			next = seq + 1
		}
	}
	candidate := fmt.Sprintf("%s%03d", prefix, next)
	for {
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
		next++
		candidate = fmt.Sprintf("%s%03d", prefix, next)
	}
}
