package reconcile

import (
	"strings"

	"github.com/qbbc/clubadmin/internal/ledger"
	"github.com/qbbc/clubadmin/internal/model"
)

// ComputeStats summarizes the member collection for the dashboard: status
// counts, how many members are fully or partially paid, and the total
// amounts received and still outstanding.
func ComputeStats(members []model.Member) model.MemberStats {
	stats := model.MemberStats{Total: len(members)}

	for _, m := range members {
		switch strings.ToLower(m.Status) {
		case "active":
			stats.Active++
		case "inactive":
			stats.Inactive++
		}

		due := ledger.NormalizeAmount(m.TotalDue)
		if due == 0 {
			due = ledger.NormalizeAmount(m.PassSportAmount)
		}
		var paid, remaining float64
		if m.TotalPaid != nil {
			paid = ledger.NormalizeAmount(*m.TotalPaid)
		}
		switch {
		case m.Remaining != nil:
			remaining = ledger.NormalizeAmount(*m.Remaining)
		case m.RemainingBalance != nil:
			remaining = ledger.NormalizeAmount(*m.RemainingBalance)
		}

		stats.ReceivedAmount += paid
		if remaining > 0 {
			stats.UnpaidAmount += remaining
		}

		if due > 0 {
			if remaining <= 0 {
				stats.Paid++
			} else if paid > 0 {
				stats.Partial++
			}
		}
	}

	stats.UnpaidAmount = ledger.NormalizeAmount(stats.UnpaidAmount)
	stats.ReceivedAmount = ledger.NormalizeAmount(stats.ReceivedAmount)
	return stats
}
