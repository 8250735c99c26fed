package ledger

import (
	"math"
	"testing"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"float", 12.345, 12.35},
		{"int", 40, 40},
		{"string point", "12.5", 12.5},
		{"string comma", "12,50", 12.5},
		{"string spaces", "  7,25 ", 7.25},
		{"empty string", "", 0},
		{"garbage", "abc", 0},
		{"nil", nil, 0},
		{"negative", "-3,335", -3.34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeAmount(tt.input); got != tt.want {
				t.Errorf("NormalizeAmount(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeAmountIdempotent(t *testing.T) {
	for _, v := range []any{"19,995", 100.004999, "0.015", -42.125} {
		once := NormalizeAmount(v)
		twice := NormalizeAmount(once)
		if once != twice {
			t.Errorf("NormalizeAmount not idempotent for %v: %v then %v", v, once, twice)
		}
	}
}

func TestBoolFromValue(t *testing.T) {
	truthy := []any{true, "oui", "OUI", "yes", "true", "1", " Oui "}
	for _, v := range truthy {
		if !BoolFromValue(v) {
			t.Errorf("BoolFromValue(%v) = false, want true", v)
		}
	}
	falsy := []any{false, nil, "", "non", "no", "0", "2", 3.5}
	for _, v := range falsy {
		if BoolFromValue(v) {
			t.Errorf("BoolFromValue(%v) = true, want false", v)
		}
	}
}

func TestFormatPaymentDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"15/09/2025", "15/09/2025"},
		{"2025-09-15", "15/09/2025"},
		{"2025-09", "2025-09"},
		{"whenever", "whenever"},
	}
	for _, tt := range tests {
		if got := FormatPaymentDate(tt.input); got != tt.want {
			t.Errorf("FormatPaymentDate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	payments := []Payment{
		{Date: "2025-01-10", Amount: 30, Method: "Cash"},
		{Date: "2025-02-10", Amount: 20, Method: "Check"},
	}
	totals := ComputeTotals(100, payments)
	if totals.TotalDue != 100 {
		t.Errorf("totalDue = %v, want 100", totals.TotalDue)
	}
	if totals.TotalPaid != 50 {
		t.Errorf("totalPaid = %v, want 50", totals.TotalPaid)
	}
	if totals.Remaining != 50 {
		t.Errorf("remaining = %v, want 50", totals.Remaining)
	}
}

func TestComputeTotalsOverpaidNotClamped(t *testing.T) {
	totals := ComputeTotals(40, []Payment{{Amount: 60}})
	if totals.Remaining != -20 {
		t.Errorf("remaining = %v, want -20", totals.Remaining)
	}
}

func TestComputeTotalsInvariant(t *testing.T) {
	cases := []struct {
		due      float64
		payments []Payment
	}{
		{0, nil},
		{100, []Payment{{Amount: 33.33}, {Amount: 33.33}, {Amount: 33.33}}},
		{149.99, []Payment{{Amount: Amount(50.005)}, {Amount: 99.99}}},
		{10, []Payment{{Amount: 25}}},
	}
	for _, c := range cases {
		totals := ComputeTotals(c.due, c.payments)
		if diff := math.Abs(totals.TotalDue - totals.TotalPaid - totals.Remaining); diff > 0.01 {
			t.Errorf("invariant broken for due=%v: due=%v paid=%v remaining=%v",
				c.due, totals.TotalDue, totals.TotalPaid, totals.Remaining)
		}
	}
}

func TestClonePayments(t *testing.T) {
	src := []Payment{{Date: "2025-03-01", Amount: Amount(19.999), Method: "Card"}}
	got := ClonePayments(src)
	if len(got) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(got))
	}
	if got[0].Date != "01/03/2025" {
		t.Errorf("date = %q, want 01/03/2025", got[0].Date)
	}
	if got[0].Amount != 20 {
		t.Errorf("amount = %v, want 20", got[0].Amount)
	}
	if got[0].Method != "Card" {
		t.Errorf("method = %q, want Card", got[0].Method)
	}
	// Source untouched.
	if src[0].Date != "2025-03-01" {
		t.Error("clone mutated the source list")
	}
}

func TestLegacyPaid(t *testing.T) {
	paid, ok := LegacyPaid(100, 20)
	if !ok || paid != 80 {
		t.Errorf("LegacyPaid(100, 20) = %v, %v; want 80, true", paid, ok)
	}
	if _, ok := LegacyPaid(0, 0); ok {
		t.Error("LegacyPaid(0, 0) should not derive a figure")
	}
	if _, ok := LegacyPaid(50, 80); ok {
		t.Error("negative derivation should be rejected")
	}
}

func TestClampPlanCount(t *testing.T) {
	tests := []struct {
		input any
		want  int
	}{
		{1, 1}, {2, 2}, {3, 3},
		{0, 1}, {-5, 1}, {4, 3}, {99, 3},
		{"2", 2}, {"0", 1}, {"7", 3},
		{"", 1}, {"abc", 1}, {nil, 1},
	}
	for _, tt := range tests {
		if got := ClampPlanCount(tt.input); got != tt.want {
			t.Errorf("ClampPlanCount(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestBuildPlan(t *testing.T) {
	raw := []PlanEntry{
		{Index: 1, Amount: Amount(50.004), DueDate: "2025-09-01"},
		{Index: 3, Amount: 25, DueDate: "2025-11-01"},
	}
	plan := BuildPlan(2, raw)
	if len(plan) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(plan))
	}
	if plan[0].Amount != 50 || plan[0].DueDate != "2025-09-01" {
		t.Errorf("entry 1 = %+v", plan[0])
	}
	if plan[1].Index != 2 || plan[1].Amount != 0 || plan[1].DueDate != "" {
		t.Errorf("entry 2 should be empty placeholder, got %+v", plan[1])
	}
	for _, e := range plan {
		if e.Index > 2 {
			t.Errorf("entry beyond count survived: %+v", e)
		}
	}
}

func TestBuildPlanLegacyDateAlias(t *testing.T) {
	plan := BuildPlan(1, []PlanEntry{{Index: 1, Amount: 10, Date: "2025-10-01"}})
	if plan[0].DueDate != "2025-10-01" {
		t.Errorf("dueDate = %q, want legacy date carried over", plan[0].DueDate)
	}
}
