package codec

import (
	"strings"
	"testing"

	"github.com/qbbc/clubadmin/internal/ledger"
	"github.com/qbbc/clubadmin/internal/model"
	"github.com/qbbc/clubadmin/internal/reconcile"
)

func sampleMember(id, number string) model.Member {
	m := model.Member{
		ID:               id,
		MembershipNumber: number,
		Status:           "active",
		LastName:         `Durand "Le Grand"`,
		FirstName:        "Paul",
		Category:         "U13",
		Address:          "12 rue des Lilas; Bat A",
		PassSportAmount:  100,
		Payments: []ledger.Payment{
			{Date: "2025-01-10", Amount: 30, Method: "Cash"},
			{Date: "2025-02-10", Amount: 20, Method: "Check"},
		},
		PaymentCount: 2,
		PaymentPlan: []ledger.PlanEntry{
			{Index: 1, Amount: 50, DueDate: "2025-09-01"},
			{Index: 2, Amount: 50, DueDate: "2025-10-01"},
		},
	}
	reconcile.NormalizeMember(&m)
	return m
}

func TestExportHeaderAndShape(t *testing.T) {
	data := Export([]model.Member{sampleMember("e1", "QBBC-2025-001")})
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(Columns, ";") {
		t.Errorf("header mismatch:\n%s", lines[0])
	}
	tokens := splitLine(lines[1], ';')
	if len(tokens) != len(Columns) {
		t.Fatalf("row has %d cells, want %d", len(tokens), len(Columns))
	}
}

func TestExportEscapesQuotesAndDelimiters(t *testing.T) {
	data := string(Export([]model.Member{sampleMember("e2", "QBBC-2025-002")}))
	if !strings.Contains(data, `"Durand ""Le Grand"""`) {
		t.Error("embedded quotes must be doubled inside a quoted cell")
	}
	if !strings.Contains(data, `"12 rue des Lilas; Bat A"`) {
		t.Error("cells containing the delimiter must stay quoted")
	}
}

func TestImportRoundTrip(t *testing.T) {
	original := []model.Member{
		sampleMember("r1", "QBBC-2025-010"),
		sampleMember("r2", "QBBC-2025-011"),
	}
	imported, err := Import(Export(original))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported) != len(original) {
		t.Fatalf("expected %d rows, got %d", len(original), len(imported))
	}
	for i := range original {
		want, got := original[i], imported[i]
		if got.ID != want.ID || got.MembershipNumber != want.MembershipNumber {
			t.Errorf("row %d identity mismatch: %s/%s", i, got.ID, got.MembershipNumber)
		}
		if got.TotalDue != want.TotalDue {
			t.Errorf("row %d totalDue = %v, want %v", i, got.TotalDue, want.TotalDue)
		}
		if *got.TotalPaid != *want.TotalPaid {
			t.Errorf("row %d totalPaid = %v, want %v", i, *got.TotalPaid, *want.TotalPaid)
		}
		if *got.Remaining != *want.Remaining {
			t.Errorf("row %d remaining = %v, want %v", i, *got.Remaining, *want.Remaining)
		}
		if len(got.Payments) != len(want.Payments) {
			t.Fatalf("row %d payments length = %d, want %d", i, len(got.Payments), len(want.Payments))
		}
		for j := range want.Payments {
			if got.Payments[j] != want.Payments[j] {
				t.Errorf("row %d payment %d = %+v, want %+v", i, j, got.Payments[j], want.Payments[j])
			}
		}
		if len(got.PaymentPlan) != len(want.PaymentPlan) {
			t.Errorf("row %d plan length = %d, want %d", i, len(got.PaymentPlan), len(want.PaymentPlan))
		}
	}
}

func TestImportCommaDelimiter(t *testing.T) {
	doc := "id,membershipNumber,lastName\n\"c1\",\"QBBC-2025-020\",\"Morel\"\n"
	// Header shorter than the canonical set: canonical order applies, so the
	// three cells land on id, membershipNumber and status.
	members, err := Import([]byte(doc))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 row, got %d", len(members))
	}
	if members[0].ID != "c1" || members[0].MembershipNumber != "QBBC-2025-020" {
		t.Errorf("canonical mapping wrong: %+v", members[0])
	}
	if members[0].Status != "Morel" {
		t.Errorf("third cell must map to status under canonical order, got %q", members[0].Status)
	}
}

func TestImportExplicitTotalPaidOverride(t *testing.T) {
	row := buildRecord(map[string]string{
		"id": "o1", "passSportAmount": "100", "totalPaid": "70",
	})
	if *row.TotalPaid != 70 {
		t.Errorf("totalPaid = %v, want explicit 70", *row.TotalPaid)
	}
	if *row.Remaining != 30 {
		t.Errorf("remaining = %v, want recomputed 30", *row.Remaining)
	}
}

func TestImportExplicitRemainingWins(t *testing.T) {
	row := buildRecord(map[string]string{
		"id": "o2", "passSportAmount": "100", "totalPaid": "70", "remaining": "20",
	})
	if *row.Remaining != 20 {
		t.Errorf("remaining = %v, want explicit 20", *row.Remaining)
	}
	if *row.TotalPaid != 80 {
		t.Errorf("totalPaid = %v, want recomputed 80 (remaining wins)", *row.TotalPaid)
	}
}

func TestImportDerivesTotalPaidFromRemaining(t *testing.T) {
	row := buildRecord(map[string]string{
		"id": "o3", "passSportAmount": "100", "remaining": "20",
	})
	if *row.TotalPaid != 80 {
		t.Errorf("totalPaid = %v, want derived 80", *row.TotalPaid)
	}
}

func TestImportMalformedListCellDegrades(t *testing.T) {
	row := buildRecord(map[string]string{
		"id": "o4", "payments": "{not json", "paymentPlan": "also not json",
	})
	if len(row.Payments) != 0 {
		t.Errorf("malformed payments blob must degrade to empty list, got %v", row.Payments)
	}
	if len(row.PaymentPlan) != 0 {
		t.Errorf("malformed plan blob must degrade to empty list, got %v", row.PaymentPlan)
	}
}

func TestImportAssignsSyntheticID(t *testing.T) {
	row := buildRecord(map[string]string{"lastName": "Sans-ID"})
	if row.ID == "" || !strings.HasPrefix(row.ID, "import-") {
		t.Errorf("expected synthetic id, got %q", row.ID)
	}
}

func TestImportEmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "\n\n", "   \n"} {
		if _, err := Import([]byte(doc)); err == nil {
			t.Errorf("expected error for empty document %q", doc)
		}
	}
	// Header only, no rows.
	if _, err := Import([]byte(strings.Join(Columns, ";") + "\n")); err == nil {
		t.Error("expected error for header-only document")
	}
}

func TestSplitLineQuotedSpans(t *testing.T) {
	tokens := splitLine(`"a;b";"say ""hi""";plain`, ';')
	want := []string{"a;b", `say "hi"`, "plain"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, tokens[i], want[i])
		}
	}
}
