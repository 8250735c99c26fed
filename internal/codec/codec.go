// Package codec maps the canonical member collection to and from the flat,
// quoted, delimiter-separated exchange format used for spreadsheet import
// and export. The column order is fixed and versioned; changing it breaks
// round-trips with previously exported documents.
package codec

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/qbbc/clubadmin/internal/ledger"
	"github.com/qbbc/clubadmin/internal/model"
)

// Columns is the canonical, versioned column order of the exchange format.
var Columns = []string{
	"id", "membershipNumber", "status", "lastName", "firstName", "birthdate",
	"gender", "phone", "category", "address", "email", "passSport",
	"ticketLoisirCaf", "parentLastName", "parentFirstName", "parentPhone",
	"imageRights", "photo", "photoName", "cni", "medicalCertificate",
	"insurance", "injury", "passSportAmount", "paymentCount",
	"payment1", "payment1Amount", "payment1Date",
	"payment2", "payment2Amount", "payment2Date",
	"payment3", "payment3Amount", "payment3Date",
	"paymentMethod", "paymentPlan", "totalDue", "totalPaid", "remaining",
	"remainingBalance", "payments", "passSportReference", "assuranceReference",
}

// ErrEmptyDocument is returned when an import document decodes to zero
// usable rows. Import is all-or-nothing at the document level.
var ErrEmptyDocument = errors.New("import document contains no usable rows")

// Export serializes the full member collection using semicolons as field
// delimiter. String cells are quote-wrapped with doubled-quote escaping;
// list-valued cells embed a JSON blob inside one quoted cell.
func Export(members []model.Member) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(Columns, ";"))
	for _, m := range members {
		b.WriteByte('\n')
		for i, col := range Columns {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(cellValue(&m, col))
		}
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func quoteCell(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatNumber(*v)
}

func jsonCell(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return quoteCell("[]")
	}
	return quoteCell(string(data))
}

func cellValue(m *model.Member, col string) string {
	switch col {
	case "id":
		return quoteCell(m.ID)
	case "membershipNumber":
		return quoteCell(m.MembershipNumber)
	case "status":
		return quoteCell(m.Status)
	case "lastName":
		return quoteCell(m.LastName)
	case "firstName":
		return quoteCell(m.FirstName)
	case "birthdate":
		return quoteCell(m.Birthdate)
	case "gender":
		return quoteCell(m.Gender)
	case "phone":
		return quoteCell(m.Phone)
	case "category":
		return quoteCell(m.Category)
	case "address":
		return quoteCell(m.Address)
	case "email":
		return quoteCell(m.Email)
	case "passSport":
		return strconv.FormatBool(bool(m.PassSport))
	case "ticketLoisirCaf":
		return strconv.FormatBool(bool(m.TicketLoisirCaf))
	case "parentLastName":
		return quoteCell(m.ParentLastName)
	case "parentFirstName":
		return quoteCell(m.ParentFirstName)
	case "parentPhone":
		return quoteCell(m.ParentPhone)
	case "imageRights":
		return quoteCell(m.ImageRights)
	case "photo":
		return quoteCell(m.Photo)
	case "photoName":
		return quoteCell(m.PhotoName)
	case "cni":
		return strconv.FormatBool(bool(m.CNI))
	case "medicalCertificate":
		return strconv.FormatBool(bool(m.MedicalCert))
	case "insurance":
		return strconv.FormatBool(bool(m.Insurance))
	case "injury":
		return quoteCell(m.Injury)
	case "passSportAmount":
		return formatNumber(float64(m.PassSportAmount))
	case "paymentCount":
		return strconv.Itoa(int(m.PaymentCount))
	case "payment1":
		return quoteCell(m.Payment1)
	case "payment1Amount":
		return formatNumber(float64(m.Payment1Amount))
	case "payment1Date":
		return quoteCell(m.Payment1Date)
	case "payment2":
		return quoteCell(m.Payment2)
	case "payment2Amount":
		return formatNumber(float64(m.Payment2Amount))
	case "payment2Date":
		return quoteCell(m.Payment2Date)
	case "payment3":
		return quoteCell(m.Payment3)
	case "payment3Amount":
		return formatNumber(float64(m.Payment3Amount))
	case "payment3Date":
		return quoteCell(m.Payment3Date)
	case "paymentMethod":
		return quoteCell(m.PaymentMethod)
	case "paymentPlan":
		return jsonCell(m.PaymentPlan)
	case "totalDue":
		return formatNumber(m.TotalDue)
	case "totalPaid":
		return formatOptional(m.TotalPaid)
	case "remaining":
		return formatOptional(m.Remaining)
	case "remainingBalance":
		return formatOptional(m.RemainingBalance)
	case "payments":
		return jsonCell(m.Payments)
	case "passSportReference":
		return quoteCell(m.PassSportReference)
	case "assuranceReference":
		return quoteCell(m.AssuranceReference)
	default:
		return ""
	}
}

// Import decodes an exported document back into raw member records. The
// delimiter is sniffed from the header line (semicolon when present, comma
// otherwise). A header with fewer columns than the canonical set is replaced
// by the canonical order. Malformed list blobs inside a cell degrade to an
// empty list; an undecodable or empty document aborts the whole import.
func Import(data []byte) ([]model.Member, error) {
	lines := usableLines(string(data))
	if len(lines) == 0 {
		return nil, ErrEmptyDocument
	}

	delimiter := byte(',')
	if strings.Contains(lines[0], ";") {
		delimiter = ';'
	}

	headers := splitLine(lines[0], delimiter)
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.ReplaceAll(h, `"`, ""))
	}
	if len(headers) < len(Columns) {
		headers = Columns
	}

	rows := lines[1:]
	if len(rows) == 0 {
		return nil, ErrEmptyDocument
	}

	members := make([]model.Member, 0, len(rows))
	for _, line := range rows {
		tokens := splitLine(line, delimiter)
		record := make(map[string]string, len(headers))
		for i, key := range headers {
			if i < len(tokens) {
				record[key] = strings.TrimSpace(tokens[i])
			} else {
				record[key] = ""
			}
		}
		members = append(members, buildRecord(record))
	}
	return members, nil
}

// usableLines drops blank lines, including the trailing newline artifact.
func usableLines(content string) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// splitLine tokenizes one line respecting quoted spans. A quote character
// toggles the in-quotes state unless it is an escaped doubled quote.
func splitLine(line string, delimiter byte) []string {
	var tokens []string
	var buf strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				buf.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == delimiter && !inQuotes:
			tokens = append(tokens, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteByte(c)
		}
	}
	tokens = append(tokens, strings.TrimSpace(buf.String()))
	return tokens
}

func parseListCell[T any](raw string) []T {
	if raw == "" {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []T{}
	}
	return out
}

// buildRecord coerces one tokenized row into a raw member record and derives
// its totals. An explicit non-zero totalPaid overrides the derived figure
// and remaining is recomputed from it; an explicit non-zero remaining
// overrides in turn, recomputing totalPaid. Remaining wins when both are
// present.
func buildRecord(record map[string]string) model.Member {
	m := model.Member{
		ID:                 record["id"],
		MembershipNumber:   record["membershipNumber"],
		Status:             record["status"],
		LastName:           record["lastName"],
		FirstName:          record["firstName"],
		Birthdate:          record["birthdate"],
		Gender:             record["gender"],
		Phone:              record["phone"],
		Category:           record["category"],
		Address:            record["address"],
		Email:              record["email"],
		ParentLastName:     record["parentLastName"],
		ParentFirstName:    record["parentFirstName"],
		ParentPhone:        record["parentPhone"],
		ImageRights:        record["imageRights"],
		Photo:              record["photo"],
		PhotoName:          record["photoName"],
		Injury:             record["injury"],
		PaymentMethod:      record["paymentMethod"],
		PassSportReference: record["passSportReference"],
		AssuranceReference: record["assuranceReference"],
	}

	m.PassSport = model.Flag(ledger.BoolFromValue(record["passSport"]))
	m.TicketLoisirCaf = model.Flag(ledger.BoolFromValue(record["ticketLoisirCaf"]))
	m.CNI = model.Flag(ledger.BoolFromValue(record["cni"]))
	m.MedicalCert = model.Flag(ledger.BoolFromValue(record["medicalCertificate"]))
	m.Insurance = model.Flag(ledger.BoolFromValue(record["insurance"]))

	m.PassSportAmount = ledger.Amount(ledger.NumberFromValue(record["passSportAmount"]))
	m.PaymentCount = model.Count(ledger.ClampPlanCount(record["paymentCount"]))

	m.Payment1Amount = ledger.Amount(ledger.NumberFromValue(record["payment1Amount"]))
	m.Payment2Amount = ledger.Amount(ledger.NumberFromValue(record["payment2Amount"]))
	m.Payment3Amount = ledger.Amount(ledger.NumberFromValue(record["payment3Amount"]))
	m.Payment1, m.Payment2, m.Payment3 = record["payment1"], record["payment2"], record["payment3"]
	m.Payment1Date = firstNonEmpty(record["payment1Date"], record["payment1"])
	m.Payment2Date = firstNonEmpty(record["payment2Date"], record["payment2"])
	m.Payment3Date = firstNonEmpty(record["payment3Date"], record["payment3"])

	m.Payments = ledger.ClonePayments(parseListCell[ledger.Payment](record["payments"]))
	m.PaymentPlan = parseListCell[ledger.PlanEntry](record["paymentPlan"])

	explicitPaid := ledger.NumberFromValue(record["totalPaid"])
	explicitRemaining := ledger.NumberFromValue(record["remaining"])

	totals := ledger.ComputeTotals(float64(m.PassSportAmount), m.Payments)
	if explicitPaid != 0 {
		totals.TotalPaid = ledger.NormalizeAmount(explicitPaid)
		totals.Remaining = ledger.NormalizeAmount(totals.TotalDue - totals.TotalPaid)
	}
	if explicitRemaining != 0 {
		totals.Remaining = ledger.NormalizeAmount(explicitRemaining)
		totals.TotalPaid = ledger.NormalizeAmount(totals.TotalDue - totals.Remaining)
	}

	m.TotalDue = totals.TotalDue
	m.TotalPaid = &totals.TotalPaid
	m.Remaining = &totals.Remaining
	balance := totals.Remaining
	m.RemainingBalance = &balance

	if m.ID == "" {
		m.ID = "import-" + uuid.New().String()
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
