package model

import (
	"strings"

	"github.com/qbbc/clubadmin/internal/ledger"
)

// Flag is a bool that also decodes the loose encodings found in legacy
// records and form submissions: "oui", "yes", "true", "1".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*f = Flag(ledger.BoolFromValue(s))
	return nil
}

// Count is an int that decodes from numeric JSON or a number-in-string,
// clamped to the valid installment range on use rather than on decode.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	*c = Count(ledger.NumberFromValue(s))
	return nil
}

// Member is the canonical record for one club participant. Field names
// mirror the persisted snapshot shape, including the legacy single-field
// payment mirrors kept in sync for compatibility with older exports.
type Member struct {
	ID               string `json:"id"`
	MembershipNumber string `json:"membershipNumber"`
	Status           string `json:"status"`
	LastName         string `json:"lastName"`
	FirstName        string `json:"firstName"`
	Birthdate        string `json:"birthdate"`
	Gender           string `json:"gender"`
	Phone            string `json:"phone"`
	Category         string `json:"category"`
	Address          string `json:"address"`
	Email            string `json:"email"`

	PassSport       Flag   `json:"passSport"`
	TicketLoisirCaf Flag   `json:"ticketLoisirCaf"`
	ParentLastName  string `json:"parentLastName"`
	ParentFirstName string `json:"parentFirstName"`
	ParentPhone     string `json:"parentPhone"`
	ImageRights     string `json:"imageRights"`
	Photo           string `json:"photo"`
	PhotoName       string `json:"photoName"`
	CNI             Flag   `json:"cni"`
	MedicalCert     Flag   `json:"medicalCertificate"`
	Insurance       Flag   `json:"insurance"`
	Injury          string `json:"injury"`

	PassSportAmount ledger.Amount      `json:"passSportAmount"`
	Payments        []ledger.Payment   `json:"payments"`
	PaymentCount    Count              `json:"paymentCount"`
	PaymentPlan     []ledger.PlanEntry `json:"paymentPlan"`

	// Legacy installment mirrors: paymentN holds the due date (historic
	// misuse), paymentNAmount/paymentNDate the structured values.
	Payment1       string        `json:"payment1"`
	Payment2       string        `json:"payment2"`
	Payment3       string        `json:"payment3"`
	Payment1Amount ledger.Amount `json:"payment1Amount"`
	Payment2Amount ledger.Amount `json:"payment2Amount"`
	Payment3Amount ledger.Amount `json:"payment3Amount"`
	Payment1Date   string        `json:"payment1Date"`
	Payment2Date   string        `json:"payment2Date"`
	Payment3Date   string        `json:"payment3Date"`
	PaymentMethod  string        `json:"paymentMethod"`

	TotalDue float64 `json:"totalDue"`
	// TotalPaid and Remaining are pointers so the normalizer can tell an
	// explicit legacy value from an absent one.
	TotalPaid        *float64 `json:"totalPaid"`
	Remaining        *float64 `json:"remaining"`
	RemainingBalance *float64 `json:"remainingBalance"`

	PassSportReference string `json:"passSportReference"`
	AssuranceReference string `json:"assuranceReference"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// DisplayName returns the human label used in admin candidate lists.
func (m *Member) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(m.FirstName) + " " + strings.TrimSpace(m.LastName))
	if name != "" {
		return name
	}
	if m.Username != "" {
		return m.Username
	}
	if m.Email != "" {
		return m.Email
	}
	return "Profil membre"
}

// MemberStats is the dashboard summary over the member collection.
type MemberStats struct {
	Total          int     `json:"total"`
	Active         int     `json:"active"`
	Inactive       int     `json:"inactive"`
	Paid           int     `json:"paid"`
	Partial        int     `json:"partial"`
	UnpaidAmount   float64 `json:"unpaidAmount"`
	ReceivedAmount float64 `json:"receivedAmount"`
}
