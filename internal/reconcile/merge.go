package reconcile

import (
	"github.com/qbbc/clubadmin/internal/model"
)

// Merge reconciles an imported batch against the existing collection using
// the membership number (preferred) or id as natural key. Matched records
// are overwritten field-by-field by the import and re-normalized; unmatched
// records are appended as new members. Newly appended members register in
// the lookup so duplicate keys inside one batch collapse onto a single
// record. Merging the same batch twice yields the same collection.
func Merge(existing []model.Member, batch []model.Member) []model.Member {
	lookup := make(map[string]int, len(existing)*2)
	for i, m := range existing {
		if m.MembershipNumber != "" {
			lookup[m.MembershipNumber] = i
		}
		if m.ID != "" {
			lookup[m.ID] = i
		}
	}

	for _, record := range batch {
		key := record.MembershipNumber
		if key == "" {
			key = record.ID
		}
		if idx, ok := lookup[key]; key != "" && ok {
			target := &existing[idx]
			overlayImported(target, record)
			target.UpdatedAt = NowISO()
			NormalizeMember(target)
			continue
		}

		now := NowISO()
		if record.CreatedAt == "" {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		NormalizeMember(&record)
		existing = append(existing, record)
		idx := len(existing) - 1
		if record.MembershipNumber != "" {
			lookup[record.MembershipNumber] = idx
		}
		if record.ID != "" {
			lookup[record.ID] = idx
		}
	}

	return existing
}

// overlayImported copies every field covered by the import document onto the
// existing record. Imported values always win, even empty ones; fields the
// document cannot carry (credentials, role, createdAt) are preserved.
func overlayImported(dst *model.Member, src model.Member) {
	username, password, role, createdAt := dst.Username, dst.Password, dst.Role, dst.CreatedAt
	updatedAt := dst.UpdatedAt
	*dst = src
	dst.Username = username
	dst.Password = password
	dst.Role = role
	dst.CreatedAt = createdAt
	if dst.UpdatedAt == "" {
		dst.UpdatedAt = updatedAt
	}
}
