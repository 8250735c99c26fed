package overlay

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/qbbc/clubadmin/internal/database"
	"github.com/qbbc/clubadmin/internal/model"
	"github.com/qbbc/clubadmin/internal/store"
)

func setupService(t *testing.T) (*Service, *store.MemberStore, *store.AdminAccountStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	members := store.NewMemberStore(db, logger)
	accounts := store.NewAdminAccountStore(db, logger)
	return NewService(members, accounts, nil, logger), members, accounts
}

func seedMembers(t *testing.T, ms *store.MemberStore, members ...model.Member) {
	t.Helper()
	if err := ms.Save(members); err != nil {
		t.Fatalf("seed members: %v", err)
	}
}

func TestAssignValidation(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", FirstName: "Paul", LastName: "Durand"})

	tests := []struct {
		name     string
		memberID string
		username string
		password string
		wantErr  error
	}{
		{"missing member", "", "coach1", "secret", ErrMemberRequired},
		{"missing username", "m1", "", "secret", ErrUsernameRequired},
		{"missing password", "m1", "coach1", "", ErrPasswordRequired},
		{"unknown member", "ghost", "coach1", "secret", ErrMemberNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Assign(tt.memberID, tt.username, tt.password, "admin")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Assign error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssignCreatesLinkedAccountAndPromotes(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", FirstName: "Paul", LastName: "Durand", Role: "entraineur"})

	account, err := svc.Assign("m1", "coach1", "secret", "Admin")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if account.LinkedMemberID != "m1" {
		t.Errorf("linkedMemberId = %q, want m1", account.LinkedMemberID)
	}
	if account.Role != "admin" {
		t.Errorf("role = %q, want lowercased admin", account.Role)
	}
	if account.DisplayName != "Paul Durand" || account.LinkedMemberName != "Paul Durand" {
		t.Errorf("display names = %q/%q, want member name", account.DisplayName, account.LinkedMemberName)
	}
	if account.PasswordHash == "secret" {
		t.Error("password must be stored hashed")
	}
	if !CheckPassword(account.PasswordHash, "secret") {
		t.Error("stored hash must verify the original password")
	}

	members := ms.Load()
	if members[0].Role != "admin" {
		t.Errorf("member role = %q, want admin after promotion", members[0].Role)
	}
}

func TestAssignUsernameCollisionIsCaseInsensitive(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms,
		model.Member{ID: "m1", FirstName: "Paul"},
		model.Member{ID: "m2", FirstName: "Anne"},
	)

	if _, err := svc.Assign("m1", "Coach1", "secret", "admin"); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := svc.Assign("m2", "coach1", "secret", "admin"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAssignRejectsAlreadyLinkedMember(t *testing.T) {
	svc, ms, as := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", FirstName: "Paul", LastName: "Durand"})

	if _, err := svc.Assign("m1", "coach1", "secret", "admin"); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if _, err := svc.Assign("m1", "coach2", "secret", "admin"); !errors.Is(err, ErrMemberAlreadyLinked) {
		t.Errorf("expected ErrMemberAlreadyLinked, got %v", err)
	}

	linked := 0
	for _, a := range as.Load() {
		if a.LinkedMemberID == "m1" {
			linked++
		}
	}
	if linked != 1 {
		t.Errorf("accounts linked to m1 = %d, want 1", linked)
	}
}

func TestRevokeDemotesLinkedMember(t *testing.T) {
	svc, ms, as := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", FirstName: "Paul", Role: "entraineur"})

	account, err := svc.Assign("m1", "coach1", "secret", "admin")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	removed, err := svc.Revoke(account.ID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if removed.ID != account.ID {
		t.Errorf("removed id = %q, want %q", removed.ID, account.ID)
	}
	if got := len(as.Load()); got != 0 {
		t.Errorf("accounts remaining = %d, want 0", got)
	}
	// Promoted to admin, so revocation lands on the fallback label, not the
	// pre-promotion role.
	if role := ms.Load()[0].Role; role != FallbackRole {
		t.Errorf("member role = %q, want %q", role, FallbackRole)
	}
}

func TestRevokeUnknownAccount(t *testing.T) {
	svc, _, _ := setupService(t)
	if _, err := svc.Revoke("ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestDemoteLeavesNonElevatedRoleUntouched(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", Role: "entraineur"})

	if err := svc.Demote("m1"); err != nil {
		t.Fatalf("demote: %v", err)
	}
	if role := ms.Load()[0].Role; role != "entraineur" {
		t.Errorf("role = %q, want untouched entraineur", role)
	}
}

func TestDemoteElevatedRoles(t *testing.T) {
	svc, ms, _ := setupService(t)
	for _, role := range []string{"admin", "manager", "support", ""} {
		seedMembers(t, ms, model.Member{ID: "m1", Role: role})
		if err := svc.Demote("m1"); err != nil {
			t.Fatalf("demote %q: %v", role, err)
		}
		if got := ms.Load()[0].Role; got != FallbackRole {
			t.Errorf("role %q demoted to %q, want %q", role, got, FallbackRole)
		}
	}
}

func TestEditKeepsStoredHashWhenPasswordEmpty(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", FirstName: "Paul"})

	account, err := svc.Assign("m1", "coach1", "secret", "admin")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	updated, err := svc.Edit(account.ID, EditRequest{Username: "coach1", DisplayName: "Chef", Role: "manager"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.PasswordHash != account.PasswordHash {
		t.Error("empty password must keep the stored hash")
	}
	if updated.DisplayName != "Chef" || updated.Role != "manager" {
		t.Errorf("edit not applied: %+v", updated)
	}
	// Linked member follows the new role.
	if role := ms.Load()[0].Role; role != "manager" {
		t.Errorf("member role = %q, want manager", role)
	}
}

func TestEditRejectsCollisionWithOtherAccountOnly(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms,
		model.Member{ID: "m1", FirstName: "Paul"},
		model.Member{ID: "m2", FirstName: "Anne"},
	)

	first, _ := svc.Assign("m1", "coach1", "secret", "admin")
	second, _ := svc.Assign("m2", "coach2", "secret", "admin")

	// Keeping your own username is not a collision.
	if _, err := svc.Edit(first.ID, EditRequest{Username: "Coach1"}); err != nil {
		t.Errorf("same-account username edit must pass, got %v", err)
	}
	// Taking another account's username is.
	if _, err := svc.Edit(second.ID, EditRequest{Username: "COACH1"}); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
	// Username stays required.
	if _, err := svc.Edit(first.ID, EditRequest{Username: "  "}); !errors.Is(err, ErrUsernameRequired) {
		t.Errorf("expected ErrUsernameRequired, got %v", err)
	}
}

func TestCandidatesExcludeLinkedMembers(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms,
		model.Member{ID: "m1", FirstName: "Zoe", LastName: "Arnaud"},
		model.Member{ID: "m2", FirstName: "Paul", LastName: "Durand"},
		model.Member{ID: "m3", FirstName: "Anne", LastName: "Morel"},
	)

	if _, err := svc.Assign("m2", "coach1", "secret", "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	candidates := svc.Candidates()
	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}
	for _, c := range candidates {
		if c.ID == "m2" {
			t.Error("linked member must not appear among candidates")
		}
	}
	if candidates[0].DisplayName() > candidates[1].DisplayName() {
		t.Error("candidates must be sorted by display name")
	}
}

func TestAuthenticateAdminAccountFirst(t *testing.T) {
	svc, ms, _ := setupService(t)
	seedMembers(t, ms, model.Member{ID: "m1", FirstName: "Paul", LastName: "Durand"})

	if _, err := svc.Assign("m1", "coach1", "secret", "manager"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	id, err := svc.Authenticate("COACH1", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Role != "manager" || id.MemberID != "m1" {
		t.Errorf("identity = %+v", id)
	}

	if _, err := svc.Authenticate("coach1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate("", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for empty login, got %v", err)
	}
}

func TestAuthenticateFallsBackToMemberCredentials(t *testing.T) {
	svc, ms, _ := setupService(t)

	hash, err := HashPassword("monmotdepasse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	seedMembers(t, ms, model.Member{
		ID: "m1", FirstName: "Paul", LastName: "Durand",
		Username: "paul.d", Password: hash,
	})

	id, err := svc.Authenticate("Paul.D", "monmotdepasse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Role != FallbackRole {
		t.Errorf("role = %q, want %q for plain member", id.Role, FallbackRole)
	}
	if id.DisplayName != "Paul Durand" {
		t.Errorf("displayName = %q", id.DisplayName)
	}
}

func TestNormalizeAccountDefaultsAndHashing(t *testing.T) {
	a := model.AdminAccount{Username: "  coach1  ", PasswordHash: "plaintext"}
	if err := NormalizeAccount(&a); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated id")
	}
	if a.Username != "coach1" {
		t.Errorf("username = %q, want trimmed", a.Username)
	}
	if a.DisplayName != "coach1" {
		t.Errorf("displayName = %q, want username fallback", a.DisplayName)
	}
	if a.Role != "admin" || a.Status != "active" {
		t.Errorf("defaults = %q/%q, want admin/active", a.Role, a.Status)
	}
	if a.CreatedAt == "" || a.UpdatedAt != a.CreatedAt {
		t.Errorf("timestamps = %q/%q", a.CreatedAt, a.UpdatedAt)
	}
	if !isBcryptHash(a.PasswordHash) {
		t.Error("plain seed password must be hashed")
	}
	if !CheckPassword(a.PasswordHash, "plaintext") {
		t.Error("hash must verify the seed password")
	}

	// Already hashed passwords stay as they are.
	before := a.PasswordHash
	if err := NormalizeAccount(&a); err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	if a.PasswordHash != before {
		t.Error("hashed password must not be re-hashed")
	}
}

func TestNormalizeAccountEmptyDisplayNameFallback(t *testing.T) {
	a := model.AdminAccount{}
	if err := NormalizeAccount(&a); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if a.DisplayName != "Compte administrateur" {
		t.Errorf("displayName = %q", a.DisplayName)
	}
}
