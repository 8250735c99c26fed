// Package overlay manages the admin account collection layered over the
// member roster: account assignment and revocation, role promotion on the
// linked member record, and credential checks at login.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/qbbc/clubadmin/internal/model"
	"github.com/qbbc/clubadmin/internal/reconcile"
	"github.com/qbbc/clubadmin/internal/store"
	"github.com/qbbc/clubadmin/internal/websocket"
)

var (
	ErrMemberRequired      = errors.New("member required")
	ErrUsernameRequired    = errors.New("username required")
	ErrPasswordRequired    = errors.New("password required")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrMemberAlreadyLinked = errors.New("member already linked to an account")
	ErrMemberNotFound      = errors.New("member not found")
	ErrAccountNotFound     = errors.New("admin account not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// FallbackRole is the label a member falls back to when its elevated access
// is revoked.
const FallbackRole = "utilisateur"

// IsElevated reports whether a role grants admin panel access.
func IsElevated(role string) bool {
	switch strings.ToLower(role) {
	case "admin", "manager", "support":
		return true
	}
	return false
}

// Identity is the resolved login identity, from either an admin account or a
// member with credentials.
type Identity struct {
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	MemberID    string `json:"memberId,omitempty"`
}

// Service applies admin account operations over both snapshot stores and
// raises a change signal after every mutation.
type Service struct {
	members  *store.MemberStore
	accounts *store.AdminAccountStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewService(members *store.MemberStore, accounts *store.AdminAccountStore, hub *websocket.Hub, logger *slog.Logger) *Service {
	return &Service{members: members, accounts: accounts, hub: hub, logger: logger}
}

func (s *Service) notify(entity string) {
	if s.hub != nil {
		s.hub.Notify(entity)
	}
}

// Accounts returns the current admin account collection.
func (s *Service) Accounts() []model.AdminAccount {
	return s.accounts.Load()
}

// Candidates returns the members not yet linked to an admin account, sorted
// by display name. Computed fresh on every call.
func (s *Service) Candidates() []model.Member {
	linked := make(map[string]struct{})
	for _, a := range s.accounts.Load() {
		if a.LinkedMemberID != "" {
			linked[a.LinkedMemberID] = struct{}{}
		}
	}

	var candidates []model.Member
	for _, m := range s.members.Load() {
		if m.ID == "" {
			continue
		}
		if _, ok := linked[m.ID]; ok {
			continue
		}
		candidates = append(candidates, m)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DisplayName() < candidates[j].DisplayName()
	})
	return candidates
}

// Assign creates an admin account linked to a member and promotes the member
// to the given role. A member carries at most one account.
func (s *Service) Assign(memberID, username, password, role string) (*model.AdminAccount, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	role = normalizeRole(role)

	if memberID == "" {
		return nil, ErrMemberRequired
	}
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	accounts := s.accounts.Load()
	if usernameTaken(accounts, username, "") {
		return nil, ErrUsernameTaken
	}
	for _, a := range accounts {
		if a.LinkedMemberID == memberID {
			return nil, ErrMemberAlreadyLinked
		}
	}

	members := s.members.Load()
	idx := findMember(members, memberID)
	if idx < 0 {
		return nil, ErrMemberNotFound
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	member := &members[idx]
	now := reconcile.NowISO()
	account := model.AdminAccount{
		ID:               uuid.NewString(),
		Username:         username,
		PasswordHash:     hash,
		DisplayName:      member.DisplayName(),
		Role:             role,
		Status:           "active",
		LinkedMemberID:   member.ID,
		LinkedMemberName: member.DisplayName(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	accounts = append(accounts, account)
	if err := s.accounts.Save(accounts); err != nil {
		return nil, fmt.Errorf("save admin accounts: %w", err)
	}

	member.Role = role
	member.UpdatedAt = now
	if err := s.members.Save(members); err != nil {
		return nil, fmt.Errorf("save members: %w", err)
	}

	s.notify(websocket.EntityAdminAccounts)
	s.notify(websocket.EntityMembers)
	return &account, nil
}

// Revoke removes an admin account and demotes the linked member.
func (s *Service) Revoke(accountID string) (*model.AdminAccount, error) {
	accounts := s.accounts.Load()
	idx := findAccount(accounts, accountID)
	if idx < 0 {
		return nil, ErrAccountNotFound
	}

	removed := accounts[idx]
	accounts = append(accounts[:idx], accounts[idx+1:]...)
	if err := s.accounts.Save(accounts); err != nil {
		return nil, fmt.Errorf("save admin accounts: %w", err)
	}
	s.notify(websocket.EntityAdminAccounts)

	if removed.LinkedMemberID != "" {
		if err := s.demote(removed.LinkedMemberID); err != nil && !errors.Is(err, ErrMemberNotFound) {
			return nil, err
		}
	}
	return &removed, nil
}

// EditRequest carries the editable fields of an admin account. An empty
// password keeps the stored hash.
type EditRequest struct {
	DisplayName string `json:"displayName"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	Status      string `json:"status"`
}

// Edit updates an existing admin account and re-promotes the linked member
// when the role changes.
func (s *Service) Edit(accountID string, req EditRequest) (*model.AdminAccount, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	accounts := s.accounts.Load()
	idx := findAccount(accounts, accountID)
	if idx < 0 {
		return nil, ErrAccountNotFound
	}
	if usernameTaken(accounts, username, accountID) {
		return nil, ErrUsernameTaken
	}

	account := &accounts[idx]
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		account.DisplayName = name
	}
	account.Username = username
	if password := strings.TrimSpace(req.Password); password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		account.PasswordHash = hash
	}
	account.Role = normalizeRole(req.Role)
	account.Status = normalizeStatus(req.Status)
	account.UpdatedAt = reconcile.NowISO()

	if err := s.accounts.Save(accounts); err != nil {
		return nil, fmt.Errorf("save admin accounts: %w", err)
	}
	s.notify(websocket.EntityAdminAccounts)

	if account.LinkedMemberID != "" {
		if err := s.Promote(account.LinkedMemberID, account.Role); err != nil && !errors.Is(err, ErrMemberNotFound) {
			return nil, err
		}
	}
	return account, nil
}

// Promote sets the member's role and stamps updatedAt.
func (s *Service) Promote(memberID, role string) error {
	members := s.members.Load()
	idx := findMember(members, memberID)
	if idx < 0 {
		return ErrMemberNotFound
	}
	members[idx].Role = role
	members[idx].UpdatedAt = reconcile.NowISO()
	if err := s.members.Save(members); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	s.notify(websocket.EntityMembers)
	return nil
}

// Demote drops an elevated role back to the fallback label. Non-elevated
// roles are left untouched.
func (s *Service) Demote(memberID string) error {
	return s.demote(memberID)
}

func (s *Service) demote(memberID string) error {
	members := s.members.Load()
	idx := findMember(members, memberID)
	if idx < 0 {
		return ErrMemberNotFound
	}
	member := &members[idx]
	if IsElevated(member.Role) || member.Role == "" {
		member.Role = FallbackRole
	}
	member.UpdatedAt = reconcile.NowISO()
	if err := s.members.Save(members); err != nil {
		return fmt.Errorf("save members: %w", err)
	}
	s.notify(websocket.EntityMembers)
	return nil
}

// Authenticate resolves a login against admin accounts first, then members
// carrying credentials. Username comparison is case-insensitive.
func (s *Service) Authenticate(username, password string) (*Identity, error) {
	uname := strings.ToLower(strings.TrimSpace(username))
	if uname == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	for _, a := range s.accounts.Load() {
		if strings.ToLower(strings.TrimSpace(a.Username)) != uname || a.PasswordHash == "" {
			continue
		}
		if !CheckPassword(a.PasswordHash, password) {
			continue
		}
		role := a.Role
		if role == "" {
			role = "admin"
		}
		display := a.DisplayName
		if display == "" {
			display = firstNonEmpty(a.LinkedMemberName, a.Username)
		}
		return &Identity{Username: a.Username, Role: role, DisplayName: display, MemberID: a.LinkedMemberID}, nil
	}

	members := s.members.Load()
	for i := range members {
		m := &members[i]
		if m.Username == "" || strings.ToLower(strings.TrimSpace(m.Username)) != uname || m.Password == "" {
			continue
		}
		if !CheckPassword(m.Password, password) {
			continue
		}
		role := m.Role
		if role == "" {
			role = FallbackRole
		}
		return &Identity{Username: m.Username, Role: strings.ToLower(role), DisplayName: m.DisplayName(), MemberID: m.ID}, nil
	}

	return nil, ErrInvalidCredentials
}

// NormalizeAccount fills defaults on a decoded account and hashes any plain
// seed password in place.
func NormalizeAccount(a *model.AdminAccount) error {
	now := reconcile.NowISO()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Username = strings.TrimSpace(a.Username)
	if a.DisplayName == "" {
		a.DisplayName = firstNonEmpty(a.Username, "Compte administrateur")
	}
	a.Role = normalizeRole(a.Role)
	a.Status = normalizeStatus(a.Status)
	if a.CreatedAt == "" {
		a.CreatedAt = now
	}
	if a.UpdatedAt == "" {
		a.UpdatedAt = a.CreatedAt
	}
	if a.PasswordHash != "" && !isBcryptHash(a.PasswordHash) {
		hash, err := HashPassword(a.PasswordHash)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = hash
	}
	return nil
}

// HashPassword bcrypt-hashes a plain-text password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a stored bcrypt hash against a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// EnsurePasswordHash bcrypt-hashes a plain-text credential. Empty strings and
// values that already are bcrypt hashes pass through unchanged.
func EnsurePasswordHash(credential string) (string, error) {
	if credential == "" || isBcryptHash(credential) {
		return credential, nil
	}
	return HashPassword(credential)
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func normalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "admin"
	}
	return role
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return "active"
	}
	return status
}

func usernameTaken(accounts []model.AdminAccount, username, exceptID string) bool {
	for _, a := range accounts {
		if a.ID == exceptID {
			continue
		}
		if strings.EqualFold(a.Username, username) {
			return true
		}
	}
	return false
}

func findAccount(accounts []model.AdminAccount, id string) int {
	for i := range accounts {
		if accounts[i].ID == id {
			return i
		}
	}
	return -1
}

func findMember(members []model.Member, id string) int {
	for i := range members {
		if members[i].ID == id {
			return i
		}
	}
	return -1
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
