// Package seed loads the initial member and admin collections on first use,
// from either an HTTP base URL or a local directory. Seeding is best effort:
// a missing or undecodable seed file leaves the collection empty and logs,
// it never blocks startup.
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qbbc/clubadmin/internal/model"
	"github.com/qbbc/clubadmin/internal/overlay"
	"github.com/qbbc/clubadmin/internal/reconcile"
	"github.com/qbbc/clubadmin/internal/store"
)

// Seed file names, matching the legacy data directory layout.
const (
	membersFile = "users.json"
	adminsFile  = "adminUsers.json"
)

// Source retrieves seed documents from an HTTP base URL or a directory path.
type Source struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

func NewSource(base string, logger *slog.Logger) *Source {
	return &Source{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Apply seeds each store whose snapshot has never been written. Already
// initialized stores are left alone.
func Apply(src *Source, members *store.MemberStore, accounts *store.AdminAccountStore) error {
	if !members.Exists() {
		seeded := src.Members()
		if err := members.Save(seeded); err != nil {
			return fmt.Errorf("save seeded members: %w", err)
		}
		src.logger.Info("seeded members", "count", len(seeded))
	}
	if !accounts.Exists() {
		seeded := src.AdminAccounts()
		if err := accounts.Save(seeded); err != nil {
			return fmt.Errorf("save seeded admin accounts: %w", err)
		}
		src.logger.Info("seeded admin accounts", "count", len(seeded))
	}
	return nil
}

// Members returns the normalized seed roster, or an empty slice when the
// source is unset, unreachable or undecodable.
func (s *Source) Members() []model.Member {
	var members []model.Member
	if !s.load(membersFile, &members) {
		return []model.Member{}
	}
	for i := range members {
		hash, err := overlay.EnsurePasswordHash(members[i].Password)
		if err != nil {
			s.logger.Error("hash seed member password", "id", members[i].ID, "error", err)
			members[i].Password = ""
		} else {
			members[i].Password = hash
		}
		reconcile.NormalizeMember(&members[i])
	}
	return members
}

// AdminAccounts returns the normalized seed accounts, plain passwords
// bcrypt-hashed, or an empty slice on any failure.
func (s *Source) AdminAccounts() []model.AdminAccount {
	var accounts []model.AdminAccount
	if !s.load(adminsFile, &accounts) {
		return []model.AdminAccount{}
	}
	normalized := accounts[:0]
	for i := range accounts {
		if err := overlay.NormalizeAccount(&accounts[i]); err != nil {
			s.logger.Error("normalize seed admin account", "username", accounts[i].Username, "error", err)
			continue
		}
		normalized = append(normalized, accounts[i])
	}
	return normalized
}

func (s *Source) load(name string, out any) bool {
	if s.base == "" {
		return false
	}
	data, err := s.read(name)
	if err != nil {
		s.logger.Warn("seed fetch failed", "file", name, "error", err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("seed decode failed", "file", name, "error", err)
		return false
	}
	return true
}

func (s *Source) read(name string) ([]byte, error) {
	if strings.HasPrefix(s.base, "http://") || strings.HasPrefix(s.base, "https://") {
		resp, err := s.client.Get(s.base + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", name, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	data, err := os.ReadFile(filepath.Join(s.base, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
