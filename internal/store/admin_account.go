package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/qbbc/clubadmin/internal/model"
)

// AdminAccountStore persists the admin account overlay as one JSON snapshot,
// with the same degrade-to-last-good recovery as the member store.
type AdminAccountStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex
	lastGood []model.AdminAccount
}

func NewAdminAccountStore(db *sql.DB, logger *slog.Logger) *AdminAccountStore {
	return &AdminAccountStore{db: db, logger: logger}
}

func (s *AdminAccountStore) Load() []model.AdminAccount {
	data, ok, err := readSnapshot(s.db, adminSnapshotKey)
	if err != nil {
		s.logger.Error("read admin snapshot", "error", err)
		return s.fallback()
	}
	if !ok {
		return []model.AdminAccount{}
	}

	var accounts []model.AdminAccount
	if err := json.Unmarshal([]byte(data), &accounts); err != nil {
		s.logger.Error("decode admin snapshot", "error", err)
		return s.fallback()
	}
	if accounts == nil {
		accounts = []model.AdminAccount{}
	}

	s.mu.Lock()
	s.lastGood = accounts
	s.mu.Unlock()
	return append([]model.AdminAccount(nil), accounts...)
}

func (s *AdminAccountStore) Save(accounts []model.AdminAccount) error {
	if accounts == nil {
		accounts = []model.AdminAccount{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return err
	}
	if err := writeSnapshot(s.db, adminSnapshotKey, string(data)); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastGood = append([]model.AdminAccount(nil), accounts...)
	s.mu.Unlock()
	return nil
}

func (s *AdminAccountStore) Exists() bool {
	ok, err := snapshotExists(s.db, adminSnapshotKey)
	if err != nil {
		s.logger.Error("check admin snapshot", "error", err)
		return false
	}
	return ok
}

func (s *AdminAccountStore) fallback() []model.AdminAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastGood == nil {
		return []model.AdminAccount{}
	}
	return append([]model.AdminAccount(nil), s.lastGood...)
}
