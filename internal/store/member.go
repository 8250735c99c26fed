package store

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/qbbc/clubadmin/internal/model"
)

// MemberStore persists the member collection as one JSON snapshot. It keeps
// the last successfully decoded collection in memory so a corrupted snapshot
// degrades to the last good state instead of failing the caller.
type MemberStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu       sync.Mutex
	lastGood []model.Member
}

func NewMemberStore(db *sql.DB, logger *slog.Logger) *MemberStore {
	return &MemberStore{db: db, logger: logger}
}

// Load returns the full member collection. Decode and read failures are
// logged and recovered: the last good in-memory copy wins, then an empty
// collection.
func (s *MemberStore) Load() []model.Member {
	data, ok, err := readSnapshot(s.db, memberSnapshotKey)
	if err != nil {
		s.logger.Error("read member snapshot", "error", err)
		return s.fallback()
	}
	if !ok {
		return []model.Member{}
	}

	var members []model.Member
	if err := json.Unmarshal([]byte(data), &members); err != nil {
		s.logger.Error("decode member snapshot", "error", err)
		return s.fallback()
	}
	if members == nil {
		members = []model.Member{}
	}

	s.mu.Lock()
	s.lastGood = members
	s.mu.Unlock()
	return clone(members)
}

// Save replaces the persisted collection with the given one.
func (s *MemberStore) Save(members []model.Member) error {
	if members == nil {
		members = []model.Member{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return err
	}
	if err := writeSnapshot(s.db, memberSnapshotKey, string(data)); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastGood = clone(members)
	s.mu.Unlock()
	return nil
}

// Exists reports whether a member snapshot has ever been written; used to
// decide whether first-use seeding applies.
func (s *MemberStore) Exists() bool {
	ok, err := snapshotExists(s.db, memberSnapshotKey)
	if err != nil {
		s.logger.Error("check member snapshot", "error", err)
		return false
	}
	return ok
}

func (s *MemberStore) fallback() []model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastGood == nil {
		return []model.Member{}
	}
	return clone(s.lastGood)
}

func clone(members []model.Member) []model.Member {
	return append([]model.Member(nil), members...)
}
