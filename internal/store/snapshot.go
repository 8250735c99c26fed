// Package store persists the member and admin-account collections as
// complete snapshots under named keys, plus the login session table. There
// are no partial writes: every save replaces the whole collection, and every
// reader re-reads the full snapshot. Concurrent writers are last-writer-wins
// by design; this is a single-operator admin tool.
package store

import (
	"database/sql"
	"fmt"
)

// Snapshot keys. These mirror the storage keys of the legacy system so old
// exports remain recognizable.
const (
	memberSnapshotKey = "qbbcMembers"
	adminSnapshotKey  = "qbbcAdminUsers"
)

func readSnapshot(db *sql.DB, name string) (string, bool, error) {
	var data string
	err := db.QueryRow(`SELECT data FROM snapshots WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read snapshot %q: %w", name, err)
	}
	return data, true, nil
}

func writeSnapshot(db *sql.DB, name, data string) error {
	_, err := db.Exec(
		`INSERT INTO snapshots (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		name, data,
	)
	if err != nil {
		return fmt.Errorf("write snapshot %q: %w", name, err)
	}
	return nil
}

func snapshotExists(db *sql.DB, name string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(1) FROM snapshots WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check snapshot %q: %w", name, err)
	}
	return n > 0, nil
}
