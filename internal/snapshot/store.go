// Package snapshot is the optional last-known-member-list persistence
// spec §6's snapshot.enabled/snapshot.path config knobs name. It follows
// the teacher's internal/infra/sqlite DB-wrapper idiom: one *sql.DB, a
// migration slice applied at Open, and a single package-owned schema.
// Writes replace the whole table (delete, then insert) inside one
// transaction.
package snapshot

import (
	"database/sql"
	"fmt"
	"net"

	_ "modernc.org/sqlite"

	"github.com/tutu-network/swimcluster/internal/identity"
	"github.com/tutu-network/swimcluster/internal/membership"
)

func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS member_snapshot (
			host_key    TEXT PRIMARY KEY,
			address     TEXT NOT NULL DEFAULT '',
			incarnation INTEGER NOT NULL,
			state       TEXT NOT NULL,
			updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
}

// AddressResolver turns a persisted "host:port" string back into a
// net.Addr of whatever Transport family the embedder is using. The store
// itself never touches the network.
type AddressResolver func(hostport string) (net.Addr, error)

// Store is the snapshot database handle.
type Store struct {
	db *sql.DB
}

// Open creates the file at path if needed and applies migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	for _, stmt := range migrations() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("snapshot: migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save replaces the persisted snapshot with members in a single
// transaction, so a concurrent reader never observes a half-written list.
func (s *Store) Save(members []membership.Member) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM member_snapshot`); err != nil {
		return fmt.Errorf("snapshot: clear: %w", err)
	}
	for _, m := range members {
		addr := ""
		if m.Address != nil {
			addr = m.Address.String()
		}
		if _, err := tx.Exec(`
			INSERT INTO member_snapshot (host_key, address, incarnation, state, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
		`, m.HostKey.String(), addr, m.Incarnation, m.State.String()); err != nil {
			return fmt.Errorf("snapshot: insert %s: %w", m.HostKey, err)
		}
	}
	return tx.Commit()
}

// Load reads back the last-persisted snapshot. A row whose host_key or
// state can't be parsed is skipped; a row whose address can't be
// resolved is kept with a nil Address rather than failing the whole
// load — a stale unreachable entry isn't worth refusing to start over.
func (s *Store) Load(resolve AddressResolver) ([]membership.Member, error) {
	rows, err := s.db.Query(`SELECT host_key, address, incarnation, state FROM member_snapshot`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: query: %w", err)
	}
	defer rows.Close()

	var out []membership.Member
	for rows.Next() {
		var hostKeyStr, addrStr, stateStr string
		var incarnation uint64
		if err := rows.Scan(&hostKeyStr, &addrStr, &incarnation, &stateStr); err != nil {
			return nil, fmt.Errorf("snapshot: scan: %w", err)
		}
		hostKey, err := identity.Parse(hostKeyStr)
		if err != nil {
			continue
		}
		var state membership.State
		if err := state.UnmarshalText([]byte(stateStr)); err != nil {
			continue
		}
		m := membership.Member{HostKey: hostKey, Incarnation: incarnation, State: state}
		if addrStr != "" {
			if addr, err := resolve(addrStr); err == nil {
				m.Address = addr
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
