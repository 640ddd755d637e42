// Package identity mints the 128-bit host_key that names a member across
// restarts. It is an external collaborator of the membership core (spec
// §1): the core only ever sees a HostKey value, never how it was minted.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// HostKey is a member's stable, process-restart-surviving identity.
type HostKey [16]byte

// String renders the canonical UUID form.
func (k HostKey) String() string {
	return uuid.UUID(k).String()
}

// IsZero reports whether k is the zero value (never a valid minted key).
func (k HostKey) IsZero() bool {
	return k == HostKey{}
}

// MarshalText implements encoding.TextMarshaler so HostKey round-trips
// through JSON as the plain UUID string the wire format requires (§6).
func (k HostKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *HostKey) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return fmt.Errorf("parse host_key: %w", err)
	}
	*k = HostKey(parsed)
	return nil
}

// Generator mints new host identities. UUIDGenerator, the implementation
// in this package, wraps google/uuid.
type Generator interface {
	New() HostKey
}

// UUIDGenerator mints random (v4) host keys.
type UUIDGenerator struct{}

// New returns a fresh random HostKey.
func (UUIDGenerator) New() HostKey {
	return HostKey(uuid.New())
}

// Parse decodes the canonical string form produced by HostKey.String.
func Parse(s string) (HostKey, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return HostKey{}, fmt.Errorf("parse host_key %q: %w", s, err)
	}
	return HostKey(u), nil
}
