// Package membership holds the protocol's core data model: Member,
// MemberList, the piggybacked StateChangeLog, PendingProbes, and WaitList
// (spec §3-4.1-4.3, 4.5-4.6). All mutation happens on the reactor goroutine
// only — these types carry no internal locking, matching spec §5's
// "no locks because there is no sharing."
package membership

import (
	"fmt"
	"net"

	"github.com/tutu-network/swimcluster/internal/identity"
)

// State is a member's position in the Alive → Suspect → Down/Left lifecycle.
type State int

const (
	Alive State = iota
	Suspect
	Down
	Left
)

// rank orders states for the (incarnation, rank) merge comparison (§4.1).
// Down/Left beat Suspect beats Alive at equal incarnation.
func (s State) rank() int { return int(s) }

// String renders the wire-format name (§6: "Alive"/"Suspect"/"Down"/"Left").
func (s State) String() string {
	switch s {
	case Alive:
		return "Alive"
	case Suspect:
		return "Suspect"
	case Down:
		return "Down"
	case Left:
		return "Left"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Alive":
		*s = Alive
	case "Suspect":
		*s = Suspect
	case "Down":
		*s = Down
	case "Left":
		*s = Left
	default:
		return fmt.Errorf("membership: unknown state %q", text)
	}
	return nil
}

// Member is the value object describing one peer (spec §3).
//
// Two Members are equal iff their HostKey values match — Equal exists
// precisely so callers never fall into the trap of comparing Address or
// Incarnation instead.
type Member struct {
	HostKey     identity.HostKey
	Address     net.Addr // nil for the local node before it has bound a socket
	Incarnation uint64
	State       State
}

// Equal reports host_key equality, the only identity that matters (§3).
func (m Member) Equal(other Member) bool {
	return m.HostKey == other.HostKey
}

// rankTuple is the total order spec §4.1 merges on: (incarnation, state rank).
type rankTuple struct {
	incarnation uint64
	stateRank   int
}

func (m Member) rank() rankTuple {
	return rankTuple{incarnation: m.Incarnation, stateRank: m.State.rank()}
}

// less reports whether a strictly precedes b under the merge order.
func (a rankTuple) less(b rankTuple) bool {
	if a.incarnation != b.incarnation {
		return a.incarnation < b.incarnation
	}
	return a.stateRank < b.stateRank
}

// supersedes reports whether incoming R should replace local L under the
// merge rule in §4.1: R.incarnation > L.incarnation, or equal incarnation
// and R ranks higher.
func supersedes(local, incoming Member) bool {
	return local.rank().less(incoming.rank())
}
