package membership

import (
	"math/rand"
	"net"

	"github.com/tutu-network/swimcluster/internal/identity"
)

// List is the authoritative local view of all known peers (spec §4.2).
// Keyed by host_key, with a secondary index by address. Not safe for
// concurrent use — the reactor is its sole owner (spec §5).
type List struct {
	self    identity.HostKey
	byKey   map[identity.HostKey]*Member
	byAddr  map[string]identity.HostKey
	cursor  []identity.HostKey // shuffled traversal order for next_random_member
	cursorI int
}

// New creates a List seeded with the local member (§3: "the local node is
// always represented in the MemberList").
func New(self Member) *List {
	l := &List{
		self:   self.HostKey,
		byKey:  make(map[identity.HostKey]*Member),
		byAddr: make(map[string]identity.HostKey),
	}
	cp := self
	l.byKey[self.HostKey] = &cp
	if self.Address != nil {
		l.byAddr[self.Address.String()] = self.HostKey
	}
	return l
}

// Self returns a snapshot of the local member.
func (l *List) Self() Member {
	return *l.byKey[l.self]
}

// SelfKey returns the local host_key.
func (l *List) SelfKey() identity.HostKey { return l.self }

// Get returns the member for key, if known.
func (l *List) Get(key identity.HostKey) (Member, bool) {
	m, ok := l.byKey[key]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// ByAddress returns the member bound to addr, if any.
func (l *List) ByAddress(addr net.Addr) (Member, bool) {
	key, ok := l.byAddr[addr.String()]
	if !ok {
		return Member{}, false
	}
	return l.Get(key)
}

// HasAddress reports whether addr is bound to a known member.
func (l *List) HasAddress(addr net.Addr) bool {
	_, ok := l.byAddr[addr.String()]
	return ok
}

// All returns every known member, including Down/Left ones (gossip still
// carries them; spec §4.2 "retained for gossip purposes").
func (l *List) All() []Member {
	out := make([]Member, 0, len(l.byKey))
	for _, m := range l.byKey {
		out = append(out, *m)
	}
	return out
}

// AvailableNodes returns members whose state is Alive or Suspect — the
// "visible to consumers" set (§4.2 available_nodes).
func (l *List) AvailableNodes() []Member {
	out := make([]Member, 0, len(l.byKey))
	for _, m := range l.byKey {
		if m.State == Alive || m.State == Suspect {
			out = append(out, *m)
		}
	}
	return out
}

// EnsureMember registers addr/sender as a member if unknown, returning the
// new Member and true if it was actually created. Used both for the
// "message from unknown address" and "piggybacked change references
// unknown host_key" lifecycle triggers (§3).
func (l *List) EnsureMember(key identity.HostKey, addr net.Addr) (Member, bool) {
	if existing, ok := l.byKey[key]; ok {
		if addr != nil && existing.Address == nil {
			existing.Address = addr
			l.byAddr[addr.String()] = key
		}
		return *existing, false
	}
	m := Member{HostKey: key, Address: addr, Incarnation: 0, State: Alive}
	l.insert(m)
	return m, true
}

func (l *List) insert(m Member) {
	cp := m
	l.byKey[m.HostKey] = &cp
	if m.Address != nil {
		l.byAddr[m.Address.String()] = m.HostKey
	}
	l.cursor = nil // invalidate traversal order on membership change
}

// ApplyStateChanges merges each incoming snapshot under the §4.1 rule.
// `from` is the UDP source address of the sender, used to infer the
// sender's own address binding when previously unknown.
//
// Returns the members newly discovered (added, for MemberJoined) and the
// members whose visible state actually changed (changed, for the
// WentUp/SuspectedDown/WentDown/Left events). A self-referential snapshot
// asserting Suspect or Down triggers a refutation instead: refuted is
// non-nil and must be gossiped but never turned into a local event (§4.1,
// §8 invariant 4 and scenario 5).
func (l *List) ApplyStateChanges(changes []Member, from net.Addr) (added, changed []Member, refuted *Member) {
	for _, incoming := range changes {
		if incoming.HostKey == l.self {
			if incoming.State == Suspect || incoming.State == Down {
				self := l.byKey[l.self]
				self.Incarnation++
				self.State = Alive
				cp := *self
				refuted = &cp
			}
			continue
		}

		local, known := l.byKey[incoming.HostKey]
		if !known {
			// A piggybacked change may reference a host_key we've never
			// seen. Members never report their own address over the
			// wire (§3), so a self-announcement arrives with Address
			// nil — bind it to the UDP source address it just arrived
			// from.
			m := incoming
			if m.Address == nil {
				m.Address = from
			}
			l.insert(m)
			added = append(added, m)
			continue
		}

		if supersedes(*local, incoming) {
			oldAddr := local.Address
			*local = incoming
			if local.Address == nil {
				local.Address = oldAddr
			}
			if local.Address != nil {
				l.byAddr[local.Address.String()] = local.HostKey
			}
			l.cursor = nil
			changed = append(changed, *local)
		}
	}

	return added, changed, refuted
}

// NextRandomMember uniformly picks one Alive peer other than self,
// visiting every peer once per full cycle before repeating (§4.2). Returns
// false if there are no candidates.
func (l *List) NextRandomMember() (Member, bool) {
	for attempts := 0; attempts < 2; attempts++ {
		if l.cursor == nil || l.cursorI >= len(l.cursor) {
			l.rebuildCursor()
		}
		for l.cursorI < len(l.cursor) {
			key := l.cursor[l.cursorI]
			l.cursorI++
			if m, ok := l.byKey[key]; ok && m.State == Alive && key != l.self {
				return *m, true
			}
		}
	}
	return Member{}, false
}

func (l *List) rebuildCursor() {
	l.cursor = l.cursor[:0]
	for key, m := range l.byKey {
		if key != l.self && m.State == Alive {
			l.cursor = append(l.cursor, key)
		}
	}
	rand.Shuffle(len(l.cursor), func(i, j int) {
		l.cursor[i], l.cursor[j] = l.cursor[j], l.cursor[i]
	})
	l.cursorI = 0
}

// HostsForIndirectPing returns up to k Alive peer addresses, excluding
// self and target (§4.2).
func (l *List) HostsForIndirectPing(k int, target identity.HostKey) []net.Addr {
	candidates := make([]*Member, 0, len(l.byKey))
	for key, m := range l.byKey {
		if key == l.self || key == target || m.State != Alive || m.Address == nil {
			continue
		}
		candidates = append(candidates, m)
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]net.Addr, 0, k)
	for _, m := range candidates[:k] {
		out = append(out, m.Address)
	}
	return out
}

// TimeOutNodes transitions each expired address Alive→Suspect and
// Suspect→Down. Members already Down or Left are untouched (§4.2).
func (l *List) TimeOutNodes(expired []net.Addr) (suspect, down []Member) {
	for _, addr := range expired {
		key, ok := l.byAddr[addr.String()]
		if !ok {
			continue
		}
		m := l.byKey[key]
		switch m.State {
		case Alive:
			m.State = Suspect
			l.cursor = nil
			suspect = append(suspect, *m)
		case Suspect:
			m.State = Down
			l.cursor = nil
			down = append(down, *m)
		}
	}
	return suspect, down
}

// MarkNodeAlive returns the member if its state actually changed to Alive
// (was Suspect/Down and now reachable) — the caller drives MemberWentUp
// from this return value (§4.2).
func (l *List) MarkNodeAlive(addr net.Addr) (Member, bool) {
	key, ok := l.byAddr[addr.String()]
	if !ok {
		return Member{}, false
	}
	m := l.byKey[key]
	if m.State == Alive {
		return Member{}, false
	}
	m.State = Alive
	l.cursor = nil
	return *m, true
}

// Leave sets self to Left and returns the updated snapshot (§4.2).
func (l *List) Leave() Member {
	self := l.byKey[l.self]
	self.State = Left
	return *self
}

// BindSelfAddress records the address the local node ended up bound to
// (learned only after the transport binds a real socket).
func (l *List) BindSelfAddress(addr net.Addr) {
	self := l.byKey[l.self]
	self.Address = addr
	l.byAddr[addr.String()] = l.self
}
