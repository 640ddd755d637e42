package reactor

import (
	"fmt"

	"github.com/tutu-network/swimcluster/internal/membership"
	"github.com/tutu-network/swimcluster/internal/protocol"
)

// toWireMembers renders local Member snapshots as wire Members, blanking
// the address of whichever entry is self (spec §3: "the local node...its
// address is not reported over the network").
func (r *Reactor) toWireMembers(members []membership.Member) []protocol.Member {
	out := make([]protocol.Member, len(members))
	for i, m := range members {
		addr := ""
		if m.HostKey != r.members.SelfKey() && m.Address != nil {
			addr = m.Address.String()
		}
		out[i] = protocol.Member{
			HostKey:     m.HostKey,
			Address:     addr,
			Incarnation: m.Incarnation,
			State:       m.State,
		}
	}
	return out
}

// fromWireMember resolves a wire Member's address string (if any) through
// the transport, producing the membership.Member the core operates on.
func (r *Reactor) fromWireMember(w protocol.Member) (membership.Member, error) {
	m := membership.Member{HostKey: w.HostKey, Incarnation: w.Incarnation, State: w.State}
	if w.Address != "" {
		addr, err := r.transport.ResolveAddr(w.Address)
		if err != nil {
			return membership.Member{}, fmt.Errorf("resolve wire address %q: %w", w.Address, err)
		}
		m.Address = addr
	}
	return m, nil
}

func (r *Reactor) fromWireMembers(changes []protocol.Member) []membership.Member {
	out := make([]membership.Member, 0, len(changes))
	for _, w := range changes {
		m, err := r.fromWireMember(w)
		if err != nil {
			r.logger.Warnf("dropping piggybacked change with unresolvable address: %v", err)
			continue
		}
		out = append(out, m)
	}
	return out
}
