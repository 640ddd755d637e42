package membership

import (
	"net"
	"time"
)

// PendingProbe is one outstanding direct Ping awaiting an Ack, carrying the
// state-change snapshot that was piggybacked on it (spec §3, §4.5).
type PendingProbe struct {
	Deadline time.Time
	Target   net.Addr
	Changes  []Member
}

// PendingProbes is a deadline-ordered min-heap of outstanding probes.
// Adapted from the teacher's dsa.PriorityQueue (itself a binary min-heap
// over an injectable priority), simplified here to order purely by
// deadline — there is no starvation-boost concern for probe expiry, only
// "which deadline elapses first."
type PendingProbes struct {
	heap []PendingProbe
}

// NewPendingProbes creates an empty probe set.
func NewPendingProbes() *PendingProbes {
	return &PendingProbes{}
}

// Push records a new outstanding probe. Multiple entries for the same
// address may coexist (§3) — a later ack retires them all at once.
func (p *PendingProbes) Push(deadline time.Time, target net.Addr, snapshot []Member) {
	p.heap = append(p.heap, PendingProbe{Deadline: deadline, Target: target, Changes: snapshot})
	p.siftUp(len(p.heap) - 1)
}

// Len reports the number of outstanding probes.
func (p *PendingProbes) Len() int { return len(p.heap) }

// PruneExpired removes every probe whose deadline is before now, returning
// the set of distinct addresses that expired (spec §4.5: these feed
// MemberList.TimeOutNodes) — an address appears once even if it had
// several expired probes.
func (p *PendingProbes) PruneExpired(now time.Time) []net.Addr {
	seen := make(map[string]bool)
	var expired []net.Addr
	for len(p.heap) > 0 && p.heap[0].Deadline.Before(now) {
		top := p.popMin()
		key := top.Target.String()
		if !seen[key] {
			seen[key] = true
			expired = append(expired, top.Target)
		}
	}
	return expired
}

// RetireByAddress removes every pending probe targeting addr — an Ack from
// that address retires all of them at once (§4.5) — and returns the union
// of their piggybacked snapshots, which the caller removes from the
// StateChangeLog (§4.3).
func (p *PendingProbes) RetireByAddress(addr net.Addr) []Member {
	if len(p.heap) == 0 {
		return nil
	}
	target := addr.String()
	var acked []Member
	kept := p.heap[:0:0]
	for _, entry := range p.heap {
		if entry.Target.String() == target {
			acked = append(acked, entry.Changes...)
			continue
		}
		kept = append(kept, entry)
	}
	p.heap = kept
	p.rebuild()
	return acked
}

func (p *PendingProbes) popMin() PendingProbe {
	top := p.heap[0]
	last := len(p.heap) - 1
	p.heap[0] = p.heap[last]
	p.heap = p.heap[:last]
	if len(p.heap) > 0 {
		p.siftDown(0)
	}
	return top
}

func (p *PendingProbes) rebuild() {
	for i := len(p.heap)/2 - 1; i >= 0; i-- {
		p.siftDown(i)
	}
}

func (p *PendingProbes) less(i, j int) bool {
	return p.heap[i].Deadline.Before(p.heap[j].Deadline)
}

func (p *PendingProbes) siftUp(idx int) {
	for idx > 0 {
		parent := (idx - 1) / 2
		if p.less(idx, parent) {
			p.heap[idx], p.heap[parent] = p.heap[parent], p.heap[idx]
			idx = parent
		} else {
			break
		}
	}
}

func (p *PendingProbes) siftDown(idx int) {
	n := len(p.heap)
	for {
		smallest := idx
		left, right := 2*idx+1, 2*idx+2
		if left < n && p.less(left, smallest) {
			smallest = left
		}
		if right < n && p.less(right, smallest) {
			smallest = right
		}
		if smallest == idx {
			break
		}
		p.heap[idx], p.heap[smallest] = p.heap[smallest], p.heap[idx]
		idx = smallest
	}
}
