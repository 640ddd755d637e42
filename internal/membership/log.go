package membership

import "github.com/tutu-network/swimcluster/internal/identity"

// Log is the bounded, deduplicated sequence of recent per-member state
// changes piggybacked on outgoing messages (spec §4.3). Host_key is unique
// in the log: re-enqueuing a member overwrites its entry in place,
// preserving position, rather than appending a duplicate.
type Log struct {
	entries []Member
	index   map[identity.HostKey]int
}

// NewLog creates an empty StateChangeLog.
func NewLog() *Log {
	return &Log{index: make(map[identity.HostKey]int)}
}

// Enqueue adds or overwrites entries for each member. Nothing is evicted by
// size — the log is bounded only by natural turnover (§4.3); the MTU fit
// happens at send time via protocol.FitPrefix.
func (lg *Log) Enqueue(members ...Member) {
	for _, m := range members {
		if i, ok := lg.index[m.HostKey]; ok {
			lg.entries[i] = m
			continue
		}
		lg.index[m.HostKey] = len(lg.entries)
		lg.entries = append(lg.entries, m)
	}
}

// Snapshot returns the current log contents in order, for piggybacking on
// an outgoing message or for recording alongside a PendingProbe.
func (lg *Log) Snapshot() []Member {
	out := make([]Member, len(lg.entries))
	copy(out, lg.entries)
	return out
}

// Retire removes every entry whose host_key appears in acked — called when
// a probe is successfully acked, since the remote has now observed exactly
// what we piggybacked on it (§4.3, §4.5).
func (lg *Log) Retire(acked []Member) {
	if len(acked) == 0 || len(lg.entries) == 0 {
		return
	}
	drop := make(map[identity.HostKey]bool, len(acked))
	for _, m := range acked {
		drop[m.HostKey] = true
	}

	kept := lg.entries[:0:0]
	for _, e := range lg.entries {
		if drop[e.HostKey] {
			continue
		}
		kept = append(kept, e)
	}
	lg.entries = kept
	lg.reindex()
}

func (lg *Log) reindex() {
	for k := range lg.index {
		delete(lg.index, k)
	}
	for i, e := range lg.entries {
		lg.index[e.HostKey] = i
	}
}

// Len reports the number of distinct host_keys currently queued.
func (lg *Log) Len() int { return len(lg.entries) }
