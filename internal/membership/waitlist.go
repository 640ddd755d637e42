package membership

import (
	"net"
	"time"
)

// WaitList maps a probed target address to the relay addresses awaiting an
// indirect-ack on its behalf (spec §3, §4.6).
type WaitList struct {
	relays  map[string][]net.Addr
	addr    map[string]net.Addr
	created map[string]time.Time
}

// NewWaitList creates an empty WaitList.
func NewWaitList() *WaitList {
	return &WaitList{
		relays:  make(map[string][]net.Addr),
		addr:    make(map[string]net.Addr),
		created: make(map[string]time.Time),
	}
}

// Add registers that relay is awaiting an indirect-ack for target, created
// at `now` (used for TTL-based garbage collection, §4.6/§9).
func (w *WaitList) Add(target, relay net.Addr, now time.Time) {
	key := target.String()
	w.relays[key] = append(w.relays[key], relay)
	w.addr[key] = target
	if _, ok := w.created[key]; !ok {
		w.created[key] = now
	}
}

// Take returns and clears the relays waiting on target (called when target
// delivers its direct ack, so each relay can be sent an AckHost).
func (w *WaitList) Take(target net.Addr) []net.Addr {
	key := target.String()
	relays := w.relays[key]
	delete(w.relays, key)
	delete(w.addr, key)
	delete(w.created, key)
	return relays
}

// Clear drops the WaitList entry for target without returning its relays —
// used when the target is declared Suspect (§3: "cleared ... when the
// target is declared Suspect").
func (w *WaitList) Clear(target net.Addr) {
	key := target.String()
	delete(w.relays, key)
	delete(w.addr, key)
	delete(w.created, key)
}

// GCOlderThan drops entries whose target never responded within maxAge —
// the bounded-TTL cleanup spec §4.6/§9 recommends but does not mandate.
func (w *WaitList) GCOlderThan(now time.Time, maxAge time.Duration) {
	for key, created := range w.created {
		if now.Sub(created) > maxAge {
			delete(w.relays, key)
			delete(w.addr, key)
			delete(w.created, key)
		}
	}
}

// Len reports the number of targets currently tracked.
func (w *WaitList) Len() int { return len(w.relays) }
