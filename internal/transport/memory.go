package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrNoPacket is returned by MemoryTransport.Recv when no datagram is
// available before the requested deadline — the in-memory analogue of a
// UDP read-deadline timeout.
var ErrNoPacket = errors.New("transport: no packet before deadline")

// memAddr is a net.Addr implementation keyed by a plain string, so tests
// can name nodes "a", "b", "c" instead of juggling real sockets.
type memAddr string

func (m memAddr) Network() string { return "mem" }
func (m memAddr) String() string  { return string(m) }

// MemoryNetwork is a shared switchboard connecting MemoryTransport
// instances, used by reactor scenario tests to exercise the full
// probe/ack/indirect-ping/piggyback cycle without real sockets.
type MemoryNetwork struct {
	mu     sync.Mutex
	queues map[memAddr]chan Packet
	drop   map[[2]memAddr]bool
}

// NewMemoryNetwork creates an empty switchboard.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		queues: make(map[memAddr]chan Packet),
		drop:   make(map[[2]memAddr]bool),
	}
}

// DropPath makes every datagram from -> to vanish silently, modeling a
// broken direct path for the indirect-ping scenario (spec §8 scenario 3).
func (n *MemoryNetwork) DropPath(from, to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drop[[2]memAddr{memAddr(from), memAddr(to)}] = true
}

// New attaches a fresh MemoryTransport bound to the given name.
func (n *MemoryNetwork) New(name string) *MemoryTransport {
	n.mu.Lock()
	defer n.mu.Unlock()
	addr := memAddr(name)
	q := make(chan Packet, 256)
	n.queues[addr] = q
	return &MemoryTransport{net: n, self: addr, inbox: q}
}

func (n *MemoryNetwork) deliver(from, to memAddr, data []byte) error {
	n.mu.Lock()
	dropped := n.drop[[2]memAddr{from, to}]
	q, ok := n.queues[to]
	n.mu.Unlock()

	if dropped {
		return nil // silently vanishes, like a lost UDP datagram
	}
	if !ok {
		return fmt.Errorf("transport: no such peer %q", to)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case q <- Packet{Data: cp, From: from}:
	default:
		// queue full: drop, matching UDP's best-effort delivery
	}
	return nil
}

// MemoryTransport is a Transport backed by MemoryNetwork, for deterministic
// unit and scenario tests.
type MemoryTransport struct {
	net   *MemoryNetwork
	self  memAddr
	inbox chan Packet
}

// LocalAddr implements Transport.
func (m *MemoryTransport) LocalAddr() net.Addr { return m.self }

// Send implements Transport.
func (m *MemoryTransport) Send(addr net.Addr, data []byte) error {
	return m.net.deliver(m.self, memAddr(addr.String()), data)
}

// Recv implements Transport.
func (m *MemoryTransport) Recv(deadline time.Time) (Packet, error) {
	timeout := time.Until(deadline)
	if timeout <= 0 {
		select {
		case p := <-m.inbox:
			return p, nil
		default:
			return Packet{}, ErrNoPacket
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case p := <-m.inbox:
		return p, nil
	case <-timer.C:
		return Packet{}, ErrNoPacket
	}
}

// ResolveAddr implements Transport.
func (m *MemoryTransport) ResolveAddr(hostport string) (net.Addr, error) {
	return memAddr(hostport), nil
}

// Close implements Transport.
func (m *MemoryTransport) Close() error { return nil }
