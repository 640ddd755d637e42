package membership

import (
	"testing"
	"time"
)

func at(seconds int) time.Time {
	return time.Unix(0, 0).Add(time.Duration(seconds) * time.Second)
}

func TestPendingProbesPruneExpiredOrdersByDeadline(t *testing.T) {
	p := NewPendingProbes()
	p.Push(at(30), addr("c:1"), nil)
	p.Push(at(10), addr("a:1"), nil)
	p.Push(at(20), addr("b:1"), nil)

	expired := p.PruneExpired(at(25))
	if len(expired) != 2 {
		t.Fatalf("expected 2 expired probes at t=25, got %d: %v", len(expired), expired)
	}
	if expired[0].String() != "a:1" || expired[1].String() != "b:1" {
		t.Fatalf("expired probes must come out in deadline order, got %v", expired)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 probe remaining, got %d", p.Len())
	}
}

func TestPendingProbesPruneExpiredDedupsByAddress(t *testing.T) {
	p := NewPendingProbes()
	p.Push(at(10), addr("a:1"), []Member{{HostKey: key(1)}})
	p.Push(at(11), addr("a:1"), []Member{{HostKey: key(2)}})

	expired := p.PruneExpired(at(20))
	if len(expired) != 1 {
		t.Fatalf("expected a single distinct address even with 2 probes against it, got %v", expired)
	}
}

func TestPendingProbesPruneExpiredLeavesFutureDeadlinesUntouched(t *testing.T) {
	p := NewPendingProbes()
	p.Push(at(100), addr("a:1"), nil)

	expired := p.PruneExpired(at(10))
	if len(expired) != 0 {
		t.Fatalf("nothing should expire yet, got %v", expired)
	}
	if p.Len() != 1 {
		t.Fatalf("probe must remain pending, got len=%d", p.Len())
	}
}

func TestPendingProbesRetireByAddressReturnsUnionOfChanges(t *testing.T) {
	p := NewPendingProbes()
	p.Push(at(10), addr("a:1"), []Member{{HostKey: key(1)}})
	p.Push(at(20), addr("a:1"), []Member{{HostKey: key(2)}})
	p.Push(at(15), addr("b:1"), []Member{{HostKey: key(3)}})

	acked := p.RetireByAddress(addr("a:1"))
	if len(acked) != 2 {
		t.Fatalf("expected both changesets for a:1 returned, got %v", acked)
	}
	if p.Len() != 1 {
		t.Fatalf("expected only the b:1 probe remaining, got len=%d", p.Len())
	}
}

func TestPendingProbesRetireByAddressLeavesHeapConsistent(t *testing.T) {
	p := NewPendingProbes()
	p.Push(at(5), addr("a:1"), nil)
	p.Push(at(1), addr("b:1"), nil)
	p.Push(at(9), addr("c:1"), nil)
	p.Push(at(3), addr("d:1"), nil)

	p.RetireByAddress(addr("b:1"))

	// Remaining probes must still come out in deadline order.
	expired := p.PruneExpired(at(100))
	if len(expired) != 3 {
		t.Fatalf("expected 3 remaining probes, got %d", len(expired))
	}
	if expired[0].String() != "d:1" || expired[1].String() != "a:1" || expired[2].String() != "c:1" {
		t.Fatalf("heap order broken after RetireByAddress, got %v", expired)
	}
}

func TestPendingProbesRetireByAddressNoMatchIsNoOp(t *testing.T) {
	p := NewPendingProbes()
	p.Push(at(10), addr("a:1"), nil)
	acked := p.RetireByAddress(addr("z:9"))
	if acked != nil {
		t.Fatalf("expected no acked changes for an unknown address, got %v", acked)
	}
	if p.Len() != 1 {
		t.Fatalf("unrelated probe must be untouched, got len=%d", p.Len())
	}
}
