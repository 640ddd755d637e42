package reactor

import (
	"testing"
	"time"

	"github.com/tutu-network/swimcluster/internal/clock"
	"github.com/tutu-network/swimcluster/internal/config"
	"github.com/tutu-network/swimcluster/internal/identity"
	"github.com/tutu-network/swimcluster/internal/membership"
	"github.com/tutu-network/swimcluster/internal/observability"
	"github.com/tutu-network/swimcluster/internal/protocol"
	"github.com/tutu-network/swimcluster/internal/transport"
)

func testConfig() config.Resolved {
	return config.Resolved{
		ClusterKey:           []byte("default"),
		PingInterval:         15 * time.Millisecond,
		PingTimeout:          45 * time.Millisecond,
		SuspectTimeout:       45 * time.Millisecond,
		NetworkMTU:           1400,
		PingRequestHostCount: 3,
	}
}

func quietLogger() *observability.Logger {
	return observability.New(observability.LevelError)
}

func startNode(t *testing.T, tr transport.Transport, cfg config.Resolved) (*Cluster, identity.HostKey) {
	t.Helper()
	key := identity.UUIDGenerator{}.New()
	c := Start(membership.Member{HostKey: key, State: membership.Alive}, cfg, tr, clock.Real{}, protocol.NewJSONCodec(), quietLogger())
	return c, key
}

func waitForEvent(t *testing.T, events <-chan Event, kind EventKind, who identity.HostKey, timeout time.Duration) Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events channel closed before seeing %v for %v", kind, who)
			}
			if ev.Kind == kind && ev.Member.HostKey == who {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v for %v", kind, who)
		}
	}
	panic("unreachable")
}

func assertNoEvent(t *testing.T, events <-chan Event, kind EventKind, who identity.HostKey, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == kind && ev.Member.HostKey == who {
				t.Fatalf("unexpected %v for %v", kind, who)
			}
		case <-deadline:
			return
		}
	}
}

func assertNoEventForMember(t *testing.T, events <-chan Event, who identity.HostKey, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Member.HostKey == who {
				t.Fatalf("unexpected local event %v for %v", ev.Kind, who)
			}
		case <-deadline:
			return
		}
	}
}

func TestTwoNodeJoin(t *testing.T) {
	net := transport.NewMemoryNetwork()
	trA := net.New("a")
	trB := net.New("b")
	cfg := testConfig()

	a, keyA := startNode(t, trA, cfg)
	b, keyB := startNode(t, trB, cfg)
	defer a.Drop()
	defer b.Drop()

	addrB, err := trA.ResolveAddr("b")
	if err != nil {
		t.Fatal(err)
	}
	a.AddSeed(addrB)

	waitForEvent(t, a.Events(), MemberJoined, keyB, 2*time.Second)
	waitForEvent(t, b.Events(), MemberJoined, keyA, 2*time.Second)
}

func TestSilentCrashTransitionsSuspectThenDown(t *testing.T) {
	net := transport.NewMemoryNetwork()
	trA := net.New("a")
	trB := net.New("b")
	trC := net.New("c")
	cfg := testConfig()

	a, _ := startNode(t, trA, cfg)
	b, _ := startNode(t, trB, cfg)
	c, keyC := startNode(t, trC, cfg)
	defer a.Drop()
	defer b.Drop()

	addrB, _ := trA.ResolveAddr("b")
	addrC, _ := trA.ResolveAddr("c")
	bAddrForC, _ := trB.ResolveAddr("c")
	a.AddSeed(addrB)
	a.AddSeed(addrC)
	b.AddSeed(bAddrForC)

	waitForEvent(t, a.Events(), MemberJoined, keyC, 2*time.Second)

	c.Drop() // simulate the crash: C stops responding to anything

	waitForEvent(t, a.Events(), MemberSuspectedDown, keyC, 2*time.Second)
	waitForEvent(t, a.Events(), MemberWentDown, keyC, 2*time.Second)
}

func TestIndirectRescueAvoidsFalseDown(t *testing.T) {
	net := transport.NewMemoryNetwork()
	trA := net.New("a")
	trB := net.New("b")
	trC := net.New("c")
	net.DropPath("a", "c")
	net.DropPath("c", "a")

	cfg := testConfig()
	a, _ := startNode(t, trA, cfg)
	b, _ := startNode(t, trB, cfg)
	c, keyC := startNode(t, trC, cfg)
	defer a.Drop()
	defer b.Drop()
	defer c.Drop()

	addrB, _ := trA.ResolveAddr("b")
	bAddrForC, _ := trB.ResolveAddr("c")
	a.AddSeed(addrB)
	b.AddSeed(bAddrForC)

	waitForEvent(t, a.Events(), MemberJoined, keyC, 2*time.Second)

	// A can never reach C directly, but B can always relay. C must never
	// be declared definitively dead on A.
	assertNoEvent(t, a.Events(), MemberWentDown, keyC, 500*time.Millisecond)
}

func TestGracefulLeaveEmitsMemberLeftNotWentDown(t *testing.T) {
	net := transport.NewMemoryNetwork()
	trA := net.New("a")
	trB := net.New("b")
	cfg := testConfig()

	a, keyA := startNode(t, trA, cfg)
	b, keyB := startNode(t, trB, cfg)
	defer a.Drop()

	addrB, _ := trA.ResolveAddr("b")
	a.AddSeed(addrB)
	waitForEvent(t, a.Events(), MemberJoined, keyB, 2*time.Second)
	waitForEvent(t, b.Events(), MemberJoined, keyA, 2*time.Second)

	b.Leave()

	waitForEvent(t, a.Events(), MemberLeft, keyB, 2*time.Second)
	assertNoEvent(t, a.Events(), MemberWentDown, keyB, 300*time.Millisecond)

	b.Drop()
}

func TestRefutationOfFabricatedSelfSuspicion(t *testing.T) {
	net := transport.NewMemoryNetwork()
	trA := net.New("a")
	trX := net.New("x")
	cfg := testConfig()

	a, keyA := startNode(t, trA, cfg)
	defer a.Drop()

	addrA, err := trX.ResolveAddr("a")
	if err != nil {
		t.Fatal(err)
	}
	addrX, err := trA.ResolveAddr("x")
	if err != nil {
		t.Fatal(err)
	}
	a.AddSeed(addrX)

	// Drain the first ping A sends to its unanswering seed.
	if _, err := trX.Recv(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("expected an initial ping to the seed: %v", err)
	}

	codec := protocol.NewJSONCodec()
	fabricated := protocol.Message{
		Sender:     identity.HostKey{0xDE, 0xAD},
		ClusterKey: cfg.ClusterKey,
		Request:    protocol.PingReq(),
		StateChanges: []protocol.Member{
			{HostKey: keyA, Incarnation: 0, State: membership.Suspect},
		},
	}
	encoded, err := codec.Encode(fabricated)
	if err != nil {
		t.Fatal(err)
	}
	if err := trX.Send(addrA, encoded); err != nil {
		t.Fatal(err)
	}

	assertNoEventForMember(t, a.Events(), keyA, 200*time.Millisecond)

	deadline := time.Now().Add(3 * time.Second)
	found := false
	for time.Now().Before(deadline) && !found {
		pkt, err := trX.Recv(time.Now().Add(500 * time.Millisecond))
		if err != nil {
			continue
		}
		msg, err := codec.Decode(pkt.Data)
		if err != nil {
			continue
		}
		for _, m := range msg.StateChanges {
			if m.HostKey == keyA && m.State == membership.Alive && m.Incarnation >= 1 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("expected a subsequent outgoing message to carry the refuted self snapshot (Alive, incarnation >= 1)")
	}
}

func TestEventForStatePanicsOnUnknownState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an unmapped state")
		}
	}()
	eventForState(membership.State(99))
}
