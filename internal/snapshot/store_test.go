package snapshot

import (
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/tutu-network/swimcluster/internal/identity"
	"github.com/tutu-network/swimcluster/internal/membership"
)

type testAddr string

func (a testAddr) Network() string { return "test" }
func (a testAddr) String() string  { return string(a) }

func resolveTestAddr(hostport string) (net.Addr, error) {
	return testAddr(hostport), nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := newTestStore(t)

	members := []membership.Member{
		{HostKey: identity.UUIDGenerator{}.New(), Address: testAddr("10.0.0.1:7000"), Incarnation: 3, State: membership.Alive},
		{HostKey: identity.UUIDGenerator{}.New(), Address: testAddr("10.0.0.2:7000"), Incarnation: 1, State: membership.Suspect},
	}

	if err := store.Save(members); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := store.Load(resolveTestAddr)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded) != len(members) {
		t.Fatalf("loaded %d members, want %d", len(loaded), len(members))
	}

	byKey := make(map[identity.HostKey]membership.Member, len(loaded))
	for _, m := range loaded {
		byKey[m.HostKey] = m
	}
	for _, want := range members {
		got, ok := byKey[want.HostKey]
		if !ok {
			t.Fatalf("missing member %v after round trip", want.HostKey)
		}
		if got.Incarnation != want.Incarnation {
			t.Errorf("member %v: incarnation = %d, want %d", want.HostKey, got.Incarnation, want.Incarnation)
		}
		if got.State != want.State {
			t.Errorf("member %v: state = %v, want %v", want.HostKey, got.State, want.State)
		}
		if got.Address == nil || got.Address.String() != want.Address.String() {
			t.Errorf("member %v: address = %v, want %v", want.HostKey, got.Address, want.Address)
		}
	}
}

func TestSaveReplacesPriorSnapshotEntirely(t *testing.T) {
	store := newTestStore(t)

	first := identity.UUIDGenerator{}.New()
	if err := store.Save([]membership.Member{{HostKey: first, State: membership.Alive}}); err != nil {
		t.Fatal(err)
	}

	second := identity.UUIDGenerator{}.New()
	if err := store.Save([]membership.Member{{HostKey: second, State: membership.Alive}}); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load(resolveTestAddr)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].HostKey != second {
		t.Fatalf("expected only the second snapshot's member to survive, got %v", loaded)
	}
}

func TestLoadKeepsRowsWithUnresolvableAddress(t *testing.T) {
	store := newTestStore(t)

	key := identity.UUIDGenerator{}.New()
	if err := store.Save([]membership.Member{{HostKey: key, Address: testAddr("10.0.0.1:7000"), State: membership.Alive}}); err != nil {
		t.Fatal(err)
	}

	failResolve := func(string) (net.Addr, error) { return nil, fmt.Errorf("boom") }
	loaded, err := store.Load(failResolve)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry with a nil Address, got %d", len(loaded))
	}
	if loaded[0].Address != nil {
		t.Errorf("expected nil Address when resolve fails, got %v", loaded[0].Address)
	}
}

func TestLoadOnEmptyStoreReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Load(resolveTestAddr)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected no members, got %d", len(loaded))
	}
}
