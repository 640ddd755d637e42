package protocol

import (
	"testing"

	"github.com/tutu-network/swimcluster/internal/identity"
	"github.com/tutu-network/swimcluster/internal/membership"
)

func bigLog(n int) []Member {
	out := make([]Member, n)
	for i := range out {
		var k identity.HostKey
		k[0] = byte(i)
		k[1] = byte(i >> 8)
		out[i] = Member{
			HostKey:     k,
			Address:     "10.0.0.1:7001",
			Incarnation: uint64(i),
			State:       membership.Alive,
		}
	}
	return out
}

func TestFitPrefixReturnsFullLogWhenItAllFits(t *testing.T) {
	codec := NewJSONCodec()
	msg := Message{Sender: identity.HostKey{1}, ClusterKey: []byte("default"), Request: PingReq()}
	log := bigLog(3)

	fitted, n, ok := FitPrefix(codec, msg, log, 4096)
	if !ok {
		t.Fatal("expected the small log to fit")
	}
	if n != len(log) {
		t.Fatalf("expected the full log to fit under a generous MTU, got n=%d", n)
	}
	if len(fitted.StateChanges) != n {
		t.Fatalf("fitted.StateChanges length = %d, want %d", len(fitted.StateChanges), n)
	}
}

func TestFitPrefixClampsUnderTightMTU(t *testing.T) {
	codec := NewJSONCodec()
	msg := Message{Sender: identity.HostKey{1}, ClusterKey: []byte("default"), Request: PingReq()}
	log := bigLog(50)

	mtu := 200
	fitted, n, ok := FitPrefix(codec, msg, log, mtu)
	if !ok {
		t.Fatal("expected at least the zero-length prefix to fit under MTU 200")
	}
	if n >= len(log) {
		t.Fatalf("expected the log to be clamped, got n=%d of %d", n, len(log))
	}

	encoded, err := codec.Encode(fitted)
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) >= mtu {
		t.Fatalf("fitted message must serialize under MTU: got %d bytes, mtu=%d", len(encoded), mtu)
	}

	// n must be the maximum that fits: one more entry should not fit.
	if n < len(log) {
		msg.StateChanges = log[:n+1]
		bigger, err := codec.Encode(msg)
		if err != nil {
			t.Fatal(err)
		}
		if len(bigger) < mtu {
			t.Fatalf("n=%d is not maximal: a longer prefix still fits under MTU %d", n, mtu)
		}
	}
}

func TestFitPrefixNotOKWhenEvenEmptyMessageOverflows(t *testing.T) {
	codec := NewJSONCodec()
	msg := Message{Sender: identity.HostKey{1}, ClusterKey: []byte("default"), Request: PingReq()}

	_, n, ok := FitPrefix(codec, msg, bigLog(5), 10)
	if ok {
		t.Fatal("expected ok=false when even the empty message exceeds the MTU")
	}
	if n != 0 {
		t.Fatalf("expected n=0, got %d", n)
	}
}
