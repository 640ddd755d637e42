// Package protocol implements the wire codec external collaborator (spec
// §4.4, §6): the Message/Request types, their JSON encoding, and the
// MTU-fit search used to decide how much of the state-change log piggybacks
// on a given outgoing message. It knows nothing about sockets or the
// MemberList — addresses travel as plain "host:port" strings, resolved by
// whoever owns the transport.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/tutu-network/swimcluster/internal/identity"
	"github.com/tutu-network/swimcluster/internal/membership"
)

// RequestKind tags the four request variants spec §4.4 names.
type RequestKind string

const (
	KindPing        RequestKind = "Ping"
	KindAck         RequestKind = "Ack"
	KindPingRequest RequestKind = "PingRequest"
	KindAckHost     RequestKind = "AckHost"
)

// Member is the wire representation of membership.Member (spec §6:
// "{host_key, address, incarnation, state}"). Address is a plain
// "host:port" string, empty for a self-announcement whose sender infers
// its address from the UDP source.
type Member struct {
	HostKey     identity.HostKey `json:"host_key"`
	Address     string           `json:"address,omitempty"`
	Incarnation uint64           `json:"incarnation"`
	State       membership.State `json:"state"`
}

// Request is the tagged union over Ping/Ack/PingRequest/AckHost (§4.4).
// Target is populated only for PingRequest; Member only for AckHost.
type Request struct {
	Kind   RequestKind
	Target string
	Member *Member
}

// PingReq builds a bare Ping request.
func PingReq() Request { return Request{Kind: KindPing} }

// AckReq builds a bare Ack request.
func AckReq() Request { return Request{Kind: KindAck} }

// PingRequestReq builds a PingRequest(target) request.
func PingRequestReq(target string) Request {
	return Request{Kind: KindPingRequest, Target: target}
}

// AckHostReq builds an AckHost(member) request.
func AckHostReq(m Member) Request {
	return Request{Kind: KindAckHost, Member: &m}
}

// MarshalJSON renders Ping/Ack as bare strings and PingRequest/AckHost as
// single-key objects, matching §6's wire encodings exactly.
func (r Request) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindPing, KindAck:
		return json.Marshal(string(r.Kind))
	case KindPingRequest:
		return json.Marshal(map[string]string{"PingRequest": r.Target})
	case KindAckHost:
		if r.Member == nil {
			return nil, fmt.Errorf("protocol: AckHost request missing member")
		}
		return json.Marshal(map[string]*Member{"AckHost": r.Member})
	default:
		return nil, fmt.Errorf("protocol: unknown request kind %q", r.Kind)
	}
}

// UnmarshalJSON accepts either a bare string ("Ping"/"Ack") or a single-key
// object ({"PingRequest": ...} / {"AckHost": ...}).
func (r *Request) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		switch RequestKind(bare) {
		case KindPing, KindAck:
			r.Kind = RequestKind(bare)
			r.Target = ""
			r.Member = nil
			return nil
		default:
			return fmt.Errorf("protocol: unknown request %q", bare)
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("protocol: malformed request: %w", err)
	}
	if raw, ok := obj["PingRequest"]; ok {
		var target string
		if err := json.Unmarshal(raw, &target); err != nil {
			return fmt.Errorf("protocol: malformed PingRequest: %w", err)
		}
		r.Kind = KindPingRequest
		r.Target = target
		r.Member = nil
		return nil
	}
	if raw, ok := obj["AckHost"]; ok {
		var m Member
		if err := json.Unmarshal(raw, &m); err != nil {
			return fmt.Errorf("protocol: malformed AckHost: %w", err)
		}
		r.Kind = KindAckHost
		r.Member = &m
		return nil
	}
	return fmt.Errorf("protocol: unrecognized request object")
}

// Message is the full wire envelope (spec §4.4, §6).
type Message struct {
	Sender       identity.HostKey `json:"sender"`
	ClusterKey   []byte           `json:"cluster_key"`
	Request      Request          `json:"request"`
	StateChanges []Member         `json:"state_changes"`
}

// ClusterKeyMatches reports whether m belongs to the namespace identified
// by key — a weak partition, not a security boundary (§4.4, §7).
func (m Message) ClusterKeyMatches(key []byte) bool {
	if len(m.ClusterKey) != len(key) {
		return false
	}
	for i := range key {
		if m.ClusterKey[i] != key[i] {
			return false
		}
	}
	return true
}
