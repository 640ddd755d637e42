// Package observability carries the ambient stack's logging and metrics,
// adapted from the teacher's internal/infra/observability package: same
// promauto/Namespace-Subsystem metric style, trimmed to the counters and
// gauges a membership reactor actually emits (probe/ack/suspect/dead
// counts, the MTU-clamp gauge) — the teacher's Span/Tracer machinery had
// no equivalent concept in this domain and is not carried (see DESIGN.md).
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ProbesSent counts direct Ping probes sent.
var ProbesSent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "probe",
	Name:      "sent_total",
	Help:      "Total direct Ping probes sent.",
})

// AcksReceived counts direct Acks received.
var AcksReceived = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "probe",
	Name:      "acks_received_total",
	Help:      "Total direct Acks received.",
})

// IndirectPingRequestsSent counts PingRequest fan-outs issued to relays.
var IndirectPingRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "probe",
	Name:      "indirect_requests_sent_total",
	Help:      "Total PingRequest messages sent to relays.",
})

// MembersSuspected counts Alive->Suspect transitions.
var MembersSuspected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "membership",
	Name:      "suspected_total",
	Help:      "Total Alive->Suspect transitions observed locally.",
})

// MembersDown counts Suspect->Down transitions.
var MembersDown = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "membership",
	Name:      "down_total",
	Help:      "Total Suspect->Down transitions observed locally.",
})

// MembersAlive is the current gauge of members in Alive or Suspect state
// (spec §4.2 available_nodes).
var MembersAlive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "swimnode",
	Subsystem: "membership",
	Name:      "available_nodes",
	Help:      "Current count of members visible to consumers (Alive or Suspect).",
})

// MTUClampedLogLength is the most recent piggyback prefix length chosen by
// protocol.FitPrefix — a drop below the full log size means gossip is
// self-throttling under churn (§4.4).
var MTUClampedLogLength = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "swimnode",
	Subsystem: "protocol",
	Name:      "piggyback_prefix_length",
	Help:      "Length of the state-change prefix piggybacked on the most recent outgoing message.",
})

// MalformedMessagesDropped counts §7 MalformedMessage drops.
var MalformedMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "protocol",
	Name:      "malformed_dropped_total",
	Help:      "Total inbound datagrams dropped for failing to decode.",
})

// WrongClusterKeyDropped counts §7 WrongClusterKey drops.
var WrongClusterKeyDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "swimnode",
	Subsystem: "protocol",
	Name:      "wrong_cluster_key_dropped_total",
	Help:      "Total inbound messages dropped for a mismatched cluster_key.",
})
