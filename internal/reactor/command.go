package reactor

import (
	"net"

	"github.com/tutu-network/swimcluster/internal/membership"
	"github.com/tutu-network/swimcluster/internal/protocol"
)

// commandKind tags the Internal command variants spec §4.7 names, plus
// cmdSnapshot: a read-only query the internal/api server uses to report
// current membership without the reactor's state ever leaving its
// single goroutine.
type commandKind int

const (
	cmdAddSeed commandKind = iota
	cmdRespond
	cmdReact
	cmdLeaveCluster
	cmdExit
	cmdSnapshot
)

// command is the sum type dispatched by the reactor's run loop. A single
// struct carries every variant's payload fields; only the ones implied by
// kind are meaningful (§9: "dynamic dispatch on Message.request" applies
// equally here — one tagged sum, one dispatch site).
type command struct {
	kind   commandKind
	addr   net.Addr         // cmdAddSeed
	src    net.Addr         // cmdRespond
	msg    protocol.Message // cmdRespond
	react  reaction         // cmdReact
	notify chan struct{}    // cmdExit
	reply  chan []membership.Member // cmdSnapshot
}

// reaction is one outgoing message the reactor owes some peer — produced
// by handling a datagram or a timer tick, consumed by sendReaction.
type reaction struct {
	target  net.Addr
	request protocol.Request
}
