package reactor

import (
	"net"

	"github.com/tutu-network/swimcluster/internal/clock"
	"github.com/tutu-network/swimcluster/internal/config"
	"github.com/tutu-network/swimcluster/internal/membership"
	"github.com/tutu-network/swimcluster/internal/observability"
	"github.com/tutu-network/swimcluster/internal/protocol"
	"github.com/tutu-network/swimcluster/internal/transport"
)

// Cluster is the external-facing façade spec §6 names: start the reactor,
// feed it seeds, ask it to leave, and shut it down. The embedder never
// touches the Reactor directly.
type Cluster struct {
	reactor *Reactor
	stopped chan struct{}
}

// Start spawns the reactor goroutine and returns a handle to it. self must
// already carry the locally-minted host_key; its Address is set here to
// the transport's local address before the reactor starts.
func Start(self membership.Member, cfg config.Resolved, tr transport.Transport, clk clock.Clock, codec protocol.Codec, logger *observability.Logger) *Cluster {
	self.Address = tr.LocalAddr()
	r := NewReactor(self, cfg, tr, clk, codec, logger)
	c := &Cluster{reactor: r, stopped: make(chan struct{})}
	go func() {
		r.Run()
		close(c.stopped)
	}()
	return c
}

// Events returns the cluster-event stream (spec §6). Closed once the
// reactor reaches Stopped.
func (c *Cluster) Events() <-chan Event { return c.reactor.events }

// AddSeed enqueues addr for bootstrap pinging until it answers.
func (c *Cluster) AddSeed(addr net.Addr) {
	c.reactor.external <- command{kind: cmdAddSeed, addr: addr}
}

// Leave initiates a graceful Leave: self transitions to Left and is
// gossiped, but the reactor keeps running until Drop.
func (c *Cluster) Leave() {
	c.reactor.external <- command{kind: cmdLeaveCluster}
}

// Members returns a snapshot of every member the reactor currently knows
// about, read off the reactor's own goroutine via cmdSnapshot so no lock
// is ever needed. Used by internal/api's /members endpoint.
func (c *Cluster) Members() []membership.Member {
	reply := make(chan []membership.Member, 1)
	c.reactor.external <- command{kind: cmdSnapshot, reply: reply}
	return <-reply
}

// Drop sends Exit and blocks until the reactor has fully stopped.
func (c *Cluster) Drop() {
	notify := make(chan struct{})
	c.reactor.external <- command{kind: cmdExit, notify: notify}
	<-notify
	<-c.stopped
}
