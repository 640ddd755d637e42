// Package reactor implements the single-threaded event loop that unifies
// UDP receive, the periodic probe timer, and the internal command queue
// (spec §2, §4.7, §5). All mutation of the MemberList, StateChangeLog,
// PendingProbes, and WaitList happens here and only here.
package reactor

import (
	"net"
	"time"

	"github.com/tutu-network/swimcluster/internal/clock"
	"github.com/tutu-network/swimcluster/internal/config"
	"github.com/tutu-network/swimcluster/internal/membership"
	"github.com/tutu-network/swimcluster/internal/observability"
	"github.com/tutu-network/swimcluster/internal/protocol"
	"github.com/tutu-network/swimcluster/internal/transport"
)

// readPollInterval bounds how long a single Transport.Recv call blocks, so
// the read-forwarding goroutine can notice the reactor shutting down
// without needing to cancel an in-flight read.
const readPollInterval = 200 * time.Millisecond

// Reactor is the event loop. Construct via NewReactor and drive with Run;
// external callers only ever reach it through the Cluster handle (cluster.go).
type Reactor struct {
	cfg       config.Resolved
	transport transport.Transport
	clock     clock.Clock
	codec     protocol.Codec
	logger    *observability.Logger

	members *membership.List
	log     *membership.Log
	probes  *membership.PendingProbes
	waits   *membership.WaitList
	seeds   []net.Addr

	external chan command // AddSeed/LeaveCluster/Exit/Snapshot, sent by the Cluster handle
	pending  []command    // Respond/React, generated inside the loop (FIFO)
	events   chan Event
}

// NewReactor builds a Reactor seeded with self, ready for Run.
func NewReactor(self membership.Member, cfg config.Resolved, tr transport.Transport, clk clock.Clock, codec protocol.Codec, logger *observability.Logger) *Reactor {
	return &Reactor{
		cfg:       cfg,
		transport: tr,
		clock:     clk,
		codec:     codec,
		logger:    logger,
		members:   membership.New(self),
		log:       membership.NewLog(),
		probes:    membership.NewPendingProbes(),
		waits:     membership.NewWaitList(),
		external:  make(chan command, 8),
		events:    make(chan Event, 64),
	}
}

// Run drives the event loop until an Internal: Exit command arrives. It
// closes its Events channel on return (§4.7 terminal: Stopped).
func (r *Reactor) Run() {
	packets := make(chan transport.Packet, 16)
	done := make(chan struct{})
	go r.readLoop(packets, done)

	timer := r.clock.NewTimer(r.cfg.PingInterval)
	defer func() {
		timer.Stop()
		close(done)
		close(r.events)
	}()

	for {
		select {
		case pkt := <-packets:
			r.handlePacket(pkt)
		case c := <-r.external:
			if r.handleExternal(c) {
				return
			}
		case <-timer.C():
			r.handleTick()
			timer.Reset(r.cfg.PingInterval)
		}
		r.drainPending()
	}
}

// readLoop forwards datagrams from the transport onto packets, polling in
// short bursts so it notices done without needing to cancel a blocking
// Recv call.
func (r *Reactor) readLoop(out chan<- transport.Packet, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		pkt, err := r.transport.Recv(r.clock.Now().Add(readPollInterval))
		if err != nil {
			if transport.IsTimeout(err) {
				continue
			}
			r.logger.Warnf("transient network error receiving: %v", err)
			continue
		}
		select {
		case out <- pkt:
		case <-done:
			return
		}
	}
}

func (r *Reactor) handlePacket(pkt transport.Packet) {
	msg, err := r.codec.Decode(pkt.Data)
	if err != nil {
		r.logger.Warnf("dropping malformed message from %v: %v", pkt.From, err)
		observability.MalformedMessagesDropped.Inc()
		return
	}
	r.pending = append(r.pending, command{kind: cmdRespond, src: pkt.From, msg: msg})
}

// handleExternal processes one command from the Cluster handle. Returns
// true iff the loop should stop (cmdExit).
func (r *Reactor) handleExternal(c command) bool {
	switch c.kind {
	case cmdAddSeed:
		if !r.members.HasAddress(c.addr) && !r.seedQueued(c.addr) {
			r.seeds = append(r.seeds, c.addr)
		}
	case cmdLeaveCluster:
		m := r.members.Leave()
		r.log.Enqueue(m)
	case cmdExit:
		if c.notify != nil {
			close(c.notify)
		}
		return true
	case cmdSnapshot:
		if c.reply != nil {
			c.reply <- r.members.All()
		}
	}
	return false
}

func (r *Reactor) seedQueued(addr net.Addr) bool {
	for _, s := range r.seeds {
		if s.String() == addr.String() {
			return true
		}
	}
	return false
}

func (r *Reactor) removeSeed(addr net.Addr) {
	for i, s := range r.seeds {
		if s.String() == addr.String() {
			r.seeds = append(r.seeds[:i], r.seeds[i+1:]...)
			return
		}
	}
}

// drainPending processes every internally-queued command to completion.
// Handlers may enqueue further commands (e.g. an Ack fanning out AckHost
// reactions to waiting relays); the loop continues until the queue is
// empty, preserving FIFO order (§5).
func (r *Reactor) drainPending() {
	for len(r.pending) > 0 {
		c := r.pending[0]
		r.pending = r.pending[1:]
		switch c.kind {
		case cmdRespond:
			r.handleRespond(c.src, c.msg)
		case cmdReact:
			r.pruneTimeouts()
			r.sendReaction(c.react)
		}
	}
}

func (r *Reactor) enqueueReaction(react reaction) {
	r.pending = append(r.pending, command{kind: cmdReact, react: react})
}

// handleTick is the §4.7 timer-tick handler: prune expired probes, ping
// every seed, ping one random Alive member, then the caller rearms the
// timer.
func (r *Reactor) handleTick() {
	r.pruneTimeouts()
	r.waits.GCOlderThan(r.clock.Now(), 3*r.cfg.PingInterval)

	for _, seed := range r.seeds {
		r.enqueueReaction(reaction{target: seed, request: protocol.PingReq()})
	}
	if target, ok := r.members.NextRandomMember(); ok && target.Address != nil {
		r.enqueueReaction(reaction{target: target.Address, request: protocol.PingReq()})
	}
}

// pruneTimeouts removes expired probes, drives the resulting Suspect/Down
// transitions, and for each newly-Suspect member fans out indirect
// PingRequests and arms the suspicion-window probe that drives the
// eventual Suspect->Down transition (§4.5).
func (r *Reactor) pruneTimeouts() {
	now := r.clock.Now()
	expired := r.probes.PruneExpired(now)
	if len(expired) == 0 {
		return
	}

	suspects, downs := r.members.TimeOutNodes(expired)
	for _, m := range suspects {
		r.log.Enqueue(m)
		r.emit(Event{Kind: MemberSuspectedDown, Member: m})
		if m.Address != nil {
			r.waits.Clear(m.Address)
			r.probes.Push(now.Add(r.cfg.SuspectTimeout), m.Address, r.log.Snapshot())
		}
		for _, relay := range r.members.HostsForIndirectPing(r.cfg.PingRequestHostCount, m.HostKey) {
			if m.Address == nil {
				continue
			}
			r.enqueueReaction(reaction{target: relay, request: protocol.PingRequestReq(m.Address.String())})
			observability.IndirectPingRequestsSent.Inc()
		}
	}
	for _, m := range downs {
		r.log.Enqueue(m)
		r.emit(Event{Kind: MemberWentDown, Member: m})
	}
}

// handleRespond implements the §4.7/SPEC_FULL §D.1 Respond ordering: check
// cluster key, merge piggybacked changes, drop the source from the seed
// queue, ensure the sender is known, then dispatch on the request kind.
func (r *Reactor) handleRespond(src net.Addr, msg protocol.Message) {
	if !msg.ClusterKeyMatches(r.cfg.ClusterKey) {
		r.logger.Warnf("dropping message from %v: wrong cluster_key", src)
		observability.WrongClusterKeyDropped.Inc()
		return
	}

	changes := r.fromWireMembers(msg.StateChanges)
	added, changed, refuted := r.members.ApplyStateChanges(changes, src)
	for _, m := range added {
		r.log.Enqueue(m)
		r.emit(Event{Kind: MemberJoined, Member: m})
	}
	for _, m := range changed {
		r.log.Enqueue(m)
		r.emit(Event{Kind: eventForState(m.State), Member: m})
	}
	if refuted != nil {
		r.log.Enqueue(*refuted)
	}

	r.removeSeed(src)

	if _, created := r.members.EnsureMember(msg.Sender, src); created {
		if m, ok := r.members.Get(msg.Sender); ok {
			r.log.Enqueue(m)
			r.emit(Event{Kind: MemberJoined, Member: m})
		}
	}

	r.dispatchRequest(src, msg)
}

// dispatchRequest is the §4.7 inbound dispatch table.
func (r *Reactor) dispatchRequest(src net.Addr, msg protocol.Message) {
	switch msg.Request.Kind {
	case protocol.KindPing:
		r.enqueueReaction(reaction{target: src, request: protocol.AckReq()})

	case protocol.KindAck:
		observability.AcksReceived.Inc()
		acked := r.probes.RetireByAddress(src)
		r.log.Retire(acked)
		if m, ok := r.members.MarkNodeAlive(src); ok {
			r.log.Enqueue(m)
			r.emit(Event{Kind: MemberWentUp, Member: m})
		}
		if relays := r.waits.Take(src); len(relays) > 0 {
			if srcMember, ok := r.members.ByAddress(src); ok {
				wire := r.toWireMembers([]membership.Member{srcMember})[0]
				for _, relay := range relays {
					r.enqueueReaction(reaction{target: relay, request: protocol.AckHostReq(wire)})
				}
			}
		}

	case protocol.KindPingRequest:
		targetAddr, err := r.transport.ResolveAddr(msg.Request.Target)
		if err != nil {
			r.logger.Warnf("malformed PingRequest target %q from %v: %v", msg.Request.Target, src, err)
			return
		}
		r.waits.Add(targetAddr, src, r.clock.Now())
		r.enqueueReaction(reaction{target: targetAddr, request: protocol.PingReq()})

	case protocol.KindAckHost:
		if msg.Request.Member == nil {
			r.logger.Warnf("malformed AckHost from %v: missing member", src)
			return
		}
		member, err := r.fromWireMember(*msg.Request.Member)
		if err != nil || member.Address == nil {
			r.logger.Warnf("malformed AckHost from %v: %v", src, err)
			return
		}
		acked := r.probes.RetireByAddress(member.Address)
		r.log.Retire(acked)
		if m, ok := r.members.MarkNodeAlive(member.Address); ok {
			r.log.Enqueue(m)
			r.emit(Event{Kind: MemberWentUp, Member: m})
		}
	}
}

// buildMessage fits the largest prefix of the log under network_mtu onto
// req (§4.4).
func (r *Reactor) buildMessage(req protocol.Request) protocol.Message {
	base := protocol.Message{Sender: r.members.SelfKey(), ClusterKey: r.cfg.ClusterKey, Request: req}
	wireLog := r.toWireMembers(r.log.Snapshot())

	fitted, n, ok := protocol.FitPrefix(r.codec, base, wireLog, r.cfg.NetworkMTU)
	if !ok {
		r.logger.Warnf("network_mtu=%d too small even for an empty message; sending without piggyback", r.cfg.NetworkMTU)
		fitted = base
		fitted.StateChanges = nil
		n = 0
	}
	observability.MTUClampedLogLength.Set(float64(n))
	return fitted
}

func (r *Reactor) sendReaction(react reaction) {
	msg := r.buildMessage(react.request)
	encoded, err := r.codec.Encode(msg)
	if err != nil {
		r.logger.Errorf("encode outgoing message to %v: %v", react.target, err)
		return
	}
	if err := r.transport.Send(react.target, encoded); err != nil {
		r.logger.Warnf("transient network error sending to %v: %v", react.target, err)
		return
	}
	if react.request.Kind == protocol.KindPing {
		deadline := r.clock.Now().Add(r.cfg.PingTimeout)
		r.probes.Push(deadline, react.target, r.log.Snapshot())
		observability.ProbesSent.Inc()
	}
}

// emit publishes ev to the event channel and updates the availability
// gauge and transition counters (§6, ambient metrics).
func (r *Reactor) emit(ev Event) {
	switch ev.Kind {
	case MemberSuspectedDown:
		observability.MembersSuspected.Inc()
	case MemberWentDown:
		observability.MembersDown.Inc()
	}
	r.events <- ev
	observability.MembersAlive.Set(float64(len(r.members.AvailableNodes())))
}
