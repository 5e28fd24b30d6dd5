package disrnet

// router.go holds the transport layer of a node: five bounded port queues,
// alternating-bit handshakes on every connected port, and a two-phase switch
// whose allocation is decided by the protocol engine's verdict on each head
// of queue packet.

import (
	"log/slog"
)

// pendingVerdict remembers the decision taken for the head packet of a port
// until that packet leaves the queue
type pendingVerdict struct {
	verdict Verdict
	active  bool
}

// Router is the switch of one mesh node.
type Router struct {
	id    int
	coord Coord
	cfg   *Config

	logger   *slog.Logger
	traceMgr *TraceManager
	metrics  *Metrics

	buffers [NumPorts]*PortQueue
	table   *ReservationTable
	engine  *Engine

	// inbound and outbound channel of every port, nil when unconnected
	rx [NumPorts]*Channel
	tx [NumPorts]*Channel

	levelRx [NumPorts]bool
	levelTx [NumPorts]bool

	pending       [NumPorts]pendingVerdict
	startFromPort Direction

	cycle      int64
	drops      int64
	violations int64
}

// CreateRouter is a constructor.  tm and metrics may be nil.
func CreateRouter(id int, cfg *Config, logger *slog.Logger, tm *TraceManager, metrics *Metrics) *Router {
	r := new(Router)
	r.id = id
	r.coord = CoordOf(id, cfg.MeshWidth)
	r.cfg = cfg
	r.logger = orDiscard(logger)
	r.traceMgr = tm
	r.metrics = metrics
	for port := range r.buffers {
		r.buffers[port] = CreatePortQueue(cfg.BufferDepth)
	}
	r.table = CreateReservationTable()
	r.engine = CreateEngine(id, cfg, r.logger)
	r.startFromPort = Local
	return r
}

// Connect attaches the channels a port receives on and sends on
func (r *Router) Connect(port Direction, rx, tx *Channel) {
	r.rx[port] = rx
	r.tx[port] = tx
}

// Invalidate makes the link in direction d permanently unusable for both the
// switch and the protocol
func (r *Router) Invalidate(d Direction) {
	r.table.Invalidate(d)
	r.engine.Invalidate(d)
}

// Reset empties the queues, frees the switch and resets the protocol.
// Unusable links stay unusable.  The attached channels are not touched, so
// a router is only reset together with its channels, by Mesh.Reset.
func (r *Router) Reset() {
	for port := range r.buffers {
		r.buffers[port].clear()
		r.pending[port] = pendingVerdict{}
		r.levelRx[port] = false
		r.levelTx[port] = false
	}
	r.table.Clear()
	r.engine.Reset()
	r.startFromPort = Local
	r.drops = 0
	r.violations = 0
}

func (r *Router) ID() int {
	return r.id
}

func (r *Router) Coord() Coord {
	return r.coord
}

// Engine exposes the protocol instance of the node
func (r *Router) Engine() *Engine {
	return r.engine
}

// Table exposes the reservation table of the node
func (r *Router) Table() *ReservationTable {
	return r.table
}

// Queue returns the input queue of port
func (r *Router) Queue(port Direction) *PortQueue {
	return r.buffers[port]
}

// Drops counts packets lost on injection or on an unusable route
func (r *Router) Drops() int64 {
	return r.drops
}

// Violations counts the protocol violations logged and stepped over
func (r *Router) Violations() int64 {
	return r.violations
}

func (r *Router) IsAssigned() bool {
	return r.engine.IsAssigned()
}

func (r *Router) LocalSegmentID() SegmentID {
	return r.engine.LocalSegmentID()
}

func (r *Router) LinkSegmentID(d Direction) SegmentID {
	return r.engine.LinkSegmentID(d)
}

func (r *Router) AssignTimestamp() int64 {
	return r.engine.AssignTimestamp()
}

// Idle is true when no packet is queued at, or in flight from, this router
func (r *Router) Idle() bool {
	for port := range r.buffers {
		if !r.buffers[port].IsEmpty() {
			return false
		}
		if r.tx[port] != nil && r.tx[port].Pending() {
			return false
		}
	}
	return true
}

// InjectToNetwork places pkt in the local port queue.  A full queue loses it.
func (r *Router) InjectToNetwork(pkt Packet) PushResult {
	pkt.DirIn = Local
	res := r.buffers[Local].Push(pkt)
	if res == Dropped {
		r.drops++
		r.metrics.dropped(pkt.Kind, "inject")
		AddNetTrace(r.traceMgr, r.cycle, r.id, &pkt, "drop")
		r.logger.Warn("cannot inject, local queue full", "node", r.id, "cycle", r.cycle, "kind", pkt.Kind, "segment", pkt.SegID)
		return res
	}
	AddNetTrace(r.traceMgr, r.cycle, r.id, &pkt, "inject")
	return res
}

func (r *Router) drainOutbox() {
	for _, pkt := range r.engine.TakeOutbox() {
		r.InjectToNetwork(pkt)
	}
}

// RxProcess runs the protocol housekeeping and then accepts every packet
// whose sender raised a new request level, as long as the port has room.
func (r *Router) RxProcess(cycle int64) {
	r.cycle = cycle
	if r.cfg.DiSR {
		r.engine.UpdateStatus(cycle)
		r.drainOutbox()
	}

	for port := North; port < NumPorts; port++ {
		ch := r.rx[port]
		if ch == nil {
			continue
		}
		if ch.Req() != r.levelRx[port] && !r.buffers[port].IsFull() {
			pkt := ch.Packet()
			pkt.Hops++
			r.buffers[port].Push(pkt)
			r.levelRx[port] = !r.levelRx[port]
			AddNetTrace(r.traceMgr, cycle, r.id, &pkt, "recv")
		}
		ch.Acknowledge(r.levelRx[port])
	}
}

// TxProcess runs the reservation phase and then the forwarding phase.  A
// protocol violation is returned when the configuration asks to halt on one.
func (r *Router) TxProcess(cycle int64) error {
	r.cycle = cycle
	if err := r.reservationPhase(); err != nil {
		return err
	}
	r.forwardingPhase()
	return nil
}

func (r *Router) reservationPhase() error {
	for j := 0; j < NumPorts; j++ {
		in := (r.startFromPort + Direction(j)) % NumPorts
		if r.buffers[in].IsEmpty() {
			continue
		}
		pv := &r.pending[in]
		if pv.active {
			if pv.verdict.Kind == VerdictForward {
				r.reserveForward(in, pv)
			}
			continue
		}

		pkt := r.buffers[in].Front()
		pkt.DirIn = in
		verdict, err := r.process(&pkt)
		r.drainOutbox()
		if err != nil {
			r.metrics.violation()
			if r.cfg.HaltOnViolation {
				return err
			}
			r.violations++
			r.logger.Error("protocol violation, packet discarded", "node", r.id, "cycle", r.cycle, "err", err)
			verdict = Discard
		}
		r.metrics.verdict(verdict.Kind)

		switch verdict.Kind {
		case VerdictSkip:
			continue
		case VerdictForward:
			*pv = pendingVerdict{verdict: verdict, active: true}
			r.reserveForward(in, pv)
		case VerdictFlood:
			outs := r.table.floodSet(in)
			if len(outs) > 0 {
				r.table.ReserveMulti(in, outs)
				r.engine.MarkTentative(outs, pkt.SegID)
			}
			*pv = pendingVerdict{verdict: verdict, active: true}
		default:
			// a consumed packet is recorded under its verdict
			AddNetTrace(r.traceMgr, r.cycle, r.id, &pkt, verdict.String())
			*pv = pendingVerdict{verdict: verdict, active: true}
		}
	}
	r.startFromPort = (r.startFromPort + 1) % NumPorts
	return nil
}

// reserveForward asks for the output of a forward verdict, unless in holds it already
func (r *Router) reserveForward(in Direction, pv *pendingVerdict) {
	out := pv.verdict.Dir
	if holder, granted := r.table.Holder(out); granted && holder == in {
		return
	}
	if r.table.IsUnusable(out) || r.tx[out] == nil {
		r.logger.Warn("forward onto an unusable port, packet dropped", "node", r.id, "cycle", r.cycle, "out", out)
		pv.verdict = Discard
		r.drops++
		r.metrics.dropped(r.buffers[in].Front().Kind, "unusable")
		return
	}
	if r.table.IsAvailable(out) {
		r.table.Reserve(in, out)
	}
}

func (r *Router) process(pkt *Packet) (Verdict, error) {
	if pkt.Kind == DataPacket {
		return r.routeData(pkt), nil
	}
	return r.engine.Process(pkt)
}

// routeData picks the dimension-order output of a traffic packet
func (r *Router) routeData(pkt *Packet) Verdict {
	if pkt.Dst == r.id {
		return Forward(Local)
	}
	out := RouteXY(r.coord, CoordOf(pkt.Dst, r.cfg.MeshWidth))
	if r.table.IsUnusable(out) {
		r.logger.Warn("xy route onto an unusable link, packet dropped", "node", r.id, "cycle", r.cycle, "dst", pkt.Dst, "out", out)
		r.drops++
		r.metrics.dropped(pkt.Kind, "unusable")
		return Discard
	}
	return Forward(out)
}

func (r *Router) forwardingPhase() {
	for in := North; in < NumPorts; in++ {
		pv := &r.pending[in]
		if !pv.active || r.buffers[in].IsEmpty() {
			continue
		}
		switch {
		case pv.verdict.Kind == VerdictForward:
			out, granted := r.table.OutputPort(in)
			if !granted || !r.transmit(in, out) {
				continue
			}
			r.table.Release(out)
			r.buffers[in].Pop()
			*pv = pendingVerdict{}
		case pv.verdict.Kind == VerdictFlood:
			for _, out := range r.table.OutputPorts(in) {
				if r.transmit(in, out) {
					r.table.Release(out)
				}
			}
			if len(r.table.OutputPorts(in)) == 0 {
				r.buffers[in].Pop()
				*pv = pendingVerdict{}
			}
		case pv.verdict.consumes():
			r.buffers[in].Pop()
			*pv = pendingVerdict{}
		}
	}
}

// transmit writes the head packet of in to out if the receiver acknowledged
// the previous transfer
func (r *Router) transmit(in, out Direction) bool {
	ch := r.tx[out]
	if ch == nil || r.levelTx[out] != ch.Ack() {
		return false
	}
	pkt := r.buffers[in].Front()
	pkt.DirIn = in
	pkt.DirOut = out
	r.levelTx[out] = !r.levelTx[out]
	ch.Send(pkt, r.levelTx[out])
	r.metrics.forwarded(pkt.Kind)
	AddNetTrace(r.traceMgr, r.cycle, r.id, &pkt, "send")
	return true
}
