package disrnet

// disr.go holds the per-node DiSR state machine.  An Engine owns the node's
// local environment data (its own segment membership and the tags of its
// four links), decides what happens to each control packet the router shows
// it, and writes the packets it originates into an outbox the router drains
// into the local port.

import (
	"fmt"
	"log/slog"
)

// Status is the node's position in segment construction
type Status int

const (
	StatusBootstrap Status = iota
	StatusReadySearching
	StatusActiveSearching
	StatusCandidateStarting
	StatusCandidate
	StatusAssigned
	StatusFree
)

var statusNames = map[Status]string{
	StatusBootstrap:         "bootstrap",
	StatusReadySearching:    "ready-searching",
	StatusActiveSearching:   "active-searching",
	StatusCandidateStarting: "candidate-starting",
	StatusCandidate:         "candidate",
	StatusAssigned:          "assigned",
	StatusFree:              "free",
}

func (st Status) String() string {
	if name, found := statusNames[st]; found {
		return name
	}
	return fmt.Sprintf("status(%d)", int(st))
}

// LinkSearch is the outcome of one call of the free link cursor
type LinkSearch int

const (
	LinkFound LinkSearch = iota
	LinkNone
	LinkExhausted
)

// noNode fills the destination of control packets, which travel by direction
const noNode = -1

// Engine is the DiSR protocol instance of one node.
type Engine struct {
	id     int
	cfg    *Config
	logger *slog.Logger

	status   Status
	segID    SegmentID
	visited  bool
	tvisited bool

	linkVisited   [NumDirections]SegmentID
	linkTentative [NumDirections]SegmentID

	// direction a confirmation for the held segment must be sent back on
	requestPath Direction

	// free link cursor and the laps it has left
	currentLink Direction
	lapsLeft    int

	bootstrapTimeout int
	assignTimestamp  int64
	cycle            int64

	outbox []Packet
}

// CreateEngine is a constructor.  The engine starts reset: bootstrap status
// for the configured bootstrap node, free for every other.
func CreateEngine(id int, cfg *Config, logger *slog.Logger) *Engine {
	e := new(Engine)
	e.id = id
	e.cfg = cfg
	e.logger = orDiscard(logger)
	for d := range e.linkVisited {
		e.linkVisited[d] = FreeSegmentID()
		e.linkTentative[d] = FreeSegmentID()
	}
	e.Reset()
	return e
}

// Reset returns the local environment data to its initial state.  Unusable
// links stay unusable.
func (e *Engine) Reset() {
	e.visited = false
	e.tvisited = false
	e.segID = FreeSegmentID()
	e.requestPath = NoDirection
	e.clearLinks()
	e.resetCursor()
	e.assignTimestamp = 0
	e.outbox = nil
	if e.id == e.cfg.Bootstrap {
		e.bootstrapTimeout = e.cfg.bootstrapTimeout()
		e.setStatus(StatusBootstrap)
		return
	}
	e.setStatus(StatusFree)
}

// Invalidate marks the link in direction d permanently unusable
func (e *Engine) Invalidate(d Direction) {
	if !d.IsMesh() {
		return
	}
	e.linkVisited[d] = UnusableSegmentID()
	e.linkTentative[d] = UnusableSegmentID()
}

// ID returns the node the engine runs on
func (e *Engine) ID() int {
	return e.id
}

// Status returns the node status, checking the visited flags against it when debugging
func (e *Engine) Status() Status {
	if e.cfg.Debug {
		e.assertInvariants()
	}
	return e.status
}

// IsAssigned is true once the node belongs to a confirmed segment
func (e *Engine) IsAssigned() bool {
	return e.visited
}

// LocalSegmentID is the segment the node belongs to, or is candidate for
func (e *Engine) LocalSegmentID() SegmentID {
	return e.segID
}

// LinkSegmentID is the confirmed segment of the link in direction d
func (e *Engine) LinkSegmentID(d Direction) SegmentID {
	return e.linkVisited[d]
}

// TentativeSegmentID is the segment the link in direction d is provisionally held for
func (e *Engine) TentativeSegmentID(d Direction) SegmentID {
	return e.linkTentative[d]
}

// AssignTimestamp is the cycle the node was committed to its segment
func (e *Engine) AssignTimestamp() int64 {
	return e.assignTimestamp
}

// RequestPath is the direction a pending confirmation returns along
func (e *Engine) RequestPath() Direction {
	return e.requestPath
}

// TakeOutbox hands the router the packets generated since the last call
func (e *Engine) TakeOutbox() []Packet {
	out := e.outbox
	e.outbox = nil
	return out
}

// MarkTentative tags every direction in dirs as provisionally held for sid,
// used by the router for the links a flood was granted.
func (e *Engine) MarkTentative(dirs []Direction, sid SegmentID) {
	for _, d := range dirs {
		e.setTentative(d, sid)
	}
}

// CheckInvariants compares the visited flags with what the status demands
func (e *Engine) CheckInvariants() error {
	if e.visited && e.tvisited {
		return fmt.Errorf("node %d %s: visited and tentatively visited both set", e.id, e.status)
	}
	wantVisited, wantTentative, constrained := statusFlags(e.status)
	if !constrained {
		return nil
	}
	if e.visited != wantVisited || e.tvisited != wantTentative {
		return fmt.Errorf("node %d %s: visited=%t tentative=%t, want %t/%t",
			e.id, e.status, e.visited, e.tvisited, wantVisited, wantTentative)
	}
	return nil
}

// statusFlags gives the visited and tentatively visited values a status fixes
func statusFlags(st Status) (visited, tentative, constrained bool) {
	switch st {
	case StatusBootstrap, StatusFree:
		return false, false, true
	case StatusActiveSearching, StatusReadySearching, StatusAssigned:
		return true, false, true
	case StatusCandidate:
		return false, true, true
	}
	return false, false, false
}

func (e *Engine) assertInvariants() {
	if err := e.CheckInvariants(); err != nil {
		panic(err)
	}
}

// setStatus must follow every change of the visited flags it depends on
func (e *Engine) setStatus(st Status) {
	if e.status != st {
		e.logger.Debug("status", "node", e.id, "cycle", e.cycle, "from", e.status, "to", st)
	}
	e.status = st
	if e.cfg.Debug {
		e.assertInvariants()
	}
}

func (e *Engine) setVisited(d Direction, sid SegmentID) {
	if d.IsMesh() && e.linkVisited[d].IsValid() {
		e.linkVisited[d] = sid
	}
}

func (e *Engine) setTentative(d Direction, sid SegmentID) {
	if d.IsMesh() && e.linkTentative[d].IsValid() {
		e.linkTentative[d] = sid
	}
}

// commitLink turns the tag of d from tentative into confirmed
func (e *Engine) commitLink(d Direction, sid SegmentID) {
	e.setVisited(d, sid)
	e.setTentative(d, FreeSegmentID())
}

// freeDirection drops the tentative hold on d.  A confirmed tag is kept.
func (e *Engine) freeDirection(d Direction) {
	if !d.IsMesh() {
		return
	}
	if e.linkVisited[d].IsAssigned() {
		e.logger.Warn("free of a confirmed link ignored", "node", e.id, "dir", d, "segment", e.linkVisited[d])
	} else {
		e.setVisited(d, FreeSegmentID())
	}
	e.setTentative(d, FreeSegmentID())
}

// clearLinks frees both tags of every usable link
func (e *Engine) clearLinks() {
	for d := North; d < NumDirections; d++ {
		e.setVisited(d, FreeSegmentID())
		e.setTentative(d, FreeSegmentID())
	}
}

func (e *Engine) linkFree(d Direction) bool {
	return e.linkVisited[d].IsFree() && e.linkTentative[d].IsFree()
}

// hasFreeLink looks for a free link without moving the cursor
func (e *Engine) hasFreeLink() bool {
	for d := North; d < NumDirections; d++ {
		if e.linkFree(d) {
			return true
		}
	}
	return false
}

func (e *Engine) resetCursor() {
	e.currentLink = North
	e.lapsLeft = e.cfg.CycleLinks
}

// NextFreeLink advances the cursor to the next link with both tags free.  A
// lap without success costs one of the configured laps; when the last is
// spent the search reports exhaustion and starts over.
func (e *Engine) NextFreeLink() (Direction, LinkSearch) {
	for i := 0; i < NumDirections; i++ {
		d := e.currentLink
		e.currentLink = (e.currentLink + 1) % NumDirections
		if e.linkFree(d) {
			return d, LinkFound
		}
	}
	if e.cfg.CycleLinks > 0 {
		e.lapsLeft--
		if e.lapsLeft <= 0 {
			e.resetCursor()
			return NoDirection, LinkExhausted
		}
	}
	return NoDirection, LinkNone
}

func (e *Engine) inject(pkt Packet) {
	e.outbox = append(e.outbox, pkt)
}

// UpdateStatus is the once-per-cycle housekeeping: a bootstrap node starts
// the first ring, an assigned node with a spare link starts a segment
// request, and a bootstrap node waiting on its ring counts down.
func (e *Engine) UpdateStatus(cycle int64) {
	e.cycle = cycle
	switch e.status {
	case StatusBootstrap:
		e.bootstrapNode()
	case StatusAssigned:
		if e.hasFreeLink() {
			e.startInvestigation()
		}
	}

	if e.status == StatusCandidateStarting && e.visited && e.bootstrapTimeout != -1 {
		e.bootstrapTimeout--
		if e.bootstrapTimeout <= 0 {
			e.restartBootstrap()
		}
	}
}

func (e *Engine) bootstrapNode() {
	d, res := e.NextFreeLink()
	if res != LinkFound {
		e.logger.Debug("bootstrap has no free link", "node", e.id, "cycle", e.cycle, "exhausted", res == LinkExhausted)
		return
	}
	sid := NewSegmentID(e.id, d)
	e.setTentative(d, sid)
	e.visited = true
	e.setStatus(StatusCandidateStarting)
	e.inject(Packet{SegID: sid, Src: e.id, Dst: noNode, Kind: StartingSegmentRequest,
		DirIn: Local, DirOut: d, TTL: e.cfg.bootstrapTimeout(), Timestamp: e.cycle})
	e.logger.Info("bootstrap flood started", "node", e.id, "cycle", e.cycle, "segment", sid)
}

// restartBootstrap abandons a ring that did not close in time.  The cursor
// keeps its position so the next attempt leaves on another link.
func (e *Engine) restartBootstrap() {
	e.logger.Info("bootstrap timeout, restarting", "node", e.id, "cycle", e.cycle, "segment", e.segID)
	cursor := e.currentLink
	e.clearLinks()
	e.resetCursor()
	e.currentLink = cursor
	e.visited = false
	e.tvisited = false
	e.segID = FreeSegmentID()
	e.requestPath = NoDirection
	e.bootstrapTimeout = e.cfg.bootstrapTimeout()
	e.setStatus(StatusBootstrap)
}

func (e *Engine) startInvestigation() {
	d, res := e.NextFreeLink()
	if res != LinkFound {
		return
	}
	sid := NewSegmentID(e.id, d)
	e.setTentative(d, sid)
	e.setStatus(StatusActiveSearching)
	e.inject(Packet{SegID: sid, Src: e.id, Dst: noNode, Kind: SegmentRequest,
		DirIn: Local, DirOut: d, TTL: e.cfg.requestTTL(), Timestamp: e.cycle})
}

// generateConfirm queues the answer to the request pkt back along the link it came in on
func (e *Engine) generateConfirm(pkt *Packet) {
	reply := *pkt
	if pkt.Kind == StartingSegmentRequest {
		reply.Kind = StartingSegmentConfirm
	} else {
		reply.Kind = SegmentConfirm
	}
	reply.DirOut = pkt.DirIn
	reply.DirIn = Local
	reply.Src = e.id
	reply.Hops = 0
	e.inject(reply)
}

// generateCancel queues a cancellation of the request pkt back along the link it came in on
func (e *Engine) generateCancel(pkt *Packet) {
	reply := *pkt
	reply.Kind = SegmentCancel
	reply.DirOut = pkt.DirIn
	reply.DirIn = Local
	reply.Src = e.id
	reply.Hops = 0
	reply.decrementTTL()
	e.inject(reply)
}

func (e *Engine) violation(pkt *Packet, reason string) error {
	return &ProtocolViolation{Node: e.id, Kind: pkt.Kind, Status: e.status, NodeSegID: e.segID,
		PacketSegID: pkt.SegID, DirIn: pkt.DirIn, Reason: reason}
}

// Process decides what becomes of the control packet pkt, which sits at the
// head of the input queue pkt.DirIn.  Packets the engine originates on the
// way appear in the outbox.
func (e *Engine) Process(pkt *Packet) (Verdict, error) {
	var verdict Verdict
	var err error
	switch pkt.Kind {
	case StartingSegmentRequest:
		verdict = e.startingRequest(pkt)
	case StartingSegmentConfirm:
		verdict, err = e.startingConfirm(pkt)
	case SegmentRequest:
		verdict, err = e.segmentRequest(pkt)
	case SegmentConfirm:
		verdict, err = e.segmentConfirm(pkt)
	case SegmentCancel:
		verdict, err = e.segmentCancel(pkt)
	default:
		return Discard, e.violation(pkt, "not a segment control packet")
	}
	if err != nil {
		return Discard, err
	}
	e.logger.Debug("verdict", "node", e.id, "cycle", e.cycle, "kind", pkt.Kind,
		"segment", pkt.SegID, "in", pkt.DirIn, "status", e.status, "verdict", verdict)
	return verdict, nil
}

func (e *Engine) startingRequest(pkt *Packet) Verdict {
	if pkt.Src == e.id {
		if pkt.DirIn == Local {
			return Forward(pkt.DirOut)
		}
		if e.segID.IsAssigned() {
			return Discard
		}
		for d := North; d < NumDirections; d++ {
			if e.linkTentative[d] != pkt.SegID {
				continue
			}
			e.segID = pkt.SegID
			e.commitLink(pkt.DirIn, pkt.SegID)
			e.resetCursor()
			e.assignTimestamp = e.cycle
			e.setStatus(StatusAssigned)
			e.generateConfirm(pkt)
			e.logger.Info("starting segment closed", "node", e.id, "cycle", e.cycle, "segment", pkt.SegID)
			return Confirm
		}
		// flood of an attempt this node has since abandoned
		return Discard
	}

	switch e.status {
	case StatusFree:
		return e.adoptStartingRequest(pkt)
	case StatusCandidateStarting:
		if e.segID.Link < pkt.SegID.Link {
			e.clearLinks()
			e.resetCursor()
			return e.adoptStartingRequest(pkt)
		}
	}
	return Discard
}

func (e *Engine) adoptStartingRequest(pkt *Packet) Verdict {
	e.segID = pkt.SegID
	e.visited = false
	e.tvisited = true
	e.setTentative(pkt.DirIn, pkt.SegID)
	e.requestPath = pkt.DirIn
	e.setStatus(StatusCandidateStarting)
	return Flood
}

func (e *Engine) startingConfirm(pkt *Packet) (Verdict, error) {
	if pkt.Src == e.id {
		if pkt.DirIn == Local {
			return Forward(pkt.DirOut), nil
		}
		e.commitLink(pkt.DirIn, pkt.SegID)
		return EndConfirm, nil
	}
	if e.status != StatusCandidateStarting || e.segID != pkt.SegID {
		return Discard, e.violation(pkt, "starting segment confirm for a segment not held")
	}

	e.tvisited = false
	e.visited = true
	for d := North; d < NumDirections; d++ {
		if d == pkt.DirIn || d == e.requestPath {
			e.commitLink(d, pkt.SegID)
			continue
		}
		e.setVisited(d, FreeSegmentID())
		e.setTentative(d, FreeSegmentID())
	}
	e.resetCursor()
	e.assignTimestamp = e.cycle
	e.setStatus(StatusAssigned)
	return Forward(e.requestPath), nil
}

func (e *Engine) segmentRequest(pkt *Packet) (Verdict, error) {
	if pkt.DirIn == Local {
		return Forward(pkt.DirOut), nil
	}
	if pkt.Src == e.id {
		// the request came around back to where it started
		e.commitLink(pkt.DirIn, pkt.SegID)
		e.requestPath = pkt.DirIn
		e.generateConfirm(pkt)
		return Confirm, nil
	}

	switch e.status {
	case StatusFree:
		return e.acceptRequest(pkt), nil
	case StatusCandidateStarting:
		// the starting segment is given up for the request
		e.clearLinks()
		e.resetCursor()
		verdict := e.acceptRequest(pkt)
		if verdict.Kind != VerdictSkip {
			return verdict, nil
		}
		// no link left to pass the request on
		e.logger.Warn("no free link after leaving candidate-starting, request cancelled",
			"node", e.id, "cycle", e.cycle, "segment", pkt.SegID)
		e.freeDirection(pkt.DirIn)
		e.generateCancel(pkt)
		return Cancel, nil
	case StatusActiveSearching, StatusReadySearching, StatusAssigned:
		e.commitLink(pkt.DirIn, pkt.SegID)
		e.requestPath = pkt.DirIn
		e.generateConfirm(pkt)
		return Confirm, nil
	case StatusCandidate:
		if e.segID != pkt.SegID || pkt.DirIn != e.requestPath {
			e.freeDirection(pkt.DirIn)
			e.generateCancel(pkt)
			return Cancel, nil
		}
		for d := North; d < NumDirections; d++ {
			if d != e.requestPath && e.linkTentative[d] == pkt.SegID {
				return Forward(d), nil
			}
		}
		return Discard, e.violation(pkt, "repeated request with no tentative link to resend on")
	}
	return Discard, e.violation(pkt, "segment request before the node has started")
}

// acceptRequest is the handling of a foreign request by a node in no segment
func (e *Engine) acceptRequest(pkt *Packet) Verdict {
	e.setVisited(pkt.DirIn, FreeSegmentID())
	e.setTentative(pkt.DirIn, pkt.SegID)

	d, res := e.NextFreeLink()
	switch res {
	case LinkFound:
		e.segID = pkt.SegID
		e.tvisited = true
		e.visited = false
		e.setTentative(d, pkt.SegID)
		e.requestPath = pkt.DirIn
		e.setStatus(StatusCandidate)
		return Forward(d)
	case LinkExhausted:
		e.freeDirection(pkt.DirIn)
		e.generateCancel(pkt)
		return Cancel
	}
	return Skip
}

func (e *Engine) segmentConfirm(pkt *Packet) (Verdict, error) {
	if pkt.Src == e.id && pkt.DirIn == Local {
		return Forward(pkt.DirOut), nil
	}
	if pkt.SegID.Node == e.id {
		e.commitLink(pkt.DirIn, pkt.SegID)
		e.resetCursor()
		e.assignTimestamp = e.cycle
		e.setStatus(StatusAssigned)
		return EndConfirm, nil
	}
	if e.status != StatusCandidate || e.segID != pkt.SegID {
		return Discard, e.violation(pkt, "segment confirm for a segment not held")
	}

	e.tvisited = false
	e.visited = true
	e.commitLink(pkt.DirIn, pkt.SegID)
	e.commitLink(e.requestPath, pkt.SegID)
	e.resetCursor()
	e.assignTimestamp = e.cycle
	e.setStatus(StatusAssigned)
	return Forward(e.requestPath), nil
}

func (e *Engine) segmentCancel(pkt *Packet) (Verdict, error) {
	if pkt.DirIn == Local {
		return Forward(pkt.DirOut), nil
	}
	originator := pkt.SegID.Node == e.id
	if !originator && e.status != StatusCandidate {
		return Discard, e.violation(pkt, "segment cancel at a node not holding the request")
	}

	if pkt.ttlExhausted() {
		e.freeDirection(pkt.DirIn)
		if originator {
			e.logger.Debug("segment request ran out of time-to-live", "node", e.id, "segment", pkt.SegID)
			return EndCancel, nil
		}
		return e.abandonRequest(), nil
	}

	d, res := e.NextFreeLink()
	switch res {
	case LinkFound:
		e.freeDirection(pkt.DirIn)
		req := Packet{Kind: SegmentRequest, Dst: pkt.Dst, DirIn: Local, DirOut: d, Timestamp: e.cycle}
		if originator {
			req.SegID = NewSegmentID(e.id, d)
			req.TTL = e.cfg.requestTTL()
		} else {
			req.SegID = pkt.SegID
			req.TTL = pkt.TTL
		}
		req.Src = req.SegID.Node
		e.setTentative(d, req.SegID)
		e.inject(req)
		return Retry, nil
	case LinkExhausted:
		e.freeDirection(pkt.DirIn)
		if originator {
			return EndCancel, nil
		}
		return e.abandonRequest(), nil
	}
	return Skip, nil
}

// abandonRequest gives up the held request and passes the cancellation upstream
func (e *Engine) abandonRequest() Verdict {
	upstream := e.requestPath
	e.freeDirection(upstream)
	e.tvisited = false
	e.segID = FreeSegmentID()
	e.requestPath = NoDirection
	e.setStatus(StatusFree)
	return Forward(upstream)
}
