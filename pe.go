package disrnet

// pe.go holds the processing element attached to the local port of every
// router.  It sinks whatever the router delivers locally and, when the mesh
// carries plain traffic instead of segment construction, injects packets to
// uniformly chosen destinations.

import (
	"fmt"

	"github.com/iti/rngstream"
)

// ProcessingElement is the traffic endpoint of one node.
type ProcessingElement struct {
	id     int
	cfg    *Config
	router *Router

	rx      *Channel
	levelRx bool

	// every device has its own random number stream
	Rngstrm *rngstream.RngStream

	generated int64
	received  int64
	delays    []float64
	hops      []float64
}

// CreateProcessingElement is a constructor; rx is the router's local output
func CreateProcessingElement(id int, cfg *Config, router *Router, rx *Channel) *ProcessingElement {
	pe := new(ProcessingElement)
	pe.id = id
	pe.cfg = cfg
	pe.router = router
	pe.rx = rx
	pe.Rngstrm = rngstream.New(fmt.Sprintf("pe-%d", id))
	pe.delays = []float64{}
	pe.hops = []float64{}
	return pe
}

// RxProcess acknowledges the router's local output and records traffic
// packets that arrive after the warm-up
func (pe *ProcessingElement) RxProcess(cycle int64) {
	if pe.rx.Req() != pe.levelRx {
		pkt := pe.rx.Packet()
		pe.levelRx = !pe.levelRx
		if pkt.Kind == DataPacket && cycle >= pe.cfg.ResetCycles {
			pe.received++
			pe.delays = append(pe.delays, float64(cycle-pkt.Timestamp))
			pe.hops = append(pe.hops, float64(pkt.Hops))
		}
	}
	pe.rx.Acknowledge(pe.levelRx)
}

// TxProcess may inject one traffic packet; segment construction runs silent
func (pe *ProcessingElement) TxProcess(cycle int64) {
	if pe.cfg.DiSR || pe.cfg.PacketRate <= 0 {
		return
	}
	if pe.Rngstrm.RandU01() >= pe.cfg.PacketRate {
		return
	}
	pkt := Packet{SegID: FreeSegmentID(), Src: pe.id, Dst: pe.randomDst(), Kind: DataPacket,
		DirIn: Local, DirOut: NoDirection, TTL: unlimitedTTL, Timestamp: cycle}
	pe.generated++
	pe.router.InjectToNetwork(pkt)
}

// randomDst draws a destination other than the element's own node
func (pe *ProcessingElement) randomDst() int {
	others := pe.cfg.NumNodes() - 1
	dst := pe.Rngstrm.RandInt(0, others-1)
	if dst > others-1 {
		dst = others - 1
	}
	if dst >= pe.id {
		dst++
	}
	return dst
}

// Generated counts the packets the element tried to inject
func (pe *ProcessingElement) Generated() int64 {
	return pe.generated
}

// Received counts the traffic packets delivered after the warm-up
func (pe *ProcessingElement) Received() int64 {
	return pe.received
}

func (pe *ProcessingElement) reset() {
	pe.levelRx = false
	pe.generated = 0
	pe.received = 0
	pe.delays = pe.delays[:0]
	pe.hops = pe.hops[:0]
}
