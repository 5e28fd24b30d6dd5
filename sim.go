package disrnet

// sim.go drives a mesh through discrete clock cycles.  Every cycle is one
// event on an evtm event manager; its handler runs the receive phase of every
// node, then the processing elements, then the transmit phase of every node,
// publishes the channel writes, and schedules the next cycle.

import (
	"log/slog"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// cyclePeriod is the simulated time between two clock edges
const cyclePeriod = 1.0

// minStableWindow is the number of quiet cycles after which segment
// construction is considered finished
const minStableWindow = 64

// Simulator runs one Mesh.
type Simulator struct {
	mesh    *Mesh
	cfg     *Config
	logger  *slog.Logger
	metrics *Metrics

	evtMgr *evtm.EventManager

	cycle      int64
	lastChange int64
	statuses   []Status

	violations int64
	err        error
}

// NewSimulator is a constructor.  metrics may be nil.
func NewSimulator(mesh *Mesh, logger *slog.Logger, metrics *Metrics) *Simulator {
	sim := new(Simulator)
	sim.mesh = mesh
	sim.cfg = mesh.Config()
	sim.logger = orDiscard(logger)
	sim.metrics = metrics
	sim.statuses = make([]Status, len(mesh.Routers))
	for id, router := range mesh.Routers {
		sim.statuses[id] = router.Engine().Status()
	}
	return sim
}

// Cycle is the number of cycles run so far
func (sim *Simulator) Cycle() int64 {
	return sim.cycle
}

// Run schedules the first cycle and lets the event manager run until the
// configured length, a halting protocol violation, or, when asked for,
// until segment construction has settled.
func (sim *Simulator) Run() (*Report, error) {
	sim.evtMgr = evtm.New()
	sim.evtMgr.Schedule(sim, nil, cycleHandler, vrtime.SecondsToTime(0.0))
	sim.evtMgr.Run(float64(sim.cfg.SimCycles+1) * cyclePeriod)

	rpt := sim.Report()
	if sim.err != nil {
		sim.logger.Error("simulation halted", "cycle", sim.cycle, "err", sim.err)
	} else {
		sim.logger.Info("simulation finished", "cycles", sim.cycle,
			"node_coverage", rpt.NodeCoverage, "link_coverage", rpt.LinkCoverage, "segments", rpt.Segments)
	}
	return rpt, sim.err
}

// cycleHandler is the event handler of a clock edge
func cycleHandler(evtMgr *evtm.EventManager, context any, data any) any {
	sim := context.(*Simulator)
	if err := sim.Step(); err != nil {
		return nil
	}
	if sim.done() {
		return nil
	}
	evtMgr.Schedule(sim, nil, cycleHandler, vrtime.SecondsToTime(cyclePeriod))
	return nil
}

// Step runs a single cycle of every node
func (sim *Simulator) Step() error {
	cycle := sim.cycle
	for _, router := range sim.mesh.Routers {
		router.RxProcess(cycle)
	}
	for _, pe := range sim.mesh.PEs {
		pe.RxProcess(cycle)
		pe.TxProcess(cycle)
	}
	for _, router := range sim.mesh.Routers {
		if err := router.TxProcess(cycle); err != nil {
			sim.violations++
			sim.err = err
			sim.cycle++
			return err
		}
	}
	sim.mesh.Commit()
	sim.observe(cycle)
	sim.cycle++
	return nil
}

// observe notes the last cycle in which anything moved
func (sim *Simulator) observe(cycle int64) {
	assigned := 0
	for id, router := range sim.mesh.Routers {
		st := router.Engine().Status()
		if st != sim.statuses[id] {
			sim.statuses[id] = st
			sim.lastChange = cycle
		}
		if router.IsAssigned() {
			assigned++
		}
	}
	if !sim.mesh.Idle() {
		sim.lastChange = cycle
	}
	sim.metrics.tick(assigned)
}

func (sim *Simulator) stableWindow() int64 {
	window := int64(minStableWindow)
	if int64(sim.cfg.BootstrapTimeout) >= window {
		window = int64(sim.cfg.BootstrapTimeout) + 1
	}
	return window
}

func (sim *Simulator) done() bool {
	if sim.cycle >= sim.cfg.SimCycles {
		return true
	}
	return sim.cfg.StopWhenStable && sim.cfg.DiSR && sim.cycle-sim.lastChange > sim.stableWindow()
}

// Report computes the coverage of the current state and adds the run and
// traffic figures
func (sim *Simulator) Report() *Report {
	cfg := sim.cfg
	rpt := ComputeReport(cfg.MeshWidth, cfg.MeshHeight, cfg.Bootstrap, sim.mesh.Nodes())
	rpt.ExpName = cfg.ExpName
	rpt.Cycles = sim.cycle
	rpt.Violations = sim.violations

	delays := []float64{}
	hops := []float64{}
	for id, pe := range sim.mesh.PEs {
		rpt.Drops += sim.mesh.Routers[id].Drops()
		rpt.Violations += sim.mesh.Routers[id].Violations()
		rpt.Generated += pe.Generated()
		rpt.Received += pe.Received()
		delays = append(delays, pe.delays...)
		hops = append(hops, pe.hops...)
	}
	if len(delays) > 0 {
		rpt.AvgDelay = stat.Mean(delays, nil)
		rpt.MaxDelay = floats.Max(delays)
		rpt.AvgHops = stat.Mean(hops, nil)
	}
	return rpt
}
