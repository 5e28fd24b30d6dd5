package disrnet

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disrConfig(width, height int) *Config {
	cfg := DefaultConfig()
	cfg.MeshWidth = width
	cfg.MeshHeight = height
	cfg.Debug = true
	cfg.SimCycles = 2000
	cfg.ResetCycles = 0
	return cfg
}

func TestSimulator_TwoByTwoRing(t *testing.T) {
	cfg := disrConfig(2, 2)
	cfg.CycleLinks = 0
	cfg.SimCycles = 500
	mesh, metrics := buildTestMesh(t, cfg)

	rpt, err := NewSimulator(mesh, nil, metrics).Run()
	require.NoError(t, err)

	sid := NewSegmentID(0, East)
	for id, r := range mesh.Routers {
		assert.True(t, r.IsAssigned(), "node %d", id)
		assert.Equal(t, StatusAssigned, r.Engine().Status(), "node %d", id)
		assert.Equal(t, sid, r.LocalSegmentID(), "node %d", id)
	}
	// the ring enters node 0 from node 2
	assert.Equal(t, sid, mesh.Routers[0].LinkSegmentID(South))
	assert.Equal(t, sid, mesh.Routers[2].LinkSegmentID(North))

	assert.Equal(t, 1.0, rpt.NodeCoverage)
	assert.Equal(t, 1.0, rpt.LinkCoverage)
	assert.Equal(t, 1, rpt.Segments)
	assert.Equal(t, 4.0, rpt.AvgSegmentLength)
	assert.Equal(t, 1, rpt.CoveredComponents)
	assert.Equal(t, 2, rpt.MaxReach)
	assert.Equal(t, 1.0, rpt.AvgReach)
	assert.Equal(t, int64(0), rpt.Violations)
	assert.Positive(t, rpt.Latency)
	assert.Less(t, rpt.Cycles, cfg.SimCycles)
	assert.True(t, mesh.Idle())
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.AssignedNodes))
	assert.Equal(t, float64(rpt.Cycles), testutil.ToFloat64(metrics.Cycles))
}

func TestSimulator_ThreeByThreeFromCorner(t *testing.T) {
	cfg := disrConfig(3, 3)
	mesh, _ := buildTestMesh(t, cfg)

	rpt, err := NewSimulator(mesh, nil, nil).Run()
	require.NoError(t, err)
	assert.Equal(t, int64(0), rpt.Violations)

	boot := mesh.Routers[cfg.Bootstrap]
	require.True(t, boot.IsAssigned())
	for _, d := range MeshDirections() {
		sid := boot.LinkSegmentID(d)
		if !sid.IsAssigned() {
			continue
		}
		nbr, present := NeighborID(cfg.Bootstrap, d, cfg.MeshWidth, cfg.MeshHeight)
		require.True(t, present)
		assert.True(t, mesh.Routers[nbr].IsAssigned(), "neighbor %d", nbr)
		assert.Equal(t, sid, mesh.Routers[nbr].LinkSegmentID(d.Opposite()), "neighbor %d", nbr)
	}
	for id, r := range mesh.Routers {
		assert.NoError(t, r.Engine().CheckInvariants(), "node %d", id)
	}
	assert.True(t, mesh.Routers[0].Table().IsUnusable(North))
	assert.False(t, mesh.Routers[0].LinkSegmentID(West).IsValid())
}

func TestSimulator_IsolatedBootstrap(t *testing.T) {
	cfg := disrConfig(2, 2)
	cfg.SimCycles = 200
	mesh, metrics := buildTestMesh(t, cfg)
	mesh.InvalidateDirection(0, East)
	mesh.InvalidateDirection(0, South)

	rpt, err := NewSimulator(mesh, nil, metrics).Run()
	require.NoError(t, err)

	assert.Equal(t, StatusBootstrap, mesh.Routers[0].Engine().Status())
	for id := 1; id < 4; id++ {
		assert.Equal(t, StatusFree, mesh.Routers[id].Engine().Status(), "node %d", id)
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PacketsForwarded.WithLabelValues("starting-segment-request")))
	assert.Equal(t, 0, rpt.CoveredNodes)
	assert.Equal(t, 1, rpt.DefectiveNodes)
	assert.Equal(t, 1, rpt.ReachableNodes)
	assert.Equal(t, 2, rpt.DefectiveLinks)
}

func TestSimulator_HaltsOnViolation(t *testing.T) {
	cfg := disrConfig(2, 2)
	mesh, _ := buildTestMesh(t, cfg)
	mesh.Routers[1].Queue(West).Push(Packet{Kind: SegmentConfirm, SegID: NewSegmentID(2, East), Src: 0, Dst: noNode})

	sim := NewSimulator(mesh, nil, nil)
	rpt, err := sim.Run()
	var pv *ProtocolViolation
	require.True(t, errors.As(err, &pv))
	assert.Equal(t, 1, pv.Node)
	assert.Equal(t, int64(1), sim.Cycle())
	assert.Equal(t, int64(1), rpt.Violations)
}

func TestSimulator_XYTraffic(t *testing.T) {
	cfg := trafficConfig(3, 3)
	cfg.PacketRate = 0.05
	cfg.SimCycles = 3000
	cfg.ResetCycles = 100
	mesh, _ := buildTestMesh(t, cfg)

	rpt, err := NewSimulator(mesh, nil, nil).Run()
	require.NoError(t, err)

	assert.Equal(t, cfg.SimCycles, rpt.Cycles)
	assert.Positive(t, rpt.Generated)
	assert.Positive(t, rpt.Received)
	assert.LessOrEqual(t, rpt.Received, rpt.Generated)
	assert.GreaterOrEqual(t, rpt.AvgHops, 1.0)
	assert.LessOrEqual(t, rpt.AvgHops, 4.0)
	assert.GreaterOrEqual(t, rpt.MaxDelay, rpt.AvgDelay)
	assert.Equal(t, 0, rpt.CoveredNodes)
	for id, r := range mesh.Routers {
		assert.Equal(t, int64(0), r.Violations(), "node %d", id)
	}
}

func TestSimulator_TrafficFollowsSeed(t *testing.T) {
	run := func(seed uint64) []int64 {
		cfg := trafficConfig(3, 3)
		cfg.PacketRate = 0.05
		cfg.SimCycles = 1000
		cfg.ResetCycles = 100
		cfg.Seed = seed
		mesh, _ := buildTestMesh(t, cfg)
		rpt, err := NewSimulator(mesh, nil, nil).Run()
		require.NoError(t, err)
		counts := []int64{rpt.Received}
		for _, pe := range mesh.PEs {
			counts = append(counts, pe.Generated())
		}
		return counts
	}

	first := run(5)
	if diff := cmp.Diff(first, run(5)); diff != "" {
		t.Errorf("same seed, different traffic (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first, run(6))
}

func TestSimulator_SegmentIDsStayOnceAssigned(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		bootstrap  int
		linkProb   float64
		seed       uint64
		ringCloses bool
	}{
		{"3x3 from the corner", 3, 3, 0, 0, 1, true},
		{"4x4 from the center", 4, 4, 5, 0, 1, true},
		{"5x5 from the corner", 5, 5, 0, 0, 1, true},
		{"4x4 defective links seed 3", 4, 4, 0, 0.15, 3, false},
		{"4x4 defective links seed 11", 4, 4, 0, 0.15, 11, false},
		{"5x5 defective links seed 21", 5, 5, 12, 0.1, 21, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := disrConfig(tt.width, tt.height)
			cfg.Bootstrap = tt.bootstrap
			cfg.DefectiveLinkProb = tt.linkProb
			cfg.Seed = tt.seed
			cfg.BootstrapTimeout = 200
			cfg.TTL = 8
			cfg.SimCycles = 1500
			cfg.HaltOnViolation = false
			mesh, _ := buildTestMesh(t, cfg)
			sim := NewSimulator(mesh, nil, nil)

			first := make(map[int]SegmentID)
			for cycle := int64(0); cycle < cfg.SimCycles; cycle++ {
				require.NoError(t, sim.Step())
				for id, r := range mesh.Routers {
					if sid, seen := first[id]; seen {
						require.Equal(t, sid, r.LocalSegmentID(), "node %d cycle %d", id, cycle)
					} else if r.Engine().Status() == StatusAssigned {
						first[id] = r.LocalSegmentID()
					}
				}
			}
			if tt.ringCloses {
				assert.Contains(t, first, cfg.Bootstrap)
			}

			mesh.Reset()
			for id := range first {
				assert.False(t, mesh.Routers[id].IsAssigned(), "node %d", id)
			}
		})
	}
}

func TestSimulator_StepWithoutRun(t *testing.T) {
	cfg := disrConfig(2, 2)
	mesh, _ := buildTestMesh(t, cfg)
	sim := NewSimulator(mesh, nil, nil)

	require.NoError(t, sim.Step())
	assert.Equal(t, StatusCandidateStarting, mesh.Routers[0].Engine().Status())
	assert.False(t, mesh.Idle())
	for cycle := 1; cycle < 40; cycle++ {
		require.NoError(t, sim.Step())
	}
	assert.Equal(t, int64(40), sim.Cycle())
	assert.Equal(t, 1.0, sim.Report().NodeCoverage)

	mesh.Reset()
	assert.True(t, mesh.Idle())
	assert.Equal(t, StatusBootstrap, mesh.Routers[0].Engine().Status())
	assert.False(t, mesh.Routers[3].IsAssigned())
}
