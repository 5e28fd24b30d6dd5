package disrnet

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestMesh(t *testing.T, cfg *Config) (*Mesh, *Metrics) {
	t.Helper()
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	mesh, err := BuildMesh(cfg, nil, nil, metrics)
	require.NoError(t, err)
	return mesh, metrics
}

func trafficConfig(width, height int) *Config {
	cfg := DefaultConfig()
	cfg.MeshWidth = width
	cfg.MeshHeight = height
	cfg.DiSR = false
	cfg.Debug = true
	return cfg
}

func TestRouter_InjectDropsOnFullQueue(t *testing.T) {
	cfg := trafficConfig(2, 2)
	cfg.BufferDepth = 1
	mesh, metrics := buildTestMesh(t, cfg)
	r := mesh.Routers[0]

	assert.Equal(t, Accepted, r.InjectToNetwork(dataTo(1)))
	assert.Equal(t, Dropped, r.InjectToNetwork(dataTo(2)))
	assert.Equal(t, 1, r.Queue(Local).Len())
	assert.Equal(t, int64(1), r.Drops())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PacketsDropped.WithLabelValues("data", "inject")))
}

func TestRouter_FloodFansOut(t *testing.T) {
	cfg := engineConfig()
	mesh, metrics := buildTestMesh(t, cfg)
	r := mesh.Routers[4]
	sid := NewSegmentID(3, East)

	require.Equal(t, Accepted, r.Queue(West).Push(Packet{Kind: StartingSegmentRequest, SegID: sid, Src: 3, Dst: noNode}))
	require.NoError(t, r.TxProcess(0))

	assert.True(t, r.Queue(West).IsEmpty())
	for out := North; out < NumPorts; out++ {
		assert.True(t, r.Table().IsAvailable(out), "output %s", out)
	}
	assert.Equal(t, StatusCandidateStarting, r.Engine().Status())
	for _, d := range MeshDirections() {
		assert.Equal(t, sid, r.Engine().TentativeSegmentID(d), "link %s", d)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.PacketsForwarded.WithLabelValues("starting-segment-request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Verdicts.WithLabelValues("flood")))

	// nothing is visible downstream before the cycle is committed
	assert.False(t, mesh.Routers[1].rx[South].Req())
	mesh.Commit()
	assert.True(t, mesh.Routers[1].rx[South].Req())
	assert.True(t, mesh.Routers[5].rx[West].Req())
	assert.True(t, mesh.Routers[7].rx[North].Req())
	assert.False(t, mesh.Routers[3].rx[East].Req())
	assert.Equal(t, sid, mesh.Routers[5].rx[West].Packet().SegID)
}

func TestRouter_FloodAtCornerExcludesEdges(t *testing.T) {
	mesh, _ := buildTestMesh(t, engineConfig())
	r := mesh.Routers[2]
	sid := NewSegmentID(1, East)

	r.Queue(West).Push(Packet{Kind: StartingSegmentRequest, SegID: sid, Src: 1, Dst: noNode})
	require.NoError(t, r.TxProcess(0))
	mesh.Commit()

	assert.True(t, mesh.Routers[5].rx[North].Req())
	assert.Equal(t, sid, r.Engine().TentativeSegmentID(South))
	assert.False(t, r.Engine().TentativeSegmentID(East).IsValid())
	assert.False(t, r.Engine().TentativeSegmentID(North).IsValid())
}

func TestRouter_HandshakeBackpressure(t *testing.T) {
	mesh, _ := buildTestMesh(t, trafficConfig(2, 2))
	r0, r1 := mesh.Routers[0], mesh.Routers[1]

	r0.InjectToNetwork(dataTo(1))
	r0.InjectToNetwork(dataTo(1))
	require.NoError(t, r0.TxProcess(0))
	assert.Equal(t, 1, r0.Queue(Local).Len())
	assert.Equal(t, North, r0.startFromPort)

	// the first transfer is not acknowledged yet
	require.NoError(t, r0.TxProcess(1))
	assert.Equal(t, 1, r0.Queue(Local).Len())
	holder, granted := r0.Table().Holder(East)
	require.True(t, granted)
	assert.Equal(t, Local, holder)

	mesh.Commit()
	r1.RxProcess(2)
	mesh.Commit()
	require.Equal(t, 1, r1.Queue(West).Len())
	assert.Equal(t, 1, r1.Queue(West).Front().Hops)

	require.NoError(t, r0.TxProcess(3))
	assert.True(t, r0.Queue(Local).IsEmpty())
	assert.True(t, r0.Table().IsAvailable(East))
}

func TestRouter_XYOntoUnusableLinkDrops(t *testing.T) {
	mesh, metrics := buildTestMesh(t, trafficConfig(2, 2))
	mesh.InvalidateDirection(0, East)
	r := mesh.Routers[0]

	r.InjectToNetwork(dataTo(1))
	require.NoError(t, r.TxProcess(0))
	assert.True(t, r.Queue(Local).IsEmpty())
	assert.Equal(t, int64(1), r.Drops())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PacketsDropped.WithLabelValues("data", "unusable")))
	assert.True(t, mesh.Routers[1].Table().IsUnusable(West))
}

func TestRouter_ViolationHandling(t *testing.T) {
	bogus := Packet{Kind: SegmentConfirm, SegID: NewSegmentID(2, East), Src: 0, Dst: noNode}

	t.Run("halt", func(t *testing.T) {
		cfg := engineConfig()
		mesh, metrics := buildTestMesh(t, cfg)
		r := mesh.Routers[1]
		r.Queue(West).Push(bogus)

		err := r.TxProcess(0)
		var pv *ProtocolViolation
		require.True(t, errors.As(err, &pv))
		assert.Equal(t, 1, pv.Node)
		assert.Equal(t, West, pv.DirIn)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Violations))
	})

	t.Run("keep going", func(t *testing.T) {
		cfg := engineConfig()
		cfg.HaltOnViolation = false
		mesh, _ := buildTestMesh(t, cfg)
		r := mesh.Routers[1]
		r.Queue(West).Push(bogus)

		require.NoError(t, r.TxProcess(0))
		assert.Equal(t, int64(1), r.Violations())
		assert.True(t, r.Queue(West).IsEmpty())
		assert.Equal(t, StatusFree, r.Engine().Status())
	})
}

func TestRouter_ResetKeepsUnusablePorts(t *testing.T) {
	mesh, _ := buildTestMesh(t, engineConfig())
	r := mesh.Routers[0]
	r.InjectToNetwork(dataTo(3))
	r.Reset()

	assert.True(t, r.Queue(Local).IsEmpty())
	assert.True(t, r.Table().IsUnusable(North))
	assert.True(t, r.Table().IsUnusable(West))
	assert.True(t, r.Table().IsAvailable(East))
	assert.Equal(t, StatusBootstrap, r.Engine().Status())
	assert.Equal(t, int64(0), r.Drops())
}
