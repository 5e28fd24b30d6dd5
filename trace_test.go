package disrnet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTraceManager_RecordsRun(t *testing.T) {
	cfg := disrConfig(2, 2)
	tm := CreateTraceManager("ring", true)
	mesh, err := BuildMesh(cfg, nil, tm, nil)
	require.NoError(t, err)
	_, err = NewSimulator(mesh, nil, nil).Run()
	require.NoError(t, err)

	require.Positive(t, tm.Len())
	assert.Len(t, tm.NameByID, 4)
	assert.Equal(t, "node-3(1,1)", tm.NameByID[3].Name)
	assert.Contains(t, tm.Traces[0][0].TraceStr, "op: inject")
	assert.Contains(t, tm.Traces[0][0].TraceStr, "kind: starting-segment-request")

	consumed := 0
	for _, traces := range tm.Traces {
		for _, trace := range traces {
			var ntr NetTrace
			require.NoError(t, yaml.Unmarshal([]byte(trace.TraceStr), &ntr))
			switch ntr.Op {
			case "inject", "drop", "recv", "send":
			default:
				consumed++
			}
		}
	}
	assert.Positive(t, consumed)

	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, tm.WriteToFile(path, true))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded TraceManager
	require.NoError(t, json.Unmarshal(raw, &loaded))
	assert.Equal(t, "ring", loaded.ExpName)
	require.Len(t, loaded.Traces, 1)
	merged := loaded.Traces[0]
	assert.Len(t, merged, tm.Len())
	for idx := 1; idx < len(merged); idx++ {
		assert.LessOrEqual(t, merged[idx-1].Cycle, merged[idx].Cycle)
	}
}

func TestTraceManager_Inactive(t *testing.T) {
	tm := CreateTraceManager("quiet", false)
	AddNetTrace(tm, 3, 0, &Packet{Kind: DataPacket}, "send")
	tm.AddName(0, "node-0", "router")
	tm.AddName(0, "node-0", "router")
	assert.Equal(t, 0, tm.Len())

	path := filepath.Join(t.TempDir(), "trace.yaml")
	require.NoError(t, tm.WriteToFile(path, false))
	assert.NoFileExists(t, path)

	var nilMgr *TraceManager
	assert.False(t, nilMgr.Active())
	assert.NotPanics(t, func() { AddNetTrace(nilMgr, 0, 0, &Packet{}, "recv") })
}

func TestTraceManager_DuplicateName(t *testing.T) {
	tm := CreateTraceManager("dup", true)
	tm.AddName(1, "node-1", "router")
	assert.Panics(t, func() { tm.AddName(1, "node-1", "router") })
}
