package disrnet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDOT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, 2, 2, 0, views(pairMesh())))
	out := buf.String()

	assert.Contains(t, out, "graph_2x2_b0")
	assert.Contains(t, out, "0 -- 1")
	assert.Contains(t, out, "0 -- 2")
	assert.NotContains(t, out, "1 -- 3")
	assert.NotContains(t, out, "2 -- 3")
	assert.Contains(t, out, "color=red")
	assert.Contains(t, out, "0.1")
	assert.Contains(t, out, "style=dotted")
	assert.Contains(t, out, "style=filled")
	assert.Contains(t, out, "shape=square")
}

func TestDOTFileName(t *testing.T) {
	assert.Equal(t, "graph_8x4_b3.gv", DOTFileName(8, 4, 3))
}
