package disrnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoord(t *testing.T) {
	c := CoordOf(7, 3)
	assert.Equal(t, Coord{X: 1, Y: 2}, c)
	assert.Equal(t, 7, c.ID(3))
}

func TestNeighborID(t *testing.T) {
	tests := []struct {
		id      int
		d       Direction
		nbr     int
		present bool
	}{
		{0, North, 0, false},
		{0, West, 0, false},
		{0, East, 1, true},
		{0, South, 3, true},
		{4, North, 1, true},
		{4, West, 3, true},
		{8, East, 8, false},
		{8, South, 8, false},
		{4, Local, 4, false},
	}
	for _, tt := range tests {
		nbr, present := NeighborID(tt.id, tt.d, 3, 3)
		assert.Equal(t, tt.present, present, "node %d dir %s", tt.id, tt.d)
		if tt.present {
			assert.Equal(t, tt.nbr, nbr, "node %d dir %s", tt.id, tt.d)
		}
	}
}

func TestRouteXY(t *testing.T) {
	cur := Coord{X: 1, Y: 1}
	assert.Equal(t, East, RouteXY(cur, Coord{X: 2, Y: 0}))
	assert.Equal(t, West, RouteXY(cur, Coord{X: 0, Y: 2}))
	assert.Equal(t, South, RouteXY(cur, Coord{X: 1, Y: 2}))
	assert.Equal(t, North, RouteXY(cur, Coord{X: 1, Y: 0}))
	assert.Equal(t, Local, RouteXY(cur, cur))
}

func TestLinkEnds(t *testing.T) {
	count := 0
	linkEnds(4, 3, func(id int, d Direction, nbr int) {
		count++
		assert.Contains(t, []Direction{East, South}, d)
		back, present := NeighborID(nbr, d.Opposite(), 4, 3)
		assert.True(t, present)
		assert.Equal(t, id, back)
	})
	assert.Equal(t, 3*3+4*2, count)
}

func TestHopDistances(t *testing.T) {
	nodes := stubMesh(3, 3)
	assert.Equal(t, []int{0, 1, 2, 1, 2, 3, 2, 3, 4}, HopDistances(3, 3, 0, views(nodes)))

	// cut node 4 out and close the route along the top row
	for _, d := range MeshDirections() {
		nodes[4].links[d] = UnusableSegmentID()
	}
	nodes[1].links[East] = UnusableSegmentID()
	dists := HopDistances(3, 3, 0, views(nodes))
	assert.Equal(t, 4, dists[8])
	assert.Equal(t, -1, dists[4])
	assert.Equal(t, 6, dists[2])
	assert.Equal(t, []int{0, 1, 2, 3, 5, 6, 7, 8}, ReachableFrom(3, 3, 0, views(nodes)))

	// one end marking a link unusable is enough
	nodes[5].links[North] = UnusableSegmentID()
	assert.Equal(t, -1, HopDistances(3, 3, 0, views(nodes))[2])
	assert.Equal(t, []int{0, 1, 3, 5, 6, 7, 8}, ReachableFrom(3, 3, 0, views(nodes)))
}
