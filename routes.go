package disrnet

// routes.go provides the mesh geometry, the dimension-order fallback route for
// traffic packets, and a gonum graph of the working links used to find which
// nodes segment construction can reach at all.

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Coord places a node in the mesh.  Row 0 is the north edge.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// CoordOf maps a node id to its position, ids run row by row
func CoordOf(id, width int) Coord {
	return Coord{X: id % width, Y: id / width}
}

// ID maps a position back to its node id
func (c Coord) ID(width int) int {
	return c.Y*width + c.X
}

// NeighborID returns the node across the link in direction d, and false at
// the edge of the mesh
func NeighborID(id int, d Direction, width, height int) (int, bool) {
	c := CoordOf(id, width)
	switch d {
	case North:
		c.Y--
	case South:
		c.Y++
	case East:
		c.X++
	case West:
		c.X--
	default:
		return id, false
	}
	if c.X < 0 || c.X >= width || c.Y < 0 || c.Y >= height {
		return id, false
	}
	return c.ID(width), true
}

// RouteXY is dimension-order routing: first along x, then along y
func RouteXY(cur, dst Coord) Direction {
	switch {
	case dst.X > cur.X:
		return East
	case dst.X < cur.X:
		return West
	case dst.Y > cur.Y:
		return South
	case dst.Y < cur.Y:
		return North
	}
	return Local
}

// NodeView is the read-only face a node shows the statistics and rendering code
type NodeView interface {
	IsAssigned() bool
	LocalSegmentID() SegmentID
	LinkSegmentID(d Direction) SegmentID
	AssignTimestamp() int64
}

// linkEnds calls visit once for every internal link of the mesh, naming the
// node on its west or north end and the direction from there
func linkEnds(width, height int, visit func(id int, d Direction, nbr int)) {
	for id := 0; id < width*height; id++ {
		for _, d := range []Direction{East, South} {
			nbr, present := NeighborID(id, d, width, height)
			if present {
				visit(id, d, nbr)
			}
		}
	}
}

// buildHopGraph returns a graph whose edges are the links neither end has
// marked unusable, each weighted 1
func buildHopGraph(width, height int, nodes []NodeView) graph.Graph {
	hopGraph := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for id := range nodes {
		hopGraph.AddNode(simple.Node(id))
	}
	linkEnds(width, height, func(id int, d Direction, nbr int) {
		if !nodes[id].LinkSegmentID(d).IsValid() || !nodes[nbr].LinkSegmentID(d.Opposite()).IsValid() {
			return
		}
		hopGraph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(id), T: simple.Node(nbr), W: 1.0})
	})
	return hopGraph
}

// ReachableFrom lists, in id order, the nodes joined to from by working links.
// No segment can ever reach a node missing from this list.
func ReachableFrom(width, height, from int, nodes []NodeView) []int {
	reached := []int{}
	for id, dist := range HopDistances(width, height, from, nodes) {
		if dist >= 0 {
			reached = append(reached, id)
		}
	}
	return reached
}

// HopDistances gives, for every node, the number of working links on a
// shortest path from the node from, -1 when the two are disconnected
func HopDistances(width, height, from int, nodes []NodeView) []int {
	hopGraph := buildHopGraph(width, height, nodes)
	spTree := path.DijkstraFrom(simple.Node(from), hopGraph)
	dists := make([]int, len(nodes))
	for id := range nodes {
		weight := spTree.WeightTo(int64(id))
		if math.IsInf(weight, 1) {
			dists[id] = -1
			continue
		}
		dists[id] = int(weight)
	}
	return dists
}
