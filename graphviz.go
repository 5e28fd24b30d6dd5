package disrnet

// graphviz.go renders the segments of a mesh in DOT form

import (
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

type dotNode struct {
	id    int64
	attrs []encoding.Attribute
}

func (n dotNode) ID() int64 {
	return n.id
}

func (n dotNode) DOTID() string {
	return strconv.FormatInt(n.id, 10)
}

func (n dotNode) Attributes() []encoding.Attribute {
	return n.attrs
}

type dotEdge struct {
	f, t  dotNode
	attrs []encoding.Attribute
}

func (e dotEdge) From() graph.Node {
	return e.f
}

func (e dotEdge) To() graph.Node {
	return e.t
}

func (e dotEdge) ReversedEdge() graph.Edge {
	return dotEdge{f: e.t, t: e.f, attrs: e.attrs}
}

func (e dotEdge) Attributes() []encoding.Attribute {
	return e.attrs
}

// DOTFileName is the conventional name of the rendering of a run
func DOTFileName(width, height, bootstrap int) string {
	return fmt.Sprintf("graph_%dx%d_b%d.gv", width, height, bootstrap)
}

// WriteDOT draws the mesh: assigned nodes as circles (the bootstrap node
// filled), other nodes as squares, covered links red and labelled with their
// segment, other working links dotted.  Unusable links are left out.
func WriteDOT(w io.Writer, width, height, bootstrap int, nodes []NodeView) error {
	g := simple.NewUndirectedGraph()
	dotNodes := make([]dotNode, len(nodes))
	for id, node := range nodes {
		dn := dotNode{id: int64(id)}
		switch {
		case node.IsAssigned() && id == bootstrap:
			dn.attrs = []encoding.Attribute{{Key: "shape", Value: "circle"}, {Key: "style", Value: "filled"}}
		case node.IsAssigned():
			dn.attrs = []encoding.Attribute{{Key: "shape", Value: "circle"}}
		default:
			dn.attrs = []encoding.Attribute{{Key: "shape", Value: "square"}}
		}
		dotNodes[id] = dn
		g.AddNode(dn)
	}

	linkEnds(width, height, func(id int, d Direction, nbr int) {
		sid := nodes[id].LinkSegmentID(d)
		if !sid.IsValid() || !nodes[nbr].LinkSegmentID(d.Opposite()).IsValid() {
			return
		}
		edge := dotEdge{f: dotNodes[id], t: dotNodes[nbr]}
		if sid.IsAssigned() {
			edge.attrs = []encoding.Attribute{
				{Key: "color", Value: "red"},
				{Key: "style", Value: "bold"},
				{Key: "label", Value: strconv.Quote(fmt.Sprintf("%d.%d", sid.Node, int(sid.Link)))},
			}
		} else {
			edge.attrs = []encoding.Attribute{{Key: "style", Value: "dotted"}}
		}
		g.SetEdge(edge)
	})

	name := fmt.Sprintf("graph_%dx%d_b%d", width, height, bootstrap)
	bytes, err := dot.Marshal(g, name, "", "\t")
	if err != nil {
		return err
	}
	_, err = w.Write(bytes)
	return err
}
