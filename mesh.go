package disrnet

// mesh.go builds the simulated fabric: one router and one processing element
// per node, a channel pair on every internal link and on every local port,
// and the permanent invalidation of the directions that leave the mesh.

import (
	"fmt"
	"log/slog"

	"github.com/iti/rngstream"
)

// LinkRef names a link by the node on one end and the direction leaving it
type LinkRef struct {
	Node int       `json:"node" yaml:"node"`
	Dir  Direction `json:"dir" yaml:"dir"`
}

// Mesh is a width x height grid of nodes.
type Mesh struct {
	cfg    *Config
	logger *slog.Logger

	Routers []*Router
	PEs     []*ProcessingElement

	channels []*Channel

	DefectiveNodes []int
	DefectiveLinks []LinkRef
}

// BuildMesh validates cfg and constructs the fabric it describes, defects
// included.  tm and metrics may be nil.
//
// The package random number generator is reseeded from cfg.Seed, so the
// defects and the traffic of every processing element repeat for a given
// seed.  Meshes must therefore be built one at a time.
func BuildMesh(cfg *Config, logger *slog.Logger, tm *TraceManager, metrics *Metrics) (*Mesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rngstream.SetRngStreamMasterSeed(cfg.Seed)
	defectRng := rngstream.New("defects")

	mesh := new(Mesh)
	mesh.cfg = cfg
	mesh.logger = orDiscard(logger)
	mesh.DefectiveNodes = []int{}
	mesh.DefectiveLinks = []LinkRef{}

	numNodes := cfg.NumNodes()
	mesh.Routers = make([]*Router, numNodes)
	mesh.PEs = make([]*ProcessingElement, numNodes)
	for id := 0; id < numNodes; id++ {
		router := CreateRouter(id, cfg, mesh.logger, tm, metrics)
		toPE := mesh.newChannel()
		router.Connect(Local, nil, toPE)
		mesh.Routers[id] = router
		mesh.PEs[id] = CreateProcessingElement(id, cfg, router, toPE)

		c := router.Coord()
		if tm != nil {
			tm.AddName(id, fmt.Sprintf("node-%d(%d,%d)", id, c.X, c.Y), "router")
		}
	}

	linkEnds(cfg.MeshWidth, cfg.MeshHeight, func(id int, d Direction, nbr int) {
		out := mesh.newChannel()
		back := mesh.newChannel()
		mesh.Routers[id].Connect(d, back, out)
		mesh.Routers[nbr].Connect(d.Opposite(), out, back)
	})

	for id := 0; id < numNodes; id++ {
		for _, d := range MeshDirections() {
			if _, present := NeighborID(id, d, cfg.MeshWidth, cfg.MeshHeight); !present {
				mesh.Routers[id].Invalidate(d)
			}
		}
	}

	mesh.injectDefects(defectRng)
	mesh.logger.Info("mesh built", "width", cfg.MeshWidth, "height", cfg.MeshHeight,
		"defective_nodes", len(mesh.DefectiveNodes), "defective_links", len(mesh.DefectiveLinks))
	return mesh, nil
}

func (mesh *Mesh) newChannel() *Channel {
	ch := CreateChannel()
	mesh.channels = append(mesh.channels, ch)
	return ch
}

// Config returns the configuration the mesh was built from
func (mesh *Mesh) Config() *Config {
	return mesh.cfg
}

// InvalidateDirection marks the link leaving node in direction d unusable at
// both of its ends
func (mesh *Mesh) InvalidateDirection(node int, d Direction) {
	mesh.Routers[node].Invalidate(d)
	nbr, present := NeighborID(node, d, mesh.cfg.MeshWidth, mesh.cfg.MeshHeight)
	if present {
		mesh.Routers[nbr].Invalidate(d.Opposite())
	}
}

// Nodes returns the read-only view of every node, indexed by id
func (mesh *Mesh) Nodes() []NodeView {
	views := make([]NodeView, len(mesh.Routers))
	for id, router := range mesh.Routers {
		views[id] = router
	}
	return views
}

// Commit publishes the channel writes of a cycle
func (mesh *Mesh) Commit() {
	for _, ch := range mesh.channels {
		ch.Commit()
	}
}

// Idle is true when no router holds or sends a packet
func (mesh *Mesh) Idle() bool {
	for _, router := range mesh.Routers {
		if !router.Idle() {
			return false
		}
	}
	return true
}

// Reset returns every node to its initial state, keeping unusable links
func (mesh *Mesh) Reset() {
	for id := range mesh.Routers {
		mesh.Routers[id].Reset()
		mesh.PEs[id].reset()
	}
	for _, ch := range mesh.channels {
		ch.reset()
	}
}
