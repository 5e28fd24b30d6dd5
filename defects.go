package disrnet

// defects.go decides which links and nodes of a mesh are broken.  The draw
// comes from a stream of the seeded package generator, so a configuration
// always produces the same faults.

import (
	"github.com/iti/rngstream"
)

// injectDefects invalidates every link drawn defective and every link of every
// node drawn defective.  The bootstrap node is never made defective.
func (mesh *Mesh) injectDefects(rng *rngstream.RngStream) {
	cfg := mesh.cfg
	if cfg.DefectiveLinkProb <= 0 && cfg.DefectiveNodeProb <= 0 {
		return
	}

	if cfg.DefectiveNodeProb > 0 {
		for id := range mesh.Routers {
			if id == cfg.Bootstrap || rng.RandU01() >= cfg.DefectiveNodeProb {
				continue
			}
			for _, d := range MeshDirections() {
				mesh.InvalidateDirection(id, d)
			}
			mesh.DefectiveNodes = append(mesh.DefectiveNodes, id)
			mesh.logger.Debug("defective node", "node", id)
		}
	}

	if cfg.DefectiveLinkProb > 0 {
		linkEnds(cfg.MeshWidth, cfg.MeshHeight, func(id int, d Direction, nbr int) {
			if rng.RandU01() >= cfg.DefectiveLinkProb {
				return
			}
			mesh.InvalidateDirection(id, d)
			mesh.DefectiveLinks = append(mesh.DefectiveLinks, LinkRef{Node: id, Dir: d})
			mesh.logger.Debug("defective link", "node", id, "dir", d, "neighbor", nbr)
		})
	}
}
