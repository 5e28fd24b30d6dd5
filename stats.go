package disrnet

// stats.go condenses the read-only view of every node into a coverage
// report: how much of the mesh the segments cover, how the segments are
// made up, and when construction finished.  The simulator adds the traffic
// and run figures.

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"
)

// SegmentInfo lists the nodes that agreed on one segment
type SegmentInfo struct {
	ID    SegmentID `json:"id" yaml:"id"`
	Nodes []int     `json:"nodes" yaml:"nodes"`
}

// Report is what a run leaves behind
type Report struct {
	ExpName   string `json:"expname" yaml:"expname"`
	Width     int    `json:"dimx" yaml:"dimx"`
	Height    int    `json:"dimy" yaml:"dimy"`
	Bootstrap int    `json:"bootstrap" yaml:"bootstrap"`

	TotalNodes     int `json:"totalnodes" yaml:"totalnodes"`
	CoveredNodes   int `json:"coverednodes" yaml:"coverednodes"`
	DefectiveNodes int `json:"defectivenodes" yaml:"defectivenodes"`
	ReachableNodes int `json:"reachablenodes" yaml:"reachablenodes"`

	TotalLinks     int `json:"totallinks" yaml:"totallinks"`
	CoveredLinks   int `json:"coveredlinks" yaml:"coveredlinks"`
	DefectiveLinks int `json:"defectivelinks" yaml:"defectivelinks"`

	NodeCoverage        float64 `json:"nodecoverage" yaml:"nodecoverage"`
	WorkingNodeCoverage float64 `json:"workingnodecoverage" yaml:"workingnodecoverage"`
	LinkCoverage        float64 `json:"linkcoverage" yaml:"linkcoverage"`
	WorkingLinkCoverage float64 `json:"workinglinkcoverage" yaml:"workinglinkcoverage"`

	// hop distance over working links from the bootstrap to the covered nodes
	MaxReach int     `json:"maxreach" yaml:"maxreach"`
	AvgReach float64 `json:"avgreach" yaml:"avgreach"`

	Segments          int           `json:"segments" yaml:"segments"`
	AvgSegmentLength  float64       `json:"avgsegmentlength" yaml:"avgsegmentlength"`
	StdSegmentLength  float64       `json:"stdsegmentlength" yaml:"stdsegmentlength"`
	CoveredComponents int           `json:"coveredcomponents" yaml:"coveredcomponents"`
	Latency           int64         `json:"latency" yaml:"latency"`
	SegmentList       []SegmentInfo `json:"segmentlist" yaml:"segmentlist"`

	Cycles     int64 `json:"cycles" yaml:"cycles"`
	Violations int64 `json:"violations" yaml:"violations"`
	Drops      int64 `json:"drops" yaml:"drops"`

	Generated int64   `json:"generated" yaml:"generated"`
	Received  int64   `json:"received" yaml:"received"`
	AvgDelay  float64 `json:"avgdelay" yaml:"avgdelay"`
	MaxDelay  float64 `json:"maxdelay" yaml:"maxdelay"`
	AvgHops   float64 `json:"avghops" yaml:"avghops"`
}

// ComputeReport derives the coverage figures of a width x height mesh from
// the node accessors alone
func ComputeReport(width, height, bootstrap int, nodes []NodeView) *Report {
	rpt := new(Report)
	rpt.Width = width
	rpt.Height = height
	rpt.Bootstrap = bootstrap
	rpt.TotalNodes = len(nodes)
	rpt.SegmentList = []SegmentInfo{}

	members := make(map[SegmentID][]int)
	for id, node := range nodes {
		if isolated(width, height, id, nodes) {
			rpt.DefectiveNodes++
		}
		if !node.IsAssigned() {
			continue
		}
		rpt.CoveredNodes++
		members[node.LocalSegmentID()] = append(members[node.LocalSegmentID()], id)
		if node.AssignTimestamp() > rpt.Latency {
			rpt.Latency = node.AssignTimestamp()
		}
	}

	covered := simple.NewUndirectedGraph()
	for id, node := range nodes {
		if node.IsAssigned() {
			covered.AddNode(simple.Node(id))
		}
	}
	linkEnds(width, height, func(id int, d Direction, nbr int) {
		rpt.TotalLinks++
		sid := nodes[id].LinkSegmentID(d)
		if !sid.IsValid() || !nodes[nbr].LinkSegmentID(d.Opposite()).IsValid() {
			rpt.DefectiveLinks++
			return
		}
		if sid.IsAssigned() {
			rpt.CoveredLinks++
			if covered.Node(int64(id)) != nil && covered.Node(int64(nbr)) != nil {
				covered.SetEdge(simple.Edge{F: simple.Node(id), T: simple.Node(nbr)})
			}
		}
	})
	rpt.CoveredComponents = len(topo.ConnectedComponents(covered))

	lengths := []float64{}
	for sid, ids := range members {
		sort.Ints(ids)
		rpt.SegmentList = append(rpt.SegmentList, SegmentInfo{ID: sid, Nodes: ids})
		lengths = append(lengths, float64(len(ids)))
	}
	sort.Slice(rpt.SegmentList, func(i, j int) bool {
		a, b := rpt.SegmentList[i].ID, rpt.SegmentList[j].ID
		if a.Node != b.Node {
			return a.Node < b.Node
		}
		return a.Link < b.Link
	})
	rpt.Segments = len(rpt.SegmentList)
	if rpt.Segments > 0 {
		rpt.AvgSegmentLength = stat.Mean(lengths, nil)
	}
	if rpt.Segments > 1 {
		rpt.StdSegmentLength = stat.StdDev(lengths, nil)
	}
	if len(nodes) > bootstrap && bootstrap >= 0 {
		rpt.ReachableNodes = len(ReachableFrom(width, height, bootstrap, nodes))
		rpt.MaxReach, rpt.AvgReach = reach(HopDistances(width, height, bootstrap, nodes), nodes)
	}

	rpt.NodeCoverage = ratio(rpt.CoveredNodes, rpt.TotalNodes)
	rpt.WorkingNodeCoverage = ratio(rpt.CoveredNodes, rpt.TotalNodes-rpt.DefectiveNodes)
	rpt.LinkCoverage = ratio(rpt.CoveredLinks, rpt.TotalLinks)
	rpt.WorkingLinkCoverage = ratio(rpt.CoveredLinks, rpt.TotalLinks-rpt.DefectiveLinks)
	return rpt
}

// reach condenses the distances of the covered nodes the bootstrap can reach
func reach(dists []int, nodes []NodeView) (int, float64) {
	farthest := 0
	hops := []float64{}
	for id, node := range nodes {
		if !node.IsAssigned() || dists[id] < 0 {
			continue
		}
		if dists[id] > farthest {
			farthest = dists[id]
		}
		hops = append(hops, float64(dists[id]))
	}
	if len(hops) == 0 {
		return 0, 0
	}
	return farthest, stat.Mean(hops, nil)
}

// isolated is true for a node every link of which is unusable
func isolated(width, height, id int, nodes []NodeView) bool {
	for _, d := range MeshDirections() {
		if _, present := NeighborID(id, d, width, height); !present {
			continue
		}
		if nodes[id].LinkSegmentID(d).IsValid() {
			return false
		}
	}
	return true
}

func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// WriteToFile stores the report, YAML or JSON by the extension of filename
func (rpt *Report) WriteToFile(filename string) error {
	bytes, merr := marshalByExt(filename, rpt)
	if merr != nil {
		return merr
	}
	return writeBytes(filename, bytes)
}

// Render prints the summary table and the segment list
func (rpt *Report) Render(w io.Writer) {
	summary := tablewriter.NewWriter(w)
	summary.SetAutoWrapText(false)
	summary.SetBorder(false)
	summary.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	summary.SetAlignment(tablewriter.ALIGN_LEFT)
	summary.SetHeader([]string{"Metric", "Value"})
	rows := [][]string{
		{"mesh", fmt.Sprintf("%dx%d, bootstrap %d", rpt.Width, rpt.Height, rpt.Bootstrap)},
		{"cycles", strconv.FormatInt(rpt.Cycles, 10)},
		{"nodes", strconv.Itoa(rpt.TotalNodes)},
		{"defective nodes", strconv.Itoa(rpt.DefectiveNodes)},
		{"reachable nodes", strconv.Itoa(rpt.ReachableNodes)},
		{"covered nodes", fmt.Sprintf("%d (%.2f%%, %.2f%% of working)", rpt.CoveredNodes,
			100*rpt.NodeCoverage, 100*rpt.WorkingNodeCoverage)},
		{"links", strconv.Itoa(rpt.TotalLinks)},
		{"defective links", strconv.Itoa(rpt.DefectiveLinks)},
		{"covered links", fmt.Sprintf("%d (%.2f%%, %.2f%% of working)", rpt.CoveredLinks,
			100*rpt.LinkCoverage, 100*rpt.WorkingLinkCoverage)},
		{"segments", strconv.Itoa(rpt.Segments)},
		{"average segment length", fmt.Sprintf("%.2f (sd %.2f)", rpt.AvgSegmentLength, rpt.StdSegmentLength)},
		{"covered components", strconv.Itoa(rpt.CoveredComponents)},
		{"reach from bootstrap", fmt.Sprintf("max %d, avg %.2f hops", rpt.MaxReach, rpt.AvgReach)},
		{"latency", strconv.FormatInt(rpt.Latency, 10)},
		{"violations", strconv.FormatInt(rpt.Violations, 10)},
		{"drops", strconv.FormatInt(rpt.Drops, 10)},
	}
	if rpt.Generated > 0 {
		rows = append(rows,
			[]string{"packets generated", strconv.FormatInt(rpt.Generated, 10)},
			[]string{"packets received", strconv.FormatInt(rpt.Received, 10)},
			[]string{"delay", fmt.Sprintf("avg %.2f, max %.0f", rpt.AvgDelay, rpt.MaxDelay)},
			[]string{"average hops", fmt.Sprintf("%.2f", rpt.AvgHops)})
	}
	summary.AppendBulk(rows)
	summary.Render()

	if len(rpt.SegmentList) == 0 {
		return
	}
	fmt.Fprintln(w)
	segments := tablewriter.NewWriter(w)
	segments.SetAutoWrapText(false)
	segments.SetBorder(false)
	segments.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	segments.SetAlignment(tablewriter.ALIGN_LEFT)
	segments.SetHeader([]string{"Segment", "Length", "Nodes"})
	for _, seg := range rpt.SegmentList {
		ids := make([]string, len(seg.Nodes))
		for idx, id := range seg.Nodes {
			ids[idx] = strconv.Itoa(id)
		}
		segments.Append([]string{seg.ID.String(), strconv.Itoa(len(seg.Nodes)), strings.Join(ids, " ")})
	}
	segments.Render()
}
