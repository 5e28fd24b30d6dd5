package disrnet

// explore.go repeats simulations over a range of one configuration parameter
// and condenses the coverage reports of every point into mean, minimum and
// maximum figures.  Repetition i of a point runs with seed Seed+i, so every
// point sees the same sequence of defect draws.

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// sweepParam applies one value of a swept parameter to a configuration
type sweepParam struct {
	integer bool
	apply   func(cfg *Config, v float64)
}

var sweepParams = map[string]sweepParam{
	"dim":               {true, func(cfg *Config, v float64) { cfg.MeshWidth, cfg.MeshHeight = int(v), int(v) }},
	"dimx":              {true, func(cfg *Config, v float64) { cfg.MeshWidth = int(v) }},
	"dimy":              {true, func(cfg *Config, v float64) { cfg.MeshHeight = int(v) }},
	"buffer":            {true, func(cfg *Config, v float64) { cfg.BufferDepth = int(v) }},
	"bootstrap":         {true, func(cfg *Config, v float64) { cfg.Bootstrap = int(v) }},
	"bootstrap-timeout": {true, func(cfg *Config, v float64) { cfg.BootstrapTimeout = int(v) }},
	"cyclelinks":        {true, func(cfg *Config, v float64) { cfg.CycleLinks = int(v) }},
	"ttl":               {true, func(cfg *Config, v float64) { cfg.TTL = int(v) }},
	"link-defects":      {false, func(cfg *Config, v float64) { cfg.DefectiveLinkProb = v }},
	"node-defects":      {false, func(cfg *Config, v float64) { cfg.DefectiveNodeProb = v }},
	"rate":              {false, func(cfg *Config, v float64) { cfg.PacketRate = v }},
}

// SweepParams lists the parameter names a Sweep accepts
func SweepParams() []string {
	names := make([]string, 0, len(sweepParams))
	for name := range sweepParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sweep is the set of values one parameter takes.  The zero Sweep runs the
// base configuration alone.
type Sweep struct {
	Param  string    `json:"param" yaml:"param"`
	Values []float64 `json:"values" yaml:"values"`
}

// ParseSweep reads "param=min:max:step" or "param=v1,v2,..."
func ParseSweep(text string) (Sweep, error) {
	name, values, found := strings.Cut(text, "=")
	if !found {
		return Sweep{}, errors.Wrapf(ErrInvalidSweep, "%q is not param=values", text)
	}
	name = strings.TrimSpace(name)
	param, known := sweepParams[name]
	if !known {
		return Sweep{}, errors.Wrapf(ErrInvalidSweep, "unknown parameter %q, want one of %v", name, SweepParams())
	}

	sweep := Sweep{Param: name}
	if strings.Contains(values, ":") {
		bounds := strings.Split(values, ":")
		if len(bounds) != 3 {
			return Sweep{}, errors.Wrapf(ErrInvalidSweep, "interval %q is not min:max:step", values)
		}
		nums, err := parseFloats(bounds)
		if err != nil {
			return Sweep{}, err
		}
		low, high, step := nums[0], nums[1], nums[2]
		if step <= 0 || high < low {
			return Sweep{}, errors.Wrapf(ErrInvalidSweep, "interval %q is empty", values)
		}
		steps := int(math.Floor((high-low)/step + 1e-9))
		for i := 0; i <= steps; i++ {
			sweep.Values = append(sweep.Values, low+float64(i)*step)
		}
	} else {
		nums, err := parseFloats(strings.Split(values, ","))
		if err != nil {
			return Sweep{}, err
		}
		sweep.Values = nums
	}

	if param.integer {
		for _, v := range sweep.Values {
			if v != math.Trunc(v) {
				return Sweep{}, errors.Wrapf(ErrInvalidSweep, "%s takes whole numbers, not %g", name, v)
			}
		}
	}
	return sweep, nil
}

func parseFloats(fields []string) ([]float64, error) {
	nums := make([]float64, len(fields))
	for idx, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidSweep, "value %q", field)
		}
		nums[idx] = v
	}
	return nums, nil
}

// Summary is the spread of one report figure over the runs of a point
type Summary struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
}

func summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	return Summary{Mean: stat.Mean(xs, nil), Min: floats.Min(xs), Max: floats.Max(xs)}
}

func (s Summary) String() string {
	return fmt.Sprintf("%.3f [%.3f, %.3f]", s.Mean, s.Min, s.Max)
}

// ExplorePoint aggregates the runs of one value of the swept parameter.
// Runs halted on a protocol violation count in Halted and are left out of
// the figures.
type ExplorePoint struct {
	Value  float64 `json:"value" yaml:"value"`
	Runs   int     `json:"runs" yaml:"runs"`
	Halted int     `json:"halted" yaml:"halted"`

	NodeCoverage        Summary `json:"nodecoverage" yaml:"nodecoverage"`
	WorkingNodeCoverage Summary `json:"workingnodecoverage" yaml:"workingnodecoverage"`
	LinkCoverage        Summary `json:"linkcoverage" yaml:"linkcoverage"`
	Segments            Summary `json:"segments" yaml:"segments"`
	AvgSegmentLength    Summary `json:"avgsegmentlength" yaml:"avgsegmentlength"`
	Latency             Summary `json:"latency" yaml:"latency"`
	MaxReach            Summary `json:"maxreach" yaml:"maxreach"`
}

// Explore runs repetitions simulations of base for every value of sweep.
// logger may be nil; it is handed to every run.
func Explore(base *Config, sweep Sweep, repetitions int, logger *slog.Logger) ([]ExplorePoint, error) {
	logger = orDiscard(logger)
	if repetitions < 1 {
		return nil, errors.Wrapf(ErrInvalidSweep, "%d repetitions", repetitions)
	}
	values := sweep.Values
	var param sweepParam
	if sweep.Param != "" {
		var known bool
		param, known = sweepParams[sweep.Param]
		if !known || len(values) == 0 {
			return nil, errors.Wrapf(ErrInvalidSweep, "parameter %q with %d values", sweep.Param, len(values))
		}
	} else {
		values = []float64{0}
	}

	points := make([]ExplorePoint, 0, len(values))
	for _, v := range values {
		point := ExplorePoint{Value: v}
		figures := make([][]float64, 7)
		for rep := 0; rep < repetitions; rep++ {
			cfg := *base
			if param.apply != nil {
				param.apply(&cfg, v)
			}
			cfg.Seed = base.Seed + uint64(rep)
			mesh, err := BuildMesh(&cfg, logger, nil, nil)
			if err != nil {
				return nil, errors.Wrapf(err, "%s=%g", sweep.Param, v)
			}
			rpt, err := NewSimulator(mesh, logger, nil).Run()
			point.Runs++
			if err != nil {
				point.Halted++
				continue
			}
			for idx, x := range []float64{rpt.NodeCoverage, rpt.WorkingNodeCoverage, rpt.LinkCoverage,
				float64(rpt.Segments), rpt.AvgSegmentLength, float64(rpt.Latency), float64(rpt.MaxReach)} {
				figures[idx] = append(figures[idx], x)
			}
		}
		point.NodeCoverage = summarize(figures[0])
		point.WorkingNodeCoverage = summarize(figures[1])
		point.LinkCoverage = summarize(figures[2])
		point.Segments = summarize(figures[3])
		point.AvgSegmentLength = summarize(figures[4])
		point.Latency = summarize(figures[5])
		point.MaxReach = summarize(figures[6])
		logger.Info("explored", "param", sweep.Param, "value", v, "runs", point.Runs, "halted", point.Halted,
			"node_coverage", point.NodeCoverage.Mean)
		points = append(points, point)
	}
	return points, nil
}

// RenderExplore prints one row per point, every figure as mean [min, max]
func RenderExplore(w io.Writer, param string, points []ExplorePoint) {
	if param == "" {
		param = "base"
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{param, "Runs", "Halted", "Node coverage", "Link coverage", "Segments",
		"Segment length", "Latency", "Reach"})
	for _, p := range points {
		table.Append([]string{strconv.FormatFloat(p.Value, 'g', -1, 64), strconv.Itoa(p.Runs), strconv.Itoa(p.Halted),
			p.NodeCoverage.String(), p.LinkCoverage.String(), p.Segments.String(),
			p.AvgSegmentLength.String(), p.Latency.String(), p.MaxReach.String()})
	}
	table.Render()
}

// WriteExploreFile stores the points, YAML or JSON by the extension of filename
func WriteExploreFile(filename string, sweep Sweep, points []ExplorePoint) error {
	out := struct {
		Sweep  Sweep          `json:"sweep" yaml:"sweep"`
		Points []ExplorePoint `json:"points" yaml:"points"`
	}{Sweep: sweep, Points: points}
	bytes, merr := marshalByExt(filename, out)
	if merr != nil {
		return merr
	}
	return writeBytes(filename, bytes)
}
