package disrnet

// param.go holds the run configuration of a simulation: mesh geometry,
// protocol bounds, defect probabilities and harness switches.  A Config is
// built once, validated, and then shared read-only by every node.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// routingNames lists the dimension-order functions a router knows
var routingNames = []string{"xy"}

// maxSeed is the largest seed the package generator takes, the six seed
// words it derives must stay below the second modulus
const maxSeed = 4294944443 - 7

// Config holds every parameter a simulation run reads.
type Config struct {
	// name of the experiment, used in trace and report files
	ExpName string `json:"expname" yaml:"expname"`

	MeshWidth   int `json:"dimx" yaml:"dimx"`
	MeshHeight  int `json:"dimy" yaml:"dimy"`
	BufferDepth int `json:"buffer" yaml:"buffer"`

	// id of the node that starts the first ring
	Bootstrap int `json:"bootstrap" yaml:"bootstrap"`

	// cycles a bootstrap node waits for its ring to close, <= 0 waits forever
	BootstrapTimeout int `json:"bootstraptimeout" yaml:"bootstraptimeout"`

	// full failed laps of the free link search before it gives up, 0 never gives up
	CycleLinks int `json:"cyclelinks" yaml:"cyclelinks"`

	// cancellations a segment request survives, <= 0 is unbounded
	TTL int `json:"ttl" yaml:"ttl"`

	DefectiveLinkProb float64 `json:"linkdefects" yaml:"linkdefects"`
	DefectiveNodeProb float64 `json:"nodedefects" yaml:"nodedefects"`
	Seed              uint64  `json:"seed" yaml:"seed"`

	SimCycles   int64 `json:"sim" yaml:"sim"`
	ResetCycles int64 `json:"warmup" yaml:"warmup"`

	// DiSR selects segment construction; false runs XY traffic instead
	DiSR       bool    `json:"disr" yaml:"disr"`
	Routing    string  `json:"routing" yaml:"routing"`
	PacketRate float64 `json:"rate" yaml:"rate"`

	Debug           bool `json:"debug" yaml:"debug"`
	HaltOnViolation bool `json:"haltonviolation" yaml:"haltonviolation"`
	StopWhenStable  bool `json:"stopwhenstable" yaml:"stopwhenstable"`
}

// DefaultConfig returns the parameters of a 4x4 defect-free DiSR run
func DefaultConfig() *Config {
	cfg := new(Config)
	cfg.ExpName = "disr"
	cfg.MeshWidth = 4
	cfg.MeshHeight = 4
	cfg.BufferDepth = 4
	cfg.Bootstrap = 0
	cfg.BootstrapTimeout = 0
	cfg.CycleLinks = 2
	cfg.TTL = 0
	cfg.Seed = 1
	cfg.SimCycles = 10000
	cfg.ResetCycles = 1000
	cfg.DiSR = true
	cfg.Routing = "xy"
	cfg.PacketRate = 0.01
	cfg.HaltOnViolation = true
	cfg.StopWhenStable = true
	return cfg
}

// NumNodes is the number of nodes in the mesh
func (cfg *Config) NumNodes() int {
	return cfg.MeshWidth * cfg.MeshHeight
}

// Validate checks every field and reports all the problems found at once
func (cfg *Config) Validate() error {
	errs := []error{}
	if cfg.MeshWidth < 2 || cfg.MeshHeight < 2 {
		errs = append(errs, fmt.Errorf("mesh %dx%d must be at least 2x2", cfg.MeshWidth, cfg.MeshHeight))
	}
	if cfg.BufferDepth < 1 {
		errs = append(errs, fmt.Errorf("buffer depth %d must be at least 1", cfg.BufferDepth))
	}
	if cfg.Bootstrap < 0 || cfg.Bootstrap >= cfg.NumNodes() {
		errs = append(errs, fmt.Errorf("bootstrap node %d outside the mesh", cfg.Bootstrap))
	}
	if cfg.CycleLinks < 0 {
		errs = append(errs, fmt.Errorf("cyclelinks %d must not be negative", cfg.CycleLinks))
	}
	if cfg.DefectiveLinkProb < 0 || cfg.DefectiveLinkProb > 1 {
		errs = append(errs, fmt.Errorf("link defect probability %g outside [0,1]", cfg.DefectiveLinkProb))
	}
	if cfg.DefectiveNodeProb < 0 || cfg.DefectiveNodeProb > 1 {
		errs = append(errs, fmt.Errorf("node defect probability %g outside [0,1]", cfg.DefectiveNodeProb))
	}
	if cfg.Seed > maxSeed {
		errs = append(errs, fmt.Errorf("seed %d above %d", cfg.Seed, uint64(maxSeed)))
	}
	if cfg.PacketRate < 0 || cfg.PacketRate > 1 {
		errs = append(errs, fmt.Errorf("packet rate %g outside [0,1]", cfg.PacketRate))
	}
	if cfg.SimCycles < 1 {
		errs = append(errs, fmt.Errorf("simulation length %d must be positive", cfg.SimCycles))
	}
	if cfg.ResetCycles < 0 || cfg.ResetCycles >= cfg.SimCycles {
		errs = append(errs, fmt.Errorf("warm-up %d must lie in [0,%d)", cfg.ResetCycles, cfg.SimCycles))
	}
	if !slices.Contains(routingNames, cfg.Routing) {
		errs = append(errs, fmt.Errorf("routing %q not one of %v", cfg.Routing, routingNames))
	}

	err := ReportErrs(errs)
	if err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// bootstrapTimeout is the starting value of the bootstrap countdown, -1 when disabled
func (cfg *Config) bootstrapTimeout() int {
	if cfg.BootstrapTimeout <= 0 {
		return -1
	}
	return cfg.BootstrapTimeout
}

// requestTTL is the time-to-live a newly originated segment request carries
func (cfg *Config) requestTTL() int {
	if cfg.TTL <= 0 {
		return unlimitedTTL
	}
	return cfg.TTL
}

// ReadConfig deserializes a configuration from the byte slice dict, or from
// the named file when dict is empty.  Fields absent from the input keep their
// default values.  The result is validated.
func ReadConfig(cfgFileName string, useYAML bool, dict []byte) (*Config, error) {
	var err error

	if len(dict) == 0 {
		fileInfo, serr := os.Stat(cfgFileName)
		if os.IsNotExist(serr) || (serr == nil && fileInfo.IsDir()) {
			return nil, errors.Errorf("configuration %s does not exist or cannot be read", cfgFileName)
		}
		dict, err = os.ReadFile(cfgFileName)
		if err != nil {
			return nil, errors.Wrapf(err, "reading configuration %s", cfgFileName)
		}
	}

	cfg := DefaultConfig()
	if useYAML {
		err = yaml.Unmarshal(dict, cfg)
	} else {
		err = json.Unmarshal(dict, cfg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decoding configuration %s", cfgFileName)
	}

	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}
	return cfg, nil
}

// LoadConfig reads a configuration file, choosing YAML or JSON by its extension
func LoadConfig(cfgFileName string) (*Config, error) {
	return ReadConfig(cfgFileName, isYAMLFile(cfgFileName), nil)
}

// WriteToFile stores the configuration in the named file.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cfg *Config) WriteToFile(filename string) error {
	bytes, merr := marshalByExt(filename, cfg)
	if merr != nil {
		return merr
	}
	return writeBytes(filename, bytes)
}

func isYAMLFile(filename string) bool {
	pathExt := path.Ext(filename)
	return pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml"
}

// marshalByExt serializes obj as YAML or JSON depending on the extension of filename
func marshalByExt(filename string, obj any) ([]byte, error) {
	pathExt := path.Ext(filename)
	switch {
	case isYAMLFile(filename):
		return yaml.Marshal(obj)
	case pathExt == ".json" || pathExt == ".JSON":
		return json.MarshalIndent(obj, "", "\t")
	}
	return nil, errors.Errorf("file %s must end in .yaml, .yml or .json", filename)
}

func writeBytes(filename string, bytes []byte) error {
	f, cerr := os.Create(filename)
	if cerr != nil {
		return errors.Wrapf(cerr, "creating %s", filename)
	}
	defer f.Close()
	if _, werr := f.Write(bytes); werr != nil {
		return errors.Wrapf(werr, "writing %s", filename)
	}
	return nil
}
