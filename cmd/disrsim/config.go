package main

import (
	"fmt"

	"github.com/iti/disrnet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var configPath string

// configCmd prints the configuration a run would use
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd.Flags())
		if err != nil {
			return err
		}
		bytes, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(bytes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// addConfigFlags declares one persistent flag per configuration field, with
// the defaults of disrnet.DefaultConfig
func addConfigFlags(cmd *cobra.Command) {
	def := disrnet.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.String("name", def.ExpName, "experiment name")
	flags.Int("dimx", def.MeshWidth, "mesh width")
	flags.Int("dimy", def.MeshHeight, "mesh height")
	flags.Int("buffer", def.BufferDepth, "port queue depth")
	flags.Int("bootstrap", def.Bootstrap, "id of the bootstrap node")
	flags.Int("bootstrap-timeout", def.BootstrapTimeout, "cycles before a stalled ring is restarted, 0 never")
	flags.Int("cyclelinks", def.CycleLinks, "failed free link laps before a search gives up, 0 never")
	flags.Int("ttl", def.TTL, "cancellations a segment request survives, 0 unbounded")
	flags.Float64("link-defects", def.DefectiveLinkProb, "probability a link is defective")
	flags.Float64("node-defects", def.DefectiveNodeProb, "probability a node is defective")
	flags.Uint64("seed", def.Seed, "seed of the defect draw and the traffic generators")
	flags.Int64("sim", def.SimCycles, "simulation length in cycles")
	flags.Int64("warmup", def.ResetCycles, "cycles excluded from traffic statistics")
	flags.Bool("disr", def.DiSR, "run segment construction; false runs xy traffic")
	flags.String("routing", def.Routing, "routing of traffic packets")
	flags.Float64("rate", def.PacketRate, "per-cycle injection probability of traffic")
	flags.Bool("debug", def.Debug, "check protocol invariants on every transition")
	flags.Bool("keep-going", !def.HaltOnViolation, "log protocol violations instead of halting")
	flags.Bool("run-to-end", !def.StopWhenStable, "do not stop once segment construction settles")
}

// effectiveConfig starts from the configuration file, if any, and applies the
// flags set on the command line
func effectiveConfig(flags *pflag.FlagSet) (*disrnet.Config, error) {
	cfg := disrnet.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = disrnet.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	if flags.Changed("name") {
		cfg.ExpName, _ = flags.GetString("name")
	}
	if flags.Changed("dimx") {
		cfg.MeshWidth, _ = flags.GetInt("dimx")
	}
	if flags.Changed("dimy") {
		cfg.MeshHeight, _ = flags.GetInt("dimy")
	}
	if flags.Changed("buffer") {
		cfg.BufferDepth, _ = flags.GetInt("buffer")
	}
	if flags.Changed("bootstrap") {
		cfg.Bootstrap, _ = flags.GetInt("bootstrap")
	}
	if flags.Changed("bootstrap-timeout") {
		cfg.BootstrapTimeout, _ = flags.GetInt("bootstrap-timeout")
	}
	if flags.Changed("cyclelinks") {
		cfg.CycleLinks, _ = flags.GetInt("cyclelinks")
	}
	if flags.Changed("ttl") {
		cfg.TTL, _ = flags.GetInt("ttl")
	}
	if flags.Changed("link-defects") {
		cfg.DefectiveLinkProb, _ = flags.GetFloat64("link-defects")
	}
	if flags.Changed("node-defects") {
		cfg.DefectiveNodeProb, _ = flags.GetFloat64("node-defects")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("sim") {
		cfg.SimCycles, _ = flags.GetInt64("sim")
	}
	if flags.Changed("warmup") {
		cfg.ResetCycles, _ = flags.GetInt64("warmup")
	}
	if flags.Changed("disr") {
		cfg.DiSR, _ = flags.GetBool("disr")
	}
	if flags.Changed("routing") {
		cfg.Routing, _ = flags.GetString("routing")
	}
	if flags.Changed("rate") {
		cfg.PacketRate, _ = flags.GetFloat64("rate")
	}
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("keep-going") {
		keepGoing, _ := flags.GetBool("keep-going")
		cfg.HaltOnViolation = !keepGoing
	}
	if flags.Changed("run-to-end") {
		runToEnd, _ := flags.GetBool("run-to-end")
		cfg.StopWhenStable = !runToEnd
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
