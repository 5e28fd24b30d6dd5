package main

import (
	"os"

	"github.com/iti/disrnet"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

// runCmd builds the mesh, runs it and writes whatever artifacts were asked for
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and print its coverage report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd.Flags())
		if err != nil {
			return err
		}
		logger, closeLog, err := buildLogger(cmd.Flags())
		if err != nil {
			return err
		}
		defer closeLog()

		tracePath, _ := cmd.Flags().GetString("trace")
		traceMgr := disrnet.CreateTraceManager(cfg.ExpName, tracePath != "")

		registry := prometheus.NewRegistry()
		metrics, err := disrnet.NewMetrics(registry)
		if err != nil {
			return err
		}

		mesh, err := disrnet.BuildMesh(cfg, logger, traceMgr, metrics)
		if err != nil {
			return err
		}
		sim := disrnet.NewSimulator(mesh, logger, metrics)
		rpt, runErr := sim.Run()
		rpt.Render(cmd.OutOrStdout())

		if reportPath, _ := cmd.Flags().GetString("report"); reportPath != "" {
			if err := rpt.WriteToFile(reportPath); err != nil {
				return err
			}
		}
		if tracePath != "" {
			if err := traceMgr.WriteToFile(tracePath, true); err != nil {
				return err
			}
		}
		if dotPath, _ := cmd.Flags().GetString("dot"); dotPath != "" {
			if err := writeDOT(dotPath, cfg, mesh); err != nil {
				return err
			}
		}
		if metricsPath, _ := cmd.Flags().GetString("metrics"); metricsPath != "" {
			if err := writeMetrics(metricsPath, registry); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().String("report", "", "write the report to this .yaml or .json file")
	runCmd.Flags().String("trace", "", "write a packet trace to this .yaml or .json file")
	runCmd.Flags().String("dot", "", "write the segment graph to this file, \"auto\" picks the name")
	runCmd.Flags().String("metrics", "", "write the metrics in text exposition format to this file")
	rootCmd.AddCommand(runCmd)
}

func writeDOT(dotPath string, cfg *disrnet.Config, mesh *disrnet.Mesh) error {
	if dotPath == "auto" {
		dotPath = disrnet.DOTFileName(cfg.MeshWidth, cfg.MeshHeight, cfg.Bootstrap)
	}
	f, err := os.Create(dotPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dotPath)
	}
	defer f.Close()
	return disrnet.WriteDOT(f, cfg.MeshWidth, cfg.MeshHeight, cfg.Bootstrap, mesh.Nodes())
}

func writeMetrics(metricsPath string, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(metricsPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", metricsPath)
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return err
		}
	}
	return nil
}
