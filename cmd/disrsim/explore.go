package main

import (
	"fmt"
	"strings"

	"github.com/iti/disrnet"
	"github.com/spf13/cobra"
)

// exploreCmd repeats seeded runs over the values of one parameter and prints
// the aggregated coverage of every value
var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Run repeated simulations over a parameter range",
	Long: fmt.Sprintf(`explore runs --repeat simulations, with seeds seed, seed+1, ..., for every
value of the parameter named by --sweep, and prints the mean, minimum and maximum
of the coverage figures.  A sweep is param=min:max:step or param=v1,v2,...;
the parameter is one of %s.`, strings.Join(disrnet.SweepParams(), ", ")),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := effectiveConfig(cmd.Flags())
		if err != nil {
			return err
		}
		sweep, err := sweepFromFlags(cmd)
		if err != nil {
			return err
		}
		logger, closeLog, err := buildLogger(cmd.Flags())
		if err != nil {
			return err
		}
		defer closeLog()

		repeat, _ := cmd.Flags().GetInt("repeat")
		points, err := disrnet.Explore(cfg, sweep, repeat, logger)
		if err != nil {
			return err
		}
		disrnet.RenderExplore(cmd.OutOrStdout(), sweep.Param, points)

		if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
			return disrnet.WriteExploreFile(outPath, sweep, points)
		}
		return nil
	},
}

func init() {
	exploreCmd.Flags().String("sweep", "", "parameter range, param=min:max:step or param=v1,v2,...")
	exploreCmd.Flags().Int("repeat", 10, "runs per parameter value")
	exploreCmd.Flags().String("out", "", "write the aggregated figures to this .yaml or .json file")
	rootCmd.AddCommand(exploreCmd)
}

func sweepFromFlags(cmd *cobra.Command) (disrnet.Sweep, error) {
	text, _ := cmd.Flags().GetString("sweep")
	if text == "" {
		return disrnet.Sweep{}, nil
	}
	return disrnet.ParseSweep(text)
}
