package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"platedesign/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an example experiment description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "experiment.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := exampleConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// exampleConfig is a single plate with an IPTG gradient along its rows.
func exampleConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Name = "iptg-titration"
	cfg.Generation.Replicates = 3
	cfg.Generation.RandomizeInducers = true
	cfg.Output.Prefix = "runs"
	cfg.Inducers = []config.InducerConfig{{
		Name:               "IPTG",
		Type:               config.TypeChemical,
		Units:              "µM",
		Gradient:           &config.GradientConfig{Min: 1, Max: 1000, N: 12, Scale: "log", UseZero: true},
		StockConcentration: 1e6,
		ShotVolume:         5,
	}}
	cfg.Plates = []config.PlateConfig{{
		Name:        "P1",
		Rows:        8,
		Cols:        12,
		MediaVolume: 1000,
		Cells:       config.CellsConfig{Strain: "MG1655", Inoculation: "od", TargetOD: 0.01},
		Metadata:    map[string]string{"Media": "M9 glucose"},
		Apply:       []config.ApplyConfig{{Inducer: "IPTG", Mode: "rows"}},
	}}
	return cfg
}
