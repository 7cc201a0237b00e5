package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platedesign/internal/config"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Build and generate an experiment without exporting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(root)
			if err != nil {
				return err
			}
			defer s.close()
			built, err := config.Build(s.cfg, s.logger)
			if err != nil {
				return err
			}
			plan, err := built.Experiment.Generate(cmd.Context())
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d inducers, %d layouts, %d replicates\n",
				s.cfg.Name, len(built.Inducers), len(built.Layouts), len(plan.Replicates))
			return printPlan(out, plan)
		},
	}
}
