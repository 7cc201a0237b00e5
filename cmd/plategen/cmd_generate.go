package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"platedesign/internal/blob"
	"platedesign/internal/config"
	"platedesign/internal/experiment"
	"platedesign/internal/observability"
	"platedesign/internal/template"
)

type generateOptions struct {
	prefix     string
	runID      string
	metrics    string
	tracePath  string
	seed       uint64
	replicates int
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate recipes, layouts and sample tables",
		Long: `Generate builds the experiment, computes one preparation recipe per
physical inducer, renders every layout and writes one sample table per
replicate to the configured blob store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(root)
			if err != nil {
				return err
			}
			defer s.close()
			if cmd.Flags().Changed("seed") {
				s.cfg.Generation.Seed = opts.seed
			}
			if cmd.Flags().Changed("replicates") {
				s.cfg.Generation.Replicates = opts.replicates
			}
			if opts.prefix != "" {
				s.cfg.Output.Prefix = opts.prefix
			}
			return generate(cmd, s, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.prefix, "prefix", "", "blob prefix for exported workbooks (overrides output.prefix)")
	f.StringVar(&opts.runID, "run-id", "", "run identifier stored with every object (default random)")
	f.StringVar(&opts.metrics, "metrics", metricsNone, "metrics backend: none, prometheus or expvar")
	f.StringVar(&opts.tracePath, "trace", "", "write JSON trace entries to this file")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed (overrides generation.seed)")
	f.IntVar(&opts.replicates, "replicates", 1, "number of replicates (overrides generation.replicates)")
	return cmd
}

func generate(cmd *cobra.Command, s *session, opts *generateOptions) (err error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	recorder, report, err := newRecorder(opts.metrics)
	if err != nil {
		return err
	}
	var tracer observability.Tracer = observability.NopTracer{}
	if opts.tracePath != "" {
		f, ferr := os.Create(opts.tracePath)
		if ferr != nil {
			return fmt.Errorf("open trace file: %w", ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		tracer = observability.NewJSONTracer(f)
	}

	built, err := config.Build(s.cfg, s.logger,
		experiment.WithMetrics(recorder),
		experiment.WithTracer(tracer))
	if err != nil {
		return err
	}
	store, err := blob.Open(ctx, s.cfg.BlobSettings())
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	var tmpl *template.Template
	if s.cfg.Output.Template != "" {
		if tmpl, err = template.Load(ctx, store, s.cfg.Output.Template); err != nil {
			return fmt.Errorf("load template: %w", err)
		}
	}

	plan, err := built.Experiment.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	infos, err := built.Experiment.Export(ctx, plan, store, experiment.ExportOptions{
		Prefix:   s.cfg.Output.Prefix,
		Template: tmpl,
		RunID:    opts.runID,
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	s.logger.Info("generation complete",
		zap.Int("replicates", len(plan.Replicates)),
		zap.Int("warnings", len(plan.Warnings)))

	if err := printPlan(out, plan); err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", info.Key, info.Size)
	}
	return report(out)
}

func printPlan(w io.Writer, plan *experiment.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDUCER\tSHOTS\tMEDIA (µL)\tTOTAL (µL)\tINFEASIBLE")
	for _, st := range plan.Setups {
		fmt.Fprintf(tw, "%s\t%d\t%g\t%g\t%d\n", st.Inducer.Name(), st.Shots, st.MediaVolume, st.TotalVolume, st.Infeasible)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, v := range plan.Warnings {
		fmt.Fprintf(w, "warning: %s: %s\n", v.Subject, v.Message)
	}
	return nil
}
