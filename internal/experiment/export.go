package experiment

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"platedesign/internal/blob"
	"platedesign/internal/table"
	"platedesign/internal/template"
)

// Workbook names written by Export.
const (
	SetupWorkbook   = "experiment_setup"
	SamplesWorkbook = "samples"
)

// ExportOptions control where and how a plan is written.
type ExportOptions struct {
	// Prefix is prepended to every workbook key.
	Prefix string
	// Template, when set, is merged into every samples workbook.
	Template *template.Template
	// RunID tags every object; a random UUID is used when empty.
	RunID string
}

// ReplicateWorkbook returns the samples workbook name of replicate index.
// Replicates only get their own directory when there is more than one.
func ReplicateWorkbook(prefix string, index, replicates int) string {
	if replicates > 1 {
		return path.Join(prefix, fmt.Sprintf("replicate_%03d", index), SamplesWorkbook)
	}
	return path.Join(prefix, SamplesWorkbook)
}

// SetupSheets renders the setup workbook: one preparation sheet per physical
// inducer followed by the shared layout grids, if any.
func SetupSheets(plan *Plan, sink table.Sink) error {
	for _, s := range plan.Setups {
		if err := sink.AddSheet(s.Inducer.Name(), s.Preparation); err != nil {
			return err
		}
	}
	return gridSheets(plan.Layouts, sink)
}

// LayoutSheet names the sheet holding the grid of layout name.
func LayoutSheet(name string) string { return name + " Layout" }

func gridSheets(grids []LayoutGrid, sink table.Sink) error {
	for _, g := range grids {
		if err := sink.AddSheet(LayoutSheet(g.Name), g.Grid); err != nil {
			return err
		}
	}
	return nil
}

// Export writes plan to store and returns the written objects.
func (e *Experiment) Export(ctx context.Context, plan *Plan, store blob.Store, opts ExportOptions) (infos []blob.Info, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "export")
	defer func() {
		span.End(err)
		e.observe(ctx, "export", start, err)
	}()

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	setup := table.NewWorkbook(path.Join(opts.Prefix, SetupWorkbook))
	if err := SetupSheets(plan, setup); err != nil {
		return nil, fmt.Errorf("render setup: %w", err)
	}
	written, err := setup.Save(ctx, store, map[string]string{"run_id": runID})
	if err != nil {
		return nil, err
	}
	infos = append(infos, written...)

	for _, rep := range plan.Replicates {
		wb := table.NewWorkbook(ReplicateWorkbook(opts.Prefix, rep.Index, len(plan.Replicates)))
		if opts.Template != nil {
			err = opts.Template.Merge(rep.Samples, wb)
		} else {
			err = wb.AddSheet(template.SamplesSheet, rep.Samples)
		}
		if err == nil {
			err = gridSheets(rep.Layouts, wb)
		}
		if err != nil {
			return nil, fmt.Errorf("render replicate %d: %w", rep.Index, err)
		}
		written, err := wb.Save(ctx, store, map[string]string{"run_id": runID, "replicate": strconv.Itoa(rep.Index)})
		if err != nil {
			return nil, err
		}
		infos = append(infos, written...)
	}
	e.logger.Info("plan exported",
		zap.String("run_id", runID),
		zap.String("driver", string(store.Driver())),
		zap.Int("objects", len(infos)))
	return infos, nil
}
