package layout

import (
	"fmt"
	"strconv"
	"strings"

	"platedesign/internal/dose"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
)

// ColLabel heads the label column of a layout grid.
const ColLabel = "Layout"

// renderGrid lays doses out the way they are pipetted: rows-mode IDs along a
// header row, cols-mode IDs in leading columns, wells-mode IDs in the cells
// and one instruction line per media-mode inducer. well maps a grid position
// to a wells-mode dose index and reports whether the position is measured.
func renderGrid(rows, cols int, apps []Application, well func(r, c int) (int, bool)) (*table.Table, error) {
	ids := make([][]string, len(apps))
	for i, app := range apps {
		ids[i] = app.Inducer.Doses().Strings(dose.IDColumn)
	}

	header := []string{ColLabel}
	for i, app := range apps {
		if app.Mode == domain.ModeCols {
			header = append(header, apps[i].Inducer.IDHeader())
		}
	}
	for c := 1; c <= cols; c++ {
		header = append(header, strconv.Itoa(c))
	}
	out := table.New(header...)

	for i, app := range apps {
		if app.Mode != domain.ModeRows {
			continue
		}
		row := table.Row{ColLabel: app.Inducer.IDHeader()}
		for c := 0; c < cols; c++ {
			row[strconv.Itoa(c+1)] = ids[i][c]
		}
		out.Append(row)
	}
	for r := 0; r < rows; r++ {
		row := table.Row{ColLabel: r + 1}
		for i, app := range apps {
			if app.Mode == domain.ModeCols {
				row[app.Inducer.IDHeader()] = ids[i][r]
			}
		}
		for c := 0; c < cols; c++ {
			k, measured := well(r, c)
			if !measured {
				row[strconv.Itoa(c+1)] = nil
				continue
			}
			var cell []string
			for i, app := range apps {
				if app.Mode == domain.ModeWells {
					cell = append(cell, ids[i][k])
				}
			}
			row[strconv.Itoa(c+1)] = strings.Join(cell, " / ")
		}
		out.Append(row)
	}
	for i, app := range apps {
		if app.Mode != domain.ModeMedia {
			continue
		}
		if len(ids[i]) != 1 {
			return nil, domain.Consistencyf(app.Inducer.Name(), "media mode needs one dose, have %d", len(ids[i]))
		}
		out.Append(table.Row{
			ColLabel: "Media",
			"1":      fmt.Sprintf("Add %s (%s) to the media", ids[i][0], app.Inducer.Name()),
		})
	}
	return out, nil
}
