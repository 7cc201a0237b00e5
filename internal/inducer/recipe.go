package inducer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"platedesign/internal/dose"
	"platedesign/internal/table"
	"platedesign/pkg/domain"
	"platedesign/pkg/numeric"
)

// Recipe column names shared by dose tables and preparation tables.
const (
	ColAliquotIDs     = "Aliquot IDs"
	ColStockDilution  = "Stock Dilution"
	ColInducerVolume  = "Inducer Volume (µL)"
	ColWaterVolume    = "Water Volume (µL)"
	ColTotalVolume    = "Total Volume (µL)"
	ColAliquotVolume  = "Aliquot Volume (µL)"
	ColFeasible       = "Feasible"
	recipeSearchDepth = 10
)

// RequestedHeader names the preparation column holding requested values.
func RequestedHeader(name, units string) string {
	return "Requested " + ConcentrationHeader(name, units)
}

// AchievedHeader names the preparation column holding achievable values.
func AchievedHeader(name, units string) string {
	return "Achieved " + ConcentrationHeader(name, units)
}

// Recipe is the preparation of one distinct dose.
type Recipe struct {
	Requested     float64
	Achieved      float64
	Dilution      float64
	InducerVolume float64
	WaterVolume   float64
	TotalVolume   float64
	Feasible      bool
}

// SolveRecipe searches for the coarsest usable stock dilution that brings
// the stock aliquot for conc under both the maximum aliquot volume and total.
// The search never fails: when even undiluted stock is not enough the result
// is returned with Feasible unset.
func (p Params) SolveRecipe(conc, media, total float64) Recipe {
	r := Recipe{Requested: conc, TotalVolume: total, Dilution: 1}
	if conc == 0 {
		r.WaterVolume = numeric.RoundTo(total, p.WaterDecimals)
		r.Feasible = true
		return r
	}
	need := func(dilution float64) float64 {
		return conc * media / p.ShotVolume * total / (p.StockConcentration / dilution)
	}
	dilution := math.Pow(p.DilutionStep, recipeSearchDepth)
	vol := need(dilution)
	for (vol > p.MaxStockVolume || vol > total) && dilution > 1 {
		dilution = math.Max(dilution/p.DilutionStep, 1)
		vol = need(dilution)
	}
	r.Dilution = dilution
	r.Feasible = vol <= p.MaxStockVolume && vol <= total && vol >= p.MinStockVolume

	r.InducerVolume = numeric.RoundTo(vol, p.InducerDecimals)
	r.WaterVolume = math.Max(numeric.RoundTo(total-r.InducerVolume, p.WaterDecimals), 0)
	if liquid := r.InducerVolume + r.WaterVolume; liquid > 0 {
		r.Achieved = p.StockConcentration / dilution * r.InducerVolume / liquid * p.ShotVolume / media
	}
	return r
}

// ComputeRecipe solves one recipe per distinct dose and rewrites the dose
// table so its concentration column holds the achievable values. Doses are
// grouped by value at six significant digits and each group is prepared as
// one aliquot of total volume times group size. Calling it again solves for
// the already-achieved values.
func (c *Chemical) ComputeRecipe() (*table.Table, error) {
	switch {
	case c.params.StockConcentration <= 0:
		return nil, domain.Configf(c.name, "stock concentration must be set before computing a recipe")
	case c.params.ShotVolume <= 0:
		return nil, domain.Configf(c.name, "shot volume must be set before computing a recipe")
	case c.mediaVolume <= 0:
		return nil, domain.Configf(c.name, "media volume must be set before computing a recipe")
	case c.totalVolume <= 0:
		return nil, domain.Configf(c.name, "volumes must be sized before computing a recipe")
	case c.Len() == 0:
		return nil, domain.Configf(c.name, "no doses to prepare")
	}
	if c.recipeComputed {
		c.logger.Warn("recomputing recipe from achieved concentrations")
	}

	canonical := c.doses.Canonical()
	concs, err := canonical.Floats(c.ConcentrationHeader())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	ids := canonical.Strings(dose.IDColumn)

	var order []string
	members := make(map[string][]int)
	for i, v := range concs {
		key := strconv.FormatFloat(v, 'g', 6, 64)
		if _, ok := members[key]; !ok {
			order = append(order, key)
		}
		members[key] = append(members[key], i)
	}

	n := len(concs)
	achieved := make([]any, n)
	dilutions := make([]any, n)
	inducerVols := make([]any, n)
	waterVols := make([]any, n)
	totalVols := make([]any, n)
	aliquots := make([]any, n)

	prep := table.New(ColAliquotIDs, RequestedHeader(c.name, c.units), AchievedHeader(c.name, c.units),
		ColStockDilution, ColInducerVolume, ColWaterVolume, ColTotalVolume, ColAliquotVolume, ColFeasible)
	for _, key := range order {
		idx := members[key]
		groupIDs := make([]string, len(idx))
		for j, i := range idx {
			groupIDs[j] = ids[i]
		}
		joined := strings.Join(groupIDs, ", ")
		r := c.params.SolveRecipe(concs[idx[0]], c.mediaVolume, c.totalVolume*float64(len(idx)))
		if !r.Feasible {
			c.logger.Warn("recipe infeasible, using best effort",
				zap.String("aliquot_ids", joined),
				zap.Float64("requested", r.Requested),
				zap.Float64("achieved", r.Achieved),
				zap.Float64("dilution", r.Dilution),
				zap.Float64("inducer_volume", r.InducerVolume))
		}
		for _, i := range idx {
			achieved[i] = r.Achieved
			dilutions[i] = r.Dilution
			inducerVols[i] = r.InducerVolume
			waterVols[i] = r.WaterVolume
			totalVols[i] = r.TotalVolume
			aliquots[i] = joined
		}
		var aliquot any
		if c.hasReplicate {
			aliquot = c.replicateVolume * float64(len(idx))
		}
		prep.Append(table.Row{
			ColAliquotIDs:                    joined,
			RequestedHeader(c.name, c.units): r.Requested,
			AchievedHeader(c.name, c.units):  r.Achieved,
			ColStockDilution:                 r.Dilution,
			ColInducerVolume:                 r.InducerVolume,
			ColWaterVolume:                   r.WaterVolume,
			ColTotalVolume:                   r.TotalVolume,
			ColAliquotVolume:                 aliquot,
			ColFeasible:                      r.Feasible,
		})
	}

	for _, col := range []struct {
		name   string
		values []any
	}{
		{c.ConcentrationHeader(), achieved},
		{ColStockDilution, dilutions},
		{ColInducerVolume, inducerVols},
		{ColWaterVolume, waterVols},
		{ColTotalVolume, totalVols},
		{ColAliquotIDs, aliquots},
	} {
		if err := c.doses.SetColumn(col.name, col.values); err != nil {
			return nil, err
		}
	}
	c.recipeComputed = true
	return prep, nil
}
