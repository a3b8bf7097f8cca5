// Package analytics produces the mock procedures dataset used by the
// dashboard while the real reporting pipeline does not exist.
package analytics

import (
	"math"
	"math/rand/v2"

	"github.com/oficina-virtual/apiserver/types"
)

const (
	MinFactor = 0.7
	MaxFactor = 1.3
)

// FactorSource yields the scaling factor applied to a whole snapshot.
type FactorSource interface {
	Factor() float64
}

// RandomFactor draws uniformly from [MinFactor, MaxFactor).
type RandomFactor struct{}

func (RandomFactor) Factor() float64 {
	return MinFactor + rand.Float64()*(MaxFactor-MinFactor)
}

// FixedFactor always returns the same factor.
type FixedFactor float64

func (f FixedFactor) Factor() float64 {
	return float64(f)
}

var baselineByType = []types.ProcedureCount{
	{Name: "Adhesión a Tarifa Social", Value: 6870},
	{Name: "Baja del servicio", Value: 5375},
	{Name: "Baja de Suministro T1-R", Value: 5375},
	{Name: "Adhesión a factura digital", Value: 4950},
	{Name: "Actualización de datos impositivos", Value: 3255},
	{Name: "Actualización de condición de A...", Value: 2715},
	{Name: "Otros", Value: 24721},
}

var baselineByDate = []types.ProceduresByDate{
	{Date: "08/07/2020", DataUpdate: 883, ServiceShutdown: 545, SocialTariffJoin: 361},
	{Date: "15/07/2020", DataUpdate: 1005, ServiceShutdown: 650, SocialTariffJoin: 363},
	{Date: "28/07/2020", DataUpdate: 1100, ServiceShutdown: 800, SocialTariffJoin: 325},
}

// Generator builds analytics snapshots from the fixed baseline.
type Generator struct {
	factors FactorSource
}

// NewGenerator returns a Generator using src, or RandomFactor when src is nil.
func NewGenerator(src FactorSource) *Generator {
	if src == nil {
		src = RandomFactor{}
	}
	return &Generator{factors: src}
}

// Snapshot scales every baseline counter by a single factor. Totals are
// summed from the scaled parts so they always add up.
func (g *Generator) Snapshot() types.AnalyticsSnapshot {
	f := g.factors.Factor()

	byType := make([]types.ProcedureCount, 0, len(baselineByType))
	total := 0
	for _, item := range baselineByType {
		value := scale(item.Value, f)
		total += value
		byType = append(byType, types.ProcedureCount{Name: item.Name, Value: value})
	}

	byDate := make([]types.ProceduresByDate, 0, len(baselineByDate))
	for _, item := range baselineByDate {
		day := types.ProceduresByDate{
			Date:             item.Date,
			DataUpdate:       scale(item.DataUpdate, f),
			ServiceShutdown:  scale(item.ServiceShutdown, f),
			SocialTariffJoin: scale(item.SocialTariffJoin, f),
		}
		day.Total = day.DataUpdate + day.ServiceShutdown + day.SocialTariffJoin
		byDate = append(byDate, day)
	}

	return types.AnalyticsSnapshot{
		Summary:          types.AnalyticsSummary{TotalInPeriod: total},
		ProceduresByType: byType,
		ProceduresByDate: byDate,
	}
}

func scale(v int, f float64) int {
	return int(math.Round(float64(v) * f))
}
