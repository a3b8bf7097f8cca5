package types

import "encoding/json"

// JSON keys of the per-date procedure counters.
const (
	KeyDataUpdate       = "Actualización de datos"
	KeyServiceShutdown  = "Baja del servicio"
	KeySocialTariffJoin = "Adhesión a Tarifa Social"
)

// AnalyticsSnapshot is the mock procedures dataset served by /analytics.
type AnalyticsSnapshot struct {
	Summary          AnalyticsSummary   `json:"resumen"`
	ProceduresByType []ProcedureCount   `json:"tramitesPorTipo"`
	ProceduresByDate []ProceduresByDate `json:"tramitesPorFecha"`
}

// AnalyticsSummary holds the totals of a snapshot.
// TotalInPeriod is always the sum of ProceduresByType values.
type AnalyticsSummary struct {
	TotalInPeriod int `json:"totalEnPeriodo"`
}

// ProcedureCount is the number of procedures of a given type.
type ProcedureCount struct {
	Name  string `json:"nombre"`
	Value int    `json:"valor"`
}

// ProceduresByDate breaks down the procedures of a single day.
// Total is always DataUpdate + ServiceShutdown + SocialTariffJoin.
type ProceduresByDate struct {
	Date             string
	Total            int
	DataUpdate       int
	ServiceShutdown  int
	SocialTariffJoin int
}

type proceduresByDateJSON struct {
	Date             string `json:"fecha"`
	Total            int    `json:"total"`
	DataUpdate       int    `json:"Actualización de datos"`
	ServiceShutdown  int    `json:"Baja del servicio"`
	SocialTariffJoin int    `json:"Adhesión a Tarifa Social"`
}

func (p ProceduresByDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(proceduresByDateJSON(p))
}

func (p *ProceduresByDate) UnmarshalJSON(data []byte) error {
	var raw proceduresByDateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ProceduresByDate(raw)
	return nil
}
