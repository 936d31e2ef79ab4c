package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/sim"
)

type ExportData struct {
	Preset       string             `json:"preset"`
	Policy       string             `json:"policy"`
	PolicyParams map[string]float64 `json:"policy_params,omitempty"`
	Integrator   string             `json:"integrator"`
	Tau          float64            `json:"tau"`
	Steps        int                `json:"steps"`
	Terminated   bool               `json:"terminated"`
	Times        []float64          `json:"times"`
	States       [][]float64        `json:"states"`
	Actions      []env.Action       `json:"actions"`
	Rewards      []float64          `json:"rewards"`
	Metrics      map[string]float64 `json:"metrics"`
}

func WriteJSON(w io.Writer, preset string, ep *sim.Episode) error {
	data := ExportData{
		Preset:       preset,
		Policy:       ep.Policy,
		PolicyParams: ep.PolicyParams,
		Integrator:   ep.Config.Integrator,
		Tau:          ep.Config.Tau,
		Steps:        ep.Steps,
		Terminated:   ep.Terminated,
		Times:        ep.Times,
		States:       make([][]float64, len(ep.States)),
		Actions:      ep.Actions,
		Rewards:      ep.Rewards,
		Metrics:      ep.Metrics,
	}
	for i, s := range ep.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

var CSVHeader = []string{"time", "x", "x_dot", "theta", "theta_dot", "mouse", "action", "reward"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteCSV writes one row per recorded state. The first row is the initial
// state and has no action or reward.
func WriteCSV(w io.Writer, ep *sim.Episode) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for i, state := range ep.States {
		row := make([]string, 0, len(CSVHeader))
		row = append(row, formatFloat(ep.Times[i]))
		for _, v := range state {
			row = append(row, formatFloat(v))
		}
		if i == 0 {
			row = append(row, "", "")
		} else {
			row = append(row, strconv.Itoa(int(ep.Actions[i-1])), formatFloat(ep.Rewards[i-1]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
