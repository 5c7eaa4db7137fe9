package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/davidglickman/drone-6-dof/internal/sim"
)

type ExportData struct {
	Integrator  string             `json:"integrator"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Warnings    int                `json:"warnings"`
	EnergyDrift float64            `json:"energy_drift"`
	Times       []float64          `json:"times"`
	States      [][]float64        `json:"states"`
	Controls    [][]float64        `json:"controls"`
	Metrics     map[string]float64 `json:"metrics"`
}

func ExportJSON(w io.Writer, integrator string, dt, duration float64, result *sim.Result) error {
	data := ExportData{
		Integrator:  integrator,
		Dt:          dt,
		Duration:    duration,
		Steps:       result.StepsTaken,
		Warnings:    len(result.Warnings),
		EnergyDrift: result.EnergyDrift,
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Controls:    make([][]float64, len(result.Controls)),
		Metrics:     result.Metrics,
	}

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSONFile(path, integrator string, dt, duration float64, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, integrator, dt, duration, result)
}

// ExportCSV writes a stored run table verbatim.
func ExportCSV(w io.Writer, header []string, rows [][]float64) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}
