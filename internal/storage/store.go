// Package storage persists simulation runs: a directory per run holding
// metadata.json and a states.csv with named columns for the full state,
// the propeller commands, and every sensor channel.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/davidglickman/drone-6-dof/internal/sensors"
	"github.com/davidglickman/drone-6-dof/internal/sim"
)

var stateColumns = []string{
	"u", "v", "w", "p", "q", "r",
	"phi", "theta", "psi", "x", "y", "h",
}

var sensorColumns = []string{
	"gyro_x", "gyro_y", "gyro_z",
	"accel_x", "accel_y", "accel_z",
	"mag_x", "mag_y", "mag_z",
	"baro",
	"gps_lat", "gps_lon", "gps_alt", "gps_northing", "gps_easting",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Integrator  string             `json:"integrator"`
	Preset      string             `json:"preset,omitempty"`
	Steps       int                `json:"steps"`
	Warnings    int                `json:"warnings"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (s *Store) Save(dt, duration float64, seed int64, integrator, preset string, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("quadsim_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Timestamp:   time.Now(),
		Seed:        seed,
		Dt:          dt,
		Duration:    duration,
		Integrator:  integrator,
		Preset:      preset,
		Steps:       result.StepsTaken,
		Warnings:    len(result.Warnings),
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "states.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(result.States) == 0 {
		return runID, nil
	}

	header := []string{"time"}
	header = append(header, stateColumns...)

	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
		for i := 0; i < numControls; i++ {
			header = append(header, fmt.Sprintf("rpm%d", i+1))
		}
	}

	hasSensors := len(result.Sensors) > 0
	if hasSensors {
		header = append(header, sensorColumns...)
	}

	if err := w.Write(header); err != nil {
		return "", err
	}

	for i := range result.States {
		row := []string{formatF(result.Times[i])}

		for _, val := range result.States[i] {
			row = append(row, formatF(val))
		}

		// Controls and sensors are per-step; the leading row is the
		// initial state and gets zero padding.
		ci := i - 1
		if ci >= 0 && ci < len(result.Controls) {
			for _, val := range result.Controls[ci] {
				row = append(row, formatF(val))
			}
		} else {
			for j := 0; j < numControls; j++ {
				row = append(row, "0")
			}
		}

		if hasSensors {
			if ci >= 0 && ci < len(result.Sensors) {
				row = append(row, sensorRow(result.Sensors[ci])...)
			} else {
				for range sensorColumns {
					row = append(row, "0")
				}
			}
		}

		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTable returns the CSV header and every numeric row of a saved run.
func (s *Store) LoadTable(runID string) ([]string, [][]float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 1 {
		return nil, nil, fmt.Errorf("storage: run %s has no data", runID)
	}

	header := records[0]
	rows := make([][]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		row := make([]float64, 0, len(records[i]))
		for _, field := range records[i] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: run %s row %d: %w", runID, i, err)
			}
			row = append(row, val)
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

func formatF(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func sensorRow(rec sensors.Record) []string {
	vals := rec.Flatten()
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = formatF(v)
	}
	return out
}
