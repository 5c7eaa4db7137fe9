package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/davidglickman/drone-6-dof/internal/config"
	"github.com/davidglickman/drone-6-dof/internal/control"
	"github.com/davidglickman/drone-6-dof/internal/dynamo"
	"github.com/davidglickman/drone-6-dof/internal/integrators"
	"github.com/davidglickman/drone-6-dof/internal/metrics"
	"github.com/davidglickman/drone-6-dof/internal/quad"
	"github.com/davidglickman/drone-6-dof/internal/sensors"
	"github.com/davidglickman/drone-6-dof/internal/sim"
	"github.com/davidglickman/drone-6-dof/internal/storage"
	"github.com/davidglickman/drone-6-dof/internal/tui"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	configFile string
	preset     string
	noSensors  bool
	numRuns    int
	plotCols   []string
	rpmMin     float64
	rpmMax     float64
	samples    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quadsim",
		Short: "six degree of freedom quadrotor flight simulator",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".quadsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a flight",
		RunE:  runFlight,
	}
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	runCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "sensor noise seed")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4, euler)")
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().BoolVar(&noSensors, "no-sensors", false, "skip sensor simulation")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run the same flight under independent noise seeds",
		RunE:  runEnsemble,
	}
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of runs")
	ensembleCmd.Flags().Int64Var(&seed, "seed", 1, "first seed")
	ensembleCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	ensembleCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run columns",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotCols, "cols", []string{"h", "theta", "u"}, "columns to plot")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "thrust-to-weight sweep across propeller speed",
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&rpmMin, "rpm-min", 1000, "lowest speed")
	sweepCmd.Flags().Float64Var(&rpmMax, "rpm-max", 6000, "highest speed")
	sweepCmd.Flags().IntVar(&samples, "samples", 200, "samples per curve")
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	hoverCmd := &cobra.Command{
		Use:   "hover",
		Short: "solve for the hover trim speed",
		RunE:  solveHover,
	}
	hoverCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare integrators on the same flight",
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	compareCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	compareCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default config to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "fly with live instruments",
		RunE:  runLive,
	}
	liveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	liveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(runCmd, ensembleCmd, listCmd, plotCmd, exportCSVCmd,
		exportJSONCmd, sweepCmd, hoverCmd, compareCmd, presetsCmd, initCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves preset, config file, and flag overrides in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Sim.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("no-sensors") && noSensors {
		cfg.Sensors.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildStepper(name string) (dynamo.Stepper, error) {
	switch name {
	case "rk4":
		return integrators.NewRK4(), nil
	case "euler":
		return integrators.NewEuler(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}

func buildSimulator(cfg *config.Config, runSeed int64) (*sim.Simulator, error) {
	dyn, err := quad.New(cfg.VehicleParams(), cfg.PropGeometry())
	if err != nil {
		return nil, err
	}

	stepper, err := buildStepper(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	ctrl, err := control.NewScripted(cfg.Schedule.TrimRPM, rules)
	if err != nil {
		return nil, err
	}

	s := sim.New(dyn, stepper, ctrl)
	s.AddMetric(metrics.NewControlEffort())
	s.AddMetric(metrics.NewPitchMargin())
	s.AddMetric(metrics.NewClimbRate())

	if cfg.Sensors.Enabled {
		suite, err := sensors.NewSuite(cfg.SensorParams(), cfg.Vehicle.Mass, runSeed)
		if err != nil {
			return nil, err
		}
		s.WithSensors(suite)
	}
	return s, nil
}

func runFlight(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	simulator, err := buildSimulator(cfg, cfg.Sim.Seed)
	if err != nil {
		return err
	}

	fmt.Println("running flight...")
	start := time.Now()

	result, err := simulator.Run(context.Background(), cfg.GetInitState(), cfg.SimSettings())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Sim.Dt, cfg.Sim.Duration, cfg.Sim.Seed, cfg.Integrator, preset, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	if len(result.Warnings) > 0 {
		fmt.Printf("warnings: %d (first at t=%.2fs: %s)\n",
			len(result.Warnings), result.Warnings[0].Time, result.Warnings[0].Message)
	}
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ens := sim.NewEnsemble(func(s int64) (*sim.Simulator, error) {
		return buildSimulator(cfg, s)
	}, numRuns, seed)

	fmt.Printf("running %d flights...\n", numRuns)
	start := time.Now()

	results, err := ens.Run(context.Background(), cfg.GetInitState(), cfg.SimSettings())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSEED\tFINAL_ALT\tPITCH_MARGIN\tWARNINGS")
	for i, r := range results {
		finalAlt := 0.0
		if n := len(r.States); n > 0 {
			finalAlt = r.States[n-1][quad.StateH]
		}
		fmt.Fprintf(w, "%d\t%d\t%.3f\t%.3f\t%d\n",
			i, seed+int64(i), finalAlt, r.Metrics["pitch_margin"], len(r.Warnings))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tDURATION\tDT\tINTEG\tSTEPS\tWARN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Steps,
			run.Warnings,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, rows, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[name] = i
	}

	fmt.Printf("run: %s  samples: %d\n\n", args[0], len(rows))

	for _, col := range plotCols {
		idx, ok := colIndex[col]
		if !ok {
			return fmt.Errorf("no column %q (have: %s)", col, strings.Join(header, ", "))
		}
		data := make([]float64, len(rows))
		for i := range rows {
			data[i] = rows[i][idx]
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(col+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	header, rows, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}
	return storage.ExportCSV(os.Stdout, header, rows)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	header, rows, err := st.LoadTable(args[0])
	if err != nil {
		return err
	}

	// Rebuild the trajectory from the stored table.
	result := &sim.Result{
		Times:       make([]float64, len(rows)),
		States:      make([]dynamo.State, len(rows)),
		Metrics:     meta.Metrics,
		StepsTaken:  meta.Steps,
		EnergyDrift: meta.EnergyDrift,
	}
	nControls := 0
	for _, name := range header {
		if strings.HasPrefix(name, "rpm") {
			nControls++
		}
	}
	for i, row := range rows {
		result.Times[i] = row[0]
		result.States[i] = dynamo.State(row[1 : 1+quad.StateDim])
		if nControls > 0 && i > 0 {
			result.Controls = append(result.Controls,
				dynamo.Control(row[1+quad.StateDim:1+quad.StateDim+nControls]))
		}
	}

	return storage.ExportJSON(os.Stdout, meta.Integrator, meta.Dt, meta.Duration, result)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dyn, err := quad.New(cfg.VehicleParams(), cfg.PropGeometry())
	if err != nil {
		return err
	}

	sweepCfg := quad.DefaultSweep()
	sweepCfg.RPMMin = rpmMin
	sweepCfg.RPMMax = rpmMax
	sweepCfg.Samples = samples

	curves, err := quad.ThrustSweep(context.Background(), dyn, sweepCfg)
	if err != nil {
		return err
	}

	for _, curve := range curves {
		graph := asciigraph.Plot(curve.Ratio,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("thrust/weight, climb %.1f m/s", curve.Airspeed)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLIMB\tRPM@T/W=1")
	for _, curve := range curves {
		crossing := "-"
		for i, ratio := range curve.Ratio {
			if ratio >= 1 {
				crossing = fmt.Sprintf("%.0f", curve.RPM[i])
				break
			}
		}
		fmt.Fprintf(w, "%.1f\t%s\n", curve.Airspeed, crossing)
	}
	return w.Flush()
}

func solveHover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dyn, err := quad.New(cfg.VehicleParams(), cfg.PropGeometry())
	if err != nil {
		return err
	}

	rpm, err := dyn.HoverRPM()
	if err != nil {
		return err
	}
	fmt.Printf("hover trim: %.1f rpm\n", rpm)
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Sensors.Enabled = false

	fmt.Printf("comparing integrators (dt=%.4f, duration=%.1fs)\n\n", cfg.Sim.Dt, cfg.Sim.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tFINAL_ALT\tENERGY_DRIFT\tTIME_MS")

	for _, name := range []string{"rk4", "euler"} {
		cfg.Integrator = name
		simulator, err := buildSimulator(cfg, 0)
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := simulator.Run(context.Background(), cfg.GetInitState(), cfg.SimSettings())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		finalAlt := math.NaN()
		if n := len(result.States); n > 0 {
			finalAlt = result.States[n-1][quad.StateH]
		}
		fmt.Fprintf(w, "%s\t%.4f\t%.2e\t%.2f\n",
			name, finalAlt, result.EnergyDrift, float64(elapsed.Microseconds())/1000)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dyn, err := quad.New(cfg.VehicleParams(), cfg.PropGeometry())
	if err != nil {
		return err
	}
	stepper, err := buildStepper(cfg.Integrator)
	if err != nil {
		return err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	ctrl, err := control.NewScripted(cfg.Schedule.TrimRPM, rules)
	if err != nil {
		return err
	}

	m := tui.NewModel(dyn, stepper, ctrl, cfg.GetInitState(), cfg.Sim.Dt)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
