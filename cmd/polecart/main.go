package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/polecart/internal/analysis"
	"github.com/san-kum/polecart/internal/automation"
	"github.com/san-kum/polecart/internal/config"
	"github.com/san-kum/polecart/internal/control"
	"github.com/san-kum/polecart/internal/dynamo"
	"github.com/san-kum/polecart/internal/env"
	"github.com/san-kum/polecart/internal/export"
	"github.com/san-kum/polecart/internal/integrators"
	"github.com/san-kum/polecart/internal/logging"
	"github.com/san-kum/polecart/internal/metrics"
	"github.com/san-kum/polecart/internal/optim"
	"github.com/san-kum/polecart/internal/render"
	"github.com/san-kum/polecart/internal/server"
	"github.com/san-kum/polecart/internal/sim"
	"github.com/san-kum/polecart/internal/storage"
	"github.com/san-kum/polecart/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	seed         int64
	steps        int
	policy       string
	integrator   string
	stopOnBounds bool
	runs         int
	workers      int
	mouseTarget  float64
	mouseStep    int
	noSave       bool

	addr string

	pngDir  string
	format  string
	outPath string
	xAxis   int
	yAxis   int

	theta0 float64

	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	gridSpecs  []string
	objective  string
	lyapSteps  int
)

var presetNotes = map[string]string{
	"classic":      "default cart-pole, Euler at 50 Hz",
	"heavy-pole":   "long heavy pole, stronger push",
	"frictionless": "no pivot friction",
	"symplectic":   "semi-implicit Euler integrator",
	"twitchy":      "short light pole at 100 Hz, 8-deep observations",
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "polecart",
		Short:         "cart-pole environment, policies and live views",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless episodes and store them",
		Args:  cobra.NoArgs,
		RunE:  runEpisodes,
	}
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 means time-based unless the config sets one)")
	runCmd.Flags().IntVar(&steps, "steps", 0, "maximum steps per episode")
	runCmd.Flags().StringVar(&policy, "policy", "", "policy: "+strings.Join(control.Names(), ", "))
	runCmd.Flags().StringVar(&integrator, "integrator", "", "integrator: "+strings.Join(integrators.Names(), ", "))
	runCmd.Flags().BoolVar(&stopOnBounds, "stop-on-bounds", false, "end an episode when the cart or pole leaves its bounds")
	runCmd.Flags().IntVar(&runs, "runs", 1, "number of episodes")
	runCmd.Flags().IntVar(&workers, "workers", 0, "parallel episodes (0 = one per run)")
	runCmd.Flags().Float64Var(&mouseTarget, "mouse", 0, "mouse target in metres")
	runCmd.Flags().IntVar(&mouseStep, "mouse-step", -1, "step at which the mouse target is set (-1 = never)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the episodes")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the browser view over http and websocket",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&policy, "policy", "", "policy for new sessions")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "terminal live view with mouse input",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and metrics",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&pngDir, "png", "", "also write PNG plots into this directory")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json, csv, svg, png or scene",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json, csv, svg, png, scene or meta")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (directory for png; default stdout)")
	exportCmd.Flags().IntVar(&xAxis, "x-axis", -1, "state index for the svg x-axis (-1 = time)")
	exportCmd.Flags().IntVar(&yAxis, "y-axis", dynamo.IdxTheta, "state index for the svg y-axis")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators from the same initial state",
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().IntVar(&steps, "steps", 500, "steps per integrator")
	compareCmd.Flags().StringVar(&policy, "policy", "lqr", "policy applied to every integrator")
	compareCmd.Flags().Float64Var(&theta0, "theta", 0.1, "initial pole angle (rad)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range config.ListPresets() {
				fmt.Fprintf(w, "%s\t%s\n", name, presetNotes[name])
			}
			return w.Flush()
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and sensitivity analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&lyapSteps, "lyapunov-steps", 500, "steps for the Lyapunov estimate (0 = skip)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", dynamo.IdxTheta, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", dynamo.IdxThetaDot, "state index for y-axis")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file.yaml]",
		Short: "run a scripted sequence of episode batches",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [param]",
		Short: "sweep one engine setting (" + strings.Join(automation.EnvParams(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "points", 5, "number of values")
	sweepCmd.Flags().IntVar(&runs, "runs", 5, "episodes per value")
	sweepCmd.Flags().IntVar(&steps, "steps", 0, "maximum steps per episode")
	sweepCmd.Flags().StringVar(&policy, "policy", "", "policy")
	sweepCmd.Flags().BoolVar(&stopOnBounds, "stop-on-bounds", true, "end an episode when it leaves its bounds")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search policy gains",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "param=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&objective, "objective", "reward", "reward, steps, a metric name to minimize, or -metric to maximize")
	tuneCmd.Flags().IntVar(&runs, "runs", 3, "episodes per candidate")
	tuneCmd.Flags().IntVar(&steps, "steps", 0, "maximum steps per episode")
	tuneCmd.Flags().StringVar(&policy, "policy", "", "policy to tune")
	tuneCmd.Flags().Float64Var(&mouseTarget, "mouse", 0, "mouse target in metres")
	tuneCmd.Flags().IntVar(&mouseStep, "mouse-step", -1, "step at which the mouse target is set (-1 = never)")
	tuneCmd.Flags().BoolVar(&stopOnBounds, "stop-on-bounds", true, "end an episode when it leaves its bounds")

	rootCmd.AddCommand(runCmd, serveCmd, tuiCmd, listCmd, showCmd, plotCmd, exportCmd, compareCmd, presetsCmd,
		analyzeCmd, phaseCmd, scenarioCmd, sweepCmd, tuneCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level, os.Stderr)
	slog.SetDefault(logger)
	return logger, nil
}

// loadConfig layers the preset, then the config file, then explicit flags.
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

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("steps") {
		cfg.MaxSteps = steps
	}
	if flags.Changed("policy") {
		cfg.Policy = policy
	}
	if flags.Changed("integrator") {
		cfg.Env.Integrator = integrator
	}
	if flags.Changed("stop-on-bounds") {
		cfg.StopOnBounds = stopOnBounds
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func presetName(cfg *config.Config) string {
	if cfg.Preset == "" {
		return "custom"
	}
	return cfg.Preset
}

func runEpisodes(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", runs)
	}

	baseSeed := cfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	rc := runConfig(cfg)
	cfg.Seed = baseSeed
	ens := automation.NewEnsemble(cfg, runs, logger)
	ens.Workers = workers

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("running %d %s episode(s) with %s...\n", runs, presetName(cfg), cfg.Policy)
	start := time.Now()
	episodes, err := ens.Run(ctx, rc)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	st := storage.New(cfg.DataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSEED\tSTEPS\tREWARD\tFELL\tSTABILITY\tMAX_ANGLE")
	for i, ep := range episodes {
		ep.Policy = cfg.Policy
		ep.PolicyParams = cfg.PolicyParams
		runID := "-"
		if !noSave {
			runID, err = st.Save(presetName(cfg), baseSeed+int64(i), ep)
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.0f\t%v\t%.3f\t%.3f\n",
			runID, baseSeed+int64(i), ep.Steps, ep.TotalReward(), ep.Terminated,
			ep.Metrics["stability"], ep.Metrics["max_angle"])
	}
	return w.Flush()
}

func serve(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	if configFile != "" {
		go func() {
			if err := srv.Watch(ctx, configFile); err != nil {
				logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	fmt.Printf("serving on http://localhost%s\n", cfg.Server.Addr)
	return srv.ListenAndServe(ctx)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to bubbletea; keep log output off it.
	slog.SetDefault(logging.Discard())

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	newRand := func() env.RandSource {
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if preset != "" || configFile != "" {
		m, err := viz.NewModel(cfg.Env, "polecart · "+presetName(cfg), cfg.Policy, cfg.PolicyParams, newRand())
		if err != nil {
			return err
		}
		return viz.Run(m)
	}

	build := func(name string) (viz.Model, error) {
		pc := config.GetPreset(name)
		if pc == nil {
			return viz.Model{}, fmt.Errorf("unknown preset: %s", name)
		}
		return viz.NewModel(pc.Env, "polecart · "+name, pc.Policy, pc.PolicyParams, newRand())
	}
	return viz.Run(viz.NewApp(config.ListPresets(), presetNotes, build))
}

func openStore() *storage.Store {
	dir := dataDir
	if dir == "" {
		dir = config.DefaultDataDir
	}
	return storage.New(dir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runsMeta, err := openStore().List()
	if err != nil {
		return err
	}

	if len(runsMeta) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tPOLICY\tTIME\tSTEPS\tREWARD\tFELL")
	for _, run := range runsMeta {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.0f\t%v\n",
			run.ID,
			run.Preset,
			run.Policy,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.TotalReward,
			run.Terminated,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := openStore().Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run:        %s\n", meta.ID)
	fmt.Printf("preset:     %s\n", meta.Preset)
	fmt.Printf("policy:     %s\n", meta.Policy)
	fmt.Printf("time:       %s\n", meta.Timestamp.Format(time.RFC3339))
	fmt.Printf("seed:       %d\n", meta.Seed)
	fmt.Printf("steps:      %d (fell: %v)\n", meta.Steps, meta.Terminated)
	fmt.Printf("reward:     %.0f\n", meta.TotalReward)
	fmt.Printf("integrator: %s  tau: %gs  force: %gN\n", meta.Env.Integrator, meta.Env.Tau, meta.Env.ForceMag)

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, meta.Metrics[name])
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := openStore()
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	ep, err := st.LoadEpisode(runID)
	if err != nil {
		return err
	}
	if len(ep.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(ep.States))

	captions := []struct {
		idx   int
		label string
		scale float64
	}{
		{dynamo.IdxX, "cart position (m)", 1},
		{dynamo.IdxXDot, "cart velocity (m/s)", 1},
		{dynamo.IdxTheta, "pole angle (deg)", 180 / math.Pi},
		{dynamo.IdxThetaDot, "pole angular velocity (deg/s)", 180 / math.Pi},
	}
	for _, c := range captions {
		data := make([]float64, len(ep.States))
		for i, s := range ep.States {
			data[i] = s[c.idx] * c.scale
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(c.label),
		))
		fmt.Println()
	}

	if pngDir != "" {
		files, err := export.SaveEpisodePlots(pngDir, ep)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println("wrote", f)
		}
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := openStore()
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	ep, err := st.LoadEpisode(runID)
	if err != nil {
		return err
	}

	if format == "png" {
		if outPath == "" {
			return errors.New("png export needs --out directory")
		}
		files, err := export.SaveEpisodePlots(outPath, ep)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println("wrote", f)
		}
		return nil
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return export.WriteJSON(w, meta.Preset, ep)
	case "csv":
		return export.WriteCSV(w, ep)
	case "svg":
		if xAxis >= dynamo.StateSize || yAxis < 0 || yAxis >= dynamo.StateSize {
			return fmt.Errorf("axes must be state indices below %d", dynamo.StateSize)
		}
		_, err := io.WriteString(w, export.TrajectorySVG(export.Series(ep, xAxis, yAxis), 800, 400, "#00ffff"))
		return err
	case "scene":
		scene := render.DefaultScene(ep.Config.XThreshold, ep.Config.PoleHalfLength)
		_, err := io.WriteString(w, export.SceneSVG(scene, ep.Final()))
		return err
	case "meta":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}
	return fmt.Errorf("unknown format: %s", format)
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = integrators.Names()
	}
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	base := config.DefaultConfig()
	if preset != "" {
		if base = config.GetPreset(preset); base == nil {
			return fmt.Errorf("unknown preset: %s", preset)
		}
	}
	start := dynamo.State{0, 0, theta0, 0, 0}

	fmt.Printf("comparing integrators (tau=%.4f, steps=%d, policy=%s, theta0=%.3f)\n\n", base.Env.Tau, steps, policy, theta0)
	fmt.Printf("%-14s  %-10s  %-10s  %-12s  %-12s  %-10s\n", "integrator", "final_x", "final_th", "energy_drift", "max_dth_ref", "time_ms")
	fmt.Println(strings.Repeat("-", 78))

	var ref *sim.Episode
	for _, name := range names {
		cfg := base.Env
		cfg.Integrator = name
		eng, err := env.New(cfg, env.WithRandSource(rand.New(rand.NewSource(1))), env.WithLogger(logger))
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}
		if _, err := eng.ResetTo(start); err != nil {
			return err
		}
		ctrl, err := control.Switch(policy, base.PolicyParams, rand.New(rand.NewSource(1)))
		if err != nil {
			return err
		}

		runner := sim.NewRunner(logger)
		runner.AddMetric(metrics.NewEnergyDrift(eng.Dynamics()))

		t0 := time.Now()
		ep, err := runner.Run(context.Background(), eng, ctrl, sim.RunConfig{MaxSteps: steps})
		elapsed := time.Since(t0)
		if err != nil {
			fmt.Printf("%-14s  error: %v\n", name, err)
			continue
		}
		if ref == nil {
			ref = ep
		}

		final := ep.Final()
		fmt.Printf("%-14s  %10.5f  %10.5f  %12.2e  %12.2e  %10.2f\n",
			name, final[dynamo.IdxX], final[dynamo.IdxTheta],
			ep.Metrics["energy_drift"], divergence(ref, ep), float64(elapsed.Microseconds())/1000)
	}
	return nil
}

// divergence is the largest pole-angle gap between two episodes over their
// common length.
func divergence(a, b *sim.Episode) float64 {
	n := len(a.States)
	if len(b.States) < n {
		n = len(b.States)
	}
	worst := 0.0
	for i := 0; i < n; i++ {
		d := math.Abs(dynamo.WrapAngle(a.States[i][dynamo.IdxTheta] - b.States[i][dynamo.IdxTheta]))
		worst = math.Max(worst, d)
	}
	return worst
}

// runConfig bounds episodes by cfg and feeds the --mouse target at
// --mouse-step when one is set.
func runConfig(cfg *config.Config) sim.RunConfig {
	rc := sim.RunConfig{MaxSteps: cfg.MaxSteps, StopOnBounds: cfg.StopOnBounds}
	if mouseStep >= 0 {
		target, at := mouseTarget, mouseStep
		rc.Mouse = func(step int) (float64, bool) {
			return target, step == at
		}
	}
	return rc
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	ep, err := st.LoadEpisode(args[0])
	if err != nil {
		return err
	}
	if len(ep.States) < 4 {
		return fmt.Errorf("run %s is too short to analyze", meta.ID)
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("policy: %s  samples: %d  tau: %gs\n\n", meta.Policy, len(ep.States), ep.Config.Tau)

	theta := make([]float64, len(ep.States))
	x := make([]float64, len(ep.States))
	for i, s := range ep.States {
		theta[i] = s[dynamo.IdxTheta]
		x[i] = s[dynamo.IdxX]
	}

	ps := analysis.PowerSpectrum(theta)
	plotData := ps
	if len(ps) > 8 {
		plotData = ps[:len(ps)/2]
	}
	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum (pole angle)"),
	))
	fmt.Println()

	for _, sig := range []struct {
		name string
		data []float64
	}{{"pole angle", theta}, {"cart position", x}} {
		freq, _ := analysis.DominantFrequency(sig.data, ep.Config.Tau)
		fmt.Printf("%s dominant frequency: %.3f hz", sig.name, freq)
		if freq > 0 {
			fmt.Printf("  period: %.3f s", 1/freq)
		}
		fmt.Println()
	}

	if lyapSteps > 0 && meta.Policy != "random" && meta.Policy != "manual" {
		build := func() (dynamo.Controller, error) {
			return control.Build(meta.Policy, meta.PolicyParams, nil)
		}
		lambda, err := analysis.LyapunovExponent(ep.Config, build, ep.States[0], lyapSteps, 1e-7)
		if err != nil {
			return err
		}
		fmt.Printf("largest lyapunov exponent: %.4f /s\n", lambda)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	portrait, err := analysis.NewPhasePortrait(states, xAxis, yAxis)
	if err != nil {
		return err
	}
	labels := []string{"x", "ẋ", "θ", "θ̇", "mouse"}
	minX, maxX, minY, maxY := portrait.Bounds()

	fmt.Printf("phase space plot: %s\n", meta.ID)
	fmt.Printf("x-axis: %s [%.3f, %.3f]  y-axis: %s [%.3f, %.3f]\n\n",
		labels[xAxis], minX, maxX, labels[yAxis], minY, maxY)
	fmt.Print(portrait.ASCII(70, 20))
	fmt.Printf("\nLegend: . = early, o = middle, • = late\n")
	return nil
}

func printSummaryHeader(w io.Writer, first string) {
	fmt.Fprintf(w, "%s\tEPISODES\tMEAN_STEPS\tMEAN_REWARD\tFALL_RATE\tSTABILITY\tMAX_ANGLE\n", first)
}

func printSummary(w io.Writer, first string, s automation.Summary) {
	fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\t%.2f\t%.3f\t%.3f\n",
		first, s.Episodes, s.MeanSteps, s.MeanReward, s.FallRate,
		s.Metrics["stability"], s.Metrics["max_angle"])
}

func runScenario(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	dir := dataDir
	if dir == "" {
		dir = config.DefaultDataDir
	}
	store := storage.New(dir)
	if err := store.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Printf("%s\n", scenario.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(ctx, scenario, store, logger)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printSummaryHeader(w, "STEP")
	for i, r := range results {
		name := r.Step.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		printSummary(w, name, r.Summary)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: args[0],
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
		Runs:      runs,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("sweep %s with %s, %d episode(s) per value\n\n", args[0], cfg.Policy, runs)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	printSummaryHeader(w, strings.ToUpper(args[0]))
	for _, r := range results {
		printSummary(w, fmt.Sprintf("%g", r.ParamValue), r.Summary)
	}
	return w.Flush()
}

// parseGrid reads repeated param=v1,v2 flags.
func parseGrid(specs []string) (map[string][]float64, error) {
	grid := make(map[string][]float64, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, fmt.Errorf("bad grid %q, want param=v1,v2", spec)
		}
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("grid %s: %w", name, err)
			}
			grid[name] = append(grid[name], v)
		}
	}
	return grid, nil
}

// score maps a summary onto a value to minimize.
func score(s automation.Summary, objective string) (float64, error) {
	switch objective {
	case "reward":
		return -s.MeanReward, nil
	case "steps":
		return -s.MeanSteps, nil
	}
	name, maximize := strings.CutPrefix(objective, "-")
	v, ok := s.Metrics[name]
	if !ok {
		return 0, fmt.Errorf("unknown objective: %s", objective)
	}
	if maximize {
		return -v, nil
	}
	return v, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	grid, err := parseGrid(gridSpecs)
	if err != nil {
		return err
	}
	search, err := optim.ParseGrid(grid)
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rc := runConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("tuning %s over %d combinations, objective %s\n\n", cfg.Policy, search.Size(), objective)
	best, bestScore, trials, err := search.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		trial := cfg.Clone()
		trial.PolicyParams = make(map[string]float64, len(cfg.PolicyParams)+len(params))
		for k, v := range cfg.PolicyParams {
			trial.PolicyParams[k] = v
		}
		for k, v := range params {
			trial.PolicyParams[k] = v
		}
		episodes, err := automation.NewEnsemble(trial, runs, logger).Run(ctx, rc)
		if err != nil {
			return 0, err
		}
		return score(automation.Summarize(episodes), objective)
	})

	names := make([]string, 0, len(grid))
	for n := range grid {
		names = append(names, n)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSCORE\n", strings.ToUpper(strings.Join(names, "\t")))
	for _, tr := range trials {
		vals := make([]string, len(names))
		for i, n := range names {
			vals[i] = fmt.Sprintf("%g", tr.Params[n])
		}
		result := fmt.Sprintf("%.4f", tr.Score)
		if tr.Err != nil {
			result = "error: " + tr.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(vals, "\t"), result)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nbest (score %.4f):", bestScore)
	for _, n := range names {
		fmt.Printf(" %s=%g", n, best[n])
	}
	fmt.Println()
	return nil
}
