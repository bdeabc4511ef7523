package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/they4kman/equationfinder/config"
	"github.com/they4kman/equationfinder/gep"
	"github.com/they4kman/equationfinder/logging"
	"github.com/they4kman/equationfinder/problem"
	"github.com/they4kman/equationfinder/report"
	"github.com/they4kman/equationfinder/simulation"
)

type override func(dst, src *simulation.SimulationParams)

// paramOverrides copies each simulation flag onto the configured parameters
var paramOverrides = map[string]override{
	"population-size":     func(d, s *simulation.SimulationParams) { d.PopulationSize = s.PopulationSize },
	"head-length":         func(d, s *simulation.SimulationParams) { d.HeadLength = s.HeadLength },
	"max-parameters":      func(d, s *simulation.SimulationParams) { d.MaxParameters = s.MaxParameters },
	"max-generations":     func(d, s *simulation.SimulationParams) { d.MaxGenerations = s.MaxGenerations },
	"fitness-threshold":   func(d, s *simulation.SimulationParams) { d.FitnessThreshold = s.FitnessThreshold },
	"mating-ratio":        func(d, s *simulation.SimulationParams) { d.MatingRatio = s.MatingRatio },
	"selection-pressure":  func(d, s *simulation.SimulationParams) { d.SelectionPressure = s.SelectionPressure },
	"mutation":            func(d, s *simulation.SimulationParams) { d.MutationProbability = s.MutationProbability },
	"inversion":           func(d, s *simulation.SimulationParams) { d.InversionProbability = s.InversionProbability },
	"transposition":       func(d, s *simulation.SimulationParams) { d.TranspositionProbability = s.TranspositionProbability },
	"one-point":           func(d, s *simulation.SimulationParams) { d.OnePointProbability = s.OnePointProbability },
	"two-point":           func(d, s *simulation.SimulationParams) { d.TwoPointProbability = s.TwoPointProbability },
	"min-free-parameters": func(d, s *simulation.SimulationParams) { d.MinFreeParameters = s.MinFreeParameters },
	"immigrants":          func(d, s *simulation.SimulationParams) { d.Immigrants = s.Immigrants },
	"operators":           func(d, s *simulation.SimulationParams) { d.Operators = s.Operators },
	"max-evaluations":     func(d, s *simulation.SimulationParams) { d.MaxEvaluations = s.MaxEvaluations },
	"workers":             func(d, s *simulation.SimulationParams) { d.NumEvaluationWorkers = s.NumEvaluationWorkers },
	"cache-size":          func(d, s *simulation.SimulationParams) { d.CacheSize = s.CacheSize },
	"seed":                func(d, s *simulation.SimulationParams) { d.Seed = s.Seed },
}

// loadConfig reads --config when given and applies the flags set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	for name, apply := range paramOverrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			apply(&cfg.Simulation, flagParams)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("format") {
		cfg.Output.Format = outputFmt
	}
	if flags.Changed("progress") {
		cfg.Output.Progress = progress
	}
	if flags.Changed("metrics-addr") {
		cfg.Output.MetricsAddr = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is what search and fit share: a configured simulation and where
// its report goes
type session struct {
	cfg    *config.Config
	format report.Format
	logger *slog.Logger
	runID  string
	sim    *simulation.Simulation
	prob   *problem.Problem

	metricsServer *http.Server
}

func newSession(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	logger, runID := logging.New(cfg.Logging(cmd.ErrOrStderr()))

	prob, err := problem.Load(path)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, format: format, logger: logger, runID: runID, prob: prob}

	opts := []simulation.Option{simulation.WithLogger(logger)}
	if cfg.Output.Progress {
		opts = append(opts, simulation.WithObserver(report.Progress(cmd.ErrOrStderr())))
	}
	if cfg.Output.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, simulation.WithMetrics(simulation.NewMetrics(reg)))
		s.serveMetrics(cfg.Output.MetricsAddr, reg)
	}

	if s.sim, err = simulation.NewSimulation(&cfg.Simulation, prob, opts...); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	s.metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		s.logger.Info("serving metrics", "addr", addr)
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
}

func (s *session) close() {
	if s.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.metricsServer.Shutdown(ctx)
}

// finish writes the report. A cancelled run still reports the best result it
// reached, and is not a failure.
func (s *session) finish(w io.Writer, result *simulation.Result, err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		s.logger.Warn("interrupted, reporting the best result so far")
	}
	if result == nil {
		return err
	}
	return report.Write(w, s.format, report.New(s.runID, result))
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	var result *simulation.Result
	if s.prob.Expression != "" {
		result, err = s.sim.Fit(cmd.Context(), s.prob.Expression)
	} else {
		result, err = s.sim.Run(cmd.Context())
	}
	return s.finish(cmd.OutOrStdout(), result, err)
}

func runFit(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	text := s.prob.Expression
	if len(args) > 1 {
		text = args[1]
	}
	if text == "" {
		return fmt.Errorf("%s names no expression; pass one as an argument", args[0])
	}

	result, err := s.sim.Fit(cmd.Context(), text)
	return s.finish(cmd.OutOrStdout(), result, err)
}

func runDecode(cmd *cobra.Command, args []string) error {
	operators, err := gep.ParseOperators(flagParams.Operators)
	if err != nil {
		return err
	}
	alphabet, err := gep.NewAlphabet(decodeInputs, operators, flagParams.MaxParameters)
	if err != nil {
		return err
	}

	head := decodeHead
	if head == 0 {
		// head + head*(arity-1) + 1 genes
		arity := alphabet.MaxArity()
		if (len(args)-1)%arity != 0 {
			return fmt.Errorf("%d genes do not fit a head and tail for operators of arity %d; pass --head", len(args), arity)
		}
		head = (len(args) - 1) / arity
	}

	c, err := alphabet.ParseChromosome(args, head)
	if err != nil {
		return err
	}
	expr, err := alphabet.Expression(c)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), expr)
	return nil
}
