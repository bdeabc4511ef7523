package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/they4kman/equationfinder/simulation"
)

var version = "dev"

var (
	configPath  string
	logLevel    string
	logFormat   string
	outputFmt   string
	progress    bool
	metricsAddr string

	// Defaults of the simulation flags. Only flags set on the command line
	// override the config file.
	flagParams = simulation.DefaultSimulationParams()

	rootCmd = &cobra.Command{
		Use:   "equationfinder",
		Short: "Search for closed-form expressions that fit a data table",
		Long: `equationfinder evolves expressions with gene expression programming and fits
their free parameters against the data of a problem file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	searchCmd = &cobra.Command{
		Use:   "search <problem file>",
		Short: "Evolve an expression for a problem, or fit the one it names",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	fitCmd = &cobra.Command{
		Use:   "fit <problem file> [expression]",
		Short: "Fit the free parameters of a given expression",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runFit,
	}

	decodeCmd = &cobra.Command{
		Use:   "decode <gene>...",
		Short: "Print the expression a chromosome encodes",
		Example: `  equationfinder decode --inputs x --head 2 + '*' p1 x p0
  ((x*p0)+p1)`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDecode,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
)

var (
	decodeInputs []string
	decodeHead   int
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides the config file)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides the config file)")

	for _, cmd := range []*cobra.Command{searchCmd, fitCmd} {
		f := cmd.Flags()
		f.StringVarP(&outputFmt, "format", "f", "", "Report format: text, json or yaml (overrides the config file)")
		f.BoolVar(&progress, "progress", false, "Print a line per generation to stderr")
		f.StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address while running")
	}

	p := flagParams
	f := searchCmd.Flags()
	f.IntVar(&p.PopulationSize, "population-size", p.PopulationSize, "Number of chromosomes in the initial population")
	f.IntVar(&p.HeadLength, "head-length", p.HeadLength, "Number of genes in each chromosome's head")
	f.IntVar(&p.MaxParameters, "max-parameters", p.MaxParameters, "Number of distinct parameter symbols p0..pN-1")
	f.IntVar(&p.MaxGenerations, "max-generations", p.MaxGenerations, "Maximum number of breeding generations")
	f.Float64Var(&p.FitnessThreshold, "fitness-threshold", p.FitnessThreshold, "Stop once the best fitness drops below this")
	f.Float64Var(&p.MatingRatio, "mating-ratio", p.MatingRatio, "Fraction of distinct expressions entering a tournament")
	f.IntVar(&p.SelectionPressure, "selection-pressure", p.SelectionPressure, "Contestants per tournament")
	f.Float64Var(&p.MutationProbability, "mutation", p.MutationProbability, "Probability of a mutation")
	f.Float64Var(&p.InversionProbability, "inversion", p.InversionProbability, "Probability of an inversion")
	f.Float64Var(&p.TranspositionProbability, "transposition", p.TranspositionProbability, "Probability of a transposition")
	f.Float64Var(&p.OnePointProbability, "one-point", p.OnePointProbability, "Probability of a one-point recombination")
	f.Float64Var(&p.TwoPointProbability, "two-point", p.TwoPointProbability, "Probability of a two-point recombination")
	f.IntVar(&p.MinFreeParameters, "min-free-parameters", p.MinFreeParameters, "Expressions with fewer free parameters are not evaluated")
	f.IntVar(&p.Immigrants, "immigrants", p.Immigrants, "Fresh random chromosomes added to each generation")
	f.StringSliceVar(&p.Operators, "operators", p.Operators, "Operators allowed in heads (default: all)")

	for _, cmd := range []*cobra.Command{searchCmd, fitCmd} {
		f := cmd.Flags()
		f.IntVar(&p.MaxEvaluations, "max-evaluations", p.MaxEvaluations, "Objective evaluations allowed per parameter fit")
		f.IntVar(&p.NumEvaluationWorkers, "workers", p.NumEvaluationWorkers, "Number of goroutines fitting expressions. Set to 0 to disable concurrency.")
		f.IntVar(&p.CacheSize, "cache-size", p.CacheSize, "Fitted expressions remembered across generations. Set to 0 to disable.")
		f.Int64Var(&p.Seed, "seed", p.Seed, "Random seed (0 picks one from the clock)")
	}

	decodeCmd.Flags().StringSliceVar(&decodeInputs, "inputs", nil, "Input variable names")
	decodeCmd.Flags().IntVar(&decodeHead, "head", 0, "Head length (default: derived from the gene count and the widest operator)")
	decodeCmd.Flags().IntVar(&p.MaxParameters, "max-parameters", p.MaxParameters, "Number of distinct parameter symbols p0..pN-1")
	decodeCmd.Flags().StringSliceVar(&p.Operators, "operators", p.Operators, "Operators of the alphabet (default: all)")

	rootCmd.AddCommand(searchCmd, fitCmd, decodeCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
