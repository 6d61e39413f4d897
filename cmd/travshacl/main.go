package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/config"
	"github.com/SDM-TIB/Trav-SHACL/shacl/endpoint"
	"github.com/SDM-TIB/Trav-SHACL/shacl/query"
	"github.com/SDM-TIB/Trav-SHACL/shacl/report"
	"github.com/SDM-TIB/Trav-SHACL/shacl/schema"
	"github.com/SDM-TIB/Trav-SHACL/shacl/traversal"
	"github.com/SDM-TIB/Trav-SHACL/shacl/validation"
)

// flags mirrors config.Config one-to-one for the values a run can also
// override on the command line; zero values mean "not set" so Load's
// YAML values survive when a flag wasn't passed.
type flags struct {
	configFile  string
	maxSplit    int
	traversal   string
	heuristics  []string
	selective   bool
	orderBy     bool
	saveOutputs bool
	useJSON     bool
	verbose     bool
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:   "travshacl <endpoint> <output-dir>",
		Short: "Validate a SHACL-like shape schema against a SPARQL endpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f, args[0], args[1])
		},
	}

	root.Flags().StringVarP(&f.configFile, "schema-dir", "d", "", "directory of shape JSON files (or a YAML config naming one)")
	root.Flags().IntVarP(&f.maxSplit, "max-split", "m", 0, "max instances per split query (default 256)")
	root.Flags().StringVar(&f.traversal, "traversal", "", "BFS or DFS (default BFS)")
	root.Flags().StringArrayVar(&f.heuristics, "heuristics", nil, "repeatable: TARGET|IN|OUT|INOUT|OUTIN|SMALL|BIG")
	root.Flags().BoolVar(&f.selective, "selective", false, "filter target retrieval against already-validated neighbours")
	root.Flags().BoolVar(&f.orderBy, "orderby", false, "append ORDER BY to target queries")
	root.Flags().BoolVar(&f.saveOutputs, "outputs", false, "persist logs, stats.txt, traces.csv and validationReport.ttl")
	root.Flags().BoolVar(&f.useJSON, "json", false, "load shapes via the legacy JSON fixture format")
	root.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log phase-boundary and saturation diagnostics")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "travshacl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, endpointURL, outputDir string) error {
	cfg := config.Default()
	if f.configFile != "" {
		if info, err := os.Stat(f.configFile); err == nil && !info.IsDir() {
			loaded, err := config.Load(f.configFile)
			if err != nil {
				return err
			}
			cfg = loaded
		} else {
			cfg.SchemaDir = f.configFile
		}
	}
	cfg.Endpoint = endpointURL
	cfg.OutputDir = outputDir
	applyFlagOverrides(&cfg, f)

	if err := cfg.Validate(); err != nil {
		return err
	}

	inputs, err := schema.Load(cfg.SchemaDir)
	if err != nil {
		return fmt.Errorf("loading shapes: %w", err)
	}
	sch, err := schema.Build(inputs)
	if err != nil {
		return fmt.Errorf("building schema: %w", err)
	}

	alg := traversal.BFS
	if cfg.GraphTraversal == config.DFS {
		alg = traversal.DFS
	}
	h := heuristicsFromConfig(cfg.Heuristics)
	order := traversal.NewPlanner(alg, h).Order(sch)

	planner := query.NewPlanner()
	plans := make(map[shacl.ShapeHandle]*query.Plan, len(order))
	var handles []shacl.ShapeHandle
	for _, s := range order {
		if cfg.OrderBy {
			s.OrderBy = true
		}
		plan, err := planner.PlanShape(sch, s)
		if err != nil {
			return fmt.Errorf("planning shape %q: %w", s.Name, err)
		}
		plans[s.ID] = plan
		handles = append(handles, s.ID)
	}

	ep := endpoint.Endpoint(endpoint.NewRemoteEndpoint(cfg.Endpoint, nil))

	var tracer validation.Tracer
	csvTracer := report.NewTracer()
	printer := report.NewConsolePrinter(os.Stdout)
	tracer = report.MultiTracer{csvTracer, printer}

	var log *logrus.Entry
	if f.verbose {
		logger := logrus.New()
		logger.SetLevel(logrus.DebugLevel)
		log = logger.WithField("component", "validation")
	}

	eng := validation.NewEngine(sch, plans, handles, ep, validation.Options{
		Selective:       cfg.Selective,
		FilterThreshold: cfg.MaxSplitSize,
	}, tracer, log)

	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		return fmt.Errorf("validating: %w", err)
	}
	elapsed := time.Since(start)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %q: %w", outputDir, err)
	}

	if !cfg.SaveOutputs {
		return printSummary(eng, elapsed)
	}

	if err := report.WriteTargetLogs(outputDir, sch); err != nil {
		return err
	}
	if err := report.WriteStats(outputDir, eng.Stats(), elapsed); err != nil {
		return err
	}
	if err := report.WriteValidationReport(outputDir, sch); err != nil {
		return err
	}
	if err := csvTracer.Flush(outputDir); err != nil {
		return err
	}
	return printSummary(eng, elapsed)
}

// printSummary writes each shape's valid and violated counts (the
// figures stats.txt tabulates) to stdout as plain lines, so a run
// without --outputs still reports its result.
func printSummary(eng *validation.Engine, elapsed time.Duration) error {
	fmt.Println()
	for _, s := range eng.Stats() {
		fmt.Printf("%s: %d valid, %d violated\n", s.Name, s.Valid, s.Violated)
	}
	fmt.Printf("done in %s\n", elapsed.Round(time.Millisecond))
	return nil
}

func applyFlagOverrides(cfg *config.Config, f flags) {
	if f.maxSplit > 0 {
		cfg.MaxSplitSize = f.maxSplit
	}
	switch f.traversal {
	case "BFS":
		cfg.GraphTraversal = config.BFS
	case "DFS":
		cfg.GraphTraversal = config.DFS
	}
	if len(f.heuristics) > 0 {
		cfg.Heuristics = nil
		for _, h := range f.heuristics {
			cfg.Heuristics = append(cfg.Heuristics, config.Heuristic(h))
		}
	}
	if f.selective {
		cfg.Selective = true
	}
	if f.orderBy {
		cfg.OrderBy = true
	}
	if f.saveOutputs {
		cfg.SaveOutputs = true
	}
	if f.useJSON {
		cfg.UseJSON = true
	}
}

func heuristicsFromConfig(hs []config.Heuristic) traversal.Heuristics {
	var out traversal.Heuristics
	for _, h := range hs {
		switch h {
		case config.HeuristicTarget:
			out.Target = true
		case config.HeuristicIn:
			out.Degree = traversal.DegreeIn
		case config.HeuristicOut:
			out.Degree = traversal.DegreeOut
		case config.HeuristicInOut:
			out.Degree = traversal.DegreeInOut
		case config.HeuristicOutIn:
			out.Degree = traversal.DegreeOutIn
		case config.HeuristicSmall:
			out.Properties = traversal.PropertiesSmall
		case config.HeuristicBig:
			out.Properties = traversal.PropertiesBig
		}
	}
	return out
}
