// Command allocmesh runs one allocation optimization described by a YAML
// config file and writes markdown reports. Logs go to stderr; the result
// summary goes to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/allocmesh"
	"github.com/hupe1980/allocmesh/config"
	"github.com/hupe1980/allocmesh/logging"
	"github.com/hupe1980/allocmesh/plant"
)

func main() {
	configPath := flag.String("config", "allocmesh.yaml", "path to the run config file")
	demand := flag.Int("demand", 0, "override the configured demand")
	reportsDir := flag.String("reports", "", "override the configured reports directory")
	flag.Parse()

	if err := run(*configPath, *demand, *reportsDir); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, plant.ErrInfeasible) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(configPath string, demand int, reportsDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if demand > 0 {
		cfg.Demand = demand
	}
	if reportsDir != "" {
		cfg.ReportsDir = reportsDir
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	mesh, err := allocmesh.New(cfg, func(o *allocmesh.Options) {
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := mesh.Optimize(ctx)
	if err != nil {
		return err
	}
	printOutcome(outcome)
	return nil
}

func printOutcome(outcome *allocmesh.Outcome) {
	result := outcome.Result
	best := result.Best()

	fmt.Printf("Run %s: %d iteration(s), stopped on %s\n",
		result.RunID, len(result.Iterations), result.ConvergenceReason)
	fmt.Printf("Best allocation (iteration %d), demand %d units:\n", best.Number, result.Demand)
	for _, name := range result.Machines.Names() {
		units := best.Allocation[name]
		if units == 0 {
			continue
		}
		m := result.Machines[name]
		fmt.Printf("  %-10s %6d units  (capacity %d, $%.2f/unit, $%.2f fixed)\n",
			name, units, m.Capacity, m.VariableCost, m.FixedCost)
	}
	fmt.Printf("Total cost: $%.2f (variable $%.2f, fixed $%.2f)\n",
		best.Cost.Total, best.Cost.Variable, best.Cost.Fixed)
	fmt.Printf("Greedy benchmark: $%.2f (heuristic comparison)\n", result.Benchmark.Total)
	if result.ImprovementPercent > 0 {
		fmt.Printf("Improvement over first iteration: %.1f%%\n", result.ImprovementPercent)
	}
	fmt.Println("Summary report:", outcome.Reports.Summary)
	if outcome.Reports.Detailed != "" {
		fmt.Println("Detailed report:", outcome.Reports.Detailed)
	}
}
