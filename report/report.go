// Package report renders the outcome of an optimization run to markdown
// files. The summary is assembled locally from run data and always succeeds;
// the detailed narrative comes from a reporter agent and is best-effort: when
// the model is unavailable the run still ends with a summary on disk.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/hupe1980/allocmesh/agent"
	"github.com/hupe1980/allocmesh/logging"
	"github.com/hupe1980/allocmesh/orchestrator"
)

const timestampLayout = "20060102_150405"

// Files lists the report files written for a run. Detailed is empty when the
// narrative report could not be produced.
type Files struct {
	Summary  string
	Detailed string
}

// Options configure a Generator.
type Options struct {
	Logger logging.Logger
	Now    func() time.Time
}

// Generator writes run reports into a directory.
type Generator struct {
	dir      string
	reporter *agent.Agent // nil disables the detailed report
	logger   logging.Logger
	now      func() time.Time
}

// New creates a Generator writing into dir. reporter may be nil, in which
// case only summaries are produced.
func New(dir string, reporter *agent.Agent, optFns ...func(o *Options)) *Generator {
	opts := Options{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{dir: dir, reporter: reporter, logger: opts.Logger, now: opts.Now}
}

// Generate writes the summary report and, when a reporter agent is available,
// the detailed report. A reporter failure downgrades to summary-only and is
// logged, never returned: the optimization result must survive a missing
// narrative.
func (g *Generator) Generate(ctx context.Context, result *orchestrator.RunResult) (Files, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create report directory: %w", err)
	}
	ts := g.now().Format(timestampLayout)

	summary, err := Summary(result)
	if err != nil {
		return Files{}, fmt.Errorf("render summary: %w", err)
	}
	files := Files{Summary: filepath.Join(g.dir, "optimization_summary_"+ts+".md")}
	if err := os.WriteFile(files.Summary, []byte(summary), 0o644); err != nil {
		return Files{}, fmt.Errorf("write summary report: %w", err)
	}

	if g.reporter == nil {
		return files, nil
	}
	detailed, err := g.detailed(ctx, result, summary)
	if err != nil {
		g.logger.Warn("detailed report unavailable, keeping summary only",
			"run_id", result.RunID, "error", err.Error())
		return files, nil
	}
	path := filepath.Join(g.dir, "optimization_report_"+ts+".md")
	if err := os.WriteFile(path, []byte(detailed), 0o644); err != nil {
		g.logger.Warn("detailed report not written, keeping summary only",
			"run_id", result.RunID, "error", err.Error())
		return files, nil
	}
	files.Detailed = path
	return files, nil
}

func (g *Generator) detailed(ctx context.Context, result *orchestrator.RunResult, summary string) (string, error) {
	res, err := g.reporter.Execute(ctx, map[string]any{
		"summary":            summary,
		"demand":             result.Demand,
		"convergence_reason": result.ConvergenceReason,
		"best_cost":          fmt.Sprintf("%.2f", result.Best().Cost.Total),
		"iterations":         len(result.Iterations),
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Text) == "" {
		return "", fmt.Errorf("reporter returned an empty document")
	}
	return res.Text, nil
}

var summaryTemplate = template.Must(template.New("summary").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
}).Parse(`# Optimization Summary

- **Run ID:** {{.Result.RunID}}
- **Generated:** {{.Generated}}
- **Demand:** {{.Result.Demand}} units
- **Iterations:** {{len .Result.Iterations}}
- **Convergence:** {{.Result.ConvergenceReason}}
- **Best total cost:** {{money .Best.Cost.Total}} (iteration {{.Best.Number}})
- **Improvement over first iteration:** {{pct .Result.ImprovementPercent}}
- **Greedy benchmark:** {{money .Result.Benchmark.Total}} (heuristic comparison, not an optimality proof)

## Best Allocation

| Machine | Units | Capacity | Utilization | Variable Cost | Fixed Cost |
|---------|------:|---------:|------------:|--------------:|-----------:|
{{range .Rows}}| {{.Name}} | {{.Units}} | {{.Capacity}} | {{pct .Utilization}} | {{money .Variable}} | {{money .Fixed}} |
{{end}}
## Cost Breakdown

- Variable: {{money .Best.Cost.Variable}}
- Fixed: {{money .Best.Cost.Fixed}}
- **Total: {{money .Best.Cost.Total}}**

## Iteration Journey

| Iteration | Total Cost | Approvals | Model Verified | Reasoning |
|----------:|-----------:|----------:|:--------------:|-----------|
{{range .Result.Iterations}}| {{.Number}} | {{money .Cost.Total}} | {{.Approvals}} | {{if .ModelVerified}}yes{{else}}no{{end}} | {{.Reasoning}} |
{{end}}{{if .Concerns}}
## Expert Concerns

{{range .Concerns}}- {{.}}
{{end}}{{end}}`))

type summaryRow struct {
	Name        string
	Units       int
	Capacity    int
	Utilization float64
	Variable    float64
	Fixed       float64
}

type summaryData struct {
	Result    *orchestrator.RunResult
	Best      orchestrator.Iteration
	Generated string
	Rows      []summaryRow
	Concerns  []string
}

// Summary renders the locally assembled markdown summary for a run.
func Summary(result *orchestrator.RunResult) (string, error) {
	best := result.Best()

	var rows []summaryRow
	for _, name := range result.Machines.Names() {
		units := best.Allocation[name]
		if units == 0 {
			continue
		}
		m := result.Machines[name]
		rows = append(rows, summaryRow{
			Name:        name,
			Units:       units,
			Capacity:    m.Capacity,
			Utilization: float64(units) / float64(m.Capacity) * 100,
			Variable:    m.VariableCost * float64(units),
			Fixed:       m.FixedCost,
		})
	}

	var concerns []string
	for _, f := range best.Feedback {
		for _, c := range f.Concerns {
			concerns = append(concerns, fmt.Sprintf("%s: %s", f.Expert, c))
		}
	}

	var b strings.Builder
	err := summaryTemplate.Execute(&b, summaryData{
		Result:    result,
		Best:      best,
		Generated: best.Timestamp.Format("2006-01-02 15:04:05"),
		Rows:      rows,
		Concerns:  concerns,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
