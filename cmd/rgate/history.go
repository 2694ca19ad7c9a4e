package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/rgate/internal/persistence"
)

var (
	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	styleFail = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
)

func statusText(ok bool, text string) string {
	if ok {
		return styleOK.Render(text)
	}
	return styleFail.Render(text)
}

// history lists recorded runs. With --gate or --bench it shows one run in
// detail; with --benchmark it shows the results of one benchmark id.
func (a *app) history(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("history")
	limit := fs.Int("n", 10, "number of runs to list")
	gateID := fs.Int64("gate", 0, "show the gate run with this `id`")
	benchID := fs.Int64("bench", 0, "show the benchmark run with this `id`")
	benchmark := fs.String("benchmark", "", "show the recorded results of one benchmark `id`")
	if err := fs.Parse(args); err != nil {
		return 2, nil
	}

	if a.cfg.History.Disabled {
		return 1, fmt.Errorf("run history is disabled")
	}
	store, err := persistence.NewSQLiteStore(ctx, a.cfg.History.Path)
	if err != nil {
		return 1, err
	}
	defer store.Close()

	switch {
	case *gateID != 0:
		return a.showGateRun(ctx, store, *gateID)
	case *benchID != 0:
		return a.showBenchRun(ctx, store, *benchID)
	case *benchmark != "":
		return a.showBenchmark(ctx, store, *benchmark, *limit)
	}

	gates, err := store.ListGateRuns(ctx, *limit)
	if err != nil {
		return 1, err
	}
	benches, err := store.ListBenchRuns(ctx, *limit)
	if err != nil {
		return 1, err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GATE\tSTARTED\tDURATION\tRESULT")
	for _, r := range gates {
		result := statusText(r.ExitCode == 0, fmt.Sprintf("exit %d", r.ExitCode))
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.StartedAt.Local().Format(time.DateTime),
			r.StoppedAt.Sub(r.StartedAt).Round(time.Second), result)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "BENCH\tSTARTED\tBACKEND\tRESULT")
	for _, r := range benches {
		result := statusText(r.Failure == 0 && r.NotFound == 0, fmt.Sprintf("failure %d, not found %d", r.Failure, r.NotFound))
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.StartedAt.Local().Format(time.DateTime), r.Backend, result)
	}
	return 0, w.Flush()
}

func (a *app) showGateRun(ctx context.Context, store persistence.Store, id int64) (int, error) {
	run, err := store.GetGateRun(ctx, id)
	if err != nil {
		return 1, err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Gate run %d, %s, exit %d\n", run.ID, run.StartedAt.Local().Format(time.DateTime), run.ExitCode)
	for _, t := range run.Tasks {
		policy := ""
		if !t.Fatal {
			policy = " (non-fatal)"
		}
		fmt.Fprintf(w, "  %s\t%s%s\t%s\n", t.StoppedAt.Sub(t.StartedAt).Round(time.Second), t.Name, policy,
			statusText(t.Status == "passed", t.Status))
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	return 0, w.Flush()
}

func (a *app) showBenchRun(ctx context.Context, store persistence.Store, id int64) (int, error) {
	run, err := store.GetBenchRun(ctx, id)
	if err != nil {
		return 1, err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Benchmark run %d on %s, %s\n", run.ID, run.Backend, run.StartedAt.Local().Format(time.DateTime))
	for _, r := range run.Results {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", r.BenchmarkID, r.Duration.Round(time.Millisecond),
			statusText(r.Outcome == "passed", r.Outcome))
	}
	if run.Message != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Message)
	}
	return 0, w.Flush()
}

func (a *app) showBenchmark(ctx context.Context, store persistence.Store, id string, limit int) (int, error) {
	results, err := store.BenchmarkHistory(ctx, id, limit)
	if err != nil {
		return 1, err
	}
	if len(results) == 0 {
		return 1, fmt.Errorf("no recorded runs of benchmark %s", id)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tRECORDED\tBACKEND\tDURATION\tOUTCOME")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.RunID, r.RecordedAt.Local().Format(time.DateTime), r.Backend,
			r.Duration.Round(time.Millisecond), statusText(r.Outcome == "passed", r.Outcome))
	}
	return 0, w.Flush()
}
