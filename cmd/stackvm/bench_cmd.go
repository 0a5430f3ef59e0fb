package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/stackvm"
	"github.com/deepnoodle-ai/stackvm/bytecode"
)

// benchResult holds benchmark statistics
type benchResult struct {
	Iterations    int     `json:"iterations"`
	Warmup        int     `json:"warmup"`
	Instructions  int     `json:"instructions"`
	TotalNs       int64   `json:"total_ns"`
	TotalDuration string  `json:"total_duration"`
	OpsPerSec     float64 `json:"ops_per_sec"`
	MinNs         int64   `json:"min_ns"`
	MaxNs         int64   `json:"max_ns"`
	AvgNs         int64   `json:"avg_ns"`
	MedianNs      int64   `json:"median_ns"`
	P95Ns         int64   `json:"p95_ns"`
	P99Ns         int64   `json:"p99_ns"`
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [file]",
		Short: "Benchmark the execution of a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchHandler,
	}
	addInputFlags(cmd)
	cmd.Flags().IntP("iterations", "n", 1000, "Number of measured runs")
	cmd.Flags().Int("warmup", 100, "Number of unmeasured warmup runs")
	cmd.Flags().StringP("output", "o", "text", "Output format (text, json)")
	return cmd
}

func benchHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	if err := validateFormat(format); err != nil {
		return err
	}
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations <= 0 {
		iterations = 1000
	}
	warmup, _ := cmd.Flags().GetInt("warmup")
	if warmup < 0 {
		warmup = 0
	}

	in, err := getInput(cmd, args)
	if err != nil {
		return err
	}
	program, err := stackvm.Assemble(in.source, stackvm.WithFilename(in.filename))
	if err != nil {
		return err
	}

	// The program is assembled once; every run shares it.
	run := func() (time.Duration, error) {
		start := time.Now()
		err := stackvm.Run(cmd.Context(), program, stackvm.WithOutput(io.Discard))
		return time.Since(start), err
	}
	if _, err := run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	for i := 0; i < warmup; i++ {
		if _, err := run(); err != nil {
			return err
		}
	}
	runtime.GC()

	durations := make([]time.Duration, iterations)
	for i := range durations {
		elapsed, err := run()
		if err != nil {
			return err
		}
		durations[i] = elapsed
	}
	result := summarize(program, durations, warmup)

	if strings.ToLower(format) == "json" {
		return printJSON(cmd, result)
	}
	printBench(cmd.OutOrStdout(), in.filename, result)
	return nil
}

// summarize computes statistics over the measured durations. It sorts
// durations in place.
func summarize(program *bytecode.Program, durations []time.Duration, warmup int) benchResult {
	slices.Sort(durations)
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	n := len(durations)
	percentile := func(p float64) time.Duration {
		return durations[min(int(float64(n)*p), n-1)]
	}
	result := benchResult{
		Iterations:    n,
		Warmup:        warmup,
		Instructions:  program.InstructionCount(),
		TotalNs:       total.Nanoseconds(),
		TotalDuration: total.Round(time.Microsecond).String(),
		MinNs:         durations[0].Nanoseconds(),
		MaxNs:         durations[n-1].Nanoseconds(),
		AvgNs:         (total / time.Duration(n)).Nanoseconds(),
		MedianNs:      durations[n/2].Nanoseconds(),
		P95Ns:         percentile(0.95).Nanoseconds(),
		P99Ns:         percentile(0.99).Nanoseconds(),
	}
	if total > 0 {
		result.OpsPerSec = float64(n) / total.Seconds()
	}
	return result
}

func printBench(w io.Writer, filename string, result benchResult) {
	round := func(ns int64) string {
		return time.Duration(ns).Round(time.Microsecond).String()
	}
	fmt.Fprintf(w, "%s %s\n", bold("benchmark"), filename)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	tw.AppendRows([]table.Row{
		{"Iterations", result.Iterations},
		{"Warmup", result.Warmup},
		{"Instructions", result.Instructions},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Total", result.TotalDuration},
		{"Ops/sec", fmt.Sprintf("%.2f", result.OpsPerSec)},
		{"Min", green(round(result.MinNs))},
		{"Max", round(result.MaxNs)},
		{"Avg", round(result.AvgNs)},
		{"Median", round(result.MedianNs)},
		{"p95", round(result.P95Ns)},
		{"p99", yellow(round(result.P99Ns))},
	})
	tw.Render()
}
