package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/gate"
	"github.com/bufgate/bufgate/internal/metrics"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

var (
	benchIterations  int
	benchFile        string
	benchMetricsFile string
)

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 10000, "Number of gate runs")
	benchCmd.Flags().StringVar(&benchFile, "file", "", "Payload file (default: generated canonical text)")
	benchCmd.Flags().StringVar(&benchMetricsFile, "metrics-file", "", "Write the prometheus textfile after the run")
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure gate throughput",
	Long:  "Runs the full pipeline (canonicalize, hash, cost, classify) repeatedly\nover one payload and reports ops/sec and per-operation latency.\nNo audit trail is written.",
	RunE:  runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchIterations < 1 {
		return fmt.Errorf("iterations must be positive")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	pol, err := policy.New(*cfg, true)
	if err != nil {
		return fmt.Errorf("build policy: %w", err)
	}
	validator, err := gate.New(gate.FromPolicy(pol), nil, pol)
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}
	defer validator.Destroy()

	data := []byte(strings.TrimSpace(strings.Repeat("the quick brown fox jumps over the lazy dog ", 8)))
	if benchFile != "" {
		data, err = os.ReadFile(benchFile)
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
	}

	buf := buffer.New(model.LevelStandard)
	defer buf.Destroy()

	start := time.Now()
	for i := 0; i < benchIterations; i++ {
		if err := buf.SetData(data); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if _, err := validator.Validate(buf); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	perOp := elapsed / time.Duration(benchIterations)
	fmt.Printf("%d iterations over %d bytes in %v\n", benchIterations, len(data), elapsed.Round(time.Millisecond))
	fmt.Printf("%.0f ops/sec, %v per op\n", float64(benchIterations)/elapsed.Seconds(), perOp)

	if benchMetricsFile != "" {
		if err := metrics.WriteTextfile(benchMetricsFile); err != nil {
			return fmt.Errorf("metrics textfile: %w", err)
		}
		fmt.Printf("Metrics written to %s\n", benchMetricsFile)
	}
	return nil
}
