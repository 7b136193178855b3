package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/gate"
	"github.com/bufgate/bufgate/internal/metrics"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

var (
	validateAlpha       float64
	validateBeta        float64
	validateLevel       string
	validateLimit       string
	validateAuditLog    string
	validateMetricsFile string
	validateJSON        bool
)

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Float64Var(&validateAlpha, "alpha", 0, "Complexity weight (overrides policy)")
	validateCmd.Flags().Float64Var(&validateBeta, "beta", 0, "Divergence weight (overrides policy)")
	validateCmd.Flags().StringVar(&validateLevel, "level", "standard", "Buffer security level (standard|high|critical)")
	validateCmd.Flags().StringVar(&validateLimit, "limit", "", "Maximum acceptable zone (overrides policy)")
	validateCmd.Flags().StringVar(&validateAuditLog, "audit-log", "", "Path to audit trail JSONL (overrides policy)")
	validateCmd.Flags().StringVar(&validateMetricsFile, "metrics-file", "", "Prometheus textfile path (overrides policy)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Emit the report as JSON")
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Run a payload through the validation gate",
	Long: "Loads the payload into a locked buffer and runs the full gate:\n" +
		"canonicalization, digest verification, cost evaluation, and zone\n" +
		"classification against the policy limit.\n\n" +
		"Exit code 0 if the payload passes, 1 if it is rejected.",
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

// validateReport is the fixed-field result written by the validate
// command. Scalars only, deterministic field order.
type validateReport struct {
	File   string  `json:"file"`
	Status string  `json:"status"`
	Code   string  `json:"code,omitempty"`
	Error  string  `json:"error,omitempty"`
	Cost   float64 `json:"cost"`
	Zone   string  `json:"zone,omitempty"`
	Digest string  `json:"digest,omitempty"`
	Length int     `json:"length"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, hash, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("alpha") {
		cfg.Weights.Alpha = validateAlpha
	}
	if cmd.Flags().Changed("beta") {
		cfg.Weights.Beta = validateBeta
	}
	if validateLimit != "" {
		cfg.ZoneLimit = validateLimit
	}
	if validateAuditLog != "" {
		cfg.Audit.Log = validateAuditLog
	}
	if validateMetricsFile != "" {
		cfg.Metrics.Textfile = validateMetricsFile
	}

	level, err := model.ParseLevel(validateLevel)
	if err != nil {
		return err
	}

	pol, err := policy.Init(*cfg, true)
	if err != nil {
		return fmt.Errorf("install policy: %w", err)
	}
	defer func() { _ = policy.Cleanup() }()
	_ = pol.SetContext("config_hash", hash)

	validator, err := gate.New(gate.FromPolicy(pol), policy.Trail(), pol)
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}
	defer validator.Destroy()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	buf := buffer.New(level)
	defer buf.Destroy()

	report := validateReport{File: filepath.Base(args[0])}
	res, verr := runGate(validator, buf, data)
	if verr != nil {
		code, _ := model.CodeOf(verr)
		report.Status = "FAIL"
		report.Code = code.String()
		report.Error = verr.Error()
		report.Cost = buf.Cost()
		if buf.Cost() > 0 {
			report.Zone = buf.Zone().String()
		}
		report.Length = len(data)
	} else {
		report.Status = "PASS"
		report.Cost = res.Cost
		report.Zone = res.Zone.String()
		report.Digest = res.Digest.String()
		report.Length = res.Length
	}

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: metrics textfile: %v\n", err)
		}
	}

	printReport(report)
	if verr != nil {
		os.Exit(1)
	}
	return nil
}

// runGate stages the payload and validates it. Split out so SetData
// failures are reported the same way as gate rejections.
func runGate(v *gate.Validator, buf *buffer.Buffer, data []byte) (gate.Result, error) {
	if err := buf.SetData(data); err != nil {
		return gate.Result{}, err
	}
	return v.Validate(buf)
}

func printReport(r validateReport) {
	if validateJSON {
		out, _ := json.MarshalIndent(r, "", "  ")
		fmt.Println(string(out))
		return
	}
	if r.Status == "PASS" {
		fmt.Printf("%s: PASS\n", r.File)
		fmt.Printf("  cost:   %.4f\n", r.Cost)
		fmt.Printf("  zone:   %s\n", r.Zone)
		fmt.Printf("  digest: %s\n", r.Digest)
		fmt.Printf("  length: %d\n", r.Length)
		return
	}
	fmt.Printf("%s: FAIL (%s)\n", r.File, r.Code)
	fmt.Printf("  error:  %s\n", r.Error)
	if r.Zone != "" {
		fmt.Printf("  cost:   %.4f\n", r.Cost)
		fmt.Printf("  zone:   %s\n", r.Zone)
	}
}
