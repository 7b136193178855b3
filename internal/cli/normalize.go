package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bufgate/bufgate/internal/audit"
	"github.com/bufgate/bufgate/internal/canon"
)

var (
	normalizeOutput string
	normalizeHash   bool
)

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "Write canonical form to this file instead of stdout")
	normalizeCmd.Flags().BoolVar(&normalizeHash, "hash", false, "Print only the canonical digest")
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>",
	Short: "Print the canonical form of a payload",
	Long: "Canonicalizes the payload without running the gate: UTF-8 validation,\n" +
		"NFC normalization, escape reduction, whitespace collapse, and case\n" +
		"folding for text; sorted-key minimal re-serialization for JSON.",
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func runNormalize(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	canonical, err := canon.Canonicalize(data)
	if err != nil {
		return fmt.Errorf("canonicalize %s: %w", filepath.Base(args[0]), err)
	}

	if normalizeHash {
		fmt.Println(audit.Sum(canonical))
		return nil
	}

	if normalizeOutput == "" {
		_, err := os.Stdout.Write(canonical)
		return err
	}

	tmp := normalizeOutput + ".tmp"
	if err := os.WriteFile(tmp, canonical, 0600); err != nil {
		return fmt.Errorf("write canonical form: %w", err)
	}
	if err := os.Rename(tmp, normalizeOutput); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write canonical form: %w", err)
	}
	return nil
}
