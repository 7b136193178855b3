package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bufgate/bufgate/internal/model"
)

func TestRecordAndExport(t *testing.T) {
	RecordPass(model.ZoneAutonomous, 0.3, 128)
	RecordFail(model.CodeValidationFailed)
	RecordFastPath()
	RecordFile("accepted")

	path := filepath.Join(t.TempDir(), "bufgate.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(raw)
	for _, want := range []string{
		`bufgate_gate_pass_total{zone="AUTONOMOUS"}`,
		`bufgate_gate_fail_total{code="VALIDATION_FAILED"}`,
		"bufgate_gate_fast_path_total",
		"bufgate_gate_cost_bucket",
		"bufgate_gate_payload_bytes_bucket",
		`bufgate_daemon_files_total{result="accepted"}`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %s in textfile output", want)
		}
	}
}

func TestWriteTextfileDisabled(t *testing.T) {
	if err := WriteTextfile(""); err != nil {
		t.Fatalf("empty path must be a no-op, got %v", err)
	}
}

func TestWriteTextfileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "bufgate.prom")
	RecordPass(model.ZoneWarning, 0.55, 64)
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected textfile at %s: %v", path, err)
	}
}

func TestGatherIsCumulative(t *testing.T) {
	RecordFail(model.CodeBufferOverflow)
	RecordFail(model.CodeBufferOverflow)

	families, err := registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "bufgate_gate_fail_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == "BUFFER_OVERFLOW" {
					found = true
					if m.GetCounter().GetValue() < 2 {
						t.Errorf("expected at least 2 overflow rejections, got %v", m.GetCounter().GetValue())
					}
				}
			}
		}
	}
	if !found {
		t.Fatal("expected a BUFFER_OVERFLOW series after recording")
	}
}
