package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bufgate/bufgate/internal/buffer"
	"github.com/bufgate/bufgate/internal/gate"
	"github.com/bufgate/bufgate/internal/metrics"
	"github.com/bufgate/bufgate/internal/model"
)

// Result statuses written to the outbox.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
)

// Result is the per-payload verdict written to the outbox.
type Result struct {
	File        string  `json:"file"`
	Status      string  `json:"status"`
	Code        string  `json:"code,omitempty"`
	Error       string  `json:"error,omitempty"`
	Cost        float64 `json:"cost"`
	Zone        string  `json:"zone,omitempty"`
	Digest      string  `json:"digest,omitempty"`
	Length      int     `json:"length"`
	CompletedAt string  `json:"completed_at"`
}

// ProcessorConfig wires a processor to its directories and validator.
type ProcessorConfig struct {
	Dirs      DirConfig
	Validator *gate.Validator
	Level     model.SecurityLevel
}

// Processor runs one inbox payload through the gate and records the
// verdict. Safe for concurrent Process calls; each call owns its
// buffer and the shared validator is stateless.
type Processor struct {
	cfg ProcessorConfig
}

// NewProcessor creates a processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Process handles a single payload file through its full lifecycle:
// stat, read, move to processing, validate, write result, archive.
// Validation rejections are normal outcomes and return nil; only
// infrastructure faults surface as errors.
func (p *Processor) Process(_ context.Context, path string) error {
	// Reject symlinks before reading anything. An inbox symlink would
	// otherwise let an attacker feed arbitrary filesystem content
	// through the gate under an innocent name.
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat payload: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", filepath.Base(path))
	}
	base := filepath.Base(path)

	// Oversized files are rejected from the stat alone, without
	// pulling their content into memory.
	if fi.Size() > model.MaxBufferSize {
		res := &Result{
			File:        base,
			Status:      ResultRejected,
			Code:        model.CodeBufferOverflow.String(),
			Error:       fmt.Sprintf("%d bytes exceeds maximum %d", fi.Size(), model.MaxBufferSize),
			Length:      int(fi.Size()),
			CompletedAt: timestamp(),
		}
		if err := p.writeResult(res); err != nil {
			metrics.RecordFile("error")
			return fmt.Errorf("write result: %w", err)
		}
		metrics.RecordFile(ResultRejected)
		return moveFile(path, filepath.Join(p.cfg.Dirs.RejectedDir(), base))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		metrics.RecordFile("error")
		return fmt.Errorf("read payload: %w", err)
	}

	processingPath := filepath.Join(p.cfg.Dirs.ProcessingDir(), base)
	if err := moveFile(path, processingPath); err != nil {
		metrics.RecordFile("error")
		return fmt.Errorf("move to processing: %w", err)
	}

	buf := buffer.New(p.cfg.Level)
	defer buf.Destroy()

	res := &Result{File: base, CompletedAt: timestamp()}
	verr := buf.SetData(data)
	if verr == nil {
		var r gate.Result
		r, verr = p.cfg.Validator.Validate(buf)
		if verr == nil {
			res.Status = ResultAccepted
			res.Cost = r.Cost
			res.Zone = r.Zone.String()
			res.Digest = r.Digest.String()
			res.Length = r.Length
		}
	}
	if verr != nil {
		code, _ := model.CodeOf(verr)
		res.Status = ResultRejected
		res.Code = code.String()
		res.Error = verr.Error()
		res.Length = len(data)
	}

	if err := p.writeResult(res); err != nil {
		metrics.RecordFile("error")
		return fmt.Errorf("write result: %w", err)
	}

	dest := p.cfg.Dirs.AcceptedDir()
	if res.Status == ResultRejected {
		dest = p.cfg.Dirs.RejectedDir()
	}
	if err := moveFile(processingPath, filepath.Join(dest, base)); err != nil {
		metrics.RecordFile("error")
		return fmt.Errorf("archive payload: %w", err)
	}

	metrics.RecordFile(res.Status)
	return nil
}

// writeResult writes a result to the outbox atomically.
func (p *Processor) writeResult(r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	filename := r.File + ".result.json"
	tmpPath := filepath.Join(p.cfg.Dirs.Outbox, filename+".tmp")
	finalPath := filepath.Join(p.cfg.Dirs.Outbox, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
