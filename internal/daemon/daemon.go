// Package daemon watches an inbox directory and runs every arriving
// payload through the validation gate, writing verdicts to an outbox
// and archiving originals under the state directory.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/bufgate/bufgate/internal/gate"
	"github.com/bufgate/bufgate/internal/metrics"
	"github.com/bufgate/bufgate/internal/model"
)

// metricsInterval is how often the textfile export refreshes while
// the daemon runs.
const metricsInterval = 30 * time.Second

// Config holds full daemon configuration.
type Config struct {
	Dirs         DirConfig
	Level        model.SecurityLevel
	PollMode     bool
	PollInterval time.Duration
	Debounce     time.Duration
	MetricsFile  string
}

// Daemon watches the inbox directory and processes payloads.
type Daemon struct {
	cfg       Config
	processor *Processor
}

// New creates a daemon with validated configuration.
func New(cfg Config, validator *gate.Validator) (*Daemon, error) {
	if cfg.Dirs.Inbox == "" || cfg.Dirs.Outbox == "" || cfg.Dirs.State == "" {
		return nil, fmt.Errorf("inbox, outbox, and state directories are required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = pollDefault
	}

	processor := NewProcessor(ProcessorConfig{
		Dirs:      cfg.Dirs,
		Validator: validator,
		Level:     cfg.Level,
	})

	return &Daemon{cfg: cfg, processor: processor}, nil
}

// Run starts the daemon. Blocks until ctx is cancelled. On startup it
// recovers orphaned processing files and drains payloads that arrived
// while the daemon was down.
func (d *Daemon) Run(ctx context.Context) error {
	if err := EnsureDirs(d.cfg.Dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	pidPath := filepath.Join(d.cfg.Dirs.State, "daemon.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	if err := d.recoverOrphans(); err != nil {
		return fmt.Errorf("recover orphans: %w", err)
	}

	handler := func(path string) {
		if err := d.processor.Process(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "[bufgate] process %s: %v\n", filepath.Base(path), err)
		}
	}

	if err := ScanExisting(d.cfg.Dirs.Inbox, handler); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	if d.cfg.MetricsFile != "" {
		go d.runMetricsSweeper(ctx)
	}

	if d.cfg.PollMode {
		pw := NewPollWatcher(d.cfg.Dirs.Inbox, handler, d.cfg.PollInterval)
		return pw.Run(ctx)
	}

	w := NewInboxWatcher(d.cfg.Dirs.Inbox, handler, d.cfg.Debounce)
	return w.Run(ctx)
}

// runMetricsSweeper refreshes the prometheus textfile periodically
// and once more on shutdown.
func (d *Daemon) runMetricsSweeper(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := metrics.WriteTextfile(d.cfg.MetricsFile); err != nil {
				fmt.Fprintf(os.Stderr, "[bufgate] metrics export: %v\n", err)
			}
			return
		case <-ticker.C:
			if err := metrics.WriteTextfile(d.cfg.MetricsFile); err != nil {
				fmt.Fprintf(os.Stderr, "[bufgate] metrics export: %v\n", err)
			}
		}
	}
}

// recoverOrphans sweeps files left in state/processing by a crash or
// restart: each gets an interrupted result and moves to rejected.
func (d *Daemon) recoverOrphans() error {
	procDir := d.cfg.Dirs.ProcessingDir()
	entries, err := os.ReadDir(procDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		res := &Result{
			File:        e.Name(),
			Status:      ResultRejected,
			Code:        model.CodeValidationFailed.String(),
			Error:       "interrupted: payload was processing when the daemon stopped",
			CompletedAt: timestamp(),
		}
		if err := d.processor.writeResult(res); err != nil {
			fmt.Fprintf(os.Stderr, "[bufgate] recover orphan %s: %v\n", e.Name(), err)
			continue
		}
		src := filepath.Join(procDir, e.Name())
		dst := filepath.Join(d.cfg.Dirs.RejectedDir(), e.Name())
		if err := moveFile(src, dst); err != nil {
			fmt.Fprintf(os.Stderr, "[bufgate] recover orphan %s: %v\n", e.Name(), err)
		}
	}
	return nil
}

// acquirePIDLock writes the current PID and refuses to start when a
// live daemon already holds the lock. Stale locks are removed.
func acquirePIDLock(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(string(data))
		if err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another daemon is running (PID %d)", pid)
				}
			}
		}
		_ = os.Remove(path)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}
