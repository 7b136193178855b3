package policy

import (
	"sync"

	"github.com/awnumar/memguard"

	"github.com/bufgate/bufgate/internal/audit"
	"github.com/bufgate/bufgate/internal/model"
)

// Process-wide install state. The embedding surface runs through
// Init/Current/Trail/Cleanup; library callers that build their own
// Policy with New never touch this.
var (
	procMu    sync.Mutex
	proc      *Policy
	procTrail *audit.Log
)

// Init validates cfg and installs it as the process policy, opening
// the configured audit trail. A second Init without an intervening
// Cleanup is a mutation attempt and fails ZERO_TRUST_VIOLATION.
func Init(cfg Config, integrityValid bool) (*Policy, error) {
	procMu.Lock()
	defer procMu.Unlock()

	if proc != nil {
		return nil, model.Errorf(model.CodeZeroTrustViolation, "policy", "process policy already installed")
	}

	p, err := New(cfg, integrityValid)
	if err != nil {
		return nil, err
	}

	var trail *audit.Log
	if cfg.Audit.Log != "" {
		trail, err = audit.Open(cfg.Audit.Log)
		if err != nil {
			return nil, model.Wrap(model.CodeAuditRequired, "policy", "open audit trail", err)
		}
		if err := trail.Record(audit.Entry{
			Op:      "policy_init",
			Outcome: audit.OutcomePass,
			Context: p.AuditContext(),
		}); err != nil {
			_ = trail.Close()
			return nil, model.Wrap(model.CodeAuditRequired, "policy", "record init entry", err)
		}
	}

	proc = p
	procTrail = trail
	return p, nil
}

// Current returns the installed process policy, or nil before Init or
// after Cleanup.
func Current() *Policy {
	procMu.Lock()
	defer procMu.Unlock()
	return proc
}

// Trail returns the process audit trail, or nil when none is open.
func Trail() *audit.Log {
	procMu.Lock()
	defer procMu.Unlock()
	return procTrail
}

// Cleanup closes the audit trail, purges all locked memory, and
// returns the process to uninitialized. Idempotent.
func Cleanup() error {
	procMu.Lock()
	defer procMu.Unlock()

	if proc == nil {
		return nil
	}

	var err error
	if procTrail != nil {
		_ = procTrail.Record(audit.Entry{
			Op:      "policy_cleanup",
			Outcome: audit.OutcomePass,
			Context: proc.AuditContext(),
		})
		err = procTrail.Close()
	}

	proc = nil
	procTrail = nil
	memguard.Purge()
	return err
}
