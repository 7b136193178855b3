package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bufgate/bufgate/internal/daemon"
	"github.com/bufgate/bufgate/internal/gate"
	"github.com/bufgate/bufgate/internal/model"
	"github.com/bufgate/bufgate/internal/policy"
)

var (
	watchInbox    string
	watchOutbox   string
	watchState    string
	watchLevel    string
	watchPoll     bool
	watchAuditLog string
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchInbox, "inbox", "", "Inbox directory (overrides policy)")
	watchCmd.Flags().StringVar(&watchOutbox, "outbox", "", "Outbox directory for result files (overrides policy)")
	watchCmd.Flags().StringVar(&watchState, "state", "", "State directory for archive and PID lock (overrides policy)")
	watchCmd.Flags().StringVar(&watchLevel, "level", "standard", "Security level for daemon buffers")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Poll the inbox instead of using inotify")
	watchCmd.Flags().StringVar(&watchAuditLog, "audit-log", "", "Path to audit trail JSONL (overrides policy)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the inbox-watching validation daemon",
	Long: "Watches the inbox directory and runs every payload file through the\n" +
		"gate. Results land in the outbox as JSON; originals move to the\n" +
		"state archive under accepted/ or rejected/. Runs until SIGINT or\n" +
		"SIGTERM.",
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, hash, err := loadConfig()
	if err != nil {
		return err
	}
	if watchInbox != "" {
		cfg.Watch.Inbox = watchInbox
	}
	if watchOutbox != "" {
		cfg.Watch.Outbox = watchOutbox
	}
	if watchState != "" {
		cfg.Watch.State = watchState
	}
	if watchPoll {
		cfg.Watch.Poll = true
	}
	if watchAuditLog != "" {
		cfg.Audit.Log = watchAuditLog
	}

	level, err := model.ParseLevel(watchLevel)
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

	d, err := daemon.New(daemon.Config{
		Dirs: daemon.DirConfig{
			Inbox:  cfg.Watch.Inbox,
			Outbox: cfg.Watch.Outbox,
			State:  cfg.Watch.State,
		},
		Level:       level,
		PollMode:    cfg.Watch.Poll,
		Debounce:    time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		MetricsFile: cfg.Metrics.Textfile,
	}, validator)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "bufgate watching %s (level %s)\n", cfg.Watch.Inbox, level)
	if cfg.Audit.Log != "" {
		fmt.Fprintf(os.Stderr, "Audit trail: %s\n", cfg.Audit.Log)
	}
	if cfg.Metrics.Textfile != "" {
		fmt.Fprintf(os.Stderr, "Metrics textfile: %s\n", cfg.Metrics.Textfile)
	}

	return d.Run(ctx)
}
