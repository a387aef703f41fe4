package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hyskdev/mexc_runner/internal/config"
	"github.com/hyskdev/mexc_runner/internal/notify"
	"github.com/hyskdev/mexc_runner/internal/orchestrator"
	"github.com/hyskdev/mexc_runner/internal/profile"
	"github.com/hyskdev/mexc_runner/internal/session"
	"github.com/hyskdev/mexc_runner/internal/status"
	"github.com/hyskdev/mexc_runner/internal/trade"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "runner",
		Short:         "Run batched browser automation sessions over stored profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTradeCmd(cfg))
	root.AddCommand(newOpenCmd(cfg))
	root.AddCommand(newImportCmd(cfg))
	root.AddCommand(newProfilesCmd(cfg))
	return root
}

func newTradeCmd(cfg *config.Config) *cobra.Command {
	var (
		profiles string
		url      string
		kind     string
		side     string
		preset   int
		percent  float64
		price    float64
	)

	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Submit one order per profile and wait for the batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			tc := trade.Config{
				TargetURL:  url,
				Kind:       trade.OrderKind(kind),
				Side:       trade.Side(side),
				Preset:     preset,
				Percent:    percent,
				LimitPrice: price,
			}
			if err := tc.Validate(); err != nil {
				return err
			}
			return runBatch(cfg, splitProfiles(profiles), session.ModeTrade, tc)
		},
	}

	cmd.Flags().StringVar(&profiles, "profiles", "", "comma separated profile names (empty runs all stored profiles)")
	cmd.Flags().StringVar(&url, "url", "", "trading pair page URL")
	cmd.Flags().StringVar(&kind, "kind", "market", "order kind: market or limit")
	cmd.Flags().StringVar(&side, "side", "", "position side: long or short")
	cmd.Flags().IntVar(&preset, "preset", 0, "preset size percent: 25, 50, 75 or 100")
	cmd.Flags().Float64Var(&percent, "percent", 0, "custom size percent in (0, 100]")
	cmd.Flags().Float64Var(&price, "price", 0, "limit price, required for limit orders")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("side")
	return cmd
}

func newOpenCmd(cfg *config.Config) *cobra.Command {
	var profiles string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open profile browsers and park them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cfg, splitProfiles(profiles), session.ModeOpen, trade.Config{})
		},
	}

	cmd.Flags().StringVar(&profiles, "profiles", "", "comma separated profile names (empty runs all stored profiles)")
	return cmd
}

func newImportCmd(cfg *config.Config) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import profiles from an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := profile.NewStore(cfg.ProfilesDir)
			if err != nil {
				return err
			}
			res, err := store.ImportExcel(file)
			if err != nil {
				return err
			}
			slog.Info("import finished", "imported", len(res.Imported), "skipped", res.Skipped)
			for _, e := range res.Errors {
				slog.Warn("import row skipped", "reason", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the .xlsx workbook")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newProfilesCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List stored profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := profile.NewStore(cfg.ProfilesDir)
			if err != nil {
				return err
			}
			for _, p := range store.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Name, p.Email, profile.MaskProxy(p.Proxy))
			}
			return nil
		},
	}
}

func splitProfiles(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// runBatch starts one session per profile, streams status events to the
// log, and shuts the orchestrator down when the batch finishes or a
// signal arrives.
func runBatch(cfg *config.Config, names []string, mode session.Mode, tc trade.Config) error {
	store, err := profile.NewStore(cfg.ProfilesDir)
	if err != nil {
		return err
	}

	var selected []profile.Profile
	if len(names) == 0 {
		selected = store.List()
	} else {
		for _, name := range names {
			p, err := store.Get(name)
			if err != nil {
				return err
			}
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return fmt.Errorf("no profiles to run")
	}

	reporter := status.NewReporter(cfg.EventBufferSize)
	orch := orchestrator.New(func(req session.Request) orchestrator.Worker {
		return session.NewForProfile(req, cfg, store, reporter)
	}, reporter)

	reqs := make([]session.Request, 0, len(selected))
	for _, p := range selected {
		_ = store.Touch(p.Name)
		reqs = append(reqs, session.Request{Profile: p, Mode: mode, Trade: tc})
	}

	runID := uuid.NewString()
	summary := notify.BatchSummary{RunID: runID, Total: len(reqs)}
	var summaryMu sync.Mutex

	go func() {
		for ev := range reporter.Events() {
			switch ev.Kind {
			case status.KindLog:
				slog.Info(ev.Line, "profile", ev.ProfileID)
			case status.KindStatus:
				slog.Info("session status", "profile", ev.ProfileID, "state", ev.State, "color", ev.Color)
			case status.KindTerminal:
				slog.Info("session finished", "profile", ev.ProfileID, "outcome", ev.Outcome, "reason", ev.Reason)
				summaryMu.Lock()
				switch ev.Outcome {
				case status.OutcomeSucceeded:
					summary.Succeeded++
				case status.OutcomeFailed:
					summary.Failed++
				case status.OutcomeCancelled:
					summary.Cancelled++
				}
				summaryMu.Unlock()
			}
		}
	}()

	res := orch.Submit(runID, reqs)
	slog.Info("batch started", "run_id", runID, "sessions", len(res.Started))

	batchDone := make(chan struct{})
	go func() {
		orch.Wait(runID)
		close(batchDone)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-batchDone:
	case sig := <-sigCh:
		slog.Info("signal received, stopping sessions", "signal", sig.String())
	}

	leaked := orch.Shutdown(time.Duration(cfg.ShutdownTimeoutMS) * time.Millisecond)

	// Give the event consumer a moment to drain what the sessions
	// published during teardown.
	time.Sleep(100 * time.Millisecond)

	summaryMu.Lock()
	summary.Leaked = leaked
	final := summary
	summaryMu.Unlock()

	if cfg.NotifyEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notify.SendSummary(ctx, nil, cfg.NotifyEndpoint, final); err != nil {
			slog.Warn("batch notification failed", "error", err)
		}
	}

	slog.Info("batch complete",
		"run_id", runID,
		"succeeded", final.Succeeded,
		"failed", final.Failed,
		"cancelled", final.Cancelled,
		"leaked", final.Leaked,
	)
	return nil
}
