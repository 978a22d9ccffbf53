package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/adapters/publish"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/app"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/config"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/fairness"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/feature"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/intake"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/scoring"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/solver"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// File permission for result and ledger exports.
const outputFilePermission = 0o600

var (
	runBatchPath  string
	runRoundID    string
	runOutputPath string
	runLedgerPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one allocation round over a batch file",
	Long: `Run executes a single allocation round: the batch file is validated and
normalized, every eligible candidate/slot pair is scored, reserved seats
are filled before open ones, and the result is committed to the audit
ledger in one atomic step. A round that fails leaves no ledger records.

Configuration comes from the environment (PMIS_ prefix) and an optional
YAML file named by PMIS_CONFIG.

Examples:
  allocengine run --batch batch.json
  allocengine run --batch batch.json --round-id 2025-q3-pilot
  allocengine run --batch batch.json --output result.json --export-ledger audit.jsonl`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runBatchPath, "batch", "b", "", "path to the batch JSON file (required)")
	runCmd.Flags().StringVar(&runRoundID, "round-id", "", "round identifier (default: generated UUID)")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "write the committed allocation as JSON to this path")
	runCmd.Flags().StringVar(&runLedgerPath, "export-ledger", "", "write the audit ledger as JSONL to this path")
	_ = runCmd.MarkFlagRequired("batch")
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.InitWithFormat(cfg.LogFormat, os.Stderr); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	batch, err := readBatch(runBatchPath)
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	alloc, err := svc.RunRound(ctx, app.RoundRequest{RoundID: runRoundID, Batch: batch})
	if err != nil {
		return fmt.Errorf("run round: %w", err)
	}

	printSummary(cmd, alloc)

	if runOutputPath != "" {
		if err := writeAllocation(runOutputPath, alloc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "allocation written to %s\n", runOutputPath)
	}
	if runLedgerPath != "" {
		if err := exportLedger(ctx, svc, runLedgerPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "audit ledger written to %s\n", runLedgerPath)
	}
	return nil
}

// readBatch loads and parses the batch file submitted for the round.
func readBatch(path string) (intake.Batch, error) {
	var batch intake.Batch
	data, err := os.ReadFile(path)
	if err != nil {
		return batch, fmt.Errorf("read batch: %w", err)
	}
	if err := json.Unmarshal(data, &batch); err != nil {
		return batch, fmt.Errorf("parse batch %s: %w", path, err)
	}
	return batch, nil
}

// buildService assembles the engine from configuration. The returned
// cleanup releases resources the service does not own, currently the
// NATS connection.
func buildService(cfg *config.Config) (*app.Service, func(), error) {
	normalizer := feature.New(
		feature.WithSchemaVersion(cfg.FeatureSchemaVersion),
		feature.WithSkillDimension(cfg.SkillDimension),
		feature.WithExperienceCap(cfg.ExperienceCapYears),
		feature.WithVocabulary(cfg.TagVocabulary),
	)

	scorer, err := scoring.NewWeightedScorer(
		scoring.WithWeights(cfg.FactorWeights),
		scoring.WithGeographyPartialCredit(cfg.GeographyPartialCredit),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build scorer: %w", err)
	}

	monitor := fairness.New(
		fairness.WithDefaultMaxFraction(cfg.DefaultMaxFraction),
		fairness.WithWaiveInfeasible(cfg.WaiveInfeasibleQuotas),
		fairness.WithTolerance(cfg.DisparityTolerance),
		fairness.WithScope(cfg.DisparityScope),
	)

	opts := []app.Option{
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMetricsAddr(cfg.MetricsAddr),
		app.WithConfigDigest(cfg.Digest()),
		app.WithIntake(intake.New(intake.WithNormalizer(normalizer))),
		app.WithScorer(scorer),
		app.WithMonitor(monitor),
		app.WithSolver(solver.New(solver.WithWaiveUnmetFloors(cfg.WaiveUnmetFloors))),
	}

	cleanup := func() {}
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		opts = append(opts, app.WithPublisher(
			publish.NewNATSPublisher(conn, publish.WithPrefix(cfg.NATSSubjectPrefix)),
		))
		cleanup = func() {
			_ = conn.Drain()
			conn.Close()
		}
	}

	return app.New(opts...), cleanup, nil
}

func printSummary(cmd *cobra.Command, alloc *model.Allocation) {
	out := cmd.OutOrStdout()
	st := alloc.Stats

	fmt.Fprintf(out, "round %s committed at %s\n", alloc.RoundID, alloc.CommittedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  candidates: %d valid, %d excluded at intake\n", st.Candidates, st.Excluded)
	fmt.Fprintf(out, "  slots:      %d (%d seats)\n", st.Slots, st.Seats)
	fmt.Fprintf(out, "  assigned:   %d (fill rate %.2f)\n", st.Assigned, st.FillRate)
	fmt.Fprintf(out, "  unmatched:  %d\n", st.Unmatched)
	fmt.Fprintf(out, "  scoring:    %d pairs, %d degraded, mean score %.3f\n", st.PairsScored, st.DegradedScores, st.MeanScore)
	if len(alloc.Waivers) > 0 {
		fmt.Fprintf(out, "  waivers:    %d quota floors waived\n", len(alloc.Waivers))
	}
	if len(alloc.Violations) > 0 {
		fmt.Fprintf(out, "  disparity:  %d categories outside tolerance\n", len(alloc.Violations))
		for _, v := range alloc.Violations {
			fmt.Fprintf(out, "    %s (%s): rate %.2f vs baseline %.2f\n", v.Category, v.Scope, v.Rate, v.Baseline)
		}
	}
	fmt.Fprintf(out, "  config:     %s\n", alloc.ConfigDigest)
}

func writeAllocation(path string, alloc *model.Allocation) error {
	data, err := json.MarshalIndent(alloc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode allocation: %w", err)
	}
	if err := os.WriteFile(path, data, outputFilePermission); err != nil {
		return fmt.Errorf("write allocation: %w", err)
	}
	return nil
}

func exportLedger(ctx context.Context, svc *app.Service, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return fmt.Errorf("create ledger export: %w", err)
	}
	defer f.Close()

	if err := svc.ExportAudit(ctx, f); err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	return nil
}
