package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/themis/pkg/api"
	"mercator-hq/themis/pkg/catalog"
	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/decision"
	"mercator-hq/themis/pkg/decision/review"
	decisionstorage "mercator-hq/themis/pkg/decision/storage"
	"mercator-hq/themis/pkg/jurisdiction"
	"mercator-hq/themis/pkg/policy"
	"mercator-hq/themis/pkg/readiness"
	"mercator-hq/themis/pkg/readiness/evaluators"
	readinessstorage "mercator-hq/themis/pkg/readiness/storage"
	"mercator-hq/themis/pkg/server"
	"mercator-hq/themis/pkg/telemetry/logging"
	"mercator-hq/themis/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Themis engine",
	Long: `Start the Themis engine with the specified configuration.

The engine loads the policy rule catalog, opens decision and readiness
storage, and serves the decision and readiness APIs.

Examples:
  # Start with default config
  themis run

  # Start with custom config
  themis run --config /etc/themis/config.yaml

  # Override listen address
  themis run --listen 0.0.0.0:8086

  # Validate config without starting
  themis run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logging.Setup(cfg.Telemetry.Logging)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Rule catalog
	cat := catalog.New()
	snapshot, err := catalog.LoadInto(cat, cfg.Catalog.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load rule catalog: %w", err)
	}
	fmt.Printf("✓ Rule catalog loaded (version %s, %d rules)\n", snapshot.Version(), snapshot.RuleCount())

	if cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(cat, &catalog.WatcherConfig{
			Path:             cfg.Catalog.FilePath,
			DebounceInterval: cfg.Catalog.DebounceInterval,
		})
		if err != nil {
			return fmt.Errorf("failed to start catalog watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("catalog watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Println("✓ Catalog watch enabled")
	}

	// Storage
	decisionStore, readinessStore, err := openStorage(&cfg.Storage)
	if err != nil {
		return err
	}
	defer decisionStore.Close()
	defer readinessStore.Close()
	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	// Metrics
	var collector *metrics.Collector
	var decisionMetrics decision.Metrics
	var sweepMetrics review.Metrics
	var readinessMetrics readiness.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		decisionMetrics = collector.Decisions()
		sweepMetrics = collector.Decisions()
		readinessMetrics = collector.Readiness()
	}

	// Decision lifecycle
	evaluator := policy.NewEvaluator(cat)
	svc := decision.NewService(decisionStore, cat, evaluator, decisionConfig(&cfg.Decisions), decisionMetrics)

	if cfg.Decisions.ReviewSchedule != "" {
		scheduler := review.NewScheduler(svc, &review.Config{Schedule: cfg.Decisions.ReviewSchedule}, sweepMetrics)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start review scheduler: %w", err)
		}
		defer scheduler.Stop()
		fmt.Printf("✓ Review sweep scheduled (%s)\n", cfg.Decisions.ReviewSchedule)
	}

	// Readiness aggregation. The compliance and jurisdiction categories are
	// backed by the engine itself; collaborator-backed categories join when
	// their services are configured.
	categoryEvaluators := []readiness.CategoryEvaluator{
		&evaluators.ComplianceDecision{Decisions: svc, Step: catalog.StepComplianceApproval},
	}
	if cfg.Jurisdiction.RuleSetPath != "" {
		ruleSets, err := jurisdiction.LoadRuleSets(cfg.Jurisdiction.RuleSetPath)
		if err != nil {
			return fmt.Errorf("failed to load jurisdiction rule sets: %w", err)
		}
		jurisEvaluator := jurisdiction.NewEvaluator(jurisdiction.NewMemoryAssignmentStore(), ruleSets)
		categoryEvaluators = append(categoryEvaluators, &evaluators.Jurisdiction{
			Evaluator: jurisEvaluator,
			Decisions: svc,
			Step:      catalog.StepComplianceApproval,
		})
		fmt.Printf("✓ Jurisdiction rule sets loaded (%d)\n", len(ruleSets))
	}

	aggregator := readiness.NewAggregator(categoryEvaluators, readinessStore, cat, readinessConfig(&cfg.Readiness), readinessMetrics)

	// HTTP surface
	router := api.NewRouter(svc, aggregator, &api.HeaderIdentityResolver{})
	if collector != nil {
		router.Metrics = collector.Handler()
		router.MetricsPath = cfg.Telemetry.Metrics.Path
	}

	srv := server.NewServer(&cfg.Server, router.Handler())
	fmt.Printf("✓ Listening on %s\n", cfg.Server.ListenAddress)
	return srv.Start(ctx)
}

func openStorage(cfg *config.StorageConfig) (decision.Storage, readiness.Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		decisionStore, err := decisionstorage.NewSQLiteStorage(&decisionstorage.SQLiteConfig{Path: cfg.DecisionsPath})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open decision storage: %w", err)
		}
		readinessStore, err := readinessstorage.NewSQLiteStorage(&readinessstorage.SQLiteConfig{Path: cfg.ReadinessPath})
		if err != nil {
			decisionStore.Close()
			return nil, nil, fmt.Errorf("failed to open readiness storage: %w", err)
		}
		return decisionStore, readinessStore, nil
	case "memory":
		return decisionstorage.NewMemoryStorage(), readinessstorage.NewMemoryStorage(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func decisionConfig(cfg *config.DecisionsConfig) *decision.Config {
	expiration := make(map[catalog.Step]int, len(cfg.DefaultExpirationDays))
	for step, days := range cfg.DefaultExpirationDays {
		expiration[catalog.Step(step)] = days
	}
	return &decision.Config{
		DedupWindow:            cfg.DedupWindow,
		DefaultExpirationDays:  expiration,
		FallbackExpirationDays: cfg.FallbackExpirationDays,
	}
}

func readinessConfig(cfg *config.ReadinessConfig) *readiness.Config {
	critical := make(map[readiness.Category]bool, len(cfg.TimeoutCritical))
	for _, cat := range cfg.TimeoutCritical {
		critical[readiness.Category(cat)] = true
	}
	return &readiness.Config{
		CategoryTimeout: cfg.CategoryTimeout,
		TimeoutCritical: critical,
	}
}
