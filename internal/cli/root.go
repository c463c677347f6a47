package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Nwokike/museum-harvester/internal/adapter"
	"github.com/Nwokike/museum-harvester/internal/build"
	"github.com/Nwokike/museum-harvester/internal/clock"
	"github.com/Nwokike/museum-harvester/internal/config"
	"github.com/Nwokike/museum-harvester/internal/dataset"
	"github.com/Nwokike/museum-harvester/internal/fetcher"
	"github.com/Nwokike/museum-harvester/internal/iiif"
	"github.com/Nwokike/museum-harvester/internal/metadata"
	"github.com/Nwokike/museum-harvester/internal/normalize"
	"github.com/Nwokike/museum-harvester/internal/pipeline"
	"github.com/Nwokike/museum-harvester/internal/schedule"
	"github.com/Nwokike/museum-harvester/pkg/backoff"
	"github.com/Nwokike/museum-harvester/pkg/fileutil"
	"github.com/Nwokike/museum-harvester/pkg/hashutil"
)

var (
	cfgFile            string
	archiveName        string
	seed               string
	concurrency        int
	perHostMinInterval time.Duration
	maxAttempts        int
	backoffInitial     time.Duration
	backoffMultiplier  float64
	backoffMax         time.Duration
	backoffJitter      float64
	outputDir          string
	resume             bool
	userAgent          string
	timeout            time.Duration
	randomSeed         int64
	respectRobots      bool
	verbose            bool
)

var rootCmd = &cobra.Command{
	Use:     "museum-harvester",
	Short:   "Harvest metadata and maximum-resolution images from digital archives.",
	Version: build.FullVersion(),
	Long: `museum-harvester scrapes structured object metadata and the largest
servable image variants from heterogeneous digital archives (tabular
exports, static HTML galleries, Blogger archives, IIIF image services)
into a normalized JSONL dataset plus a content-addressed image store.

One adapter per archive; scheduling, retry, resolution and persistence
are shared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if archiveName == "" || seed == "" {
			cmd.Usage()
			return fmt.Errorf("--archive and --seed are required")
		}
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}
		return runHarvest(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (yaml/json/toml)")
	rootCmd.PersistentFlags().StringVar(&archiveName, "archive", "", "archive adapter to run (britishmuseum, ukpuru, gijones)")
	rootCmd.PersistentFlags().StringVar(&seed, "seed", "", "archive seed: listing/index URL or path to a local export")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "maximum fetches in flight across all hosts")
	rootCmd.PersistentFlags().DurationVar(&perHostMinInterval, "per-host-min-interval", 0, "minimum spacing between requests to one host")
	rootCmd.PersistentFlags().IntVar(&maxAttempts, "max-attempts", 0, "maximum retries per task")
	rootCmd.PersistentFlags().DurationVar(&backoffInitial, "backoff-initial", 0, "initial backoff delay")
	rootCmd.PersistentFlags().Float64Var(&backoffMultiplier, "backoff-multiplier", 0, "exponential backoff multiplier")
	rootCmd.PersistentFlags().DurationVar(&backoffMax, "backoff-max", 0, "backoff delay cap")
	rootCmd.PersistentFlags().Float64Var(&backoffJitter, "backoff-jitter", 0, "jitter fraction added to backoff delays")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "root output directory")
	rootCmd.PersistentFlags().BoolVar(&resume, "resume", false, "skip records a previous run already completed")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for a single HTTP request")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for backoff jitter (0 for current time)")
	rootCmd.PersistentFlags().BoolVar(&respectRobots, "respect-robots", true, "honor robots.txt disallow and crawl-delay")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug-level logging")
}

// InitConfigWithError builds the run config from the config file when
// one is given, otherwise from defaults plus flag overrides.
func InitConfigWithError() (config.Config, error) {
	if cfgFile != "" {
		return config.WithConfigFile(cfgFile, archiveName, seed)
	}

	builder := config.WithDefault(archiveName, seed)
	if concurrency > 0 {
		builder = builder.WithConcurrency(concurrency)
	}
	if perHostMinInterval > 0 {
		builder = builder.WithPerHostMinInterval(perHostMinInterval)
	}
	if maxAttempts > 0 {
		builder = builder.WithMaxAttempts(maxAttempts)
	}
	if backoffInitial > 0 {
		builder = builder.WithBackoffInitialDuration(backoffInitial)
	}
	if backoffMultiplier > 0 {
		builder = builder.WithBackoffMultiplier(backoffMultiplier)
	}
	if backoffMax > 0 {
		builder = builder.WithBackoffMaxDuration(backoffMax)
	}
	if backoffJitter > 0 {
		builder = builder.WithBackoffJitterFraction(backoffJitter)
	}
	if outputDir != "" {
		builder = builder.WithOutputDir(outputDir)
	}
	if resume {
		builder = builder.WithResume(true)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		builder = builder.WithTimeout(timeout)
	}
	if randomSeed != 0 {
		builder = builder.WithRandomSeed(randomSeed)
	}
	builder = builder.WithRespectRobots(respectRobots)

	return builder.Build()
}

// runHarvest wires the pipeline and runs it to completion.
func runHarvest(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cerr := fileutil.EnsureDir(cfg.OutputDir()); cerr != nil {
		return fmt.Errorf("output dir: %s", cerr.Error())
	}

	recorder := metadata.NewRecorder(logger)

	fetch := fetcher.NewHttpFetcher(&recorder, cfg.Timeout())
	policy := backoff.NewPolicy(
		backoff.NewParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration()),
		cfg.BackoffJitterFraction(),
		cfg.MaxAttempts(),
	)
	sched := schedule.NewScheduler(&recorder, &fetch, clock.NewSystem(), policy, schedule.Params{
		PerHostMinInterval: cfg.PerHostMinInterval(),
		ConcurrencyLimit:   cfg.Concurrency(),
		UserAgent:          cfg.UserAgent(),
		RandomSeed:         cfg.RandomSeed(),
	})
	defer sched.Close()

	writer, werr := dataset.NewWriter(filepath.Join(cfg.OutputDir(), "dataset.jsonl"), &recorder)
	if werr != nil {
		return fmt.Errorf("dataset writer: %s", werr.Error())
	}
	images, ierr := dataset.NewImageStore(filepath.Join(cfg.OutputDir(), "images"), hashutil.HashAlgoBLAKE3, &recorder)
	if ierr != nil {
		return fmt.Errorf("image store: %s", ierr.Error())
	}
	index, xerr := dataset.OpenResumeIndex(filepath.Join(cfg.OutputDir(), "resume.db"))
	if xerr != nil {
		return fmt.Errorf("resume index: %s", xerr.Error())
	}

	registry := adapter.NewRegistry(
		adapter.NewBritishMuseumAdapter(),
		adapter.NewUkpuruAdapter(),
		adapter.NewGIJonesAdapter(),
	)

	orch := pipeline.NewOrchestrator(cfg, pipeline.Deps{
		Registry:     registry,
		Sched:        sched,
		Resolver:     iiif.NewResolver(&recorder, sched),
		Constraint:   normalize.NewRecordConstraint(&recorder),
		Writer:       writer,
		Images:       images,
		Index:        index,
		MetadataSink: &recorder,
		Finalizer:    &recorder,
		Clock:        clock.NewSystem(),
	})

	summary, runErr := orch.Run(ctx)
	printSummary(summary)
	if runErr != nil {
		return runErr
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return logCfg.Build()
}

func printSummary(summary pipeline.Summary) {
	fmt.Printf("Run %s finished in %v\n", summary.RunID, summary.Duration)
	fmt.Printf("Records written:      %d\n", summary.RecordsWritten)
	fmt.Printf("Records skipped:      %d\n", summary.RecordsSkipped)
	fmt.Printf("Images stored:        %d\n", summary.ImagesStored)
	fmt.Printf("Images deduplicated:  %d\n", summary.ImagesDeduplicated)
	fmt.Printf("Images degraded:      %d\n", summary.ImagesDegraded)
	fmt.Printf("Tasks failed:         %d\n", summary.TasksFailed)
	for kind, n := range summary.FailuresByKind {
		fmt.Printf("  %s: %d\n", kind, n)
	}
	for count, n := range summary.AttemptsByCount {
		if count > 0 {
			fmt.Printf("Tasks retried %dx:     %d\n", count, n)
		}
	}
	if summary.Cancelled {
		fmt.Println("Run was cancelled; partial results were flushed.")
	}
}
