// Command filterworker is the long-running filtering daemon.  It polls the
// artifact directory for expansion results written by `fnmerge expand`, runs
// every candidate through the 3D filter pipeline, persists the verdicts and
// hands passing poses to placement.  Health and metrics endpoints are served
// over HTTP for the scheduler.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kate-fie/fragment-network-merges/internal/application/filtering"
	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/domain/merge"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/postgres"
	pgrepos "github.com/kate-fie/fragment-network-merges/internal/infrastructure/database/postgres/repositories"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/messaging/kafka"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/prometheus"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/storage/local"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/storage/minio"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/structures"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultHealthPort = 8091
	defaultPoll       = 30 * time.Second
	maxAttempts       = 3
	shutdownTimeout   = 15 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	poll := flag.Duration("poll", defaultPoll, "artifact directory poll interval")
	once := flag.Bool("once", false, "process the current backlog and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; falling back to environment configuration\n", err)
		cfg, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("filterworker")

	if err := run(cfg, *configPath, *poll, *once, logger); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, poll time.Duration, once bool, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Paths.FragmentDataDir == "" {
		return fmt.Errorf("paths.fragment_data_dir is required to load parent poses")
	}
	store, err := local.NewStore(cfg.Paths.OutputDir, logger)
	if err != nil {
		return err
	}
	loader := structures.NewLoader(cfg.Paths.FragmentDataDir, logger)
	metrics := prometheus.NewMetrics()

	w := &worker{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		loader:   loader,
		metrics:  metrics,
		attempts: make(map[string]int),
		done:     make(map[string]bool),
	}

	if cfg.Database.Host != "" {
		conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		if dir := filepath.Join(".", "migrations"); dirExists(dir) {
			if err := conn.RunMigrations(dir); err != nil {
				return err
			}
		}
		w.pg = conn
		w.results = pgrepos.NewResultsRepo(conn, logger)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
		w.publisher = producer
	}
	if cfg.MinIO.Endpoint != "" {
		archive, err := minio.NewStore(cfg.MinIO, logger)
		if err != nil {
			// The archive is best-effort; the local artifacts remain the
			// source of truth.
			logger.Warn("object archive unavailable", logging.Err(err))
		} else {
			w.archive = archive
		}
	}

	pipeline := filtering.NewPipeline(logger, filtering.DefaultStages(cfg.Merge)...)
	runner := filtering.NewBatchRunner(pipeline, cfg.Worker.Concurrency, logger)
	w.svc = filtering.NewService(runner, w.results, w.publisher, logger)

	config.Watch(configPath, func(_ *config.Config) {
		logger.Warn("configuration file changed on disk; restart to apply")
	})

	srv := startHealthServer(cfg, w, metrics, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("filter worker started",
		logging.String("artifact_dir", cfg.Paths.OutputDir),
		logging.Duration("poll", poll),
		logging.Bool("persist", w.results != nil),
		logging.Bool("publish", w.publisher != nil),
	)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		w.sweep(ctx)
		if once {
			return nil
		}
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return nil
		case <-ticker.C:
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Worker
// ─────────────────────────────────────────────────────────────────────────────

type worker struct {
	cfg       *config.Config
	logger    logging.Logger
	store     *local.Store
	loader    *structures.Loader
	metrics   *prometheus.Metrics
	svc       *filtering.Service
	pg        *postgres.Connection
	results   filtering.ResultRepository
	publisher filtering.PlacementPublisher
	archive   *minio.Store

	// attempts / done are only touched by the sweep loop.
	attempts map[string]int
	done     map[string]bool
}

// sweep filters every pending expansion artifact in the output directory.
func (w *worker) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Paths.OutputDir)
	if err != nil {
		w.logger.Error("reading artifact directory", logging.Err(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if w.done[name] || w.attempts[name] >= maxAttempts {
			continue
		}
		if err := w.process(ctx, name); err != nil {
			w.attempts[name]++
			w.logger.Error("filtering artifact failed",
				logging.String("artifact", name),
				logging.Int("attempt", w.attempts[name]),
				logging.Err(err))
			continue
		}
		w.done[name] = true
	}
}

func (w *worker) process(ctx context.Context, name string) error {
	data, err := w.store.Get(ctx, name)
	if err != nil {
		return err
	}
	var result merge.ExpansionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return fmt.Errorf("parsing artifact %s: %w", name, err)
	}

	fragA, fragB, receptor, err := w.loader.LoadPair(result.Target, result.FragmentA, result.FragmentB)
	if err != nil {
		return err
	}
	pc := &filtering.PairContext{FragmentA: fragA, FragmentB: fragB, Receptor: receptor}

	verdicts, err := w.svc.FilterPair(ctx, &result, pc)
	if err != nil {
		return err
	}

	passed := 0
	for _, v := range verdicts {
		stage := v.FailedStage()
		if stage == "" {
			stage = "complete"
			passed++
		}
		w.metrics.ObserveVerdict(stage, string(v.Status), v.Elapsed)
	}
	if w.publisher != nil {
		w.metrics.PlacementPublishedTotal.Add(float64(passed))
	}
	w.logger.Info("pair filtered",
		logging.String("artifact", name),
		logging.Int("candidates", len(verdicts)),
		logging.Int("passed", passed),
	)

	sdf, err := filtering.EncodePasses(verdicts)
	if err != nil {
		return err
	}
	sdfName := merge.PairName(result.FragmentA, result.FragmentB) + "_filtered.sdf"
	if sdf != nil {
		if err := w.store.Put(ctx, sdfName, sdf); err != nil {
			w.metrics.ArtifactWritesTotal.WithLabelValues("error").Inc()
			return err
		}
		w.metrics.ArtifactWritesTotal.WithLabelValues("ok").Inc()
	}
	w.archivePair(ctx, name, data, sdfName, sdf)
	return nil
}

// archivePair mirrors the pair's artifacts into object storage when an
// archive bucket is configured.  Failures are logged, never fatal.
func (w *worker) archivePair(ctx context.Context, jsonName string, jsonData []byte, sdfName string, sdf []byte) {
	if w.archive == nil {
		return
	}
	if err := w.archive.Put(ctx, jsonName, jsonData); err != nil {
		w.logger.Warn("archiving expansion artifact failed",
			logging.String("artifact", jsonName), logging.Err(err))
	}
	if sdf == nil {
		return
	}
	if err := w.archive.Put(ctx, sdfName, sdf); err != nil {
		w.logger.Warn("archiving filtered poses failed",
			logging.String("artifact", sdfName), logging.Err(err))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Health / metrics endpoints
// ─────────────────────────────────────────────────────────────────────────────

func startHealthServer(cfg *config.Config, w *worker, metrics *prometheus.Metrics, logger logging.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		components := gin.H{"artifact_dir": "ok"}
		status := http.StatusOK
		if _, err := os.Stat(w.cfg.Paths.OutputDir); err != nil {
			components["artifact_dir"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if w.pg != nil {
			components["postgres"] = "ok"
			if err := w.pg.HealthCheck(c.Request.Context()); err != nil {
				components["postgres"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "components": components})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	port := cfg.Worker.HealthPort
	if port == 0 {
		port = defaultHealthPort
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
