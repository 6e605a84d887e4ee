package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/funnelkit/funnel/internal/config"
	"github.com/funnelkit/funnel/internal/influx"
	"github.com/funnelkit/funnel/internal/logging"
	"github.com/funnelkit/funnel/internal/monitor"
	intOtel "github.com/funnelkit/funnel/internal/otel"
	"github.com/funnelkit/funnel/internal/pipeline"
	"github.com/funnelkit/funnel/internal/report"
	"github.com/funnelkit/funnel/internal/storage"
	"github.com/funnelkit/funnel/pkg/record"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"

	AppName string = "funnel-soak"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func main() {
	var (
		configDir = flag.String("config", ".", "directory containing funnel.cfg.json")
		producers = flag.Int("producers", 0, "override soak.producers")
		records   = flag.Int("records", 0, "override soak.recordsPerProducer")
		runName   = flag.String("run", "", "run name (default soak_<timestamp>)")
		tag       = flag.String("tag", "", "run tag (default from config)")
		version   = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
		return
	}

	// Bootstrap logging to stdout until the log file is open
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(*configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", *configDir)
	}

	// Command-line overrides
	if *producers > 0 {
		viper.Set("soak.producers", *producers)
	}
	if *records > 0 {
		viper.Set("soak.recordsPerProducer", *records)
	}

	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0755)
	}

	logFilePath := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			Logger.Info("OTel provider initialized", "file", logFilePath, "endpoint", otelCfg.Endpoint)
		}
	}

	// Re-setup logging with file output and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath)

	zlog, gelfErr := logging.NewZerolog(logFile, nil)
	if gelfErr != nil {
		Logger.Warn("Graylog connection failed, continuing without it", "error", gelfErr)
	}

	// Storage backend
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, SlogManager, zlog)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		os.Exit(1)
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		os.Exit(1)
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	// InfluxDB (optional); falls back to a gzipped backup file when the
	// server is unreachable
	var influxMgr *influx.Manager
	if config.GetBool("influx.enabled") {
		influxMgr = influx.NewManager(zlog, filepath.Join(logsDir, "influx_backup.gz"))
		if err := influxMgr.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, metrics disabled", "error", err)
			influxMgr = nil
		}
	}

	soakCfg := config.GetSoakConfig()
	run := record.RunInfo{
		ID:        uuid.New(),
		Name:      *runName,
		Tag:       *tag,
		Producers: soakCfg.Producers,
		StartedAt: time.Now(),
	}
	if run.Name == "" {
		run.Name = fmt.Sprintf("soak_%s", SessionStartTime.Format("20060102_150405"))
	}
	if run.Tag == "" {
		run.Tag = config.GetString("defaultTag")
	}

	// The pipeline logs per record on checksum and ordering failures, so
	// its logger is burst-sampled.
	pl, err := pipeline.New(run, soakCfg, backend,
		pipeline.WithLogger(logging.NewPipelineLogger(logging.NewSampledLogger(zlog))),
		pipeline.WithBatchSize(storageCfg.BatchSize),
	)
	if err != nil {
		Logger.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	Logger.Info("Starting run",
		"run", run.Name,
		"tag", run.Tag,
		"producers", soakCfg.Producers,
		"recordsPerProducer", soakCfg.RecordsPerProducer,
		"payloadBytes", soakCfg.PayloadBytes,
	)
	if err := pl.Start(ctx); err != nil {
		Logger.Error("Failed to start pipeline", "error", err)
		os.Exit(1)
	}

	monitorService := monitor.NewService(monitor.Dependencies{
		Pipeline:   pl,
		Backend:    backend,
		Influx:     influxMgr,
		LogManager: SlogManager,
		RunID:      run.ID.String(),
		StatusPath: filepath.Join(logsDir, "funnel.status.json"),
		Interval:   config.GetDuration("monitor.interval"),
	})
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start monitor", "error", err)
	}

	// Blocks until every producer retired its sender and the consumer
	// drained the channel to end of stream. SIGINT cancels the producers
	// early; in-flight records are still drained and stored.
	sum, err := pl.Wait()
	if err != nil {
		Logger.Error("Run finished with errors", "error", err)
	}
	monitorService.Stop()

	if influxMgr != nil {
		if err := influxMgr.WritePoint(context.Background(), influx.BucketRuns, influx.SummaryPoint(sum)); err != nil {
			Logger.Warn("Failed to write run summary to InfluxDB", "error", err)
		}
		influxMgr.Close()
	}

	if err := backend.Close(); err != nil {
		Logger.Error("Failed to close storage backend", "error", err)
	}

	uploadRun(backend, sum)

	// Flush telemetry before exit
	if OTelProvider != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := OTelProvider.Flush(flushCtx); err != nil {
			Logger.Warn("Failed to flush OTel data", "error", err)
		}
		if err := OTelProvider.Shutdown(flushCtx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
		cancel()
	}

	printSummary(sum)
}

// uploadRun pushes the exported run file to the report server when the
// backend produced one and uploads are enabled.
func uploadRun(backend storage.Backend, sum record.RunSummary) {
	if !config.GetBool("report.enabled") {
		return
	}
	up, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Debug("Storage backend does not export files, skipping upload")
		return
	}
	filePath := up.GetExportedFilePath()
	if filePath == "" {
		Logger.Warn("No exported file to upload")
		return
	}

	client := report.New(config.GetString("report.serverUrl"), config.GetString("report.apiKey"))
	if err := client.Healthcheck(); err != nil {
		Logger.Warn("Report server is offline, skipping upload", "error", err)
		return
	}
	if err := client.Upload(filePath, up.GetExportMetadata()); err != nil {
		Logger.Error("Failed to upload run", "error", err, "path", filePath)
		return
	}
	Logger.Info("Uploaded run to report server", "path", filePath)
}

func printSummary(sum record.RunSummary) {
	fmt.Println("----------------------------------------")
	fmt.Printf("Run:       %s (%s)\n", sum.Run.Name, sum.Run.ID)
	fmt.Printf("Producers: %d\n", sum.Run.Producers)
	fmt.Printf("Sent:      %d\n", sum.Sent)
	fmt.Printf("Received:  %d\n", sum.Received)
	fmt.Printf("Stored:    %d\n", sum.Stored)
	fmt.Printf("Corrupt:   %d\n", sum.Corrupt)
	fmt.Printf("Reordered: %d\n", sum.Reordered)
	fmt.Printf("CacheHits: %d\n", sum.CacheHits)
	fmt.Printf("RecvLocks: %d\n", sum.RecvLocks)
	fmt.Printf("Duration:  %s\n", sum.Duration.Round(time.Millisecond))
}
