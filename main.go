package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"

	"irisclass/db"
	ihttp "irisclass/http"
	"irisclass/ml"
	"irisclass/monitoring"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		MaxBodyBytes   int64    `yaml:"max_body_bytes"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log struct {
		Level      string `yaml:"level"`
		Path       string `yaml:"path"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	ML struct {
		ModelType     string `yaml:"model_type"`
		ModelPath     string `yaml:"model_path"`
		CacheSize     int    `yaml:"cache_size"`
		WatchArtifact bool   `yaml:"watch_artifact"`
	} `yaml:"ml"`
	Confidence ihttp.ConfidenceTiers `yaml:"confidence"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load config
	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := buildLogger(config)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// 2. Initialize database
	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// 3. Load the trained model. The service refuses to start without one.
	model, err := ml.LoadModel(config.ML.ModelType, config.ML.ModelPath)
	if err != nil {
		logger.Fatal("failed to load model", zap.Error(err))
	}
	meta := model.Meta()
	logger.Info("model loaded",
		zap.String("path", config.ML.ModelPath),
		zap.String("algorithm", meta.Algorithm),
		zap.Float64("accuracy", meta.Accuracy))

	// 4. Start the WebSocket feed
	monitor := monitoring.NewPredictionMonitor(logger)
	if err := monitor.Start(); err != nil {
		logger.Fatal("failed to start prediction monitor", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Watch the artifact so operators hear about a retrain that is
	// waiting for a restart
	if config.ML.WatchArtifact {
		watcher, err := monitoring.NewArtifactWatcher(config.ML.ModelPath, logger, monitor, ihttp.ObserveArtifactChange)
		if err != nil {
			logger.Fatal("failed to create artifact watcher", zap.Error(err))
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	go heartbeat(ctx, monitor)

	// 6. Start HTTP server
	handlers, err := ihttp.NewHandlers(model, ihttp.HandlersConfig{
		Tiers:     config.Confidence,
		CacheSize: config.ML.CacheSize,
	}, monitor, logger)
	if err != nil {
		logger.Fatal("failed to build handlers", zap.Error(err))
	}

	server := ihttp.NewServer(serverConfig(config), handlers, monitor.GetWebSocketHub(), logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	cancel()
	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := monitor.Stop(); err != nil {
		logger.Error("failed to stop prediction monitor", zap.Error(err))
	}

	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// buildLogger builds a JSON zap logger writing to stdout and, when a log
// path is configured, a size-rotated file.
func buildLogger(config *Config) *zap.Logger {
	level, err := zapcore.ParseLevel(config.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if config.Log.Path != "" {
		maxSize := config.Log.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := config.Log.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		maxAge := config.Log.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 28
		}
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   config.Log.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.NewMultiWriteSyncer(sinks...),
		level,
	)
	return zap.New(core, zap.AddCaller())
}

func serverConfig(config *Config) ihttp.ServerConfig {
	serverConfig := ihttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if config.Http.MaxBodyBytes > 0 {
		serverConfig.MaxBodyBytes = config.Http.MaxBodyBytes
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}
	return serverConfig
}

func heartbeat(ctx context.Context, monitor *monitoring.PredictionMonitor) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			monitor.SendHeartbeat()
		}
	}
}
