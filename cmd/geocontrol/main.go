// GeoControl - IoT measurement platform.
//
// This is the main entry point for the GeoControl server. It wires the
// network hierarchy, the measurement pipeline and its sinks, and the REST
// API, then waits for a shutdown signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nerrad567/geocontrol/internal/api"
	"github.com/nerrad567/geocontrol/internal/audit"
	"github.com/nerrad567/geocontrol/internal/auth"
	"github.com/nerrad567/geocontrol/internal/infrastructure/config"
	"github.com/nerrad567/geocontrol/internal/infrastructure/database"
	"github.com/nerrad567/geocontrol/internal/infrastructure/influxdb"
	"github.com/nerrad567/geocontrol/internal/infrastructure/logging"
	"github.com/nerrad567/geocontrol/internal/infrastructure/metrics"
	"github.com/nerrad567/geocontrol/internal/infrastructure/mqtt"
	"github.com/nerrad567/geocontrol/internal/infrastructure/ratelimit"
	"github.com/nerrad567/geocontrol/internal/measurement"
	"github.com/nerrad567/geocontrol/internal/network"
	_ "github.com/nerrad567/geocontrol/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvFile    = ".env"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting GeoControl",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := loadEnvFile(getEnvFilePath()); err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	users := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, users, cfg.Security.Admin.Username, cfg.Security.Admin.Password, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	networks := network.NewSQLiteRepository(db.DB)
	health := map[string]api.HealthChecker{"database": db}

	var m *metrics.Metrics
	opts := []measurement.Option{measurement.WithLogger(log)}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		opts = append(opts, measurement.WithObserver(m), measurement.WithSinks(m))
	}

	service := measurement.NewService(
		measurement.NewSQLiteStore(db.DB),
		network.NewGuard(db.DB),
		networks,
		opts...,
	)

	hub := api.NewHub(cfg.WebSocket, log, m)
	service.AddSink(hub)

	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		service.AddSink(influxClient)
		health["influxdb"] = influxClient
	}

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		qos := byte(cfg.MQTT.QoS)
		service.AddSink(mqtt.NewEventPublisher(mqttClient, mqttClient.Topics(), qos))
		health["mqtt"] = mqttClient
	}

	var limiter *ratelimit.Limiter
	if cfg.Security.RateLimit.Enabled {
		redisClient, redisErr := ratelimit.Connect(ctx, cfg.Redis)
		if redisErr != nil {
			return fmt.Errorf("connecting to Redis: %w", redisErr)
		}
		defer redisClient.Close() //nolint:errcheck // Shutdown path
		trusted, proxyErr := ratelimit.ParseTrustedProxies(cfg.Security.RateLimit.TrustedProxies)
		if proxyErr != nil {
			return fmt.Errorf("parsing trusted proxies: %w", proxyErr)
		}
		limiter = ratelimit.New(redisClient, cfg.Security.RateLimit.RequestsPerMinute,
			ratelimit.WithTrustedProxies(trusted...),
			ratelimit.WithLogger(log),
		)
		health["redis"] = redisPinger{redisClient}
		log.Info("rate limiting enabled",
			"redis", cfg.Redis.Addr,
			"requests_per_minute", cfg.Security.RateLimit.RequestsPerMinute,
		)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	srv, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		MetricsPath:  metricsPath,
		Logger:       log,
		Users:        users,
		Networks:     networks,
		Measurements: service,
		Audit:        audit.NewSQLiteRepository(db.DB),
		Hub:          hub,
		Metrics:      m,
		RateLimiter:  limiter,
		Health:       health,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	// Ingestion starts last so every sink is registered before the first
	// broker message arrives.
	if mqttClient != nil {
		ingestor := mqtt.NewIngestor(service, mqttClient.Topics(), byte(cfg.MQTT.QoS))
		if err := ingestor.Start(mqttClient); err != nil {
			return fmt.Errorf("starting MQTT ingestion: %w", err)
		}
		log.Info("MQTT ingestion started", "topic", mqttClient.Topics().AllSensorMeasurements())
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// connectInfluxDB returns nil when InfluxDB is disabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// connectMQTT returns nil when MQTT is disabled.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"topic_prefix", cfg.MQTT.TopicPrefix,
	)
	return client, nil
}

// redisPinger reports Redis health through PING.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// getConfigPath returns the configuration file path.
// Uses GEOCONTROL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GEOCONTROL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// getEnvFilePath returns the dotenv file path.
// Uses GEOCONTROL_ENV_FILE environment variable if set, otherwise default.
func getEnvFilePath() string {
	if path := os.Getenv("GEOCONTROL_ENV_FILE"); path != "" {
		return path
	}
	return defaultEnvFile
}

// loadEnvFile loads variables from a dotenv file without overriding the
// real environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
