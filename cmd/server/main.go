package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/volcanowatch/backend/internal/delivery/http"
	"github.com/volcanowatch/backend/internal/messaging"
	"github.com/volcanowatch/backend/internal/repository/memory"
	"github.com/volcanowatch/backend/internal/repository/postgres"
	"github.com/volcanowatch/backend/internal/repository/redisstore"
	"github.com/volcanowatch/backend/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Configuration
	cfg := loadConfig()

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		p, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("Warning: Could not connect to database: %v", err)
		} else if err := p.Ping(ctx); err != nil {
			log.Printf("Warning: Database not reachable: %v", err)
			p.Close()
		} else {
			pool = p
			defer pool.Close()
			log.Println("Connected to PostgreSQL")
		}
	}

	// Dependency Injection: Repositories
	var dataRepo service.DataRepository
	if pool != nil {
		pgRepo := postgres.NewPostgresRepository(pool)
		if err := pgRepo.Migrate(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		dataRepo = pgRepo
	} else {
		log.Println("Running with in-memory storage only")
		dataRepo = postgres.NewMockRepository()
	}

	rules, closeRules := newRuleStore(ctx, cfg)
	defer closeRules()

	publisher := newPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("Failed to close publisher: %v", err)
		}
	}()

	// Dependency Injection: Services
	baselines := service.NewBaselineSource()
	if cfg.BaselineFile != "" {
		b, err := service.LoadBaselineFile(cfg.BaselineFile)
		if err != nil {
			log.Fatalf("Failed to load baselines: %v", err)
		}
		baselines = b
		log.Printf("Loaded baselines from %s", cfg.BaselineFile)
	}

	metrics := service.NewMetrics()
	sensorSvc := service.NewSensorService(nil)
	deviceSvc := service.NewDeviceService(sensorSvc)
	alertSvc := service.NewAlertService(sensorSvc, metrics)
	riskSvc := service.NewRiskService(sensorSvc, baselines, metrics)
	broadcastSvc := service.NewBroadcastService(publisher, rules, dataRepo, riskSvc, metrics)
	predictionBridge := service.NewPredictionBridge(cfg.MLServiceURL)
	dashboardSvc := service.NewDashboardService(alertSvc, riskSvc, deviceSvc, dataRepo)

	sampler, err := service.NewSampler(cfg.SampleInterval, riskSvc, broadcastSvc)
	if err != nil {
		log.Fatalf("Failed to create sampler: %v", err)
	}
	sampler.Start()

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "VolcanoWatch API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Routes
	handler := http.NewHandler(http.Services{
		Dashboard:   dashboardSvc,
		Sensors:     sensorSvc,
		Devices:     deviceSvc,
		Alerts:      alertSvc,
		Risk:        riskSvc,
		Baselines:   baselines,
		Broadcast:   broadcastSvc,
		Predictions: predictionBridge,
		Repo:        dataRepo,
	})
	http.SetupRoutes(app, handler, metrics.Registry())

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	sampler.Stop()
	dashboardSvc.WaitBackground()
	log.Println("Server exited gracefully")
}

type Config struct {
	DatabaseURL        string
	MLServiceURL       string
	BaselineFile       string
	SampleInterval     time.Duration
	RuleStore          string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	BroadcastTransport string
	MQTTBrokerURL      string
	MQTTClientID       string
	KafkaBrokers       []string
	KafkaTopic         string
	Port               string
	Env                string
}

func loadConfig() *Config {
	interval, err := time.ParseDuration(getEnv("SAMPLE_INTERVAL", "1s"))
	if err != nil || interval <= 0 {
		log.Println("Invalid SAMPLE_INTERVAL, using 1s")
		interval = time.Second
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		log.Println("Invalid REDIS_DB, using 0")
		redisDB = 0
	}

	var brokers []string
	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MLServiceURL:       getEnv("ML_SERVICE_URL", ""),
		BaselineFile:       getEnv("BASELINE_FILE", ""),
		SampleInterval:     interval,
		RuleStore:          getEnv("RULE_STORE", "memory"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		BroadcastTransport: getEnv("BROADCAST_TRANSPORT", "log"),
		MQTTBrokerURL:      getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:       getEnv("MQTT_CLIENT_ID", "volcano-backend"),
		KafkaBrokers:       brokers,
		KafkaTopic:         getEnv("KAFKA_TOPIC", "volcano.broadcasts"),
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("GO_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newRuleStore picks the automated rule backend, falling back to memory
// when redis is unreachable
func newRuleStore(ctx context.Context, cfg *Config) (service.RuleStore, func()) {
	if cfg.RuleStore != "redis" {
		return memory.NewRuleStore(), func() {}
	}

	store := redisstore.NewRuleStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := store.Health(ctx); err != nil {
		log.Printf("Warning: Could not connect to redis: %v", err)
		log.Println("Using in-memory rule store")
		_ = store.Close()
		return memory.NewRuleStore(), func() {}
	}

	log.Printf("Connected to redis at %s", cfg.RedisAddr)
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close redis: %v", err)
		}
	}
}

type closingPublisher interface {
	service.Publisher
	io.Closer
}

// newPublisher picks the broadcast transport, falling back to the log
func newPublisher(cfg *Config) closingPublisher {
	switch cfg.BroadcastTransport {
	case "mqtt":
		p, err := messaging.NewMQTTPublisher(cfg.MQTTBrokerURL, cfg.MQTTClientID)
		if err != nil {
			log.Printf("Warning: MQTT unavailable: %v", err)
			break
		}
		log.Printf("Broadcasting via MQTT at %s", cfg.MQTTBrokerURL)
		return p
	case "kafka":
		p, err := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Printf("Warning: Kafka unavailable: %v", err)
			break
		}
		log.Printf("Broadcasting via Kafka topic %s", cfg.KafkaTopic)
		return p
	case "log", "":
	default:
		log.Printf("Unknown BROADCAST_TRANSPORT %q", cfg.BroadcastTransport)
	}

	log.Println("Broadcasting to log only")
	return messaging.NewLogPublisher()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
