package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"peregovorka/internal/bot"
	"peregovorka/internal/config"
	"peregovorka/internal/google"
	"peregovorka/internal/models"
	"peregovorka/internal/repository"
	"peregovorka/internal/store"
)

func main() {
	// Загрузка конфигурации
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("Config file does not exist: %s", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Загрузка переговорок из отдельного файла
	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}
	roomsData, err := os.ReadFile(roomsPath)
	if err != nil {
		log.Fatalf("Ошибка чтения %s: %v", roomsPath, err)
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(roomsData, &roomsConfig); err != nil {
		log.Fatalf("Ошибка парсинга %s: %v", roomsPath, err)
	}

	if err := os.MkdirAll(cfg.Exports.Path, 0755); err != nil {
		log.Fatal("Ошибка создания директории для экспорта:", err)
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		log.Fatal("Задайте токен бота в config.yaml")
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализация Google Sheets
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetId == "" {
		log.Fatal("Нехватает переменных для подключения к Гуглу")
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.GoogleCredentialsFile,
		cfg.Google.BookingSpreadSheetId,
		cfg.Google.BookingsSheetName,
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to initialize Google Sheets service: %v", err)
	}

	if err := sheetsService.TestConnection(ctx); err != nil {
		log.Fatalf("Google Sheets connection test failed: %v", err)
	}
	logger.Info().Msg("Google Sheets service initialized successfully")

	// Инициализация Redis (необязательно)
	var snapshotCache store.Cache
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, reading the sheet directly")
			_ = repository.Close(redisClient)
			redisClient = nil
		} else {
			snapshotCache = repository.NewSnapshotCache(redisClient,
				time.Duration(cfg.Booking.CacheTTLSeconds)*time.Second, logger)
		}
	}
	defer repository.Close(redisClient)

	bookingStore := store.New(sheetsService, snapshotCache, roomsConfig.Rooms, logger)

	var metrics *bot.Metrics
	if cfg.Monitoring.PrometheusEnabled {
		metrics = bot.NewMetrics()
		port := cfg.Monitoring.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go startMetricsServer(ctx, port, logger)
	}

	// Создание и запуск бота
	telegramBot, err := bot.NewBot(cfg.Telegram.BotToken, cfg, roomsConfig.Rooms, bookingStore, metrics, logger)
	if err != nil {
		log.Fatal("Ошибка создания бота:", err)
	}

	logger.Info().Msg("Бот запущен...")
	go telegramBot.Start(ctx)

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received...")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func startMetricsServer(ctx context.Context, port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
