package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Redis      RedisConfig      `yaml:"redis"`
	Google     GoogleConfig     `yaml:"google"`
	Booking    BookingConfig    `yaml:"booking"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Managers   []int64          `yaml:"managers"`
	Blacklist  []int64          `yaml:"blacklist"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetId  string `yaml:"bookings_spreadsheet_id"`
	BookingsSheetName     string `yaml:"bookings_sheet_name"`
}

// BookingConfig - правила формы бронирования: рабочее окно дня,
// шаг сетки слотов и TTL кеша снимка таблицы
type BookingConfig struct {
	DayStart        string `yaml:"day_start"`
	DayEnd          string `yaml:"day_end"`
	SlotMinutes     int    `yaml:"slot_minutes"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	MaxAdvanceDays  int    `yaml:"max_advance_days"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен, в контейнере переменные приходят из окружения
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if config.Google.BookingsSheetName == "" {
		config.Google.BookingsSheetName = "Bookings"
	}
	if config.Booking.DayStart == "" {
		config.Booking.DayStart = "08:00"
	}
	if config.Booking.DayEnd == "" {
		config.Booking.DayEnd = "16:30"
	}
	if config.Booking.SlotMinutes == 0 {
		config.Booking.SlotMinutes = 30
	}
	if config.Booking.CacheTTLSeconds == 0 {
		config.Booking.CacheTTLSeconds = 5
	}

	return &config, nil
}
