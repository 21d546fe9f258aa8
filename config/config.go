package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/courtside/rally/pkg/logger"
)

type Config struct {
	App struct {
		Env         string
		Port        string
		FrontendURL string
	}
	DB struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}
	Identity struct {
		// Secret used to verify bearer tokens minted by the external
		// identity provider.
		Secret string
	}
	League struct {
		MaxTeamsPerSession int
		ConfirmedThreshold int
		DefaultWeeksAhead  int
	}
}

// Global DB instance, set by ConnectDB via Initialize.
var DB *gorm.DB

var appConfig *Config
var once sync.Once

// LoadConfig loads configuration from environment variables into the Config
// struct. A missing .env file is fine; production sets env vars directly.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Default().Debug("no .env file found, relying on system environment variables")
	}

	cfg := &Config{}

	cfg.App.Env = getEnv("APP_ENV", "development")
	cfg.App.Port = getEnv("PORT", "8090")
	cfg.App.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	cfg.DB.Host = getEnv("DB_HOST", "localhost")
	cfg.DB.Port = getEnv("DB_PORT", "5432")
	cfg.DB.User = getEnv("DB_USER", "postgres")
	cfg.DB.Password = getEnv("DB_PASSWORD", "password")
	cfg.DB.Name = getEnv("DB_NAME", "rally_db")
	cfg.DB.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Identity.Secret = getEnv("IDENTITY_TOKEN_SECRET", "dev-identity-secret")

	var err error
	cfg.League.MaxTeamsPerSession, err = getEnvAsInt("LEAGUE_MAX_TEAMS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid LEAGUE_MAX_TEAMS: %w", err)
	}
	cfg.League.ConfirmedThreshold, err = getEnvAsInt("LEAGUE_CONFIRMED_THRESHOLD", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LEAGUE_CONFIRMED_THRESHOLD: %w", err)
	}
	cfg.League.DefaultWeeksAhead, err = getEnvAsInt("LEAGUE_WEEKS_AHEAD", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LEAGUE_WEEKS_AHEAD: %w", err)
	}

	if cfg.Identity.Secret == "dev-identity-secret" && cfg.App.Env == "production" {
		logger.Default().Warn("using default identity token secret in production; set IDENTITY_TOKEN_SECRET")
	}

	appConfig = cfg
	return cfg, nil
}

// ConnectDB establishes the database connection and sets the global DB.
func ConnectDB(cfg Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DB.Host,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Name,
		cfg.DB.Port,
		cfg.DB.SSLMode,
	)

	gormConfig := &gorm.Config{}
	if cfg.App.Env == "development" {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	} else {
		gormConfig.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = gormDB
	logger.Default().Info("connected to database", "host", cfg.DB.Host, "name", cfg.DB.Name)
	return gormDB, nil
}

// Initialize loads configuration and connects to the database. Call once
// from main.
func Initialize() error {
	var loadErr error
	once.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			loadErr = fmt.Errorf("failed to load configuration: %w", err)
			return
		}
		if _, err := ConnectDB(*cfg); err != nil {
			loadErr = fmt.Errorf("failed to connect to database: %w", err)
		}
	})
	return loadErr
}

// GetConfig returns the loaded application configuration.
func GetConfig() *Config {
	if appConfig == nil {
		logger.Default().Fatal("configuration not loaded, call config.Initialize() first")
	}
	return appConfig
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return fallback, fmt.Errorf("env var %s: expected integer, got '%s'", key, valueStr)
	}
	return value, nil
}
