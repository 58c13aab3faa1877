// Пакет config — загрузка и валидация конфигурации Contract Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Окружения развёртывания.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config содержит все параметры конфигурации Contract Module.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Окружение: production или development.
	// В development разрешён dev-bypass токена контракта (только GET).
	Env string
	// Секретный ключ для подписи токенов контракта (tenant-scoped salt
	// выводится из него и slug-а tenant-а)
	SecretKey string
	// Корневая директория артефактов (contracts/, signatures/ per tenant)
	DataDir string
	// Директория legacy-артефактов (до tenant-скоупинга), только чтение.
	// Пустая строка — legacy fallback отключён.
	LegacyDir string
	// Базовая директория статики tenant-ов (base_url для HTML→PDF)
	StaticDir string
	// Путь к бинарю wkhtmltopdf
	WkhtmltopdfPath string

	// PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// URL JWKS endpoint для аутентификации административных запросов
	// (валидация шаблонов, удаление контрактов). Пусто — admin API отключён.
	JWKSUrl string
	// Допустимое отклонение времени при проверке admin JWT
	JWTLeeway time.Duration

	// Размер буфера очереди событий ContractSigned
	NotifyQueueSize int

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя вершины графа в метриках topologymetrics
	DephealthName string

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	ShutdownTimeout  time.Duration
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// IsDevelopment сообщает, запущен ли модуль в окружении разработки.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// CM_PORT — порт HTTP-сервера (по умолчанию 8030)
	cfg.Port, err = getEnvInt("CM_PORT", 8030)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CM_PORT: значение %d вне допустимого диапазона", cfg.Port)
	}

	// CM_ENV — окружение (по умолчанию production: bypass токена выключен)
	cfg.Env = getEnvDefault("CM_ENV", EnvProduction)
	if cfg.Env != EnvProduction && cfg.Env != EnvDevelopment {
		return nil, fmt.Errorf("CM_ENV: недопустимое значение %q, допустимые: production, development", cfg.Env)
	}

	// CM_SECRET_KEY — обязательный
	cfg.SecretKey, err = getEnvRequired("CM_SECRET_KEY")
	if err != nil {
		return nil, err
	}
	if len(cfg.SecretKey) < 32 {
		return nil, fmt.Errorf("CM_SECRET_KEY: длина должна быть не менее 32 символов")
	}

	// CM_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("CM_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// CM_LEGACY_DIR — директория артефактов до tenant-скоупинга (опционально)
	cfg.LegacyDir = getEnvDefault("CM_LEGACY_DIR", "")

	// CM_STATIC_DIR — базовая директория статики (по умолчанию ./static)
	cfg.StaticDir = getEnvDefault("CM_STATIC_DIR", "static")

	// CM_WKHTMLTOPDF_PATH — путь к бинарю (по умолчанию ищется в PATH)
	cfg.WkhtmltopdfPath = getEnvDefault("CM_WKHTMLTOPDF_PATH", "")

	// CM_DB_* — PostgreSQL
	cfg.DBHost, err = getEnvRequired("CM_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("CM_DB_SSLMODE", "disable")

	// CM_JWKS_URL — admin-аутентификация (опционально)
	cfg.JWKSUrl = getEnvDefault("CM_JWKS_URL", "")

	// CM_JWT_LEEWAY — допуск времени при проверке admin JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("CM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWT_LEEWAY: %w", err)
	}

	// CM_NOTIFY_QUEUE_SIZE — буфер очереди уведомлений (по умолчанию 64)
	cfg.NotifyQueueSize, err = getEnvInt("CM_NOTIFY_QUEUE_SIZE", 64)
	if err != nil {
		return nil, fmt.Errorf("CM_NOTIFY_QUEUE_SIZE: %w", err)
	}
	if cfg.NotifyQueueSize <= 0 {
		return nil, fmt.Errorf("CM_NOTIFY_QUEUE_SIZE: значение должно быть положительным")
	}

	// CM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	// CM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// CM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// DEPHEALTH_NAME — имя вершины графа topologymetrics
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "contract-module")

	// Таймауты HTTP
	cfg.HTTPReadTimeout, err = getEnvDuration("CM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("CM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
