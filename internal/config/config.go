// Пакет config — загрузка и валидация конфигурации Clearing Module
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

// Config содержит все параметры конфигурации Clearing Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8000-8009)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- IdP (Keycloak) ---

	// URL Keycloak (например, https://keycloak.kryukov.lan)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Путь к CA-сертификату для TLS-соединений с IdP (опционально)
	IdPCACertPath string

	// --- Маппинг групп IdP → уровней доступа ---

	// Группы, дающие уровень admin (через запятую)
	PermAdminGroups []string
	// Группы, дающие уровень clearing_admin
	PermClearingAdminGroups []string
	// Группы, дающие уровень read_write
	PermWriteGroups []string
	// Группы, дающие уровень read_only
	PermReadGroups []string

	// --- Osselot ---

	// Включён ли поиск в реестре Osselot (флаг доступности функции в UI)
	OsselotEnabled bool
	// Базовый URL REST API Osselot
	OsselotAPIURL string
	// URL directory-listing API (GitHub contents endpoint проанализированных пакетов)
	OsselotIndexURL string
	// Каталог файлового кэша дескрипторов
	OsselotCacheDir string
	// Общий таймаут исходящего запроса к Osselot
	OsselotTimeout time.Duration
	// Таймаут установки соединения с Osselot
	OsselotConnectTimeout time.Duration
	// Размер in-memory LRU-кэша списков версий
	OsselotVersionsCacheSize int
	// TTL записи in-memory кэша списков версий
	OsselotVersionsCacheTTL time.Duration

	// --- Мониторинг зависимостей ---

	// Имя группы topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CM_PORT — порт HTTP-сервера (по умолчанию 8004)
	cfg.Port, err = getEnvInt("CM_PORT", 8004)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 8000 || cfg.Port > 8009 {
		return nil, fmt.Errorf("CM_PORT: значение %d вне допустимого диапазона 8000-8009", cfg.Port)
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

	// --- PostgreSQL ---

	// CM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("CM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// CM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}

	// CM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// CM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}

	// CM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// CM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("CM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- IdP ---

	// CM_KEYCLOAK_URL — обязательный
	cfg.KeycloakURL, err = getEnvRequired("CM_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")

	// CM_KEYCLOAK_REALM — realm (по умолчанию licstore)
	cfg.KeycloakRealm = getEnvDefault("CM_KEYCLOAK_REALM", "licstore")

	// CM_JWT_ISSUER — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTIssuer = getEnvDefault("CM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	// CM_JWT_JWKS_URL — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("CM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	// CM_IDP_CA_CERT_PATH — путь к CA-сертификату IdP (опционально)
	cfg.IdPCACertPath = getEnvDefault("CM_IDP_CA_CERT_PATH", "")

	// --- Маппинг групп → уровней доступа ---

	// CM_PERM_ADMIN_GROUPS — группы для уровня admin (по умолчанию "licstore-admins")
	cfg.PermAdminGroups = parseCSV(getEnvDefault("CM_PERM_ADMIN_GROUPS", "licstore-admins"))

	// CM_PERM_CLEARING_ADMIN_GROUPS — группы для уровня clearing_admin
	cfg.PermClearingAdminGroups = parseCSV(getEnvDefault("CM_PERM_CLEARING_ADMIN_GROUPS", "licstore-clearing-admins"))

	// CM_PERM_WRITE_GROUPS — группы для уровня read_write
	cfg.PermWriteGroups = parseCSV(getEnvDefault("CM_PERM_WRITE_GROUPS", "licstore-editors"))

	// CM_PERM_READ_GROUPS — группы для уровня read_only
	cfg.PermReadGroups = parseCSV(getEnvDefault("CM_PERM_READ_GROUPS", "licstore-viewers"))

	// --- Osselot ---

	// CM_OSSELOT_ENABLED — доступность поиска Osselot (по умолчанию true)
	cfg.OsselotEnabled, err = getEnvBool("CM_OSSELOT_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("CM_OSSELOT_ENABLED: %w", err)
	}

	// CM_OSSELOT_API_URL — базовый URL REST API (по умолчанию https://rest.osselot.org)
	cfg.OsselotAPIURL = strings.TrimRight(
		getEnvDefault("CM_OSSELOT_API_URL", "https://rest.osselot.org"), "/")

	// CM_OSSELOT_INDEX_URL — directory-listing API проанализированных пакетов
	cfg.OsselotIndexURL = strings.TrimRight(
		getEnvDefault("CM_OSSELOT_INDEX_URL",
			"https://api.github.com/repos/Open-Source-Compliance/package-analysis/contents/analysed-packages"), "/")

	// CM_OSSELOT_CACHE_DIR — каталог файлового кэша дескрипторов
	cfg.OsselotCacheDir = getEnvDefault("CM_OSSELOT_CACHE_DIR", "/var/cache/licstore/osselot")

	// CM_OSSELOT_TIMEOUT — общий таймаут запроса (по умолчанию 30s)
	cfg.OsselotTimeout, err = getEnvDuration("CM_OSSELOT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_OSSELOT_TIMEOUT: %w", err)
	}

	// CM_OSSELOT_CONNECT_TIMEOUT — таймаут соединения (по умолчанию 10s)
	cfg.OsselotConnectTimeout, err = getEnvDuration("CM_OSSELOT_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_OSSELOT_CONNECT_TIMEOUT: %w", err)
	}

	// CM_OSSELOT_VERSIONS_CACHE_SIZE — размер LRU-кэша списков версий (по умолчанию 256)
	cfg.OsselotVersionsCacheSize, err = getEnvInt("CM_OSSELOT_VERSIONS_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("CM_OSSELOT_VERSIONS_CACHE_SIZE: %w", err)
	}
	if cfg.OsselotVersionsCacheSize < 1 || cfg.OsselotVersionsCacheSize > 10000 {
		return nil, fmt.Errorf("CM_OSSELOT_VERSIONS_CACHE_SIZE: значение %d вне допустимого диапазона 1-10000", cfg.OsselotVersionsCacheSize)
	}

	// CM_OSSELOT_VERSIONS_CACHE_TTL — TTL записи LRU-кэша (по умолчанию 15m)
	cfg.OsselotVersionsCacheTTL, err = getEnvDuration("CM_OSSELOT_VERSIONS_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_OSSELOT_VERSIONS_CACHE_TTL: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// CM_DEPHEALTH_GROUP — имя группы topologymetrics (по умолчанию licstore)
	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "licstore")

	// CM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// CM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
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

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 15m, 1h)", val)
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
