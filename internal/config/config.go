package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"

	UploadHTTP = "http"
	UploadMQTT = "mqtt"
)

// Config holds the settings shared by every binary.
type Config struct {
	AppEnv   string
	LogLevel slog.Level
}

// MQTTConfig is optional; an empty Broker disables MQTT.
type MQTTConfig struct {
	Broker   string
	Port     int
	ClientID string
	Topic    string
}

func (m MQTTConfig) Enabled() bool {
	return m.Broker != ""
}

type ServerConfig struct {
	Config
	HTTPAddr string

	// StaticDir is the absolute path of the directory served at / and /{path}.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	// DataDir holds {id}.txt reading files and {id}_config.json sidecars.
	DataDir        string
	StorageBackend string

	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	CORSAllowedOrigins []string

	MQTT MQTTConfig
}

type RelayConfig struct {
	Config

	SerialPort   string
	SerialBaud   int
	PollInterval time.Duration
	SettleDelay  time.Duration

	IngestBaseURL string
	UploadMode    string
	UploadTimeout time.Duration

	MQTT MQTTConfig
}

func LoadServerFromEnv() (ServerConfig, error) {
	base, err := loadBase()
	if err != nil {
		return ServerConfig{}, err
	}

	httpAddr := getenv("HTTP_ADDR", ":8080")

	staticDir, err := filepath.Abs(getenv("STATIC_DIR", "static"))
	if err != nil {
		return ServerConfig{}, fmt.Errorf("STATIC_DIR %q: %w", os.Getenv("STATIC_DIR"), err)
	}

	dataDir := getenv("DATA_DIR", "arduino_data")

	backend := strings.ToLower(getenv("STORAGE_BACKEND", StorageFile))
	switch backend {
	case StorageFile, StorageSQLite:
	default:
		return ServerConfig{}, fmt.Errorf("invalid STORAGE_BACKEND %q (allowed: file, sqlite)", backend)
	}

	sqlitePath := getenv("SQLITE_PATH", filepath.Join(dataDir, "skladi.db"))

	maxOpenConnsStr := getenv("DB_MAX_OPEN_CONNS", "1")
	maxOpenConns, err := strconv.Atoi(maxOpenConnsStr)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid DB_MAX_OPEN_CONNS %q: %w", maxOpenConnsStr, err)
	}

	maxIdleConnsStr := getenv("DB_MAX_IDLE_CONNS", "1")
	maxIdleConns, err := strconv.Atoi(maxIdleConnsStr)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid DB_MAX_IDLE_CONNS %q: %w", maxIdleConnsStr, err)
	}

	connMaxLifetimeStr := getenv("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	origins := splitList(getenv("CORS_ALLOWED_ORIGINS", "*"))

	mqttCfg, err := loadMQTT("skladi-server")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Config:                base,
		HTTPAddr:              httpAddr,
		StaticDir:             staticDir,
		DataDir:               dataDir,
		StorageBackend:        backend,
		SQLitePath:            sqlitePath,
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		CORSAllowedOrigins:    origins,
		MQTT:                  mqttCfg,
	}, nil
}

func LoadRelayFromEnv() (RelayConfig, error) {
	base, err := loadBase()
	if err != nil {
		return RelayConfig{}, err
	}

	serialPort := getenv("SERIAL_PORT", "/dev/ttyACM0")

	baudStr := getenv("SERIAL_BAUD", "9600")
	baud, err := strconv.Atoi(baudStr)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("invalid SERIAL_BAUD %q: %w", baudStr, err)
	}
	if baud <= 0 {
		return RelayConfig{}, fmt.Errorf("SERIAL_BAUD must be positive, got %d", baud)
	}

	pollStr := getenv("SERIAL_POLL_INTERVAL", "100ms")
	poll, err := time.ParseDuration(pollStr)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("invalid SERIAL_POLL_INTERVAL %q: %w", pollStr, err)
	}
	if poll <= 0 {
		return RelayConfig{}, fmt.Errorf("SERIAL_POLL_INTERVAL must be positive, got %v", poll)
	}

	settleStr := getenv("SERIAL_SETTLE_DELAY", "2s")
	settle, err := time.ParseDuration(settleStr)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("invalid SERIAL_SETTLE_DELAY %q: %w", settleStr, err)
	}
	if settle < 0 {
		return RelayConfig{}, fmt.Errorf("SERIAL_SETTLE_DELAY must not be negative, got %v", settle)
	}

	mode := strings.ToLower(getenv("UPLOAD_MODE", UploadHTTP))
	switch mode {
	case UploadHTTP, UploadMQTT:
	default:
		return RelayConfig{}, fmt.Errorf("invalid UPLOAD_MODE %q (allowed: http, mqtt)", mode)
	}

	baseURL := strings.TrimRight(getenv("INGEST_BASE_URL", ""), "/")
	if mode == UploadHTTP {
		if baseURL == "" {
			return RelayConfig{}, errors.New("INGEST_BASE_URL is required when UPLOAD_MODE=http")
		}
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return RelayConfig{}, fmt.Errorf("invalid INGEST_BASE_URL %q (expected http(s)://host[/prefix])", baseURL)
		}
	}

	timeoutStr := getenv("UPLOAD_TIMEOUT", "0s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return RelayConfig{}, fmt.Errorf("invalid UPLOAD_TIMEOUT %q: %w", timeoutStr, err)
	}

	mqttCfg, err := loadMQTT("skladi-relay")
	if err != nil {
		return RelayConfig{}, err
	}
	if mode == UploadMQTT && !mqttCfg.Enabled() {
		return RelayConfig{}, errors.New("MQTT_BROKER is required when UPLOAD_MODE=mqtt")
	}

	return RelayConfig{
		Config:        base,
		SerialPort:    serialPort,
		SerialBaud:    baud,
		PollInterval:  poll,
		SettleDelay:   settle,
		IngestBaseURL: baseURL,
		UploadMode:    mode,
		UploadTimeout: timeout,
		MQTT:          mqttCfg,
	}, nil
}

func loadBase() (Config, error) {
	// Variables already set in the environment take precedence over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	appEnv := getenv("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,
	}, nil
}

func loadMQTT(defaultClientID string) (MQTTConfig, error) {
	portStr := getenv("MQTT_PORT", "1883")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return MQTTConfig{}, fmt.Errorf("invalid MQTT_PORT %q: %w", portStr, err)
	}

	return MQTTConfig{
		Broker:   getenv("MQTT_BROKER", ""),
		Port:     port,
		ClientID: getenv("MQTT_CLIENT_ID", defaultClientID),
		Topic:    getenv("MQTT_TOPIC", "items/+/readings"),
	}, nil
}

func getenv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
