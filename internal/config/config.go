package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"article-sync-server/pkg/hash"

	"github.com/joho/godotenv"
)

const (
	DriverCouch  = "couch"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Versions  VersionsConfig
	Hash      HashConfig
	Upload    UploadConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SQLitePath string
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

type VersionsConfig struct {
	// KeepCount bounds per-article history after every snapshot; 0 disables pruning.
	KeepCount    int
	HistoryLimit int
}

type HashConfig struct {
	Algorithm string
}

type UploadConfig struct {
	Concurrency int
	Dir         string
	BaseURL     string
	// SourceDir bounds where image paths in upload requests may point.
	// Empty accepts inline image data only.
	SourceDir string
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverSQLite),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5984"),
			User:       getEnv("DB_USER", "admin"),
			Password:   getEnv("DB_PASSWORD", "password"),
			Name:       getEnv("DB_NAME", "articles"),
			SQLitePath: getEnv("SQLITE_PATH", "articles.db"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 10485760)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Versions: VersionsConfig{
			KeepCount:    getEnvAsInt("VERSION_KEEP_COUNT", 20),
			HistoryLimit: getEnvAsInt("VERSION_HISTORY_LIMIT", 50),
		},
		Hash: HashConfig{
			Algorithm: getEnv("CONTENT_HASH_ALGO", hash.AlgorithmFNV),
		},
		Upload: UploadConfig{
			Concurrency: getEnvAsInt("UPLOAD_CONCURRENCY", 36),
			Dir:         getEnv("UPLOAD_DIR", "uploads"),
			BaseURL:     getEnv("UPLOAD_BASE_URL", "/uploads"),
			SourceDir:   os.Getenv("UPLOAD_SOURCE_DIR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverCouch, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER: %q", c.Database.Driver)
	}

	if _, err := hash.New(c.Hash.Algorithm); err != nil {
		return fmt.Errorf("invalid CONTENT_HASH_ALGO: %w", err)
	}

	if c.Upload.Concurrency <= 0 {
		return fmt.Errorf("invalid UPLOAD_CONCURRENCY: %d", c.Upload.Concurrency)
	}

	if c.Versions.KeepCount < 0 {
		return fmt.Errorf("invalid VERSION_KEEP_COUNT: %d", c.Versions.KeepCount)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
