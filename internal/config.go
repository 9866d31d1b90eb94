package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	StorageBackendPostgres  = "postgres"
	StorageBackendFirestore = "firestore"
	StorageBackendMemory    = "memory"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Firebase      FirebaseConfig      `mapstructure:"firebase"`
	Security      SecurityConfig      `mapstructure:"security"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ValidateRequests  bool          `mapstructure:"validate_requests"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// StorageConfig selects the inventory ledger backend. Users and reports always
// live in the relational database.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type FirebaseConfig struct {
	ProjectID        string `mapstructure:"project_id"`
	CredentialsFile  string `mapstructure:"credentials_file"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

type SchedulerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	OverdueScan      string `mapstructure:"overdue_scan"`
	ConsistencyAudit string `mapstructure:"consistency_audit"`
	OverdueDays      int    `mapstructure:"overdue_days"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfigFromEnv builds the configuration for container deployments where
// no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ValidateRequests:  getEnvAsBool("VALIDATE_REQUESTS", false),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", StorageBackendPostgres),
		},
		Firebase: FirebaseConfig{
			ProjectID:        getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			CollectionPrefix: getEnv("FIRESTORE_COLLECTION_PREFIX", ""),
		},
		Security: SecurityConfig{
			JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getEnvAsBool("SCHEDULER_ENABLED", true),
			OverdueScan:      getEnv("SCHEDULER_OVERDUE_SCAN", "0 0 7 * * *"),
			ConsistencyAudit: getEnv("SCHEDULER_CONSISTENCY_AUDIT", "0 30 * * * *"),
			OverdueDays:      getEnvAsInt("SCHEDULER_OVERDUE_DAYS", 30),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if c.Storage.Backend == StorageBackendFirestore {
		if err := c.Firebase.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("firebase config: %v", err))
		}
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("scheduler config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendPostgres, StorageBackendFirestore, StorageBackendMemory:
		return nil
	case "":
		return errors.New("backend is required")
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
}

func (c *FirebaseConfig) Validate() error {
	if c.ProjectID == "" {
		return errors.New("project_id is required")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTAccessSecret) < 32 {
		return errors.New("jwt_access_secret must be at least 32 characters")
	}
	if len(c.JWTRefreshSecret) < 32 {
		return errors.New("jwt_refresh_secret must be at least 32 characters")
	}
	if c.AccessTokenDuration < time.Minute {
		return errors.New("access_token_duration must be at least 1m")
	}
	if c.RefreshTokenDuration < c.AccessTokenDuration {
		return errors.New("refresh_token_duration must be >= access_token_duration")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 4 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 4 and 15")
	}
	return nil
}

func (c *SchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.OverdueScan); err != nil {
		return fmt.Errorf("invalid overdue_scan schedule: %w", err)
	}
	if _, err := parser.Parse(c.ConsistencyAudit); err != nil {
		return fmt.Errorf("invalid consistency_audit schedule: %w", err)
	}
	if c.OverdueDays < 0 {
		return errors.New("overdue_days cannot be negative")
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}
