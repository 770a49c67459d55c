package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MigrationsDir string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Calendar
	Timezone string
	Location *time.Location

	// SMTP. Mail is logged instead of sent when SMTPHost is empty.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Attachment storage
	StorageDriver  string // "local" or "s3"
	StoragePath    string
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	MaxUploadBytes int64

	// Redis, used for the cross-process sweep lock when set
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Scheduler
	SchedulerEnabled  bool
	RegularSweepHours []int
	UrgentSweepHours  []int
	SweepAPIKey       string

	// Reports
	ReportTimeout time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "billminder"),
		DBPassword: getEnv("DB_PASSWORD", "billminder"),
		DBName:     getEnv("DB_NAME", "billminder"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		Timezone: getEnv("APP_TIMEZONE", "America/Sao_Paulo"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getEnv("SMTP_FROM", "Contas <no-reply@billminder.local>"),

		StorageDriver:  getEnv("STORAGE_DRIVER", "local"),
		StoragePath:    getEnv("STORAGE_PATH", "uploads"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", true),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		RegularSweepHours: getEnvHours("REGULAR_SWEEP_HOURS", []int{18}),
		UrgentSweepHours:  getEnvHours("URGENT_SWEEP_HOURS", []int{6, 12, 15, 18}),
		SweepAPIKey:       os.Getenv("SWEEP_API_KEY"),
	}

	config.JWTExpirationDur = getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour)
	config.ReportTimeout = getEnvDuration("REPORT_TIMEOUT", 60*time.Second)

	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		log.Printf("Warning: unknown APP_TIMEZONE '%s', falling back to UTC\n", config.Timezone)
		loc = time.UTC
	}
	config.Location = loc

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// SMTPConfigured reports whether outgoing mail can be delivered.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %v\n", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvHours parses a comma separated list of hours of the day, e.g. "6,12,18".
func getEnvHours(key string, defaultValue []int) []int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	hours, err := ParseHours(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s': %v\n", key, raw, err)
		return defaultValue
	}
	return hours
}

// ParseHours parses "6, 12,18" into []int{6, 12, 18}. Every entry must be in 0..23.
func ParseHours(raw string) ([]int, error) {
	var hours []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if h < 0 || h > 23 {
			return nil, strconv.ErrRange
		}
		hours = append(hours, h)
	}
	return hours, nil
}
