package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Venue    VenueConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topics   TopicConfig
	Enabled  bool
	MockMode bool
}

type TopicConfig struct {
	BookingCompleted string
	AdmissionEvents  string
}

// VenueConfig carries the venue's day-boundary and policy knobs.
type VenueConfig struct {
	Timezone string
	// StorageTimeout bounds each booking-ledger lookup and attendance write.
	StorageTimeout time.Duration
	// MaxScanDays is the widest range the category distribution will
	// recompute from raw bookings before falling back to the persisted
	// daily rollups.
	MaxScanDays int
	// TodayCacheTTL is how long the dashboard summary may be served from
	// Redis before being recomputed.
	TodayCacheTTL time.Duration
}

type AuthConfig struct {
	// StaffTokenSecret signs the HS256 tokens the admin gate accepts.
	StaffTokenSecret string
	// PassSecret encrypts the QR entry-pass payload.
	PassSecret string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "admission_user"),
			Password:     getEnv("DB_PASSWORD", "admission_pass"),
			Database:     getEnv("DB_NAME", "admissions"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID:  getEnv("KAFKA_GROUP_ID", "admission-service-group"),
			Enabled:  getEnvBool("KAFKA_ENABLED", true),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
			Topics: TopicConfig{
				BookingCompleted: getEnv("KAFKA_TOPIC_BOOKING_COMPLETED", "booking-completed"),
				AdmissionEvents:  getEnv("KAFKA_TOPIC_ADMISSION_EVENTS", "admission-events"),
			},
		},
		Venue: VenueConfig{
			Timezone:       getEnv("VENUE_TIMEZONE", "Asia/Kolkata"),
			StorageTimeout: time.Duration(getEnvInt("STORAGE_TIMEOUT_SECONDS", 5)) * time.Second,
			MaxScanDays:    getEnvInt("DISTRIBUTION_MAX_SCAN_DAYS", 92),
			TodayCacheTTL:  time.Duration(getEnvInt("TODAY_CACHE_TTL_SECONDS", 15)) * time.Second,
		},
		Auth: AuthConfig{
			StaffTokenSecret: getEnv("STAFF_TOKEN_SECRET", ""),
			PassSecret:       getEnv("ENTRY_PASS_SECRET", ""),
		},
	}
}

// Location resolves the venue timezone, falling back to UTC on a bad name.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Venue.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
