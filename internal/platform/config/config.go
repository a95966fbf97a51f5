// Package config builds the single explicit configuration struct the rest of
// the process is wired from. Components receive their slice of it through
// constructors; nothing reads the environment after startup.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures all process configuration.
type Config struct {
	Addr      string
	LogFormat string

	// DatabaseURL selects the postgres request store; empty runs the
	// in-memory store (development only, state is lost on restart).
	DatabaseURL string

	Redis     Redis
	Kafka     Kafka
	Directory Directory
	SMTP      SMTP
	RateLimit RateLimit

	// AdminEmail receives new-request notifications; empty disables them.
	AdminEmail string
	// EmailLogPath is the durable fallback log for undeliverable mail.
	EmailLogPath string
}

// Redis configures the optional rate-limit backend.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the optional registration event stream.
type Kafka struct {
	Brokers string
	Topic   string
}

// Directory configures the LDAP directory the workflow provisions into.
type Directory struct {
	URL        string
	BaseDN     string
	AdminUser  string
	SecretFile string
	// SecretEnv is the fallback when SecretFile is absent.
	SecretEnv     string
	LookupTimeout time.Duration
	MutateTimeout time.Duration
}

// SMTP configures outbound notification mail. Disabled means every message
// goes straight to the fallback log.
type SMTP struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	From     string
	UseTLS   bool
}

// RateLimit bounds public admission submissions per client IP.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	adminEmail := os.Getenv("ADMIN_EMAIL")

	return Config{
		Addr:        envOr("REGDESK_ADDR", ":8080"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Topic:   envOr("KAFKA_TOPIC", "regdesk.registrations"),
		},
		Directory: Directory{
			URL:           envOr("LDAP_URL", "ldap://lldap:3890"),
			BaseDN:        envOr("LDAP_BASE_DN", "dc=example,dc=com"),
			AdminUser:     envOr("LDAP_ADMIN_USER", "admin"),
			SecretFile:    envOr("LDAP_ADMIN_PASSWORD_FILE", "/secrets-lldap/LDAP_USER_PASS"),
			SecretEnv:     "LDAP_ADMIN_PASSWORD",
			LookupTimeout: envDuration("LDAP_LOOKUP_TIMEOUT", 5*time.Second),
			MutateTimeout: envDuration("LDAP_MUTATE_TIMEOUT", 10*time.Second),
		},
		SMTP: SMTP{
			Enabled:  os.Getenv("SMTP_ENABLED") == "true",
			Host:     envOr("SMTP_HOST", "localhost"),
			Port:     envInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     envOr("SMTP_FROM", adminEmail),
			UseTLS:   envOr("SMTP_USE_TLS", "true") == "true",
		},
		RateLimit: RateLimit{
			Requests: envInt("RATE_LIMIT_REQUESTS", 5),
			Window:   envDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		AdminEmail:   adminEmail,
		EmailLogPath: envOr("EMAIL_LOG_FILE", "/data/emails.log"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
