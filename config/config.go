package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lipia/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppName             string
	APIURL              string
	APIKey              string
	APIKeyHeader        string
	APITimeout          time.Duration
	Debug               bool
	SecretKey           string
	Port                string
	SessionTTL          time.Duration
	DatabaseURL         string
	AdminPassword       string
	LogLevel            string
	LogFormat           string
	LoginRate           float64
	LoginBurst          int
	CORSOrigins         []string
	PaymentPollInterval time.Duration
	PaymentPollAttempts int
	SeedDemo            bool
	Plans               models.PlanTable
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg := &Config{
		AppName:             getEnv("APP_NAME", "Lipia Subscription Service"),
		APIURL:              strings.TrimRight(getEnv("API_URL", "http://localhost:5000/api"), "/"),
		APIKey:              getEnv("API_KEY", "your-api-key-here"),
		APIKeyHeader:        getEnv("API_KEY_HEADER", ""),
		APITimeout:          getDuration("API_TIMEOUT", 30*time.Second),
		Debug:               getBool("DEBUG", true),
		SecretKey:           getEnv("SECRET_KEY", "your-secret-key-here"),
		Port:                getEnv("PORT", "5001"),
		SessionTTL:          getDuration("SESSION_TTL", 24*time.Hour),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		LoginRate:           getFloat("LOGIN_RATE", 0.2),
		LoginBurst:          getInt("LOGIN_BURST", 5),
		CORSOrigins:         splitList(getEnv("CORS_ORIGINS", "*")),
		PaymentPollInterval: getDuration("PAYMENT_POLL_INTERVAL", 5*time.Second),
		PaymentPollAttempts: getInt("PAYMENT_POLL_ATTEMPTS", 24),
		SeedDemo:            getBool("SEED_DEMO", true),
		Plans:               models.DefaultPlans(),
	}

	if path := getEnv("PLANS_FILE", ""); path != "" {
		plans, err := LoadPlans(path)
		if err != nil {
			return nil, err
		}
		cfg.Plans = plans
	}

	return cfg, nil
}

// LoadPlans reads a YAML pricing table, e.g.
//
//	plans:
//	  - name: Free
//	    price: 0
//	    word_limit: 500
func LoadPlans(path string) (models.PlanTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing table: %w", err)
	}

	var doc struct {
		Plans models.PlanTable `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pricing table %s: %w", path, err)
	}
	if err := doc.Plans.Validate(); err != nil {
		return nil, fmt.Errorf("pricing table %s: %w", path, err)
	}
	return doc.Plans, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "true", "1", "t":
		return true
	case "":
		return fallback
	default:
		return false
	}
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return fallback
}

// getDuration accepts Go durations ("30s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
