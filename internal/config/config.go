// Package config loads service settings from the environment once at startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Addr      string
	Secret    string
	TokenTTL  time.Duration
	LogLevel  string
	CORSAllow string

	// Store selects the user store backend: mongo, postgres or memory.
	Store string

	MongoURI      string
	MongoDatabase string

	// DatabaseURL is the PostgreSQL DSN used when Store is postgres.
	DatabaseURL string
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := getEnvAsDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:          ":" + strings.TrimPrefix(getEnv("PORT", "3000"), ":"),
		Secret:        os.Getenv("SECRET"),
		TokenTTL:      ttl,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CORSAllow:     getEnv("CORS_ALLOW_ORIGINS", "*"),
		Store:         strings.ToLower(getEnv("USER_STORE", StoreMongo)),
		MongoURI:      mongoURI(),
		MongoDatabase: getEnv("DB_NAME", "auth"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot safely run with.
func (c *Config) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.Secret, validation.Required),
		validation.Field(&c.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Store, validation.Required, validation.In(StoreMongo, StorePostgres, StoreMemory)),
	}

	switch c.Store {
	case StoreMongo:
		fields = append(fields,
			validation.Field(&c.MongoURI, validation.Required.Error("set MONGODB_URI or DB_USER and DB_PASS")),
			validation.Field(&c.MongoDatabase, validation.Required),
		)
	case StorePostgres:
		fields = append(fields, validation.Field(&c.DatabaseURL, validation.Required))
	}

	if err := validation.ValidateStruct(c, fields...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// mongoURI prefers MONGODB_URI and otherwise builds one from the DB_USER,
// DB_PASS and DB_HOST credentials.
func mongoURI() string {
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		return uri
	}

	user, pass := os.Getenv("DB_USER"), os.Getenv("DB_PASS")
	if user == "" || pass == "" {
		return ""
	}

	u := url.URL{
		Scheme:   getEnv("DB_SCHEME", "mongodb"),
		User:     url.UserPassword(user, pass),
		Host:     getEnv("DB_HOST", "localhost:27017"),
		Path:     "/",
		RawQuery: "retryWrites=true&w=majority",
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
