package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	Env            string
	LogLevel       string
	DBDriver       string
	DSN            string
	JWTSecret      string
	JWTTTLHrs      int
	CORSOrigin     string
	RunMigrations  bool
	PersistTimeout time.Duration
}

// Load reads the environment, after a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := strconv.Atoi(getEnv("JWT_TTL_HOURS", "24"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL_HOURS %q", os.Getenv("JWT_TTL_HOURS"))
	}
	migrate, err := strconv.ParseBool(getEnv("RUN_MIGRATIONS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_MIGRATIONS: %w", err)
	}
	persist, err := time.ParseDuration(getEnv("PERSIST_TIMEOUT", "5s"))
	if err != nil || persist <= 0 {
		return nil, fmt.Errorf("invalid PERSIST_TIMEOUT %q", os.Getenv("PERSIST_TIMEOUT"))
	}

	c := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DSN:            os.Getenv("DB_DSN"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTLHrs:      ttl,
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		RunMigrations:  migrate,
		PersistTimeout: persist,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("missing env: DB_DSN"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing env: JWT_SECRET"))
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHrs) * time.Hour
}

// NewLogger builds the process logger: JSON in production, text elsewhere.
func (c *Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if c.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
