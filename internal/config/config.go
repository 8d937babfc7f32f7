package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	DBHost      string
	DBPort      string
	DBUsername  string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	Port        string
	RawDir      string
	BatchSize   int
	Timezone    string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILMIRROR_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment: env,
		DBHost:      getEnvOrDefault("MAILMIRROR_DB_HOST", "localhost"),
		DBPort:      getEnvOrDefault("MAILMIRROR_DB_PORT", "5432"),
		DBUsername:  getEnvOrDefault("MAILMIRROR_DB_USER", "mailmirror"),
		DBPassword:  os.Getenv("MAILMIRROR_DB_PASSWORD"),
		DBName:      getEnvOrDefault("MAILMIRROR_DB_NAME", "mailmirror"),
		DBSSLMode:   getEnvOrDefault("MAILMIRROR_DB_SSLMODE", "disable"),
		Port:        getEnvOrDefault("PORT", "8080"),
		RawDir:      getEnvOrDefault("MAILMIRROR_RAW_DIR", "./data/raw"),
		BatchSize:   getEnvIntOrDefault("MAILMIRROR_BATCH_SIZE", 50),
		Timezone:    getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("MAILMIRROR_DB_PASSWORD is required")
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("MAILMIRROR_BATCH_SIZE must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
