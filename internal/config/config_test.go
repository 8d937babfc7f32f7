package config

import (
	"net/url"
	"os"
	"strings"
	"testing"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("MAILMIRROR_ENV", "production")
	t.Setenv("MAILMIRROR_DB_PASSWORD", "test-password")
	t.Setenv("MAILMIRROR_DB_HOST", "localhost")
	t.Setenv("MAILMIRROR_DB_PORT", "5432")
	t.Setenv("MAILMIRROR_DB_USER", "test-user")
	t.Setenv("MAILMIRROR_DB_NAME", "testdb")
	t.Setenv("MAILMIRROR_RAW_DIR", "/var/lib/mailmirror/raw")
	t.Setenv("MAILMIRROR_BATCH_SIZE", "25")
	t.Setenv("PORT", "3000")

	config, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() returned error: %v", err)
	}

	if config.Environment != "production" {
		t.Errorf("expected Environment 'production', got '%s'", config.Environment)
	}

	if config.DBHost != "localhost" {
		t.Errorf("expected DBHost 'localhost', got '%s'", config.DBHost)
	}

	if config.DBUsername != "test-user" {
		t.Errorf("expected DBUsername 'test-user', got '%s'", config.DBUsername)
	}

	if config.Port != "3000" {
		t.Errorf("expected Port '3000', got '%s'", config.Port)
	}

	if config.RawDir != "/var/lib/mailmirror/raw" {
		t.Errorf("expected RawDir '/var/lib/mailmirror/raw', got '%s'", config.RawDir)
	}

	if config.BatchSize != 25 {
		t.Errorf("expected BatchSize 25, got %d", config.BatchSize)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("MAILMIRROR_ENV", "production")
	t.Setenv("MAILMIRROR_DB_PASSWORD", "test-password")
	os.Unsetenv("MAILMIRROR_BATCH_SIZE")
	os.Unsetenv("MAILMIRROR_RAW_DIR")

	config, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig() returned error: %v", err)
	}

	if config.BatchSize != 50 {
		t.Errorf("expected default BatchSize 50, got %d", config.BatchSize)
	}

	if config.RawDir != "./data/raw" {
		t.Errorf("expected default RawDir './data/raw', got '%s'", config.RawDir)
	}
}

func TestValidateMissingPassword(t *testing.T) {
	t.Setenv("MAILMIRROR_ENV", "production")
	t.Setenv("MAILMIRROR_DB_PASSWORD", "")

	if _, err := NewConfig(); err == nil {
		t.Fatal("expected error for missing database password")
	}
}

func TestValidateBadBatchSize(t *testing.T) {
	config := &Config{DBPassword: "x", BatchSize: 0}
	if err := config.Validate(); err == nil {
		t.Fatal("expected error for non-positive batch size")
	}
}

func TestGetDatabaseURL(t *testing.T) {
	config := &Config{
		DBUsername: "user",
		DBPassword: "pass",
		DBHost:     "db.example.com",
		DBPort:     "5433",
		DBName:     "mail",
		DBSSLMode:  "require",
	}

	got := config.GetDatabaseURL()
	if !strings.HasPrefix(got, "postgres://") {
		t.Errorf("unexpected scheme in %q", got)
	}

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("GetDatabaseURL() produced unparseable URL: %v", err)
	}

	if parsed.Host != "db.example.com:5433" {
		t.Errorf("expected host 'db.example.com:5433', got '%s'", parsed.Host)
	}

	if parsed.Query().Get("sslmode") != "require" {
		t.Errorf("expected sslmode 'require', got '%s'", parsed.Query().Get("sslmode"))
	}
}
