package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty default", cfg.DatabaseURL)
	}
	if cfg.NotifyKafkaTopic != "servicedesk-transitions" {
		t.Errorf("NotifyKafkaTopic = %q, want %q", cfg.NotifyKafkaTopic, "servicedesk-transitions")
	}
	if cfg.VerifyInterval != "1h" {
		t.Errorf("VerifyInterval = %q, want %q", cfg.VerifyInterval, "1h")
	}
	if cfg.ArchiveAfterDays != 90 {
		t.Errorf("ArchiveAfterDays = %d, want 90", cfg.ArchiveAfterDays)
	}
	if cfg.ArchiveInterval != "24h" {
		t.Errorf("ArchiveInterval = %q, want %q", cfg.ArchiveInterval, "24h")
	}
	if cfg.ArchiveDir != "archive" {
		t.Errorf("ArchiveDir = %q, want %q", cfg.ArchiveDir, "archive")
	}
	if cfg.OTLPInsecure {
		t.Error("OTLPInsecure should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://localhost/servicedesk_test")
	os.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	os.Setenv("ARCHIVE_AFTER_DAYS", "30")
	os.Setenv("VERIFY_INTERVAL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/servicedesk_test" {
		t.Errorf("DatabaseURL = %q, want override", cfg.DatabaseURL)
	}
	if cfg.ArchiveAfterDays != 30 {
		t.Errorf("ArchiveAfterDays = %d, want 30", cfg.ArchiveAfterDays)
	}
	want := []string{"broker-1:9092", "broker-2:9092"}
	if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokersList = %v, want %v", got, want)
	}
	if cfg.VerifyEvery() != 15*time.Minute {
		t.Errorf("VerifyEvery = %v, want 15m", cfg.VerifyEvery())
	}
}

func TestLoad_ArchiveAfterDaysMustBePositive(t *testing.T) {
	for _, value := range []string{"0", "-7"} {
		os.Clearenv()
		os.Setenv("ARCHIVE_AFTER_DAYS", value)

		cfg, err := Load()
		if err == nil {
			t.Errorf("ARCHIVE_AFTER_DAYS=%s: Load should return error", value)
		}
		if cfg != nil {
			t.Errorf("ARCHIVE_AFTER_DAYS=%s: Load should return nil config on error", value)
		}
	}
}

func TestVerifyEvery_InvalidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("VERIFY_INTERVAL", "invalid")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.VerifyEvery() != time.Hour {
		t.Errorf("VerifyEvery = %v, want %v (default)", cfg.VerifyEvery(), time.Hour)
	}
}

func TestArchiveEvery_NegativeDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("ARCHIVE_INTERVAL", "-1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ArchiveEvery() != 24*time.Hour {
		t.Errorf("ArchiveEvery = %v, want %v (default)", cfg.ArchiveEvery(), 24*time.Hour)
	}
}

func TestArchiveRetention(t *testing.T) {
	os.Clearenv()
	os.Setenv("ARCHIVE_AFTER_DAYS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ArchiveRetention() != 7*24*time.Hour {
		t.Errorf("ArchiveRetention = %v, want 168h", cfg.ArchiveRetention())
	}
}

func TestKafkaBrokersList_Empty(t *testing.T) {
	cfg := &Config{}
	if got := cfg.KafkaBrokersList(); got != nil {
		t.Errorf("KafkaBrokersList = %v, want nil for empty config", got)
	}
}
