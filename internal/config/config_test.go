package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{
		"CARDSEQ_HTTP_ADDR", "CARDSEQ_GRPC_ADDR", "CARDSEQ_ENV", "CARDSEQ_DB_PATH",
		"CARDSEQ_SERIAL_PORT", "CARDSEQ_BAUD_RATE", "CARDSEQ_POLL_TIMEOUT_MS",
		"CARDSEQ_QUEUE_SIZE", "CARDSEQ_SEQUENCE_FILE", "CARDSEQ_LOG_RETENTION_DAYS",
		"CARDSEQ_PRUNE_INTERVAL_HOURS",
	} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":9090" {
		t.Errorf("unexpected addrs: %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected env=dev, got %q", cfg.Env)
	}
	if cfg.DBPath != "./data/cardseq.db" {
		t.Errorf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.BaudRate != 115200 {
		t.Errorf("expected baud 115200, got %d", cfg.BaudRate)
	}
	if cfg.PollTimeout != 100*time.Millisecond {
		t.Errorf("expected 100ms poll, got %s", cfg.PollTimeout)
	}
	if cfg.QueueSize != 64 {
		t.Errorf("expected queue 64, got %d", cfg.QueueSize)
	}
	if cfg.LogRetentionDays != 90 || cfg.PruneIntervalHours != 6 {
		t.Errorf("unexpected retention %d/%d", cfg.LogRetentionDays, cfg.PruneIntervalHours)
	}
	if cfg.SerialPort != "" || cfg.SequenceFile != "" {
		t.Error("expected no serial port or sequence file by default")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CARDSEQ_ENV", "PROD")
	t.Setenv("CARDSEQ_SERIAL_PORT", " /dev/ttyUSB0 ")
	t.Setenv("CARDSEQ_BAUD_RATE", "9600")
	t.Setenv("CARDSEQ_POLL_TIMEOUT_MS", "250")
	t.Setenv("CARDSEQ_LOG_RETENTION_DAYS", "0")

	cfg := FromEnv()

	if cfg.Env != "prod" {
		t.Errorf("expected env=prod, got %q", cfg.Env)
	}
	if cfg.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("expected trimmed port, got %q", cfg.SerialPort)
	}
	if cfg.BaudRate != 9600 {
		t.Errorf("expected 9600, got %d", cfg.BaudRate)
	}
	if cfg.PollTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.PollTimeout)
	}
	if cfg.LogRetentionDays != 0 {
		t.Errorf("expected retention 0 (keep forever), got %d", cfg.LogRetentionDays)
	}
}

func TestFromEnv_FailSoft(t *testing.T) {
	t.Setenv("CARDSEQ_ENV", "staging")
	t.Setenv("CARDSEQ_BAUD_RATE", "fast")
	t.Setenv("CARDSEQ_QUEUE_SIZE", "-3")

	cfg := FromEnv()

	if cfg.Env != "dev" {
		t.Errorf("expected unknown env to fall back to dev, got %q", cfg.Env)
	}
	if cfg.BaudRate != 115200 {
		t.Errorf("expected default baud on bad input, got %d", cfg.BaudRate)
	}
	if cfg.QueueSize != 64 {
		t.Errorf("expected default queue on negative input, got %d", cfg.QueueSize)
	}
}
