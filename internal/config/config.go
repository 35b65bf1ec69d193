package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/cardseq.db"

	// Scanner
	SerialPort  string // auto-listen on startup when set
	BaudRate    int
	PollTimeout time.Duration
	QueueSize   int

	// Optional sequence file loaded at startup
	SequenceFile string

	// Audit log retention
	LogRetentionDays   int // 0 = keep forever
	PruneIntervalHours int // how often the pruner runs (default 6)
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("CARDSEQ_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	baud := getenvInt("CARDSEQ_BAUD_RATE", 115200)
	if baud == 0 {
		baud = 115200
	}
	pollMS := getenvInt("CARDSEQ_POLL_TIMEOUT_MS", 100)
	if pollMS == 0 {
		pollMS = 100
	}

	return Config{
		HTTPAddr: getenvDefault("CARDSEQ_HTTP_ADDR", ":8080"),
		GRPCAddr: getenvDefault("CARDSEQ_GRPC_ADDR", ":9090"),
		Env:      env,
		DBPath:   getenvDefault("CARDSEQ_DB_PATH", "./data/cardseq.db"),

		SerialPort:  strings.TrimSpace(os.Getenv("CARDSEQ_SERIAL_PORT")),
		BaudRate:    baud,
		PollTimeout: time.Duration(pollMS) * time.Millisecond,
		QueueSize:   getenvInt("CARDSEQ_QUEUE_SIZE", 64),

		SequenceFile: strings.TrimSpace(os.Getenv("CARDSEQ_SEQUENCE_FILE")),

		LogRetentionDays:   getenvInt("CARDSEQ_LOG_RETENTION_DAYS", 90),
		PruneIntervalHours: getenvInt("CARDSEQ_PRUNE_INTERVAL_HOURS", 6),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
