package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Config holds the daemon configuration
type Config struct {
	MetricsInterval  time.Duration
	ServicesInterval time.Duration
	CaptureTimeout   time.Duration
	DiskPath         string
	LatencyTargets   []string
	NumCores         int
}

// Load reads config from env, with .env support
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	metrics := getSeconds("METRICS_INTERVAL_SECONDS", 10)
	services := getSeconds("SERVICES_INTERVAL_SECONDS", 30)
	timeout := getSeconds("CAPTURE_TIMEOUT_SECONDS", 5)

	// Service state changes far less often than CPU/memory; keep the
	// service poll strictly coarser than the metrics poll.
	if services <= metrics {
		log.Printf("SERVICES_INTERVAL_SECONDS (%v) must exceed METRICS_INTERVAL_SECONDS (%v), using %v", services, metrics, 3*metrics)
		services = 3 * metrics
	}

	return &Config{
		MetricsInterval:  metrics,
		ServicesInterval: services,
		CaptureTimeout:   timeout,
		DiskPath:         getEnv("DISK_PATH", defaultDiskPath()),
		LatencyTargets:   getList("LATENCY_TARGETS"),
		NumCores:         detectCores(),
	}
}

func defaultDiskPath() string {
	if runtime.GOOS == "windows" {
		return "C:\\"
	}
	return "/"
}

// detectCores resolves logical core count at startup
func detectCores() int {
	if count, err := cpu.Counts(true); err == nil && count > 0 {
		return count
	}
	return runtime.NumCPU()
}

func getSeconds(key string, fallback int) time.Duration {
	raw := os.Getenv(key)
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func getList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var targets []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			targets = append(targets, part)
		}
	}
	return targets
}

// getEnv reads env with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
