package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"taskmand/collector"
	"taskmand/config"
	"taskmand/dispatch"
	"taskmand/models"
)

// Build info
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := collector.CheckPlatform(); err != nil {
		log.Fatal(err)
	}

	cfg := config.Load()

	log.Printf("taskmand %s (%s) built on %s", version, commit, date)
	log.Printf("Metrics interval: %v | Services interval: %v | Cores: %d",
		cfg.MetricsInterval, cfg.ServicesInterval, cfg.NumCores)

	collector.DetectCapabilities()

	source := collector.NewSystemSource(cfg.DiskPath, cfg.LatencyTargets)
	agg := collector.NewAggregator(source, cfg.NumCores)
	services := collector.NewServiceReader()

	dispatcher := dispatch.New(agg, services, cfg.MetricsInterval, cfg.ServicesInterval, cfg.CaptureTimeout)
	dispatcher.Subscribe(logSummary)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-stop
		log.Println("Shutting down...")
		cancel()
	}()

	dispatcher.Run(ctx)
}

// logSummary mirrors what a status bar would show
func logSummary(snap *models.SystemSnapshot) {
	log.Printf("Processes: %d | CPU: %.1f%% | Memory: %.1f%% | Disk: %.1f%%",
		snap.NumProcs, snap.CPUPercent, snap.Memory.Percent, snap.Disk.Percent)
}
