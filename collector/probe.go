package collector

import (
	"context"
	"time"

	"taskmand/models"

	probing "github.com/prometheus-community/pro-bing"
)

const probeTimeout = 2 * time.Second

// probeLatency pings the configured targets once each. Best effort: an
// unreachable target is recorded as a failed probe, never an error.
func probeLatency(ctx context.Context, targets []string) []models.LatencyRecord {
	if len(targets) == 0 {
		return nil
	}

	results := make([]models.LatencyRecord, 0, len(targets))
	for _, target := range targets {
		record := models.LatencyRecord{Target: target}

		pinger := probing.New(target)
		pinger.Count = 1
		pinger.Timeout = probeTimeout
		pinger.SetPrivileged(false)

		if err := pinger.RunWithContext(ctx); err == nil {
			stats := pinger.Statistics()
			if stats.PacketsRecv > 0 {
				record.RTTms = float64(stats.AvgRtt) / float64(time.Millisecond)
				record.Success = true
			}
		}

		results = append(results, record)
	}

	return results
}
