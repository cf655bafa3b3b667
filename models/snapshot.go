package models

import "time"

// MemoryStat holds RAM usage
type MemoryStat struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}

// SwapStat holds Swap usage
type SwapStat struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}

// DiskStat holds Disk usage for the configured mount
type DiskStat struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}

// LoadStat holds Load Average (Unix only)
type LoadStat struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// LatencyRecord is one best-effort reachability probe result.
type LatencyRecord struct {
	Target  string  `json:"target"`
	RTTms   float64 `json:"rttMs"`
	Success bool    `json:"success"`
}

// SystemSnapshot is a complete view of system state as of one observation
// window. Snapshots are immutable once published; consumers always see
// either this snapshot in its entirety or the previous one.
//
// Processes are ordered by CPUPercent descending, PID ascending on ties.
type SystemSnapshot struct {
	Timestamp  time.Time         `json:"timestamp"`
	Processes  []ProcessRecord   `json:"processes"`
	CPUPercent float64           `json:"cpuPercent"`
	Load       LoadStat          `json:"load"`
	Memory     MemoryStat        `json:"memory"`
	Swap       SwapStat          `json:"swap"`
	Disk       DiskStat          `json:"disk"`
	BootTime   time.Time         `json:"bootTime"`
	NumProcs   int               `json:"numProcs"`
	Containers []ContainerRecord `json:"containers,omitempty"`
	Latency    []LatencyRecord   `json:"latency,omitempty"`
}

// Staleness reports the snapshot age relative to now.
func (s *SystemSnapshot) Staleness() time.Duration {
	return time.Since(s.Timestamp)
}
