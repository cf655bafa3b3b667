package models

// ProcStatus is the normalized process state.
type ProcStatus string

const (
	StatusRunning  ProcStatus = "running"
	StatusSleeping ProcStatus = "sleeping"
	StatusStopped  ProcStatus = "stopped"
	StatusZombie   ProcStatus = "zombie"
	StatusUnknown  ProcStatus = "unknown"
)

// NormalizeProcStatus maps raw gopsutil status strings to ProcStatus.
func NormalizeProcStatus(raw string) ProcStatus {
	switch raw {
	case "running":
		return StatusRunning
	case "sleep", "idle", "wait", "lock":
		return StatusSleeping
	case "stop":
		return StatusStopped
	case "zombie":
		return StatusZombie
	default:
		return StatusUnknown
	}
}

// ProcessRecord is one process as observed in a single snapshot.
// Records are built fresh each cycle and never mutated afterwards.
type ProcessRecord struct {
	PID           int32      `json:"pid"`
	Name          string     `json:"name"`
	User          string     `json:"user"`
	Status        ProcStatus `json:"status"`
	CPUPercent    float64    `json:"cpuPercent"`
	MemoryPercent float64    `json:"memoryPercent"`
}
