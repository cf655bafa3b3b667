package collector

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

type Capabilities struct {
	HasProc         bool
	HasSystemd      bool
	HasDockerSocket bool
}

var (
	caps     Capabilities
	capsOnce sync.Once
)

// CheckPlatform rejects hosts the collector cannot sample. Failing fast
// here beats producing partial records silently.
func CheckPlatform() error {
	switch runtime.GOOS {
	case "linux", "darwin":
		return nil
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func DetectCapabilities() Capabilities {
	capsOnce.Do(func() {
		caps = Capabilities{
			HasProc:         fileExists("/proc/stat") || runtime.GOOS == "darwin",
			HasSystemd:      detectSystemd(),
			HasDockerSocket: fileExists("/var/run/docker.sock"),
		}

		log.Println("╭─ Daemon Capabilities ─────────────────────────────────────╮")
		logCap("Proc", caps.HasProc, "(process/CPU sampling)")
		logCap("Systemd", caps.HasSystemd, "(service unit states)")
		logCap("Docker", caps.HasDockerSocket, "(container listing)")
		log.Println("╰───────────────────────────────────────────────────────────╯")
	})
	return caps
}

func logCap(name string, available bool, desc string) {
	icon := "✗"
	status := "unavailable"
	if available {
		icon = "✓"
		status = "enabled"
	}
	log.Printf("│ %s %-10s │ %-11s │ %-28s │", icon, name, status, desc)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func detectSystemd() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	if _, err := exec.LookPath("systemctl"); err != nil {
		return false
	}
	return true
}
