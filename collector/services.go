package collector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"taskmand/models"
)

// ErrServiceManagerUnavailable marks a service poll that could not reach
// the init system. An independent failure domain from the metrics path;
// the last good unit list stays served.
var ErrServiceManagerUnavailable = errors.New("service manager unavailable")

// ServiceReader queries systemd for unit states. Read-only; polled on a
// coarser cadence than the metrics loop.
type ServiceReader struct {
	exec Executor

	published atomic.Pointer[[]models.ServiceRecord]
	failures  atomic.Int64
}

func NewServiceReader() *ServiceReader {
	return &ServiceReader{exec: &RealExecutor{}}
}

// NewServiceReaderWithExecutor injects a custom command runner.
func NewServiceReaderWithExecutor(e Executor) *ServiceReader {
	return &ServiceReader{exec: e}
}

// ListUnits returns the current service units, ordered as reported by
// systemctl. A non-empty filter keeps only units whose name contains it.
func (r *ServiceReader) ListUnits(ctx context.Context, filter string) ([]models.ServiceRecord, error) {
	output, err := r.exec.Run(ctx, "systemctl",
		"list-units", "--type=service", "--all", "--no-pager", "--plain", "--no-legend")
	if err != nil {
		return nil, fmt.Errorf("%w: systemctl: %v", ErrServiceManagerUnavailable, err)
	}

	var services []models.ServiceRecord
	scanner := bufio.NewScanner(strings.NewReader(string(output)))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Format: UNIT LOAD ACTIVE SUB DESCRIPTION...
		fields := strings.Fields(line)
		// Failed units keep a leading state marker even with --plain.
		if len(fields) > 0 && (fields[0] == "●" || fields[0] == "*" || fields[0] == "x") {
			fields = fields[1:]
		}
		if len(fields) < 4 {
			continue
		}

		unit := fields[0]
		active := fields[2]

		name := strings.TrimSuffix(unit, ".service")
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}

		description := unit
		if len(fields) > 4 {
			description = strings.Join(fields[4:], " ")
		}

		services = append(services, models.ServiceRecord{
			Name:        name,
			Description: description,
			ActiveState: models.NormalizeActiveState(active),
		})
	}

	return services, nil
}

// Poll refreshes the published unit list wholesale, fully replacing the
// previous set. On failure the previous set stays published.
func (r *ServiceReader) Poll(ctx context.Context, filter string) error {
	services, err := r.ListUnits(ctx, filter)
	if err != nil {
		r.failures.Add(1)
		return err
	}
	r.published.Store(&services)
	r.failures.Store(0)
	return nil
}

// Latest returns the most recently published unit list. Never blocks;
// ok is false before the first successful poll.
func (r *ServiceReader) Latest() ([]models.ServiceRecord, bool) {
	list := r.published.Load()
	if list == nil {
		return nil, false
	}
	return *list, true
}

// ConsecutiveFailures reports failed polls since the last good one.
func (r *ServiceReader) ConsecutiveFailures() int {
	return int(r.failures.Load())
}
