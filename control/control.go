// Package control executes process-termination requests validated
// against the latest published snapshot. Destructive actions need two
// explicit steps: callers first request a confirmation token, then
// terminate with it. That keeps the contract safe even with no UI in
// front of it.
package control

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"taskmand/models"

	"github.com/shirou/gopsutil/v3/process"
)

var (
	// ErrNotFound means the pid is not in the current published view of
	// the process table.
	ErrNotFound = errors.New("process not found")
	// ErrPermissionDenied means the caller's privileges are insufficient
	// to signal the process.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConfirmationRequired means the confirmation token is missing,
	// does not match the pid, or has expired.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// Signal selects how the process is asked to stop.
type Signal int

const (
	// Graceful requests cooperative termination (SIGTERM) and returns
	// without waiting for exit.
	Graceful Signal = iota
	// Force requests immediate termination (SIGKILL).
	Force
)

// Token is the second-step confirmation for a termination request.
// Opaque to callers; the zero Token never validates.
type Token struct {
	pid      int32
	snapshot time.Time
	issuedAt time.Time
}

// SnapshotProvider exposes the latest published snapshot.
type SnapshotProvider interface {
	Latest() (*models.SystemSnapshot, bool)
}

// Signaller delivers a signal to a pid. Abstracted for tests.
type Signaller interface {
	Signal(ctx context.Context, pid int32, sig Signal) error
}

const defaultTokenTTL = 30 * time.Second

// Service validates and executes termination requests.
type Service struct {
	snapshots SnapshotProvider
	sig       Signaller
	tokenTTL  time.Duration
}

func NewService(snapshots SnapshotProvider) *Service {
	return &Service{
		snapshots: snapshots,
		sig:       &processSignaller{},
		tokenTTL:  defaultTokenTTL,
	}
}

// NewServiceWithSignaller injects a custom signal path.
func NewServiceWithSignaller(snapshots SnapshotProvider, sig Signaller) *Service {
	return &Service{
		snapshots: snapshots,
		sig:       sig,
		tokenTTL:  defaultTokenTTL,
	}
}

// RequestTermination validates pid against the latest published
// snapshot and mints a confirmation token for it. Fails with
// ErrNotFound for pids not in the published view, which also covers
// stale or unrelated pids.
func (s *Service) RequestTermination(pid int32) (Token, error) {
	snap, ok := s.snapshots.Latest()
	if !ok || !snapshotContains(snap, pid) {
		return Token{}, ErrNotFound
	}
	return Token{pid: pid, snapshot: snap.Timestamp, issuedAt: time.Now()}, nil
}

// Terminate signals pid after checking the confirmation token and the
// latest published snapshot. Terminating a process that already exited
// is success, so retrying after a kill is idempotent. Success means the
// signal was delivered, not that the process exited; callers confirm
// via the next snapshot.
func (s *Service) Terminate(ctx context.Context, pid int32, sig Signal, token Token) error {
	if token.issuedAt.IsZero() || token.pid != pid {
		return ErrConfirmationRequired
	}
	if time.Since(token.issuedAt) > s.tokenTTL {
		return ErrConfirmationRequired
	}

	snap, ok := s.snapshots.Latest()
	if !ok || !snapshotContains(snap, pid) {
		return ErrNotFound
	}

	err := s.sig.Signal(ctx, pid, sig)
	switch {
	case err == nil:
		return nil
	case isAlreadyExited(err):
		// Exited between snapshot and signal; not distinguished from
		// success.
		return nil
	case isPermission(err):
		return ErrPermissionDenied
	default:
		return err
	}
}

func snapshotContains(snap *models.SystemSnapshot, pid int32) bool {
	for _, p := range snap.Processes {
		if p.PID == pid {
			return true
		}
	}
	return false
}

func isAlreadyExited(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) ||
		errors.Is(err, syscall.ESRCH) ||
		errors.Is(err, os.ErrProcessDone)
}

func isPermission(err error) bool {
	return errors.Is(err, syscall.EPERM) || errors.Is(err, os.ErrPermission)
}

// processSignaller signals via the OS process table.
type processSignaller struct{}

func (*processSignaller) Signal(ctx context.Context, pid int32, sig Signal) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	if sig == Force {
		return p.KillWithContext(ctx)
	}
	return p.TerminateWithContext(ctx)
}
