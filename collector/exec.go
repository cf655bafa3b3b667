package collector

import (
	"context"
	"os/exec"
)

//go:generate mockgen -destination=mocks/mock_executor.go -package=mocks taskmand/collector Executor

// Executor runs an external command. Abstracted so service collection
// can be tested without a live systemctl.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type RealExecutor struct{}

func (r *RealExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
