package ports

import (
	"context"
	"io"

	"go.trai.ch/trowel/internal/core/domain"
)

// TaskRunner executes the body of a single task.
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type TaskRunner interface {
	// RunTask runs the task and reports its outcome. Failures are carried in the result.
	RunTask(ctx context.Context, task domain.Task, log io.Writer) domain.Result
}
