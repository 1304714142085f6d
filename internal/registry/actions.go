package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/torosent/crankset/internal/taskset"
)

// Built-in task bodies selectable from a declaration file.
const (
	ActionNoop  = "noop"
	ActionSleep = "sleep"
	ActionFail  = "fail"
)

const defaultFailMessage = "task failed"

// ActionParams carries the optional arguments of a built-in action.
type ActionParams struct {
	Sleep   time.Duration
	Message string
}

// ActionError is the error produced by the fail action.
type ActionError struct {
	Message string
}

func (e *ActionError) Error() string { return e.Message }

// NewAction resolves a built-in body by kind. An empty kind is a no-op.
func NewAction(kind string, params ActionParams) (taskset.Func, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", ActionNoop:
		return taskset.Noop, nil
	case ActionSleep:
		if params.Sleep <= 0 {
			return nil, fmt.Errorf("sleep action requires a positive duration")
		}
		d := params.Sleep
		return func(ctx context.Context) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}, nil
	case ActionFail:
		msg := strings.TrimSpace(params.Message)
		if msg == "" {
			msg = defaultFailMessage
		}
		return func(context.Context) error {
			return &ActionError{Message: msg}
		}, nil
	default:
		return nil, fmt.Errorf("unknown action %q (use noop, sleep or fail)", kind)
	}
}
