package user

import "fmt"

// TaskError reports a failed task execution by a user.
type TaskError struct {
	User string
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("user %s: task %s: %v", e.User, e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// PanicError carries the value recovered from a panicking task body.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
