package rtos

import (
	"errors"
	"fmt"

	"osal/kernel"
)

var (
	ErrBadParameter = errors.New("osal: bad parameter")
	ErrOutOfMemory  = errors.New("osal: out of memory")
	ErrBusy         = errors.New("osal: busy")
	ErrTimedOut     = errors.New("osal: timed out")
	ErrFailure      = errors.New("osal: failure")
	ErrNotFound     = errors.New("osal: not found")
)

// Result is the numeric status taxonomy of the OS layer.
type Result int32

const (
	ResultOK           Result = 0
	ResultFailure      Result = -1
	ResultBadParameter Result = -2
	ResultOutOfMemory  Result = -3
	ResultBusy         Result = -4
	ResultTimedOut     Result = -5
	ResultNotFound     Result = -6
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultFailure:
		return "failure"
	case ResultBadParameter:
		return "bad parameter"
	case ResultOutOfMemory:
		return "out of memory"
	case ResultBusy:
		return "busy"
	case ResultTimedOut:
		return "timed out"
	case ResultNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Code folds err into a Result. Errors outside the taxonomy are ResultFailure.
func Code(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrBadParameter):
		return ResultBadParameter
	case errors.Is(err, ErrOutOfMemory):
		return ResultOutOfMemory
	case errors.Is(err, ErrBusy):
		return ResultBusy
	case errors.Is(err, ErrTimedOut):
		return ResultTimedOut
	case errors.Is(err, ErrNotFound):
		return ResultNotFound
	default:
		return ResultFailure
	}
}

// fail wraps an unexpected kernel error.
func fail(err error) error {
	return fmt.Errorf("%w: %w", ErrFailure, err)
}

// waitErr maps the result of a bounded kernel wait.
func waitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, kernel.ErrAgain), errors.Is(err, kernel.ErrBusy):
		return ErrTimedOut
	default:
		return fail(err)
	}
}
