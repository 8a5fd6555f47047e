package lift

import (
	"errors"
	"fmt"
)

// Error taxonomy of the simulation core.
// 시뮬레이션 코어의 에러 분류입니다.
var (
	// ErrInvalidConfiguration is fatal at construction.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidFloor rejects request intake; the simulation continues.
	ErrInvalidFloor = errors.New("invalid floor")
	// ErrInvalidDirection rejects a hall call without a usable direction.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrIllegalTransition marks an attempted request state change the lifecycle forbids.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrUnknownRequestID is returned by lookups; cancellation reports it as a no-op instead.
	ErrUnknownRequestID = errors.New("unknown request id")
	// ErrNotOutOfService is returned when returning a lift to service that is not out of service.
	ErrNotOutOfService = errors.New("lift is not out of service")
)

// TransitionError describes a rejected request lifecycle transition.
type TransitionError struct {
	ID   RequestID
	From RequestState
	To   RequestState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("request %d: %s -> %s: %v", e.ID, e.From, e.To, ErrIllegalTransition)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

func floorError(floor, floors int) error {
	return fmt.Errorf("floor %d outside [0, %d]: %w", floor, floors-1, ErrInvalidFloor)
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
