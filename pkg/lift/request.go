package lift

import (
	"fmt"
	"sort"
)

// --- Request model ---

// RequestID identifies a request. IDs are assigned monotonically starting at 1.
type RequestID uint64

// CallKind distinguishes where a request was issued.
// CallKind는 호출이 발생한 위치를 구분합니다.
type CallKind string

const (
	CarCall  CallKind = "CAR"  // 카 내부 목적층 호출
	HallCall CallKind = "HALL" // 승강장 호출 (방향 포함)
)

// RequestState is the lifecycle state of a request.
// RequestState는 요청의 생명주기 상태입니다.
type RequestState string

const (
	StateQueued    RequestState = "QUEUED"
	StateAssigned  RequestState = "ASSIGNED"
	StateServing   RequestState = "SERVING"
	StateCompleted RequestState = "COMPLETED"
	StateCancelled RequestState = "CANCELLED"
)

// AllStates lists the lifecycle states in lifecycle order.
var AllStates = []RequestState{StateQueued, StateAssigned, StateServing, StateCompleted, StateCancelled}

// IsTerminal reports whether no further transition is possible from s.
func (s RequestState) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// transitions is the request lifecycle state machine.
var transitions = map[RequestState][]RequestState{
	StateQueued:   {StateAssigned, StateCancelled},
	StateAssigned: {StateServing, StateCancelled},
	StateServing:  {StateCompleted, StateCancelled},
}

// CanAdvance reports whether the lifecycle allows from -> to.
func CanAdvance(from, to RequestState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Call is the caller-facing description of a request before it is tracked.
type Call struct {
	Kind      CallKind  `json:"kind" yaml:"kind"`
	Floor     int       `json:"floor" yaml:"floor"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Request represents one passenger-facing demand.
type Request struct {
	ID          RequestID    `json:"id"`
	Kind        CallKind     `json:"kind"`
	Floor       int          `json:"floor"`               // 목적층(Car) 또는 호출층(Hall)
	Direction   Direction    `json:"direction,omitempty"` // Hall 호출 방향
	State       RequestState `json:"state"`
	CreatedTick int          `json:"createdTick"`
	UpdatedTick int          `json:"updatedTick"`
}

// IsTerminal reports whether the request is COMPLETED or CANCELLED.
func (r Request) IsTerminal() bool {
	return r.State.IsTerminal()
}

func (r Request) String() string {
	if r.Kind == HallCall {
		return fmt.Sprintf("#%d hall %d %s [%s]", r.ID, r.Floor, r.Direction, r.State)
	}
	return fmt.Sprintf("#%d car %d [%s]", r.ID, r.Floor, r.State)
}

// CancelOutcome reports what a cancellation did. Cancelling is expected to race with
// natural completion, so none of the outcomes is an error.
type CancelOutcome int

const (
	Cancelled       CancelOutcome = iota // 취소됨
	AlreadyTerminal                      // 이미 종료 상태 (no-op)
	UnknownRequest                       // 존재하지 않는 ID (no-op)
)

func (o CancelOutcome) String() string {
	return [...]string{"Cancelled", "AlreadyTerminal", "UnknownRequest"}[o]
}

// Ledger creates and tracks requests for one lift.
// Ledger is not safe for concurrent use; its owner serialises access.
// Ledger는 하나의 엘리베이터에 대한 요청을 생성하고 추적합니다.
type Ledger struct {
	floors int
	nextID RequestID
	byID   map[RequestID]*Request
	order  []*Request // 생성 순서
}

// NewLedger returns an empty ledger for a building with the given floor count.
func NewLedger(floors int) *Ledger {
	return &Ledger{
		floors: floors,
		nextID: 1,
		byID:   make(map[RequestID]*Request),
	}
}

// CreateCarCall tracks a new car call in QUEUED state.
func (l *Ledger) CreateCarCall(floor, tick int) (Request, error) {
	return l.Create(Call{Kind: CarCall, Floor: floor}, tick)
}

// CreateHallCall tracks a new hall call in QUEUED state.
func (l *Ledger) CreateHallCall(floor int, dir Direction, tick int) (Request, error) {
	return l.Create(Call{Kind: HallCall, Floor: floor, Direction: dir}, tick)
}

// Create validates c and tracks it as a new QUEUED request.
func (l *Ledger) Create(c Call, tick int) (Request, error) {
	if err := l.validate(c); err != nil {
		return Request{}, err
	}
	r := &Request{
		ID:          l.nextID,
		Kind:        c.Kind,
		Floor:       c.Floor,
		Direction:   DirNone,
		State:       StateQueued,
		CreatedTick: tick,
		UpdatedTick: tick,
	}
	if c.Kind == HallCall {
		r.Direction = c.Direction
	}
	l.nextID++
	l.byID[r.ID] = r
	l.order = append(l.order, r)
	return *r, nil
}

func (l *Ledger) validate(c Call) error {
	if c.Floor < 0 || c.Floor >= l.floors {
		return floorError(c.Floor, l.floors)
	}
	switch c.Kind {
	case CarCall:
		return nil
	case HallCall:
		switch c.Direction {
		case DirUp:
			if c.Floor == l.floors-1 {
				return fmt.Errorf("no up call at top floor %d: %w", c.Floor, ErrInvalidFloor)
			}
		case DirDown:
			if c.Floor == 0 {
				return fmt.Errorf("no down call at bottom floor: %w", ErrInvalidFloor)
			}
		default:
			return fmt.Errorf("hall call at floor %d needs UP or DOWN, got %q: %w", c.Floor, c.Direction, ErrInvalidDirection)
		}
		return nil
	}
	return fmt.Errorf("unknown call kind %q: %w", c.Kind, ErrInvalidDirection)
}

// Cancel moves a non-terminal request to CANCELLED.
func (l *Ledger) Cancel(id RequestID, tick int) CancelOutcome {
	r, ok := l.byID[id]
	if !ok {
		return UnknownRequest
	}
	if r.IsTerminal() {
		return AlreadyTerminal
	}
	r.State = StateCancelled
	r.UpdatedTick = tick
	return Cancelled
}

// Advance applies one lifecycle transition, failing with a *TransitionError
// if the target state is unreachable from the current one.
func (l *Ledger) Advance(id RequestID, to RequestState, tick int) error {
	r, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("advance %d: %w", id, ErrUnknownRequestID)
	}
	if !CanAdvance(r.State, to) {
		return &TransitionError{ID: id, From: r.State, To: to}
	}
	r.State = to
	r.UpdatedTick = tick
	return nil
}

// Get returns a copy of the request with the given id.
func (l *Ledger) Get(id RequestID) (Request, error) {
	r, ok := l.byID[id]
	if !ok {
		return Request{}, fmt.Errorf("request %d: %w", id, ErrUnknownRequestID)
	}
	return *r, nil
}

// All returns copies of every tracked request, ordered by creation.
func (l *Ledger) All() []Request {
	out := make([]Request, 0, len(l.order))
	for _, r := range l.order {
		out = append(out, *r)
	}
	return out
}

// Active returns copies of the non-terminal requests, ordered by creation.
func (l *Ledger) Active() []Request {
	var out []Request
	for _, r := range l.order {
		if !r.IsTerminal() {
			out = append(out, *r)
		}
	}
	return out
}

// InState returns copies of the requests currently in one of the given states.
func (l *Ledger) InState(states ...RequestState) []Request {
	var out []Request
	for _, r := range l.order {
		for _, s := range states {
			if r.State == s {
				out = append(out, *r)
				break
			}
		}
	}
	return out
}

// Counts groups the tracked requests by state. Every state is present in the map.
func (l *Ledger) Counts() map[RequestState]int {
	counts := make(map[RequestState]int, len(AllStates))
	for _, s := range AllStates {
		counts[s] = 0
	}
	for _, r := range l.order {
		counts[r.State]++
	}
	return counts
}

// Floors returns the distinct floors with non-terminal requests, sorted.
func (l *Ledger) Floors() []int {
	seen := make(map[int]bool)
	var floors []int
	for _, r := range l.order {
		if !r.IsTerminal() && !seen[r.Floor] {
			seen[r.Floor] = true
			floors = append(floors, r.Floor)
		}
	}
	sort.Ints(floors)
	return floors
}
