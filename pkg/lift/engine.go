// Package lift implements a tick-driven lift dispatch simulator: a request
// lifecycle model, the lift's physical state machine, two scheduling strategies
// and the engine that advances them one logical tick at a time.
// 이 패키지는 틱 기반 엘리베이터 배차 시뮬레이터를 구현합니다.
package lift

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Engine owns the tick clock and the authoritative LiftState of one lift.
// All state changes are protected by a mutex and propagated on the Event channel.
// Engine은 틱 시계와 엘리베이터 상태를 소유하며, 모든 상태 변경은 Mutex로 보호됩니다.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	ctrl   *Controller
	state  LiftState
	clock  int // 다음에 처리할 틱
	faults []error

	// --- Observability ---
	logger            *slog.Logger
	eventCh           chan Event
	droppedEventCount uint64
}

// Snapshot is the engine state plus its request summary, for streaming and reports.
type Snapshot struct {
	LiftState
	Pending []Request            `json:"pending"`
	Counts  map[RequestState]int `json:"counts"`
}

// NewEngine builds an engine and its controller with strict validation.
// 잘못된 설정이 감지되면 즉시 에러를 반환합니다 (Fail Fast).
func NewEngine(cfg Config) (*Engine, error) {
	ctrl, err := NewController(cfg)
	if err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}

	e := &Engine{
		cfg:  cfg,
		ctrl: ctrl,
		state: LiftState{
			Floor:     cfg.InitialFloor,
			Status:    StatusIdle,
			Direction: DirNone,
			Door:      DoorClosed,
		},
		eventCh: make(chan Event, 1000),
		logger:  slog.Default().With("id", cfg.ID),
	}
	ctrl.observe(e.state, e.clock)
	ctrl.onChange = func(r Request) {
		e.publishEvent(EventRequestChange, r)
	}
	ctrl.onFault = func(err error) {
		e.faults = append(e.faults, err)
		e.publishEvent(EventError, ErrorPayload{Message: err.Error()})
	}

	e.logger.Info("Lift engine initialized",
		"floors", cfg.Floors,
		"init_floor", cfg.InitialFloor,
		"strategy", cfg.Strategy,
		"parking", cfg.Parking,
	)
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// State returns the last committed lift state.
// State는 마지막으로 커밋된 상태를 안전하게 반환합니다.
func (e *Engine) State() LiftState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// CurrentTick returns the tick the next call to Tick processes,
// which equals the number of ticks processed so far.
func (e *Engine) CurrentTick() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock
}

// Snapshot returns the lift state together with pending requests and state counts.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		LiftState: e.state,
		Pending:   e.ctrl.Pending(),
		Counts:    e.ctrl.Counts(),
	}
}

// Events returns the read-only channel for state change notifications.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// DroppedEventCount returns diagnostic metric for channel health.
func (e *Engine) DroppedEventCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.droppedEventCount
}

// Faults returns the illegal transitions reported so far.
func (e *Engine) Faults() []error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]error(nil), e.faults...)
}

// --- Request management (pass-through to the controller) ---

// AddCarCall registers a car call.
func (e *Engine) AddCarCall(floor int) (RequestID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.AddCarCall(floor)
}

// AddHallCall registers a hall call.
func (e *Engine) AddHallCall(floor int, dir Direction) (RequestID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.AddHallCall(floor, dir)
}

// AddRequest registers any call.
func (e *Engine) AddRequest(call Call) (RequestID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.AddRequest(call)
}

// CancelRequest cancels a request; see Controller.CancelRequest.
func (e *Engine) CancelRequest(id RequestID) CancelOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctrl.CancelRequest(id)
}

// Requests returns the full request history, ordered by creation.
func (e *Engine) Requests() []Request {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctrl.Requests()
}

// Request returns one request by id.
func (e *Engine) Request(id RequestID) (Request, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctrl.Request(id)
}

// Counts groups all requests by lifecycle state.
func (e *Engine) Counts() map[RequestState]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctrl.Counts()
}

// --- Service lifecycle ---

// SetOutOfService starts the graceful out-of-service protocol and returns the
// IDs of the requests it cancelled.
func (e *Engine) SetOutOfService() []RequestID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.Warn("Out-of-service requested", "status", e.state.Status, "floor", e.state.Floor)
	cancelled := e.ctrl.TakeOutOfService()
	e.state.Draining = e.ctrl.Draining()
	return cancelled
}

// ReturnToService puts an OUT_OF_SERVICE lift back to IDLE at its current floor.
func (e *Engine) ReturnToService() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ctrl.ReturnToService(); err != nil {
		return fmt.Errorf("return to service at tick %d: %w", e.clock, err)
	}
	prev := e.state
	next := prev
	next.Status = StatusIdle
	next.Direction = DirNone
	next.Door = DoorClosed
	next.Since = e.clock
	next.Draining = false
	e.state = next
	e.ctrl.observe(next, e.clock)
	e.publishDiff(prev, next)
	return nil
}

// --- Tick loop ---

// Tick advances the clock by one unit, applying at most one physical transition.
// Tick은 한 틱을 진행하며, 틱마다 최대 하나의 물리적 전이만 적용합니다.
func (e *Engine) Tick() LiftState {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock
	prev := e.state
	next := prev
	next.Tick = now

	switch next.Status {
	case StatusOutOfService:
		if !e.ctrl.OutOfService() {
			next.Status = StatusIdle
			next.Direction = DirNone
			next.Since = now
		}
	case StatusMoving:
		if now-next.Since >= e.cfg.TravelTicksPerFloor {
			e.stepFloor(&next)
		}
	case StatusDoors:
		e.stepDoors(&next)
	case StatusIdle:
		e.startFromRest(&next, e.ctrl.next(next))
	}
	next.Draining = e.ctrl.Draining()

	if !next.Consistent(e.cfg.Floors) {
		// 불변식 위반: 이전 상태 유지
		e.logger.Error("Inconsistent transition discarded", "prev", prev, "next", next)
		e.ctrl.onFault(fmt.Errorf("tick %d: inconsistent state %+v", now, next))
		next = prev
		next.Tick = now
	}

	e.state = next
	e.publishDiff(prev, next)
	e.publishEvent(EventTick, next)
	e.clock++
	e.ctrl.observe(next, e.clock)
	return next
}

// RunTicks processes n ticks and returns their snapshots in order.
func (e *Engine) RunTicks(n int) []LiftState {
	trace := make([]LiftState, 0, n)
	for i := 0; i < n; i++ {
		trace = append(trace, e.Tick())
	}
	return trace
}

// Run executes the tick loop, one tick per interval, until ctx is cancelled.
// Run은 엘리베이터의 메인 루프를 실행합니다.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("run: tick interval must be positive, got %s", interval)
	}
	e.logger.Info("Lift Engine Started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine Stopping (Context Cancelled)", "tick", e.CurrentTick())
			return ctx.Err()
		case <-ticker.C:
			s := e.Tick()
			e.logger.Debug("Tick", "tick", s.Tick, "floor", s.Floor, "status", s.Status, "door", s.Door)
		}
	}
}

// stepFloor completes one floor of travel and lets the controller decide what happens there.
func (e *Engine) stepFloor(s *LiftState) {
	floor := s.Floor + s.Direction.Step()
	if floor < 0 || floor >= e.cfg.Floors {
		e.ctrl.onFault(fmt.Errorf("tick %d: move %s from floor %d leaves the shaft", s.Tick, s.Direction, s.Floor))
		s.Status = StatusIdle
		s.Direction = DirNone
		s.Since = s.Tick
		return
	}
	s.Floor = floor
	s.Since = s.Tick

	act := e.ctrl.arrive(*s)
	switch act.Type {
	case ActionMove:
		if act.Dir != s.Direction {
			// 방향 전환은 정지 후에만 가능
			s.Status = StatusIdle
			return
		}
		e.logger.Debug("🚅 Moving", "floor", s.Floor, "dir", s.Direction, "target", act.Target)
	case ActionOpenDoor:
		e.logger.Info("Arrived at floor", "floor", s.Floor, "serving", len(act.Serve))
		s.Status = StatusDoors
		s.Door = DoorOpening
		s.Direction = act.Dir
	default:
		e.logger.Debug("Stopped at floor", "floor", s.Floor)
		s.Status = StatusIdle
		s.Direction = act.Dir
	}
}

// startFromRest applies the controller's decision for an idle lift.
func (e *Engine) startFromRest(s *LiftState, act Action) {
	switch act.Type {
	case ActionMove:
		if s.Direction != act.Dir {
			e.logger.Info("🧭 Direction Changed", "new_dir", act.Dir, "target", act.Target)
		}
		s.Status = StatusMoving
		s.Direction = act.Dir
		s.Since = s.Tick
	case ActionOpenDoor:
		s.Status = StatusDoors
		s.Door = DoorOpening
		s.Direction = act.Dir
		s.Since = s.Tick
	default:
		if s.Direction != act.Dir && act.Dir == DirNone {
			e.logger.Debug("💤 Idle State (No calls)", "floor", s.Floor)
		}
		s.Direction = act.Dir
	}
}

// stepDoors manages the door state machine: Opening -> Open -> Closing -> Closed.
func (e *Engine) stepDoors(s *LiftState) {
	switch s.Door {
	case DoorOpening:
		if s.Tick-s.Since < e.cfg.DoorTransitionTicks {
			return
		}
		s.Door = DoorOpen
		s.Since = s.Tick
		s.HoldUntil = s.Tick + e.cfg.DoorDwellTicks
		e.ctrl.opened(*s)
		e.logger.Info("Doors are now fully OPEN", "floor", s.Floor, "hold_until", s.HoldUntil)

	case DoorOpen:
		switch act := e.ctrl.door(*s); act.Type {
		case ActionOpenDoor:
			s.HoldUntil = extendHold(*s, e.cfg)
			e.logger.Debug("Holding Doors", "hold_until", s.HoldUntil, "joined", len(act.Serve))
		case ActionCloseDoor:
			s.Door = DoorClosing
			s.Since = s.Tick
			e.logger.Debug("Doors Closing", "floor", s.Floor)
		}

	case DoorClosing:
		if act := e.ctrl.door(*s); act.Type == ActionOpenDoor {
			s.Door = DoorOpening
			s.Since = s.Tick
			return
		}
		if s.Tick-s.Since < e.cfg.DoorTransitionTicks {
			return
		}
		s.Door = DoorClosed
		s.Since = s.Tick
		s.Status = e.ctrl.closed(*s)
		if s.Status == StatusOutOfService {
			s.Direction = DirNone
		}
		e.logger.Info("Doors are now fully CLOSED", "floor", s.Floor, "status", s.Status)
	}
}

// extendHold returns the hold deadline after a compatible request joins open doors:
// a fresh dwell from now, capped at dwell plus the reopen window from the opening tick.
// 대기 시간 연장 (재열림 구간으로 상한)
func extendHold(s LiftState, cfg Config) int {
	limit := s.Since + cfg.DoorDwellTicks + cfg.DoorReopenWindowTicks
	return max(s.HoldUntil, min(s.Tick+cfg.DoorDwellTicks, limit))
}
