package lift

import (
	"errors"
	"log/slog"
)

// serviceMode tracks the out-of-service protocol.
type serviceMode int

const (
	inService    serviceMode = iota // 정상 운행
	draining                        // 운행 중지 절차 진행 중 (층 도착 + 문 1회 개폐)
	outOfService                    // 운행 중지
)

// Controller owns the requests of one lift and its movement intent.
// It reads the lift state committed by the Engine and proposes actions; it never
// writes LiftState itself. Controller is not safe for concurrent use: the Engine
// that owns it serialises every call.
// Controller는 하나의 엘리베이터 요청과 이동 의도를 관리합니다.
type Controller struct {
	cfg      Config
	strategy Strategy
	ledger   *Ledger
	logger   *slog.Logger

	lift       LiftState // 엔진이 마지막으로 커밋한 상태
	clock      int       // 엔진이 처리 중이거나 다음에 처리할 틱
	mode       serviceMode
	parking    bool // 홈 층으로 주차 이동 중
	lastIntake int  // 마지막 요청 접수 틱
	exitCycle  bool // 운행 중지 전 문 개폐가 시작됨

	// onChange is invoked after every request transition.
	onChange func(Request)
	// onFault is invoked for illegal transitions raised while deciding.
	onFault func(error)
}

// NewController builds a controller for cfg. It fails fast on invalid configuration.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := NewStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:      cfg,
		strategy: strategy,
		ledger:   NewLedger(cfg.Floors),
		logger:   slog.Default().With("id", cfg.ID, "component", "controller"),
		lift: LiftState{
			Floor:     cfg.InitialFloor,
			Status:    StatusIdle,
			Direction: DirNone,
			Door:      DoorClosed,
		},
	}, nil
}

// Strategy returns the scheduling strategy fixed at construction.
func (c *Controller) Strategy() StrategyKind {
	return c.strategy.Kind()
}

// --- Intake ---

// AddCarCall queues a car call for floor.
func (c *Controller) AddCarCall(floor int) (RequestID, error) {
	return c.AddRequest(Call{Kind: CarCall, Floor: floor})
}

// AddHallCall queues a hall call at floor for dir.
func (c *Controller) AddHallCall(floor int, dir Direction) (RequestID, error) {
	return c.AddRequest(Call{Kind: HallCall, Floor: floor, Direction: dir})
}

// AddRequest validates and queues call. While the lift is out of service or draining
// the request is only queued; it becomes eligible after ReturnToService.
func (c *Controller) AddRequest(call Call) (RequestID, error) {
	r, err := c.ledger.Create(call, c.now())
	if err != nil {
		c.logger.Warn("Request rejected", "kind", call.Kind, "floor", call.Floor, "error", err)
		return 0, err
	}
	c.lastIntake = r.CreatedTick
	c.logger.Info("Request queued", "request", r.String())
	c.changed(r.ID)
	return r.ID, nil
}

// CancelRequest cancels a non-terminal request. Cancelling a terminal or unknown
// request is a reported no-op. If the cancelled request was committed to, the
// strategy re-evaluates immediately.
func (c *Controller) CancelRequest(id RequestID) CancelOutcome {
	prev, _ := c.ledger.Get(id)
	outcome := c.ledger.Cancel(id, c.now())
	if outcome != Cancelled {
		c.logger.Debug("Cancel ignored", "request", id, "outcome", outcome)
		return outcome
	}
	c.logger.Info("Request cancelled", "request", id)
	c.changed(id)
	if prev.State == StateAssigned && c.mode == inService {
		c.assign(c.strategy.Commit(c.lift, c.pending()))
	}
	return outcome
}

// --- Queries ---

// Requests returns every tracked request, ordered by creation.
func (c *Controller) Requests() []Request {
	return c.ledger.All()
}

// Request returns one tracked request.
func (c *Controller) Request(id RequestID) (Request, error) {
	return c.ledger.Get(id)
}

// Pending returns the non-terminal requests, ordered by creation.
func (c *Controller) Pending() []Request {
	return c.ledger.Active()
}

// Counts groups the tracked requests by lifecycle state.
func (c *Controller) Counts() map[RequestState]int {
	return c.ledger.Counts()
}

// --- Service lifecycle ---

// TakeOutOfService starts the graceful shutdown protocol: every non-terminal
// request is cancelled now; the lift finishes its floor movement, runs one door
// cycle and then becomes OUT_OF_SERVICE. It returns the cancelled request IDs.
func (c *Controller) TakeOutOfService() []RequestID {
	var cancelled []RequestID
	for _, r := range c.ledger.Active() {
		if c.ledger.Cancel(r.ID, c.now()) == Cancelled {
			cancelled = append(cancelled, r.ID)
			c.changed(r.ID)
		}
	}
	c.parking = false
	if c.mode == inService {
		c.mode = draining
		c.exitCycle = false
		// 이미 문이 열려 있으면 현재 문 개폐가 하차 사이클이 됨
		if c.lift.Status == StatusDoors {
			c.exitCycle = true
		}
	}
	c.logger.Info("Taking lift out of service", "cancelled", len(cancelled))
	return cancelled
}

// ReturnToService clears OUT_OF_SERVICE. Requests queued during the outage become
// eligible for assignment from the next tick.
func (c *Controller) ReturnToService() error {
	if c.mode != outOfService {
		return ErrNotOutOfService
	}
	c.mode = inService
	c.lastIntake = c.now()
	c.logger.Info("Lift returned to service", "queued", len(c.pending()))
	return nil
}

// OutOfService reports whether the lift is out of service.
func (c *Controller) OutOfService() bool {
	return c.mode == outOfService
}

// Draining reports whether the out-of-service protocol is in progress.
func (c *Controller) Draining() bool {
	return c.mode == draining
}

// --- Decisions (called by the Engine) ---

// observe records the state the Engine just committed and the tick it processes next.
func (c *Controller) observe(s LiftState, clock int) {
	c.lift = s
	c.clock = clock
}

// now is the tick being processed, or between ticks the one processed next.
func (c *Controller) now() int {
	return c.clock
}

// pending returns the requests a strategy may still act on.
func (c *Controller) pending() []Request {
	return c.ledger.InState(StateQueued, StateAssigned)
}

// next decides for a lift at rest with its doors closed.
func (c *Controller) next(s LiftState) Action {
	switch c.mode {
	case outOfService:
		return Action{Type: ActionNone, Dir: DirNone, Target: s.Floor}
	case draining:
		c.exitCycle = true
		return Action{Type: ActionOpenDoor, Dir: DirNone, Target: s.Floor}
	}

	pending := c.pending()
	if len(pending) == 0 {
		return c.idle(s)
	}
	c.parking = false
	act := c.strategy.Next(s, pending)
	c.apply(act)
	return act
}

// arrive decides for a moving lift that has just reached s.Floor.
func (c *Controller) arrive(s LiftState) Action {
	if c.mode == draining {
		// 이동 중이던 층 이동을 마치고 하차용 문 개폐
		c.exitCycle = true
		return Action{Type: ActionOpenDoor, Dir: DirNone, Target: s.Floor}
	}

	pending := c.pending()
	if c.parking {
		if len(pending) == 0 {
			if s.Floor == c.cfg.HomeFloor {
				c.parking = false
				c.logger.Info("Parked at home floor", "floor", s.Floor)
				return Action{Type: ActionNone, Dir: DirNone, Target: s.Floor}
			}
			return Action{Type: ActionMove, Dir: s.Direction, Target: c.cfg.HomeFloor}
		}
		c.parking = false
	}

	act := c.strategy.AtFloor(s, pending)
	c.apply(act)
	return act
}

// door decides while the door sequence runs. With doors OPEN, newly compatible
// requests are served on the spot and extend the hold (ActionOpenDoor);
// ActionCloseDoor is returned once the hold expires. With doors CLOSING it returns
// ActionOpenDoor to reopen for a compatible request inside the reopen window.
func (c *Controller) door(s LiftState) Action {
	none := Action{Type: ActionNone, Dir: s.Direction, Target: s.Floor}
	var joining []RequestID
	if c.mode == inService {
		pending := c.pending()
		for _, r := range pending {
			if c.strategy.Compatible(s, r, pending) {
				joining = append(joining, r.ID)
			}
		}
	}

	switch s.Door {
	case DoorOpen:
		hold := s.HoldUntil
		if len(joining) > 0 {
			c.serve(joining)
			c.complete(joining)
			hold = extendHold(s, c.cfg)
		}
		if s.Tick >= hold {
			return Action{Type: ActionCloseDoor, Dir: s.Direction, Target: s.Floor, Serve: joining}
		}
		if len(joining) > 0 {
			return Action{Type: ActionOpenDoor, Dir: s.Direction, Target: s.Floor, Serve: joining}
		}
	case DoorClosing:
		if len(joining) > 0 && s.Tick-s.Since <= c.cfg.DoorReopenWindowTicks {
			c.logger.Info("Reopening doors", "floor", s.Floor, "requests", len(joining))
			c.serve(joining)
			return Action{Type: ActionOpenDoor, Dir: s.Direction, Target: s.Floor, Serve: joining}
		}
	}
	return none
}

// opened completes the requests being served at s.Floor once the doors are fully open.
func (c *Controller) opened(s LiftState) {
	var ids []RequestID
	for _, r := range c.ledger.InState(StateServing) {
		if r.Floor == s.Floor {
			ids = append(ids, r.ID)
		}
	}
	c.complete(ids)
}

// closed reports the status the lift takes once its doors have closed.
func (c *Controller) closed(s LiftState) Status {
	if c.mode == draining && c.exitCycle {
		c.mode = outOfService
		c.exitCycle = false
		c.logger.Info("Lift is out of service", "floor", s.Floor)
		return StatusOutOfService
	}
	return StatusIdle
}

// idle applies the parking policy once the idle timeout has elapsed.
func (c *Controller) idle(s LiftState) Action {
	stay := Action{Type: ActionNone, Dir: DirNone, Target: s.Floor}
	if c.cfg.Parking != ParkToHomeFloor || s.Floor == c.cfg.HomeFloor {
		return stay
	}
	since := s.Since
	if c.lastIntake > since {
		since = c.lastIntake
	}
	if s.Tick-since < c.cfg.IdleTimeoutTicks {
		return stay
	}
	c.parking = true
	c.logger.Info("Idle timeout: parking", "from", s.Floor, "home", c.cfg.HomeFloor)
	return Action{Type: ActionMove, Dir: directionTo(s.Floor, c.cfg.HomeFloor), Target: c.cfg.HomeFloor}
}

// apply performs the request transitions an action implies.
func (c *Controller) apply(act Action) {
	c.assign(act.Assign)
	if act.Type == ActionOpenDoor {
		c.serve(act.Serve)
	}
}

func (c *Controller) assign(ids []RequestID) {
	for _, id := range ids {
		r, err := c.ledger.Get(id)
		if err != nil || r.State != StateQueued {
			continue
		}
		c.advance(id, StateAssigned)
	}
}

// serve moves requests to SERVING, passing through ASSIGNED when needed.
func (c *Controller) serve(ids []RequestID) {
	for _, id := range ids {
		r, err := c.ledger.Get(id)
		if err != nil {
			c.fault(err)
			continue
		}
		if r.State == StateQueued && !c.advance(id, StateAssigned) {
			continue
		}
		c.advance(id, StateServing)
	}
}

func (c *Controller) complete(ids []RequestID) {
	for _, id := range ids {
		c.advance(id, StateCompleted)
	}
}

// advance applies one transition; a rejected transition is reported and
// leaves the request untouched.
func (c *Controller) advance(id RequestID, to RequestState) bool {
	if err := c.ledger.Advance(id, to, c.now()); err != nil {
		c.fault(err)
		return false
	}
	c.changed(id)
	return true
}

func (c *Controller) fault(err error) {
	var te *TransitionError
	if errors.As(err, &te) {
		c.logger.Error("Illegal request transition", "request", te.ID, "from", te.From, "to", te.To)
	} else {
		c.logger.Error("Request transition failed", "error", err)
	}
	if c.onFault != nil {
		c.onFault(err)
	}
}

func (c *Controller) changed(id RequestID) {
	if c.onChange == nil {
		return
	}
	if r, err := c.ledger.Get(id); err == nil {
		c.onChange(r)
	}
}
