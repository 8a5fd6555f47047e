// Package fleet runs several lifts of one building side by side and routes
// hall calls to the lift with the lowest estimated ticks-to-serve.
// 여러 대의 엘리베이터에 홀 호출을 분배하는 디스패처입니다.
package fleet

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"lift-dispatch-simulator/pkg/lift"
)

var (
	// ErrNoLiftAvailable is returned when every lift is out of service or draining.
	ErrNoLiftAvailable = errors.New("no lift available")
	// ErrUnknownLift is returned for a lift index outside the fleet.
	ErrUnknownLift = errors.New("unknown lift")
)

// Assignment records which lift took a hall call and the estimate that won.
type Assignment struct {
	Lift int            `json:"lift"`
	ID   lift.RequestID `json:"id"`
	Cost int            `json:"cost"`
}

// Dispatcher owns a fixed set of lift engines sharing one configuration.
type Dispatcher struct {
	mu     sync.Mutex
	cfg    lift.Config
	lifts  []*lift.Engine
	logger *slog.Logger
}

// New builds count engines from cfg. Lift i gets the id "<cfg.ID>-<i>".
func New(cfg lift.Config, count int) (*Dispatcher, error) {
	if count < 1 {
		return nil, fmt.Errorf("new fleet: %w: lift count must be >= 1, got %d", lift.ErrInvalidConfiguration, count)
	}
	d := &Dispatcher{
		cfg:    cfg,
		logger: slog.Default().With("fleet", cfg.ID),
	}
	for i := 0; i < count; i++ {
		c := cfg
		c.ID = fmt.Sprintf("%s-%d", cfg.ID, i)
		e, err := lift.NewEngine(c)
		if err != nil {
			return nil, fmt.Errorf("new fleet: lift %d: %w", i, err)
		}
		d.lifts = append(d.lifts, e)
	}
	return d, nil
}

// Len returns the number of lifts in the fleet.
func (d *Dispatcher) Len() int {
	return len(d.lifts)
}

// Engine returns the engine of lift i.
func (d *Dispatcher) Engine(i int) (*lift.Engine, error) {
	if i < 0 || i >= len(d.lifts) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLift, i)
	}
	return d.lifts[i], nil
}

// AddHallCall validates the call, picks the cheapest lift and registers the
// call there. Ties go to the lowest lift index.
// 비용이 같으면 번호가 낮은 엘리베이터가 선택됩니다.
func (d *Dispatcher) AddHallCall(floor int, dir lift.Direction) (Assignment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	call := lift.Call{Kind: lift.HallCall, Floor: floor, Direction: dir}
	best := Assignment{Lift: -1, Cost: Unavailable}
	for i, e := range d.lifts {
		cost := TicksToServe(d.cfg, e.Snapshot(), call)
		if cost < best.Cost {
			best = Assignment{Lift: i, Cost: cost}
		}
	}
	if best.Lift < 0 {
		// 유효성 검사 오류를 우선 보고
		if _, err := lift.NewLedger(d.cfg.Floors).Create(call, 0); err != nil {
			return Assignment{}, err
		}
		return Assignment{}, ErrNoLiftAvailable
	}

	id, err := d.lifts[best.Lift].AddRequest(call)
	if err != nil {
		return Assignment{}, err
	}
	best.ID = id
	d.logger.Debug("Hall call dispatched", "floor", floor, "dir", dir, "lift", best.Lift, "cost", best.Cost)
	return best, nil
}

// AddCarCall registers a car call inside lift i.
func (d *Dispatcher) AddCarCall(i, floor int) (lift.RequestID, error) {
	e, err := d.Engine(i)
	if err != nil {
		return 0, err
	}
	return e.AddCarCall(floor)
}

// Tick advances every lift by one tick, in index order.
func (d *Dispatcher) Tick() []lift.LiftState {
	d.mu.Lock()
	defer d.mu.Unlock()

	states := make([]lift.LiftState, len(d.lifts))
	for i, e := range d.lifts {
		states[i] = e.Tick()
	}
	return states
}

// Snapshots returns the current snapshot of every lift.
func (d *Dispatcher) Snapshots() []lift.Snapshot {
	snaps := make([]lift.Snapshot, len(d.lifts))
	for i, e := range d.lifts {
		snaps[i] = e.Snapshot()
	}
	return snaps
}
