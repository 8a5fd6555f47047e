package lift

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := validConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func mustRequest(t *testing.T, e *Engine, id RequestID) Request {
	t.Helper()
	r, err := e.Request(id)
	if err != nil {
		t.Fatalf("Request %d: %v", id, err)
	}
	return r
}

func TestEngine_Init(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.InitialFloor = 4 })
	s := e.State()
	if s.Floor != 4 || s.Status != StatusIdle || s.Direction != DirNone || s.Door != DoorClosed {
		t.Errorf("Unexpected initial state: %+v", s)
	}
	if e.CurrentTick() != 0 {
		t.Errorf("Expected tick 0, got %d", e.CurrentTick())
	}
}

// floors=10, travel=1, doorTransition=2, dwell=3, car call to 3 at tick 0.
func TestEngine_CarCallScenario(t *testing.T) {
	e := newTestEngine(t, nil)
	id, err := e.AddCarCall(3)
	if err != nil {
		t.Fatalf("AddCarCall failed: %v", err)
	}

	trace := e.RunTicks(11)

	if trace[0].Status != StatusMoving || trace[0].Direction != DirUp {
		t.Errorf("Expected MOVING up at tick 0, got %+v", trace[0])
	}
	for tick := 0; tick < 3; tick++ {
		if trace[tick].Status != StatusMoving {
			t.Errorf("Expected MOVING at tick %d, got %s", tick, trace[tick].Status)
		}
	}
	if trace[3].Floor != 3 || trace[3].Door != DoorOpening {
		t.Errorf("Expected arrival at floor 3 with doors opening at tick 3, got %+v", trace[3])
	}
	if trace[5].Door != DoorOpen {
		t.Errorf("Expected doors OPEN by tick 5, got %s", trace[5].Door)
	}
	if trace[8].Door != DoorClosing {
		t.Errorf("Expected doors CLOSING at tick 8 after dwell, got %s", trace[8].Door)
	}
	if trace[10].Door != DoorClosed || trace[10].Status != StatusIdle || trace[10].Direction != DirNone {
		t.Errorf("Expected IDLE with doors closed at tick 10, got %+v", trace[10])
	}

	r := mustRequest(t, e, id)
	if r.State != StateCompleted || r.UpdatedTick != 5 {
		t.Errorf("Expected request COMPLETED at tick 5, got %+v", r)
	}
}

func TestEngine_RequestLifecycleOrder(t *testing.T) {
	e := newTestEngine(t, nil)
	id, _ := e.AddCarCall(2)

	var seen []RequestState
	for i := 0; i < 6; i++ {
		e.Tick()
		st := mustRequest(t, e, id).State
		if len(seen) == 0 || seen[len(seen)-1] != st {
			seen = append(seen, st)
		}
	}
	want := []RequestState{StateAssigned, StateServing, StateCompleted}
	if len(seen) != len(want) {
		t.Fatalf("Expected lifecycle %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("Expected lifecycle %v, got %v", want, seen)
		}
	}
}

func TestEngine_CancelAssignedReevaluates(t *testing.T) {
	e := newTestEngine(t, nil)
	first, _ := e.AddCarCall(5)
	second, _ := e.AddCarCall(8)

	e.RunTicks(2) // departed, now at floor 1
	if r := mustRequest(t, e, first); r.State != StateAssigned {
		t.Fatalf("Expected #%d ASSIGNED, got %s", first, r.State)
	}
	if r := mustRequest(t, e, second); r.State != StateQueued {
		t.Fatalf("Expected #%d QUEUED, got %s", second, r.State)
	}

	if got := e.CancelRequest(first); got != Cancelled {
		t.Fatalf("Expected Cancelled, got %s", got)
	}
	if r := mustRequest(t, e, second); r.State != StateAssigned {
		t.Errorf("Expected #%d ASSIGNED right after cancellation, got %s", second, r.State)
	}

	trace := e.RunTicks(8)
	if last := trace[len(trace)-1]; last.Floor != 8 {
		t.Errorf("Expected the lift to continue to floor 8, got %+v", last)
	}
	for _, s := range trace {
		if s.Floor == 5 && s.Door != DoorClosed {
			t.Errorf("Doors must not open at the cancelled floor: %+v", s)
		}
	}
}

func TestEngine_CancelLastRequestGoesIdle(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.TravelTicksPerFloor = 2 })
	id, _ := e.AddCarCall(5)
	e.RunTicks(1) // departed

	e.CancelRequest(id)
	trace := e.RunTicks(3)

	// The floor movement in progress completes, then the lift stops.
	if trace[1].Floor != 1 || trace[1].Status != StatusIdle {
		t.Errorf("Expected IDLE at floor 1 after completing the move, got %+v", trace[1])
	}
	if trace[2].Status != StatusIdle || trace[2].Floor != 1 {
		t.Errorf("Expected to stay IDLE, got %+v", trace[2])
	}
	if got := e.CancelRequest(id); got != AlreadyTerminal {
		t.Errorf("Expected repeated cancel to be a no-op, got %s", got)
	}
	if got := e.CancelRequest(1000); got != UnknownRequest {
		t.Errorf("Expected unknown cancel to be a no-op, got %s", got)
	}
}

func TestEngine_OutOfServiceWhileMoving(t *testing.T) {
	e := newTestEngine(t, nil)
	a, _ := e.AddCarCall(1)
	b, _ := e.AddCarCall(6)
	e.RunTicks(1) // MOVING toward floor 1

	cancelled := e.SetOutOfService()
	if len(cancelled) != 2 {
		t.Errorf("Expected 2 cancelled requests, got %v", cancelled)
	}
	for _, id := range []RequestID{a, b} {
		if r := mustRequest(t, e, id); r.State != StateCancelled {
			t.Errorf("Expected #%d CANCELLED, got %s", id, r.State)
		}
	}
	if !e.State().Draining {
		t.Error("Expected draining flag after SetOutOfService")
	}

	late, err := e.AddCarCall(4)
	if err != nil {
		t.Fatalf("Intake during shutdown must be accepted: %v", err)
	}

	trace := e.RunTicks(10)
	if trace[0].Floor != 1 || trace[0].Door != DoorOpening {
		t.Errorf("Expected arrival at 1 with doors opening, got %+v", trace[0])
	}
	var sawOpen bool
	for _, s := range trace {
		if s.Door == DoorOpen {
			sawOpen = true
		}
		if s.Floor != 1 {
			t.Errorf("Lift must stay at floor 1 during shutdown, got %+v", s)
		}
	}
	if !sawOpen {
		t.Error("Expected one full door cycle before going out of service")
	}
	final := trace[len(trace)-1]
	if final.Status != StatusOutOfService || final.Door != DoorClosed || final.Draining {
		t.Errorf("Expected OUT_OF_SERVICE with doors closed, got %+v", final)
	}
	if r := mustRequest(t, e, late); r.State != StateQueued {
		t.Errorf("Request queued during shutdown must stay QUEUED, got %s", r.State)
	}

	if err := e.ReturnToService(); err != nil {
		t.Fatalf("ReturnToService failed: %v", err)
	}
	s := e.State()
	if s.Status != StatusIdle || s.Floor != 1 || s.Direction != DirNone {
		t.Errorf("Expected IDLE at floor 1 after return, got %+v", s)
	}

	e.RunTicks(12)
	if r := mustRequest(t, e, late); r.State != StateCompleted {
		t.Errorf("Expected the outage request to be served after return, got %s", r.State)
	}
}

func TestEngine_OutOfServiceWhileIdle(t *testing.T) {
	e := newTestEngine(t, nil)
	e.SetOutOfService()

	trace := e.RunTicks(8)
	if trace[0].Status != StatusDoors || trace[0].Door != DoorOpening {
		t.Errorf("Expected an exit door cycle to start, got %+v", trace[0])
	}
	if final := trace[len(trace)-1]; final.Status != StatusOutOfService {
		t.Errorf("Expected OUT_OF_SERVICE, got %+v", final)
	}

	// Out of service is terminal until an explicit return
	for _, s := range e.RunTicks(20) {
		if s.Status != StatusOutOfService {
			t.Fatalf("Lift left OUT_OF_SERVICE on its own: %+v", s)
		}
	}
}

func TestEngine_ReturnToServiceRequiresOutOfService(t *testing.T) {
	e := newTestEngine(t, nil)
	if err := e.ReturnToService(); !errors.Is(err, ErrNotOutOfService) {
		t.Errorf("Expected ErrNotOutOfService, got %v", err)
	}

	e.SetOutOfService()
	if err := e.ReturnToService(); !errors.Is(err, ErrNotOutOfService) {
		t.Errorf("Expected ErrNotOutOfService while draining, got %v", err)
	}
}

func TestEngine_DwellExtendedByCompatibleCall(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.DoorReopenWindowTicks = 2 })
	e.AddCarCall(3)
	e.RunTicks(7) // doors OPEN at tick 5, hold until 8

	joined, _ := e.AddCarCall(3)
	trace := e.RunTicks(4) // ticks 7..10

	if r := mustRequest(t, e, joined); r.State != StateCompleted || r.UpdatedTick != 7 {
		t.Errorf("Expected joining request COMPLETED at tick 7, got %+v", r)
	}
	if trace[0].HoldUntil != 10 {
		t.Errorf("Expected hold extended to tick 10, got %d", trace[0].HoldUntil)
	}
	if trace[2].Door != DoorOpen || trace[3].Door != DoorClosing {
		t.Errorf("Expected doors to start closing at tick 10, got %s/%s", trace[2].Door, trace[3].Door)
	}
}

func TestEngine_DwellExtensionIsBounded(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.DoorReopenWindowTicks = 1 })
	e.AddCarCall(3)
	e.RunTicks(6) // OPEN at tick 5

	for i := 0; i < 5; i++ {
		e.AddCarCall(3)
		s := e.Tick()
		if s.HoldUntil > 5+3+1 {
			t.Fatalf("Hold extended past the reopen window: %+v", s)
		}
		if s.Door == DoorClosing {
			return
		}
	}
	t.Error("Expected the doors to close despite repeated calls")
}

func TestEngine_ReopenWithinWindow(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.DoorReopenWindowTicks = 2 })
	e.AddCarCall(3)
	e.RunTicks(9) // CLOSING since tick 8

	id, _ := e.AddCarCall(3)
	trace := e.RunTicks(3) // ticks 9..11

	if trace[0].Door != DoorOpening {
		t.Errorf("Expected doors to reopen at tick 9, got %+v", trace[0])
	}
	if r := mustRequest(t, e, id); r.State != StateCompleted {
		t.Errorf("Expected reopen request COMPLETED, got %s", r.State)
	}
	if trace[2].Door != DoorOpen {
		t.Errorf("Expected doors OPEN at tick 11, got %s", trace[2].Door)
	}
}

func TestEngine_NoReopenOutsideWindow(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.DoorTransitionTicks = 4
		c.DoorReopenWindowTicks = 2
	})
	e.AddCarCall(3)
	// arrive 3, OPEN 7, hold until 10, CLOSING 10..14
	e.RunTicks(13)

	id, _ := e.AddCarCall(3)
	trace := e.RunTicks(3) // ticks 13..15

	if trace[0].Door != DoorClosing {
		t.Errorf("Expected doors to keep closing at tick 13, got %+v", trace[0])
	}
	if trace[1].Door != DoorClosed || trace[1].Status != StatusIdle {
		t.Errorf("Expected doors CLOSED at tick 14, got %+v", trace[1])
	}
	if trace[2].Door != DoorOpening {
		t.Errorf("Expected a fresh door cycle at tick 15, got %+v", trace[2])
	}
	if r := mustRequest(t, e, id); r.State != StateServing {
		t.Errorf("Expected SERVING during the fresh cycle, got %s", r.State)
	}
}

func TestEngine_IdleParking(t *testing.T) {
	park := func(c *Config) {
		c.Parking = ParkToHomeFloor
		c.IdleTimeoutTicks = 2
		c.DoorTransitionTicks = 1
		c.DoorDwellTicks = 1
	}
	e := newTestEngine(t, park)
	e.AddCarCall(2)
	// depart 0, floor 2 at 2, OPEN 3, CLOSING 4, CLOSED 5, timeout at 7
	trace := e.RunTicks(10)

	if trace[6].Status != StatusIdle || trace[6].Floor != 2 {
		t.Errorf("Expected to wait at floor 2 at tick 6, got %+v", trace[6])
	}
	if trace[7].Status != StatusMoving || trace[7].Direction != DirDown {
		t.Errorf("Expected parking move at tick 7, got %+v", trace[7])
	}
	if trace[9].Floor != 0 || trace[9].Status != StatusIdle || trace[9].Door != DoorClosed {
		t.Errorf("Expected parked IDLE at home floor at tick 9, got %+v", trace[9])
	}

	stay := newTestEngine(t, func(c *Config) {
		park(c)
		c.Parking = StayAtCurrentFloor
	})
	stay.AddCarCall(2)
	for _, s := range stay.RunTicks(20)[5:] {
		if s.Floor != 2 || s.Status != StatusIdle {
			t.Fatalf("Expected to stay at floor 2, got %+v", s)
		}
	}
}

func TestEngine_ParkingYieldsToNewRequest(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Parking = ParkToHomeFloor
		c.IdleTimeoutTicks = 0
		c.InitialFloor = 6
	})
	s := e.Tick()
	if s.Status != StatusMoving || s.Direction != DirDown {
		t.Fatalf("Expected parking move from floor 6, got %+v", s)
	}

	id, _ := e.AddCarCall(8)
	e.RunTicks(30)
	if r := mustRequest(t, e, id); r.State != StateCompleted {
		t.Errorf("Expected request during parking to be served, got %s", r.State)
	}
}

func TestEngine_DirectionalScanStopOrder(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.Strategy = DirectionalScan
		c.DoorTransitionTicks = 1
		c.DoorDwellTicks = 1
	})
	e.AddCarCall(7)
	e.AddCarCall(3)
	e.AddCarCall(5)
	e.AddHallCall(4, DirUp)
	e.AddHallCall(2, DirDown)

	var stops []int
	for _, s := range e.RunTicks(60) {
		if s.Door == DoorOpening && s.Since == s.Tick {
			stops = append(stops, s.Floor)
		}
	}
	want := []int{3, 4, 5, 7, 2}
	if len(stops) != len(want) {
		t.Fatalf("Expected stops %v, got %v", want, stops)
	}
	for i := range want {
		if stops[i] != want[i] {
			t.Fatalf("Expected stops %v, got %v", want, stops)
		}
	}
	if c := e.Counts(); c[StateCompleted] != 5 {
		t.Errorf("Expected all 5 requests completed, got %v", c)
	}
}

func TestEngine_DirectionalScanPicksUpCallAhead(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.Strategy = DirectionalScan })
	e.AddCarCall(8)
	e.RunTicks(2) // moving up, at floor 1

	id, _ := e.AddHallCall(5, DirUp)
	trace := e.RunTicks(6) // floors 2..5

	var stoppedAt5 bool
	for _, s := range trace {
		if s.Floor == 5 && s.Door == DoorOpening {
			stoppedAt5 = true
		}
	}
	if !stoppedAt5 {
		t.Errorf("Expected a stop at floor 5 on the way up, trace %+v", trace)
	}
	if r := mustRequest(t, e, id); r.State == StateQueued {
		t.Errorf("Expected #%d to be picked up, got %s", id, r.State)
	}
}

func TestEngine_InvalidIntake(t *testing.T) {
	e := newTestEngine(t, nil)
	before := e.State()

	if _, err := e.AddCarCall(10); !errors.Is(err, ErrInvalidFloor) {
		t.Errorf("Expected ErrInvalidFloor, got %v", err)
	}
	if _, err := e.AddHallCall(3, DirNone); !errors.Is(err, ErrInvalidDirection) {
		t.Errorf("Expected ErrInvalidDirection, got %v", err)
	}
	if _, err := e.Request(77); !errors.Is(err, ErrUnknownRequestID) {
		t.Errorf("Expected ErrUnknownRequestID, got %v", err)
	}
	if len(e.Requests()) != 0 || e.State() != before {
		t.Error("Rejected intake must not change the engine")
	}
	if e.Tick().Status != StatusIdle {
		t.Error("Simulation must continue unaffected after rejected intake")
	}
}

func TestEngine_Determinism(t *testing.T) {
	for _, kind := range []StrategyKind{NearestRequestRouting, DirectionalScan} {
		a := runRandom(t, kind, 7, 500)
		b := runRandom(t, kind, 7, 500)
		if len(a) != len(b) {
			t.Fatalf("%s: trace lengths differ", kind)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%s: traces diverge at tick %d: %+v vs %+v", kind, i, a[i], b[i])
			}
		}
	}
}

func TestEngine_Invariants(t *testing.T) {
	for _, kind := range []StrategyKind{NearestRequestRouting, DirectionalScan} {
		for seed := int64(1); seed <= 20; seed++ {
			runRandom(t, kind, seed, 600)
		}
	}
}

// runRandom drives an engine with seeded random intake, cancellations and service
// interruptions, checking the structural invariants after every tick.
func runRandom(t *testing.T, kind StrategyKind, seed int64, ticks int) []LiftState {
	t.Helper()
	e := newTestEngine(t, func(c *Config) {
		c.Strategy = kind
		c.DoorReopenWindowTicks = 2
		c.Parking = ParkToHomeFloor
		c.IdleTimeoutTicks = 4
	})
	rng := rand.New(rand.NewSource(seed))
	floors := e.Config().Floors

	terminal := make(map[RequestID]RequestState)
	var trace []LiftState
	prev := e.State()

	for i := 0; i < ticks; i++ {
		if i < ticks-300 {
			switch n := rng.Intn(20); {
			case n < 2:
				e.AddCarCall(rng.Intn(floors))
			case n < 4:
				f := rng.Intn(floors)
				dir := DirUp
				if f == floors-1 || (f > 0 && rng.Intn(2) == 0) {
					dir = DirDown
				}
				e.AddHallCall(f, dir)
			case n == 4:
				if reqs := e.Requests(); len(reqs) > 0 {
					e.CancelRequest(reqs[rng.Intn(len(reqs))].ID)
				}
			case n == 5 && rng.Intn(10) == 0:
				e.SetOutOfService()
			}
		}
		if e.State().Status == StatusOutOfService && (i >= ticks-300 || rng.Intn(5) == 0) {
			if err := e.ReturnToService(); err != nil {
				t.Fatalf("ReturnToService: %v", err)
			}
		}

		s := e.Tick()
		trace = append(trace, s)

		if !s.Consistent(floors) {
			t.Fatalf("seed %d tick %d: inconsistent state %+v", seed, i, s)
		}
		if s.Door != DoorClosed && s.Status == StatusMoving {
			t.Fatalf("seed %d tick %d: moving with doors %s", seed, i, s.Door)
		}
		if d := s.Floor - prev.Floor; d > 1 || d < -1 {
			t.Fatalf("seed %d tick %d: teleported from %d to %d", seed, i, prev.Floor, s.Floor)
		}
		if s.Floor != prev.Floor && prev.Door != DoorClosed {
			t.Fatalf("seed %d tick %d: left floor with doors %s", seed, i, prev.Door)
		}
		for _, r := range e.Requests() {
			if was, ok := terminal[r.ID]; ok && was != r.State {
				t.Fatalf("seed %d tick %d: terminal request %d changed %s -> %s", seed, i, r.ID, was, r.State)
			}
			if r.IsTerminal() {
				terminal[r.ID] = r.State
			}
		}
		prev = s
	}

	if f := e.Faults(); len(f) != 0 {
		t.Fatalf("seed %d: unexpected faults %v", seed, f)
	}
	for _, r := range e.Requests() {
		if !r.IsTerminal() {
			t.Fatalf("seed %d (%s): request dropped without service: %+v", seed, kind, r)
		}
	}
	return trace
}
