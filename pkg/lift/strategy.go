package lift

import "fmt"

// ActionType defines the action decided by a scheduling strategy.
// ActionType은 스케줄링 전략에 의해 결정된 동작을 정의합니다.
type ActionType int

const (
	ActionNone      ActionType = iota // 대기 (이동 중이면 현재 층에 정지)
	ActionMove                        // 한 층 이동 (출발 또는 계속)
	ActionOpenDoor                    // 문 열기 시작
	ActionCloseDoor                   // 문 닫기 시작
)

func (t ActionType) String() string {
	return [...]string{"None", "Move", "OpenDoor", "CloseDoor"}[t]
}

// Action represents the decision for the current tick.
// Assign lists requests the strategy commits to; Serve lists requests served by
// the door cycle starting at the current floor.
type Action struct {
	Type   ActionType
	Dir    Direction // 이동 방향 또는 문 동작 이후의 진행 방향
	Target int       // 목표 층
	Assign []RequestID
	Serve  []RequestID
}

// Strategy is pure decision logic over a lift snapshot and its pending requests.
// Pending requests are the QUEUED and ASSIGNED ones, ordered by creation.
// Implementations never mutate their inputs.
type Strategy interface {
	Kind() StrategyKind
	// Next decides for a lift at rest with its doors closed.
	Next(lift LiftState, pending []Request) Action
	// AtFloor decides for a moving lift that has just reached lift.Floor.
	// ActionMove continues, ActionOpenDoor stops and serves, ActionNone stops.
	AtFloor(lift LiftState, pending []Request) Action
	// Commit returns the requests the strategy commits to from the current position.
	Commit(lift LiftState, pending []Request) []RequestID
	// Compatible reports whether r can join the door cycle in progress at lift.Floor.
	Compatible(lift LiftState, r Request, pending []Request) bool
}

// NewStrategy returns the strategy for kind. The set of strategies is closed.
func NewStrategy(kind StrategyKind) (Strategy, error) {
	switch kind {
	case NearestRequestRouting:
		return nearestRequest{}, nil
	case DirectionalScan:
		return directionalScan{}, nil
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfiguration, kind)
}

// nearest returns the pending request closest to floor.
// Ties go to the earliest created, which is the first in creation order.
func nearest(floor int, pending []Request) (Request, bool) {
	best := -1
	bestDist := 0
	for i, r := range pending {
		dist := abs(r.Floor - floor)
		if best < 0 || dist < bestDist || (dist == bestDist && r.CreatedTick < pending[best].CreatedTick) {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return Request{}, false
	}
	return pending[best], true
}

func at(floor int, pending []Request) []RequestID {
	var ids []RequestID
	for _, r := range pending {
		if r.Floor == floor {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// --- NEAREST_REQUEST_ROUTING ---

// nearestRequest commits to a single request at a time, the one numerically
// closest to the lift, and reconsiders only once it is completed or cancelled.
type nearestRequest struct{}

func (nearestRequest) Kind() StrategyKind { return NearestRequestRouting }

// target keeps the current assignment if there is one.
func (nearestRequest) target(lift LiftState, pending []Request) (Request, bool) {
	for _, r := range pending {
		if r.State == StateAssigned {
			return r, true
		}
	}
	return nearest(lift.Floor, pending)
}

func (s nearestRequest) Next(lift LiftState, pending []Request) Action {
	t, ok := s.target(lift, pending)
	if !ok {
		return Action{Type: ActionNone, Dir: DirNone, Target: lift.Floor}
	}
	if t.Floor == lift.Floor {
		return Action{Type: ActionOpenDoor, Dir: DirNone, Target: t.Floor, Serve: at(t.Floor, pending)}
	}
	return Action{
		Type:   ActionMove,
		Dir:    directionTo(lift.Floor, t.Floor),
		Target: t.Floor,
		Assign: []RequestID{t.ID},
	}
}

func (s nearestRequest) AtFloor(lift LiftState, pending []Request) Action {
	t, ok := s.target(lift, pending)
	if !ok {
		return Action{Type: ActionNone, Dir: DirNone, Target: lift.Floor}
	}
	if t.Floor == lift.Floor {
		return Action{Type: ActionOpenDoor, Dir: DirNone, Target: t.Floor, Serve: at(t.Floor, pending)}
	}
	dir := directionTo(lift.Floor, t.Floor)
	if dir == lift.Direction {
		return Action{Type: ActionMove, Dir: dir, Target: t.Floor, Assign: []RequestID{t.ID}}
	}
	// 목표가 뒤에 있음: 정지 후 다음 틱에 반대 방향으로 출발
	return Action{Type: ActionNone, Dir: DirNone, Target: t.Floor, Assign: []RequestID{t.ID}}
}

func (s nearestRequest) Commit(lift LiftState, pending []Request) []RequestID {
	if t, ok := s.target(lift, pending); ok {
		return []RequestID{t.ID}
	}
	return nil
}

func (nearestRequest) Compatible(lift LiftState, r Request, _ []Request) bool {
	return r.Floor == lift.Floor
}

// --- DIRECTIONAL_SCAN ---

// directionalScan sweeps in one direction serving every request on the way,
// reversing only once nothing remains ahead (SCAN).
type directionalScan struct{}

func (directionalScan) Kind() StrategyKind { return DirectionalScan }

// ahead reports whether any pending request lies strictly beyond floor in dir.
func ahead(floor int, dir Direction, pending []Request) bool {
	step := dir.Step()
	if step == 0 {
		return false
	}
	for _, r := range pending {
		if (r.Floor-floor)*step > 0 {
			return true
		}
	}
	return false
}

// heading is the sweep direction, or the direction toward the nearest request
// when the lift has none. DirNone means the nearest request is at this floor.
func (directionalScan) heading(lift LiftState, pending []Request) Direction {
	if lift.Direction != DirNone {
		return lift.Direction
	}
	n, ok := nearest(lift.Floor, pending)
	if !ok {
		return DirNone
	}
	return directionTo(lift.Floor, n.Floor)
}

// servable selects the requests a stop at floor serves while sweeping dir:
// car calls, hall calls in dir, and hall calls the other way once nothing is ahead.
func servable(floor int, dir Direction, pending []Request) []RequestID {
	turning := !ahead(floor, dir, pending)
	var ids []RequestID
	for _, r := range pending {
		if r.Floor != floor {
			continue
		}
		if r.Kind == CarCall || dir == DirNone || r.Direction == dir || turning {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// sweep lists the requests a sweep from floor in dir commits to, in floor order:
// car calls, hall calls in dir, and any call at the turning floor.
func sweep(floor int, dir Direction, pending []Request) []RequestID {
	step := dir.Step()
	if step == 0 {
		return nil
	}
	far := floor
	for _, r := range pending {
		if (r.Floor-far)*step > 0 {
			far = r.Floor
		}
	}
	var ids []RequestID
	for f := floor + step; (far-f)*step >= 0; f += step {
		for _, r := range pending {
			if r.Floor != f {
				continue
			}
			if r.Kind == CarCall || r.Direction == dir || f == far {
				ids = append(ids, r.ID)
			}
		}
	}
	return ids
}

func without(pending []Request, ids []RequestID) []Request {
	drop := make(map[RequestID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var out []Request
	for _, r := range pending {
		if !drop[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// nextAhead returns the closest floor with a pending request beyond floor in dir.
func nextAhead(floor int, dir Direction, pending []Request) int {
	best := floor
	for _, r := range pending {
		d := (r.Floor - floor) * dir.Step()
		if d > 0 && (best == floor || d < abs(best-floor)) {
			best = r.Floor
		}
	}
	return best
}

// open builds a door action serving ids and picks the direction to continue in.
func (directionalScan) open(floor int, dir Direction, ids []RequestID, pending []Request) Action {
	rest := without(pending, ids)
	next := dir
	if !ahead(floor, dir, rest) {
		next = DirNone
		if ahead(floor, dir.Opposite(), rest) {
			next = dir.Opposite()
		}
	}
	return Action{Type: ActionOpenDoor, Dir: next, Target: floor, Serve: ids}
}

func (s directionalScan) plan(lift LiftState, pending []Request, moving bool) Action {
	idle := Action{Type: ActionNone, Dir: DirNone, Target: lift.Floor}
	if len(pending) == 0 {
		return idle
	}
	dir := s.heading(lift, pending)
	if dir == DirNone {
		return s.open(lift.Floor, DirNone, at(lift.Floor, pending), pending)
	}
	for _, d := range []Direction{dir, dir.Opposite()} {
		if ids := servable(lift.Floor, d, pending); len(ids) > 0 {
			return s.open(lift.Floor, d, ids, pending)
		}
		if ahead(lift.Floor, d, pending) {
			return Action{
				Type:   ActionMove,
				Dir:    d,
				Target: nextAhead(lift.Floor, d, pending),
				Assign: sweep(lift.Floor, d, pending),
			}
		}
		if moving {
			// 진행 방향에 호출 없음: 정지 후 방향 전환
			return Action{Type: ActionNone, Dir: d.Opposite(), Target: lift.Floor}
		}
	}
	return idle
}

func (s directionalScan) Next(lift LiftState, pending []Request) Action {
	return s.plan(lift, pending, false)
}

func (s directionalScan) AtFloor(lift LiftState, pending []Request) Action {
	return s.plan(lift, pending, true)
}

func (s directionalScan) Commit(lift LiftState, pending []Request) []RequestID {
	dir := s.heading(lift, pending)
	if dir == DirNone || !ahead(lift.Floor, dir, pending) {
		dir = dir.Opposite()
	}
	return sweep(lift.Floor, dir, pending)
}

func (directionalScan) Compatible(lift LiftState, r Request, pending []Request) bool {
	if r.Floor != lift.Floor {
		return false
	}
	if r.Kind == CarCall || lift.Direction == DirNone || r.Direction == lift.Direction {
		return true
	}
	return !ahead(lift.Floor, lift.Direction, pending)
}
