package lift

// --- Lift physical state ---

// Direction indicates the vertical movement vector.
// Direction은 수직 이동 벡터를 나타냅니다.
type Direction string

const (
	DirUp   Direction = "UP"
	DirDown Direction = "DOWN"
	DirNone Direction = "NONE"
)

// Step returns the floor delta for one move in this direction.
func (d Direction) Step() int {
	switch d {
	case DirUp:
		return 1
	case DirDown:
		return -1
	}
	return 0
}

// Opposite returns the reversed direction. DirNone stays DirNone.
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	}
	return DirNone
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirUp || d == DirDown || d == DirNone
}

// directionTo returns the direction from one floor toward another.
func directionTo(from, to int) Direction {
	switch {
	case to > from:
		return DirUp
	case to < from:
		return DirDown
	}
	return DirNone
}

// Status is the motion status of the lift.
// Status는 엘리베이터의 운행 상태입니다.
type Status string

const (
	StatusIdle         Status = "IDLE"
	StatusMoving       Status = "MOVING"
	StatusDoors        Status = "DOORS_OPERATING" // 문 동작 중 (전이 상태)
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

// DoorPhase represents the physical state of the door.
// DoorPhase는 문의 물리 상태를 나타냅니다.
type DoorPhase string

const (
	DoorClosed  DoorPhase = "CLOSED"
	DoorOpening DoorPhase = "OPENING"
	DoorOpen    DoorPhase = "OPEN"
	DoorClosing DoorPhase = "CLOSING"
)

// LiftState is the authoritative physical snapshot of one lift at a given tick.
// Only the Engine writes it; everything else receives copies.
// LiftState는 특정 틱에서의 엘리베이터 물리 상태 스냅샷입니다.
type LiftState struct {
	Tick      int       `json:"tick" yaml:"tick"`           // 스냅샷이 커밋된 틱
	Floor     int       `json:"floor" yaml:"floor"`         // 현재 층
	Status    Status    `json:"status" yaml:"status"`       // 운행 상태
	Direction Direction `json:"direction" yaml:"direction"` // 운행(또는 스윕) 방향
	Door      DoorPhase `json:"door" yaml:"door"`           // 문 상태
	Since     int       `json:"since" yaml:"since"`         // 마지막 상태 변경 틱
	HoldUntil int       `json:"holdUntil" yaml:"holdUntil"` // 문 열림 유지 만료 틱
	Draining  bool      `json:"draining" yaml:"draining"`   // 운행 중지 절차 진행 중
}

// Stationary reports whether the lift is at rest with its doors closed.
func (s LiftState) Stationary() bool {
	return s.Status != StatusMoving && s.Door == DoorClosed
}

// Consistent checks the structural invariants of a snapshot against a floor count.
// It returns false if doors are not closed while moving or the floor is out of range.
func (s LiftState) Consistent(floors int) bool {
	if s.Floor < 0 || s.Floor >= floors {
		return false
	}
	if s.Status == StatusMoving && s.Door != DoorClosed {
		return false
	}
	if s.Status == StatusMoving && s.Direction == DirNone {
		return false
	}
	if s.Status == StatusDoors && s.Door == DoorClosed {
		return false
	}
	return true
}
