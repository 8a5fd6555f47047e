package lift

// StrategyKind selects the scheduling strategy of a controller.
type StrategyKind string

const (
	NearestRequestRouting StrategyKind = "NEAREST_REQUEST_ROUTING"
	DirectionalScan       StrategyKind = "DIRECTIONAL_SCAN"
)

// ParkingMode governs where an idle lift waits between requests.
// ParkingMode는 대기 중인 엘리베이터의 위치 정책입니다.
type ParkingMode string

const (
	ParkToHomeFloor    ParkingMode = "PARK_TO_HOME_FLOOR"
	StayAtCurrentFloor ParkingMode = "STAY_AT_CURRENT_FLOOR"
)

// Config holds immutable per-simulation parameters. All durations are in ticks.
// Config는 시뮬레이션 시작 시 설정되며, 런타임 중에 변경되지 않습니다.
type Config struct {
	ID                    string       `yaml:"id" json:"id"`
	Floors                int          `yaml:"floors" json:"floors"`                               // 층 수
	TravelTicksPerFloor   int          `yaml:"travelTicksPerFloor" json:"travelTicksPerFloor"`     // 한 층 이동 시간
	DoorTransitionTicks   int          `yaml:"doorTransitionTicks" json:"doorTransitionTicks"`     // 문 열림/닫힘 시간
	DoorDwellTicks        int          `yaml:"doorDwellTicks" json:"doorDwellTicks"`               // 문 열림 유지 시간
	DoorReopenWindowTicks int          `yaml:"doorReopenWindowTicks" json:"doorReopenWindowTicks"` // 재열림 허용 구간
	HomeFloor             int          `yaml:"homeFloor" json:"homeFloor"`
	InitialFloor          int          `yaml:"initialFloor" json:"initialFloor"`
	IdleTimeoutTicks      int          `yaml:"idleTimeoutTicks" json:"idleTimeoutTicks"`
	Strategy              StrategyKind `yaml:"strategy" json:"strategy"`
	Parking               ParkingMode  `yaml:"parking" json:"parking"`
}

// Validate performs range, enum and cross-field checks.
// Every failure wraps ErrInvalidConfiguration.
func (c Config) Validate() error {
	if c.Floors <= 0 {
		return configError("floors must be positive, got %d", c.Floors)
	}
	if c.TravelTicksPerFloor < 1 {
		return configError("travelTicksPerFloor must be at least 1, got %d", c.TravelTicksPerFloor)
	}
	if c.DoorTransitionTicks < 1 {
		return configError("doorTransitionTicks must be at least 1, got %d", c.DoorTransitionTicks)
	}
	if c.DoorDwellTicks < 0 {
		return configError("doorDwellTicks must not be negative, got %d", c.DoorDwellTicks)
	}
	if c.DoorReopenWindowTicks < 0 {
		return configError("doorReopenWindowTicks must not be negative, got %d", c.DoorReopenWindowTicks)
	}
	if c.IdleTimeoutTicks < 0 {
		return configError("idleTimeoutTicks must not be negative, got %d", c.IdleTimeoutTicks)
	}
	if c.HomeFloor < 0 || c.HomeFloor >= c.Floors {
		return configError("homeFloor %d outside [0, %d]", c.HomeFloor, c.Floors-1)
	}
	if c.InitialFloor < 0 || c.InitialFloor >= c.Floors {
		return configError("initialFloor %d outside [0, %d]", c.InitialFloor, c.Floors-1)
	}
	switch c.Strategy {
	case NearestRequestRouting, DirectionalScan:
	default:
		return configError("unknown strategy %q", c.Strategy)
	}
	switch c.Parking {
	case ParkToHomeFloor, StayAtCurrentFloor:
	default:
		return configError("unknown parking mode %q", c.Parking)
	}
	return nil
}
