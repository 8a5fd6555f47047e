// Package scenario loads YAML scenario files (a lift configuration plus timed
// injections) and replays them headlessly into a deterministic result.
// 시나리오 파일을 읽고 헤드리스로 재생합니다.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"

	"lift-dispatch-simulator/pkg/lift"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned for malformed scenario files.
var ErrInvalidScenario = errors.New("invalid scenario")

// InjectionKind selects what an injection does.
type InjectionKind string

const (
	InjectCarCall         InjectionKind = "car"
	InjectHallCall        InjectionKind = "hall"
	InjectCancel          InjectionKind = "cancel"
	InjectOutOfService    InjectionKind = "outOfService"
	InjectReturnToService InjectionKind = "returnToService"
)

// Injection is one external input applied before tick Tick is processed.
type Injection struct {
	Tick      int            `yaml:"tick" json:"tick"`
	Kind      InjectionKind  `yaml:"kind" json:"kind"`
	Lift      int            `yaml:"lift,omitempty" json:"lift,omitempty"`
	Floor     int            `yaml:"floor,omitempty" json:"floor,omitempty"`
	Direction lift.Direction `yaml:"direction,omitempty" json:"direction,omitempty"`
	// Name labels the request created by a car or hall injection.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// Ref names the request a cancel injection targets.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// Scenario is a lift configuration plus the inputs to replay against it.
type Scenario struct {
	Name   string      `yaml:"name" json:"name"`
	Lift   lift.Config `yaml:"lift" json:"lift"`
	Lifts  int         `yaml:"lifts,omitempty" json:"lifts,omitempty"` // 0 = 1대
	Ticks  int         `yaml:"ticks" json:"ticks"`
	Events []Injection `yaml:"events" json:"events"`
}

// Load reads and validates a scenario file.
func Load(path string) (Scenario, error) {
	file, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("load scenario: %w", err)
	}
	defer file.Close()

	s, err := Decode(file)
	if err != nil {
		return Scenario{}, fmt.Errorf("load scenario %s: %w", path, err)
	}
	return s, nil
}

// Decode parses a YAML scenario, fills defaults and validates it.
// Unknown fields are rejected.
func Decode(r io.Reader) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

func (s *Scenario) applyDefaults() {
	if s.Lift.ID == "" {
		s.Lift.ID = s.Name
	}
	if s.Lift.ID == "" {
		s.Lift.ID = "lift"
	}
	if s.Lift.Strategy == "" {
		s.Lift.Strategy = lift.NearestRequestRouting
	}
	if s.Lift.Parking == "" {
		s.Lift.Parking = lift.StayAtCurrentFloor
	}
	if s.Lifts == 0 {
		s.Lifts = 1
	}
	for i := range s.Events {
		if s.Events[i].Kind == InjectHallCall && s.Events[i].Direction == "" {
			s.Events[i].Direction = lift.DirNone
		}
	}
}

// Validate checks the scenario structure. Call-level problems such as a floor
// out of range are not errors here: they are replayed and recorded in the Result.
func (s Scenario) Validate() error {
	if err := s.Lift.Validate(); err != nil {
		return err
	}
	if s.Lifts < 1 {
		return fmt.Errorf("%w: lifts must be >= 1, got %d", ErrInvalidScenario, s.Lifts)
	}
	if s.Ticks < 1 {
		return fmt.Errorf("%w: ticks must be >= 1, got %d", ErrInvalidScenario, s.Ticks)
	}

	names := make(map[string]int) // 이름 -> 생성 틱
	for i, inj := range s.Events {
		if inj.Tick < 0 || inj.Tick >= s.Ticks {
			return fmt.Errorf("%w: event %d: tick %d outside [0, %d)", ErrInvalidScenario, i, inj.Tick, s.Ticks)
		}
		if inj.Lift < 0 || inj.Lift >= s.Lifts {
			return fmt.Errorf("%w: event %d: unknown lift %d", ErrInvalidScenario, i, inj.Lift)
		}
		switch inj.Kind {
		case InjectCarCall, InjectHallCall:
			if inj.Name == "" {
				continue
			}
			if _, ok := names[inj.Name]; ok {
				return fmt.Errorf("%w: event %d: duplicate name %q", ErrInvalidScenario, i, inj.Name)
			}
			names[inj.Name] = inj.Tick
		case InjectCancel:
			if created, ok := names[inj.Ref]; !ok || created > inj.Tick {
				return fmt.Errorf("%w: event %d: cancel refers to unknown request %q", ErrInvalidScenario, i, inj.Ref)
			}
		case InjectOutOfService, InjectReturnToService:
		default:
			return fmt.Errorf("%w: event %d: unknown kind %q", ErrInvalidScenario, i, inj.Kind)
		}
	}
	return nil
}
