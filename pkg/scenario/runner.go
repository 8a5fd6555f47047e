package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"lift-dispatch-simulator/pkg/fleet"
	"lift-dispatch-simulator/pkg/lift"
)

// Frame is the committed state of every lift at one tick.
type Frame struct {
	Tick  int              `json:"tick"`
	Lifts []lift.LiftState `json:"lifts"`
}

// Applied records how one injection was handled.
type Applied struct {
	Tick    int            `json:"tick"`
	Kind    InjectionKind  `json:"kind"`
	Lift    int            `json:"lift"`
	Request lift.RequestID `json:"request,omitempty"`
	Outcome string         `json:"outcome"`
}

// ErrorRecord is a rejected injection or a fault reported during a tick.
type ErrorRecord struct {
	Tick    int    `json:"tick"`
	Lift    int    `json:"lift"`
	Source  string `json:"source"` // injection kind or "tick"
	Message string `json:"message"`
}

// LiftEvent is an engine event tagged with the lift that emitted it.
type LiftEvent struct {
	Lift int `json:"lift"`
	lift.Event
}

// Result is the artefact of one replay.
type Result struct {
	Name     string                    `json:"name"`
	Trace    []Frame                   `json:"trace"`
	Applied  []Applied                 `json:"applied"`
	Events   []LiftEvent               `json:"events"`
	Requests [][]lift.Request          `json:"requests"` // 엘리베이터별 요청 이력
	Counts   map[lift.RequestState]int `json:"counts"`
	Errors   []ErrorRecord             `json:"errors"`
}

type ref struct {
	lift int
	id   lift.RequestID
}

type runner struct {
	d      *fleet.Dispatcher
	res    *Result
	refs   map[string]ref
	faults []int
	logger *slog.Logger
}

// Run replays s: injections for tick T are applied in file order right before
// tick T is processed. The same scenario always yields the same Result.
func Run(s Scenario) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	d, err := fleet.New(s.Lift, s.Lifts)
	if err != nil {
		return nil, fmt.Errorf("run scenario %q: %w", s.Name, err)
	}

	events := append([]Injection(nil), s.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Tick < events[j].Tick })

	r := &runner{
		d:      d,
		res:    &Result{Name: s.Name, Trace: make([]Frame, 0, s.Ticks)},
		refs:   make(map[string]ref),
		faults: make([]int, d.Len()),
		logger: slog.Default().With("scenario", s.Name),
	}
	r.logger.Info("Scenario started", "lifts", s.Lifts, "ticks", s.Ticks, "events", len(events))

	next := 0
	for t := 0; t < s.Ticks; t++ {
		for ; next < len(events) && events[next].Tick == t; next++ {
			r.inject(events[next])
		}
		states := d.Tick()
		r.res.Trace = append(r.res.Trace, Frame{Tick: t, Lifts: states})
		r.collect(t)
	}

	r.res.Counts = make(map[lift.RequestState]int)
	for i := 0; i < d.Len(); i++ {
		e, _ := d.Engine(i)
		r.res.Requests = append(r.res.Requests, e.Requests())
		for state, n := range e.Counts() {
			r.res.Counts[state] += n
		}
	}
	r.logger.Info("Scenario finished",
		"completed", r.res.Counts[lift.StateCompleted],
		"cancelled", r.res.Counts[lift.StateCancelled],
		"errors", len(r.res.Errors),
	)
	return r.res, nil
}

func (r *runner) inject(inj Injection) {
	applied := Applied{Tick: inj.Tick, Kind: inj.Kind, Lift: inj.Lift, Outcome: "ok"}
	var err error

	switch inj.Kind {
	case InjectCarCall:
		applied.Request, err = r.d.AddCarCall(inj.Lift, inj.Floor)
		r.name(inj.Name, inj.Lift, applied.Request, err)
	case InjectHallCall:
		if r.d.Len() == 1 {
			// 단일 엘리베이터: 배차 없이 직접 등록 (서비스 중단 중에도 대기열 유지)
			e, _ := r.d.Engine(0)
			applied.Request, err = e.AddHallCall(inj.Floor, inj.Direction)
		} else {
			var a fleet.Assignment
			a, err = r.d.AddHallCall(inj.Floor, inj.Direction)
			applied.Lift, applied.Request = a.Lift, a.ID
		}
		r.name(inj.Name, applied.Lift, applied.Request, err)
	case InjectCancel:
		target, ok := r.refs[inj.Ref]
		if !ok {
			err = fmt.Errorf("cancel %q: %w", inj.Ref, lift.ErrUnknownRequestID)
			break
		}
		e, _ := r.d.Engine(target.lift)
		applied.Lift, applied.Request = target.lift, target.id
		applied.Outcome = e.CancelRequest(target.id).String()
	case InjectOutOfService:
		e, _ := r.d.Engine(inj.Lift)
		cancelled := e.SetOutOfService()
		applied.Outcome = fmt.Sprintf("cancelled %d", len(cancelled))
	case InjectReturnToService:
		e, _ := r.d.Engine(inj.Lift)
		err = e.ReturnToService()
	}

	if err != nil {
		applied.Outcome = "rejected"
		if errors.Is(err, fleet.ErrNoLiftAvailable) {
			applied.Lift = -1
		}
		r.res.Errors = append(r.res.Errors, ErrorRecord{Tick: inj.Tick, Lift: applied.Lift, Source: string(inj.Kind), Message: err.Error()})
		r.logger.Warn("Injection rejected", "tick", inj.Tick, "kind", inj.Kind, "error", err)
	}
	r.res.Applied = append(r.res.Applied, applied)
}

func (r *runner) name(name string, liftIdx int, id lift.RequestID, err error) {
	if name == "" || err != nil {
		return
	}
	r.refs[name] = ref{lift: liftIdx, id: id}
}

// collect drains the event channels and records new faults after tick t.
func (r *runner) collect(t int) {
	for i := 0; i < r.d.Len(); i++ {
		e, _ := r.d.Engine(i)
		for drained := false; !drained; {
			select {
			case ev := <-e.Events():
				r.res.Events = append(r.res.Events, LiftEvent{Lift: i, Event: ev})
			default:
				drained = true
			}
		}
		faults := e.Faults()
		for _, f := range faults[r.faults[i]:] {
			r.res.Errors = append(r.res.Errors, ErrorRecord{Tick: t, Lift: i, Source: "tick", Message: f.Error()})
		}
		r.faults[i] = len(faults)
	}
}
