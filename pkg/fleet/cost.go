package fleet

import (
	"log/slog"
	"math"

	"lift-dispatch-simulator/pkg/lift"

	"github.com/tiendc/go-deepcopy"
)

// Unavailable is the cost of a lift that cannot take new hall calls.
const Unavailable = math.MaxInt

// TicksToServe estimates how many ticks the lift in snap needs before its doors
// open for call. The snapshot is cloned first so the estimate never touches the
// caller's data. Out-of-service and draining lifts are Unavailable.
func TicksToServe(cfg lift.Config, snap lift.Snapshot, call lift.Call) int {
	sim := new(lift.Snapshot)
	if err := deepcopy.Copy(sim, &snap); err != nil {
		slog.Error("Failed to copy lift snapshot", "error", err)
		return Unavailable
	}
	if sim.Status == lift.StatusOutOfService || sim.Draining {
		return Unavailable
	}
	sim.Pending = append(sim.Pending, lift.Request{Kind: call.Kind, Floor: call.Floor, Direction: call.Direction})
	target := len(sim.Pending) - 1

	stop := 2*cfg.DoorTransitionTicks + cfg.DoorDwellTicks
	cost := 0
	switch sim.Status {
	case lift.StatusMoving:
		cost += cfg.TravelTicksPerFloor / 2
		sim.Floor += sim.Direction.Step()
	case lift.StatusDoors:
		cost += stop / 2
	}

	dir := sim.Direction
	if dir == lift.DirNone {
		dir = towards(sim.Floor, call.Floor)
	}

	// 층 단위로 스윕을 시뮬레이션
	for step := 0; step < 4*cfg.Floors; step++ {
		served := false
		for i, r := range sim.Pending {
			if r.Floor != sim.Floor || r.Kind == "" {
				continue
			}
			if r.Kind == lift.HallCall && r.Direction != dir && dir != lift.DirNone && anyAhead(sim.Floor, dir, sim.Pending) {
				continue
			}
			if i == target {
				return cost
			}
			sim.Pending[i].Kind = "" // served
			served = true
		}
		if served {
			cost += stop
		}
		if !anyAhead(sim.Floor, dir, sim.Pending) {
			dir = dir.Opposite()
			if dir == lift.DirNone {
				dir = towards(sim.Floor, call.Floor)
			}
		}
		sim.Floor += dir.Step()
		cost += cfg.TravelTicksPerFloor
	}
	return Unavailable
}

func towards(from, to int) lift.Direction {
	switch {
	case to > from:
		return lift.DirUp
	case to < from:
		return lift.DirDown
	}
	return lift.DirNone
}

func anyAhead(floor int, dir lift.Direction, pending []lift.Request) bool {
	step := dir.Step()
	for _, r := range pending {
		if r.Kind != "" && step != 0 && (r.Floor-floor)*step > 0 {
			return true
		}
	}
	return false
}
