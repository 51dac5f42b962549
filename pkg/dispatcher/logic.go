package dispatcher

import (
	"go-elevator-dispatch/pkg/elevator"
)

// NextFloor chooses the floor the car should visit next.
// No mutex, No channel, No time.
//
// The car keeps sweeping in its last direction (up if it never moved):
//  1. Up sweep: a stop at the current floor, else the lowest stop above,
//     counting only stops heading Up or anywhere. If only Down-heading stops
//     remain above, the highest of them, where the sweep turns.
//  2. Down sweep, when the last trip went down or the up sweep is exhausted:
//     the mirror image of 1.
//  3. Otherwise the nearest stop, smaller floor first on equal distance.
//
// 진행 방향(SCAN/LOOK)을 우선하며, 진행 방향에 호출이 없을 때만 방향을 전환합니다.
func NextFloor(current int, last elevator.Direction, stops []Stop) (int, error) {
	if len(stops) == 0 {
		return 0, ErrNoPendingRequests
	}

	if last != elevator.DirDown {
		if f, ok := sweep(current, elevator.DirUp, stops); ok {
			return f, nil
		}
	}
	if f, ok := sweep(current, elevator.DirDown, stops); ok {
		return f, nil
	}
	return nearest(current, stops), nil
}

// sweep looks for the next stop travelling in dir from current.
func sweep(current int, dir elevator.Direction, stops []Stop) (int, bool) {
	ahead := func(f int) bool { return f > current }
	closer := func(a, b int) bool { return a < b }
	if dir == elevator.DirDown {
		ahead = func(f int) bool { return f < current }
		closer = func(a, b int) bool { return a > b }
	}

	target, found := 0, false
	turn, canTurn := 0, false
	for _, s := range stops {
		compatible := s.Heading == dir || s.Heading == elevator.DirNone
		switch {
		case s.Floor == current && compatible:
			return current, true
		case !ahead(s.Floor):
			continue
		case compatible:
			if !found || closer(s.Floor, target) {
				target, found = s.Floor, true
			}
		default:
			// Opposite heading: served where the sweep turns, farthest first.
			if !canTurn || closer(turn, s.Floor) {
				turn, canTurn = s.Floor, true
			}
		}
	}
	if found {
		return target, true
	}
	return turn, canTurn
}

func nearest(current int, stops []Stop) int {
	best := stops[0].Floor
	for _, s := range stops[1:] {
		d, bd := abs(s.Floor-current), abs(best-current)
		if d < bd || (d == bd && s.Floor < best) {
			best = s.Floor
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
