package encoder

// Snapshot is the pair of clock and data levels captured at a clock edge.
// It carries everything one quadrature decode needs; no history is kept
// between edges.
type Snapshot struct {
	Clock Level
	Data  Level
}

// DecodeRotation classifies one quadrature step from a snapshot taken at a
// clock edge. With the KY-040's pull-up wiring, one detent produces one
// falling clock edge: data high at that instant means the data line already
// transitioned, so the shaft leads clockwise; data low means counter-clockwise.
// Rising edges (the return to rest) do not decode.
func DecodeRotation(s Snapshot) (Direction, bool) {
	if s.Clock != Low {
		return 0, false
	}
	if s.Data == High {
		return Clockwise, true
	}
	return CounterClockwise, true
}

// ConfirmPress reports whether an active (low) switch edge survived the
// settle delay. Both reads must see the switch held low; anything else is
// contact bounce.
func ConfirmPress(atEdge, afterDelay Level) bool {
	return atEdge == Low && afterDelay == Low
}
