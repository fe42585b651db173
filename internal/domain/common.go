package domain

// PositionSide represents the direction of a position.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// Direction returns +1 for long and -1 for short positions.
func (s PositionSide) Direction() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Opposite returns the other side.
func (s PositionSide) Opposite() PositionSide {
	if s == SideShort {
		return SideLong
	}
	return SideShort
}

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss     CloseReason = "stop_loss"
	CloseReasonTakeProfit   CloseReason = "take_profit"
	CloseReasonTrailingStop CloseReason = "trailing_stop"
	CloseReasonSignal       CloseReason = "signal"
	CloseReasonEndOfData    CloseReason = "end_of_data"
)

// SignalType is the action suggested by a strategy.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Signal is the output of a strategy evaluation for one candle.
type Signal struct {
	Type       SignalType
	Reason     string
	Confidence float64 // 0..0.9
}

// Hold returns a neutral signal with zero confidence.
func Hold(reason string) Signal {
	return Signal{Type: SignalHold, Reason: reason}
}

// Side maps an actionable signal to a position side. ok is false for HOLD.
func (s Signal) Side() (side PositionSide, ok bool) {
	switch s.Type {
	case SignalBuy:
		return SideLong, true
	case SignalSell:
		return SideShort, true
	default:
		return "", false
	}
}

// StopLevels holds protective price levels for a new position. Zero means unset.
type StopLevels struct {
	StopLoss   float64
	TakeProfit float64
}
