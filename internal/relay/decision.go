package relay

// Decision is the outcome of one auto-relay evaluation. Only
// DecisionRelayed produces output; the rest are expected, silent outcomes.
type Decision int

const (
	DecisionRelayed Decision = iota
	DecisionSelf
	DecisionOutOfScope
	DecisionDetectionDeclined
	DecisionAlreadyTarget
	DecisionBelowThreshold
	DecisionNoOp
	DecisionFailed
)

func (d Decision) String() string {
	switch d {
	case DecisionRelayed:
		return "relayed"
	case DecisionSelf:
		return "self"
	case DecisionOutOfScope:
		return "out_of_scope"
	case DecisionDetectionDeclined:
		return "detection_declined"
	case DecisionAlreadyTarget:
		return "already_target"
	case DecisionBelowThreshold:
		return "below_threshold"
	case DecisionNoOp:
		return "noop_translation"
	case DecisionFailed:
		return "failed"
	default:
		return "unknown"
	}
}
