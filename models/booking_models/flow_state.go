package booking_models

// FlowState is the position of a browser session in the booking flow.
type FlowState string

const (
	FlowSelecting            FlowState = "SELECTING"
	FlowDraftHeld            FlowState = "DRAFT_HELD"
	FlowAwaitingConfirmation FlowState = "AWAITING_CONFIRMATION"
	FlowPaying               FlowState = "PAYING"
	FlowPolling              FlowState = "POLLING"
	FlowConfirmed            FlowState = "CONFIRMED"
	FlowExpired              FlowState = "EXPIRED"
	FlowCancelled            FlowState = "CANCELLED"
	FlowFailed               FlowState = "FAILED"
)

// IsTerminal reports whether the flow has finished for the current hold.
func (s FlowState) IsTerminal() bool {
	switch s {
	case FlowConfirmed, FlowExpired, FlowCancelled, FlowFailed:
		return true
	}
	return false
}
