package models

// TransferEvent is one status-change record from the rail's event log.
// Events are ephemeral; nothing beyond the cursor is persisted from them.
type TransferEvent struct {
	EventID       int64          `json:"event_id"`    // monotonically increasing, doubles as the sync cursor
	TransferID    string         `json:"transfer_id"` // correlates to Payment.TransferID
	EventType     Status         `json:"event_type"`  // the proposed new status
	FailureReason *FailureReason `json:"failure_reason,omitempty"`
}

// FailureReason carries structured detail on failure-type events.
type FailureReason struct {
	ACHReturnCode string `json:"ach_return_code,omitempty"`
	Description   string `json:"description"`
}

// EventPage is one page of the rail's paginated event log.
type EventPage struct {
	TransferEvents []TransferEvent `json:"transfer_events"`
	HasMore        bool            `json:"has_more"`
}
