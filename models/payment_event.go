package models

import "time"

// PaymentStatusEvent is the standardized event published to Kafka after a
// status transition is applied, so downstream services (bills,
// notifications) can react without polling the payments table.
type PaymentStatusEvent struct {
	Type         string    `json:"type"` // e.g. "payment_posted", "payment_settled"
	PaymentID    string    `json:"payment_id"`
	BillID       string    `json:"bill_id"`
	TransferID   string    `json:"transfer_id"`
	OldStatus    string    `json:"old_status"`
	NewStatus    string    `json:"new_status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"` // UTC event time
}
