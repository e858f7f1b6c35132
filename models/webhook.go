package models

// WebhookPayload is the body the rail POSTs to our webhook endpoint.
// WebhookType is the product category, WebhookCode the specific event
// within it; the remaining fields only appear for certain codes.
type WebhookPayload struct {
	WebhookType string        `json:"webhook_type"`
	WebhookCode string        `json:"webhook_code"`
	ItemID      string        `json:"item_id,omitempty"`
	Error       *WebhookError `json:"error,omitempty"`
}

// WebhookError is the error object attached to ITEM/ERROR webhooks.
type WebhookError struct {
	ErrorType    string `json:"error_type,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
