package task

import "encoding/json"

// SubmitRequest is the body of POST /api/ai/tasks.
type SubmitRequest struct {
	Type    Type            `json:"type" validate:"required,oneof=itinerary report"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// SubmitResponse acknowledges an accepted task. The status is always pending.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status Status `json:"status"`
}
