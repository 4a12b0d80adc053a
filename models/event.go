package models

import "time"

const (
	EventFormCreated   = "form_created"
	EventFormUpdated   = "form_updated"
	EventFormCompleted = "form_completed"
	EventFormDeleted   = "form_deleted"
	EventFormReminder  = "form_reminder"
)

// FormEvent is published on the form_events topic after every successful
// write.
type FormEvent struct {
	Event      string    `json:"event"`
	FormID     string    `json:"form_id"`
	Owner      string    `json:"owner,omitempty"`
	Form       *Form     `json:"form,omitempty"`
	Step       string    `json:"step,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
