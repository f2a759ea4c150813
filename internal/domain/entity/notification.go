package entity

import "time"

// Notification is an in-app message that is also delivered by email and IM when configured
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	SenderID    *int64    `json:"sender_id,omitempty"`
	Message     string    `json:"message"`
	Link        string    `json:"link,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskReminder is a one-off reminder scheduled for a specific day
type TaskReminder struct {
	ID           int64      `json:"id"`
	TaskID       int64      `json:"task_id"`
	RecipientID  int64      `json:"recipient_id"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	Message      string     `json:"message,omitempty"`
	CreatedByID  *int64     `json:"created_by_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
}
