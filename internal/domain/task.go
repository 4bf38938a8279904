package domain

import "time"

type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusCompleted TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool { return s == StatusPending || s == StatusCompleted }

type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"size:191;not null" json:"title"`
	Description string     `gorm:"size:1024" json:"description,omitempty"`
	Status      TaskStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	AssigneeID  string     `gorm:"size:36;not null;index" json:"assigneeId"`
	CreatedBy   Role       `gorm:"size:16;not null" json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Task) TableName() string { return "tasks" }
