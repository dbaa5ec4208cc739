package models

import (
	"time"
)

type TaskStatus string

const (
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether a status can never change again.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Task struct {
	ID               string
	OriginalFilename string
	OCRLang          string
	DPI              int
	Status           TaskStatus
	Progress         int
	ErrorMessage     string
	DownloadURL      string
	OutputFilename   string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}
