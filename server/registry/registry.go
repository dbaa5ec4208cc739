// Package registry keeps the in-memory task table. Tasks live only for the
// lifetime of the process; each entry is written by the single background
// worker that owns it and read by arbitrarily many status pollers.
package registry

import (
	"errors"
	"sync"
	"time"

	"docconverter/server/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTerminalTask = errors.New("task already in terminal state")
)

type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

func New() *Registry {
	return &Registry{
		tasks: make(map[string]*models.Task),
	}
}

// Create registers a new task in processing state. Task IDs are generated
// by the caller and never reused, so an existing entry is a caller bug.
func (r *Registry) Create(id, originalFilename, lang string, dpi int) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[id]; exists {
		return nil, errors.New("task id already registered")
	}

	task := &models.Task{
		ID:               id,
		OriginalFilename: originalFilename,
		OCRLang:          lang,
		DPI:              dpi,
		Status:           models.StatusProcessing,
		Progress:         0,
		CreatedAt:        time.Now(),
	}
	r.tasks[id] = task

	copied := *task
	return &copied, nil
}

// Get returns a copy of the task entry; the registry retains ownership of
// the stored record.
func (r *Registry) Get(id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	copied := *task
	return &copied, nil
}

// Complete transitions a task to completed with its download location.
func (r *Registry) Complete(id, downloadURL, outputFilename string) error {
	return r.transition(id, func(task *models.Task) {
		task.Status = models.StatusCompleted
		task.DownloadURL = downloadURL
		task.OutputFilename = outputFilename
	})
}

// Fail transitions a task to failed with the captured message.
func (r *Registry) Fail(id, message string) error {
	return r.transition(id, func(task *models.Task) {
		task.Status = models.StatusFailed
		task.ErrorMessage = message
	})
}

func (r *Registry) transition(id string, mutate func(*models.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return ErrTerminalTask
	}

	mutate(task)
	task.Progress = 100
	now := time.Now()
	task.CompletedAt = &now
	return nil
}

// Len reports the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
