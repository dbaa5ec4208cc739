// Package service implements the asynchronous conversion orchestration:
// accept an upload, register a task, run the conversion in the background,
// and expose status and download lookups that never block on the work.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docconverter/engine"
	"docconverter/server/cache"
	"docconverter/server/events"
	"docconverter/server/models"
	"docconverter/server/registry"
	"docconverter/server/store"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrNotPDF          = errors.New("invalid file type, only PDF files are supported")
	ErrTaskNotFound    = registry.ErrTaskNotFound
)

type ConvertService struct {
	registry *registry.Registry
	store    *store.Store
	engine   engine.Engine
	mirror   *cache.StatusMirror
	producer events.Producer
	logger   *zap.Logger

	// Bounds in-flight conversions. Submit itself never blocks on the
	// semaphore; acquisition happens inside the background unit.
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewConvertService(reg *registry.Registry, st *store.Store, eng engine.Engine, concurrency int, logger *zap.Logger) *ConvertService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ConvertService{
		registry: reg,
		store:    st,
		engine:   eng,
		logger:   logger,
		sem:      make(chan struct{}, concurrency),
	}
}

// WithStatusMirror attaches an optional Redis status mirror.
func (s *ConvertService) WithStatusMirror(mirror *cache.StatusMirror) *ConvertService {
	s.mirror = mirror
	return s
}

// WithEventProducer attaches an optional task event publisher.
func (s *ConvertService) WithEventProducer(producer events.Producer) *ConvertService {
	s.producer = producer
	return s
}

// Submit validates and stages the upload, registers a processing task, and
// starts the conversion in the background. It returns as soon as the bytes
// are persisted; the caller polls Status for the outcome.
func (s *ConvertService) Submit(ctx context.Context, data []byte, originalFilename, lang string, dpi int) (string, error) {
	filename, err := sanitizeFilename(originalFilename)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return "", ErrNotPDF
	}

	taskID := uuid.New().String()

	uploadPath, err := s.store.SaveUpload(taskID, filename, data)
	if err != nil {
		return "", err
	}

	if _, err := s.registry.Create(taskID, filename, lang, dpi); err != nil {
		s.store.RemoveUpload(uploadPath)
		return "", err
	}

	s.publish(ctx, taskID, models.StatusProcessing, "", "")

	s.logger.Info("Conversion task registered",
		zap.String("task_id", taskID),
		zap.String("filename", filename),
		zap.String("lang", lang),
		zap.Int("dpi", dpi),
	)

	outputFilename := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".docx"

	s.wg.Add(1)
	go s.convert(taskID, uploadPath, outputFilename, lang, dpi)

	return taskID, nil
}

// convert is the background unit that owns the task's terminal transition.
// Engine errors are captured into the task record and never escape.
func (s *ConvertService) convert(taskID, uploadPath, outputFilename, lang string, dpi int) {
	defer s.wg.Done()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	// The request context is gone by now; the conversion runs detached.
	ctx := context.Background()

	// The engine writes into the staging area; only finished artifacts
	// enter the download store.
	stagedOutput := strings.TrimSuffix(uploadPath, filepath.Ext(uploadPath)) + ".docx"

	if err := s.engine.Convert(ctx, uploadPath, stagedOutput, lang, dpi); err != nil {
		s.fail(ctx, taskID, err)
		return
	}

	data, err := os.ReadFile(stagedOutput)
	if err != nil {
		s.fail(ctx, taskID, fmt.Errorf("read converted output: %w", err))
		return
	}

	storedName, err := s.store.Put(taskID, outputFilename, data)
	if err != nil {
		s.fail(ctx, taskID, err)
		return
	}

	downloadURL := "/download/" + storedName
	if err := s.registry.Complete(taskID, downloadURL, outputFilename); err != nil {
		s.logger.Error("Failed to record task completion",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		return
	}

	s.store.RemoveUpload(uploadPath)
	s.store.RemoveUpload(stagedOutput)
	s.publish(ctx, taskID, models.StatusCompleted, outputFilename, "")

	s.logger.Info("Conversion completed",
		zap.String("task_id", taskID),
		zap.String("output", storedName),
	)
}

func (s *ConvertService) fail(ctx context.Context, taskID string, cause error) {
	s.logger.Error("Conversion failed",
		zap.String("task_id", taskID),
		zap.Error(cause),
	)
	if err := s.registry.Fail(taskID, cause.Error()); err != nil {
		s.logger.Error("Failed to record task failure",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
	s.publish(ctx, taskID, models.StatusFailed, "", cause.Error())
}

// Status is a pure read of the registry entry.
func (s *ConvertService) Status(taskID string) (*models.Task, error) {
	return s.registry.Get(taskID)
}

// Download resolves a stored artifact by task-ID prefix. Not-found covers
// unknown tasks, tasks still processing, and failed tasks alike.
func (s *ConvertService) Download(prefix string) (string, []byte, error) {
	return s.store.Resolve(prefix)
}

// Wait blocks until all in-flight conversions finish. Used by shutdown
// and by tests.
func (s *ConvertService) Wait() {
	s.wg.Wait()
}

func (s *ConvertService) publish(ctx context.Context, taskID string, status models.TaskStatus, outputFilename, errMsg string) {
	if err := s.mirror.Set(ctx, taskID, status); err != nil {
		s.logger.Warn("Status mirror update failed",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}

	if s.producer == nil {
		return
	}
	event := &events.TaskEvent{
		TaskID:         taskID,
		Status:         string(status),
		OutputFilename: outputFilename,
		Error:          errMsg,
	}
	if err := s.producer.PublishTaskEvent(event); err != nil {
		s.logger.Warn("Task event publish failed",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
}

// sanitizeFilename reduces an uploaded name to a safe base name: path
// separators and traversal are rejected via Base, and characters outside
// a conservative allow-list are replaced.
func sanitizeFilename(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrInvalidFilename
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := b.String()
	if strings.Trim(cleaned, "._") == "" {
		return "", ErrInvalidFilename
	}
	return cleaned, nil
}
