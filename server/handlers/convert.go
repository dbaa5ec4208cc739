package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"docconverter/server/dto"
	"docconverter/server/middleware"
	"docconverter/server/models"
	"docconverter/server/multipart"
	"docconverter/server/service"
)

const (
	defaultOCRLang = "eng"
	defaultDPI     = 300

	fileField = "pdf_file"
	langField = "ocr_lang"
	dpiField  = "dpi"

	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Service is the slice of the conversion service the handlers need;
// implemented by *service.ConvertService and by test fakes.
type Service interface {
	Submit(ctx context.Context, data []byte, originalFilename, lang string, dpi int) (string, error)
	Status(taskID string) (*models.Task, error)
	Download(prefix string) (string, []byte, error)
}

type ConvertHandler struct {
	service       Service
	parser        *multipart.Parser
	maxUploadSize int64
	logger        *zap.Logger
}

func NewConvertHandler(svc Service, maxUploadSize int64, logger *zap.Logger) *ConvertHandler {
	return &ConvertHandler{
		service:       svc,
		parser:        multipart.NewParser(logger),
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

func (h *ConvertHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /api/status", h.APIStatus)
	mux.HandleFunc("POST /api/convert", h.Convert)
	mux.HandleFunc("GET /api/tasks/{id}", h.TaskStatus)
	mux.HandleFunc("GET /download/{name}", h.Download)
}

func (h *ConvertHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, indexPage)
}

func (h *ConvertHandler) APIStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}

func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	boundary, err := multipart.ExtractBoundary(r.Header.Get("Content-Type"))
	if err != nil {
		h.handleError(w, "Invalid content type", err, traceID, http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadSize))
	if err != nil {
		h.handleError(w, "Failed to read request body", err, traceID, http.StatusBadRequest)
		return
	}

	parts, err := h.parser.Parse(body, boundary)
	if err != nil {
		h.handleError(w, "Failed to parse form data", err, traceID, http.StatusBadRequest)
		return
	}

	form := multipart.NewForm(parts)
	file, err := form.File()
	if err != nil {
		h.handleError(w, "No PDF file uploaded", err, traceID, http.StatusBadRequest)
		return
	}

	lang := form.Value(langField, defaultOCRLang)
	dpi := defaultDPI
	if raw := form.Value(dpiField, ""); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			dpi = parsed
		}
	}

	taskID, err := h.service.Submit(r.Context(), file.Content, file.Filename, lang, dpi)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotPDF), errors.Is(err, service.ErrInvalidFilename):
			h.handleError(w, "Invalid file type. Only PDF files are supported.", err, traceID, http.StatusBadRequest)
		default:
			h.handleError(w, "Failed to start conversion", err, traceID, http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("Conversion accepted",
		zap.String("trace_id", traceID),
		zap.String("task_id", taskID),
		zap.String("filename", file.Filename),
	)

	h.respondJSON(w, http.StatusAccepted, dto.ConvertResponse{
		TaskID:  taskID,
		Status:  string(models.StatusProcessing),
		Message: "Conversion started",
	})
}

func (h *ConvertHandler) TaskStatus(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := r.PathValue("id")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	task, err := h.service.Status(taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *ConvertHandler) Download(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	name := r.PathValue("name")
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		h.handleError(w, "File not found", nil, traceID, http.StatusNotFound)
		return
	}

	storedName, data, err := h.service.Download(name)
	if err != nil {
		h.handleError(w, "File not found", err, traceID, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+storedName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func toTaskResponse(task *models.Task) dto.TaskResponse {
	var completedAt *string
	if task.CompletedAt != nil {
		formatted := task.CompletedAt.UTC().Format("2006-01-02T15:04:05Z")
		completedAt = &formatted
	}

	return dto.TaskResponse{
		ID:             task.ID,
		Status:         string(task.Status),
		Progress:       task.Progress,
		ErrorMessage:   task.ErrorMessage,
		DownloadURL:    task.DownloadURL,
		OutputFilename: task.OutputFilename,
		CreatedAt:      task.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		CompletedAt:    completedAt,
	}
}

func (h *ConvertHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *ConvertHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>PDF to Word OCR Converter</title></head>
<body>
<h1>PDF to Word OCR Converter</h1>
<p>POST a PDF to /api/convert (multipart field "pdf_file"), poll /api/tasks/{id}, then fetch the download link.</p>
</body>
</html>
`
