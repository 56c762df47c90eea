package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Largest PDF accepted by /compute
const MaxUploadBytes = 256 << 20

// Form fields that may carry the PDF
var uploadFields = []string{"pdf", "PDF", "file"}

type Handler struct {
	queue      *Queue
	descriptor Descriptor
}

func New(queue *Queue, descriptor Descriptor) *Handler {
	return &Handler{
		queue:      queue,
		descriptor: descriptor,
	}
}

// Router returns the full HTTP API, with CORS open to every origin
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	h.Attach(r)
	return r
}

func (h *Handler) Attach(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/status", h.handleStatus)

	r.Post("/compute", h.handleCompute)
	r.Get("/tasks/{id}/status", h.handleTaskStatus)
	r.Get("/tasks/{id}/result", h.handleTaskResult)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/status", http.StatusMovedPermanently)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJson(w, StatusResponse{
		Service: h.descriptor,
		Tasks:   h.queue.Stats(),
	})
}

func (h *Handler) handleCompute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	pdf, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("Invalid request: %w", err))
		return
	}

	task, err := h.queue.Submit(r.Context(), pdf)
	if errors.Is(err, ErrCapacityExceeded) {
		writeError(w, http.StatusServiceUnavailable, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJson(w, task)
}

func (h *Handler) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := h.queue.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, errors.New("Task not found"))
		return
	}
	writeJson(w, task)
}

func (h *Handler) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, err := h.queue.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, errors.New("Task not found"))
		return
	}
	switch task.Status {
	case StatusCompleted:
		w.Header().Set("Content-Type", MimePDF)
		w.Header().Set("Content-Disposition", `attachment; filename="corrected.pdf"`)
		w.Write(task.Result.CorrectedPDF.Data)
	case StatusError:
		writeError(w, http.StatusUnprocessableEntity, errors.New(task.Error))
	default:
		writeError(w, http.StatusConflict, fmt.Errorf("Task is %v", task.Status))
	}
}

// readUpload finds the PDF in a multipart form, or takes the raw body if it is sent as application/pdf
func readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var data []byte
	var err error
	if mediaType == MimePDF {
		data, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
	} else {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
		for _, field := range uploadFields {
			file, _, ferr := r.FormFile(field)
			if ferr != nil {
				continue
			}
			data, err = io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, err
			}
			break
		}
		if data == nil {
			return nil, errors.New("the request must include a 'PDF' field with a PDF file")
		}
	}

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("the uploaded file is not a PDF")
	}
	return data, nil
}

func writeJson(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.WriteHeader(code)

	text := http.StatusText(code)

	if err != nil {
		text = err.Error()
	}

	w.Write([]byte(text))
}
