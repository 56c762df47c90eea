package service

import (
	"time"

	"github.com/bmharper/pdfdeskew"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// Returns true once the task will not change any more
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusError
}

const MimePDF = "application/pdf"

// TaskData is a file produced by a task. Data is base64 in JSON.
type TaskData struct {
	Data []byte `json:"data"`
	Type string `json:"type"`
}

type Result struct {
	CorrectedPDF TaskData                `json:"corrected_pdf"`
	Report       []pdfdeskew.PageReport `json:"report"`
}

// Task is a snapshot of one submitted document
type Task struct {
	ID       string    `json:"task_id"`
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Result   *Result   `json:"result,omitempty"`
	Created  time.Time `json:"created_at"`
	Finished time.Time `json:"finished_at,omitzero"`
}

type FieldDescription struct {
	Name string   `json:"name"`
	Type []string `json:"type"`
}

type Tag struct {
	Name    string `json:"name"`
	Acronym string `json:"acronym"`
}

// Descriptor is what the service announces to an engine
type Descriptor struct {
	Name          string             `json:"name"`
	Slug          string             `json:"slug"`
	URL           string             `json:"url"`
	Summary       string             `json:"summary"`
	Description   string             `json:"description"`
	Status        string             `json:"status"`
	DataInFields  []FieldDescription `json:"data_in_fields"`
	DataOutFields []FieldDescription `json:"data_out_fields"`
	Tags          []Tag              `json:"tags"`
	HasAI         bool               `json:"has_ai"`
}

// NewDescriptor describes the PDF orientation correction service, reachable at url
func NewDescriptor(url string) Descriptor {
	return Descriptor{
		Name:    "PDF Orientation Correction",
		Slug:    "pdf-orientation-correction",
		URL:     url,
		Summary: "Corrects the orientation and skew of scanned documents in a PDF.",
		Description: "Detects and corrects the orientation and skew of every page in a PDF. " +
			"It outputs a new PDF with all pages upright and deskewed.",
		Status:        "available",
		DataInFields:  []FieldDescription{{Name: "PDF", Type: []string{MimePDF}}},
		DataOutFields: []FieldDescription{{Name: "corrected_pdf", Type: []string{MimePDF}}},
		Tags:          []Tag{{Name: "Document Processing", Acronym: "DP"}},
		HasAI:         false,
	}
}

// QueueStats is the occupancy of the task queue
type QueueStats struct {
	Pending  int `json:"pending"`
	Running  int `json:"running"`
	Finished int `json:"finished"`
	Capacity int `json:"capacity"`
}

type StatusResponse struct {
	Service Descriptor `json:"service"`
	Tasks   QueueStats `json:"tasks"`
}
