package media

import "time"

// JobStatus describes where a client-side job is in its lifecycle.
type JobStatus string

const (
	StatusIdle       JobStatus = "idle"
	StatusUploading  JobStatus = "uploading"
	StatusUploaded   JobStatus = "uploaded"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further automatic transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Polling reports whether a status timer must be running in s.
func (s JobStatus) Polling() bool {
	return s == StatusUploaded || s == StatusProcessing
}

// Job is the single upload-and-convert request owned by a controller.
type Job struct {
	File        *File
	ID          string
	Status      JobStatus
	Progress    int
	DownloadURL string
	VideoInfo   *VideoInfo
	LastError   *Error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// HasFile reports whether an asset is attached.
func (j Job) HasFile() bool {
	return j.File != nil
}
