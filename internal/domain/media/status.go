package media

import (
	"encoding/json"
	"strings"
)

// RemoteStatus is the server-side job state reported by the status endpoint.
type RemoteStatus string

const (
	RemoteUploaded   RemoteStatus = "uploaded"
	RemoteProcessing RemoteStatus = "processing"
	RemoteCompleted  RemoteStatus = "completed"
	RemoteError      RemoteStatus = "error"
)

// Known reports whether s is part of the status protocol.
func (s RemoteStatus) Known() bool {
	switch s {
	case RemoteUploaded, RemoteProcessing, RemoteCompleted, RemoteError:
		return true
	default:
		return false
	}
}

// StatusRecord is a validated status response.
type StatusRecord struct {
	Status         RemoteStatus `json:"status"`
	DownloadURL    string       `json:"download_url,omitempty"`
	Error          string       `json:"error,omitempty"`
	VideoInfo      *VideoInfo   `json:"video_info,omitempty"`
	ProcessingTime float64      `json:"processing_time,omitempty"`
}

// ParseStatus decodes and checks a status body. Any shape problem yields a protocol error.
func ParseStatus(body []byte) (StatusRecord, error) {
	var record StatusRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return StatusRecord{}, Wrap(KindProtocol, MsgUnknownStatus, err)
	}

	record.Status = RemoteStatus(strings.TrimSpace(string(record.Status)))
	if !record.Status.Known() {
		return StatusRecord{}, NewError(KindProtocol, MsgUnknownStatus)
	}
	if record.Status == RemoteCompleted && strings.TrimSpace(record.DownloadURL) == "" {
		return StatusRecord{}, NewError(KindProtocol, MsgUnknownStatus)
	}

	return record, nil
}
