package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"vconv/internal/application/conversion"
	"vconv/internal/domain/media"
)

const (
	defaultMaxUpload  = 1 << 30
	defaultStatusRate = 20
	downloadPrefix    = "/download/"
)

type conversionUseCases interface {
	Submit(ctx context.Context, name string, src io.Reader) (conversion.Record, error)
	Status(id string) (conversion.Record, error)
	Stats() conversion.Stats
	Recent() []conversion.Record
}

type renderStore interface {
	RenderPath(name string) (string, error)
}

// Options bounds what the handlers accept.
type Options struct {
	MaxUploadBytes int64
	// StatusRate is the number of status requests per second served before 429.
	StatusRate int
	Logger     *log.Logger
}

type Handler struct {
	conversions conversionUseCases
	store       renderStore
	maxUpload   int64
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewHandler wires HTTP handlers with application use cases.
func NewHandler(conversions conversionUseCases, store renderStore, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	if opts.StatusRate <= 0 {
		opts.StatusRate = defaultStatusRate
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Handler{
		conversions: conversions,
		store:       store,
		maxUpload:   opts.MaxUploadBytes,
		limiter:     rate.NewLimiter(rate.Limit(opts.StatusRate), opts.StatusRate*2),
		logger:      opts.Logger,
	}
}

type statusResponse struct {
	Status         media.RemoteStatus `json:"status"`
	InputFilename  string             `json:"input_filename,omitempty"`
	FileSize       int64              `json:"file_size"`
	UploadTime     float64            `json:"upload_time"`
	OutputFilename string             `json:"output_filename,omitempty"`
	DownloadURL    string             `json:"download_url,omitempty"`
	Error          string             `json:"error,omitempty"`
	VideoInfo      *media.VideoInfo   `json:"video_info,omitempty"`
	ProcessingTime float64            `json:"processing_time,omitempty"`
}

type recentResponse struct {
	JobID          string  `json:"job_id"`
	Filename       string  `json:"filename"`
	OutputFilename string  `json:"output_filename"`
	Timestamp      float64 `json:"timestamp"`
}

// Upload handles POST /upload: one multipart "file" field, converted in the background.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file in request")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "no file in request")
			return
		}
		if err != nil {
			h.uploadFailed(w, err)
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		name := part.FileName()
		if name == "" {
			writeError(w, http.StatusBadRequest, "no file selected")
			return
		}
		if !media.IsAcceptedUploadExt(path.Ext(name)) {
			writeError(w, http.StatusBadRequest, "unsupported file type")
			return
		}

		rec, err := h.conversions.Submit(r.Context(), name, part)
		if err != nil {
			h.uploadFailed(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"job_id": rec.ID,
			"status": string(rec.Status),
		})
		return
	}
}

func (h *Handler) uploadFailed(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
	case errors.Is(err, conversion.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "unsupported file type")
	default:
		h.logger.Printf("upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Status handles GET /status/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	rec, err := h.conversions.Status(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	resp := statusResponse{
		Status:         rec.Status,
		InputFilename:  rec.InputName,
		FileSize:       rec.Size,
		UploadTime:     unixSeconds(rec),
		OutputFilename: rec.OutputName,
		Error:          rec.Error,
		VideoInfo:      rec.VideoInfo,
	}
	if rec.Status == media.RemoteCompleted {
		resp.DownloadURL = downloadPrefix + url.PathEscape(rec.OutputName)
		resp.ProcessingTime = rec.ProcessingTime().Seconds()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /download/{filename}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	full, err := h.store.RenderPath(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	serveAttachment(w, r, full, name)
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.conversions.Stats())
}

// Recent handles GET /api/video/recent.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	records := h.conversions.Recent()
	resp := make([]recentResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, recentResponse{
			JobID:          rec.ID,
			Filename:       rec.InputName,
			OutputFilename: rec.OutputName,
			Timestamp:      unixSeconds(rec),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func unixSeconds(rec conversion.Record) float64 {
	if rec.UploadedAt.IsZero() {
		return 0
	}
	return float64(rec.UploadedAt.UnixMilli()) / 1000
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
