package media

import (
	"io"
	"path"
	"strings"
)

// File describes a local asset selected for upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Ext returns the lower-cased extension without the leading dot.
func (f File) Ext() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(f.Name)), ".")
}

// VideoInfo is the metadata a server may attach to a status record.
type VideoInfo struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Duration   float64 `json:"duration"`
	IsVertical bool    `json:"is_vertical"`
	HasAudio   bool    `json:"has_audio"`
}
