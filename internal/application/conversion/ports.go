package conversion

import (
	"context"
	"io"

	"vconv/internal/domain/media"
)

// Store is an application port for upload and render file management.
type Store interface {
	SaveUpload(jobID, name string, src io.Reader) (path string, size int64, err error)
	ReserveOutput(inputName string) (name, path string, err error)
	Remove(path string) error
}

// Converter is an application port for probing and converting an uploaded video.
type Converter interface {
	Probe(ctx context.Context, inputPath string) (media.VideoInfo, error)
	Convert(ctx context.Context, inputPath, outputPath string, info media.VideoInfo) error
}
