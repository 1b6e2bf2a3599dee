package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"vconv/internal/domain/media"
)

const maxOutputAttempts = 10000

// Store manages uploaded sources and rendered outputs.
type Store struct {
	UploadDir string
	RenderDir string
}

// NewStore creates filesystem adapter with configured roots.
func NewStore(uploadDir, renderDir string) *Store {
	return &Store{UploadDir: uploadDir, RenderDir: renderDir}
}

// EnsureDirs creates filesystem roots used by service.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(s.RenderDir, 0o755)
}

// SaveUpload writes src to "{jobID}_{name}" in the upload directory.
func (s *Store) SaveUpload(jobID, name string, src io.Reader) (string, int64, error) {
	full := filepath.Join(s.UploadDir, jobID+"_"+filepath.Base(name))
	if !isWithinDir(s.UploadDir, full) {
		return "", 0, errors.New("invalid file path")
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, err
	}
	return full, n, nil
}

// ReserveOutput claims "{base}_convert.mp4" in the render directory, or the
// first free "{base}_convert_{n}.mp4" when that name is taken.
func (s *Store) ReserveOutput(inputName string) (string, string, error) {
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	for n := 0; n < maxOutputAttempts; n++ {
		name := base + "_convert.mp4"
		if n > 0 {
			name = fmt.Sprintf("%s_convert_%d.mp4", base, n)
		}
		full := filepath.Join(s.RenderDir, name)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", err
		}
		_ = f.Close()
		return name, full, nil
	}
	return "", "", fmt.Errorf("no free output name for %s", inputName)
}

// RenderPath resolves a rendered file name, refusing anything outside the render directory.
func (s *Store) RenderPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", errors.New("invalid file path")
	}
	full := filepath.Join(s.RenderDir, name)
	if !isWithinDir(s.RenderDir, full) {
		return "", errors.New("invalid file path")
	}
	return full, nil
}

// Remove deletes path, ignoring files that are already gone.
func (s *Store) Remove(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// OpenLocal describes a file on disk as an upload candidate.
func OpenLocal(path string) (media.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return media.File{}, err
	}
	if info.IsDir() {
		return media.File{}, fmt.Errorf("%s is a directory", path)
	}

	return media.File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: detectContentType(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func detectContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	if n == 0 {
		return ""
	}
	ct := http.DetectContentType(head[:n])
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

// CopyConverter satisfies the conversion port without transcoding: it copies
// the source to the output path and reports no stream details.
type CopyConverter struct{}

func (CopyConverter) Probe(ctx context.Context, inputPath string) (media.VideoInfo, error) {
	if err := ctx.Err(); err != nil {
		return media.VideoInfo{}, err
	}
	if _, err := os.Stat(inputPath); err != nil {
		return media.VideoInfo{}, err
	}
	return media.VideoInfo{}, nil
}

func (CopyConverter) Convert(ctx context.Context, inputPath, outputPath string, _ media.VideoInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func isWithinDir(basePath, targetPath string) bool {
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	sep := string(os.PathSeparator)
	if rel == ".." || strings.HasPrefix(rel, ".."+sep) {
		return false
	}
	return true
}
