package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vconv/internal/domain/media"
)

const (
	defaultConcurrency = 2
	defaultCleanupAge  = 24 * time.Hour
	recentLimit        = 10
)

var (
	// ErrJobNotFound is returned for ids the registry does not know.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnsupportedType is returned when the upload name has no accepted extension.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Record is the server-side view of one conversion job.
type Record struct {
	ID         string
	InputName  string
	OutputName string
	Status     media.RemoteStatus
	Error      string
	VideoInfo  *media.VideoInfo
	Size       int64
	UploadedAt time.Time
	FinishedAt time.Time
}

// ProcessingTime is the time between upload and completion.
func (r Record) ProcessingTime() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.UploadedAt)
}

// Stats summarizes the registry.
type Stats struct {
	TotalJobs         int     `json:"total_jobs"`
	CompletedJobs     int     `json:"completed_jobs"`
	ErrorJobs         int     `json:"error_jobs"`
	PendingJobs       int     `json:"pending_jobs"`
	TotalSizeMB       float64 `json:"total_size_mb"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
}

// Service accepts uploads and converts them in the background.
type Service struct {
	store     Store
	converter Converter
	logger    *log.Logger
	jobs      *jobRegistry
	slots     chan struct{}
	now       func() time.Time

	cleanupOnce sync.Once
	wg          sync.WaitGroup
}

// NewService creates a conversion service with injected ports.
func NewService(store Store, converter Converter, logger *log.Logger) *Service {
	return &Service{
		store:     store,
		converter: converter,
		logger:    logger,
		jobs:      newJobRegistry(),
		slots:     make(chan struct{}, defaultConcurrency),
		now:       time.Now,
	}
}

// Submit stores the upload under a fresh job id and starts its conversion.
func (s *Service) Submit(ctx context.Context, rawName string, src io.Reader) (Record, error) {
	name, err := media.SanitizeUploadName(rawName)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s", ErrUnsupportedType, rawName)
	}

	id := uuid.NewString()
	path, size, err := s.store.SaveUpload(id, name, src)
	if err != nil {
		return Record{}, fmt.Errorf("save upload: %w", err)
	}

	rec := Record{
		ID:         id,
		InputName:  name,
		Status:     media.RemoteUploaded,
		Size:       size,
		UploadedAt: s.now(),
	}
	s.jobs.Put(rec)
	s.logger.Printf("upload stored: %s (%s)", name, id)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(context.WithoutCancel(ctx), id, path, name)
	}()
	return rec, nil
}

func (s *Service) process(ctx context.Context, id, inputPath, inputName string) {
	s.slots <- struct{}{}
	defer func() { <-s.slots }()
	defer func() {
		if err := s.store.Remove(inputPath); err != nil {
			s.logger.Printf("cleanup %s: %v", inputPath, err)
		}
	}()

	s.jobs.Update(id, func(r *Record) { r.Status = media.RemoteProcessing })

	info, err := s.converter.Probe(ctx, inputPath)
	if err != nil {
		s.fail(id, fmt.Errorf("probe: %w", err))
		return
	}

	outName, outPath, err := s.store.ReserveOutput(inputName)
	if err != nil {
		s.fail(id, err)
		return
	}

	if err := s.converter.Convert(ctx, inputPath, outPath, info); err != nil {
		_ = s.store.Remove(outPath)
		s.fail(id, err)
		return
	}

	finished := s.now()
	s.jobs.Update(id, func(r *Record) {
		r.Status = media.RemoteCompleted
		r.OutputName = outName
		r.VideoInfo = &info
		r.FinishedAt = finished
	})
	s.logger.Printf("conversion finished: %s -> %s", inputName, outName)
}

func (s *Service) fail(id string, err error) {
	s.logger.Printf("conversion failed: %s: %v", id, err)
	finished := s.now()
	s.jobs.Update(id, func(r *Record) {
		r.Status = media.RemoteError
		r.Error = err.Error()
		r.FinishedAt = finished
	})
}

// Status returns the record for id.
func (s *Service) Status(id string) (Record, error) {
	rec, ok := s.jobs.Get(id)
	if !ok {
		return Record{}, ErrJobNotFound
	}
	return rec, nil
}

// Stats aggregates every record currently held.
func (s *Service) Stats() Stats {
	var (
		out       Stats
		totalSize int64
		totalTime time.Duration
	)
	for _, rec := range s.jobs.All() {
		out.TotalJobs++
		totalSize += rec.Size
		switch rec.Status {
		case media.RemoteCompleted:
			out.CompletedJobs++
			totalTime += rec.ProcessingTime()
		case media.RemoteError:
			out.ErrorJobs++
		case media.RemoteUploaded, media.RemoteProcessing:
			out.PendingJobs++
		}
	}
	out.TotalSizeMB = float64(totalSize) / (1024 * 1024)
	if out.CompletedJobs > 0 {
		out.AvgProcessingTime = totalTime.Seconds() / float64(out.CompletedJobs)
	}
	return out
}

// Recent returns the latest completed jobs, newest first.
func (s *Service) Recent() []Record {
	var done []Record
	for _, rec := range s.jobs.All() {
		if rec.Status == media.RemoteCompleted {
			done = append(done, rec)
		}
	}
	sort.Slice(done, func(i, j int) bool {
		return done[i].UploadedAt.After(done[j].UploadedAt)
	})
	if len(done) > recentLimit {
		done = done[:recentLimit]
	}
	return done
}

// Cleanup drops records uploaded more than maxAge ago and reports how many went.
func (s *Service) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = defaultCleanupAge
	}
	return s.jobs.DropBefore(s.now().Add(-maxAge))
}

// StartCleanup periodically drops old records until ctx is done.
func (s *Service) StartCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	s.cleanupOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := s.Cleanup(maxAge); n > 0 {
						s.logger.Printf("dropped %d old job records", n)
					}
				}
			}
		}()
	})
}

// Wait blocks until every started conversion has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*Record
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*Record)}
}

func (j *jobRegistry) Put(rec Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs[rec.ID] = &rec
}

func (j *jobRegistry) Update(id string, fn func(*Record)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec, ok := j.jobs[id]; ok {
		fn(rec)
	}
}

func (j *jobRegistry) Get(id string) (Record, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.jobs[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (j *jobRegistry) All() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, 0, len(j.jobs))
	for _, rec := range j.jobs {
		out = append(out, *rec)
	}
	return out
}

func (j *jobRegistry) DropBefore(cutoff time.Time) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for id, rec := range j.jobs {
		if rec.UploadedAt.Before(cutoff) {
			delete(j.jobs, id)
			n++
		}
	}
	return n
}
