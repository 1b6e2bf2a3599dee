package lifecycle

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"vconv/internal/domain/media"
)

const defaultPollInterval = 2 * time.Second

var (
	// ErrJobActive is returned by Start when the current job has already left Idle.
	ErrJobActive = errors.New("job already started")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	Limits       media.Limits
	PollInterval time.Duration
	Logger       *log.Logger
	Now          func() time.Time
}

// Controller owns one job at a time: it validates the file, drives the upload,
// polls the conversion status and reports every transition to its observer.
type Controller struct {
	transport    Transport
	scheduler    Scheduler
	limits       media.Limits
	pollInterval time.Duration
	logger       *log.Logger
	now          func() time.Time

	mu         sync.Mutex
	job        media.Job
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	observer   Observer
	closed     bool

	events *dispatcher
}

// New creates an idle controller with injected transport and scheduler.
func New(transport Transport, scheduler Scheduler, opts Options) *Controller {
	if opts.Limits.MaxFileSize <= 0 {
		opts.Limits.MaxFileSize = media.DefaultMaxFileSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		transport:    transport,
		scheduler:    scheduler,
		limits:       opts.Limits,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
		now:          opts.Now,
		job:          media.Job{Status: media.StatusIdle},
		observer:     NopObserver{},
		events:       newDispatcher(),
	}
}

// Observe registers the observer. Call it before the first Start.
func (c *Controller) Observe(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// Job returns a snapshot of the current job.
func (c *Controller) Job() media.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job
}

// SetFile validates file and attaches it as a new job. A rejected file leaves the
// controller untouched. An accepted file abandons any previous job first.
func (c *Controller) SetFile(file media.File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if err := media.Validate(file, c.limits); err != nil {
		var verr *media.Error
		if errors.As(err, &verr) {
			c.emitError(verr)
		}
		return err
	}

	if c.job.Status != media.StatusIdle {
		c.invalidateLocked()
		c.emit(func(o Observer) { o.OnReset() })
	}

	f := file
	c.job = media.Job{Status: media.StatusIdle, File: &f}
	return nil
}

// Start uploads the attached file. Without a file it reports a validation error
// and makes no network call.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.job.Status != media.StatusIdle {
		return ErrJobActive
	}
	if c.job.File == nil {
		err := media.ValidationError(media.ReasonNoFile, media.MsgNoFile)
		c.emitError(err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = ctx, cancel
	c.generation++
	gen := c.generation
	file := *c.job.File

	c.job.Status = media.StatusUploading
	c.job.Progress = 0
	c.job.StartedAt = c.now()
	c.emit(func(o Observer) { o.OnUploadStart() })
	c.logger.Printf("upload started: %s", file.Name)

	go c.upload(ctx, gen, file)
	return nil
}

// Reset abandons the current job from any state and returns to Idle.
// Responses still in flight for the abandoned job are discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked()
	c.job = media.Job{Status: media.StatusIdle}
	c.emit(func(o Observer) { o.OnReset() })
}

// Close abandons the current job, delivers pending events and stops the
// dispatcher. It must not be called from an observer hook.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.invalidateLocked()
	c.closed = true
	c.mu.Unlock()

	c.events.close()
	return nil
}

func (c *Controller) upload(ctx context.Context, gen uint64, file media.File) {
	jobID, err := c.transport.Upload(ctx, file, func(percent int) {
		c.uploadProgress(gen, percent)
	})
	c.uploadFinished(gen, jobID, err)
}

func (c *Controller) uploadProgress(gen uint64, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.job.Status != media.StatusUploading {
		return
	}
	if percent <= c.job.Progress {
		return
	}
	c.job.Progress = percent
	c.emit(func(o Observer) { o.OnUploadProgress(percent) })
}

func (c *Controller) uploadFinished(gen uint64, jobID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.job.Status != media.StatusUploading {
		c.logger.Printf("discarding stale upload result")
		return
	}

	if err == nil && jobID == "" {
		err = media.NewError(media.KindProtocol, media.MsgBadResponse)
	}
	if err != nil {
		c.failLocked(asMediaError(err, media.MsgNetwork))
		return
	}

	c.job.ID = jobID
	c.job.Status = media.StatusUploaded
	c.job.Progress = 100
	c.emit(func(o Observer) { o.OnUploadComplete() })
	c.emit(func(o Observer) { o.OnProcessingStart() })
	c.logger.Printf("job %s: uploaded, polling every %s", jobID, c.pollInterval)

	c.scheduler.Start(func() { c.poll(gen) }, c.pollInterval)
}

func (c *Controller) poll(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || !c.job.Status.Polling() {
		c.mu.Unlock()
		return
	}
	jobID := c.job.ID
	ctx := c.ctx
	c.mu.Unlock()

	go func() {
		record, err := c.transport.CheckStatus(ctx, jobID)
		c.statusReceived(gen, jobID, record, err)
	}()
}

func (c *Controller) statusReceived(gen uint64, jobID string, record media.StatusRecord, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || jobID != c.job.ID || !c.job.Status.Polling() {
		return
	}

	if err != nil {
		c.failLocked(asMediaError(err, media.MsgStatusFailed))
		return
	}

	switch record.Status {
	case media.RemoteUploaded, media.RemoteProcessing:
		c.job.Status = media.StatusProcessing

	case media.RemoteCompleted:
		c.scheduler.Stop()
		c.releaseLocked()
		c.job.Status = media.StatusCompleted
		c.job.DownloadURL = record.DownloadURL
		c.job.VideoInfo = record.VideoInfo
		c.job.FinishedAt = c.now()
		url := record.DownloadURL
		c.emit(func(o Observer) { o.OnProcessingComplete(url) })
		c.logger.Printf("job %s: completed", jobID)

	case media.RemoteError:
		c.failLocked(media.ServerError(record.Error, media.MsgConversion))

	default:
		c.failLocked(media.NewError(media.KindProtocol, media.MsgUnknownStatus))
	}
}

// failLocked stops polling, records err and queues OnError.
func (c *Controller) failLocked(err *media.Error) {
	c.scheduler.Stop()
	c.releaseLocked()
	c.job.Status = media.StatusFailed
	c.job.LastError = err
	c.job.DownloadURL = ""
	c.job.FinishedAt = c.now()
	c.emitError(err)
	if c.job.ID != "" {
		c.logger.Printf("job %s: failed: %s", c.job.ID, err.Detail())
	} else {
		c.logger.Printf("upload failed: %s", err.Detail())
	}
}

// invalidateLocked stops the timer, aborts requests and bumps the generation so
// that any result still in flight no longer matches.
func (c *Controller) invalidateLocked() {
	c.scheduler.Stop()
	c.releaseLocked()
	c.generation++
}

func (c *Controller) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = nil, nil
}

func (c *Controller) emitError(err *media.Error) {
	c.emit(func(o Observer) { o.OnError(err) })
}

// emit queues fn against the observer registered at the time of the transition.
func (c *Controller) emit(fn func(Observer)) {
	obs := c.observer
	c.events.push(func() { fn(obs) })
}

func asMediaError(err error, fallback string) *media.Error {
	var merr *media.Error
	if errors.As(err, &merr) {
		return merr
	}
	if errors.Is(err, context.Canceled) {
		return &media.Error{Kind: media.KindNetwork, Reason: media.ReasonAborted, Message: media.MsgUploadAborted, Err: err}
	}
	return media.Wrap(media.KindNetwork, fallback, err)
}
