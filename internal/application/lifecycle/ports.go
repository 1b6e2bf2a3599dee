package lifecycle

import (
	"context"
	"time"

	"vconv/internal/domain/media"
)

// Transport is the application port for the conversion service's HTTP contract.
type Transport interface {
	// Upload sends file and returns the server-assigned job id. onProgress receives
	// non-decreasing percentages and is never called after Upload returns.
	Upload(ctx context.Context, file media.File, onProgress func(percent int)) (string, error)
	CheckStatus(ctx context.Context, jobID string) (media.StatusRecord, error)
}

// Scheduler is the application port for the repeating status timer.
type Scheduler interface {
	Start(callback func(), interval time.Duration)
	Stop()
}
