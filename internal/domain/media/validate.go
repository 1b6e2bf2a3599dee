package media

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxFileSize matches the conversion server's upload ceiling.
const DefaultMaxFileSize int64 = 1 << 30

// Limits bounds what the client accepts before any network call.
type Limits struct {
	MaxFileSize int64
}

// Validate checks size first, then type. It performs no I/O.
func Validate(file File, limits Limits) error {
	if file.Size > limits.MaxFileSize {
		return ValidationError(ReasonTooLarge,
			fmt.Sprintf("file is too large, maximum size is %s", humanize.IBytes(uint64(limits.MaxFileSize))))
	}

	if !strings.HasPrefix(strings.ToLower(file.ContentType), "video/") && !IsSupportedVideoExt(file.Ext()) {
		return ValidationError(ReasonWrongType, MsgWrongType)
	}

	return nil
}
