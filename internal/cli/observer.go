package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"

	"vconv/internal/application/lifecycle"
	"vconv/internal/domain/media"
)

// terminal renders lifecycle events as console lines and signals the end of
// the job on done.
type terminal struct {
	lifecycle.NopObserver

	w    io.Writer
	name string
	size int64
	// midLine is set while the progress line has no trailing newline.
	midLine bool

	once sync.Once
	done chan struct{}
}

func newTerminal(w io.Writer, file media.File) *terminal {
	return &terminal{w: w, name: file.Name, size: file.Size, done: make(chan struct{})}
}

func (t *terminal) OnUploadStart() {
	fmt.Fprintf(t.w, "uploading %s (%s)\n", t.name, humanize.IBytes(uint64(t.size)))
}

func (t *terminal) OnUploadProgress(percent int) {
	sent := uint64(t.size) * uint64(percent) / 100
	fmt.Fprintf(t.w, "\r  %3d%%  %s / %s", percent, humanize.IBytes(sent), humanize.IBytes(uint64(t.size)))
	t.midLine = true
}

func (t *terminal) OnUploadComplete() {
	t.endLine()
	fmt.Fprintln(t.w, "upload complete")
}

func (t *terminal) OnProcessingStart() {
	fmt.Fprintln(t.w, "processing on the server...")
}

func (t *terminal) OnProcessingComplete(string) {
	fmt.Fprintln(t.w, "conversion finished")
	t.finish()
}

func (t *terminal) OnError(*media.Error) {
	t.endLine()
	t.finish()
}

func (t *terminal) OnReset() {
	t.endLine()
	t.finish()
}

func (t *terminal) endLine() {
	if t.midLine {
		fmt.Fprintln(t.w)
		t.midLine = false
	}
}

func (t *terminal) finish() {
	t.once.Do(func() { close(t.done) })
}
