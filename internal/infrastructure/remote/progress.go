package remote

import (
	"io"
	"math"
	"sync"
)

// progressReader reports how much of the file has been handed to the request
// body as a whole percentage. Reports stop once finish is called.
type progressReader struct {
	r     io.Reader
	total int64

	mu       sync.Mutex
	read     int64
	last     int
	done     bool
	callback func(percent int)
}

func newProgressReader(r io.Reader, total int64, callback func(percent int)) *progressReader {
	return &progressReader{r: r, total: total, last: -1, callback: callback}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.read += int64(n)
		p.reportLocked(p.percentLocked())
		p.mu.Unlock()
	}
	return n, err
}

// complete reports 100 if the body finished without an exact final report.
func (p *progressReader) complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reportLocked(100)
}

func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = true
}

func (p *progressReader) percentLocked() int {
	if p.total <= 0 {
		return 0
	}
	percent := int(math.Round(float64(p.read) * 100 / float64(p.total)))
	if percent > 100 {
		percent = 100
	}
	return percent
}

func (p *progressReader) reportLocked(percent int) {
	if p.done || p.callback == nil || percent <= p.last {
		return
	}
	p.last = percent
	p.callback(percent)
}
