package pkg

import (
	"io"
	"sync/atomic"

	"go.uber.org/multierr"
)

// CombinedWriter copies every write to all of its writers. Unlike io.MultiWriter
// a failing writer does not stop the rest, so logs still reach stdout when the
// log file cannot be written.
type CombinedWriter struct {
	Writers  []io.Writer
	failures atomic.Int64
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{
		Writers: append([]io.Writer(nil), writers...),
	}
}

// Write reports len(p) as long as one writer took the whole of p.
// Errors of the other writers are combined into err.
func (cw *CombinedWriter) Write(p []byte) (int, error) {
	var err error
	ok := 0
	for _, w := range cw.Writers {
		n, werr := w.Write(p)
		if werr == nil && n < len(p) {
			werr = io.ErrShortWrite
		}
		if werr != nil {
			cw.failures.Add(1)
			err = multierr.Append(err, werr)
			continue
		}
		ok++
	}
	if ok == 0 && len(cw.Writers) > 0 {
		return 0, err
	}
	return len(p), err
}

// Failures is the number of failed writes to any of the writers so far.
func (cw *CombinedWriter) Failures() int64 {
	return cw.failures.Load()
}
