//go:build !windows

package supervisor

import (
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/dmora/agentprobe/transcript"
)

// outputStream pumps fragments from the child's pipe to the run loop.
// The chunks channel is closed after EOF, a read error, or abandon.
type outputStream struct {
	r         io.ReadCloser
	size      int
	chunks    chan transcript.Fragment
	err       error // read error; valid after chunks is closed
	abandoned atomic.Bool
}

func newOutputStream(r io.ReadCloser, size int) *outputStream {
	s := &outputStream{
		r:      r,
		size:   size,
		chunks: make(chan transcript.Fragment, 16),
	}
	go s.pump()
	return s
}

func (s *outputStream) pump() {
	defer close(s.chunks)
	defer s.r.Close()

	buf := make([]byte, s.size)
	for {
		n, err := s.r.Read(buf)
		if n > 0 {
			s.chunks <- transcript.Fragment{Text: string(buf[:n]), At: time.Now()}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.abandoned.Load() {
				s.err = err
			}
			return
		}
	}
}

// abandon stops reading by closing the pipe under the pump. Whatever a
// lingering descendant writes afterwards is discarded.
func (s *outputStream) abandon() {
	if s.abandoned.CompareAndSwap(false, true) {
		_ = s.r.Close()
	}
}
