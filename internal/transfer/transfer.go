// Package transfer implements the transfer engine: a single recycled
// buffer moved between one input descriptor and standard output under
// readiness multiplexing, rate-limit clamping, and buffer compaction.
// It is deliberately built on raw descriptors and golang.org/x/sys/unix
// rather than os.File: the select-with-timeout readiness wait has to be
// explicit and observable, not hidden inside the runtime's netpoller.
package transfer

import (
	"bytes"
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

const (
	readinessTimeout = 90 * time.Millisecond
	transientPause   = 10 * time.Millisecond
	writeDeadline    = 1 * time.Second
)

// Buffer is the single contiguous transfer buffer. filled is the number
// of bytes present (0..len(data)); consumed is the number already
// written out (<=filled).
type Buffer struct {
	data     []byte
	filled   int
	consumed int
}

// Engine owns the transfer buffer for the entire run, recycled across
// every input source in turn.
type Engine struct {
	buf           *Buffer
	lastLineCount int
}

// New returns an idle engine; the buffer is allocated lazily on the
// first Transfer call.
func New() *Engine {
	return &Engine{}
}

// Free releases the transfer buffer and resets its indices.
func (e *Engine) Free() {
	e.buf = nil
	e.lastLineCount = 0
}

// LastLineCount returns the number of newline bytes written to outFD
// during the most recent Transfer call, for line-mode accounting. It
// reflects only the write performed by that call, not a running total.
func (e *Engine) LastLineCount() int {
	return e.lastLineCount
}

// FilledConsumed exposes the buffer's two indices for invariant checks
// and tests: 0 <= consumed <= filled <= buffer size must hold at every
// observable point.
func (e *Engine) FilledConsumed() (filled, consumed int) {
	if e.buf == nil {
		return 0, 0
	}
	return e.buf.filled, e.buf.consumed
}

// Transfer performs one step of the producer/consumer loop: it reads what
// it can from inFD into the buffer, writes what it can (up to allowed
// bytes when rateLimited) to outFD, compacts the buffer, and returns the
// number of bytes written to outFD this call. eofIn/eofOut are updated in
// place. A non-nil error (other than a nil error paired with both EOFs set,
// which signals a clean EPIPE termination) means the run must fail.
func (e *Engine) Transfer(bufferSize int, inFD, outFD int, eofIn, eofOut *bool, allowed int64, rateLimited bool) (int64, error) {
	if e.buf == nil || len(e.buf.data) != bufferSize {
		e.buf = &Buffer{data: make([]byte, bufferSize)}
	}
	buf := e.buf
	e.lastLineCount = 0

	wantRead := !*eofIn && buf.filled < len(buf.data)
	toWrite := int64(buf.filled - buf.consumed)
	wantWrite := !*eofOut && toWrite > 0
	if rateLimited && toWrite > allowed {
		toWrite = allowed
	}
	if toWrite <= 0 {
		wantWrite = false
	}

	if *eofIn && *eofOut {
		return 0, nil
	}

	// When neither descriptor is wanted (rate budget exhausted with a full
	// buffer), the select below runs with empty sets and acts as the 90ms
	// pause; returning early instead would spin the main loop hot until
	// the rate window rolls over.
	ready, err := waitReady(inFD, outFD, wantRead, wantWrite)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}

	var written int64

	if wantRead && ready.readable {
		n, rerr := unix.Read(inFD, buf.data[buf.filled:])
		switch {
		case rerr == nil && n == 0:
			*eofIn = true
			if buf.consumed == buf.filled {
				*eofOut = true
			}
		case rerr == nil:
			buf.filled += n
		case errors.Is(rerr, unix.EINTR) || errors.Is(rerr, unix.EAGAIN):
			time.Sleep(transientPause)
		default:
			*eofIn = true
			if buf.consumed == buf.filled {
				*eofOut = true
			}
			compact(buf)
			return 0, rerr
		}
	}

	if wantWrite && ready.writable && toWrite > 0 {
		end := buf.consumed + int(toWrite)
		if end > buf.filled {
			end = buf.filled
		}
		n, werr := writeWithDeadline(outFD, buf.data[buf.consumed:end])
		switch {
		case werr == nil:
			e.lastLineCount = bytes.Count(buf.data[buf.consumed:buf.consumed+n], []byte{'\n'})
			buf.consumed += n
			written = int64(n)
			if buf.consumed >= buf.filled && *eofIn {
				*eofOut = true
			}
		case errors.Is(werr, unix.EPIPE):
			*eofIn = true
			*eofOut = true
		case errors.Is(werr, unix.EINTR) || errors.Is(werr, unix.EAGAIN):
			time.Sleep(transientPause)
		default:
			*eofOut = true
			compact(buf)
			return 0, werr
		}
	}

	compact(buf)
	return written, nil
}

// compact moves any unwritten residual to the start of the buffer so
// the next read can fill it to capacity.
func compact(buf *Buffer) {
	if buf.consumed == 0 {
		return
	}
	if buf.consumed == buf.filled {
		buf.filled = 0
		buf.consumed = 0
		return
	}
	n := copy(buf.data, buf.data[buf.consumed:buf.filled])
	buf.filled = n
	buf.consumed = 0
}

type readiness struct {
	readable bool
	writable bool
}

// waitReady multiplexes readiness on inFD/outFD with a 90ms timeout
// using unix.Select on raw descriptors.
func waitReady(inFD, outFD int, wantRead, wantWrite bool) (readiness, error) {
	var rfds, wfds unix.FdSet
	maxFD := 0

	if wantRead {
		fdSet(&rfds, inFD)
		if inFD > maxFD {
			maxFD = inFD
		}
	}
	if wantWrite {
		fdSet(&wfds, outFD)
		if outFD > maxFD {
			maxFD = outFD
		}
	}

	tv := unix.NsecToTimeval(readinessTimeout.Nanoseconds())
	n, err := unix.Select(maxFD+1, &rfds, &wfds, nil, &tv)
	if err != nil {
		return readiness{}, err
	}
	if n == 0 {
		return readiness{}, nil
	}
	return readiness{
		readable: wantRead && fdIsSet(&rfds, inFD),
		writable: wantWrite && fdIsSet(&wfds, outFD),
	}, nil
}

// fdSet and fdIsSet manipulate a unix.FdSet's bitmap directly: the x/sys
// package exposes the raw struct (word size varies by platform) but no
// helper methods, so callers provide their own, the same way the pack's
// lower-level descriptor code (e.g. Daedaluz-goserial's ioctl wrappers)
// works directly against syscall-level structs.
func fdSet(set *unix.FdSet, fd int) {
	idx := fd / 64
	bit := uint(fd % 64)
	set.Bits[idx] |= 1 << bit
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	idx := fd / 64
	bit := uint(fd % 64)
	return set.Bits[idx]&(1<<bit) != 0
}

// writeWithDeadline writes p to fd on its own goroutine. Because outFD is
// non-blocking and was only selected as writable, the unix.Write call
// does not block under normal conditions. The wait is not bounded: once
// the 1-second writeDeadline passes, the call still waits for the write
// to return, since Go cannot interrupt a blocked syscall and the write
// still reads from the transfer buffer until it returns.
func writeWithDeadline(fd int, p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := unix.Write(fd, p)
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		return r.n, r.err
	case <-time.After(writeDeadline):
		r := <-done
		return r.n, r.err
	}
}
