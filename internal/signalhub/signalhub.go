// Package signalhub installs the handlers for SIGPIPE, SIGWINCH, SIGTTOU
// and the job-control pair SIGTSTP/SIGCONT. Go has no analogue of an
// async-signal-safe C handler body; the replacement is a dedicated
// goroutine that blocks on signal.Notify's channel and does the minimal
// amount of work needed before the main loop's next tick picks up the
// result: setting flags, recording a timestamp, and the short descriptor
// and termios calls that redirect standard error to /dev/null, restore it
// on continue, and reassert TOSTOP. Re-reading the terminal size and
// re-querying the cursor row are deferred to the main loop.
package signalhub

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Hub owns the small set of flags and the single timestamp that make up
// all signal-shared state.
type Hub struct {
	needNewSize atomic.Bool

	mu            sync.Mutex
	stopTime      time.Time // zero value means "not currently stopped"
	stoppedOffset time.Duration
	savedStderr   int // -1 when standard error hasn't been redirected

	reinitCursor func()

	sigCh    chan os.Signal
	stop     chan struct{}
	stopOnce sync.Once

	pauseSaved bool
}

// New installs the signal handlers and starts the dispatch goroutine.
// reinitCursor is called (from the dispatch goroutine, so the cursor
// coordinator must treat it as arriving asynchronously relative to the main
// loop) whenever a continue signal requires the cursor to re-query its
// position.
func New(reinitCursor func()) *Hub {
	h := &Hub{
		savedStderr:  -1,
		reinitCursor: reinitCursor,
		sigCh:        make(chan os.Signal, 8),
		stop:         make(chan struct{}),
	}

	signal.Ignore(syscall.SIGPIPE)
	signal.Notify(h.sigCh, syscall.SIGTTOU, syscall.SIGTSTP, syscall.SIGCONT, syscall.SIGWINCH)

	go h.dispatch()
	return h
}

// Close stops the dispatch goroutine and un-registers the handlers. Safe to
// call more than once.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigCh)
		close(h.stop)
	})
}

func (h *Hub) dispatch() {
	for {
		select {
		case <-h.stop:
			return
		case sig := <-h.sigCh:
			switch sig {
			case syscall.SIGWINCH:
				h.needNewSize.Store(true)
			case syscall.SIGTTOU:
				h.onBackgroundOutput()
			case syscall.SIGTSTP:
				h.onStopTyped()
			case syscall.SIGCONT:
				h.onContinue()
			}
		}
	}
}

// onBackgroundOutput handles a SIGTTOU (background write to the controlling
// terminal): duplicate standard error to an opened /dev/null, saving the
// previous descriptor exactly once.
func (h *Hub) onBackgroundOutput() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.savedStderr >= 0 {
		return
	}
	saved, err := unix.Dup(int(os.Stderr.Fd()))
	if err != nil {
		return
	}
	devnull, err := unix.Open(os.DevNull, unix.O_WRONLY, 0)
	if err != nil {
		unix.Close(saved)
		return
	}
	if err := unix.Dup2(devnull, int(os.Stderr.Fd())); err != nil {
		unix.Close(devnull)
		unix.Close(saved)
		return
	}
	unix.Close(devnull)
	h.savedStderr = saved
}

// onStopTyped handles SIGTSTP: record the time of stop, then self-raise
// the unconditional stop signal.
func (h *Hub) onStopTyped() {
	h.mu.Lock()
	if h.stopTime.IsZero() {
		h.stopTime = time.Now()
	}
	h.mu.Unlock()
	syscall.Kill(os.Getpid(), syscall.SIGSTOP)
}

// onContinue handles SIGCONT: always sets needNewSize, then either
// reasserts TOSTOP for a foreground continue with no prior stop, or folds
// the stopped interval into stoppedOffset, restores standard error, and
// reasserts TOSTOP. Either path signals the cursor coordinator to reinit.
func (h *Hub) onContinue() {
	h.needNewSize.Store(true)

	h.mu.Lock()
	hadStop := !h.stopTime.IsZero()
	saved := -1
	if hadStop {
		h.stoppedOffset += time.Since(h.stopTime)
		h.stopTime = time.Time{}
		saved = h.savedStderr
		h.savedStderr = -1
	}
	h.mu.Unlock()

	reassertTOSTOP(int(os.Stderr.Fd()))

	if saved >= 0 {
		unix.Dup2(saved, int(os.Stderr.Fd()))
		unix.Close(saved)
	}

	if h.reinitCursor != nil {
		h.reinitCursor()
	}
}

// NeedNewSize reports and clears the "terminal dimensions may have
// changed" flag, called once per display tick by the main loop.
func (h *Hub) NeedNewSize() bool {
	return h.needNewSize.Swap(false)
}

// StoppedOffset returns the accumulated stopped duration, to be added
// to elapsed time by the main loop.
func (h *Hub) StoppedOffset() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stoppedOffset
}

// ResetStoppedOffset zeroes the accumulated offset, used by the
// wait-until-first-byte reset in the main loop.
func (h *Hub) ResetStoppedOffset() {
	h.mu.Lock()
	h.stoppedOffset = 0
	h.mu.Unlock()
}

// PauseDisable temporarily stops routing SIGTSTP/SIGCONT to the dispatch
// goroutine, used around the wait-for-first-byte start-time reset so a
// stray stop/continue can't race the reanchoring.
func (h *Hub) PauseDisable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pauseSaved {
		return
	}
	h.pauseSaved = true
	signal.Ignore(syscall.SIGTSTP, syscall.SIGCONT)
}

// PauseEnable restores normal routing of SIGTSTP/SIGCONT after PauseDisable.
func (h *Hub) PauseEnable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.pauseSaved {
		return
	}
	h.pauseSaved = false
	signal.Notify(h.sigCh, syscall.SIGTSTP, syscall.SIGCONT)
}

// CheckBackground is called once per display update (at most once a second,
// enforced by the caller): if a saved standard-error descriptor exists, it
// restores standard error, re-asserts TOSTOP, and signals the cursor
// coordinator to re-initialize.
func (h *Hub) CheckBackground() {
	h.mu.Lock()
	saved := h.savedStderr
	if saved < 0 {
		h.mu.Unlock()
		return
	}
	h.savedStderr = -1
	h.mu.Unlock()

	unix.Dup2(saved, int(os.Stderr.Fd()))
	unix.Close(saved)
	reassertTOSTOP(int(os.Stderr.Fd()))
	if h.reinitCursor != nil {
		h.reinitCursor()
	}
}

// reassertTOSTOP sets the TOSTOP termios flag on fd (if it is a
// terminal), so background writes trap into SIGTTOU again after a
// foreground resume.
func reassertTOSTOP(fd int) {
	t, err := unix.IoctlGetTermios(fd, tcgets)
	if err != nil {
		return
	}
	if t.Lflag&unix.TOSTOP != 0 {
		return
	}
	t.Lflag |= unix.TOSTOP
	unix.IoctlSetTermios(fd, tcsets, t)
}
