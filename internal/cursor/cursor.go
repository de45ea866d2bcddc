// Package cursor implements the cursor coordinator: absolute-positioning
// terminal output that lets several concurrent instances share a
// terminal, each claiming its own row via a SysV shared memory cell and
// an advisory terminal lock. When shared memory or terminal locking is
// unavailable, it degrades to a single-instance cursor-position query.
package cursor

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// Coordinator owns the terminal-row bookkeeping for one run. A
// zero-value Coordinator is unusable; construct with New.
type Coordinator struct {
	mu sync.Mutex

	enabled  bool
	terminal int // fd of the opened /dev/tty or ttyname(stderr) device

	useIPC    bool
	shmID     int
	shm       []byte // attached shared segment, valid when useIPC
	pvMax     int
	yLastRead int32

	yStart     int
	yOffset    int
	needReinit int
	height     int
}

// New opens the terminal and establishes row coordination. If anything in
// that sequence fails, it returns a Coordinator with cursor mode disabled
// (Enabled() == false); callers should then fall back to plain
// carriage-return overwrite.
func New(height int) *Coordinator {
	c := &Coordinator{height: height}

	ttyPath, err := os.Readlink(fmt.Sprintf("/proc/self/fd/%d", os.Stderr.Fd()))
	if err != nil || ttyPath == "" {
		return c
	}

	fd, err := unix.Open(ttyPath, unix.O_RDWR, 0)
	if err != nil {
		return c
	}
	c.terminal = fd

	if c.ipcInit(ttyPath, fd) {
		c.enabled = true
		unix.Close(fd)
		return c
	}

	// IPC unavailable: fall back to a single-instance CPR query with a
	// leading newline to ensure there is a row to claim.
	row, ok := c.queryCPR(fd, "\n\x1b[6n")
	unix.Close(fd)
	if !ok || row < 1 {
		return c
	}
	c.yStart = row
	c.enabled = true
	return c
}

// Enabled reports whether cursor-positioning mode is active.
func (c *Coordinator) Enabled() bool {
	return c.enabled
}

// ipcInit attempts the SysV-shared-memory attach-count coordination path.
// It returns true on success (c.yStart/yOffset are populated).
func (c *Coordinator) ipcInit(ttyPath string, fd int) bool {
	key, err := ftok(ttyPath, 'p')
	if err != nil {
		return false
	}

	if err := lockFD(fd); err != nil {
		return false
	}
	defer unlockFD(fd)

	shmID, err := unix.SysvShmGet(int(key), 4, unix.IPC_CREAT|0600)
	if err != nil {
		return false
	}
	c.shmID = shmID

	shm, err := unix.SysvShmAttach(shmID, 0, 0)
	if err != nil {
		return false
	}
	c.shm = shm
	c.useIPC = true

	count := c.ipcCount()

	if count < 2 {
		row, ok := c.queryCPR(fd, "\x1b[6n")
		if !ok {
			row = 1
		}
		c.yStart = row
		c.setTop(int32(row))
	} else {
		c.yStart = int(c.getTop())
	}
	c.yLastRead = int32(c.yStart)

	c.yOffset = count - 1
	if c.yOffset < 0 {
		c.yOffset = 0
	}
	return true
}

// ipcCount refreshes and returns the current shared-memory attach count,
// tracking the running maximum (pvMax) the scroll logic needs.
func (c *Coordinator) ipcCount() int {
	if !c.useIPC {
		return 1
	}
	var ds unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(c.shmID, unix.IPC_STAT, &ds); err != nil {
		return c.pvMax
	}
	count := int(ds.Nattch)
	if count > c.pvMax {
		c.pvMax = count
	}
	return count
}

// queryCPR toggles the terminal into non-canonical/no-echo mode, writes
// the cursor-position-report escape, reads back ESC[row;colR, and
// restores the prior termios, returning the parsed row.
func (c *Coordinator) queryCPR(fd int, seq string) (int, bool) {
	oldState, err := unix.IoctlGetTermios(fd, tcgets)
	if err != nil {
		return 0, false
	}
	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	if err := unix.IoctlSetTermios(fd, tcsets, &newState); err != nil {
		return 0, false
	}
	defer unix.IoctlSetTermios(fd, tcsets, oldState)

	if _, err := unix.Write(fd, []byte(seq)); err != nil {
		return 0, false
	}

	buf := make([]byte, 32)
	n, err := unix.Read(fd, buf)
	if err != nil || n < 3 {
		return 0, false
	}
	return parseCPR(buf[:n])
}

// parseCPR extracts the row number from a "\x1b[row;colR" response.
func parseCPR(b []byte) (int, bool) {
	start := -1
	for i, c := range b {
		if c == '[' {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	row, err := strconv.Atoi(string(b[start:end]))
	if err != nil {
		return 0, false
	}
	return row, true
}

// NeedReinit marks that cursor positioning should be re-queried, called
// from the continue (SIGCONT) handler. Incremented by 2 and decremented
// by 1 per Update call, saturating at 3, so a single continue yields a
// reinit on two successive updates and survives one lost CPR round-trip.
func (c *Coordinator) NeedReinit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.needReinit += 2
	if c.needReinit > 3 {
		c.needReinit = 3
	}
}

// reinit re-queries CPR (called when NeedReinit has been signaled) and
// decrements the counter; it returns true while a reinit is still
// outstanding (the caller should skip the update this tick).
func (c *Coordinator) reinit() (pending bool) {
	c.needReinit--
	if c.yOffset < 1 {
		c.needReinit = 0
	}
	if c.needReinit > 0 {
		return true
	}

	row, ok := c.queryCPR(int(os.Stderr.Fd()), "\x1b[6n")
	if !ok {
		return false
	}
	c.yStart = row
	if c.yOffset < 1 && c.useIPC {
		c.setTop(int32(row))
	}
	c.yLastRead = int32(row)
	return false
}

// getTop/setTop read and write the shared top-row cell as a little-endian
// int32 inside the attached SysV segment.
func (c *Coordinator) getTop() int32 {
	return int32(binary.LittleEndian.Uint32(c.shm[:4]))
}

func (c *Coordinator) setTop(v int32) {
	binary.LittleEndian.PutUint32(c.shm[:4], uint32(v))
}

// Update writes one status line at this process's coordinated row,
// scrolling the shared screen region if the combined height of all
// attached instances would run past the terminal height.
func (c *Coordinator) Update(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.useIPC {
		if c.needReinit > 0 {
			if c.reinit() {
				return
			}
		}
		c.ipcCount()
		if c.yLastRead != c.getTop() {
			c.yStart = int(c.getTop())
			c.yLastRead = int32(c.yStart)
		}
	}

	y := c.yStart

	if c.useIPC && (c.yStart+c.pvMax) > c.height {
		offs := (c.yStart + c.pvMax) - c.height
		c.yStart -= offs
		if c.yStart < 1 {
			c.yStart = 1
		}
		if c.yOffset == 0 {
			lockFD(int(os.Stderr.Fd()))
			fmt.Fprintf(os.Stderr, "\x1b[%d;1H", c.height)
			for ; offs > 0; offs-- {
				os.Stderr.WriteString("\n")
			}
			unlockFD(int(os.Stderr.Fd()))
		}
	}

	if c.useIPC {
		y = c.yStart + c.yOffset
	}

	y = clampRow(y)

	lockFD(int(os.Stderr.Fd()))
	fmt.Fprintf(os.Stderr, "\x1b[%d;1H%s", y, line)
	unlockFD(int(os.Stderr.Fd()))
}

// Finish moves the cursor to the bottom of the coordinated block, then
// detaches (and, if last, removes) the shared-memory segment.
func (c *Coordinator) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	y := c.yStart
	if c.useIPC && c.pvMax > 0 {
		y += c.pvMax - 1
	}
	if y > c.height {
		y = c.height
	}

	lockFD(int(os.Stderr.Fd()))
	fmt.Fprintf(os.Stderr, "\x1b[%d;1H\n", y)
	unlockFD(int(os.Stderr.Fd()))

	if !c.useIPC {
		return
	}

	lockFD(int(os.Stderr.Fd()))
	defer unlockFD(int(os.Stderr.Fd()))

	count := c.ipcCount()
	unix.SysvShmDetach(c.shm)
	if count < 2 {
		var ds unix.SysvShmDesc
		unix.SysvShmCtl(c.shmID, unix.IPC_RMID, &ds)
	}
}

func clampRow(y int) int {
	if y < 1 {
		return 1
	}
	if y > 999999 {
		return 999999
	}
	return y
}

// lockFD/unlockFD apply the advisory exclusive byte-0 lock used to
// serialize terminal writes across concurrently running instances.
func lockFD(fd int) error {
	lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 1}
	for {
		err := unix.FcntlFlock(uintptr(fd), unix.F_SETLKW, &lock)
		if err == nil {
			return nil
		}
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFD(fd int) {
	lock := unix.Flock_t{Type: unix.F_UNLCK, Whence: 0, Start: 0, Len: 1}
	unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &lock)
}

// ftok reproduces the POSIX ftok() key derivation (device+inode+proj_id)
// since x/sys/unix does not expose it directly.
func ftok(path string, projID byte) (int32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	key := (int32(projID) << 24) | (int32(st.Dev&0xff) << 16) | int32(st.Ino&0xffff)
	return key, nil
}
