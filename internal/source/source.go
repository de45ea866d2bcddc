// Package source implements the input source manager: pre-flight size
// accounting across the configured inputs, and opening each input in
// turn for the transfer engine.
package source

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Warning is a non-fatal pre-flight problem with one input: the input
// is dropped from the list and a warning is surfaced to the caller.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// statResult is the per-input outcome of the pre-flight fan-out: one
// slot per input, populated concurrently, read back in original order.
type statResult struct {
	size int64
	err  error
}

// TotalSize sums the sizes of regular files and block devices among
// inputs, statting each input concurrently, drops any input that fails
// access, and returns the surviving input list in original order plus
// the accumulated total and any warnings. If inputs is empty, the size
// of standard input is used instead (0 for a non-regular stdin).
func TotalSize(inputs []string) (total int64, kept []string, warnings []Warning) {
	if len(inputs) == 0 {
		return statSize("-"), nil, nil
	}

	results := make([]statResult, len(inputs))
	var g errgroup.Group
	var mu sync.Mutex

	for i, p := range inputs {
		i, p := i, p
		g.Go(func() error {
			size, err := statOne(p)
			mu.Lock()
			results[i] = statResult{size: size, err: err}
			mu.Unlock()
			return nil // never fail-fast: every input is attempted
		})
	}
	_ = g.Wait()

	kept = make([]string, 0, len(inputs))
	for i, p := range inputs {
		if results[i].err != nil {
			warnings = append(warnings, Warning{Path: p, Err: results[i].err})
			continue
		}
		kept = append(kept, p)
		total += results[i].size
	}
	return total, kept, warnings
}

func statSize(path string) int64 {
	size, err := statOne(path)
	if err != nil {
		return 0
	}
	return size
}

// statOne stats a single input and verifies it is readable. For a block
// device, it opens the device and seeks to the end to discover its size
// (stat's st_size is not reliable for block devices); for a regular file,
// the stat size is used directly; other types (FIFOs, sockets, character
// devices) contribute 0.
func statOne(path string) (int64, error) {
	if path == "-" {
		fi, err := os.Stdin.Stat()
		if err != nil {
			return 0, err
		}
		if fi.Mode().IsRegular() {
			return fi.Size(), nil
		}
		return 0, nil
	}

	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	if unix.Access(path, unix.R_OK) != nil {
		return 0, fmt.Errorf("permission denied")
	}

	switch st.Mode & unix.S_IFMT {
	case unix.S_IFBLK:
		fd, err := unix.Open(path, unix.O_RDONLY, 0)
		if err != nil {
			return 0, err
		}
		defer unix.Close(fd)
		size, err := unix.Seek(fd, 0, 2) // SEEK_END
		if err != nil {
			return 0, err
		}
		return size, nil
	case unix.S_IFREG:
		return st.Size, nil
	default:
		return 0, nil
	}
}

// OpenNext closes previousFD (if positive) and opens the input at index.
// done is true when index is out of range (end of input list). It
// refuses to open an input that resolves to the same device+inode as
// standard output, unless the input is a terminal.
func OpenNext(inputs []string, index int, previousFD int) (fd int, done bool, err error) {
	if previousFD > 0 {
		unix.Close(previousFD)
	}
	if index < 0 || index >= len(inputs) {
		return -1, true, nil
	}

	path := inputs[index]
	if path == "-" {
		return int(os.Stdin.Fd()), false, nil
	}

	fd, err = unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return -1, false, fmt.Errorf("failed to open: %w", err)
	}

	if sameFileAsOutput(fd) {
		unix.Close(fd)
		return -1, false, fmt.Errorf("input file is output file")
	}

	return fd, false, nil
}

// sameFileAsOutput reports whether fd shares device+inode with standard
// output, refusing only when the input is not itself a terminal (so
// `streampv /dev/tty > /dev/tty` style use of one terminal still works).
func sameFileAsOutput(fd int) bool {
	var inSt, outSt unix.Stat_t
	if err := unix.Fstat(fd, &inSt); err != nil {
		return false
	}
	if err := unix.Fstat(int(os.Stdout.Fd()), &outSt); err != nil {
		return false
	}
	if inSt.Dev != outSt.Dev || inSt.Ino != outSt.Ino {
		return false
	}
	return !isTerminal(fd)
}

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, tcgetsConst)
	return err == nil
}
