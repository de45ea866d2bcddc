//go:build !linux

package cursor

import "golang.org/x/sys/unix"

const (
	tcgets = unix.TIOCGETA
	tcsets = unix.TIOCSETA
)
