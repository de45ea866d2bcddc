//go:build darwin

package signalhub

import "golang.org/x/sys/unix"

const (
	tcgets = unix.TIOCGETA
	tcsets = unix.TIOCSETA
)
