//go:build linux

package signalhub

import "golang.org/x/sys/unix"

const (
	tcgets = unix.TCGETS
	tcsets = unix.TCSETS
)
