//go:build !linux

package engine

import "golang.org/x/sys/unix"

const tcgetsConst = unix.TIOCGETA
