//go:build !linux

package source

import "golang.org/x/sys/unix"

const tcgetsConst = unix.TIOCGETA
