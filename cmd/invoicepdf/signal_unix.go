//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals covers Ctrl-C and container stops, which arrive as
// SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
