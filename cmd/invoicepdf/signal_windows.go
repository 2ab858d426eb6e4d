//go:build windows

package main

import "os"

// shutdownSignals is Ctrl-C only; Windows has no SIGTERM delivery.
var shutdownSignals = []os.Signal{os.Interrupt}
