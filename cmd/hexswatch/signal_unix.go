// Unix/Darwin signal handling for stopping watch mode cleanly.
//
// Both SIGINT (Ctrl+C) and SIGTERM are honored so that a watch session run
// under a process manager or inside a container stops the same way as one
// interrupted from a terminal.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// signalChannel returns a buffered channel that receives SIGINT and SIGTERM.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
