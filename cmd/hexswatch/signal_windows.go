// Windows signal handling for stopping watch mode cleanly.
//
// Windows has no SIGTERM; the Go runtime maps Ctrl+C, Ctrl+Break and
// console-close events to os.Interrupt.

//go:build windows

package main

import (
	"os"
	"os/signal"
)

// signalChannel returns a buffered channel that receives os.Interrupt.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}
