//go:build !unix && !windows

package main

import "io"

// terminalWidth reports no terminal on platforms without a size query.
func terminalWidth(io.Writer) (int, bool) {
	return 0, false
}
