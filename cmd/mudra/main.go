// Command mudra recognizes hand gestures in a live camera feed.
package main

import (
	"os"
	"runtime"
)

// The display window and the tray must run on the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
