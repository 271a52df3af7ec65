package main

import (
	"fmt"
	"os"
)

// FatalError writes an error message to stderr and exits with code 1.
// Queued writes are flushed first.
//
// Example:
//
//	if err := manager.DeleteCard(card.ID); err != nil {
//	    FatalError("%v", err)
//	}
func FatalError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
//
// Example:
//
//	FatalErrorWithHint("no boards", "Run 'kb board init <title>' to create one")
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	exit(1)
}

// WarnError writes a warning message to stderr and returns.
func WarnError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// exit flushes queued writes and exits.
func exit(code int) {
	shutdown()
	os.Exit(code)
}
