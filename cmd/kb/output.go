package main

import (
	"fmt"
	"io"
	"os"

	"github.com/steveyegge/kanbeads/internal/remote"
)

// outputJSON outputs data as pretty-printed JSON to stdout.
func outputJSON(v any) {
	if err := writeJSON(os.Stdout, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := remote.MarshalIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// outputJSONError outputs an error as JSON to stderr and exits with code 1.
func outputJSONError(err error, code string) {
	errObj := map[string]string{"error": err.Error()}
	if code != "" {
		errObj["code"] = code
	}
	_ = writeJSON(os.Stderr, errObj) // Best effort: the exit code still reports the failure
	exit(1)
}
