//go:build js && wasm

package lockfile

import "os"

// WASM runs a single process; locking is a no-op.

func flockExclusiveNonBlock(*os.File) error { return nil }

func flockUnlock(*os.File) error { return nil }
