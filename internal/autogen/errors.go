package autogen

import (
	"fmt"
	"path/filepath"
	"strings"
)

// IOError reports a failure to copy, read or remove snapshot files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// OutOfSyncError reports registry files that changed between snapshot and
// verification.
type OutOfSyncError struct {
	// Files are the stale registries, relative to the registry directory.
	Files []string

	// Changes are the file system events observed, when watching.
	Changes []Change

	// Command regenerates the registries.
	Command string

	// Evidence is where the stale copies were preserved, if anywhere.
	Evidence string
}

func (e *OutOfSyncError) Error() string {
	names := make([]string, len(e.Files))
	for i, f := range e.Files {
		names[i] = filepath.Base(f)
	}
	verb := "is"
	if len(names) > 1 {
		verb = "are"
	}
	msg := fmt.Sprintf("%s %s out of sync, regenerate with %s", strings.Join(names, " and "), verb, e.Command)
	if e.Evidence != "" {
		msg += " (previous copies kept in " + e.Evidence + ")"
	}
	return msg
}
