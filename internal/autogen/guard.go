// Package autogen guards the generated test registry files against drift
// during a gate run. A Snapshot copies the registries into a private
// temporary directory; Verify compares the live files with those copies.
package autogen

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// DefaultFiles are the generated registries, relative to the test source
// directory.
var DefaultFiles = []string{
	filepath.Join("all", "AllTests.java"),
	filepath.Join("failing", "FailingTests.java"),
}

// DefaultRegenCommand is suggested when the registries are out of sync.
const DefaultRegenCommand = "rgate testgen"

// Options configures a Snapshot.
type Options struct {
	// Files to guard, relative to the registry directory. Defaults to
	// DefaultFiles.
	Files []string

	// RegenCommand is named in the out-of-sync message.
	RegenCommand string

	// EvidenceDir, when set, receives the snapshot copies on mismatch under
	// a timestamped subdirectory. The temporary directory is still removed.
	EvidenceDir string

	// Watch records file system events on the registry files between Take
	// and Verify.
	Watch bool

	// TempRoot is where the temporary directory is created. Defaults to
	// os.TempDir().
	TempRoot string

	now func() time.Time
}

// Snapshot owns a temporary directory holding copies of the registry files.
type Snapshot struct {
	registryDir string
	tempDir     string
	opts        Options
	rec         *recorder
	closed      bool
}

// Take copies the registry files into a fresh temporary directory. A missing
// or unreadable registry file is an *IOError; the temporary directory is
// removed before Take returns in that case.
func Take(registryDir string, opts Options) (*Snapshot, error) {
	if len(opts.Files) == 0 {
		opts.Files = DefaultFiles
	}
	if opts.RegenCommand == "" {
		opts.RegenCommand = DefaultRegenCommand
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	tempDir, err := os.MkdirTemp(opts.TempRoot, "rgate-autogen-")
	if err != nil {
		return nil, &IOError{Op: "create snapshot dir", Path: opts.TempRoot, Err: err}
	}

	for _, rel := range opts.Files {
		src := filepath.Join(registryDir, rel)
		if err := copyFile(src, filepath.Join(tempDir, rel)); err != nil {
			os.RemoveAll(tempDir)
			return nil, &IOError{Op: "snapshot", Path: src, Err: err}
		}
	}

	s := &Snapshot{registryDir: registryDir, tempDir: tempDir, opts: opts}

	if opts.Watch {
		rec, err := newRecorder(registryDir, opts.Files)
		if err != nil {
			// Change recording is informational only.
			log.Printf("WARNING: cannot watch registry files: %v", err)
		} else {
			s.rec = rec
		}
	}

	return s, nil
}

// Dir returns the temporary directory holding the copies.
func (s *Snapshot) Dir() string {
	return s.tempDir
}

// Files returns the registry files the snapshot holds, relative to the
// registry directory.
func (s *Snapshot) Files() []string {
	return s.opts.Files
}

// Changes returns the file system events recorded so far. It is empty when
// Options.Watch is false.
func (s *Snapshot) Changes() []Change {
	if s.rec == nil {
		return nil
	}
	return s.rec.snapshot()
}

// Verify compares every live registry file byte for byte with its copy.
// Any difference yields an *OutOfSyncError. The temporary directory is
// removed before Verify returns, whatever the outcome.
func (s *Snapshot) Verify() (err error) {
	if s.closed {
		return fmt.Errorf("snapshot already released")
	}
	defer func() {
		if rmErr := s.Discard(); rmErr != nil && err == nil {
			err = rmErr
		}
	}()

	var changes []Change
	if s.rec != nil {
		changes = s.rec.stop()
	}

	var stale []string
	for _, rel := range s.opts.Files {
		live, err := os.ReadFile(filepath.Join(s.registryDir, rel))
		if err != nil {
			return &IOError{Op: "verify", Path: filepath.Join(s.registryDir, rel), Err: err}
		}
		saved, err := os.ReadFile(filepath.Join(s.tempDir, rel))
		if err != nil {
			return &IOError{Op: "verify", Path: filepath.Join(s.tempDir, rel), Err: err}
		}
		if !bytes.Equal(live, saved) {
			stale = append(stale, rel)
		}
	}

	if len(stale) == 0 {
		return nil
	}

	oos := &OutOfSyncError{Files: stale, Changes: changes, Command: s.opts.RegenCommand}
	if s.opts.EvidenceDir != "" {
		dir, err := s.preserve()
		if err != nil {
			log.Printf("WARNING: failed to preserve registry snapshot: %v", err)
		} else {
			oos.Evidence = dir
		}
	}
	return oos
}

// Discard removes the temporary directory. It is safe to call more than
// once and after Verify.
func (s *Snapshot) Discard() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.rec != nil {
		s.rec.stop()
	}
	if err := os.RemoveAll(s.tempDir); err != nil {
		return &IOError{Op: "remove snapshot dir", Path: s.tempDir, Err: err}
	}
	return nil
}

// preserve copies the snapshot into a timestamped directory under
// EvidenceDir.
func (s *Snapshot) preserve() (string, error) {
	dir := filepath.Join(s.opts.EvidenceDir, s.opts.now().UTC().Format("20060102T150405.000Z"))
	for _, rel := range s.opts.Files {
		if err := copyFile(filepath.Join(s.tempDir, rel), filepath.Join(dir, rel)); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
