// Package pid keeps a single capture daemon per host.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/ircapture/internal/errors"
)

const defaultFileName = "ircapture.pid"

// File is a pid file guarding one running process.
type File struct {
	path string
}

// New returns a pid file at path, or in the temp dir when path is empty.
func New(path string) *File {
	if path == "" {
		path = filepath.Join(os.TempDir(), defaultFileName)
	}
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Acquire writes the current pid. A stale file left by a dead process is
// replaced; a live one yields ErrAlreadyRunning.
func (f *File) Acquire() error {
	errFactory := errors.New()

	if bytes, err := os.ReadFile(f.path); err == nil {
		if other, err := strconv.Atoi(strings.TrimSpace(string(bytes))); err == nil && other != os.Getpid() && alive(other) {
			return errFactory.WithData(errors.ErrAlreadyRunning, other)
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Release removes the pid file if present.
func (f *File) Release() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}
	return nil
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
