// Package dir provisions the directories archives are written to.
package dir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Sentinel errors for programmatic error handling.
var (
	// ErrExists indicates the directory already exists and Strict was requested.
	ErrExists = errors.New("directory already exists")

	// ErrMissingParent indicates an ancestor is absent and NoParents was requested.
	ErrMissingParent = errors.New("missing parent directory")

	// ErrNotDir indicates the path exists but is not a directory.
	ErrNotDir = errors.New("not a directory")
)

type options struct {
	strict  bool
	parents bool
	mode    fs.FileMode
}

// Option configures Ensure.
type Option func(*options)

// Strict fails with ErrExists when the directory is already present.
func Strict() Option {
	return func(o *options) { o.strict = true }
}

// NoParents fails with ErrMissingParent instead of creating missing ancestors.
func NoParents() Option {
	return func(o *options) { o.parents = false }
}

// Mode sets the permission bits of created directories (default 0755).
func Mode(m fs.FileMode) Option {
	return func(o *options) { o.mode = m }
}

// Ensure creates path if needed and returns it.
//
// By default Ensure is idempotent and creates missing parents.
func Ensure(path string, opts ...Option) (string, error) {
	o := options{parents: true, mode: 0o755}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrNotDir, path)
		}
		if o.strict {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return path, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}

	if o.parents {
		if err := os.MkdirAll(path, o.mode); err != nil {
			return "", err
		}
		return path, nil
	}

	if err := os.Mkdir(path, o.mode); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("%w: %s", ErrMissingParent, path)
		case errors.Is(err, fs.ErrExist) && !o.strict:
			return path, nil
		case errors.Is(err, fs.ErrExist):
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return "", err
	}
	return path, nil
}
