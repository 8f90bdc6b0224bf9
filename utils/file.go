package utils

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// RemoveFileNoError will remove the file at the given path if it exists. Any
// errors will be suppressed.
func RemoveFileNoError(path string) {
	utils.UncheckedErrorFunc(func() error {
		if _, err := os.Stat(path); err == nil {
			return os.Remove(path)
		}
		return nil
	})
}

// WriteFileAtomic writes the output of write to a temporary file next to path and
// renames it over path once everything has been flushed. On any failure the
// temporary file is removed and path is left untouched. Errors returned by write
// keep their type when they are one of this package's errors and otherwise come
// back as IOError, like every other filesystem failure.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return NewIOError(path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			RemoveFileNoError(tmpName)
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		err = multierr.Combine(err, tmp.Close())
		if IsTyped(err) {
			return err
		}
		return NewIOError(path, err)
	}
	if err = buf.Flush(); err != nil {
		return NewIOError(path, multierr.Combine(err, tmp.Close()))
	}
	if err = tmp.Sync(); err != nil {
		return NewIOError(path, multierr.Combine(err, tmp.Close()))
	}
	if err = tmp.Close(); err != nil {
		return NewIOError(path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return NewIOError(path, err)
	}
	return nil
}
