package recompress

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic replaces path with data via a same-directory temp file and
// rename, so the original is never observable in a half-written state.
// The replacement keeps the original's permission bits and, when asked,
// its access/modification times.
func writeAtomic(path string, data []byte, preserveTimes bool) error {
	orig, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrVanished, path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".flaca-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Chmod(orig.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if preserveTimes {
		// Rename already succeeded; a failed utimes is not worth
		// reporting as a write failure.
		_ = os.Chtimes(path, orig.ModTime(), orig.ModTime())
	}
	return nil
}
