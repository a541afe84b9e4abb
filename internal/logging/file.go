package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxBytes caps a log file when no limit is configured.
const DefaultMaxBytes = 6 * 1024 * 1024

// File is an append-only log file that keeps only its newest lines once it
// grows past a limit. Trimming keeps the last 5/6 of the limit, starting at a
// line boundary.
type File struct {
	mu       sync.Mutex
	file     *os.File
	maxBytes int64
}

// OpenFile opens or creates path, creating its directory as needed.
func OpenFile(path string, maxBytes int64) (*File, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	f := &File{file: file, maxBytes: maxBytes}
	if err := f.trim(); err != nil {
		file.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, f.trim()
}

// Close closes the underlying file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

func (f *File) trim() error {
	info, err := f.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= f.maxBytes {
		return nil
	}

	keep := f.maxBytes * 5 / 6
	tail := make([]byte, keep)
	n, err := f.file.ReadAt(tail, size-keep)
	if err != nil && err != io.EOF {
		return err
	}
	tail = tail[:n]
	if i := bytes.IndexByte(tail, '\n'); i >= 0 {
		tail = tail[i+1:]
	}

	if err := f.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end after truncation.
	_, err = f.file.Write(tail)
	return err
}
