package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileAppender appends records as JSON lines to a file.
type FileAppender struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

func (a *FileAppender) Append(ctx context.Context, rec *RequestRecord) error {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return os.ErrClosed
	}
	_, err = a.f.Write(data)
	return err
}

func (a *FileAppender) Sync() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	return a.f.Sync()
}

func (a *FileAppender) Path() string {
	return a.path
}

func (a *FileAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

// NewFileAppender opens path for appending, creating parent directories.
func NewFileAppender(path string) (*FileAppender, error) {
	if path == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileAppender{path: path, f: f}, nil
}
