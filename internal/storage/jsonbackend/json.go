package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/prospector/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

// jsonBackend stores one JSON-encoded storage.Prospect per line.
type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// Create truncates filePath and returns an NDJSON backend over it.
func Create(filePath string) (storage.Backend, error) {
	return open(filePath, os.O_TRUNC|os.O_CREATE|os.O_RDWR)
}

// Open appends to filePath, creating it if needed.
func Open(filePath string) (storage.Backend, error) {
	return open(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR)
}

func open(filePath string, flag int) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}
	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, p *storage.Prospect) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}
	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonbackend: %w", err)
	}
	return nil
}

// Query returns matching prospects in the order they were saved.
func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Prospect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	out := []*storage.Prospect{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p storage.Prospect
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("jsonbackend: %w", err)
		}
		if filter.Match(&p) {
			out = append(out, &p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: %w", err)
	}

	return filter.Page(out), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
