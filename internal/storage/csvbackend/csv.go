package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/prospector/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

// csvBackend keeps prospects in the export layout: storage.Header followed by
// one row per prospect. Run IDs and timestamps are not part of the layout, so
// Query only honours Domain, Limit and Offset.
type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// Create truncates filePath and writes the header row.
func Create(filePath string) (storage.Backend, error) {
	return open(filePath, os.O_TRUNC|os.O_CREATE|os.O_RDWR)
}

// Open appends to filePath, writing the header row only if the file is empty.
func Open(filePath string) (storage.Backend, error) {
	return open(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR)
}

func open(filePath string, flag int) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: %w", err)
	}

	if info.Size() == 0 {
		if err := writeRecords(f, [][]string{storage.Header}); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &csvBackend{file: f}, nil
}

// WriteAll writes a complete export, header included, to w.
func WriteAll(w io.Writer, prospects []*storage.Prospect) error {
	records := make([][]string, 0, len(prospects)+1)
	records = append(records, storage.Header)
	for _, p := range prospects {
		records = append(records, p.Record())
	}
	return writeRecords(w, records)
}

func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("csvbackend: %w", err)
	}
	return nil
}

func (b *csvBackend) Save(ctx context.Context, p *storage.Prospect) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: %w", err)
	}
	return writeRecords(b.file, [][]string{p.Record()})
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Prospect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	return readAll(b.file, filter)
}

func readAll(r io.Reader, filter storage.Filter) ([]*storage.Prospect, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Prospect{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	out := []*storage.Prospect{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: %w", err)
		}

		p, err := storage.FromRecord(rec)
		if err != nil {
			continue // skip malformed rows
		}
		if filter.Domain != "" && p.Domain != filter.Domain {
			continue
		}
		out = append(out, p)
	}

	return filter.Page(out), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
