package actionlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Header is the CSV column order. Existing columns must never move.
var Header = []string{"timestamp", "entity_id", "actor", "command", "status", "metadata", "id"}

// columns that every row must carry
const minColumns = 6

const (
	logDirPermissions  = 0750
	logFilePermissions = 0640
)

// CSVSink writes one CSV file per entity, <dir>/<entity>.csv.
//
// Thread Safety:
//   - Append and List are serialised by an internal mutex.
type CSVSink struct {
	dir string
	mu  sync.Mutex
}

// NewCSVSink creates the log directory if needed.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, logDirPermissions); err != nil {
		return nil, fmt.Errorf("%w: creating log directory: %w", ErrLogWrite, err)
	}
	return &CSVSink{dir: dir}, nil
}

// Dir returns the log directory.
func (s *CSVSink) Dir() string {
	return s.dir
}

// Append writes each record to its entity's file. A failure on one entity
// does not stop the others; all failures are joined.
func (s *CSVSink) Append(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, r := range records {
		if err := s.appendOne(r); err != nil {
			errs = append(errs, fmt.Errorf("%w: entity %s: %w", ErrLogWrite, r.EntityID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *CSVSink) appendOne(r Record) error {
	path, err := s.path(r.EntityID)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePermissions)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck // Sync below reports write errors

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return err
		}
	}
	if err := w.Write(toRow(r)); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// List reads records from the entity files matching filter, newest first.
func (s *CSVSink) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	if filter.EntityID != "" {
		p, err := s.path(filter.EntityID)
		if err != nil {
			return nil, err
		}
		paths = []string{p}
	} else {
		matches, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
		if err != nil {
			return nil, err
		}
		paths = matches
	}

	var out []Record
	for _, p := range paths {
		records, err := readFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Base(p), err)
		}
		for _, r := range records {
			if filter.match(r) {
				out = append(out, r)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if n := filter.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *CSVSink) path(entityID string) (string, error) {
	if entityID == "" || entityID == "." || entityID == ".." ||
		strings.ContainsAny(entityID, `/\`) || strings.ContainsRune(entityID, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntity, entityID)
	}
	return filepath.Join(s.dir, entityID+".csv"), nil
}

func toRow(r Record) []string {
	return []string{
		r.Timestamp.Format(time.RFC3339Nano),
		r.EntityID,
		r.Actor,
		r.Command,
		r.Status,
		EncodeMetadata(r.Metadata),
		r.ID,
	}
}

func readFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // older files may have fewer trailing columns

	var out []Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && len(row) > 0 && row[0] == Header[0] {
			continue
		}
		if len(row) < minColumns {
			return nil, fmt.Errorf("line %d: %d columns, want at least %d", line, len(row), minColumns)
		}

		ts, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		r := Record{
			Timestamp: ts,
			EntityID:  row[1],
			Actor:     row[2],
			Command:   row[3],
			Status:    row[4],
			Metadata:  DecodeMetadata(row[5]),
		}
		if len(row) > minColumns {
			r.ID = row[6]
		}
		out = append(out, r)
	}
}
