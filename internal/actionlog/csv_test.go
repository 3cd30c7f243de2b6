package actionlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newCSV(t *testing.T) *CSVSink {
	t.Helper()
	s, err := NewCSVSink(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatalf("NewCSVSink() error = %v", err)
	}
	return s
}

func TestCSVSink_AppendWritesHeaderOnce(t *testing.T) {
	s := newCSV(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		err := s.Append(ctx, []Record{{
			ID:        "id-" + string(rune('a'+i)),
			EntityID:  "plant-01",
			Timestamp: at.Add(time.Duration(i) * time.Hour),
			Actor:     "water",
			Command:   "pump_on",
			Status:    StatusOK,
			Metadata:  map[string]string{"action": "water"},
		}})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "plant-01.csv"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), data)
	}
	if lines[0] != "timestamp,entity_id,actor,command,status,metadata,id" {
		t.Errorf("header = %q", lines[0])
	}
	want := "2026-03-01T08:00:00Z,plant-01,water,pump_on,ok,action=water,id-a"
	if lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestCSVSink_SeparateFilesPerEntity(t *testing.T) {
	s := newCSV(t)
	now := time.Now().UTC()
	err := s.Append(context.Background(), []Record{
		{EntityID: "plant-01", Timestamp: now, Command: "fan_on", Status: StatusOK},
		{EntityID: "plant-02", Timestamp: now, Command: "fan_on", Status: StatusOK},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	for _, id := range []string{"plant-01", "plant-02"} {
		if _, err := os.Stat(filepath.Join(s.Dir(), id+".csv")); err != nil {
			t.Errorf("missing log for %s: %v", id, err)
		}
	}
}

func TestCSVSink_InvalidEntity(t *testing.T) {
	s := newCSV(t)
	now := time.Now()
	err := s.Append(context.Background(), []Record{
		{EntityID: "../escape", Timestamp: now},
		{EntityID: "plant-01", Timestamp: now, Command: "fan_on"},
	})
	if !errors.Is(err, ErrLogWrite) || !errors.Is(err, ErrInvalidEntity) {
		t.Fatalf("Append() error = %v, want ErrLogWrite and ErrInvalidEntity", err)
	}
	// The valid entity is still written.
	if _, err := os.Stat(filepath.Join(s.Dir(), "plant-01.csv")); err != nil {
		t.Errorf("valid entity not written: %v", err)
	}
}

func TestCSVSink_List(t *testing.T) {
	s := newCSV(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	var records []Record
	for i, id := range []string{"plant-01", "plant-02", "plant-01"} {
		records = append(records, Record{
			EntityID:  id,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Actor:     "light",
			Command:   "light_veg_on",
			Status:    StatusOK,
			Metadata:  map[string]string{"type": "veg;full"},
		})
	}
	if err := s.Append(ctx, records); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() = %d records, want 3", len(all))
	}
	if !all[0].Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("first record at %v, want newest", all[0].Timestamp)
	}
	if all[0].Metadata["type"] != "veg;full" {
		t.Errorf("metadata = %v", all[0].Metadata)
	}

	one, err := s.List(ctx, Filter{EntityID: "plant-02"})
	if err != nil || len(one) != 1 {
		t.Fatalf("List(plant-02) = %v, %v", one, err)
	}

	missing, err := s.List(ctx, Filter{EntityID: "plant-99"})
	if err != nil || len(missing) != 0 {
		t.Errorf("List(missing) = %v, %v; want empty", missing, err)
	}

	limited, _ := s.List(ctx, Filter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("List(limit 2) = %d records", len(limited))
	}
}

func TestCSVSink_ListReadsSixColumnRows(t *testing.T) {
	s := newCSV(t)
	content := "timestamp,entity_id,actor,command,status,metadata\n" +
		"2026-02-01T10:00:00Z,plant-07,fan,fan_off,ok,\n"
	if err := os.WriteFile(filepath.Join(s.Dir(), "plant-07.csv"), []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(context.Background(), Filter{EntityID: "plant-07"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Command != "fan_off" || got[0].ID != "" {
		t.Errorf("List() = %+v", got)
	}
}
