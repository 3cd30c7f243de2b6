package actionlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-grow/migrations"
)

func newSQLite(t *testing.T) *SQLiteSink {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "grow.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteSink(db.DB)
}

func TestSQLiteSink_AppendAndList(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 6, 0, 0, 500, time.UTC)

	records := []Record{
		{ID: "r1", EntityID: "plant-01", Timestamp: base, Actor: "water", Command: "pump_on", Status: StatusOK,
			Metadata: map[string]string{"action": "water"}},
		{ID: "r2", EntityID: "plant-01", Timestamp: base.Add(10 * time.Second), Actor: "water", Command: "pump_off", Status: StatusFailed,
			Metadata: map[string]string{MetaError: "timeout"}},
		{ID: "r3", EntityID: "plant-02", Timestamp: base.Add(time.Second), Actor: "fan", Command: "fan_on", Status: StatusOK},
	}
	if err := s.Append(ctx, records); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() = %d, want 3", len(all))
	}
	if all[0].ID != "r2" || all[1].ID != "r3" || all[2].ID != "r1" {
		t.Errorf("order = %s,%s,%s; want r2,r3,r1", all[0].ID, all[1].ID, all[2].ID)
	}
	if !all[2].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", all[2].Timestamp, base)
	}
	if all[0].Metadata[MetaError] != "timeout" {
		t.Errorf("metadata = %v", all[0].Metadata)
	}
	if all[1].Metadata != nil {
		t.Errorf("empty metadata = %v, want nil", all[1].Metadata)
	}

	filtered, err := s.List(ctx, Filter{EntityID: "plant-01", Command: "pump_on"})
	if err != nil || len(filtered) != 1 || filtered[0].ID != "r1" {
		t.Errorf("List(filtered) = %v, %v", filtered, err)
	}

	since, err := s.List(ctx, Filter{Since: base.Add(time.Second)})
	if err != nil || len(since) != 2 {
		t.Errorf("List(since) = %d records, %v; want 2", len(since), err)
	}
}

func TestSQLiteSink_AppendEmpty(t *testing.T) {
	s := newSQLite(t)
	if err := s.Append(context.Background(), nil); err != nil {
		t.Errorf("Append(nil) error = %v", err)
	}
}

func TestSQLiteSink_DuplicateIDRollsBack(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	now := time.Now()

	err := s.Append(ctx, []Record{
		{ID: "dup", EntityID: "plant-01", Timestamp: now, Command: "fan_on", Status: StatusOK},
		{ID: "dup", EntityID: "plant-01", Timestamp: now, Command: "fan_off", Status: StatusOK},
	})
	if err == nil {
		t.Fatal("Append() with duplicate ids should fail")
	}
	got, _ := s.List(ctx, Filter{})
	if len(got) != 0 {
		t.Errorf("List() after rollback = %d records, want 0", len(got))
	}
}
