package entity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-grow/migrations"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"plant-01", false},
		{"tent_a.tray3", false},
		{"", true},
		{"..", true},
		{"../etc", true},
		{"a/b", true},
		{"-leading", true},
		{"with space", true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidID) {
				t.Errorf("error %v is not ErrInvalidID", err)
			}
		})
	}
}

func TestStaticRepository(t *testing.T) {
	repo, err := NewStaticRepository([]string{"plant-02", " plant-01 ", "plant-02"})
	if err != nil {
		t.Fatalf("NewStaticRepository() error = %v", err)
	}
	list, _ := repo.List(context.Background())
	if len(list) != 2 || list[0].ID != "plant-02" || list[1].ID != "plant-01" {
		t.Errorf("List() = %+v", list)
	}
	if _, err := repo.Get(context.Background(), "plant-09"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
	if err := repo.Create(context.Background(), &Entity{ID: "x"}); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Create() error = %v, want ErrReadOnly", err)
	}

	if _, err := NewStaticRepository([]string{"bad/id"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("NewStaticRepository(bad) error = %v", err)
	}
}

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
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
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_CRUD(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	for i, id := range []string{"plant-b", "plant-a"} {
		if err := repo.Create(ctx, &Entity{ID: id, Name: "Plant", Position: i, Enabled: true}); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}
	if err := repo.Create(ctx, &Entity{ID: "plant-a"}); !errors.Is(err, ErrEntityExists) {
		t.Errorf("Create(duplicate) error = %v, want ErrEntityExists", err)
	}
	if err := repo.Create(ctx, &Entity{ID: "../x"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Create(invalid) error = %v, want ErrInvalidID", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "plant-b" {
		t.Errorf("List() order = %+v, want plant-b first", list)
	}

	got, err := repo.Get(ctx, "plant-a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Enabled || got.CreatedAt.IsZero() {
		t.Errorf("Get() = %+v", got)
	}

	if err := repo.SetEnabled(ctx, "plant-a", false); err != nil {
		t.Fatalf("SetEnabled() error = %v", err)
	}
	got, _ = repo.Get(ctx, "plant-a")
	if got.Enabled {
		t.Error("plant-a still enabled")
	}

	if err := repo.Delete(ctx, "plant-b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "plant-b"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Delete(again) error = %v, want ErrEntityNotFound", err)
	}
	if _, err := repo.Get(ctx, "plant-b"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Get(deleted) error = %v", err)
	}
}

type countingRepo struct {
	entities []Entity
	calls    int
	err      error
}

func (c *countingRepo) List(context.Context) ([]Entity, error) {
	c.calls++
	return c.entities, c.err
}
func (c *countingRepo) Get(context.Context, string) (*Entity, error)  { return nil, ErrEntityNotFound }
func (c *countingRepo) Create(context.Context, *Entity) error         { return nil }
func (c *countingRepo) SetEnabled(context.Context, string, bool) error { return nil }
func (c *countingRepo) Delete(context.Context, string) error          { return nil }

func TestRegistry_CachesUntilRefresh(t *testing.T) {
	repo := &countingRepo{entities: []Entity{
		{ID: "plant-01", Enabled: true},
		{ID: "plant-02", Enabled: false},
		{ID: "plant-03", Enabled: true},
		{ID: "plant-01", Enabled: true},
	}}
	reg := NewRegistry(repo)
	if reg.Loaded() {
		t.Error("Loaded() before Refresh")
	}
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "plant-01" || ids[1] != "plant-03" {
		t.Errorf("IDs() = %v, want [plant-01 plant-03]", ids)
	}

	repo.entities = append(repo.entities, Entity{ID: "plant-04", Enabled: true})
	_ = reg.IDs()
	if repo.calls != 1 {
		t.Errorf("repository called %d times, want 1", repo.calls)
	}
	if len(reg.IDs()) != 2 {
		t.Error("IDs() changed without Refresh")
	}

	ids[0] = "mutated"
	if reg.IDs()[0] != "plant-01" {
		t.Error("IDs() returned the internal slice")
	}
}

func TestRegistry_RefreshErrorKeepsCache(t *testing.T) {
	repo := &countingRepo{entities: []Entity{{ID: "plant-01", Enabled: true}}}
	reg := NewRegistry(repo)
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	repo.err = errors.New("database locked")
	if err := reg.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should fail")
	}
	if got := reg.IDs(); len(got) != 1 {
		t.Errorf("IDs() after failed refresh = %v", got)
	}
}
