package localstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/david/proper-search/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFileKV_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	kv, err := OpenFileKV(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := kv.Set("a", "1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set("b", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reopened, err := OpenFileKV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := reopened.Get("a"); ok {
		t.Fatal("expected a to be deleted")
	}
	if v, ok := reopened.Get("b"); !ok || v != "2" {
		t.Fatalf("expected b=2, got %q %v", v, ok)
	}
	if keys := reopened.Keys(); len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestFileKV_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	kv, err := OpenFileKV(path)
	if err != nil {
		t.Fatalf("expected corrupt file to be tolerated, got %v", err)
	}
	if len(kv.Keys()) != 0 {
		t.Fatal("expected empty store")
	}
	if err := kv.Set("k", "v"); err != nil {
		t.Fatalf("set after corrupt load: %v", err)
	}
}

func TestNamespace(t *testing.T) {
	base := NewMemoryKV()
	a := Namespace(base, "session:a")
	b := Namespace(base, "session:b")

	a.Set("k", "from-a")
	b.Set("k", "from-b")

	if v, _ := a.Get("k"); v != "from-a" {
		t.Fatalf("expected from-a, got %q", v)
	}
	if v, _ := base.Get("session:b:k"); v != "from-b" {
		t.Fatalf("expected prefixed key in base store, got %q", v)
	}
}

func TestSavedSearches_OverwriteOrder(t *testing.T) {
	s := NewSavedSearches(NewMemoryKV())
	created := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	s.now = fixedClock(created)

	first, err := s.Save("Houston flips", "houston", models.Filters{City: "Houston"}, "")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, _ := s.Save("Katy", "katy", models.Filters{}, "")

	if list := s.List(); len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	// Same name in different case overwrites by name.
	s.now = fixedClock(created.Add(time.Hour))
	renamed, _ := s.Save("HOUSTON FLIPS", "houston tx", models.Filters{}, "")
	if renamed.ID != first.ID || !renamed.CreatedAt.Equal(created) || renamed.Query != "houston tx" {
		t.Fatalf("expected overwrite of %s keeping created time, got %+v", first.ID, renamed)
	}

	// A selected id wins over a name match.
	bySelected, _ := s.Save("Katy", "pearland", models.Filters{}, first.ID)
	if bySelected.ID != first.ID || bySelected.Name != "Katy" {
		t.Fatalf("expected selected search overwritten, got %+v", bySelected)
	}
	if got, _ := s.Get(second.ID); got.Query != "katy" {
		t.Fatal("name match must not be touched when a search is selected")
	}

	if len(s.List()) != 2 {
		t.Fatalf("expected 2 saved searches, got %d", len(s.List()))
	}
}

func TestSavedSearches_NameCleanup(t *testing.T) {
	s := NewSavedSearches(NewMemoryKV())
	s.now = fixedClock(time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC))

	item, _ := s.Save("  <b>Tom & Jerry</b><script>x</script> ", "", models.Filters{}, "")
	if item.Name != "Tom & Jerry" {
		t.Fatalf("expected markup stripped, got %q", item.Name)
	}

	item, _ = s.Save("   ", "", models.Filters{}, "")
	if item.Name != "Search Jan 02 15:04" {
		t.Fatalf("expected default name, got %q", item.Name)
	}
}

func TestSavedSearches_RestoreAndDelete(t *testing.T) {
	s := NewSavedSearches(NewMemoryKV())

	if _, ok := s.Restore(); ok {
		t.Fatal("expected nothing to restore")
	}

	a, _ := s.Save("A", "a", models.Filters{}, "")
	b, _ := s.Save("B", "b", models.Filters{}, "")

	if got, ok := s.Restore(); !ok || got.ID != b.ID {
		t.Fatalf("expected last saved to restore, got %+v", got)
	}
	if _, err := s.Use(a.ID); err != nil {
		t.Fatalf("use: %v", err)
	}
	if got, _ := s.Restore(); got.ID != a.ID {
		t.Fatal("expected used search to restore")
	}

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Restore(); ok {
		t.Fatal("expected last id cleared with its search")
	}
	if err := s.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Use("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSavedSearches_StaleLastIDCleared(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(LastSavedIDKey, "gone")
	s := NewSavedSearches(kv)

	if _, ok := s.Restore(); ok {
		t.Fatal("expected no restore for unknown id")
	}
	if _, ok := kv.Get(LastSavedIDKey); ok {
		t.Fatal("expected stale last id removed")
	}
}

func TestCorruptValuesFallBackToEmpty(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(SavedSearchesKey, "[{broken")
	kv.Set(FavoritesKey, `{"not":"a list"}`)

	if got := NewSavedSearches(kv).List(); len(got) != 0 {
		t.Fatalf("expected empty saved searches, got %v", got)
	}
	favs := NewFavorites(kv)
	if got := favs.List(); len(got) != 0 {
		t.Fatalf("expected empty favorites, got %v", got)
	}

	// The next write replaces the corrupt value.
	if _, err := favs.Add("abc", nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(favs.List()) != 1 {
		t.Fatal("expected one favorite after add")
	}
}

func TestFavorites(t *testing.T) {
	f := NewFavorites(NewMemoryKV())

	f.Add("one", []string{"Hot Lead"})
	f.Add("two", []string{"high equity", "<i>follow up</i>", "", "highEquity"})

	if ids := f.IDs(); len(ids) != 2 || ids[0] != "two" {
		t.Fatalf("expected newest first, got %v", ids)
	}

	two, ok := f.Get("two")
	if !ok {
		t.Fatal("expected favorite")
	}
	if len(two.Tags) != 2 || two.Tags[0] != models.TagHighEquity || two.Tags[1] != "follow up" {
		t.Fatalf("unexpected tags: %v", two.Tags)
	}

	// Last write wins.
	f.SetTags("one", []string{"a"})
	f.SetTags("one", []string{"b"})
	if one, _ := f.Get("one"); len(one.Tags) != 1 || one.Tags[0] != "b" {
		t.Fatalf("expected last tags to win, got %v", one.Tags)
	}

	if _, err := f.SetTags("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.Remove("one"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.Remove("one"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ids := f.IDs(); len(ids) != 1 {
		t.Fatalf("expected one favorite left, got %v", ids)
	}
}
