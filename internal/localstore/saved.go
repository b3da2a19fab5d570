package localstore

import (
	"errors"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/david/proper-search/internal/models"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	SavedSearchesKey = "propersearch_saved_searches_v1"
	LastSavedIDKey   = "properSearch:lastSavedId"
)

var ErrNotFound = errors.New("not found")

type SavedSearch struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Query     string         `json:"query"`
	Filters   models.Filters `json:"filters"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SavedSearches is the list of named searches for one user, newest first.
type SavedSearches struct {
	kv     KV
	policy *bluemonday.Policy
	now    func() time.Time

	mu sync.Mutex
}

func NewSavedSearches(kv KV) *SavedSearches {
	return &SavedSearches{kv: kv, policy: bluemonday.StrictPolicy(), now: time.Now}
}

func (s *SavedSearches) load() []SavedSearch {
	var items []SavedSearch
	if !loadJSON(s.kv, SavedSearchesKey, &items) {
		return []SavedSearch{}
	}
	return items
}

func (s *SavedSearches) List() []SavedSearch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SavedSearches) Get(id string) (SavedSearch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.load() {
		if item.ID == id {
			return item, true
		}
	}
	return SavedSearch{}, false
}

// Save stores the search under name. It overwrites the search with
// selectedID if there is one, otherwise a search with the same name
// (ignoring case), otherwise it adds a new entry at the front. Overwrites
// keep the original id and creation time. The saved id becomes the last
// used one.
func (s *SavedSearches) Save(name, query string, f models.Filters, selectedID string) (SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	name = s.cleanName(name)
	if name == "" {
		name = "Search " + now.Format("Jan 02 15:04")
	}

	entry := SavedSearch{
		ID:        uuid.NewString(),
		Name:      name,
		Query:     strings.TrimSpace(query),
		Filters:   f,
		CreatedAt: now,
		UpdatedAt: now,
	}

	items := s.load()
	idx := -1
	if selectedID != "" {
		idx = indexOf(items, func(it SavedSearch) bool { return it.ID == selectedID })
	}
	if idx < 0 {
		idx = indexOf(items, func(it SavedSearch) bool { return strings.EqualFold(strings.TrimSpace(it.Name), name) })
	}

	if idx >= 0 {
		entry.ID = items[idx].ID
		entry.CreatedAt = items[idx].CreatedAt
		items[idx] = entry
	} else {
		items = append([]SavedSearch{entry}, items...)
	}

	if err := storeJSON(s.kv, SavedSearchesKey, items); err != nil {
		return SavedSearch{}, err
	}
	if err := s.kv.Set(LastSavedIDKey, entry.ID); err != nil {
		return SavedSearch{}, err
	}
	return entry, nil
}

// Delete removes the search with id, clearing the last used id if it
// pointed there.
func (s *SavedSearches) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.load()
	idx := indexOf(items, func(it SavedSearch) bool { return it.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := storeJSON(s.kv, SavedSearchesKey, items); err != nil {
		return err
	}

	if last, ok := s.kv.Get(LastSavedIDKey); ok && last == id {
		return s.kv.Delete(LastSavedIDKey)
	}
	return nil
}

// Use marks id as the last used search and returns it.
func (s *SavedSearches) Use(id string) (SavedSearch, error) {
	item, ok := s.Get(id)
	if !ok {
		return SavedSearch{}, ErrNotFound
	}
	if err := s.kv.Set(LastSavedIDKey, id); err != nil {
		return SavedSearch{}, err
	}
	return item, nil
}

// Restore returns the last used search. A last used id that no longer
// exists is cleared.
func (s *SavedSearches) Restore() (SavedSearch, bool) {
	last, ok := s.kv.Get(LastSavedIDKey)
	if !ok || last == "" {
		return SavedSearch{}, false
	}
	item, ok := s.Get(last)
	if !ok {
		if err := s.kv.Delete(LastSavedIDKey); err != nil {
			log.Printf("[localstore] clear stale last saved id: %v", err)
		}
		return SavedSearch{}, false
	}
	return item, true
}

// Forget clears the last used search, as a filter reset does.
func (s *SavedSearches) Forget() error {
	return s.kv.Delete(LastSavedIDKey)
}

// cleanName strips markup from a user supplied name.
func (s *SavedSearches) cleanName(name string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(strings.TrimSpace(name))))
}

func indexOf(items []SavedSearch, match func(SavedSearch) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}
