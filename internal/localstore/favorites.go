package localstore

import (
	"html"
	"strings"
	"sync"
	"time"

	"github.com/david/proper-search/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

const FavoritesKey = "propersearch_favorites_v1"

// Favorite is a listing the user starred, with their own lead-status tags.
type Favorite struct {
	ListingID string    `json:"listing_id"`
	Tags      []string  `json:"tags"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Favorites struct {
	kv     KV
	policy *bluemonday.Policy
	now    func() time.Time

	mu sync.Mutex
}

func NewFavorites(kv KV) *Favorites {
	return &Favorites{kv: kv, policy: bluemonday.StrictPolicy(), now: time.Now}
}

func (f *Favorites) load() []Favorite {
	var items []Favorite
	if !loadJSON(f.kv, FavoritesKey, &items) {
		return []Favorite{}
	}
	return items
}

// List returns favorites, most recently added first.
func (f *Favorites) List() []Favorite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *Favorites) IDs() []string {
	items := f.List()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ListingID
	}
	return ids
}

func (f *Favorites) Get(listingID string) (Favorite, bool) {
	for _, it := range f.List() {
		if it.ListingID == listingID {
			return it, true
		}
	}
	return Favorite{}, false
}

// Add stars a listing. Adding an existing favorite replaces its tags and
// keeps its position.
func (f *Favorites) Add(listingID string, tags []string) (Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	items := f.load()
	for i, it := range items {
		if it.ListingID == listingID {
			it.Tags = f.cleanTags(tags)
			it.UpdatedAt = now
			items[i] = it
			return it, storeJSON(f.kv, FavoritesKey, items)
		}
	}

	fav := Favorite{ListingID: listingID, Tags: f.cleanTags(tags), AddedAt: now, UpdatedAt: now}
	items = append([]Favorite{fav}, items...)
	return fav, storeJSON(f.kv, FavoritesKey, items)
}

// SetTags replaces the tags of an existing favorite.
func (f *Favorites) SetTags(listingID string, tags []string) (Favorite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.load()
	for i, it := range items {
		if it.ListingID == listingID {
			it.Tags = f.cleanTags(tags)
			it.UpdatedAt = f.now()
			items[i] = it
			return it, storeJSON(f.kv, FavoritesKey, items)
		}
	}
	return Favorite{}, ErrNotFound
}

func (f *Favorites) Remove(listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := f.load()
	for i, it := range items {
		if it.ListingID == listingID {
			items = append(items[:i], items[i+1:]...)
			return storeJSON(f.kv, FavoritesKey, items)
		}
	}
	return ErrNotFound
}

func (f *Favorites) cleanTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		cleaned = append(cleaned, strings.TrimSpace(html.UnescapeString(f.policy.Sanitize(t))))
	}
	out := models.CanonicalTags(cleaned)
	if out == nil {
		out = []string{}
	}
	return out
}
