package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/models"
	"github.com/david/proper-search/internal/viewport"
)

// ErrStale is returned when a response arrives after a newer search started.
var ErrStale = errors.New("search superseded by a newer request")

// Fetcher supplies listing snapshots. *db.Store implements it.
type Fetcher interface {
	ListListings(ctx context.Context, params db.ListParams) (*db.ListResult, error)
}

type Request struct {
	Query   string         `json:"query"`
	Filters models.Filters `json:"filters"`
	Sort    string         `json:"sort,omitempty"`
	Bounds  *models.Bounds `json:"bounds,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

// Snapshot is the published state of a session's current search.
type Snapshot struct {
	Seq        uint64           `json:"seq"`
	Request    Request          `json:"request"`
	Results    []models.Listing `json:"results"`
	Total      int              `json:"total"`
	Notice     string           `json:"notice,omitempty"`
	FitTrigger uint64           `json:"fit_trigger"`
	ActiveID   string           `json:"active_id,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`

	fetched []models.Listing
}

type SessionConfig struct {
	Debounce     time.Duration
	FetchTimeout time.Duration
	DefaultLimit int
	Viewport     viewport.Config
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Debounce:     180 * time.Millisecond,
		FetchTimeout: 10 * time.Second,
		DefaultLimit: db.DefaultLimit,
		Viewport:     viewport.DefaultConfig(),
	}
}

// Session owns one user's search: the current snapshot, the active
// selection and the map viewport state.
type Session struct {
	fetcher  Fetcher
	cfg      SessionConfig
	seq      Sequencer
	viewport *viewport.Synchronizer
	debounce *Debouncer

	mu         sync.Mutex
	snap       Snapshot
	fitTrigger uint64
	activeID   string
	zoom       float64
	pending    []viewport.Command
}

func NewSession(fetcher Fetcher, cfg SessionConfig) *Session {
	s := &Session{
		fetcher:  fetcher,
		cfg:      cfg,
		viewport: viewport.NewSynchronizer(cfg.Viewport),
		snap:     Snapshot{Results: []models.Listing{}},
	}
	s.debounce = NewDebouncer(cfg.Debounce, s.runDebounced)
	return s
}

// Search runs an explicit search. It raises the fit trigger, clears the
// active selection and returns the resulting viewport commands.
func (s *Session) Search(ctx context.Context, req Request) (Snapshot, []viewport.Command, error) {
	return s.run(ctx, req, true)
}

// SetQuery records free-text input. Only the last value after the debounce
// quiet period is searched; it does not re-fit the map.
func (s *Session) SetQuery(text string) {
	s.debounce.Trigger(text)
}

func (s *Session) runDebounced(text string) {
	s.mu.Lock()
	req := s.snap.Request
	s.mu.Unlock()
	req.Query = text

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
	defer cancel()

	_, cmds, err := s.run(ctx, req, false)
	if err != nil && !errors.Is(err, ErrStale) {
		log.Printf("[search] debounced query %q failed: %v", text, err)
	}

	if len(cmds) > 0 {
		s.mu.Lock()
		s.pending = append(s.pending, cmds...)
		s.mu.Unlock()
	}
}

func (s *Session) run(ctx context.Context, req Request, explicit bool) (Snapshot, []viewport.Command, error) {
	key, err := ParseSort(req.Sort)
	if err != nil {
		return s.Snapshot(), nil, err
	}
	req.Sort = string(key)
	if req.Limit <= 0 {
		req.Limit = s.cfg.DefaultLimit
	}

	seq := s.seq.Next()
	res, fetchErr := s.fetcher.ListListings(ctx, BuildParams(req.Query, req.Filters, req.Bounds, key, req.Limit))

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seq.IsLatest(seq) {
		return s.snap, nil, ErrStale
	}

	if explicit {
		s.fitTrigger++
		s.activeID = ""
	}

	next := Snapshot{
		Seq:        seq,
		Request:    req,
		Results:    []models.Listing{},
		FitTrigger: s.fitTrigger,
		UpdatedAt:  time.Now(),
	}

	if fetchErr != nil {
		next.Notice = "Search failed, showing no results. Run the search again to retry."
		s.snap = next
		log.Printf("[search] fetch failed (seq %d): %v", seq, fetchErr)
		return s.snap, nil, fmt.Errorf("fetch listings: %w", fetchErr)
	}

	next.fetched = res.Listings
	next.Results = Evaluate(res.Listings, Compile(req.Query, req.Filters), key)
	next.Total = res.Total
	s.snap = next

	cmds := s.syncLocked()
	return s.snap, cmds, nil
}

// Select marks a listing as active ("" clears the selection) and returns
// the resulting viewport commands.
func (s *Session) Select(id string) []viewport.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
	return s.syncLocked()
}

// SetZoom records the map's current zoom as reported by the client.
func (s *Session) SetZoom(z float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = z
}

// Resort reorders the current results without fetching.
func (s *Session) Resort(sortKey string) (Snapshot, error) {
	key, err := ParseSort(sortKey)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Request.Sort = string(key)
	s.snap.Results = Evaluate(s.snap.fetched, Compile(s.snap.Request.Query, s.snap.Request.Filters), key)
	return s.snap, nil
}

// Snapshot returns the current published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	snap.ActiveID = s.activeID
	return snap
}

// DrainCommands returns and clears viewport commands produced outside an
// explicit call, such as by debounced queries.
func (s *Session) DrainCommands() []viewport.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmds := s.pending
	s.pending = nil
	return cmds
}

func (s *Session) Close() {
	s.debounce.Stop()
}

func (s *Session) syncLocked() []viewport.Command {
	s.snap.ActiveID = s.activeID
	return s.viewport.Sync(viewport.Frame{
		FitTrigger:  s.fitTrigger,
		ActiveID:    s.activeID,
		Items:       s.snap.Results,
		CurrentZoom: s.zoom,
	})
}
