package api

import (
	"errors"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/localstore"
	"github.com/david/proper-search/internal/search"
	"github.com/david/proper-search/internal/viewport"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type sessionEntry struct {
	id      string
	session *search.Session
	saved   *localstore.SavedSearches
	favs    *localstore.Favorites

	lastSeen time.Time
}

// sessionRegistry holds live search sessions. Saved searches and favorites
// live in the local store under the session id, so a client that comes back
// with a known id after a restart gets its annotations back.
type sessionRegistry struct {
	fetcher search.Fetcher
	local   localstore.KV
	cfg     search.SessionConfig
	max     int
	idle    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func newSessionRegistry(fetcher search.Fetcher, local localstore.KV, tun config.Tunables) *sessionRegistry {
	return &sessionRegistry{
		fetcher: fetcher,
		local:   local,
		cfg:     tun.SessionConfig(),
		max:     tun.Session.MaxSessions,
		idle:    tun.SessionIdle(),
		now:     time.Now,
		entries: map[string]*sessionEntry{},
	}
}

var errInvalidSessionID = errors.New("invalid session id")

// open returns the live session for id, or starts one. An empty id gets a
// fresh one.
func (r *sessionRegistry) open(id string) (*sessionEntry, bool, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, false, errInvalidSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[id]; ok {
		e.lastSeen = now
		return e, false, nil
	}

	r.evictLocked(now)

	kv := localstore.Namespace(r.local, "session:"+id)
	e := &sessionEntry{
		id:       id,
		session:  search.NewSession(r.fetcher, r.cfg),
		saved:    localstore.NewSavedSearches(kv),
		favs:     localstore.NewFavorites(kv),
		lastSeen: now,
	}
	r.entries[id] = e
	return e, true, nil
}

func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if ok {
		e.lastSeen = r.now()
	}
	return e, ok
}

func (r *sessionRegistry) remove(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.session.Close()
	}
	return ok
}

func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		e.session.Close()
		delete(r.entries, id)
	}
}

// evictLocked drops idle sessions, then the least recently used ones until
// there is room for one more. A non-positive max means no cap.
func (r *sessionRegistry) evictLocked(now time.Time) {
	if r.idle > 0 {
		for id, e := range r.entries {
			if now.Sub(e.lastSeen) > r.idle {
				e.session.Close()
				delete(r.entries, id)
			}
		}
	}
	if r.max <= 0 || len(r.entries) < r.max {
		return
	}

	byAge := make([]*sessionEntry, 0, len(r.entries))
	for _, e := range r.entries {
		byAge = append(byAge, e)
	}
	sort.Slice(byAge, func(i, j int) bool { return byAge[i].lastSeen.Before(byAge[j].lastSeen) })
	for _, e := range byAge[:len(r.entries)-r.max+1] {
		e.session.Close()
		delete(r.entries, e.id)
	}
	log.Printf("[api] session limit %d reached, evicted oldest sessions", r.max)
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type sessionResponse struct {
	ID       string                  `json:"id"`
	Snapshot search.Snapshot         `json:"snapshot"`
	Commands []viewport.Command      `json:"commands"`
	Restored *localstore.SavedSearch `json:"restored,omitempty"`
}

func commandsOrEmpty(cmds []viewport.Command) []viewport.Command {
	if cmds == nil {
		return []viewport.Command{}
	}
	return cmds
}

func (s *Server) sessionFor(c echo.Context) (*sessionEntry, error) {
	e, ok := s.sessions.get(c.Param("sid"))
	if !ok {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	return e, nil
}

type createSessionRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	e, created, err := s.sessions.open(req.ID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if !created {
		return c.JSON(http.StatusOK, sessionResponse{ID: e.id, Snapshot: e.session.Snapshot(), Commands: []viewport.Command{}})
	}

	restored, ok := e.saved.Restore()
	if !ok {
		return c.JSON(http.StatusCreated, sessionResponse{ID: e.id, Snapshot: e.session.Snapshot(), Commands: []viewport.Command{}})
	}

	snap, cmds, err := e.session.Search(c.Request().Context(), search.Request{Query: restored.Query, Filters: restored.Filters})
	if err != nil {
		c.Logger().Errorf("Failed to restore saved search %s: %v", restored.ID, err)
	}
	return c.JSON(http.StatusCreated, sessionResponse{ID: e.id, Snapshot: snap, Commands: commandsOrEmpty(cmds), Restored: &restored})
}

func (s *Server) handleGetSession(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{
		ID:       e.id,
		Snapshot: e.session.Snapshot(),
		Commands: commandsOrEmpty(e.session.DrainCommands()),
	})
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if !s.sessions.remove(c.Param("sid")) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) runSessionSearch(c echo.Context, e *sessionEntry, req search.Request) error {
	if req.Filters.PropertyType != "" && !req.Filters.PropertyType.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown property type"})
	}

	snap, cmds, err := e.session.Search(c.Request().Context(), req)
	switch {
	case errors.Is(err, search.ErrStale):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, search.ErrUnknownSort):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		c.Logger().Errorf("Session %s search failed: %v", e.id, err)
		return c.JSON(http.StatusBadGateway, sessionResponse{ID: e.id, Snapshot: snap, Commands: []viewport.Command{}})
	}
	return c.JSON(http.StatusOK, sessionResponse{ID: e.id, Snapshot: snap, Commands: commandsOrEmpty(cmds)})
}

func (s *Server) handleSessionSearch(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	var req search.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	return s.runSessionSearch(c, e, req)
}

type queryRequest struct {
	Query string `json:"q"`
}

// handleSessionQuery records typed text; the search runs after the debounce
// window and its result is read back with GET on the session.
func (s *Server) handleSessionQuery(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	e.session.SetQuery(req.Query)
	return c.JSON(http.StatusAccepted, map[string]string{"status": "scheduled"})
}

type sortRequest struct {
	Sort string `json:"sort"`
}

func (s *Server) handleSessionSort(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	var req sortRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	snap, err := e.session.Resort(req.Sort)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, sessionResponse{ID: e.id, Snapshot: snap, Commands: []viewport.Command{}})
}

type selectRequest struct {
	ID   string  `json:"id"`
	Zoom float64 `json:"zoom"`
}

func (s *Server) handleSessionSelect(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Zoom > 0 {
		e.session.SetZoom(req.Zoom)
	}
	cmds := e.session.Select(req.ID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"active_id": req.ID,
		"commands":  commandsOrEmpty(cmds),
	})
}

func (s *Server) handleListSavedSearches(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}
	return c.JSON(http.StatusOK, e.saved.List())
}

type saveSearchRequest struct {
	Name       string `json:"name"`
	SelectedID string `json:"selected_id"`
}

// handleSaveSearch stores the session's current query and filters.
func (s *Server) handleSaveSearch(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	var req saveSearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	current := e.session.Snapshot().Request
	saved, err := e.saved.Save(req.Name, current.Query, current.Filters, req.SelectedID)
	if err != nil {
		c.Logger().Errorf("Failed to save search: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save search"})
	}
	return c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleDeleteSavedSearch(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	err = e.saved.Delete(c.Param("id"))
	if errors.Is(err, localstore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Saved search not found"})
	}
	if err != nil {
		c.Logger().Errorf("Failed to delete saved search: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete saved search"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleApplySavedSearch(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	saved, err := e.saved.Use(c.Param("id"))
	if errors.Is(err, localstore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Saved search not found"})
	}
	if err != nil {
		c.Logger().Errorf("Failed to apply saved search: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to apply saved search"})
	}

	current := e.session.Snapshot().Request
	return s.runSessionSearch(c, e, search.Request{
		Query:   saved.Query,
		Filters: saved.Filters,
		Sort:    current.Sort,
		Bounds:  current.Bounds,
		Limit:   current.Limit,
	})
}

func (s *Server) handleListFavorites(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}
	return c.JSON(http.StatusOK, e.favs.List())
}

type favoriteRequest struct {
	Tags []string `json:"tags"`
}

// handlePutFavorite stars a listing or replaces the tags of a starred one.
func (s *Server) handlePutFavorite(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid listing ID"})
	}

	var req favoriteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	fav, err := e.favs.Add(id.String(), req.Tags)
	if err != nil {
		c.Logger().Errorf("Failed to store favorite: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to store favorite"})
	}
	return c.JSON(http.StatusOK, fav)
}

func (s *Server) handleDeleteFavorite(c echo.Context) error {
	e, err := s.sessionFor(c)
	if e == nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid listing ID"})
	}

	err = e.favs.Remove(id.String())
	if errors.Is(err, localstore.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Favorite not found"})
	}
	if err != nil {
		c.Logger().Errorf("Failed to remove favorite: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to remove favorite"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "removed"})
}
