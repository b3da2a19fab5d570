// Package viewport decides when a map should re-fit to the whole result set
// and when it should move to a single selected listing.
//
// The two intents travel on separate channels. A fit happens only when the
// caller raises FitTrigger (explicit search or filter apply); a pan happens
// only when ActiveID changes. Result-set changes and repeated frames never
// move the map on their own, so a user's manual pan and zoom survive clicks.
package viewport

import (
	"sync"

	"github.com/david/proper-search/internal/models"
)

type CommandKind string

const (
	CommandFit CommandKind = "fit"
	CommandPan CommandKind = "pan"
)

// Command is a single viewport change for the map to perform.
type Command struct {
	Kind     CommandKind    `json:"kind"`
	Bounds   *models.Bounds `json:"bounds,omitempty"`
	Padding  int            `json:"padding,omitempty"`
	Center   *models.LatLng `json:"center,omitempty"`
	Zoom     float64        `json:"zoom,omitempty"`
	TargetID string         `json:"target_id,omitempty"`
}

type Config struct {
	MinPanZoom  float64 `yaml:"min_pan_zoom"`
	DefaultZoom float64 `yaml:"default_zoom"`
	FitPadding  int     `yaml:"fit_padding"`
}

func DefaultConfig() Config {
	return Config{MinPanZoom: 13, DefaultZoom: 11, FitPadding: 50}
}

// Frame is what the caller currently shows: both trigger channels, the
// visible results and the map's current zoom (0 when unknown).
type Frame struct {
	FitTrigger  uint64
	ActiveID    string
	Items       []models.Listing
	CurrentZoom float64
}

// State records which trigger values have already been acted on.
type State struct {
	AppliedFit uint64 `json:"applied_fit"`
	ActiveID   string `json:"active_id"`
}

// Reduce is the pure transition function behind Synchronizer. Each channel
// yields at most one command per frame. When both fire, the fit comes first
// and the pan last so the selection is what stays on screen.
func Reduce(cfg Config, st State, f Frame) (State, []Command) {
	var cmds []Command

	// A trigger is consumed by the frame that first sees it, even when nothing
	// in it is plottable, so later result changes never fit.
	if f.FitTrigger > st.AppliedFit {
		if b, ok := boundsOf(f.Items); ok {
			cmds = append(cmds, Command{Kind: CommandFit, Bounds: &b, Padding: cfg.FitPadding})
		}
		st.AppliedFit = f.FitTrigger
	}

	if f.ActiveID != st.ActiveID {
		if f.ActiveID == "" {
			st.ActiveID = ""
		} else if target, ok := find(f.Items, f.ActiveID); ok {
			center := target.Position()
			cmds = append(cmds, Command{
				Kind:     CommandPan,
				Center:   &center,
				Zoom:     panZoom(cfg, f.CurrentZoom),
				TargetID: f.ActiveID,
			})
			st.ActiveID = f.ActiveID
		}
	}

	return st, cmds
}

// panZoom raises the zoom to the configured minimum but never lowers it.
func panZoom(cfg Config, current float64) float64 {
	if current <= 0 {
		current = cfg.DefaultZoom
	}
	if current < cfg.MinPanZoom {
		return cfg.MinPanZoom
	}
	return current
}

func boundsOf(items []models.Listing) (models.Bounds, bool) {
	var b models.Bounds
	found := false
	for _, l := range items {
		if !l.HasCoordinates() {
			continue
		}
		p := l.Position()
		if !found {
			b = models.Bounds{North: p.Lat, South: p.Lat, East: p.Lng, West: p.Lng}
			found = true
			continue
		}
		b = b.Extend(p)
	}
	return b, found
}

func find(items []models.Listing, id string) (models.Listing, bool) {
	for _, l := range items {
		if l.ID.String() == id && l.HasCoordinates() {
			return l, true
		}
	}
	return models.Listing{}, false
}

// Synchronizer holds State between frames.
type Synchronizer struct {
	cfg Config

	mu    sync.Mutex
	state State
}

func NewSynchronizer(cfg Config) *Synchronizer {
	return &Synchronizer{cfg: cfg}
}

// Sync applies a frame and returns the viewport changes it calls for.
func (s *Synchronizer) Sync(f Frame) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cmds []Command
	s.state, cmds = Reduce(s.cfg, s.state, f)
	return cmds
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
