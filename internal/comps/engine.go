package comps

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/models"
)

var (
	ErrNoCoordinates   = errors.New("subject listing has no usable coordinates")
	ErrNoSquareFootage = errors.New("subject listing has no square footage")
	ErrInvalidParams   = errors.New("invalid comps parameters")
)

// Params controls a comps search.
type Params struct {
	RadiusMiles   float64 `json:"radius_miles" yaml:"radius_miles"`
	SqftTolerance float64 `json:"sqft_tolerance" yaml:"sqft_tolerance"`
	Limit         int     `json:"limit" yaml:"limit"`
}

func DefaultParams() Params {
	return Params{RadiusMiles: 0.5, SqftTolerance: 0.2, Limit: 15}
}

// Validate fills zero fields from DefaultParams and rejects negative ones.
func (p Params) Validate() (Params, error) {
	def := DefaultParams()
	if p.RadiusMiles < 0 || p.SqftTolerance < 0 || p.SqftTolerance >= 1 || p.Limit < 0 {
		return p, fmt.Errorf("%w: radius=%v tolerance=%v limit=%d", ErrInvalidParams, p.RadiusMiles, p.SqftTolerance, p.Limit)
	}
	if p.RadiusMiles == 0 {
		p.RadiusMiles = def.RadiusMiles
	}
	if p.SqftTolerance == 0 {
		p.SqftTolerance = def.SqftTolerance
	}
	if p.Limit == 0 {
		p.Limit = def.Limit
	}
	return p, nil
}

func checkSubject(subject models.Listing) error {
	if !subject.HasCoordinates() {
		return ErrNoCoordinates
	}
	if subject.Sqft <= 0 {
		return ErrNoSquareFootage
	}
	return nil
}

// Find ranks candidates as comparable sales for subject: sold, plottable,
// inside the radius and the square-footage window. Results are ordered
// nearest first and cut to p.Limit. No match is an empty slice, not an error.
func Find(subject models.Listing, candidates []models.Listing, p Params) ([]models.Comp, error) {
	if err := checkSubject(subject); err != nil {
		return nil, err
	}

	box := Bounds(subject.Position(), p.RadiusMiles)
	minSqft, maxSqft := SqftRange(subject.Sqft, p.SqftTolerance)

	out := []models.Comp{}
	for _, c := range candidates {
		if c.ID == subject.ID || c.Status != models.StatusSold || !c.HasCoordinates() {
			continue
		}
		if !box.Contains(c.Position()) || c.Sqft < minSqft || c.Sqft > maxSqft {
			continue
		}
		d := Haversine(subject.Lat, subject.Lng, c.Lat, c.Lng)
		if d > p.RadiusMiles {
			continue
		}
		out = append(out, models.Comp{Listing: c, DistanceMiles: d})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMiles < out[j].DistanceMiles
	})
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, nil
}

// SoldSource returns sold listings inside a box and square-footage window.
// *db.Store implements it.
type SoldSource interface {
	ListSold(ctx context.Context, params db.SoldParams) ([]models.Listing, error)
}

// Result is a comps search together with its value estimate.
type Result struct {
	SubjectID string        `json:"subject_id"`
	Params    Params        `json:"params"`
	Comps     []models.Comp `json:"comps"`
	ARV       *ARV          `json:"arv"`
}

type Engine struct {
	src SoldSource
}

func NewEngine(src SoldSource) *Engine {
	return &Engine{src: src}
}

// Run fetches a candidate pool for subject and ranks it with Find. The pool
// is larger than the limit so that nearest-first ranking has room to work.
func (e *Engine) Run(ctx context.Context, subject models.Listing, p Params) (*Result, error) {
	p, err := p.Validate()
	if err != nil {
		return nil, err
	}
	if err := checkSubject(subject); err != nil {
		return nil, err
	}

	minSqft, maxSqft := SqftRange(subject.Sqft, p.SqftTolerance)
	candidates, err := e.src.ListSold(ctx, db.SoldParams{
		Bounds:  Bounds(subject.Position(), p.RadiusMiles),
		MinSqft: minSqft,
		MaxSqft: maxSqft,
		Limit:   poolSize(p.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sold candidates: %w", err)
	}

	found, err := Find(subject, candidates, p)
	if err != nil {
		return nil, err
	}

	return &Result{
		SubjectID: subject.ID.String(),
		Params:    p,
		Comps:     found,
		ARV:       EstimateARV(subject.Sqft, found),
	}, nil
}

func poolSize(limit int) int {
	n := limit * 10
	if n < 200 {
		n = 200
	}
	if n > db.MaxLimit {
		n = db.MaxLimit
	}
	return n
}
