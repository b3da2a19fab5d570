package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/david/proper-search/internal/comps"
	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/export"
	"github.com/david/proper-search/internal/localstore"
	"github.com/david/proper-search/internal/market"
	"github.com/david/proper-search/internal/models"
	"github.com/david/proper-search/internal/search"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// fetchFailedNotice is shown with the empty result of a failed fetch.
const fetchFailedNotice = "Listings could not be loaded. Run the search again to retry."

// ListingStore is the read side of the listing database. *db.Store
// implements it.
type ListingStore interface {
	search.Fetcher
	comps.SoldSource
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	GetListings(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
	CitySuggestions(ctx context.Context, prefix string) ([]string, error)
}

type Server struct {
	Store    ListingStore
	Comps    *comps.Engine
	Echo     *echo.Echo
	Tunables config.Tunables

	sessions *sessionRegistry
}

func NewServer(store ListingStore, local localstore.KV, tun config.Tunables, origins []string) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Store:    store,
		Comps:    comps.NewEngine(store),
		Echo:     e,
		Tunables: tun,
		sessions: newSessionRegistry(store, local, tun),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/listings", s.handleListListings)
	api.GET("/listings/:id", s.handleGetListing)
	api.GET("/listings/:id/comps", s.handleGetComps)
	api.GET("/listings/:id/payment", s.handleGetPayment)
	api.GET("/stats", s.handleGetStats)
	api.GET("/cities", s.handleGetCities)
	api.POST("/export", s.handleExport)

	sessions := api.Group("/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.GET("/:sid", s.handleGetSession)
	sessions.DELETE("/:sid", s.handleDeleteSession)
	sessions.POST("/:sid/search", s.handleSessionSearch)
	sessions.POST("/:sid/query", s.handleSessionQuery)
	sessions.POST("/:sid/sort", s.handleSessionSort)
	sessions.POST("/:sid/select", s.handleSessionSelect)

	sessions.GET("/:sid/searches", s.handleListSavedSearches)
	sessions.POST("/:sid/searches", s.handleSaveSearch)
	sessions.DELETE("/:sid/searches/:id", s.handleDeleteSavedSearch)
	sessions.POST("/:sid/searches/:id/apply", s.handleApplySavedSearch)

	sessions.GET("/:sid/favorites", s.handleListFavorites)
	sessions.PUT("/:sid/favorites/:id", s.handlePutFavorite)
	sessions.DELETE("/:sid/favorites/:id", s.handleDeleteFavorite)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type listingsResponse struct {
	Listings []models.Listing `json:"listings"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
	Notice   string           `json:"notice,omitempty"`
}

// fetchEvaluated runs a stateless search: the store narrows the set and the
// evaluator applies the same predicate and the requested order.
func (s *Server) fetchEvaluated(c echo.Context) (*db.ListResult, []models.Listing, error) {
	req, err := parseSearchRequest(c, s.Tunables.Search.DefaultLimit)
	if err != nil {
		return nil, nil, err
	}
	key, err := search.ParseSort(req.Sort)
	if err != nil {
		return nil, nil, err
	}

	params := search.BuildParams(req.Query, req.Filters, req.Bounds, key, req.Limit)
	params.Offset = queryInt(c, "offset", 0)

	res, err := s.Store.ListListings(c.Request().Context(), params)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errFetch, err)
	}
	return res, search.Evaluate(res.Listings, search.Compile(req.Query, req.Filters), key), nil
}

var errFetch = errors.New("fetch listings")

func (s *Server) handleListListings(c echo.Context) error {
	res, items, err := s.fetchEvaluated(c)
	if errors.Is(err, errFetch) {
		c.Logger().Errorf("Failed to list listings: %v", err)
		return c.JSON(http.StatusBadGateway, listingsResponse{Listings: []models.Listing{}, Notice: fetchFailedNotice})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, listingsResponse{
		Listings: items,
		Total:    res.Total,
		Limit:    res.Limit,
		Offset:   res.Offset,
	})
}

func (s *Server) handleGetStats(c echo.Context) error {
	res, items, err := s.fetchEvaluated(c)
	if errors.Is(err, errFetch) {
		c.Logger().Errorf("Failed to load stats: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]interface{}{"stats": nil, "total": 0, "notice": fetchFailedNotice})
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"stats": market.Compute(items),
		"total": res.Total,
	})
}

func (s *Server) loadListing(c echo.Context) (*models.Listing, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid listing ID"})
	}

	l, err := s.Store.GetListing(c.Request().Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	if err != nil {
		c.Logger().Errorf("Failed to load listing %s: %v", id, err)
		return nil, c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to load listing"})
	}
	return l, nil
}

func (s *Server) handleGetListing(c echo.Context) error {
	l, err := s.loadListing(c)
	if l == nil {
		return err
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) handleGetComps(c echo.Context) error {
	subject, err := s.loadListing(c)
	if subject == nil {
		return err
	}

	def := s.Tunables.Comps
	params := comps.Params{
		RadiusMiles:   queryFloat(c, "radius", def.RadiusMiles),
		SqftTolerance: queryFloat(c, "tolerance", def.SqftTolerance),
		Limit:         queryInt(c, "limit", def.Limit),
	}

	res, err := s.Comps.Run(c.Request().Context(), *subject, params)
	switch {
	case errors.Is(err, comps.ErrInvalidParams):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, comps.ErrNoCoordinates), errors.Is(err, comps.ErrNoSquareFootage):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case err != nil:
		c.Logger().Errorf("Failed to find comps for %s: %v", subject.ID, err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to load comparable sales"})
	}

	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetPayment(c echo.Context) error {
	l, err := s.loadListing(c)
	if l == nil {
		return err
	}

	def := s.Tunables.Payment
	p, err := market.MonthlyPayment(
		l.Price,
		queryFloat(c, "down", def.DownPct),
		queryFloat(c, "rate", def.RatePct),
		queryInt(c, "years", def.Years),
	)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetCities(c echo.Context) error {
	cities, err := s.Store.CitySuggestions(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		c.Logger().Errorf("Failed to load city suggestions: %v", err)
		return c.JSON(http.StatusOK, []string{})
	}
	if cities == nil {
		cities = []string{}
	}
	return c.JSON(http.StatusOK, cities)
}

type exportRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleExport(c echo.Context) error {
	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "format must be csv or xlsx"})
	}

	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if len(req.IDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No listings selected"})
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Invalid listing ID %q", raw)})
		}
		ids = append(ids, id)
	}

	listings, err := s.Store.GetListings(c.Request().Context(), ids)
	if err != nil {
		c.Logger().Errorf("Failed to load export selection: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to load listings"})
	}

	resp := c.Response()
	if format == "xlsx" {
		resp.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="listings.xlsx"`)
		resp.WriteHeader(http.StatusOK)
		return export.WriteXLSX(resp, listings)
	}

	resp.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	resp.Header().Set(echo.HeaderContentDisposition, `attachment; filename="listings.csv"`)
	resp.WriteHeader(http.StatusOK)
	return export.WriteCSV(resp, listings)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

// Shutdown stops the HTTP server and every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.closeAll()
	return s.Echo.Shutdown(ctx)
}
