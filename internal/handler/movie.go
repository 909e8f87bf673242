package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-catalog/internal/model"
)

// MovieService is what MovieHandler needs from the service layer.
type MovieService interface {
	FindByID(ctx context.Context, id uint64) (*model.Movie, error)
	Search(ctx context.Context, c model.MovieCriteria, page, size int) (*model.Page[model.Movie], error)
	Create(ctx context.Context, in model.MovieInput) (*model.Movie, error)
	Update(ctx context.Context, patch model.MovieInput) (*model.Movie, error)
	Delete(ctx context.Context, id uint64) error
}

// MovieHandler serves /api/movies.
type MovieHandler struct {
	svc MovieService
}

// NewMovieHandler panics on a nil service.
func NewMovieHandler(svc MovieService) *MovieHandler {
	if svc == nil {
		panic("nil service passed to NewMovieHandler")
	}
	return &MovieHandler{svc: svc}
}

// Get handles GET /api/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.FindByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMovieResponse(*m))
}

// Search handles POST /api/movies/all.  The body holds optional criteria;
// an empty body lists every movie.
func (h *MovieHandler) Search(c echo.Context) error {
	page, size, ok := parsePaging(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid paging")
	}
	var req movieRequest
	if err := bindOptional(c, &req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	p, err := h.svc.Search(c.Request().Context(), req.criteria(), page, size)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPageResponse(p, toMovieResponse))
}

// Create handles POST /api/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.Create(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMovieResponse(*m))
}

// Update handles PATCH /api/movies; the body must carry the id.
func (h *MovieHandler) Update(c echo.Context) error {
	var req movieRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "invalid request body")
	}
	m, err := h.svc.Update(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toMovieResponse(*m))
}

// Delete handles DELETE /api/movies/:id and removes the movie's orders too.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.String(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.String(http.StatusOK, "ok")
}
