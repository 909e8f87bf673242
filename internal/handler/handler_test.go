package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-catalog/internal/handler"
	"github.com/iliyamo/cinema-catalog/internal/metrics"
	"github.com/iliyamo/cinema-catalog/internal/model"
	"github.com/iliyamo/cinema-catalog/internal/repository/repositorytest"
	"github.com/iliyamo/cinema-catalog/internal/router"
	"github.com/iliyamo/cinema-catalog/internal/service"
)

type orderJSON struct {
	ID           uint64 `json:"id"`
	MovieID      uint64 `json:"movieId"`
	OrderTime    string `json:"orderTime"`
	Participants int    `json:"participants"`
}

type movieJSON struct {
	ID          uint64      `json:"id"`
	Name        string      `json:"name"`
	ReleaseDate string      `json:"releaseDate"`
	Cost        int         `json:"cost"`
	Orders      []orderJSON `json:"orders"`
}

type pageJSON[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := repositorytest.NewStore(t)
	clock := func() time.Time { return time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC) }
	m := metrics.NewCatalogMetricsWithRegisterer(prometheus.NewRegistry())
	movies := service.NewMovieService(store, service.WithClock(clock), service.WithMetrics(m))
	orders := service.NewOrderService(store, service.WithClock(clock), service.WithMetrics(m))

	e := echo.New()
	router.RegisterRoutes(e, store, prometheus.NewRegistry())
	router.RegisterCatalog(e, handler.NewMovieHandler(movies), handler.NewOrderHandler(orders), router.CatalogMiddleware{})
	return e
}

func call(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCatalogLifecycle(t *testing.T) {
	e := newServer(t)

	rec := call(e, http.MethodPost, "/api/movies", `{"name":"Dune","releaseDate":"2021-10-22","cost":12}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dune := decode[movieJSON](t, rec)
	assert.NotZero(t, dune.ID)
	assert.Equal(t, "Dune", dune.Name)
	assert.Equal(t, "2021-10-22", dune.ReleaseDate)
	assert.NotNil(t, dune.Orders)
	assert.Empty(t, dune.Orders)

	rec = call(e, http.MethodPost, "/api/movies", `{"name":"Dune","releaseDate":"2024-03-01","cost":15}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already occupied")

	rec = call(e, http.MethodPost, "/api/movies", `{"name":"Dune: Part Two","releaseDate":"2024-03-01","cost":15}`)
	require.Equal(t, http.StatusOK, rec.Code)
	partTwo := decode[movieJSON](t, rec)

	// orderTime in the body is ignored on create.
	rec = call(e, http.MethodPost, "/api/orders", `{"movieId":`+itoa(dune.ID)+`,"participants":3,"orderTime":"1999-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := decode[orderJSON](t, rec)
	assert.Equal(t, dune.ID, order.MovieID)
	assert.Equal(t, "2024-05-01", order.OrderTime)
	assert.Equal(t, 3, order.Participants)

	rec = call(e, http.MethodGet, "/api/movies/"+itoa(dune.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[movieJSON](t, rec)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, order.ID, got.Orders[0].ID)

	rec = call(e, http.MethodPost, "/api/movies/all?page=0&size=1", `{"name":"Dune"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[pageJSON[movieJSON]](t, rec)
	assert.Equal(t, int64(2), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.Size)
	require.Len(t, page.Content, 1)

	rec = call(e, http.MethodPost, "/api/movies/all", `{"name":"dune"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[pageJSON[movieJSON]](t, rec).Content)

	rec = call(e, http.MethodPost, "/api/movies/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[pageJSON[movieJSON]](t, rec)
	assert.Equal(t, int64(2), all.TotalElements)
	assert.Equal(t, 20, all.Size)

	rec = call(e, http.MethodPatch, "/api/movies", `{"id":`+itoa(partTwo.ID)+`,"cost":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, decode[movieJSON](t, rec).Cost)

	rec = call(e, http.MethodPatch, "/api/orders", `{"id":`+itoa(order.ID)+`,"participants":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "participants should be greater than 0", rec.Body.String())

	rec = call(e, http.MethodPost, "/api/orders/all", `{"movieId":`+itoa(dune.ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[pageJSON[orderJSON]](t, rec).Content, 1)

	rec = call(e, http.MethodDelete, "/api/movies/"+itoa(dune.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/api/movies/"+itoa(dune.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/api/orders/"+itoa(order.ID), "").Code)
	assert.Equal(t, http.StatusNotFound, call(e, http.MethodDelete, "/api/orders/"+itoa(order.ID), "").Code)
}

func TestBadRequests(t *testing.T) {
	e := newServer(t)

	tests := []struct {
		name, method, target, body string
		status                     int
		message                    string
	}{
		{"non numeric id", http.MethodGet, "/api/movies/abc", "", http.StatusBadRequest, "invalid id"},
		{"negative id", http.MethodDelete, "/api/orders/-1", "", http.StatusBadRequest, "invalid id"},
		{"broken json", http.MethodPost, "/api/movies", `{"name":`, http.StatusBadRequest, "invalid request body"},
		{"bad date", http.MethodPost, "/api/movies", `{"name":"X","releaseDate":"22/10/2021","cost":1}`, http.StatusBadRequest, "invalid request body"},
		{"bad paging", http.MethodPost, "/api/movies/all?page=x", "", http.StatusBadRequest, "invalid paging"},
		{"page overflow", http.MethodPost, "/api/movies/all?page=4611686018427387904&size=2", "", http.StatusBadRequest, "page 4611686018427387904 is out of range"},
		{"date with trailing garbage", http.MethodPost, "/api/movies", `{"name":"X","releaseDate":"2024-01-01garbage","cost":1}`, http.StatusBadRequest, "invalid request body"},
		{"negative page", http.MethodPost, "/api/orders/all?page=-1", "", http.StatusBadRequest, ""},
		{"missing fields", http.MethodPost, "/api/movies", `{"name":"X"}`, http.StatusBadRequest, ""},
		{"update without id", http.MethodPatch, "/api/movies", `{"cost":3}`, http.StatusBadRequest, ""},
		{"order for unknown movie", http.MethodPost, "/api/orders", `{"movieId":999,"participants":1}`, http.StatusNotFound, "movie 999 not found"},
		{"unknown movie", http.MethodGet, "/api/movies/42", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(e, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.Equal(t, tt.message, rec.Body.String())
			}
		})
	}
}

type brokenMovies struct{}

func (brokenMovies) FindByID(context.Context, uint64) (*model.Movie, error) {
	return nil, errors.New("connection reset by peer")
}
func (brokenMovies) Search(context.Context, model.MovieCriteria, int, int) (*model.Page[model.Movie], error) {
	return nil, errors.New("connection reset by peer")
}
func (brokenMovies) Create(context.Context, model.MovieInput) (*model.Movie, error) {
	return nil, service.NewError(service.KindInternal, "tx aborted")
}
func (brokenMovies) Update(context.Context, model.MovieInput) (*model.Movie, error) {
	return nil, errors.New("boom")
}
func (brokenMovies) Delete(context.Context, uint64) error { return errors.New("boom") }

func TestUnclassifiedErrorsAreHidden(t *testing.T) {
	e := echo.New()
	e.GET("/movies/:id", handler.NewMovieHandler(brokenMovies{}).Get)
	e.POST("/movies", handler.NewMovieHandler(brokenMovies{}).Create)

	rec := call(e, http.MethodGet, "/movies/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error", rec.Body.String())

	rec = call(e, http.MethodPost, "/movies", `{"name":"X"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal error", rec.Body.String())
}

func TestNilServicePanics(t *testing.T) {
	assert.Panics(t, func() { handler.NewMovieHandler(nil) })
	assert.Panics(t, func() { handler.NewOrderHandler(nil) })
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestProbes(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", handler.Health)
	e.GET("/up", handler.Ready(pinger{}))
	e.GET("/down", handler.Ready(pinger{err: errors.New("refused")}))

	rec := call(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = call(e, http.MethodGet, "/up", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	rec = call(e, http.MethodGet, "/down", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database unavailable", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	e := newServer(t)
	rec := call(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }
