// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-catalog/internal/handler"
)

// RegisterRoutes registers the operational endpoints: liveness, readiness
// against the store, and the Prometheus scrape endpoint for gatherer.
func RegisterRoutes(e *echo.Echo, store handler.Pinger, gatherer prometheus.Gatherer) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(store))
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// CatalogMiddleware holds the optional middleware of the /api group.  Nil
// entries are skipped.
type CatalogMiddleware struct {
	RateLimit echo.MiddlewareFunc // every /api route
	Cache     echo.MiddlewareFunc // every /api route; caches GETs only
	Purge     echo.MiddlewareFunc // mutations only
}

// RegisterCatalog registers the movie and order endpoints under /api.
// Searches are POSTs with a criteria body and never purge the cache.
func RegisterCatalog(e *echo.Echo, movies *handler.MovieHandler, orders *handler.OrderHandler, mw CatalogMiddleware) {
	api := e.Group("/api")
	for _, m := range []echo.MiddlewareFunc{mw.RateLimit, mw.Cache} {
		if m != nil {
			api.Use(m)
		}
	}
	var purge []echo.MiddlewareFunc
	if mw.Purge != nil {
		purge = append(purge, mw.Purge)
	}

	mg := api.Group("/movies")
	mg.GET("/:id", movies.Get)
	mg.POST("/all", movies.Search)
	mg.POST("", movies.Create, purge...)
	mg.PATCH("", movies.Update, purge...)
	mg.DELETE("/:id", movies.Delete, purge...)

	og := api.Group("/orders")
	og.GET("/:id", orders.Get)
	og.POST("/all", orders.Search)
	og.POST("", orders.Create, purge...)
	og.PATCH("", orders.Update, purge...)
	og.DELETE("/:id", orders.Delete, purge...)
}
