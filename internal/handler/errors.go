package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-catalog/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// statusOf maps a service error kind to its HTTP status.
func statusOf(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindInvalidValue, service.KindMissingField:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with a plain-text body.  Unclassified errors never
// leak their detail; the service has already logged it.
func writeError(c echo.Context, err error) error {
	var se *service.Error
	if errors.As(err, &se) && se.Kind != service.KindInternal {
		return c.String(statusOf(se.Kind), se.Message)
	}
	return c.String(http.StatusInternalServerError, "Internal error")
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil
}

// parsePaging reads ?page (zero based, default 0) and ?size (default 20,
// capped at 100).  A negative page is passed on so the service rejects it.
func parsePaging(c echo.Context) (page, size int, ok bool) {
	size = defaultPageSize
	if s := c.QueryParam("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		page = n
	}
	if s := c.QueryParam("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		size = n
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, true
}

// bindOptional decodes the JSON body into v when one was sent.
func bindOptional(c echo.Context, v any) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return (&echo.DefaultBinder{}).BindBody(c, v)
}
