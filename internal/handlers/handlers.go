package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// listBounds reads limit/offset query parameters with sane bounds.
func listBounds(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
