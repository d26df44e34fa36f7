package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// GetPaginationParams reads limit/offset from the query string, clamping
// to sane bounds.
func GetPaginationParams(c echo.Context) PaginationParams {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return PaginationParams{
		Limit:  limit,
		Offset: offset,
	}
}
