package utils

import (
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// MaxOffset bounds the computed offset. Pages past it are simply empty.
const MaxOffset = math.MaxInt32

type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and limit from the query string. Missing,
// malformed or non-positive values fall back to page 1 and defaultLimit;
// limit is capped at maxLimit.
func ParsePagination(c *fiber.Ctx, defaultLimit, maxLimit int) PaginationParams {
	page := parseIntDefault(c.Query("page"), 1)
	limit := parseIntDefault(c.Query("limit"), defaultLimit)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	offset := MaxOffset
	if page-1 <= MaxOffset/limit {
		offset = (page - 1) * limit
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: offset,
	}
}

func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// PageSlice returns the window of items selected by p.
func PageSlice[T any](items []T, p PaginationParams) []T {
	if p.Offset < 0 || p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
