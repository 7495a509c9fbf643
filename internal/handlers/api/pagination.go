package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/params"
	"github.com/spf13/cast"
)

type pagination struct {
	Page  int
	Limit int
}

func (p pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p pagination) TotalPages(total int64) int {
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}

// parsePagination reads the page and limit query params. Invalid values
// fall back to the defaults, limit is capped at params.MaxPageSize.
func parsePagination(ctx *fiber.Ctx) pagination {
	page := cast.ToInt(ctx.Query("page"))
	if page < 1 {
		page = 1
	}
	limit := cast.ToInt(ctx.Query("limit"))
	if limit < 1 {
		limit = params.DefaultPageSize
	}
	if limit > params.MaxPageSize {
		limit = params.MaxPageSize
	}
	return pagination{Page: page, Limit: limit}
}

func parseID(ctx *fiber.Ctx, name string) (uint, bool) {
	id, err := cast.ToUintE(ctx.Params(name))
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
