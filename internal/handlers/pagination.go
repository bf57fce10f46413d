package handlers

import (
	"ocha/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// pageFromQuery reads ?page=&limit=. Missing or non-positive values fall
// back to the defaults and limit is capped.
func pageFromQuery(c *fiber.Ctx) repositories.Page {
	page := c.QueryInt("page", defaultPage)
	if page < 1 {
		page = defaultPage
	}
	limit := c.QueryInt("limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return repositories.Page{Number: page, Limit: limit}
}
