package web

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ParsePageParams reads the page and size query parameters, clamping them
// to sane bounds. Pages are 1-based.
func ParsePageParams(c *gin.Context) (page int, size int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err = strconv.Atoi(c.Query("size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func pageOffset(page, size int) int {
	return (page - 1) * size
}
