package common

import (
	"net/http"
	"strconv"
)

// ParseLimit reads the `limit` query parameter, falling back to def and
// capping at max.
func ParseLimit(r *http.Request, def, max int) int {
	limit := def
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
