package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/identity"
	"github.com/EduCore-2025/exam-engine/internal/repositories"
)

// ParseUintParam parses a numeric path parameter; on failure it writes the 400
// response and returns ok=false.
func ParseUintParam(c *gin.Context, param string) (uint, bool) {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

// ParseLeaderboardFilters reads limit/offset query parameters with sane caps.
func ParseLeaderboardFilters(c *gin.Context, defaultLimit int) repositories.LeaderboardFilters {
	filters := repositories.LeaderboardFilters{Limit: defaultLimit}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil && limit > 0 && limit <= 200 {
		filters.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filters.Offset = offset
	}
	return filters
}

// CurrentIdentity returns the identity placed in the context by the auth
// middleware. ok=false means the middleware did not run on this route.
func CurrentIdentity(c *gin.Context) (*identity.Identity, bool) {
	value, exists := c.Get(identityContextKey)
	if !exists {
		return nil, false
	}
	id, ok := value.(*identity.Identity)
	return id, ok
}
