package handlers

import (
	"net/http"
	"strconv"

	"github.com/j-greybard/arcadetracker/pkg/utils"

	"github.com/gin-gonic/gin"
)

// currentUserID returns the authenticated user's ID set by the auth
// middleware. The second return is false when the request is unauthenticated,
// which should not happen behind the middleware.
func currentUserID(c *gin.Context) (int64, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	userID, ok := value.(int64)
	return userID, ok
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return 0, false
	}
	return id, true
}

// parsePagination reads page/page_size query parameters with defaults.
func parsePagination(c *gin.Context) (int, int, bool) {
	page := 1
	pageSize := 20
	if pageStr := c.Query("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page format.", "page must be a positive integer"))
			return 0, 0, false
		}
		page = parsed
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		parsed, err := strconv.Atoi(pageSizeStr)
		if err != nil || parsed < 1 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page_size format.", "page_size must be a positive integer"))
			return 0, 0, false
		}
		pageSize = parsed
	}
	return page, pageSize, true
}
