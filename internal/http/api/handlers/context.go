package handlers

import "github.com/gin-gonic/gin"

// Context keys populated by the auth middleware.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
)

// CurrentUserID returns the authenticated user's ID, or 0 when the request
// carried no valid token.
func CurrentUserID(c *gin.Context) uint64 {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0
	}
	id, ok := v.(uint64)
	if !ok {
		return 0
	}
	return id
}
