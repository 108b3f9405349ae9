package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	OwnerIDHeader = "X-Owner-ID"
	ownerIDKey    = contextKey("owner_id")
)

// OwnerIdentity reads the authenticated owner id set by the upstream gateway.
// Requests without a valid positive id are rejected with 401.
func OwnerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(OwnerIDHeader)
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + OwnerIDHeader + " header"})
			return
		}
		c.Set(string(ownerIDKey), ownerID)
		c.Next()
	}
}

func OwnerIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(string(ownerIDKey))
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
