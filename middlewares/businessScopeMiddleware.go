package middlewares

import (
	"net/http"

	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/gin-gonic/gin"
)

// BusinessScopeMiddleware reads the explicit business scope from the
// X-Business-Id header, verifies the session user may act on it and threads
// it through the request context. Scope is never ambient: a request without
// the header is rejected before any handler runs.
func BusinessScopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.Request.Header.Get("X-Business-Id")
		if businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Business-Id header is required"})
			c.Abort()
			return
		}

		if err := models.AuthorizeBusinessAccess(c.Request.Context(), businessId); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "business access denied"})
			c.Abort()
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
