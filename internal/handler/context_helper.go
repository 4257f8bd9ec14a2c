package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skolara-api/internal/middleware"
	"github.com/noah-isme/skolara-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// tenantID returns the id of the tenant resolved by the tenant middleware.
// Routes registered behind that middleware can rely on it being non-empty.
func tenantID(c *gin.Context) string {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return ""
	}
	return tenant.ID
}
