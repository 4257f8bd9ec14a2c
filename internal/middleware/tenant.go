package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/service"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
	"github.com/noah-isme/skolara-api/pkg/response"
)

// Context keys for the resolved tenant. ContextTenantIDKey holds the bare id
// string so the logger can tag request lines without a type assertion.
const (
	ContextTenantKey   = "currentTenant"
	ContextTenantIDKey = "tenant_id"
)

// Tenant resolves the requesting school from a header carrying the tenant id
// or slug and pins it to the request context. Downstream queries trust this
// resolution and filter on the tenant id. Authenticated users bound to a
// tenant may only act within that tenant; platform admins may act in any.
func Tenant(tenants *service.TenantService, header string) gin.HandlerFunc {
	if header == "" {
		header = "X-Tenant-ID"
	}
	return func(c *gin.Context) {
		tenant, err := tenants.Resolve(c.Request.Context(), c.GetHeader(header))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if claimsValue, ok := c.Get(ContextUserKey); ok {
			claims := claimsValue.(*models.JWTClaims)
			if claims.Role != models.RolePlatformAdmin && claims.TenantID != tenant.ID {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token is not valid for this tenant"))
				c.Abort()
				return
			}
		}

		c.Set(ContextTenantKey, tenant)
		c.Set(ContextTenantIDKey, tenant.ID)
		c.Next()
	}
}

// TenantFrom returns the tenant pinned to the context.
func TenantFrom(c *gin.Context) (*models.Tenant, bool) {
	value, ok := c.Get(ContextTenantKey)
	if !ok {
		return nil, false
	}
	tenant, ok := value.(*models.Tenant)
	return tenant, ok
}
