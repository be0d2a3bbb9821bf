package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"brauer/internal/core/apperror"
	"brauer/internal/core/id"
	"brauer/internal/core/tenant"
	"brauer/internal/infrastructure/storage/postgres"
)

const HeaderTenantID = "X-Tenant-ID"

// Tenant resolves the tenant from the X-Tenant-ID header and binds both the
// tenant ID and the transaction manager into the request context. Every
// repository query is scoped by this tenant ID.
func Tenant(txManager *postgres.TxManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderTenantID)
		if raw == "" {
			_ = c.Error(apperror.NewValidation("missing X-Tenant-ID header"))
			c.Abort()
			return
		}

		tenantUUID, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(apperror.NewValidation("invalid X-Tenant-ID header").
				WithDetail("tenant_id", raw))
			c.Abort()
			return
		}

		ctx := tenant.WithTenant(c.Request.Context(), id.ID(tenantUUID))
		ctx = tenant.WithTxManager(ctx, txManager)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
