package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/toyohara-midori/dcin/internal/core/apperror"
	appctx "github.com/toyohara-midori/dcin/internal/core/context"
)

const HeaderUserID = "X-User-ID"

// UserContext extracts the operator identity set by the upstream portal and
// places it in the request context. Requests without it are rejected:
// staging ownership and the voucher operator stamp both require it.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			_ = c.Error(apperror.NewValidation("missing " + HeaderUserID + " header"))
			c.Abort()
			return
		}

		ctx := appctx.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
