package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ben458-1/URL-Server-Monitor/dao/model"
	"github.com/ben458-1/URL-Server-Monitor/internal/resputil"
	"github.com/ben458-1/URL-Server-Monitor/internal/util"
)

const (
	KeyUserID = "x-user-id"
	KeyName   = "x-user-name"
	KeyRole   = "x-user-role"
)

// Auth validates the Bearer token and stores the caller's identity on the
// gin context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			resputil.HTTPError(c, http.StatusUnauthorized, "missing bearer token", resputil.TokenInvalid)
			return
		}

		claims, err := util.ParseToken(secret, token)
		if err != nil {
			code := resputil.TokenInvalid
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = resputil.TokenExpired
			}
			resputil.HTTPError(c, http.StatusUnauthorized, err.Error(), code)
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyName, claims.Name)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

// AdminRequired runs after Auth and rejects non-admin callers.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(KeyRole)
		if !ok || role.(model.Role) != model.RoleAdmin {
			resputil.HTTPError(c, http.StatusForbidden, "admin role required", resputil.UserNotAllowed)
			return
		}
		c.Next()
	}
}
