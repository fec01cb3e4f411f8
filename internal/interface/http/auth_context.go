package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/animuse/animuse/internal/domain/auth"
)

const authClaimsKey = "auth_claims"

func setClaims(c *gin.Context, claims auth.Claims) {
	c.Set(authClaimsKey, claims)
}

func getClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(authClaimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}

// currentUser aborts with 401 when the request carries no identity.
func currentUser(c *gin.Context) (string, bool) {
	claims, ok := getClaims(c)
	if !ok || claims.UserID == "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing user identity", nil))
		return "", false
	}
	return claims.UserID, true
}
