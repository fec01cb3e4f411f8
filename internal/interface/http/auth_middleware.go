package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/animuse/animuse/internal/domain/auth"
	apperrors "github.com/animuse/animuse/pkg/errors"
)

// streamTokenParam carries the token for EventSource clients, which cannot
// set request headers.
const streamTokenParam = "access_token"

func authMiddleware(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header", nil))
			return
		}
		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			status := http.StatusForbidden
			code := apperrors.CodeInvalidToken
			if !apperrors.IsCode(err, apperrors.CodeInvalidToken) {
				status = http.StatusInternalServerError
				code = "auth_failed"
			}
			abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := strings.TrimSpace(c.Query(streamTokenParam)); q != "" && strings.HasSuffix(c.Request.URL.Path, "/stream") {
			return q, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
