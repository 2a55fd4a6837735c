package http

import (
	"net/http"
	"strings"

	"github.com/error-99/videocall/internal/auth"
	"github.com/error-99/videocall/internal/domain"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthRequired verifies the bearer token and stashes the decoded identity
// in the request context. Everything past this middleware may trust it.
func AuthRequired(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		ctx.Set(identityKey, claims.Identity())
		ctx.Next()
	}
}

func identityFrom(ctx *gin.Context) (domain.Identity, bool) {
	value, ok := ctx.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}
