package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatline/internal/service"
)

const (
	authClaimsKey = "auth_claims"
	ownerIDKey    = "owner_id"
)

// TokenVerifier valida un access token y devuelve sus claims.
type TokenVerifier interface {
	ParseAccessToken(token string) (service.Claims, error)
}

// JWTAuthMiddleware exige un bearer token valido y deja el owner en el contexto.
// Si allowQuery es true acepta ?access_token= (EventSource no envia headers).
func JWTAuthMiddleware(verifier TokenVerifier, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && allowQuery {
			token = strings.TrimSpace(c.Query("access_token"))
			ok = token != ""
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := verifier.ParseAccessToken(token)
		if err != nil || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(authClaimsKey, claims)
		c.Set(ownerIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

// ownerID devuelve el id del usuario autenticado.
func ownerID(c *gin.Context) (string, bool) {
	owner := c.GetString(ownerIDKey)
	return owner, owner != ""
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
