package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// signatureCtxKey is the Gin context key used to store the request signature.
const signatureCtxKey = "line_signature"

// RequireSignature rejects requests that carry no X-Line-Signature header.
// Verification itself happens in the dispatcher, which owns the secret.
func RequireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		sig := strings.TrimSpace(c.GetHeader(SignatureHeader))
		if sig == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
			return
		}
		c.Set(signatureCtxKey, sig)
		c.Next()
	}
}

// Signature returns the signature header captured by RequireSignature.
func Signature(c *gin.Context) string {
	v, _ := c.Get(signatureCtxKey)
	s, _ := v.(string)
	return s
}

// RequireAPIKey guards operator endpoints with a single X-API-Key.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if key == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
