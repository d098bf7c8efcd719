// internal/api/auth_middleware.go
package api

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stillhouse/shotlist/internal/auth"
	"github.com/stillhouse/shotlist/internal/config"
)

var tokenConfig *auth.TokenConfig

// InitializeAuth initializes the authentication system with config
func InitializeAuth() error {
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	var secret []byte
	var err error

	if cfg.AuthSecretKey != "" {
		secret = []byte(cfg.AuthSecretKey)
	} else if cfg.DebugMode {
		// Use a consistent key during development to avoid session issues on restart
		secret = []byte("dev_auth_key_for_testing_purposes_only_")
		log.Printf("⚠️ 警告: 开发模式下使用固定认证密钥，生产环境请通过环境变量设置 AUTH_SECRET_KEY")
	} else {
		secret, err = auth.GenerateSecureKey(32)
		if err != nil {
			return fmt.Errorf("failed to generate auth key: %w", err)
		}
		log.Printf("Warning: generated an ephemeral auth key; tokens will not survive restarts. Set AUTH_SECRET_KEY to persist sessions.")
	}

	// Ensure the secret is exactly 32 bytes
	if len(secret) < 32 {
		paddedSecret := make([]byte, 32)
		copy(paddedSecret, secret)
		secret = paddedSecret
	} else if len(secret) > 32 {
		secret = secret[:32]
	}

	tokenConfig = &auth.TokenConfig{
		Secret:     secret,
		Expiration: 24 * time.Hour,
	}

	return nil
}

// AuthMiddleware resolves the Bearer token into the request context.
// It does not reject requests by itself; RequireAuth does that per group.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set("user_authenticated", false)
			c.Next()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		if token == "" {
			c.Set("user_authenticated", false)
			c.Next()
			return
		}

		parsedToken, err := auth.ParseToken(token, tokenConfig)
		if err != nil {
			log.Printf("AuthMiddleware: invalid token rejected (%v)", err)
			c.Set("user_authenticated", false)
			c.Set("auth_error", err.Error())
			c.Next()
			return
		}

		c.Set("user_id", parsedToken.UserID)
		c.Set("user_authenticated", true)

		c.Next()
	}
}

// RequireAuth aborts with 401 when no authenticated user is present.
// Pipeline stages must never be entered without an authenticated actor.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, authenticated := GetUserFromContext(c)
		if !authenticated || userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Authentication required",
				"code":    ErrorUnauthorized,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GenerateUserToken creates an authentication token for a user
func GenerateUserToken(userID string) (string, error) {
	if tokenConfig == nil {
		return "", fmt.Errorf("auth not initialized")
	}

	return auth.GenerateToken(userID, tokenConfig)
}

// GetUserFromContext retrieves the authenticated user from the context
func GetUserFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		return "", false
	}

	if authenticatedVal, exists := c.Get("user_authenticated"); exists {
		if authenticated, ok := authenticatedVal.(bool); ok {
			return userIDStr, authenticated
		}
	}

	return userIDStr, false
}
