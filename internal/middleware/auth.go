package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/demandboard/backend/internal/auth"
	"github.com/emilythestrangee/demandboard/backend/internal/database"
	"github.com/emilythestrangee/demandboard/backend/internal/models"
)

const (
	identityKey = "identity"
	userKey     = "user"
	// UserIDKey is also read by the request logger.
	UserIDKey = "user_id"
)

// TokenVerifier is the identity gate as the middleware sees it.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

type UserLookup interface {
	UserByIdentity(ctx context.Context, identityRef string) (*models.User, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    msg,
		"category": "authentication",
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

// Authenticate only checks the bearer token. Routes that may run before
// the user exists (the first sync) use it.
func Authenticate(gate TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Unauthorized")
			return
		}

		id, err := gate.Verify(token)
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireUser checks the token and resolves it to a known user.
func RequireUser(gate TokenVerifier, users UserLookup, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			unauthorized(c, "Unauthorized")
			return
		}

		id, err := gate.Verify(token)
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}

		user, err := users.UserByIdentity(c.Request.Context(), id.Subject)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				unauthorized(c, "User not found")
				return
			}
			log.WithError(err).Error("resolving user for token")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(identityKey, id)
		c.Set(userKey, user)
		c.Set(UserIDKey, user.ID.String())
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}
