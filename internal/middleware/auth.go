package middleware

import (
	"errors"
	"net/http"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storytopia-server/internal/models"
	"storytopia-server/internal/repository"
)

const (
	// ContextUserKey is the gin context key the resolved user is stored under.
	ContextUserKey = "currentUser"
	// ContextUserIDKey is the gin context key for the verified Firebase UID.
	ContextUserIDKey = "currentUserID"
)

// TokenVerifier verifies a Firebase ID token and returns its claims.
type TokenVerifier interface {
	VerifyIDToken(ctx *gin.Context, idToken string) (*firebaseauth.Token, error)
}

// firebaseVerifier adapts the Firebase auth client to TokenVerifier.
type firebaseVerifier struct {
	client *firebaseauth.Client
}

func (v *firebaseVerifier) VerifyIDToken(c *gin.Context, idToken string) (*firebaseauth.Token, error) {
	return v.client.VerifyIDToken(c.Request.Context(), idToken)
}

// NewFirebaseVerifier wraps a Firebase auth client as a TokenVerifier.
func NewFirebaseVerifier(client *firebaseauth.Client) TokenVerifier {
	return &firebaseVerifier{client: client}
}

// Auth returns a middleware that requires a Bearer Firebase ID token,
// verifies it and resolves the caller's user document into the context.
// Requests without a valid token get 401; a valid token whose user document
// does not exist gets 404.
func Auth(verifier TokenVerifier, users repository.UserRepository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		decoded, err := verifier.VerifyIDToken(c, token)
		if err != nil {
			log.Warn("Token verification failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := users.GetByID(c.Request.Context(), decoded.UID)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			log.Error("Failed to load user for token", zap.String("uid", decoded.UID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(ContextUserIDKey, decoded.UID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user resolved by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}
