package middleware

import (
	"errors"
	"strings"

	"ambulance-finance/internal/models"
	"ambulance-finance/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const actorContextKey = "actor"

// ActorIdentity records who is performing a request when a valid bearer token
// is present. Requests without one proceed anonymously; access control lives
// in front of this service.
func ActorIdentity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, err := ParseActor(c.GetHeader("Authorization"), secret); err == nil {
			c.Set(actorContextKey, actor)
			c.Set("user_id", actor.ID)
		}
		c.Next()
	}
}

// ParseActor extracts the actor from an "Authorization: Bearer" header value.
func ParseActor(authHeader, secret string) (*models.Actor, error) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || tokenString == authHeader {
		return nil, errors.New("bearer token required")
	}
	if secret == "" {
		return nil, errors.New("token verification is not configured")
	}

	claims, err := utils.ValidateToken(tokenString, secret)
	if err != nil {
		return nil, err
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, errors.New("invalid user ID in token")
	}

	return &models.Actor{ID: userID, Name: claims.Name}, nil
}

// GetActor returns the request's actor, or nil for anonymous requests.
func GetActor(c *gin.Context) *models.Actor {
	value, exists := c.Get(actorContextKey)
	if !exists {
		return nil
	}
	actor, _ := value.(*models.Actor)
	return actor
}
