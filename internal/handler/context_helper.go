package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/concept-review-api/internal/middleware"
	"github.com/noah-isme/concept-review-api/internal/models"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
	"github.com/noah-isme/concept-review-api/pkg/logger"
	"github.com/noah-isme/concept-review-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 and returns nil when the request carries no identity.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	c.Set(logger.ContextActorKey, claims.UserID)
	return claims
}
