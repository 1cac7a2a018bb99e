package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-grades-api/internal/middleware"
	"github.com/noah-isme/classroom-grades-api/internal/models"
	appErrors "github.com/noah-isme/classroom-grades-api/pkg/errors"
	"github.com/noah-isme/classroom-grades-api/pkg/response"
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

// requireActor returns the authenticated user id or writes a 401.
func requireActor(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
