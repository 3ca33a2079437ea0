package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/middleware"
	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/service"
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

// actorFromContext resolves the acting registrar from the JWT claims set by
// the auth middleware. Ownership records and audit trails carry both the ID
// and the display name.
func actorFromContext(c *gin.Context) service.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{ID: claims.UserID, Name: claims.DisplayName()}
}
