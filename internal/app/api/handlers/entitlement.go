package handlers

import (
	"net/http"

	"github.com/fatflowers/subsync/internal/app/service/entitlement"
	"github.com/fatflowers/subsync/pkg/response"

	"github.com/gin-gonic/gin"
)

type EntitlementResult struct {
	UserID   string `json:"user_id"`
	Entitled bool   `json:"entitled"`
}

// @Summary      Entitlement check
// @Description  Reports whether a user may access paid features. Reads the local mirror only; fails closed.
// @Tags         Entitlement
// @Produce      json
// @Param        user_id path string true "User ID"
// @Success      200  {object}  response.APIResponse[EntitlementResult]
// @Router       /api/v1/users/{user_id}/entitlement [get]
func ApiGetEntitlement(svc *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}

		entitled, err := svc.IsEntitled(c.Request.Context(), userID)
		if err != nil {
			// Fail closed: report non-entitled alongside the error code.
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeError,
				&EntitlementResult{UserID: userID, Entitled: false}))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&EntitlementResult{UserID: userID, Entitled: entitled}))
	}
}

func RegisterEntitlementRoutes(r gin.IRouter, svc *entitlement.Service) {
	r.GET("/users/:user_id/entitlement", ApiGetEntitlement(svc))
}
