package handlers

import (
	"net/http"
	"strconv"

	"github.com/fatflowers/subsync/internal/app/service/audit"
	"github.com/fatflowers/subsync/internal/app/service/statistics"
	"github.com/fatflowers/subsync/internal/app/service/store"
	"github.com/fatflowers/subsync/pkg/response"

	"github.com/gin-gonic/gin"
)

// @Summary      Run batch audit
// @Description  Scans all entitled rows and re-validates each against Stripe. Dry run by default; pass apply=true to write corrections.
// @Tags         Admin
// @Produce      json
// @Param        apply query bool false "Apply corrections (default false: report only)"
// @Success      200  {object}  response.APIResponse[audit.ScanSummary]
// @Router       /api/v1/admin/audit [post]
func ApiRunAudit(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		apply, _ := strconv.ParseBool(c.Query("apply"))
		summary, err := svc.RunScan(c.Request.Context(), apply, "admin")
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(summary))
	}
}

// @Summary      Audit one user
// @Description  Targeted re-validation of a single user's entitlement claim.
// @Tags         Admin
// @Produce      json
// @Param        user_id path string true "User ID"
// @Param        apply query bool false "Apply correction (default false)"
// @Success      200  {object}  response.APIResponse[reconcile.AuditResult]
// @Router       /api/v1/admin/audit/users/{user_id} [post]
func ApiAuditUser(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		apply, _ := strconv.ParseBool(c.Query("apply"))
		res := svc.AuditUser(c.Request.Context(), userID, apply)
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List subscriptions
// @Description  Paginated subscription listing with filters, for admin pages.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body store.ScanSubscriptionsRequest true "Scan request"
// @Success      200  {object}  response.APIResponse[store.ScanSubscriptionsResponse]
// @Router       /api/v1/admin/subscriptions/scan [post]
func ApiScanSubscriptions(scanner store.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req store.ScanSubscriptionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := scanner.ScanSubscriptions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Subscription statistics
// @Description  Current subscription counts grouped by status.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[statistics.StatusCounts]
// @Router       /api/v1/admin/statistics [get]
func ApiStatistics(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := svc.CurrentCounts(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(counts))
	}
}

func RegisterAdminRoutes(r gin.IRouter, auditSvc *audit.Service, scanner store.Scanner, stats *statistics.Service) {
	r.POST("/audit", ApiRunAudit(auditSvc))
	r.POST("/audit/users/:user_id", ApiAuditUser(auditSvc))
	r.POST("/subscriptions/scan", ApiScanSubscriptions(scanner))
	r.GET("/statistics", ApiStatistics(stats))
}
