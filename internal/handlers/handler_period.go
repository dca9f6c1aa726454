package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sahayog/shg_management_app/internal/apperrors"
	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
)

// periodHandler handles HTTP requests for periodic records, payments and
// the period close endpoint.
type periodHandler struct {
	periodService portssvc.PeriodSvcFacade
	closeService  portssvc.PeriodCloseSvcFacade
}

func newPeriodHandler(ps portssvc.PeriodSvcFacade, cs portssvc.PeriodCloseSvcFacade) *periodHandler {
	return &periodHandler{periodService: ps, closeService: cs}
}

// RegisterPeriodRoutes registers the period routes nested under a group.
func RegisterPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.PeriodSvcFacade, closeService portssvc.PeriodCloseSvcFacade) {
	h := newPeriodHandler(periodService, closeService)

	periods := rg.Group("/periods")
	{
		periods.GET("", h.listPeriods)
		periods.GET("/current", h.getCurrentPeriod)
		periods.POST("/:periodID/close", h.closePeriod)
		periods.POST("/:periodID/members/:memberID/payments", h.recordPayment)
	}
}

// listPeriods godoc
// @Summary List a group's periods
// @Tags periods
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {array} dto.PeriodResponse
// @Security BearerAuth
// @Router /groups/{groupID}/periods [get]
func (h *periodHandler) listPeriods(c *gin.Context) {
	periods, err := h.periodService.ListPeriods(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to list periods")
		return
	}
	c.JSON(http.StatusOK, periods)
}

// getCurrentPeriod godoc
// @Summary Get the group's open period with its contribution rows
// @Tags periods
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {object} dto.CurrentPeriodResponse
// @Failure 404 {object} map[string]string "No open period"
// @Security BearerAuth
// @Router /groups/{groupID}/periods/current [get]
func (h *periodHandler) getCurrentPeriod(c *gin.Context) {
	current, err := h.periodService.GetCurrentPeriod(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to get current period")
		return
	}
	c.JSON(http.StatusOK, current)
}

// recordPayment godoc
// @Summary Record a member's payment for the open period
// @Description Applies a payment to a member's contribution row; leader-only.
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   periodID path string true "Period ID"
// @Param   memberID path string true "Member ID"
// @Param   payment body dto.RecordPaymentRequest true "Payment amounts"
// @Success 200 {object} dto.ContributionResponse
// @Failure 403 {object} map[string]string "Not the group leader"
// @Failure 409 {object} map[string]string "Period already closed"
// @Security BearerAuth
// @Router /groups/{groupID}/periods/{periodID}/members/{memberID}/payments [post]
func (h *periodHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	contribution, err := h.periodService.RecordPayment(c.Request.Context(), c.Param("groupID"), c.Param("periodID"), c.Param("memberID"), req, userID)
	if err != nil {
		respondError(c, err, "Failed to record payment")
		return
	}
	c.JSON(http.StatusOK, contribution)
}

// closePeriod godoc
// @Summary Close a period
// @Description Runs the period closing procedure: recalculates late fines, writes the closing aggregates, rolls the group into its successor period and updates the group balances. Leader-only.
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   periodID path string true "Period ID"
// @Param   close body dto.ClosePeriodRequest true "Contribution snapshots and actual payments"
// @Success 200 {object} dto.ClosePeriodResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Not the group leader"
// @Failure 404 {object} map[string]string "Period not found"
// @Failure 409 {object} dto.ClosePeriodResponse "Period already closed (alreadyClosed flag set) or a concurrent close is in progress"
// @Security BearerAuth
// @Router /groups/{groupID}/periods/{periodID}/close [post]
func (h *periodHandler) closePeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ClosePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ClosePeriod", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	groupID := c.Param("groupID")
	periodID := c.Param("periodID")
	logger.Info("Received period close request",
		slog.String("group_id", groupID),
		slog.String("period_id", periodID),
		slog.Int("snapshot_rows", len(req.MemberContributions)))

	resp, err := h.closeService.ClosePeriod(c.Request.Context(), groupID, periodID, req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "alreadyClosed": true})
			return
		}
		respondError(c, err, "Failed to close period")
		return
	}
	if resp.AlreadyClosed {
		// Duplicate submission of a close that already went through: the
		// body still carries the closed record, the status says conflict.
		c.JSON(http.StatusConflict, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
