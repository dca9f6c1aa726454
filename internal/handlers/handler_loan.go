package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
)

// loanHandler handles HTTP requests for loans.
type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

func newLoanHandler(ls portssvc.LoanSvcFacade) *loanHandler {
	return &loanHandler{loanService: ls}
}

// registerLoanRoutes registers the loan routes nested under a group.
func registerLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := newLoanHandler(loanService)

	loans := rg.Group("/loans")
	{
		loans.GET("", h.listLoans)
		loans.POST("", h.createLoan)
		loans.POST("/:loanID/repayments", h.recordRepayment)
	}
}

// listLoans godoc
// @Summary List a group's loans
// @Tags loans
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {array} dto.LoanResponse
// @Security BearerAuth
// @Router /groups/{groupID}/loans [get]
func (h *loanHandler) listLoans(c *gin.Context) {
	loans, err := h.loanService.ListLoans(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to list loans")
		return
	}
	c.JSON(http.StatusOK, loans)
}

// createLoan godoc
// @Summary Issue a loan to a group member
// @Description Issues a loan and mirrors the principal onto the membership bookkeeping; leader-only.
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   loan body dto.CreateLoanRequest true "Loan details"
// @Success 201 {object} dto.LoanResponse
// @Failure 403 {object} map[string]string "Not the group leader"
// @Security BearerAuth
// @Router /groups/{groupID}/loans [post]
func (h *loanHandler) createLoan(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateLoan", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	loan, err := h.loanService.CreateLoan(c.Request.Context(), c.Param("groupID"), req, userID)
	if err != nil {
		respondError(c, err, "Failed to create loan")
		return
	}
	c.JSON(http.StatusCreated, dto.ToLoanResponse(loan))
}

// recordRepayment godoc
// @Summary Record a loan repayment
// @Description Reduces the loan balance, closing the loan when fully repaid; leader-only.
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   loanID path string true "Loan ID"
// @Param   repayment body dto.RecordRepaymentRequest true "Repayment amount"
// @Success 200 {object} dto.LoanResponse
// @Failure 403 {object} map[string]string "Not the group leader"
// @Failure 404 {object} map[string]string "Loan not found"
// @Security BearerAuth
// @Router /groups/{groupID}/loans/{loanID}/repayments [post]
func (h *loanHandler) recordRepayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordRepayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	loan, err := h.loanService.RecordRepayment(c.Request.Context(), c.Param("groupID"), c.Param("loanID"), req, userID)
	if err != nil {
		respondError(c, err, "Failed to record repayment")
		return
	}
	c.JSON(http.StatusOK, dto.ToLoanResponse(loan))
}
