package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
)

// memberHandler handles HTTP requests for member records.
type memberHandler struct {
	memberService portssvc.MemberSvcFacade
}

func newMemberHandler(ms portssvc.MemberSvcFacade) *memberHandler {
	return &memberHandler{memberService: ms}
}

// registerMemberRoutes registers the top-level member routes.
func registerMemberRoutes(rg *gin.RouterGroup, memberService portssvc.MemberSvcFacade) {
	h := newMemberHandler(memberService)

	members := rg.Group("/members")
	{
		members.POST("", h.createMember)
		members.GET("/:memberID", h.getMember)
	}

	// The caller's own member record; kept out of /members to avoid a
	// route clash with the :memberID wildcard.
	rg.GET("/users/me/member", h.getOwnMember)
}

// createMember godoc
// @Summary Create a member record
// @Description Creates a member, optionally linked to a login account.
// @Tags members
// @Accept  json
// @Produce  json
// @Param   member body dto.CreateMemberRequest true "Member details"
// @Success 201 {object} dto.MemberResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /members [post]
func (h *memberHandler) createMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateMember", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	member, err := h.memberService.CreateMember(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err, "Failed to create member")
		return
	}

	c.JSON(http.StatusCreated, dto.ToMemberResponse(member))
}

// getMember godoc
// @Summary Get a member
// @Tags members
// @Produce  json
// @Param   memberID path string true "Member ID"
// @Success 200 {object} dto.MemberResponse
// @Failure 404 {object} map[string]string "Member not found"
// @Security BearerAuth
// @Router /members/{memberID} [get]
func (h *memberHandler) getMember(c *gin.Context) {
	member, err := h.memberService.GetMemberByID(c.Request.Context(), c.Param("memberID"))
	if err != nil {
		respondError(c, err, "Failed to get member")
		return
	}
	c.JSON(http.StatusOK, dto.ToMemberResponse(member))
}

// getOwnMember godoc
// @Summary Get the caller's member record
// @Tags members
// @Produce  json
// @Success 200 {object} dto.MemberResponse
// @Failure 404 {object} map[string]string "No member record linked"
// @Security BearerAuth
// @Router /users/me/member [get]
func (h *memberHandler) getOwnMember(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	member, err := h.memberService.GetMemberForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to get member")
		return
	}
	c.JSON(http.StatusOK, dto.ToMemberResponse(member))
}
