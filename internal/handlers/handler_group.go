package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/sahayog/shg_management_app/internal/core/ports/services"
	"github.com/sahayog/shg_management_app/internal/dto"
	"github.com/sahayog/shg_management_app/internal/middleware"
)

// groupHandler handles HTTP requests related to groups, their roster and
// fine rules.
type groupHandler struct {
	groupService  portssvc.GroupSvcFacade
	memberService portssvc.MemberSvcFacade
}

func newGroupHandler(gs portssvc.GroupSvcFacade, ms portssvc.MemberSvcFacade) *groupHandler {
	return &groupHandler{groupService: gs, memberService: ms}
}

// registerGroupRoutes registers routes for groups and everything nested
// under a specific group: roster, fine rules, periods and loans.
func registerGroupRoutes(rg *gin.RouterGroup, groupService portssvc.GroupSvcFacade, memberService portssvc.MemberSvcFacade, periodService portssvc.PeriodSvcFacade, closeService portssvc.PeriodCloseSvcFacade, loanService portssvc.LoanSvcFacade) {
	h := newGroupHandler(groupService, memberService)

	groups := rg.Group("/groups")
	{
		groups.POST("", h.createGroup)
		groups.GET("", h.listGroups)
	}

	groupSpecific := rg.Group("/groups/:groupID")
	{
		groupSpecific.GET("", h.getGroup)
		groupSpecific.PUT("", h.updateGroup)
		groupSpecific.DELETE("", h.deleteGroup)
		groupSpecific.GET("/summary", h.getGroupSummary)

		groupMembers := groupSpecific.Group("/members")
		{
			groupMembers.GET("", h.listGroupMembers)
			groupMembers.POST("", h.addGroupMember)
		}

		fineRules := groupSpecific.Group("/fine-rules")
		{
			fineRules.GET("", h.listFineRules)
			fineRules.PUT("", h.replaceFineRule)
		}

		RegisterPeriodRoutes(groupSpecific, periodService, closeService)
		registerLoanRoutes(groupSpecific, loanService)
	}
}

// createGroup godoc
// @Summary Create a new group
// @Description Creates a group and enrols its leader as the first member.
// @Tags groups
// @Accept  json
// @Produce  json
// @Param   group body dto.CreateGroupRequest true "Group details"
// @Success 201 {object} dto.GroupResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /groups [post]
func (h *groupHandler) createGroup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateGroup", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	group, err := h.groupService.CreateGroup(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, err, "Failed to create group")
		return
	}

	c.JSON(http.StatusCreated, dto.ToGroupResponse(group))
}

// listGroups godoc
// @Summary List the caller's groups
// @Tags groups
// @Produce  json
// @Success 200 {array} dto.GroupResponse
// @Security BearerAuth
// @Router /groups [get]
func (h *groupHandler) listGroups(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	groups, err := h.groupService.ListGroups(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to list groups")
		return
	}

	resp := make([]dto.GroupResponse, 0, len(groups))
	for i := range groups {
		resp = append(resp, dto.ToGroupResponse(&groups[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// getGroup godoc
// @Summary Get a group
// @Tags groups
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {object} dto.GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{groupID} [get]
func (h *groupHandler) getGroup(c *gin.Context) {
	group, err := h.groupService.GetGroupByID(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to get group")
		return
	}
	c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

// updateGroup godoc
// @Summary Update a group
// @Description Applies partial updates to a group; leader-only.
// @Tags groups
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   group body dto.UpdateGroupRequest true "Fields to update"
// @Success 200 {object} dto.GroupResponse
// @Failure 403 {object} map[string]string "Not the group leader"
// @Security BearerAuth
// @Router /groups/{groupID} [put]
func (h *groupHandler) updateGroup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateGroup", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	group, err := h.groupService.UpdateGroup(c.Request.Context(), c.Param("groupID"), req, userID)
	if err != nil {
		respondError(c, err, "Failed to update group")
		return
	}
	c.JSON(http.StatusOK, dto.ToGroupResponse(group))
}

// deleteGroup godoc
// @Summary Delete a group
// @Description Removes a group and everything it owns; leader-only.
// @Tags groups
// @Param   groupID path string true "Group ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Not the group leader"
// @Security BearerAuth
// @Router /groups/{groupID} [delete]
func (h *groupHandler) deleteGroup(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.groupService.DeleteGroup(c.Request.Context(), c.Param("groupID"), userID); err != nil {
		respondError(c, err, "Failed to delete group")
		return
	}
	c.Status(http.StatusNoContent)
}

// getGroupSummary godoc
// @Summary Get a group's standing summary
// @Tags groups
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {object} dto.GroupSummaryResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /groups/{groupID}/summary [get]
func (h *groupHandler) getGroupSummary(c *gin.Context) {
	summary, err := h.groupService.GetGroupSummary(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to get group summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// listGroupMembers godoc
// @Summary List a group's roster
// @Tags groups
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {array} dto.GroupMemberResponse
// @Security BearerAuth
// @Router /groups/{groupID}/members [get]
func (h *groupHandler) listGroupMembers(c *gin.Context) {
	roster, err := h.memberService.ListGroupMembers(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to list group members")
		return
	}
	c.JSON(http.StatusOK, roster)
}

// addGroupMember godoc
// @Summary Add a member to a group
// @Description Creates a membership for an existing member; leader-only.
// @Tags groups
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   member body dto.AddGroupMemberRequest true "Member to add"
// @Success 201 {object} domain.MemberGroupMembership
// @Failure 403 {object} map[string]string "Not the group leader"
// @Security BearerAuth
// @Router /groups/{groupID}/members [post]
func (h *groupHandler) addGroupMember(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AddGroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddGroupMember", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	membership, err := h.memberService.AddMemberToGroup(c.Request.Context(), c.Param("groupID"), req, userID)
	if err != nil {
		respondError(c, err, "Failed to add member to group")
		return
	}
	c.JSON(http.StatusCreated, membership)
}

// listFineRules godoc
// @Summary List a group's late fine rules
// @Tags fine-rules
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Success 200 {array} dto.FineRuleResponse
// @Security BearerAuth
// @Router /groups/{groupID}/fine-rules [get]
func (h *groupHandler) listFineRules(c *gin.Context) {
	rules, err := h.groupService.ListFineRules(c.Request.Context(), c.Param("groupID"))
	if err != nil {
		respondError(c, err, "Failed to list fine rules")
		return
	}
	c.JSON(http.StatusOK, rules)
}

// replaceFineRule godoc
// @Summary Replace a group's enabled late fine rule
// @Description Saves a new rule and disables the previously enabled one; leader-only.
// @Tags fine-rules
// @Accept  json
// @Produce  json
// @Param   groupID path string true "Group ID"
// @Param   rule body dto.ReplaceFineRuleRequest true "New rule"
// @Success 200 {object} dto.FineRuleResponse
// @Failure 403 {object} map[string]string "Not the group leader"
// @Security BearerAuth
// @Router /groups/{groupID}/fine-rules [put]
func (h *groupHandler) replaceFineRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ReplaceFineRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReplaceFineRule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rule, err := h.groupService.ReplaceFineRule(c.Request.Context(), c.Param("groupID"), req, userID)
	if err != nil {
		respondError(c, err, "Failed to replace fine rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}
