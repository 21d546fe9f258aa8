package registration

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/middleware"
	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/pkg/responses"
)

// Controller handles registration engine HTTP requests.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

type registerTeamRequest struct {
	TeamID           uint              `json:"team_id" binding:"required"`
	SessionID        uint              `json:"session_id" binding:"required"`
	MemberSelections []MemberSelection `json:"member_selections" binding:"omitempty,dive"`
}

type updateMembersRequest struct {
	MemberSelections []MemberSelection `json:"member_selections" binding:"required,min=1,dive"`
}

type respondToInviteRequest struct {
	Response string `json:"response" binding:"required,oneof=confirmed declined"`
	Name     string `json:"name"`
}

// Register godoc
// @Summary Register a team into a session (captain only)
// @Tags registrations
// @Accept json
// @Produce json
// @Param request body registerTeamRequest true "Registration"
// @Security BearerAuth
// @Success 201 {object} responses.SuccessResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /registrations [post]
func (ctl *Controller) Register(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}

	var req registerTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	registrationID, err := ctl.service.RegisterTeamForSession(identity, req.TeamID, req.SessionID, req.MemberSelections)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusCreated, "Team registered", gin.H{"registration_id": registrationID})
}

// UpdateMembers godoc
// @Summary Update member selections on a registration (captain only)
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path int true "Registration ID"
// @Param request body updateMembersRequest true "Selections"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /registrations/{id}/members [put]
func (ctl *Controller) UpdateMembers(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	registrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	if err := ctl.service.UpdateRegistrationMembers(identity, registrationID, req.MemberSelections); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Registration updated", nil)
}

// Leave godoc
// @Summary Cancel a registration (captain only)
// @Tags registrations
// @Produce json
// @Param id path int true "Registration ID"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /registrations/{id}/leave [post]
func (ctl *Controller) Leave(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	registrationID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := ctl.service.LeaveSession(identity, registrationID); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Left session", nil)
}

// GetForTeamAndSession godoc
// @Summary Get a team's registration for a session
// @Tags registrations
// @Produce json
// @Param team_id query int true "Team ID"
// @Param session_id query int true "Session ID"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /registrations [get]
func (ctl *Controller) GetForTeamAndSession(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	teamID, err := strconv.ParseUint(c.Query("team_id"), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid team_id")
		return
	}
	sessionID, err := strconv.ParseUint(c.Query("session_id"), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid session_id")
		return
	}

	detail, err := ctl.service.GetForTeamAndSession(identity, uint(teamID), uint(sessionID))
	if err != nil {
		responses.FromError(c, err)
		return
	}
	if detail == nil {
		responses.NotFound(c, "Registration")
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", detail)
}

// ListMine godoc
// @Summary List the caller's active registrations across their teams
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /registrations/mine [get]
func (ctl *Controller) ListMine(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}

	regs, err := ctl.service.ListMyRegistrations(identity)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", regs)
}

// GetInvite godoc
// @Summary Look up an invite by token
// @Tags invites
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} responses.SuccessResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /invites/{token} [get]
func (ctl *Controller) GetInvite(c *gin.Context) {
	detail, err := ctl.service.GetInviteByToken(c.Param("token"))
	if err != nil {
		responses.FromError(c, err)
		return
	}
	if detail == nil {
		responses.NotFound(c, "Invite")
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", detail)
}

// RespondToInvite godoc
// @Summary Respond to an invite (token is the sole authorization)
// @Tags invites
// @Accept json
// @Produce json
// @Param token path string true "Invite token"
// @Param request body respondToInviteRequest true "Response"
// @Success 200 {object} responses.SuccessResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /invites/{token}/respond [post]
func (ctl *Controller) RespondToInvite(c *gin.Context) {
	var req respondToInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	var actor *person.Identity
	if identity, ok := middleware.IdentityFromContext(c); ok {
		actor = &identity
	}

	if err := ctl.service.RespondToInvite(c.Param("token"), req.Response, req.Name, actor); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Response recorded", nil)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
