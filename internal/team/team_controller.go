package team

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/middleware"
	"github.com/courtside/rally/pkg/responses"
)

// Controller handles roster store HTTP requests.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

type createTeamRequest struct {
	Name      string        `json:"name" binding:"required,min=2"`
	Players   []PlayerInput `json:"players" binding:"required,min=2,max=3,dive"`
	SessionID *uint         `json:"session_id"`
}

type updateTeamRequest struct {
	Name string `json:"name" binding:"required,min=2"`
}

type updateDefaultStatusRequest struct {
	DefaultWeeklyStatus string `json:"default_weekly_status" binding:"required,oneof=active inactive not_invited"`
}

// Create godoc
// @Summary Create a team, optionally registering it into a session
// @Tags teams
// @Accept json
// @Produce json
// @Param request body createTeamRequest true "Team"
// @Security BearerAuth
// @Success 201 {object} responses.SuccessResponse
// @Router /teams [post]
func (ctl *Controller) Create(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	teamID, err := ctl.service.CreateTeam(identity, req.Name, req.Players, req.SessionID)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusCreated, "Team created", gin.H{"team_id": teamID})
}

// Get godoc
// @Summary Get a team with its roster (captain or member only)
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /teams/{id} [get]
func (ctl *Controller) Get(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := ctl.service.GetTeam(identity, teamID)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	if detail == nil {
		responses.NotFound(c, "Team")
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", detail)
}

// ListMine godoc
// @Summary List teams captained by the caller
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /teams [get]
func (ctl *Controller) ListMine(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}

	teams, err := ctl.service.ListMyTeams(identity)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", teams)
}

// Update godoc
// @Summary Rename a team (captain only)
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param request body updateTeamRequest true "New name"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /teams/{id} [put]
func (ctl *Controller) Update(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	if err := ctl.service.UpdateTeam(identity, teamID, req.Name); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Team updated", nil)
}

// AddMember godoc
// @Summary Add a player to the roster (captain only)
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param request body PlayerInput true "Player"
// @Security BearerAuth
// @Success 201 {object} responses.SuccessResponse
// @Router /teams/{id}/members [post]
func (ctl *Controller) AddMember(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req PlayerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	memberID, err := ctl.service.AddMember(identity, teamID, req)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusCreated, "Member added", gin.H{"member_id": memberID})
}

// RemoveMember godoc
// @Summary Archive a roster member (captain only, never the captain)
// @Tags teams
// @Produce json
// @Param id path int true "Team ID"
// @Param memberId path int true "Member ID"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /teams/{id}/members/{memberId} [delete]
func (ctl *Controller) RemoveMember(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "memberId")
	if !ok {
		return
	}

	if err := ctl.service.RemoveMember(identity, teamID, memberID); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Member removed", nil)
}

// UpdateDefaultStatus godoc
// @Summary Set a member's default weekly availability (captain only)
// @Tags teams
// @Accept json
// @Produce json
// @Param id path int true "Team ID"
// @Param memberId path int true "Member ID"
// @Param request body updateDefaultStatusRequest true "Status"
// @Security BearerAuth
// @Success 200 {object} responses.SuccessResponse
// @Router /teams/{id}/members/{memberId}/default-status [patch]
func (ctl *Controller) UpdateDefaultStatus(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		responses.Unauthorized(c, "")
		return
	}
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "memberId")
	if !ok {
		return
	}

	var req updateDefaultStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	if err := ctl.service.UpdateDefaultWeeklyStatus(identity, teamID, memberID, req.DefaultWeeklyStatus); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Default status updated", nil)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
