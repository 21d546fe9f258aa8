package freeagent

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/middleware"
	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/pkg/responses"
)

// Controller handles free-agent board HTTP requests.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

type signUpRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
}

// SignUp godoc
// @Summary Sign up as a free agent for a session
// @Tags free-agents
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Param request body signUpRequest true "Signup"
// @Success 201 {object} responses.SuccessResponse
// @Failure 409 {object} responses.ErrorResponse
// @Router /sessions/{id}/free-agents [post]
func (ctl *Controller) SignUp(c *gin.Context) {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BindingError(c, err)
		return
	}

	var actor *person.Identity
	if identity, exists := middleware.IdentityFromContext(c); exists {
		actor = &identity
	}

	freeAgentID, err := ctl.service.SignUp(actor, sessionID, req.Name, req.Email, req.Phone)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusCreated, "Signed up as free agent", gin.H{"free_agent_id": freeAgentID})
}

// ListBySession godoc
// @Summary List available free agents for a session
// @Tags free-agents
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} responses.SuccessResponse
// @Router /sessions/{id}/free-agents [get]
func (ctl *Controller) ListBySession(c *gin.Context) {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	agents, err := ctl.service.ListBySession(sessionID)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", agents)
}

// Withdraw godoc
// @Summary Withdraw a free-agent signup
// @Tags free-agents
// @Produce json
// @Param id path int true "Free agent ID"
// @Success 200 {object} responses.SuccessResponse
// @Failure 403 {object} responses.ErrorResponse
// @Router /free-agents/{id}/withdraw [post]
func (ctl *Controller) Withdraw(c *gin.Context) {
	freeAgentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var actor *person.Identity
	if identity, exists := middleware.IdentityFromContext(c); exists {
		actor = &identity
	}

	if err := ctl.service.Withdraw(actor, freeAgentID); err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Signup withdrawn", nil)
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
