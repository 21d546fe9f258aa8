package session

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/pkg/responses"
)

// Controller handles session catalog HTTP requests.
type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

type ensureSessionsRequest struct {
	WeeksAhead int `json:"weeks_ahead" binding:"omitempty,min=1,max=52"`
}

// EnsureUpcoming godoc
// @Summary Materialize upcoming sessions
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body ensureSessionsRequest false "Weeks ahead"
// @Success 200 {object} responses.SuccessResponse
// @Router /sessions/ensure [post]
func (ctl *Controller) EnsureUpcoming(c *gin.Context) {
	req := ensureSessionsRequest{}
	// Body is optional; an empty body falls back to the configured horizon.
	_ = c.ShouldBindJSON(&req)

	weeksAhead := req.WeeksAhead
	if weeksAhead == 0 {
		weeksAhead = ctl.service.DefaultWeeksAhead()
	}

	inserted, err := ctl.service.EnsureUpcomingSessions(weeksAhead)
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "Sessions ensured", gin.H{"inserted": inserted})
}

// ListUpcoming godoc
// @Summary List upcoming sessions with occupancy
// @Tags sessions
// @Produce json
// @Success 200 {object} responses.SuccessResponse
// @Router /sessions [get]
func (ctl *Controller) ListUpcoming(c *gin.Context) {
	sessions, err := ctl.service.ListUpcoming()
	if err != nil {
		responses.FromError(c, err)
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", sessions)
}

// Get godoc
// @Summary Get one session with registered teams
// @Tags sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} responses.SuccessResponse
// @Failure 404 {object} responses.ErrorResponse
// @Router /sessions/{id} [get]
func (ctl *Controller) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid session id")
		return
	}

	detail, err := ctl.service.GetDetail(uint(id))
	if err != nil {
		responses.FromError(c, err)
		return
	}
	if detail == nil {
		responses.NotFound(c, "Session")
		return
	}
	responses.SendSuccess(c, http.StatusOK, "", detail)
}
