package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/services"
)

type GoalHandler struct {
	svc *services.GoalService
}

func NewGoalHandler(svc *services.GoalService) *GoalHandler {
	return &GoalHandler{svc: svc}
}

type createGoalRequest struct {
	Title string `json:"title" binding:"required"`
}

type goalProgressRequest struct {
	Progress *float64 `json:"progress" binding:"required"`
}

func (h *GoalHandler) RegisterRoutes(router *gin.RouterGroup) {
	goals := router.Group("/goals")
	{
		goals.POST("", h.Create)
		goals.GET("", h.List)
		goals.POST("/:id/progress", h.UpdateProgress)
	}
}

func (h *GoalHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	goal, err := h.svc.Create(c.Request.Context(), userID, req.Title)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, goal)
}

func (h *GoalHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListByUserID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// UpdateProgress godoc
// @Summary      Set a goal's progress (0-100); reaching 100 completes it for good
// @Tags         goals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "goal id"
// @Param        body  body      goalProgressRequest  true  "progress"
// @Success      200   {object}  services.GoalResult
// @Router       /goals/{id}/progress [post]
func (h *GoalHandler) UpdateProgress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req goalProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.UpdateProgress(c.Request.Context(), c.Param("id"), userID, *req.Progress)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
