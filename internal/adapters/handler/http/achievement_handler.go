package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/services"
)

type AchievementHandler struct {
	svc *services.AchievementService
}

func NewAchievementHandler(svc *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{svc: svc}
}

func (h *AchievementHandler) RegisterRoutes(router *gin.RouterGroup) {
	a := router.Group("/achievements")
	{
		a.GET("", h.List)
		a.GET("/check", h.Check)
		a.GET("/:id", h.Get)
	}
}

// List godoc
// @Summary      Achievement catalog with the caller's progress
// @Tags         achievements
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  services.AchievementView
// @Router       /achievements [get]
func (h *AchievementHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	views, err := h.svc.List(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *AchievementHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	view, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Check godoc
// @Summary      Evaluate achievements now
// @Tags         achievements
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /achievements/check [get]
func (h *AchievementHandler) Check(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	earned, err := h.svc.Check(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"newlyEarned": earned})
}
