package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type createHabitRequest struct {
	Title           string                 `json:"title" binding:"required"`
	Description     string                 `json:"description"`
	Color           string                 `json:"color"`
	Icon            string                 `json:"icon"`
	Frequency       string                 `json:"frequency"`
	FrequencyConfig domain.FrequencyConfig `json:"frequencyConfig"`
}

type updateHabitRequest struct {
	Title           *string                 `json:"title"`
	Description     *string                 `json:"description"`
	Color           *string                 `json:"color"`
	Icon            *string                 `json:"icon"`
	Frequency       *string                 `json:"frequency"`
	FrequencyConfig *domain.FrequencyConfig `json:"frequencyConfig"`
	Archived        *bool                   `json:"archived"`
	Version         int                     `json:"version"`
}

type trackHabitRequest struct {
	Completed  *bool    `json:"completed" binding:"required"`
	Date       string   `json:"date"`
	Value      *float64 `json:"value"`
	Mood       *int     `json:"mood"`
	SkipReason *string  `json:"skipReason"`
	Notes      string   `json:"notes"`
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/:id", h.Get)
		habits.PATCH("/:id", h.Update)
		habits.DELETE("/:id", h.Delete)
		habits.POST("/:id/track", h.Track)
		habits.GET("/:id/stats", h.Stats)
	}
}

// Create godoc
// @Summary      Create a habit
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createHabitRequest  true  "habit definition"
// @Success      201   {object}  services.HabitResult
// @Failure      400   {object}  map[string]string
// @Router       /habits [post]
func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.CreateHabitInput{
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Color:           req.Color,
		Icon:            req.Icon,
		Frequency:       req.Frequency,
		FrequencyConfig: req.FrequencyConfig,
	}

	res, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// List godoc
// @Summary      List the caller's habits with their completion history
// @Tags         habits
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Habit
// @Router       /habits [get]
func (h *HabitHandler) List(c *gin.Context) {
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

func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habit, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

// Update godoc
// @Summary      Partially update a habit definition
// @Description  "archived": true pauses a habit; it can no longer be tracked and leaves the completion rate.
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "habit id"
// @Param        body  body      updateHabitRequest  true  "fields to change"
// @Success      200   {object}  domain.Habit
// @Failure      409   {object}  map[string]string
// @Router       /habits/{id} [patch]
func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := services.UpdateHabitInput{
		ID:              c.Param("id"),
		UserID:          userID,
		Title:           req.Title,
		Description:     req.Description,
		Color:           req.Color,
		Icon:            req.Icon,
		Frequency:       req.Frequency,
		FrequencyConfig: req.FrequencyConfig,
		Archived:        req.Archived,
		Version:         req.Version,
	}

	habit, err := h.svc.Update(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Track godoc
// @Summary      Record the entry for one day and refresh derived metrics
// @Description  A second call for the same day replaces the first. Date defaults to today in the user's timezone.
// @Tags         habits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "habit id"
// @Param        body  body      trackHabitRequest  true  "entry"
// @Success      200   {object}  services.HabitResult
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /habits/{id}/track [post]
func (h *HabitHandler) Track(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req trackHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseDayParam(req.Date)
	if err != nil {
		handleError(c, err)
		return
	}

	res, err := h.svc.Track(c.Request.Context(), services.TrackHabitInput{
		HabitID:    c.Param("id"),
		UserID:     userID,
		Date:       date,
		Completed:  *req.Completed,
		Value:      req.Value,
		Mood:       req.Mood,
		SkipReason: req.SkipReason,
		Notes:      req.Notes,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Stats godoc
// @Summary      Streak and consistency recomputed from the raw log
// @Tags         habits
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      string  true   "habit id"
// @Param        window  query     int     false  "consistency window in days"
// @Success      200     {object}  domain.HabitStats
// @Router       /habits/{id}/stats [get]
func (h *HabitHandler) Stats(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	window := 0
	if raw := c.Query("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > services.MaxHistoryRange {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a positive number of days"})
			return
		}
		window = n
	}

	stats, err := h.svc.Stats(c.Request.Context(), c.Param("id"), userID, window)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
