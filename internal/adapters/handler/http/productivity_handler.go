package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/services"
)

const defaultHistoryDays = 30

type ProductivityHandler struct {
	svc *services.ProductivityService
}

func NewProductivityHandler(svc *services.ProductivityService) *ProductivityHandler {
	return &ProductivityHandler{svc: svc}
}

type focusRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

type ratingRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// dailyReport is the flat shape returned by the generate endpoint.
type dailyReport struct {
	Date                string                           `json:"date"`
	TasksCompleted      int                              `json:"tasksCompleted"`
	TasksCreated        int                              `json:"tasksCreated"`
	HabitCompletionRate float64                          `json:"habitCompletionRate"`
	FocusTime           int                              `json:"focusTime"`
	ProductivityScore   float64                          `json:"productivityScore"`
	DayRating           *int                             `json:"dayRating,omitempty"`
	NewlyEarned         []domain.UserAchievementProgress `json:"newlyEarned"`
}

func newDailyReport(res *domain.MetricsResult) dailyReport {
	m := res.Metrics
	return dailyReport{
		Date:                domain.DayKey(m.Date),
		TasksCompleted:      m.TasksCompleted,
		TasksCreated:        m.TasksCreated,
		HabitCompletionRate: m.HabitCompletionRate,
		FocusTime:           m.FocusTimeMinutes,
		ProductivityScore:   m.ProductivityScore,
		DayRating:           m.DayRating,
		NewlyEarned:         res.NewlyEarned,
	}
}

func (h *ProductivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	p := router.Group("/productivity")
	{
		p.POST("/focus", h.LogFocus)
		p.POST("/rating", h.RateDay)
		p.POST("/generate", h.Generate)
		p.GET("/daily", h.Daily)
	}
}

// LogFocus godoc
// @Summary      Add focus minutes to today
// @Tags         productivity
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      focusRequest  true  "minutes (1-1440)"
// @Success      200   {object}  dailyReport
// @Router       /productivity/focus [post]
func (h *ProductivityHandler) LogFocus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.LogFocus(c.Request.Context(), userID, req.Minutes)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDailyReport(res))
}

// RateDay godoc
// @Summary      Rate today from 1 to 5
// @Tags         productivity
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ratingRequest  true  "rating"
// @Success      200   {object}  dailyReport
// @Router       /productivity/rating [post]
func (h *ProductivityHandler) RateDay(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.svc.RateDay(c.Request.Context(), userID, req.Rating)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDailyReport(res))
}

// Generate godoc
// @Summary      Recompute the daily metrics for a day
// @Tags         productivity
// @Produce      json
// @Security     BearerAuth
// @Param        date  query     string  false  "YYYY-MM-DD, defaults to today"
// @Success      200   {object}  dailyReport
// @Router       /productivity/generate [post]
func (h *ProductivityHandler) Generate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	date, err := parseDayParam(c.Query("date"))
	if err != nil {
		handleError(c, err)
		return
	}

	var day time.Time
	if date != nil {
		day = *date
	}

	res, err := h.svc.Generate(c.Request.Context(), userID, day)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, newDailyReport(res))
}

// Daily godoc
// @Summary      Daily metrics history
// @Tags         productivity
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "YYYY-MM-DD"
// @Param        to    query     string  false  "YYYY-MM-DD"
// @Success      200   {array}   domain.DailyMetrics
// @Router       /productivity/daily [get]
func (h *ProductivityHandler) Daily(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	from, to, err := h.svc.DefaultRange(c.Request.Context(), userID, defaultHistoryDays)
	if err != nil {
		handleError(c, err)
		return
	}

	fromParam, err := parseDayParam(c.Query("from"))
	if err != nil {
		handleError(c, err)
		return
	}
	toParam, err := parseDayParam(c.Query("to"))
	if err != nil {
		handleError(c, err)
		return
	}
	if fromParam != nil {
		from = *fromParam
	}
	if toParam != nil {
		to = *toParam
	}

	list, err := h.svc.Daily(c.Request.Context(), userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}
