package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-analytics/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

var validationErrors = []error{
	domain.ErrHabitTitleEmpty,
	domain.ErrHabitTitleTooLong,
	domain.ErrHabitDescTooLong,
	domain.ErrHabitInvalidUserID,
	domain.ErrInvalidColor,
	domain.ErrInvalidFrequency,
	domain.ErrInvalidDaysOfWeek,
	domain.ErrInvalidDatesOfMonth,
	domain.ErrInvalidTimesPeriod,
	domain.ErrHabitArchived,
	domain.ErrInvalidEntry,
	domain.ErrInvalidMood,
	domain.ErrInvalidEntryValue,
	domain.ErrEntryDateRequired,
	domain.ErrEntryInFuture,
	domain.ErrTaskTitleEmpty,
	domain.ErrTaskTitleTooLong,
	domain.ErrGoalTitleEmpty,
	domain.ErrInvalidGoalProgress,
	domain.ErrInvalidRating,
	domain.ErrInvalidFocusTime,
	domain.ErrInvalidDate,
	domain.ErrInvalidRange,
	domain.ErrInvalidTimezone,
	domain.ErrInvalidEmail,
	domain.ErrPasswordTooShort,
}

var notFoundErrors = []error{
	domain.ErrHabitNotFound,
	domain.ErrTaskNotFound,
	domain.ErrGoalNotFound,
	domain.ErrAchievementNotFound,
	domain.ErrMetricsNotFound,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func handleError(c *gin.Context, err error) {
	switch {
	case isAny(err, validationErrors):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case isAny(err, notFoundErrors):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized access"})

	case errors.Is(err, domain.ErrHabitConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "version conflict",
			"message": "data has been modified elsewhere, reload and retry",
		})

	case errors.Is(err, domain.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})

	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})

	default:
		slog.Error("request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// requireUser reads the authenticated user; it writes the response itself when absent.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user context missing"})
		return "", false
	}
	return userID, true
}

// parseDayParam reads an optional YYYY-MM-DD value; empty means nil.
func parseDayParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := domain.ParseDay(value)
	if err != nil {
		return nil, err
	}
	return &day, nil
}
