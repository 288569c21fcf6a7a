package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/util"
)

const defaultActivityDays = 30

// GetUserActivity returns a user's activity summary and last-seen time
func (h *Handlers) GetUserActivity(c *gin.Context) {
	userID, err := util.ParseID("id", c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	days := util.ParseInt(c.Query("last_days"), defaultActivityDays)

	summary, err := h.activity.GetUserActivitySummary(c.Request.Context(), userID, days)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	lastActive, err := h.activity.GetLastActive(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":             userID,
		"last_days":           days,
		"summary":             summary,
		"total_contributions": summary.Contributions(),
		"last_active":         lastActive,
	})
}

// GetUserProfile returns the profile engagement metrics of a user
func (h *Handlers) GetUserProfile(c *gin.Context) {
	userID, err := util.ParseID("id", c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	days := util.ParseInt(c.Query("last_days"), defaultActivityDays)
	if days < 0 {
		util.RespondBadRequest(c, "last_days", "must not be negative")
		return
	}

	profile, err := h.profiles.GetProfileMetrics(c.Request.Context(), userID, days)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
