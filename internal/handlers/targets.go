package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/engagement"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/trending"
	"github.com/qaforum/engagement/internal/util"
)

// TargetMetrics returns the engagement metrics of one target. last_days
// takes precedence over an explicit start_date.
func (h *Handlers) TargetMetrics(c *gin.Context) {
	targetType, err := targetTypeParam(c)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	targetID, err := util.ParseID("id", c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	var weightDecay *float64
	if raw := c.Query("weight_decay"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate < 0 {
			util.RespondBadRequest(c, "weight_decay", "must be a non-negative number")
			return
		}
		weightDecay = &rate
	}

	var m engagement.Metrics
	if raw := c.Query("last_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			util.RespondBadRequest(c, "last_days", "must be an integer")
			return
		}
		m, err = h.aggregator.MetricsLastDays(c.Request.Context(), targetType, targetID, days, weightDecay)
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
	} else {
		start, err := util.ParseTime("start_date", c.Query("start_date"))
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		end, err := util.ParseTime("end_date", c.Query("end_date"))
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
		m, err = h.aggregator.EngagementMetrics(c.Request.Context(), targetType, targetID, engagement.MetricsOptions{
			StartDate:   start,
			EndDate:     end,
			WeightDecay: weightDecay,
		})
		if err != nil {
			util.RespondWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"target":  models.TargetKey{Type: targetType, ID: targetID},
		"metrics": m,
	})
}

// TopTargets returns the highest decayed scores of one target type
func (h *Handlers) TopTargets(c *gin.Context) {
	targetType, err := targetTypeParam(c)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	q := engagement.ScoreQuery{
		TargetType: targetType,
		FeedID:     c.Query("feed_id"),
		SessionID:  c.Query("session_id"),
		DecayHours: util.ParseFloat(c.Query("decay_hours"), 0),
	}
	if q.ActorID, err = util.ParseOptionalID("actor_id", c.Query("actor_id")); err != nil {
		util.RespondWithError(c, err)
		return
	}
	if q.TargetIDs, err = util.ParseIDList("ids", c.Query("ids")); err != nil {
		util.RespondWithError(c, err)
		return
	}
	if q.StartDate, err = util.ParseTime("start_date", c.Query("start_date")); err != nil {
		util.RespondWithError(c, err)
		return
	}
	if q.EndDate, err = util.ParseTime("end_date", c.Query("end_date")); err != nil {
		util.RespondWithError(c, err)
		return
	}

	n := util.ParseInt(c.Query("n"), 10)
	top, err := h.aggregator.TopN(c.Request.Context(), n, q)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"target_type": targetType,
		"targets":     top,
	})
}

// LiveTargets returns the highest scores kept in memory since startup,
// without reading the log
func (h *Handlers) LiveTargets(c *gin.Context) {
	if h.live == nil {
		util.RespondWithError(c, apperrors.Unavailable("live scores", nil))
		return
	}
	targetType, err := targetTypeParam(c)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	n := util.ParseInt(c.Query("n"), 10)
	c.JSON(http.StatusOK, gin.H{
		"target_type": targetType,
		"targets":     h.live.Top(targetType, n),
	})
}

// GetTrending returns trending targets of one type. Content filters are
// passed as filter[column]=value.
func (h *Handlers) GetTrending(c *gin.Context) {
	targetType, err := targetTypeParam(c)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	d := trending.DefaultOptions()
	opts := trending.Options{
		TopN:       util.ParseInt(c.Query("top_n"), d.TopN),
		LastDays:   util.ParseInt(c.Query("last_days"), d.LastDays),
		DecayHours: util.ParseFloat(c.Query("decay_hours"), d.DecayHours),
	}
	if raw := c.QueryMap("filter"); len(raw) > 0 {
		opts.Filters = make(map[string]interface{}, len(raw))
		for col, v := range raw {
			opts.Filters[col] = filterValue(v)
		}
	}

	out, err := h.trending.GetTrending(c.Request.Context(), targetType, opts)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"target_type": targetType,
		"trending":    out,
	})
}

// filterValue types a query string value for a column comparison
func filterValue(v string) interface{} {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
