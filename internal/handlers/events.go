package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/middleware"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/util"
)

// recordEventRequest is the ingest payload. Server-side fields (request id,
// IP, user agent, timestamp) are never taken from the client.
type recordEventRequest struct {
	EventType   models.EventType  `json:"event_type" binding:"required"`
	TargetType  models.TargetType `json:"target_type" binding:"required"`
	TargetID    *int64            `json:"target_id" binding:"required"`
	ActorID     *int64            `json:"actor_id"`
	ActorRole   string            `json:"actor_role"`
	IsAnonymous bool              `json:"is_anonymous"`
	OwnerID     *int64            `json:"owner_id"`
	OwnerType   string            `json:"owner_type"`
	SessionID   string            `json:"session_id"`
	FeedID      string            `json:"feed_id"`
	Position    *int              `json:"position"`
	Source      string            `json:"source"`
	Referrer    string            `json:"referrer"`
	AppVersion  string            `json:"app_version"`
	UserGeo     string            `json:"user_geo"`
	LatencyMS   *float64          `json:"latency_ms"`
	Metadata    models.Metadata   `json:"metadata"`
}

// RecordEvent appends one event to the log
func (h *Handlers) RecordEvent(c *gin.Context) {
	var req recordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "body", err.Error())
		return
	}

	e := &models.Event{
		EventType:   req.EventType,
		TargetType:  req.TargetType,
		TargetID:    *req.TargetID,
		ActorID:     req.ActorID,
		ActorRole:   req.ActorRole,
		IsAnonymous: req.IsAnonymous,
		OwnerID:     req.OwnerID,
		OwnerType:   req.OwnerType,
		SessionID:   req.SessionID,
		RequestID:   middleware.RequestID(c),
		FeedID:      req.FeedID,
		Position:    req.Position,
		Source:      req.Source,
		Referrer:    req.Referrer,
		AppVersion:  req.AppVersion,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		UserGeo:     req.UserGeo,
		LatencyMS:   req.LatencyMS,
		Metadata:    req.Metadata,
	}

	recorded, err := h.recorder.Record(c.Request.Context(), e)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recorded)
}

// AggregateEvents counts events grouped by one field
func (h *Handlers) AggregateEvents(c *gin.Context) {
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
	targetType := models.TargetType(c.Query("target_type"))
	groupBy := c.Query("group_by")

	groups, err := h.aggregator.AggregateByEventType(c.Request.Context(), targetType, start, end, groupBy)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	if groups == nil {
		groups = []events.GroupCount{}
	}
	if groupBy == "" {
		groupBy = string(events.FieldEventType)
	}
	c.JSON(http.StatusOK, gin.H{
		"group_by": groupBy,
		"groups":   groups,
	})
}
