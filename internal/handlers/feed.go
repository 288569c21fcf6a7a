package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/feed"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/util"
	"go.uber.org/zap"
)

// GetFeed builds the caller's ranked question feed. Questions that could
// not be assembled are listed under failures and the rest are returned.
func (h *Handlers) GetFeed(c *gin.Context) {
	raw := c.Query("user_id")
	if raw == "" {
		raw = c.GetHeader("X-User-ID")
	}
	userID, err := util.ParseID("user_id", raw)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	d := feed.DefaultOptions()
	opts := feed.Options{
		Limit:           util.ParseInt(c.Query("limit"), d.Limit),
		ExcludeAnswers:  !util.ParseBool(c.Query("include_answers"), !d.ExcludeAnswers),
		IncludeComments: util.ParseBool(c.Query("include_comments"), d.IncludeComments),
		SinceDays:       util.ParseInt(c.Query("since_days"), d.SinceDays),
		MaxCommentDepth: util.ParseInt(c.Query("max_comment_depth"), d.MaxCommentDepth),
	}

	f, err := h.feed.BuildUserFeed(c.Request.Context(), userID, opts)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	failures := make(map[int64]string, len(f.Failures))
	for qid, ferr := range f.Failures {
		failures[qid] = ferr.Error()
	}
	if len(failures) > 0 {
		logger.Log.Warn("Feed built with missing questions",
			logger.WithUserID(userID),
			zap.Int("failures", len(failures)),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      f.UserID,
		"items":        f.Items,
		"failures":     failures,
		"generated_at": f.GeneratedAt,
	})
}

// GetFeedCTR reports feed click-through rates over the trailing days
func (h *Handlers) GetFeedCTR(c *gin.Context) {
	days := util.ParseInt(c.Query("since_days"), 1)
	if days <= 0 {
		util.RespondBadRequest(c, "since_days", "must be positive")
		return
	}
	since := h.aggregator.Now().AddDate(0, 0, -days)

	ctr, err := feed.CalculateCTR(c.Request.Context(), h.reader, since, c.Query("group_by"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"since": since,
		"ctr":   ctr,
	})
}
