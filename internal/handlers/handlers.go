// Package handlers exposes the engagement core over HTTP.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/engagement"
	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/events"
	"github.com/qaforum/engagement/internal/feed"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/trending"
	"github.com/qaforum/engagement/internal/users"
)

// Services are the core components the handlers delegate to
type Services struct {
	Recorder    *events.Recorder
	Reader      *events.Reader
	Aggregator  *engagement.Aggregator
	Trending    *trending.Service
	Feed        *feed.Builder
	Activity    *users.ActivityService
	Profiles    *users.ProfileService
	// Accumulator serves live scores; nil disables the live route
	Accumulator *engagement.Accumulator
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	recorder   *events.Recorder
	reader     *events.Reader
	aggregator *engagement.Aggregator
	trending   *trending.Service
	feed       *feed.Builder
	activity   *users.ActivityService
	profiles   *users.ProfileService
	live       *engagement.Accumulator
}

// NewHandlers creates a new handlers instance
func NewHandlers(s Services) *Handlers {
	return &Handlers{
		recorder:   s.Recorder,
		reader:     s.Reader,
		aggregator: s.Aggregator,
		trending:   s.Trending,
		feed:       s.Feed,
		activity:   s.Activity,
		profiles:   s.Profiles,
		live:       s.Accumulator,
	}
}

// targetTypeParam reads the :type path segment
func targetTypeParam(c *gin.Context) (models.TargetType, error) {
	tt := models.TargetType(c.Param("type"))
	if tt == "" {
		return "", apperrors.Validation("type", "target type is required")
	}
	return tt, nil
}
