package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/qaforum/engagement/internal/errors"
	"github.com/qaforum/engagement/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engagement.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 60*time.Second, cfg.Trending.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 72.0, cfg.Scoring.DecayHours)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.False(t, cfg.IsProduction())

	w, err := cfg.ScoreWeights()
	require.NoError(t, err)
	assert.Equal(t, 2.0, w.Of(models.QuestionCreated))
	assert.Nil(t, cfg.RankingConfig().Weights)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
environment: production
database:
  driver: postgres
  url: postgres://localhost/engagement
scoring:
  decay_hours: 24
  weights:
    question_liked: 3
ranking:
  weights:
    likes: 2
trending:
  cache_ttl: 2m
`)
	t.Setenv("ENGAGEMENT_WORKERS", "3")
	t.Setenv("ENGAGEMENT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24.0, cfg.Scoring.DecayHours)
	assert.Equal(t, 2*time.Minute, cfg.Trending.CacheTTL)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)

	w, err := cfg.ScoreWeights()
	require.NoError(t, err)
	assert.Equal(t, 3.0, w.Of(models.QuestionLiked))
	assert.Equal(t, 0.0, w.Of(models.QuestionCreated), "configured table replaces defaults")
	assert.Equal(t, map[string]float64{"likes": 2}, cfg.RankingConfig().Weights)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"driver", "database:\n  driver: mysql\n", "database.driver"},
		{"decay", "scoring:\n  decay_hours: 0\n", "scoring.decay_hours"},
		{"workers", "workers: -1\n", "workers"},
		{"sampling", "telemetry:\n  sampling_rate: 2\n", "telemetry.sampling_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.CodeConfiguration, appErr.Code)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestScoreWeightsAcceptUnknownTypes(t *testing.T) {
	cfg, err := Load(writeConfig(t, "scoring:\n  weights:\n    question_bookmarked: 1.5\n    question_liked: 1\n"))
	require.NoError(t, err)

	w, err := cfg.ScoreWeights()
	require.NoError(t, err)
	assert.Equal(t, 1.5, w.Of(models.EventType("question_bookmarked")))
	assert.Equal(t, 1.0, w.Of(models.QuestionLiked))
	assert.Equal(t, 0.0, w.Of(models.EventType("question_pinned")))
}

func TestScoreWeightsRejectBlankType(t *testing.T) {
	cfg := &Config{Scoring: WeightsConfig{Weights: map[string]float64{" ": 1}}}
	_, err := cfg.ScoreWeights()
	require.Error(t, err)
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "scoring.weights", appErr.Field)
}
