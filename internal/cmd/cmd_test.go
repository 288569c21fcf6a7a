package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/qaforum/engagement/internal/engagement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	f, err := parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = parseFilters([]string{"user_id=3", "topic=go"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"user_id": int64(3), "topic": "go"}, f)

	_, err = parseFilters([]string{"topic"})
	assert.Error(t, err)
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestSeedThenQuery(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ENGAGEMENT_DATABASE_URL", filepath.Join(dir, "engagement.db"))
	t.Setenv("ENGAGEMENT_LOG_FILE", "-")
	t.Setenv("ENGAGEMENT_LOG_LEVEL", "error")

	run(t, "migrate", "-o", "table")
	seeded := run(t, "seed", "-o", "json", "--users", "4", "--questions", "6", "--events-per-user", "8", "--days", "3", "--seed", "11")

	var res struct {
		Questions int `json:"questions"`
		Events    int `json:"events"`
	}
	require.NoError(t, json.Unmarshal([]byte(seeded), &res))
	assert.Equal(t, 6, res.Questions)
	assert.Positive(t, res.Events)

	raw := run(t, "trending", "question", "-o", "json", "--top", "3")
	var top []engagement.ScoredTarget
	require.NoError(t, json.Unmarshal([]byte(raw), &top))
	assert.LessOrEqual(t, len(top), 3)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Score, top[i].Score)
	}

	raw = run(t, "reconcile", "answer", "-o", "json")
	var report engagement.ReconcileReport
	require.NoError(t, json.Unmarshal([]byte(raw), &report))
	assert.Equal(t, "answer", string(report.TargetType))
	assert.Empty(t, report.Drifted)
}
