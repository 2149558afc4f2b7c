package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/gesture"
	"github.com/ayusman/fingerspell/internal/hand"
	"github.com/ayusman/fingerspell/internal/store"
)

func TestLoadConfig(t *testing.T) {
	t.Cleanup(func() { configPath = "" })

	t.Run("explicit missing file", func(t *testing.T) {
		configPath = filepath.Join(t.TempDir(), "missing.yaml")
		_, _, err := loadConfig()
		assert.Error(t, err)
	})

	t.Run("explicit file with warnings", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("loop:\n  tick_rate_hz: -1\nreceiver:\n  port: 23456\n"), 0644))
		configPath = path

		cfg, warnings, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 23456, cfg.Receiver.Port)
		assert.Equal(t, float64(config.DefaultTickRateHz), cfg.Loop.TickRateHz)
		assert.NotEmpty(t, warnings)
	})
}

func TestNewLogger(t *testing.T) {
	t.Cleanup(func() { logLevel = "" })

	_, err := newLogger(config.Config{LogLevel: "debug"})
	assert.NoError(t, err)

	_, err = newLogger(config.Config{LogLevel: "loud"})
	assert.Error(t, err)

	logLevel = "warn"
	_, err = newLogger(config.Config{LogLevel: "loud"})
	assert.NoError(t, err, "flag should override the config level")
}

func TestEvaluate(t *testing.T) {
	p := hand.DefaultProjector

	practice, err := gesture.NewBank(gesture.Practice(), gesture.Params{Touch: gesture.DefaultTouch})
	require.NoError(t, err)
	alphabet, err := gesture.NewBank(gesture.Alphabet(), gesture.Params{Touch: gesture.DefaultTouch})
	require.NoError(t, err)

	r := evaluate(p, practice, p.Encode(hand.ThumbsUp()))
	assert.Equal(t, "ok", r.Result)
	assert.Equal(t, 1, r.Hands)
	assert.Contains(t, r.Matches, "ThumbsUp")
	assert.False(t, r.Trigger, "practice has no trigger")

	r = evaluate(p, alphabet, p.Encode(hand.ThumbsUp()))
	assert.True(t, r.Trigger)

	r = evaluate(p, practice, "[1,2,abc]")
	assert.Equal(t, "malformed", r.Result)
	assert.Zero(t, r.Hands)
	assert.Empty(t, r.Matches)

	r = evaluate(p, practice, "[1, 2, 3]")
	assert.Equal(t, "empty", r.Result)
}

func TestWriteReport(t *testing.T) {
	t.Cleanup(func() { parseJSON = false })

	r := parseReport{Result: "ok", Hands: 1, Matches: []string{"ThumbsUp"}}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, r))
	assert.Equal(t, "result=ok hands=1 trigger=false matches=ThumbsUp\n", buf.String())

	buf.Reset()
	require.NoError(t, writeReport(&buf, parseReport{Result: "empty", Matches: []string{}}))
	assert.Contains(t, buf.String(), "matches=-")

	parseJSON = true
	buf.Reset()
	require.NoError(t, writeReport(&buf, r))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ok", decoded["result"])
}

func TestListPlans(t *testing.T) {
	plans, err := listPlans(nil)
	require.NoError(t, err)
	assert.Len(t, plans, len(gesture.Plans()))

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()
	_, err = st.Lessons().Seed(gesture.Plans())
	require.NoError(t, err)

	custom := gesture.Practice()
	custom.Name = "thumbs"
	custom.Description = "just thumbs"
	custom.Gestures = custom.Gestures[:1]
	_, err = st.Lessons().Save(custom, false)
	require.NoError(t, err)

	plans, err = listPlans(st)
	require.NoError(t, err)
	require.Len(t, plans, len(gesture.Plans())+1)
	assert.Equal(t, "thumbs", plans[len(plans)-1].Name)

	plan, err := lookupPlan(st, "thumbs")
	require.NoError(t, err)
	assert.Len(t, plan.Gestures, 1)

	_, err = lookupPlan(st, "nope")
	assert.ErrorIs(t, err, gesture.ErrUnknownPlan)

	var buf bytes.Buffer
	require.NoError(t, printPlans(&buf, plans))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, len(plans)+1)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
}

func TestFindWebDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, findWebDir(config.Config{Server: config.ServerConfig{WebDir: dir}}))

	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "web"), 0755))
	got := findWebDir(config.Config{DataDir: dataDir})
	if got != filepath.Join(dataDir, "web") {
		// A web dir near the working directory takes precedence.
		assert.NotEmpty(t, got)
	}
}
