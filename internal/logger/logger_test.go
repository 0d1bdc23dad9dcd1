package logger_test

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"codeberg.org/mutker/profilectl/internal/errors"
	"codeberg.org/mutker/profilectl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want logger.LogLevel
	}{
		{"debug", logger.DebugLevel},
		{"INFO", logger.InfoLevel},
		{"", logger.InfoLevel},
		{"warning", logger.WarnLevel},
		{"warn", logger.WarnLevel},
		{"error", logger.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := logger.ParseLevel(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := logger.ParseLevel("loud")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.WarnLevel, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	logger.Info().Msg("hidden")
	logger.Default().Warn().Str("profile", "performance").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "performance")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel, true)
	t.Cleanup(func() { logger.SetLogLevel(logger.InfoLevel) })

	logger.ErrorWithCode(fmt.Errorf("run: %w", errors.New().New(errors.ErrMainLoop))).Msg("loop failed")

	out := buf.String()
	assert.Contains(t, out, "loop failed")
	assert.Contains(t, out, string(errors.ErrMainLoop))

	buf.Reset()
	logger.ErrorWithCode(stderrors.New("plain")).Msg("uncoded")
	assert.Contains(t, buf.String(), string(errors.ErrInternal))
}
