package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docfields/internal/common"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported", common.UnsupportedDocument("x", nil), 2},
		{"corrupt", common.CorruptDocument("x", nil), 2},
		{"bad field spec", common.InvalidFieldSpec("x", nil), 2},
		{"model missing", common.ModelNotFound("x", nil), 3},
		{"service down", common.InferenceUnavailable("x", nil), 3},
		{"wrapped", fmt.Errorf("batch: %w", common.ModelNotFound("x", nil)), 3},
		{"deadline", context.DeadlineExceeded, 4},
		{"interrupted", context.Canceled, 130},
		{"other", assert.AnError, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(status.Code(common.ToStatus(tc.err))))
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	l := newLogger(common.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, l.Enabled(t.Context(), -4))

	l = newLogger(common.LogConfig{Level: "warn"})
	assert.False(t, l.Enabled(t.Context(), 0))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, n := range []string{"extract", "batch", "watch", "models"} {
		assert.True(t, names[n], n)
	}
}
