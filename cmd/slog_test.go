package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimSource(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"/home/dev/code/aigifts/internal/jobs/processor.go", "internal/jobs/processor.go"},
		{"/root/go/src/github.com/x/y.go", "github.com/x/y.go"},
		{"/opt/other/main.go", "/opt/other/main.go"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, trimSource(tt.file, "/aigifts/"))
	}
}

func TestNewLogHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, "json", slog.LevelInfo))

	logger.Debug("hidden")
	logger.Info("job queued", "job_id", "01J")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "job queued", entry["msg"])
	assert.Equal(t, "01J", entry["job_id"])
}
