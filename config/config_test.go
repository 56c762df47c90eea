package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, 10.0, c.SkewParams().AxisThreshold)
	require.Equal(t, slog.LevelInfo, c.Level())
}

func TestParseEmpty(t *testing.T) {
	c, err := ParseBytes(nil)
	require.NoError(t, err)
	require.Equal(t, Default(), c)

	c, err = Parse("")
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestParseFile(t *testing.T) {
	t.Setenv("ENGINE_URL", "http://engine:8080")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: ":9090"
service_url: http://pdf-orientation:9090
engine_urls:
  - ${ENGINE_URL}
engine_announce_retries: 2
engine_announce_retry_delay: 500ms
max_tasks: 4
workers: 2
image_workers: 3
task_retention: 10m
log_level: debug
orientation:
  engine: tesseract
  language: deu
skew:
  axis_threshold: 15
  min_line_length: 80
`), 0644))

	c, err := Parse(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", c.Address)
	require.Equal(t, []string{"http://engine:8080"}, c.EngineURLs)
	require.Equal(t, 2, c.EngineAnnounceRetries)
	require.Equal(t, 500*time.Millisecond, c.EngineAnnounceRetryDelay)
	require.Equal(t, 4, c.MaxTasks)
	require.Equal(t, 2, c.Workers)
	require.Equal(t, 3, c.ImageWorkers)
	require.Equal(t, 10*time.Minute, c.TaskRetention)
	require.Equal(t, slog.LevelDebug, c.Level())
	require.Equal(t, "tesseract", c.Orientation.Engine)
	require.Equal(t, "deu", c.Orientation.Language)

	p := c.SkewParams()
	require.Equal(t, 15.0, p.AxisThreshold)
	require.Equal(t, 80.0, p.MinLineLength)
	// untouched keys keep their defaults
	require.Equal(t, 150.0, p.CannyHigh)
	require.Equal(t, 100, p.HoughThreshold)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := ParseBytes([]byte("adress: :8080\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, yml := range []string{
		"max_tasks: 0",
		"workers: 0",
		"log_level: loud",
		"orientation:\n  engine: crystal-ball",
		"skew:\n  axis_threshold: 0",
		"skew:\n  axis_threshold: 91",
		"skew:\n  canny_low: 200",
		"skew:\n  hough_threshold: 0",
	} {
		_, err := ParseBytes([]byte(yml))
		require.Error(t, err, yml)
	}
}

func TestMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExampleConfig(t *testing.T) {
	t.Setenv("SERVICE_URL", "http://pdf-orientation:8080")
	c, err := Parse(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://pdf-orientation:8080", c.ServiceURL)
	require.Equal(t, Default().Skew, c.Skew)
}
