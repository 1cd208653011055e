package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"wearsync/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYaml = `
webServer:
  host: 127.0.0.1
  port: 18090
logger:
  level: debug
  dir: /tmp
store:
  backend: memory
connection:
  userScope: user-42
  timezone: Europe/Berlin
  lowerDateBoundary: "2020-09-28T00:00:00Z"
  providerUrl: http://provider.local
  uploadUrl: http://backend.local/upload
fetch:
  timeout: 5s
  maxRetries: 2
schedule:
  intradayInterval: 15m
  metrics: [calories, steps]
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wearsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfigProvider_LoadsFile(t *testing.T) {
	path := writeConfig(t, testYaml)

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path, DebugMode: true})
	require.NoError(t, err)

	assert.Equal(t, "WearSync", conf.AppName)
	assert.True(t, conf.Debug)
	assert.Equal(t, 18090, conf.WebServer.Port)
	assert.Equal(t, "user-42", conf.Connection.UserScope)
	assert.Equal(t, 5*time.Second, conf.Fetch.Timeout)
	assert.Equal(t, 2, conf.Fetch.MaxRetries)
	assert.Equal(t, 15*time.Minute, conf.Schedule.IntradayInterval)
	assert.Equal(t, []string{"calories", "steps"}, conf.Schedule.Metrics)

	boundary, err := conf.LowerBoundary()
	require.NoError(t, err)
	require.NotNil(t, boundary)
	assert.Equal(t, 2020, boundary.Year())
}

func TestNewConfigProvider_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, testYaml)

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, time.Second, conf.Fetch.RetryDelay)
	assert.Equal(t, 3, conf.Fetch.MaxConcurrentMetrics)
	assert.Equal(t, 2*time.Minute, conf.Schedule.MinSessionDuration)
}

func TestNewConfigProvider_EnvOverride(t *testing.T) {
	path := writeConfig(t, testYaml)
	t.Setenv("WEARSYNC_LOG_LEVEL", "error")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "error", conf.Logger.Level)
}

func TestNewConfigProvider_MissingFile(t *testing.T) {
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: "/nonexistent/wearsync.yaml"})
	assert.Error(t, err)
}

func TestNewConfigProvider_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "webServer:\n  host: \"\"\n")
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	assert.Error(t, err)
}
