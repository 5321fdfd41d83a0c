package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at an empty directory so no real config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, filepath.Join(home, appDirName, "session.json"), cfg.Session.File)
	assert.Equal(t, 60, cfg.Timer.RestDefault)
	assert.Equal(t, []int{30, 60, 90, 120}, cfg.Timer.QuickPicks)
	assert.Equal(t, filepath.Join(home, appDirName, "workout-session.log"), cfg.Log.File)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Stdout)
	assert.Equal(t, 45, cfg.Workout.DefaultDuration)
}

func TestLoad_ConfigFileInAppDir(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, appDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := `
api:
  url: http://localhost:3001/api
  timeout: 5s
timer:
  rest_default: 90
  quick_picks: [15, 45]
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001/api", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 90, cfg.Timer.RestDefault)
	assert.Equal(t, []int{15, 45}, cfg.Timer.QuickPicks)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 45, cfg.Workout.DefaultDuration, "unset keys keep their default")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, appDirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("timer:\n  rest_default: 90\n"), 0o644))

	t.Setenv("WORKOUT_TIMER_REST_DEFAULT", "120")
	t.Setenv("WORKOUT_API_URL", "http://env.example/api")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Timer.RestDefault)
	assert.Equal(t, "http://env.example/api", cfg.API.URL)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("WORKOUT_LOG_LEVEL", "warn")
	t.Setenv("WORKOUT_TIMER_REST_DEFAULT", "120")

	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--log-level", "trace", "--quick-picks", "10,20"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, []int{10, 20}, cfg.Timer.QuickPicks)
	assert.Equal(t, 120, cfg.Timer.RestDefault, "unset flag does not shadow env")
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  file: /tmp/creds.json\n"), 0o644))

	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--config", path}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/creds.json", cfg.Session.File)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	isolate(t)
	fs := NewFlagSet("test")
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	_, err := Load(fs)
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"relative url", map[string]string{"WORKOUT_API_URL": "/api"}},
		{"zero rest", map[string]string{"WORKOUT_TIMER_REST_DEFAULT": "0"}},
		{"negative timeout", map[string]string{"WORKOUT_API_TIMEOUT": "-1s"}},
		{"zero duration", map[string]string{"WORKOUT_WORKOUT_DEFAULT_DURATION": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(nil)
			require.Error(t, err)
			assert.True(t, IsInvalid(err))
		})
	}
}

func TestValidate_QuickPicks(t *testing.T) {
	cfg := Config{
		API:     APIConfig{URL: DefaultAPIURL},
		Session: SessionConfig{File: "s.json"},
		Timer:   TimerConfig{RestDefault: 60, QuickPicks: []int{30, 0}},
		Workout: WorkoutConfig{DefaultDuration: 45},
	}
	assert.True(t, IsInvalid(cfg.Validate()))

	cfg.Timer.QuickPicks = []int{30}
	assert.NoError(t, cfg.Validate())
}
