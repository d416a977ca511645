package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/logger"
)

func execute(t *testing.T, args ...string) (string, *conf.Settings, error) {
	t.Helper()
	t.Cleanup(Cleanup)

	settings := &conf.Settings{}
	root := RootCommand(settings)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), settings, err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionSkipsConfiguration(t *testing.T) {
	out, settings, err := execute(t, "version", "--config", "/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "rwm-dataset ")
	assert.Empty(t, settings.Dataset.Format, "settings stay unloaded")
}

func TestConfigShowMasksSecrets(t *testing.T) {
	path := writeConfig(t, `
database:
  password: hunter2
dataset:
  format: yolov5
sentry:
  dsn: https://key@sentry.example/1
`)
	out, settings, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)

	assert.Equal(t, path, settings.ConfigFile)
	assert.Contains(t, out, "# source: "+path)
	assert.Contains(t, out, "format: yolov5")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "sentry.example")
	assert.Equal(t, "hunter2", settings.Database.Password, "loaded settings keep the secret")
}

func TestMissingConfigFails(t *testing.T) {
	_, _, err := execute(t, "config", "show", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, "debug: false\n")
	_, _, err := execute(t, "config", "show", "--config", path, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
}

func TestEffectiveLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		flags globalFlags
		debug bool
		want  string
	}{
		{name: "configured levels kept", want: ""},
		{name: "debug flag", flags: globalFlags{debug: true}, want: "debug"},
		{name: "debug setting", debug: true, want: "debug"},
		{name: "log level wins over debug", flags: globalFlags{debug: true, logLevel: "trace"}, want: "trace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := effectiveLogLevel(&conf.Settings{Debug: tt.debug}, &tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyLogLevel(t *testing.T) {
	cfg := logger.LoggingConfig{DefaultLevel: "info", Console: &logger.ConsoleOutput{Enabled: true, Level: "warn"}}

	applyLogLevel(&cfg, "")
	assert.Equal(t, "warn", cfg.Console.Level)

	applyLogLevel(&cfg, "debug")
	assert.Equal(t, "debug", cfg.DefaultLevel)
	assert.Equal(t, "debug", cfg.Console.Level)
}
