package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadFromExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "main:\n  name: rig-7\nrealtime:\n  video:\n    fps: 29.97\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "rig-7", settings.Main.Name)
	assert.InDelta(t, 29.97, settings.Realtime.Video.FPS, 0.001)
	assert.Equal(t, 1920, settings.Realtime.Video.Width, "unset keys keep their defaults")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "realtime:\n  video:\n    width: -1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	settings := validSettings()
	settings.Main.Name = "rig-7"
	settings.Realtime.Detector.SpikeMultiplier = 5.5
	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Settings
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "rig-7", got.Main.Name)
	assert.InDelta(t, 5.5, got.Realtime.Detector.SpikeMultiplier, 0.001)
}
