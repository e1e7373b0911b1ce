package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRESENCE_SETTINGS_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, defaultHTTPPort, cfg.HTTPPort)
	require.Equal(t, defaultMetricsPort, cfg.MetricsPort)
	require.Equal(t, defaultDatabasePath, cfg.DatabasePath)
	require.Equal(t, defaultMQTTTopic, cfg.MQTTTopic)
	require.Empty(t, cfg.MQTTBrokerURL)

	// A missing settings file still yields a usable home circle.
	require.Equal(t, "Home", cfg.Settings.Home.Name)
	require.Equal(t, defaultHomeRadius, cfg.Settings.Home.Radius)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRESENCE_HTTP_PORT", "9999")
	t.Setenv("PRESENCE_DATABASE_PATH", "/tmp/test.db")
	t.Setenv("PRESENCE_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("PRESENCE_MQTT_TOPIC", "owntracks/+/+")
	t.Setenv("PRESENCE_SETTINGS_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 9999, cfg.HTTPPort)
	require.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	require.Equal(t, "tcp://broker:1883", cfg.MQTTBrokerURL)
	require.Equal(t, "owntracks/+/+", cfg.MQTTTopic)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("PRESENCE_HTTP_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
home:
  name: Basecamp
  latitude: 52.520008
  longitude: 13.404954
  radius: 150
places:
  - name: Office
    latitude: 52.53
    longitude: 13.42
    radius: 200
users:
  - name: al
    replacement: Alice
geocoding:
  enabled: true
  api_key: test-api-key-123
  language: de
`), 0o600))
	t.Setenv("PRESENCE_SETTINGS_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "Basecamp", cfg.Settings.Home.Name)
	require.Equal(t, 52.520008, cfg.Settings.Home.Latitude)
	require.Equal(t, 150.0, cfg.Settings.Home.Radius)

	require.Len(t, cfg.Settings.Places, 1)
	require.Equal(t, "Office", cfg.Settings.Places[0].Name)

	require.Len(t, cfg.Settings.Users, 1)
	require.Equal(t, "Alice", cfg.Settings.Users[0].Replacement)

	require.True(t, cfg.Settings.Geocoding.Enabled)
	require.Equal(t, "de", cfg.Settings.Geocoding.Language)
}

func TestLoadSettingsFilePartialHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
home:
  latitude: 52.520008
  longitude: 13.404954
`), 0o600))
	t.Setenv("PRESENCE_SETTINGS_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "Home", cfg.Settings.Home.Name)
	require.Equal(t, defaultHomeRadius, cfg.Settings.Home.Radius)
}
