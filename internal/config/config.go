package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"

	"placewatch/presence-server/internal/model"
)

// Config lists the tunable runtime parameters for the presence server.
type Config struct {
	HTTPPort     int
	MetricsPort  int
	DatabasePath string
	LogLevel     string

	MQTTBrokerURL string
	MQTTTopic     string

	SettingsPath string
	Settings     Settings
}

// Settings carries the domain configuration loaded from the YAML settings
// file: the home circle, named places, user aliases and geocoding options.
type Settings struct {
	Home      Home              `yaml:"home"`
	Places    []model.Place     `yaml:"places"`
	Users     []model.UserAlias `yaml:"users"`
	Geocoding Geocoding         `yaml:"geocoding"`
}

// Home is the implicit first geofence, checked before any named place.
type Home struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Radius    float64 `yaml:"radius"`
}

// Geocoding controls the optional Google Maps enrichment.
type Geocoding struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
}

const (
	defaultHTTPPort     = 8080
	defaultMetricsPort  = 9090
	defaultDatabasePath = "data/presence.db"
	defaultLogLevel     = "info"
	defaultMQTTTopic    = "owntracks/#"
	defaultSettingsPath = "settings.yaml"

	defaultHomeName   = "Home"
	defaultHomeRadius = 100.0
)

// Load derives configuration values from environment variables, falling
// back to defaults, then merges the YAML settings file if one exists.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     defaultHTTPPort,
		MetricsPort:  defaultMetricsPort,
		DatabasePath: defaultDatabasePath,
		LogLevel:     defaultLogLevel,
		MQTTTopic:    defaultMQTTTopic,
		SettingsPath: defaultSettingsPath,
	}

	if v := os.Getenv("PRESENCE_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PRESENCE_HTTP_PORT: %w", err)
		}
		cfg.HTTPPort = port
	}

	if v := os.Getenv("PRESENCE_METRICS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PRESENCE_METRICS_PORT: %w", err)
		}
		cfg.MetricsPort = port
	}

	if v := os.Getenv("PRESENCE_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	if v := os.Getenv("PRESENCE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("PRESENCE_MQTT_BROKER"); v != "" {
		cfg.MQTTBrokerURL = v
	}

	if v := os.Getenv("PRESENCE_MQTT_TOPIC"); v != "" {
		cfg.MQTTTopic = v
	}

	if v := os.Getenv("PRESENCE_SETTINGS_PATH"); v != "" {
		cfg.SettingsPath = v
	}

	settings, err := loadSettings(cfg.SettingsPath)
	if err != nil {
		return Config{}, err
	}
	cfg.Settings = settings

	return cfg, nil
}

func loadSettings(path string) (Settings, error) {
	settings := Settings{
		Home: Home{Name: defaultHomeName, Radius: defaultHomeRadius},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings file: %w", err)
	}

	if settings.Home.Name == "" {
		settings.Home.Name = defaultHomeName
	}
	if settings.Home.Radius <= 0 {
		settings.Home.Radius = defaultHomeRadius
	}

	return settings, nil
}
