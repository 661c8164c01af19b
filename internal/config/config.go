package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"replyflow/internal/constants"
	"replyflow/internal/models"
)

var (
	ErrMissingGatewayURL = models.ConfigError{Message: "missing gateway base URL"}
	ErrMissingDBPath     = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads the JSON config file, applies defaults, then applies
// environment overrides. Overrides win over file values.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.GracefulShutdownSec <= 0 {
		c.Server.GracefulShutdownSec = constants.DefaultGracefulShutdownSec
	}
	if c.Gateway.SessionName == "" {
		c.Gateway.SessionName = constants.DefaultGatewaySessionName
	}
	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = int(constants.DefaultGatewayTimeout / time.Second)
	}
	if len(c.Reconnect.ScheduleSec) == 0 {
		c.Reconnect.ScheduleSec = constants.DefaultReconnectScheduleSec
	}
	if c.Reconnect.MaxAttempts <= 0 {
		c.Reconnect.MaxAttempts = constants.DefaultMaxReconnectAttempts
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("GATEWAY_URL"); url != "" {
		c.Gateway.BaseURL = url
	}
	if key := os.Getenv("GATEWAY_API_KEY"); key != "" {
		c.Gateway.APIKey = key
	}
	if session := os.Getenv("GATEWAY_SESSION"); session != "" {
		c.Gateway.SessionName = session
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

func validate(c *models.Config) error {
	if c.Gateway.BaseURL == "" {
		return ErrMissingGatewayURL
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	for i, sec := range c.Reconnect.ScheduleSec {
		if sec <= 0 {
			return models.ConfigError{Message: "reconnect schedule entry " + strconv.Itoa(i) + " must be positive"}
		}
	}
	return nil
}
