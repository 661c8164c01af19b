package models

import (
	"time"
)

type ServerConfig struct {
	Port                int `json:"port"`
	ReadTimeoutSec      int `json:"readTimeoutSec"`
	WriteTimeoutSec     int `json:"writeTimeoutSec"`
	IdleTimeoutSec      int `json:"idleTimeoutSec"`
	GracefulShutdownSec int `json:"gracefulShutdownSec"`
}

type GatewayConfig struct {
	BaseURL     string `json:"baseUrl"`
	APIKey      string `json:"-"`
	SessionName string `json:"sessionName"`
	TimeoutSec  int    `json:"timeoutSec"`
}

// Timeout returns the HTTP timeout as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// ReconnectConfig tunes the lifecycle manager's recovery policy. The
// schedule is policy, not an invariant; it may be overridden per deploy.
type ReconnectConfig struct {
	ScheduleSec []int `json:"scheduleSec"`
	MaxAttempts int   `json:"maxAttempts"`
}

type Config struct {
	Server    ServerConfig    `json:"server"`
	Gateway   GatewayConfig   `json:"gateway"`
	Database  DatabaseConfig  `json:"database"`
	Reconnect ReconnectConfig `json:"reconnect"`
	LogLevel  string          `json:"logLevel"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
