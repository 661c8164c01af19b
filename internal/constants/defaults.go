package constants

import "time"

// Reconnection policy defaults. The schedule is indexed by attempt count
// and clamped to its last entry; after MaxReconnectAttempts no further
// automatic reconnects are scheduled.
var DefaultReconnectScheduleSec = []int{5, 10, 30, 60, 120}

const DefaultMaxReconnectAttempts = 5

// Rule and message-log limits
const (
	MaxMessageLogs   = 100
	MaxReplyDelaySec = 60
)

// Server defaults
const (
	DefaultServerPort            = 8080
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
)

// Gateway defaults
const (
	DefaultGatewayTimeout     = 30 * time.Second
	DefaultGatewaySessionName = "default"
)

// Database init retry defaults
const (
	DefaultDatabaseRetryAttempts  = 3
	DefaultDatabaseBackoffInitial = 500 * time.Millisecond
	DefaultDatabaseBackoffMax     = 5 * time.Second
)

// Event bus defaults
const (
	SubscriberChannelSize  = 64
	ServerErrorChannelSize = 1
)
