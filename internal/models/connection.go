package models

// ConnectionState labels the lifecycle manager's state machine.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
)

// ConnectionStatus is the observer snapshot served by the dashboard API.
type ConnectionStatus struct {
	Status ConnectionState `json:"status"`
	QR     string          `json:"qr,omitempty"`
}

// PipelineStats is the combined statistics snapshot of the message pipeline.
type PipelineStats struct {
	MessageCount     int64           `json:"messageCount"`
	UptimeSec        int64           `json:"uptime"`
	UptimeFormatted  string          `json:"uptimeFormatted"`
	ConnectionStatus ConnectionState `json:"connectionStatus"`
	IsRunning        bool            `json:"isRunning"`
	RuleStats
}
