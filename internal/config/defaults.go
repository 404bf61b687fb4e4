package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL            = "https://api.marketlane.io/v1"
	DefaultWSURL              = "wss://chat.marketlane.io/ws"
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultSubscribeTimeout   = 10 * time.Second
	DefaultConfirmTimeout     = 15 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultBufferSize         = 1000
	DefaultHistorySize        = 50
	DefaultUnreadInterval     = 20 * time.Second
	DefaultRequestTimeout     = 10 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 5
	DefaultMinConns           = 1
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 2 * time.Second
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	// Session defaults
	if c.Session.ReconnectBaseDelay == 0 {
		c.Session.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Session.ReconnectMaxDelay == 0 {
		c.Session.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Session.SubscribeTimeout == 0 {
		c.Session.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if c.Session.ConfirmTimeout == 0 {
		c.Session.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.Session.PingTimeout == 0 {
		c.Session.PingTimeout = DefaultPingTimeout
	}
	if c.Session.WriteTimeout == 0 {
		c.Session.WriteTimeout = DefaultWriteTimeout
	}
	if c.Session.BufferSize == 0 {
		c.Session.BufferSize = DefaultBufferSize
	}
	if c.Session.HistorySize == 0 {
		c.Session.HistorySize = DefaultHistorySize
	}

	// Unread defaults
	if c.Unread.Interval == 0 {
		c.Unread.Interval = DefaultUnreadInterval
	}
	if c.Unread.RequestTimeout == 0 {
		c.Unread.RequestTimeout = DefaultRequestTimeout
	}

	// Archive defaults (only meaningful when enabled)
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	applyDBDefaults(&c.Archive.Database)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
