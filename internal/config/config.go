package config

import "time"

// Config is the root configuration for a chat session client.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Unread  UnreadConfig  `yaml:"unread"`
	Archive ArchiveConfig `yaml:"archive"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig holds the REST collaborator endpoints and credentials.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`
	Token      string        `yaml:"token"` // Bearer token for REST and channel auth
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// SessionConfig holds transport and subscription settings.
type SessionConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	SubscribeTimeout   time.Duration `yaml:"subscribe_timeout"`
	ConfirmTimeout     time.Duration `yaml:"confirm_timeout"` // Deadline for pending entries to confirm
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
	HistorySize        int           `yaml:"history_size"` // Messages fetched before live attach
}

// UnreadConfig holds badge aggregation settings.
type UnreadConfig struct {
	Interval       time.Duration `yaml:"interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ArchiveConfig holds the optional local transcript archive settings.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
