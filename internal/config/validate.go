package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.RestURL == "" {
		return errors.New("api.rest_url is required")
	}
	if c.API.WSURL == "" {
		return errors.New("api.ws_url is required")
	}
	if !strings.HasPrefix(c.API.WSURL, "ws://") && !strings.HasPrefix(c.API.WSURL, "wss://") {
		return fmt.Errorf("api.ws_url must use ws:// or wss:// scheme, got %q", c.API.WSURL)
	}

	if c.Session.ReconnectBaseDelay > c.Session.ReconnectMaxDelay {
		return fmt.Errorf("session.reconnect_base_delay (%v) cannot exceed reconnect_max_delay (%v)",
			c.Session.ReconnectBaseDelay, c.Session.ReconnectMaxDelay)
	}
	if c.Session.BufferSize < 1 {
		return errors.New("session.buffer_size must be >= 1")
	}
	if c.Session.HistorySize < 0 {
		return errors.New("session.history_size must be >= 0")
	}

	if c.Unread.Interval <= 0 {
		return errors.New("unread.interval must be > 0")
	}

	if c.Archive.Enabled {
		if err := c.Archive.Database.validate("archive.database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
