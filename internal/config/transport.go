package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

const (
	EnvTransportHost     = "EPISTLE_TRANSPORT_HOST"
	EnvTransportPort     = "EPISTLE_TRANSPORT_PORT"
	EnvTransportURL      = "EPISTLE_TRANSPORT_URL"
	EnvTransportClientID = "EPISTLE_TRANSPORT_CLIENT_ID"
)

// TransportConfig holds message router parameters. Host and Port are
// the router's own listen address; URL is the websocket endpoint the
// server and agent workers dial.
type TransportConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	URL      string `toml:"url"`
	ClientID string `toml:"client_id"`
}

// Addr returns the host:port listen address for the router.
func (c *TransportConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *TransportConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *TransportConfig) Merge(overlay *TransportConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
}

func (c *TransportConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8090
	}
	if c.URL == "" {
		c.URL = fmt.Sprintf("ws://localhost:%d/ws", c.Port)
	}
	if c.ClientID == "" {
		c.ClientID = "epistle-server"
	}
}

func (c *TransportConfig) loadEnv() {
	if v := os.Getenv(EnvTransportHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvTransportPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvTransportURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(EnvTransportClientID); v != "" {
		c.ClientID = v
	}
}

func (c *TransportConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid url scheme: %s", u.Scheme)
	}

	return nil
}
