package gateway

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	// AuthChannel is the plugin message channel carrying credentials.
	AuthChannel = "phoenixclient-auth"
	// CommandPrefix marks chat messages addressed to the gateway.
	CommandPrefix = "p."
)

// Config holds everything a Server needs. Durations decode from strings
// like "10s" in YAML.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	MOTD       string `yaml:"motd"`
	MaxPlayers int    `yaml:"max_players"`

	Whitelist     bool   `yaml:"whitelist"`
	WhitelistFile string `yaml:"whitelist_file"`

	RemoteHost string `yaml:"remote_host"`
	RemotePort int    `yaml:"remote_port"`

	// CompressionThreshold is sent to clients at login. Negative disables
	// compression on the client link.
	CompressionThreshold int `yaml:"compression_threshold"`

	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	LoginTimeout      time.Duration `yaml:"login_timeout"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`

	PingInterval  time.Duration `yaml:"ping_interval"`
	PingThreshold time.Duration `yaml:"ping_threshold"`
	RestartDelay  time.Duration `yaml:"restart_delay"`

	// AcceptRate limits new connections per second; zero disables.
	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`

	AdminAddr string `yaml:"admin_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func DefaultConfig() Config {
	return Config{
		Host:                 "0.0.0.0",
		Port:                 25565,
		MOTD:                 "A Minecraft gateway",
		MaxPlayers:           20,
		WhitelistFile:        "whitelist.txt",
		RemoteHost:           "mc.hypixel.net",
		RemotePort:           25565,
		CompressionThreshold: 256,
		KeepAliveInterval:    15 * time.Second,
		LoginTimeout:         30 * time.Second,
		DialTimeout:          15 * time.Second,
		PingInterval:         10 * time.Second,
		PingThreshold:        time.Second,
		RestartDelay:         3 * time.Second,
		AcceptRate:           10,
		AcceptBurst:          20,
		LogLevel:             "info",
		LogFormat:            "console",
	}
}

func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) UpstreamAddr() string {
	return net.JoinHostPort(c.RemoteHost, strconv.Itoa(c.RemotePort))
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.RemoteHost == "":
		return fmt.Errorf("remote host is required")
	case c.RemotePort <= 0 || c.RemotePort > 65535:
		return fmt.Errorf("remote port %d out of range", c.RemotePort)
	case c.Whitelist && c.WhitelistFile == "":
		return fmt.Errorf("whitelist enabled without a whitelist file")
	case c.KeepAliveInterval <= 0:
		return fmt.Errorf("keep alive interval must be positive")
	case c.PingInterval <= 0:
		return fmt.Errorf("ping interval must be positive")
	case c.PingThreshold <= 0:
		return fmt.Errorf("ping threshold must be positive")
	case c.RestartDelay < 0:
		return fmt.Errorf("restart delay must not be negative")
	case c.AcceptRate < 0:
		return fmt.Errorf("accept rate must not be negative")
	}
	return nil
}
