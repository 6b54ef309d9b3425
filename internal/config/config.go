// Package config loads and validates protocol tunables from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries every protocol tunable. Durations are expressed in seconds
// in the TOML form.
type Config struct {
	// HandshakeTimeoutSeconds bounds how long a handshake may stay in a
	// non-terminal state before it is aborted.
	HandshakeTimeoutSeconds int `toml:"handshake_timeout_seconds"`

	// SessionTTLSeconds is the default lifetime of an established session;
	// heartbeats extend it.
	SessionTTLSeconds int `toml:"session_ttl_seconds"`

	// ReplayWindowSeconds is the sliding window of remembered nonces.
	ReplayWindowSeconds int `toml:"replay_window_seconds"`

	// TimestampToleranceSeconds is the accepted clock skew for inbound
	// message timestamps.
	TimestampToleranceSeconds int `toml:"timestamp_tolerance_seconds"`

	// SweepIntervalSeconds is how often the session manager evicts expired
	// and stuck sessions.
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`

	// SequenceWindow is how many recently accepted receive-sequence numbers
	// each session remembers.
	SequenceWindow int `toml:"sequence_window"`

	// MaxDecryptFailures terminates a session after this many consecutive
	// failed decrypts; key desynchronization cannot self-heal.
	MaxDecryptFailures int `toml:"max_decrypt_failures"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		HandshakeTimeoutSeconds:   30,
		SessionTTLSeconds:         3600,
		ReplayWindowSeconds:       300,
		TimestampToleranceSeconds: 120,
		SweepIntervalSeconds:      60,
		SequenceWindow:            64,
		MaxDecryptFailures:        3,
	}
}

// Load reads a TOML file over the defaults. A missing path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would break protocol guarantees.
func (c Config) Validate() error {
	if c.HandshakeTimeoutSeconds <= 0 {
		return fmt.Errorf("handshake_timeout_seconds must be positive, got %d", c.HandshakeTimeoutSeconds)
	}
	if c.SessionTTLSeconds <= 0 {
		return fmt.Errorf("session_ttl_seconds must be positive, got %d", c.SessionTTLSeconds)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("sweep_interval_seconds must be positive, got %d", c.SweepIntervalSeconds)
	}
	if c.SequenceWindow <= 0 {
		return fmt.Errorf("sequence_window must be positive, got %d", c.SequenceWindow)
	}
	if c.MaxDecryptFailures <= 0 {
		return fmt.Errorf("max_decrypt_failures must be positive, got %d", c.MaxDecryptFailures)
	}
	// The replay window must outlast the timestamp tolerance, otherwise a
	// message can be replayed after its nonce is evicted but while its
	// timestamp still passes.
	if c.ReplayWindowSeconds < 2*c.TimestampToleranceSeconds {
		return fmt.Errorf("replay_window_seconds (%d) must be at least twice timestamp_tolerance_seconds (%d)",
			c.ReplayWindowSeconds, c.TimestampToleranceSeconds)
	}
	return nil
}

func (c Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutSeconds) * time.Second
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c Config) ReplayWindow() time.Duration {
	return time.Duration(c.ReplayWindowSeconds) * time.Second
}

func (c Config) TimestampTolerance() time.Duration {
	return time.Duration(c.TimestampToleranceSeconds) * time.Second
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}
