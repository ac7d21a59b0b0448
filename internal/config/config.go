// Package config holds the three externally-supplied values spec.md §6
// names: where the certificate store persists, where the transport
// service listens, and how wide a clock-skew window the handshake
// tolerates. Everything else (YAML files, environment binding, flag
// parsing) is cmd/milkyway's concern, not this package's.
package config

import (
	"errors"
	"time"
)

// ErrInvalid reports a Config field that fails Validate.
var ErrInvalid = errors.New("config: invalid value")

// Config is the runtime configuration every milkyway host needs to start
// the certificate store and transport service.
type Config struct {
	// StorePath is the file the certificate store commits its snapshot to
	// and loads from on startup.
	StorePath string

	// ListenAddr is the "host:port" the transport service accepts
	// connections on. Empty means this host never listens (dial-only).
	ListenAddr string

	// HandshakeWindow is the symmetric freshness tolerance applied to both
	// sides of every handshake (spec.md §9).
	HandshakeWindow time.Duration
}

// Default returns the Config a bare milkyway host starts from absent any
// flags: a local snapshot file, no listener, and a five-second freshness
// window.
func Default() Config {
	return Config{
		StorePath:       "milkyway.store",
		HandshakeWindow: 5 * time.Second,
	}
}

// Validate reports whether c is usable: StorePath must be set and
// HandshakeWindow must be positive. ListenAddr may be empty (dial-only
// hosts never call Listen).
func (c Config) Validate() error {
	if c.StorePath == "" {
		return errors.New("config: store path must not be empty")
	}
	if c.HandshakeWindow <= 0 {
		return errors.New("config: handshake window must be positive")
	}
	return nil
}
