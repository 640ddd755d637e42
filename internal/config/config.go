// Package config loads the node's TOML configuration file (spec §6) the
// way the teacher's daemon layer organizes a Config struct with a
// DefaultConfig constructor and dotted sub-sections.
package config

import (
	"fmt"
	"net"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tutu-network/swimcluster/internal/protocol"
)

// emptyMessageSize returns the serialized size of a bare Ping carrying no
// piggybacked state changes and the given cluster_key — the actual floor
// below which network_mtu can never be satisfied (§7, §8 invariant 2),
// rather than a guessed constant.
func emptyMessageSize(clusterKey []byte) (int, error) {
	msg := protocol.Message{ClusterKey: clusterKey, Request: protocol.PingReq()}
	encoded, err := protocol.NewJSONCodec().Encode(msg)
	if err != nil {
		return 0, err
	}
	return len(encoded), nil
}

// Config is the on-disk TOML shape. Durations are plain strings
// (parseStorageSize-style, see internal/daemon/config_test.go's
// Agent.IdleTimeout) resolved later by Resolve.
type Config struct {
	Cluster  ClusterConfig  `toml:"cluster"`
	Listen   ListenConfig   `toml:"listen"`
	Log      LogConfig      `toml:"log"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// ClusterConfig covers spec §6's required protocol knobs, plus the
// SuspectTimeout addition from SPEC_FULL §E (separate knob, defaults to
// PingTimeout when left blank).
type ClusterConfig struct {
	Key                  string `toml:"key"`
	PingInterval         string `toml:"ping_interval"`
	PingTimeout          string `toml:"ping_timeout"`
	SuspectTimeout       string `toml:"suspect_timeout"`
	NetworkMTU           int    `toml:"network_mtu"`
	PingRequestHostCount int    `toml:"ping_request_host_count"`
}

// ListenConfig is the UDP bind address (§6 listen_addr).
type ListenConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig controls internal/observability.Logger's verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// SnapshotConfig controls internal/snapshot's optional SQLite persistence.
type SnapshotConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns the spec §6 defaults.
func DefaultConfig() Config {
	return Config{
		Cluster: ClusterConfig{
			Key:                  "default",
			PingInterval:         "1s",
			PingTimeout:          "3s",
			SuspectTimeout:       "",
			NetworkMTU:           512,
			PingRequestHostCount: 3,
		},
		Listen: ListenConfig{Addr: "127.0.0.1:2552"},
		Log:    LogConfig{Level: "info"},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Path:    "swimnode.db",
		},
	}
}

// Load reads path as TOML over DefaultConfig, so a partial file only
// overrides what it specifies.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Resolved is Config with durations parsed, defaults applied, and validity
// checked — what internal/reactor actually consumes.
type Resolved struct {
	ClusterKey           []byte
	PingInterval         time.Duration
	PingTimeout          time.Duration
	SuspectTimeout       time.Duration
	NetworkMTU           int
	PingRequestHostCount int
	ListenAddr           string
	LogLevel             string
	SnapshotEnabled      bool
	SnapshotPath         string
}

// Resolve validates and finalizes c, returning a ConfigurationError (§7)
// for a bad bind address or an MTU below the empty-message floor — never
// a panic, always fail-fast before the reactor starts.
func (c Config) Resolve() (Resolved, error) {
	pingInterval, err := parseDuration(c.Cluster.PingInterval, time.Second)
	if err != nil {
		return Resolved{}, &ConfigurationError{Reason: err.Error()}
	}
	pingTimeout, err := parseDuration(c.Cluster.PingTimeout, 3*time.Second)
	if err != nil {
		return Resolved{}, &ConfigurationError{Reason: err.Error()}
	}
	suspectTimeout := pingTimeout
	if c.Cluster.SuspectTimeout != "" {
		suspectTimeout, err = parseDuration(c.Cluster.SuspectTimeout, pingTimeout)
		if err != nil {
			return Resolved{}, &ConfigurationError{Reason: err.Error()}
		}
	}

	key := c.Cluster.Key
	if key == "" {
		key = "default"
	}

	mtu := c.Cluster.NetworkMTU
	if mtu == 0 {
		mtu = 512
	}
	floor, err := emptyMessageSize([]byte(key))
	if err != nil {
		return Resolved{}, &ConfigurationError{Reason: fmt.Sprintf("compute empty-message floor: %v", err)}
	}
	if mtu < floor {
		return Resolved{}, &ConfigurationError{
			Reason: fmt.Sprintf("network_mtu %d is below the empty-message floor %d", mtu, floor),
		}
	}

	listenAddr := c.Listen.Addr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:2552"
	}
	if _, _, err := net.SplitHostPort(listenAddr); err != nil {
		return Resolved{}, &ConfigurationError{Reason: fmt.Sprintf("bad listen address %q: %v", listenAddr, err)}
	}

	count := c.Cluster.PingRequestHostCount
	if count <= 0 {
		count = 3
	}

	return Resolved{
		ClusterKey:           []byte(key),
		PingInterval:         pingInterval,
		PingTimeout:          pingTimeout,
		SuspectTimeout:       suspectTimeout,
		NetworkMTU:           mtu,
		PingRequestHostCount: count,
		ListenAddr:           listenAddr,
		LogLevel:             c.Log.Level,
		SnapshotEnabled:      c.Snapshot.Enabled,
		SnapshotPath:         c.Snapshot.Path,
	}, nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d, nil
}
