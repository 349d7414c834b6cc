// Package config loads the daemon's YAML configuration file into a
// nested struct tagged with `yaml:"..."` fields, one section per
// collaborator (gateway identity, reset pins, GNSS, duty cycle, worker
// timing, event sockets, logging).
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration file structure (spec.md §6: "a
// complete enumeration of configuration effects is part of the CLI/config
// collaborator, not the core" — this package is that collaborator).
type Config struct {
	Gateway struct {
		IDHex       string `yaml:"id"` // 8 bytes, hex-encoded
		Region      string `yaml:"region"` // "EU868", "US915", "ISM2G4"
		AntennaGain int8   `yaml:"antenna_gain_dbm"`
		Board       string `yaml:"board"` // "sx1301", "sx1302", "sx1280"
		DevicePath  string `yaml:"device_path"`
	} `yaml:"gateway"`

	Reset struct {
		// Pin numbers are parsed but neither validated nor toggled
		// (spec.md §1: vendor/board pin reset sequences are out of scope).
		ResetPin uint `yaml:"reset_pin"`
		PowerPin uint `yaml:"power_pin"`
	} `yaml:"reset"`

	GNSS struct {
		Source   string `yaml:"source"` // "none", "tty", "gpsd"
		TTYPath  string `yaml:"tty_path"`
		GpsdAddr string `yaml:"gpsd_addr"`
	} `yaml:"gnss"`

	DutyCycle struct {
		Enabled       bool `yaml:"enabled"`
		WindowSeconds int  `yaml:"window_seconds"`
		AggregationMS int  `yaml:"aggregation_guard_ms"`
	} `yaml:"duty_cycle"`

	Timing struct {
		JITLoopMS       int `yaml:"jit_loop_ms"`
		UplinkLoopMS    int `yaml:"uplink_loop_ms"`
		StatsPeriodSec  int `yaml:"stats_period_sec"`
		MinLeadMS       int `yaml:"min_lead_ms"`
		MaxLeadSec      int `yaml:"max_lead_sec"`
		ImmediateLeadMS int `yaml:"immediate_lead_ms"`
		DropThresholdMS int `yaml:"drop_threshold_ms"`
	} `yaml:"timing"`

	Events struct {
		EventBindURL   string `yaml:"event_bind_url"`
		CommandBindURL string `yaml:"command_bind_url"`
	} `yaml:"events"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Timing.JITLoopMS == 0 {
		c.Timing.JITLoopMS = 10
	}
	if c.Timing.UplinkLoopMS == 0 {
		c.Timing.UplinkLoopMS = 10
	}
	if c.Timing.StatsPeriodSec == 0 {
		c.Timing.StatsPeriodSec = 30
	}
	if c.Timing.MinLeadMS == 0 {
		c.Timing.MinLeadMS = 2
	}
	if c.Timing.MaxLeadSec == 0 {
		c.Timing.MaxLeadSec = 60
	}
	if c.Timing.ImmediateLeadMS == 0 {
		c.Timing.ImmediateLeadMS = 3
	}
	if c.Timing.DropThresholdMS == 0 {
		c.Timing.DropThresholdMS = 100
	}
	if c.DutyCycle.WindowSeconds == 0 {
		c.DutyCycle.WindowSeconds = 3600
	}
	if c.DutyCycle.AggregationMS == 0 {
		c.DutyCycle.AggregationMS = 20
	}
	if c.Events.EventBindURL == "" {
		c.Events.EventBindURL = "ipc:///tmp/lora-gwd_event"
	}
	if c.Events.CommandBindURL == "" {
		c.Events.CommandBindURL = "ipc:///tmp/lora-gwd_command"
	}
	return nil
}

// GatewayID decodes the hex-encoded gateway EUI into its 8-byte form.
func (c *Config) GatewayID() ([8]byte, error) {
	var id [8]byte
	if c.Gateway.IDHex == "" {
		return id, nil
	}
	raw, err := hex.DecodeString(c.Gateway.IDHex)
	if err != nil {
		return id, fmt.Errorf("config: gateway.id is not valid hex: %w", err)
	}
	if len(raw) != 8 {
		return id, fmt.Errorf("config: gateway.id must be 8 bytes (16 hex characters), got %d", len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

func msDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
func secDuration(s int) time.Duration { return time.Duration(s) * time.Second }

// JITLoopPeriod returns the configured JIT Loop cycle period.
func (c *Config) JITLoopPeriod() time.Duration { return msDuration(c.Timing.JITLoopMS) }

// UplinkLoopPeriod returns the configured Uplink Loop cycle period.
func (c *Config) UplinkLoopPeriod() time.Duration { return msDuration(c.Timing.UplinkLoopMS) }

// StatsPeriod returns the configured Stats Aggregator flush period.
func (c *Config) StatsPeriod() time.Duration { return secDuration(c.Timing.StatsPeriodSec) }

// MinLead returns the configured JIT queue MIN_LEAD.
func (c *Config) MinLead() time.Duration { return msDuration(c.Timing.MinLeadMS) }

// MaxLead returns the configured JIT queue MAX_LEAD.
func (c *Config) MaxLead() time.Duration { return secDuration(c.Timing.MaxLeadSec) }

// ImmediateLead returns the configured CLASS_C immediate-send lead time.
func (c *Config) ImmediateLead() time.Duration { return msDuration(c.Timing.ImmediateLeadMS) }

// DropThreshold returns the configured stale-item drop threshold.
func (c *Config) DropThreshold() time.Duration { return msDuration(c.Timing.DropThresholdMS) }

// DutyCycleWindow returns the configured regulation engine window_time.
func (c *Config) DutyCycleWindow() time.Duration { return secDuration(c.DutyCycle.WindowSeconds) }

// AggregationGuard returns the configured reservation-coalescing guard.
func (c *Config) AggregationGuard() time.Duration { return msDuration(c.DutyCycle.AggregationMS) }
