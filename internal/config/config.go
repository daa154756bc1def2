// Package config loads the nested-YAML configuration (C13) described in
// SPEC_FULL.md §6, following the teacher's config.Get()/LoadConfig
// singleton-with-env-override idiom.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config is the root configuration object.
type Config struct {
	Concurrency     int            `yaml:"concurrency"`
	EnableScheduler bool           `yaml:"enable_scheduler"`
	Runtimes        RuntimesConfig `yaml:"runtimes"`
	Security        SecurityConfig `yaml:"security"`
	History         HistoryConfig  `yaml:"history"`
	Audit           AuditConfig    `yaml:"audit"`
}

// RuntimeToggle enables or disables a single back-end at startup.
type RuntimeToggle struct {
	Enabled bool `yaml:"enabled"`
}

// RuntimesConfig toggles which reference back-ends are registered.
type RuntimesConfig struct {
	Wasm        RuntimeToggle `yaml:"wasm"`
	Ebpf        RuntimeToggle `yaml:"ebpf"`
	V8Isolate   RuntimeToggle `yaml:"v8isolate"`
	Python      RuntimeToggle `yaml:"python"`
	Firecracker RuntimeToggle `yaml:"firecracker"`
}

// SecurityConfig controls the security coordinator's layers.
type SecurityConfig struct {
	EnableProcessIsolation bool   `yaml:"enable_process_isolation"`
	EnableSystemSandbox    bool   `yaml:"enable_system_sandbox"`
	EnableCapabilityChecks bool   `yaml:"enable_capability_checks"`
	DefaultTrustLevel      string `yaml:"default_trust_level"`
	RedisAddr              string `yaml:"redis_addr"`
	SpireSocket            string `yaml:"spire_socket"`
}

// HistoryConfig sizes the scheduler's global execution history ring.
type HistoryConfig struct {
	GlobalRingSize int `yaml:"global_ring_size"`
}

// AuditConfig sizes the hash-chained audit ring.
type AuditConfig struct {
	RingSize int `yaml:"ring_size"`
}

// Load reads path as YAML, then applies NEXTRC_-prefixed environment
// overrides and defaults, mirroring config.LoadConfig +
// applyEnvOverrides in the teacher's config package.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
				return nil, err
			}
		}
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := getEnvInt("NEXTRC_CONCURRENCY", 0); v > 0 {
		c.Concurrency = v
	}
	if v := os.Getenv("NEXTRC_ENABLE_SCHEDULER"); v != "" {
		c.EnableScheduler = v == "true" || v == "1"
	}
	c.Security.DefaultTrustLevel = getEnv("NEXTRC_DEFAULT_TRUST_LEVEL", c.Security.DefaultTrustLevel)
	c.Security.RedisAddr = getEnv("NEXTRC_REDIS_ADDR", c.Security.RedisAddr)
	c.Security.SpireSocket = getEnv("NEXTRC_SPIRE_SOCKET", c.Security.SpireSocket)
	if v := getEnvInt("NEXTRC_GLOBAL_RING_SIZE", 0); v > 0 {
		c.History.GlobalRingSize = v
	}
	if v := getEnvInt("NEXTRC_AUDIT_RING_SIZE", 0); v > 0 {
		c.Audit.RingSize = v
	}
}

func (c *Config) applyDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 100
	}
	if c.Security.DefaultTrustLevel == "" {
		c.Security.DefaultTrustLevel = "low"
	}
	if c.History.GlobalRingSize == 0 {
		c.History.GlobalRingSize = 1000
	}
	if c.Audit.RingSize == 0 {
		c.Audit.RingSize = 10000
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
