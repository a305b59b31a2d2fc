// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config loads the worker-embedding binary's configuration, the way
// syzkaller's pkg/mgrconfig loads syz-manager.cfg: a YAML document validated
// by hand, with defaults filled in rather than relying on struct tags and
// a reflection-based validator.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the worker-embedding binary's full configuration, combining the
// command-line surface with fields too detailed for flags.
type Config struct {
	// Cores is the comma/range CPU-core spec, e.g. "0-3,6".
	Cores string `yaml:"cores"`
	// BrokerAddr is the broker's "host:port". cmd/goafl-fuzz does not read
	// it and always starts its own in-process broker.
	BrokerAddr string `yaml:"broker_addr"`
	// BrokerPort is the TCP port the in-process broker listens on.
	BrokerPort int `yaml:"broker_port"`
	// PeerBroker is an optional second broker to mesh with (--b2baddr).
	PeerBroker string `yaml:"peer_broker"`
	// Input directories seed the initial corpus.
	Input []string `yaml:"input"`
	// Output is where solutions (crashes/timeouts/hangs) are written.
	Output string `yaml:"output"`
	// Stdout redirects worker stdout; empty means discard.
	Stdout string `yaml:"stdout"`

	// ExecTimeoutMS bounds a single harness invocation.
	ExecTimeoutMS int `yaml:"exec_timeout_ms"`
	// EdgeMapSize is the instrumented edge map's byte size (default 65536).
	EdgeMapSize int `yaml:"edge_map_size"`
	// MaxCorpusCache is a resident-set bound for a CacheOnDiskCorpus;
	// cmd/goafl-fuzz does not read it.
	MaxCorpusCache int `yaml:"max_corpus_cache"`
	// Comparisons names the cmplog/I2S stage switch; cmd/goafl-fuzz does
	// not read it.
	Comparisons bool `yaml:"comparisons"`
	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// Default returns a Config with every field set to a sane value, matching
// mgrconfig.Config's defaulting convention.
func Default() *Config {
	return &Config{
		BrokerPort:     0,
		Output:         "./solutions",
		ExecTimeoutMS:  1000,
		EdgeMapSize:    1 << 16,
		MaxCorpusCache: 4096,
	}
}

// Load reads and validates a YAML config file, filling unset fields with
// Default()'s values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if len(cfg.Input) == 0 {
		return fmt.Errorf("config: at least one input directory is required")
	}
	if cfg.Output == "" {
		return fmt.Errorf("config: output directory is required")
	}
	if cfg.ExecTimeoutMS <= 0 {
		return fmt.Errorf("config: exec_timeout_ms must be positive")
	}
	if cfg.EdgeMapSize <= 0 {
		return fmt.Errorf("config: edge_map_size must be positive")
	}
	return nil
}
