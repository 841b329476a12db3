// Package config loads and validates the proxy's configuration record
// (spec §6): environment variables first, with an optional YAML or JSON
// file overlay, following the same getEnv-helper + Load/Validate shape
// the rest of the stack uses for its configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Network identifies which StarkNet/Ethereum network pairing the proxy
// anchors to. Only MAINNET and SEPOLIA are recognized constants (spec §6).
type Network string

const (
	Mainnet Network = "MAINNET"
	Sepolia Network = "SEPOLIA"
)

// Config is the complete recognized configuration record (spec §6's
// table) plus the ambient operational fields every component in this
// stack carries regardless of the spec's Non-goals.
type Config struct {
	StarknetRPC     string        `json:"starknet_rpc" yaml:"starknet_rpc"`
	EthExecutionRPC string        `json:"eth_execution_rpc" yaml:"eth_execution_rpc"`
	Network         Network       `json:"network" yaml:"network"`
	DataDir         string        `json:"data_dir" yaml:"data_dir"`
	PollSecs        int           `json:"poll_secs" yaml:"poll_secs"`
	RPCAddr         string        `json:"rpc_addr" yaml:"rpc_addr"`
	LogLevel        string        `json:"log_level" yaml:"log_level"`
	RequestTimeout  time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// Load reads configuration from environment variables, then overlays an
// optional config file named by STARKNET_PROXY_CONFIG_FILE (YAML or
// JSON, detected by extension). Call Validate() before using the result.
func Load() (*Config, error) {
	cfg := &Config{
		StarknetRPC:     getEnv("STARKNET_RPC", ""),
		EthExecutionRPC: getEnv("ETH_EXECUTION_RPC", ""),
		Network:         Network(strings.ToUpper(getEnv("NETWORK", ""))),
		DataDir:         getEnv("DATA_DIR", "tmp"),
		PollSecs:        getEnvInt("POLL_SECS", 30),
		RPCAddr:         getEnv("RPC_ADDR", "0.0.0.0:3030"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
	}

	if path := getEnv("STARKNET_PROXY_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	return cfg, nil
}

// loadFromFile overlays fields present in the file on top of the
// environment-derived defaults. Only recognized fields are merged; an
// empty/zero field in the file leaves the existing value untouched.
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
	default:
		return fmt.Errorf("unrecognized config file extension %q (want .yaml/.yml/.json)", filepath.Ext(path))
	}

	if file.StarknetRPC != "" {
		c.StarknetRPC = file.StarknetRPC
	}
	if file.EthExecutionRPC != "" {
		c.EthExecutionRPC = file.EthExecutionRPC
	}
	if file.Network != "" {
		c.Network = Network(strings.ToUpper(string(file.Network)))
	}
	if file.DataDir != "" {
		c.DataDir = file.DataDir
	}
	if file.PollSecs != 0 {
		c.PollSecs = file.PollSecs
	}
	if file.RPCAddr != "" {
		c.RPCAddr = file.RPCAddr
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.RequestTimeout != 0 {
		c.RequestTimeout = file.RequestTimeout
	}
	return nil
}

// Validate checks that every required field is present and within its
// documented bounds. Configuration errors are fatal at startup (spec §7).
func (c *Config) Validate() error {
	var errs []string

	if c.StarknetRPC == "" {
		errs = append(errs, "starknet_rpc is required")
	} else if _, err := url.ParseRequestURI(c.StarknetRPC); err != nil {
		errs = append(errs, fmt.Sprintf("starknet_rpc is not a valid URL: %v", err))
	}

	if c.EthExecutionRPC == "" {
		errs = append(errs, "eth_execution_rpc is required")
	} else if _, err := url.ParseRequestURI(c.EthExecutionRPC); err != nil {
		errs = append(errs, fmt.Sprintf("eth_execution_rpc is not a valid URL: %v", err))
	}

	switch c.Network {
	case Mainnet, Sepolia:
	default:
		errs = append(errs, fmt.Sprintf("network must be MAINNET or SEPOLIA, got %q", c.Network))
	}

	if c.PollSecs < 1 || c.PollSecs > 3600 {
		errs = append(errs, fmt.Sprintf("poll_secs must be in 1..3600, got %d", c.PollSecs))
	}

	if c.RPCAddr == "" {
		errs = append(errs, "rpc_addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
