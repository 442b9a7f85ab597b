// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Chaincode configures the chaincode process.
type Chaincode struct {
	// ID is the package id assigned by the peer. Required in server mode.
	ID string `env:"CHAINCODE_ID"`
	// ServerAddress switches to chaincode-as-a-service when set.
	ServerAddress string `env:"CHAINCODE_SERVER_ADDRESS"`

	TLSDisabled      bool   `env:"CHAINCODE_TLS_DISABLED" envDefault:"true"`
	TLSKeyFile       string `env:"CHAINCODE_TLS_KEY_FILE"`
	TLSCertFile      string `env:"CHAINCODE_TLS_CERT_FILE"`
	ClientCACertFile string `env:"CHAINCODE_CLIENT_CA_CERT_FILE"`

	KeepaliveTime    time.Duration `env:"CHAINCODE_KEEPALIVE_TIME" envDefault:"1m"`
	KeepaliveTimeout time.Duration `env:"CHAINCODE_KEEPALIVE_TIMEOUT" envDefault:"20s"`

	EventPrefix    string `env:"BLOCKTRACE_EVENT_PREFIX" envDefault:"blocktrace."`
	MetricsAddress string `env:"BLOCKTRACE_METRICS_ADDRESS"`
}

// ServerMode reports whether the chaincode runs as an external service.
func (c Chaincode) ServerMode() bool { return c.ServerAddress != "" }

// Validate checks settings that depend on each other.
func (c Chaincode) Validate() error {
	if !c.ServerMode() {
		return nil
	}
	if c.ID == "" {
		return fmt.Errorf("CHAINCODE_ID is required when CHAINCODE_SERVER_ADDRESS is set")
	}
	if !c.TLSDisabled && (c.TLSKeyFile == "" || c.TLSCertFile == "") {
		return fmt.Errorf("CHAINCODE_TLS_KEY_FILE and CHAINCODE_TLS_CERT_FILE are required when TLS is enabled")
	}
	return nil
}

// Ledger configures the local ledger CLI.
type Ledger struct {
	// Path is the SQLite database file. Empty keeps the ledger in memory.
	Path      string `env:"BLOCKTRACE_LEDGER_PATH"`
	MSPID     string `env:"BLOCKTRACE_MSP_ID" envDefault:"ForensicsOrgMSP"`
	InvokerID string `env:"BLOCKTRACE_INVOKER_ID" envDefault:"local-cli"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadChaincode parses and validates the chaincode configuration.
func LoadChaincode() (Chaincode, error) {
	var cfg Chaincode
	if err := ParseEnv(&cfg); err != nil {
		return Chaincode{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Chaincode{}, err
	}
	return cfg, nil
}

// LoadLedger parses the CLI configuration.
func LoadLedger() (Ledger, error) {
	var cfg Ledger
	if err := ParseEnv(&cfg); err != nil {
		return Ledger{}, err
	}
	return cfg, nil
}
