package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadChaincodeDefaults(t *testing.T) {
	cfg, err := LoadChaincode()
	require.NoError(t, err)

	assert.False(t, cfg.ServerMode())
	assert.True(t, cfg.TLSDisabled)
	assert.Equal(t, time.Minute, cfg.KeepaliveTime)
	assert.Equal(t, 20*time.Second, cfg.KeepaliveTimeout)
	assert.Equal(t, "blocktrace.", cfg.EventPrefix)
	assert.Empty(t, cfg.MetricsAddress)
}

func TestLoadChaincodeServerMode(t *testing.T) {
	t.Setenv("CHAINCODE_SERVER_ADDRESS", "0.0.0.0:7052")
	t.Setenv("CHAINCODE_ID", "blocktrace:abc123")
	t.Setenv("CHAINCODE_KEEPALIVE_TIME", "30s")

	cfg, err := LoadChaincode()
	require.NoError(t, err)
	assert.True(t, cfg.ServerMode())
	assert.Equal(t, "blocktrace:abc123", cfg.ID)
	assert.Equal(t, 30*time.Second, cfg.KeepaliveTime)
}

func TestLoadChaincodeValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"server mode without id", map[string]string{
			"CHAINCODE_SERVER_ADDRESS": "0.0.0.0:7052",
		}},
		{"tls without key pair", map[string]string{
			"CHAINCODE_SERVER_ADDRESS": "0.0.0.0:7052",
			"CHAINCODE_ID":             "blocktrace:abc123",
			"CHAINCODE_TLS_DISABLED":   "false",
		}},
		{"bad duration", map[string]string{
			"CHAINCODE_KEEPALIVE_TIME": "soon",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadChaincode()
			assert.Error(t, err)
		})
	}
}

func TestLoadLedger(t *testing.T) {
	cfg, err := LoadLedger()
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.Equal(t, "ForensicsOrgMSP", cfg.MSPID)

	t.Setenv("BLOCKTRACE_LEDGER_PATH", "/tmp/ledger.db")
	t.Setenv("BLOCKTRACE_MSP_ID", "PoliceOrgMSP")
	cfg, err = LoadLedger()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ledger.db", cfg.Path)
	assert.Equal(t, "PoliceOrgMSP", cfg.MSPID)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("CHAINCODE_TLS_DISABLED", "maybe")
	var cfg Chaincode
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
