package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rollup-sequencer/common"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAnchorEnv(t *testing.T) {
	t.Setenv("SEQ_ANCHOR_RPCURL", "http://localhost:8545")
	t.Setenv("SEQ_ANCHOR_CONTRACTADDR", "0x318A2475f1ba1A1AC4562D1541512d3649eE1131")
	t.Setenv("SEQ_ANCHOR_PRIVATEKEY",
		"0000000000000000000000000000000000000000000000000000000000000001")
}

func TestLoadNodeDefaults(t *testing.T) {
	setAnchorEnv(t)

	cfg, err := LoadNode("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:38171", cfg.API.Address)
	assert.True(t, cfg.API.EnableMetrics)
	assert.Equal(t, 1024, cfg.TxPool.Capacity)
	assert.Equal(t, 5*time.Second, cfg.Coordinator.ForgeDelay.Duration)
	assert.Equal(t, 4, cfg.Coordinator.SubmitAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Coordinator.SubmitRetryInterval.Duration)
	assert.Equal(t, 10*time.Second, cfg.Coordinator.CallTimeout.Duration)
	assert.Equal(t, uint32(512), cfg.Coordinator.MaxTx)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"stdout"}, cfg.Log.Outputs)

	assert.Equal(t, "http://localhost:8545", cfg.Anchor.RPCURL)
	assert.Equal(t,
		ethCommon.HexToAddress("0x318A2475f1ba1A1AC4562D1541512d3649eE1131"),
		cfg.Anchor.ContractAddr)
}

func TestLoadNodeEnvOverride(t *testing.T) {
	setAnchorEnv(t)
	t.Setenv("SEQ_API_ADDRESS", "0.0.0.0:9000")
	t.Setenv("SEQ_TXPOOL_CAPACITY", "5")
	t.Setenv("SEQ_LOG_LEVEL", "debug")

	cfg, err := LoadNode("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.Address)
	assert.Equal(t, 5, cfg.TxPool.Capacity)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadNodeFile(t *testing.T) {
	setAnchorEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	content := `
[API]
Address = "127.0.0.1:12345"

[Coordinator]
ForgeDelay = "1s"
MaxTx = 16
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadNode(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:12345", cfg.API.Address)
	assert.Equal(t, time.Second, cfg.Coordinator.ForgeDelay.Duration)
	assert.Equal(t, uint32(16), cfg.Coordinator.MaxTx)
	// values absent from the file keep their defaults
	assert.Equal(t, 4, cfg.Coordinator.SubmitAttempts)
}

func TestLoadNodeMissingAnchor(t *testing.T) {
	// the anchor section has no defaults: without env or file the load
	// fails at startup instead of failing at the first batch
	t.Setenv("SEQ_ANCHOR_RPCURL", "")
	t.Setenv("SEQ_ANCHOR_CONTRACTADDR", "")
	t.Setenv("SEQ_ANCHOR_PRIVATEKEY", "")

	_, err := LoadNode("")
	require.Error(t, err)
	assert.True(t, errors.Is(common.Unwrap(err), common.ErrConfigMissing))
}

func TestLoadNodeMissingContractAddr(t *testing.T) {
	setAnchorEnv(t)
	t.Setenv("SEQ_ANCHOR_CONTRACTADDR", "")

	_, err := LoadNode("")
	require.Error(t, err)
	assert.True(t, errors.Is(common.Unwrap(err), common.ErrConfigMissing))
}

func TestLoadNodeBadFile(t *testing.T) {
	setAnchorEnv(t)
	_, err := LoadNode(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)
	assert.Error(t, d.UnmarshalText([]byte("not a duration")))
}
