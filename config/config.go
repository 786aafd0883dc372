// Package config loads the node configuration from a toml file with
// defaults, overridden by environment variables.  Components receive their
// configuration values at construction; nothing reads the process
// environment after startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rollup-sequencer/common"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
)

// Duration is a wrapper type that parses time duration from text
type Duration struct {
	time.Duration `validate:"required"`
}

// UnmarshalText unmarshalls time duration from text
func (d *Duration) UnmarshalText(data []byte) error {
	duration, err := time.ParseDuration(string(data))
	if err != nil {
		return common.Wrap(err)
	}
	d.Duration = duration
	return nil
}

// DefaultValues is the default configuration of the node.  Anchor.RPCURL,
// Anchor.ContractAddr and Anchor.PrivateKey have no default and must come
// from the file or the environment.
const DefaultValues = `
[API]
Address = "127.0.0.1:38171"
EnableMetrics = true

[TxPool]
Capacity = 1024

[Coordinator]
ForgeDelay = "5s"
SubmitAttempts = 4
SubmitRetryInterval = "500ms"
AnchorReadAttempts = 4
AnchorReadRetryInterval = "500ms"
CallTimeout = "10s"
MaxTx = 512

[Log]
Level = "info"
Outputs = ["stdout"]
`

// Node is the configuration of the sequencer node
type Node struct {
	API struct {
		// Address where the tx ingest API will listen
		Address string `validate:"required" env:"SEQ_API_ADDRESS"`
		// EnableMetrics exposes the prometheus metrics endpoint on
		// the API server
		EnableMetrics bool `env:"SEQ_API_ENABLEMETRICS"`
	} `validate:"required"`
	TxPool struct {
		// Capacity is the maximum number of pending transactions
		// held in the pool; pushes beyond it are rejected.  0 means
		// unbounded.
		Capacity int `env:"SEQ_TXPOOL_CAPACITY"`
	}
	Coordinator struct {
		// ForgeDelay is the interval between batch cycles
		ForgeDelay Duration `validate:"required" env:"SEQ_COORDINATOR_FORGEDELAY"`
		// SubmitAttempts is the number of attempts to submit a batch
		// to the anchor contract before requeueing its transactions
		SubmitAttempts int `validate:"required" env:"SEQ_COORDINATOR_SUBMITATTEMPTS"`
		// SubmitRetryInterval is the waiting interval between batch
		// submission attempts
		SubmitRetryInterval Duration `validate:"required" env:"SEQ_COORDINATOR_SUBMITRETRYINTERVAL"`
		// AnchorReadAttempts is the number of attempts to read the
		// anchor root and state before skipping the cycle
		AnchorReadAttempts int `validate:"required" env:"SEQ_COORDINATOR_ANCHORREADATTEMPTS"`
		// AnchorReadRetryInterval is the waiting interval between
		// anchor read attempts
		AnchorReadRetryInterval Duration `validate:"required" env:"SEQ_COORDINATOR_ANCHORREADRETRYINTERVAL"`
		// CallTimeout is the timeout applied to each individual
		// anchor RPC call
		CallTimeout Duration `validate:"required" env:"SEQ_COORDINATOR_CALLTIMEOUT"`
		// MaxTx is the maximum number of transactions applied in one
		// batch; the surplus stays in the pool for the next cycle
		MaxTx uint32 `validate:"required" env:"SEQ_COORDINATOR_MAXTX"`
	} `validate:"required"`
	Anchor struct {
		// RPCURL is the RPC endpoint of the anchor ledger node
		RPCURL string `validate:"required" env:"SEQ_ANCHOR_RPCURL"`
		// ContractAddr is the address of the anchor rollup contract
		ContractAddr ethCommon.Address `validate:"required"`
		// PrivateKey is the hex encoded private key used to sign the
		// batch submission transactions
		PrivateKey string `validate:"required" env:"SEQ_ANCHOR_PRIVATEKEY"`
	} `validate:"required"`
	Log struct {
		Level   string   `validate:"required" env:"SEQ_LOG_LEVEL"`
		Outputs []string `validate:"required" env:"SEQ_LOG_OUTPUTS" envSeparator:","`
	} `validate:"required"`
}

func loadDefault(defaultValues string, cfg interface{}) error {
	if _, err := toml.Decode(defaultValues, cfg); err != nil {
		return common.Wrap(err)
	}
	return nil
}

func loadFile(path string, cfg interface{}) error {
	bs, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return common.Wrap(err)
	}
	if _, err := toml.Decode(string(bs), cfg); err != nil {
		return common.Wrap(err)
	}
	return nil
}

func loadEnv(cfg *Node) error {
	if err := env.Parse(&cfg.API); err != nil {
		return common.Wrap(err)
	}
	if err := env.Parse(&cfg.TxPool); err != nil {
		return common.Wrap(err)
	}
	if err := env.Parse(&cfg.Coordinator); err != nil {
		return common.Wrap(err)
	}
	if err := env.Parse(&cfg.Anchor); err != nil {
		return common.Wrap(err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return common.Wrap(err)
	}
	if addr := os.Getenv("SEQ_ANCHOR_CONTRACTADDR"); addr != "" {
		if err := cfg.Anchor.ContractAddr.UnmarshalText([]byte(addr)); err != nil {
			return common.Wrap(fmt.Errorf("invalid SEQ_ANCHOR_CONTRACTADDR: %w", err))
		}
	}
	return nil
}

// LoadNode loads the node configuration: defaults, then the toml file at
// filePath (if any), then environment variables on top.  A missing required
// value is a startup-fatal condition reported as ErrConfigMissing.
func LoadNode(filePath string) (*Node, error) {
	// pick up a .env file when present, so local runs don't need to
	// export the anchor credentials by hand
	_ = godotenv.Load()

	var cfg Node
	if err := loadDefault(DefaultValues, &cfg); err != nil {
		return nil, common.Wrap(fmt.Errorf("error loading default configuration: %w", err))
	}
	if filePath != "" {
		if err := loadFile(filePath, &cfg); err != nil {
			return nil, common.Wrap(fmt.Errorf("error loading configuration file: %w", err))
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return nil, common.Wrap(fmt.Errorf("error loading environment variables: %w", err))
	}
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, common.Wrap(fmt.Errorf("%w: %s", common.ErrConfigMissing, err))
	}
	if cfg.Anchor.ContractAddr == (ethCommon.Address{}) {
		return nil, common.Wrap(fmt.Errorf("%w: Anchor.ContractAddr", common.ErrConfigMissing))
	}
	return &cfg, nil
}
