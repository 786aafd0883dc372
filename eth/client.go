package eth

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"rollup-sequencer/common"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ClientInterface is the eth Client interface used by the sequencer modules
// to interact with the anchor ledger blockchain and its rollup contract
type ClientInterface interface {
	EthereumInterface
	AnchorInterface
}

// EthereumInterface is the interface to the anchor ledger blockchain
type EthereumInterface interface {
	EthChainID() (*big.Int, error)
	EthAddress() (*ethCommon.Address, error)
}

// EthereumConfig is the configuration of the EthereumClient
type EthereumConfig struct {
	// PrivateKey is the hex encoded key that signs the batch
	// submission transactions
	PrivateKey string
}

// EthereumClient is an ethereum client to call smart contract methods and
// check blockchain information
type EthereumClient struct {
	client  *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	address ethCommon.Address
	auth    *bind.TransactOpts
}

// NewEthereumClient creates an EthereumClient instance.  The smart contract
// submission calls are signed with the configured private key.
func NewEthereumClient(client *ethclient.Client, cfg *EthereumConfig) (*EthereumClient, error) {
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, common.Wrap(err)
	}
	key, err := ethCrypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, common.Wrap(err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return &EthereumClient{
		client:  client,
		chainID: chainID,
		key:     key,
		address: ethCrypto.PubkeyToAddress(key.PublicKey),
		auth:    auth,
	}, nil
}

// EthChainID returns the ChainID of the anchor ledger network
func (c *EthereumClient) EthChainID() (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

// EthAddress returns the address of the submitting account
func (c *EthereumClient) EthAddress() (*ethCommon.Address, error) {
	address := c.address
	return &address, nil
}

// Client returns the internal ethclient.Client
func (c *EthereumClient) Client() *ethclient.Client {
	return c.client
}

// Call runs the given read-only function against the ethereum client
func (c *EthereumClient) Call(fn func(*ethclient.Client) error) error {
	return fn(c.client)
}

func newCallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{
		Context: ctx,
	}
}
