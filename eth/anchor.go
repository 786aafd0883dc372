package eth

import (
	"context"
	"math/big"
	"strings"

	"rollup-sequencer/common"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// anchorABIJSON is the ABI of the anchor rollup contract: the current state
// commitment, the full balance state in canonical order, and the batch
// submission entry point.
const anchorABIJSON = `[
	{"type":"function","name":"root","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"currentState","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"addrs","type":"address[]"},
	            {"name":"balances","type":"uint256[]"}]},
	{"type":"function","name":"submitBatch","stateMutability":"nonpayable",
	 "inputs":[{"name":"txs","type":"tuple[]","components":[
	              {"name":"from","type":"address"},
	              {"name":"to","type":"address"},
	              {"name":"value","type":"uint256"},
	              {"name":"nonce","type":"uint256"},
	              {"name":"signature","type":"bytes"}]},
	           {"name":"newRoot","type":"bytes32"}],
	 "outputs":[]}
]`

// AnchorInterface is the interface to the anchor rollup smart contract.
// Read and submit failures are plain errors: the caller decides the retry
// policy.
type AnchorInterface interface {
	// AnchorRoot returns the current anchor-side state commitment
	AnchorRoot(ctx context.Context) (ethCommon.Hash, error)
	// AnchorState returns the balances of the full known account set,
	// in canonical order
	AnchorState(ctx context.Context) ([]ethCommon.Address, []*big.Int, error)
	// AnchorSubmitBatch submits the applied transactions of a batch and
	// the resulting commitment
	AnchorSubmitBatch(ctx context.Context, txs []common.SignedTx,
		newRoot ethCommon.Hash) (*types.Transaction, error)
}

// anchorTx mirrors the tx tuple of the submitBatch contract call
type anchorTx struct {
	From      ethCommon.Address
	To        ethCommon.Address
	Value     *big.Int
	Nonce     *big.Int
	Signature []byte
}

// AnchorClient is the implementation of the interface to the anchor rollup
// smart contract
type AnchorClient struct {
	client      *EthereumClient
	chainID     *big.Int
	address     ethCommon.Address
	contract    *bind.BoundContract
	contractAbi abi.ABI
}

// NewAnchorClient creates a new AnchorClient
func NewAnchorClient(client *EthereumClient, address ethCommon.Address) (*AnchorClient, error) {
	contractAbi, err := abi.JSON(strings.NewReader(anchorABIJSON))
	if err != nil {
		return nil, common.Wrap(err)
	}
	chainID, err := client.EthChainID()
	if err != nil {
		return nil, common.Wrap(err)
	}
	contract := bind.NewBoundContract(address, contractAbi,
		client.Client(), client.Client(), client.Client())
	return &AnchorClient{
		client:      client,
		chainID:     chainID,
		address:     address,
		contract:    contract,
		contractAbi: contractAbi,
	}, nil
}

// AnchorRoot is the interface to call the root smart contract function
func (c *AnchorClient) AnchorRoot(ctx context.Context) (root ethCommon.Hash, err error) {
	if err := c.client.Call(func(ec *ethclient.Client) error {
		var out []interface{}
		if err := c.contract.Call(newCallOpts(ctx), &out, "root"); err != nil {
			return common.Wrap(err)
		}
		root = ethCommon.Hash(out[0].([32]byte))
		return nil
	}); err != nil {
		return ethCommon.Hash{}, common.Wrap(err)
	}
	return root, nil
}

// AnchorState is the interface to call the currentState smart contract
// function, which returns the balances of the full known account set in
// canonical order
func (c *AnchorClient) AnchorState(ctx context.Context) (addrs []ethCommon.Address,
	balances []*big.Int, err error) {
	if err := c.client.Call(func(ec *ethclient.Client) error {
		var out []interface{}
		if err := c.contract.Call(newCallOpts(ctx), &out, "currentState"); err != nil {
			return common.Wrap(err)
		}
		addrs = out[0].([]ethCommon.Address)
		balances = out[1].([]*big.Int)
		return nil
	}); err != nil {
		return nil, nil, common.Wrap(err)
	}
	return addrs, balances, nil
}

// AnchorSubmitBatch is the interface to call the submitBatch smart contract
// function
func (c *AnchorClient) AnchorSubmitBatch(ctx context.Context, txs []common.SignedTx,
	newRoot ethCommon.Hash) (*types.Transaction, error) {
	batchTxs := make([]anchorTx, len(txs))
	for i, stx := range txs {
		batchTxs[i] = anchorTx{
			From:      stx.Tx.From,
			To:        stx.Tx.To,
			Value:     stx.Tx.Value,
			Nonce:     stx.Tx.Nonce,
			Signature: stx.Signature,
		}
	}
	auth := *c.client.auth
	auth.Context = ctx
	tx, err := c.contract.Transact(&auth, "submitBatch", batchTxs, newRoot)
	if err != nil {
		return nil, common.Wrap(err)
	}
	return tx, nil
}
