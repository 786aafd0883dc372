package eth

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorABI(t *testing.T) {
	contractAbi, err := abi.JSON(strings.NewReader(anchorABIJSON))
	require.NoError(t, err)

	_, ok := contractAbi.Methods["root"]
	assert.True(t, ok)
	_, ok = contractAbi.Methods["currentState"]
	assert.True(t, ok)
	_, ok = contractAbi.Methods["submitBatch"]
	assert.True(t, ok)
}

func TestSubmitBatchPacking(t *testing.T) {
	contractAbi, err := abi.JSON(strings.NewReader(anchorABIJSON))
	require.NoError(t, err)

	txs := []anchorTx{
		{
			From:      ethCommon.HexToAddress("0x318A2475f1ba1A1AC4562D1541512d3649eE1131"),
			To:        ethCommon.HexToAddress("0x419978a8729ed2c3b1048b5Bba49f8599eD8F7C1"),
			Value:     big.NewInt(42),
			Nonce:     big.NewInt(0),
			Signature: make([]byte, 65),
		},
	}
	newRoot := ethCommon.HexToHash(
		"0x0102030405060708091011121314151617181920212223242526272829303132")

	// the tx tuple and the commitment pack into calldata without error
	calldata, err := contractAbi.Pack("submitBatch", txs, newRoot)
	require.NoError(t, err)
	assert.Equal(t, contractAbi.Methods["submitBatch"].ID, calldata[:4])
}
