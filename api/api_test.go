package api

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"rollup-sequencer/common"
	"rollup-sequencer/database/txpool"
	"rollup-sequencer/log"

	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Init("debug", []string{"stdout"})
	gin.SetMode(gin.TestMode)
}

func newTestAPI(t *testing.T, capacity int) (*gin.Engine, txpool.Store) {
	pool := txpool.NewPool(capacity)
	engine := gin.New()
	_, err := NewAPI(Config{
		Server: engine,
		Pool:   pool,
	})
	require.NoError(t, err)
	return engine, pool
}

func signedTransfer(t *testing.T, key *ecdsa.PrivateKey, value, nonce int64) common.SignedTx {
	stx := common.SignedTx{
		Tx: common.Tx{
			From:  ethCrypto.PubkeyToAddress(key.PublicKey),
			To:    ethCommon.HexToAddress("0x419978a8729ed2c3b1048b5Bba49f8599eD8F7C1"),
			Value: big.NewInt(value),
			Nonce: big.NewInt(nonce),
		},
	}
	require.NoError(t, stx.Sign(func(hash []byte) ([]byte, error) {
		return ethCrypto.Sign(hash, key)
	}))
	return stx
}

func postRPC(t *testing.T, engine *gin.Engine, body []byte) rpcResponse {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res rpcResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func submitEnvelope(t *testing.T, params interface{}) []byte {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "submit_transaction",
		"params":  params,
	})
	require.NoError(t, err)
	return body
}

func TestSubmitTransaction(t *testing.T) {
	engine, pool := newTestAPI(t, 0)
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)
	stx := signedTransfer(t, key, 42, 0)

	res := postRPC(t, engine, submitEnvelope(t, stx))
	require.Nil(t, res.Error)

	// the result is the tx id
	idStr, ok := res.Result.(string)
	require.True(t, ok)
	txid, err := stx.Tx.Digest()
	require.NoError(t, err)
	assert.Equal(t, txid.String(), idStr)

	require.Equal(t, 1, pool.Len())
	admitted := pool.DrainAll()
	assert.Equal(t, stx.Tx.From, admitted[0].Tx.From)
	assert.Equal(t, big.NewInt(42), admitted[0].Tx.Value)
}

func TestSubmitTransactionBadSignature(t *testing.T) {
	engine, pool := newTestAPI(t, 0)
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)

	// tamper with the value after signing
	stx := signedTransfer(t, key, 42, 0)
	stx.Tx.Value = big.NewInt(1000)

	res := postRPC(t, engine, submitEnvelope(t, stx))
	require.NotNil(t, res.Error)
	assert.Equal(t, codeInvalidSignature, res.Error.Code)
	assert.Equal(t, 0, pool.Len())
}

func TestSubmitTransactionMalformedParams(t *testing.T) {
	engine, pool := newTestAPI(t, 0)

	res := postRPC(t, engine, submitEnvelope(t, []int{1, 2, 3}))
	require.NotNil(t, res.Error)
	assert.Equal(t, codeInvalidParams, res.Error.Code)

	// missing value and nonce
	res = postRPC(t, engine, submitEnvelope(t, map[string]interface{}{
		"tx": map[string]interface{}{
			"from": "0x318A2475f1ba1A1AC4562D1541512d3649eE1131",
			"to":   "0x419978a8729ed2c3b1048b5Bba49f8599eD8F7C1",
		},
		"signature": "0x00",
	}))
	require.NotNil(t, res.Error)
	assert.Equal(t, codeInvalidParams, res.Error.Code)
	assert.Equal(t, 0, pool.Len())
}

func TestSubmitTransactionPoolFull(t *testing.T) {
	engine, pool := newTestAPI(t, 1)
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)

	res := postRPC(t, engine, submitEnvelope(t, signedTransfer(t, key, 1, 0)))
	require.Nil(t, res.Error)

	res = postRPC(t, engine, submitEnvelope(t, signedTransfer(t, key, 1, 1)))
	require.NotNil(t, res.Error)
	assert.Equal(t, codePoolFull, res.Error.Code)
	assert.Equal(t, 1, pool.Len())
}

func TestParseError(t *testing.T) {
	engine, _ := newTestAPI(t, 0)
	res := postRPC(t, engine, []byte("this is not json"))
	require.NotNil(t, res.Error)
	assert.Equal(t, codeParseError, res.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	engine, _ := newTestAPI(t, 0)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  "no_such_method",
	})
	require.NoError(t, err)
	res := postRPC(t, engine, body)
	require.NotNil(t, res.Error)
	assert.Equal(t, codeMethodNotFound, res.Error.Code)
	// the request id is echoed back
	assert.Equal(t, json.RawMessage("7"), res.ID)
}

func TestHealth(t *testing.T) {
	engine, pool := newTestAPI(t, 0)
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, pool.Push(signedTransfer(t, key, 1, 0)))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Status   string `json:"status"`
		PoolSize int    `json:"poolSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "UP", health.Status)
	assert.Equal(t, 1, health.PoolSize)
}

func TestCORSHeaders(t *testing.T) {
	engine, _ := newTestAPI(t, 0)

	// browser preflight from any origin is allowed for POST
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
