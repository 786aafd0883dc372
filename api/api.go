// Package api exposes the transaction ingestion endpoint of the node.
//
// The wire protocol is JSON-RPC 2.0 over a single POST route: wallets call
// the "submit_transaction" method with a signed transaction as params.  The
// signature is verified before the transaction is admitted to the pool, so
// the pool only ever holds authentic transactions; balance checks are
// deferred to the batch cycle, where they run against fresh anchor state.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollup-sequencer/common"
	"rollup-sequencer/database/txpool"
	"rollup-sequencer/log"
	"rollup-sequencer/metric"
)

// JSON-RPC 2.0 error codes
const (
	codeParseError       = -32700
	codeMethodNotFound   = -32601
	codeInvalidParams    = -32602
	codeInvalidSignature = -32000
	codePoolFull         = -32001
)

// rpcRequest is the JSON-RPC 2.0 request envelope
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// rpcError is the JSON-RPC 2.0 error object
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// API serves HTTP requests to allow external interaction with the node
type API struct {
	pool txpool.Store
}

// Config wraps the parameters needed to start the API
type Config struct {
	Server        *gin.Engine
	Pool          txpool.Store
	EnableMetrics bool
}

// NewAPI sets the endpoints and the appropriate handlers, but doesn't start
// the server
func NewAPI(setup Config) (*API, error) {
	if setup.Pool == nil {
		return nil, common.Wrap(errors.New("cannot serve the RPC endpoint without a tx pool"))
	}
	a := &API{
		pool: setup.Pool,
	}

	setup.Server.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodPost},
		AllowHeaders:    []string{"Content-Type"},
	}))

	setup.Server.POST("/", a.postRPC)
	setup.Server.GET("/health", a.getHealth)
	if setup.EnableMetrics {
		setup.Server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return a, nil
}

// postRPC dispatches a JSON-RPC 2.0 call.  Malformed input of any kind is
// answered with a structured error, never a dropped connection.
func (a *API) postRPC(c *gin.Context) {
	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: codeParseError, Message: "Parse error"},
		})
		return
	}
	switch req.Method {
	case "submit_transaction":
		a.submitTransaction(c, &req)
	default:
		c.JSON(http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: codeMethodNotFound, Message: "Method not found"},
		})
	}
}

func (a *API) submitTransaction(c *gin.Context, req *rpcRequest) {
	var stx common.SignedTx
	if err := json.Unmarshal(req.Params, &stx); err != nil {
		metric.TxsRejected.WithLabelValues("malformed_params").Inc()
		a.rpcErr(c, req, codeInvalidParams, "Invalid params")
		return
	}
	if stx.Tx.Value == nil || stx.Tx.Nonce == nil {
		metric.TxsRejected.WithLabelValues("malformed_params").Inc()
		a.rpcErr(c, req, codeInvalidParams, "Invalid params")
		return
	}
	txID, err := stx.Tx.Digest()
	if err != nil {
		metric.TxsRejected.WithLabelValues("malformed_params").Inc()
		a.rpcErr(c, req, codeInvalidParams, "Invalid params")
		return
	}
	if err := stx.VerifySignature(); err != nil {
		metric.TxsRejected.WithLabelValues("invalid_signature").Inc()
		log.Debugw("rejecting tx with bad signature",
			"from", stx.Tx.From.Hex(), "err", err)
		a.rpcErr(c, req, codeInvalidSignature, "Invalid signature")
		return
	}
	if err := a.pool.Push(stx); err != nil {
		metric.TxsRejected.WithLabelValues("pool_full").Inc()
		a.rpcErr(c, req, codePoolFull, "Transaction pool is full")
		return
	}
	metric.TxsAdmitted.Inc()
	log.Infow("tx admitted to pool",
		"from", stx.Tx.From.Hex(),
		"to", stx.Tx.To.Hex(),
		"value", stx.Tx.Value.String(),
	)
	c.JSON(http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  txID.String(),
	})
}

func (a *API) rpcErr(c *gin.Context, req *rpcRequest, code int, msg string) {
	c.JSON(http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   &rpcError{Code: code, Message: msg},
	})
}

func (a *API) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "UP",
		"poolSize": a.pool.Len(),
	})
}
