// Package apiclient provides an HTTP client for the node's JSON-RPC
// ingestion endpoint, used by the send CLI subcommand and by tests.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/sling"

	"rollup-sequencer/common"
)

const (
	defaultMaxIdleConns    = 10
	defaultIdleConnTimeout = 2 * time.Second
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Client is the interface to a sequencer node
type Client interface {
	// Blocking.  Returns the id assigned to the transaction.
	SubmitTransaction(ctx context.Context, stx common.SignedTx) (common.TxID, error)
}

// SequencerClient submits signed transactions to a sequencer node over
// JSON-RPC
type SequencerClient struct {
	URL    string
	client *sling.Sling
}

// NewSequencerClient creates a client for the node listening at nodeURL
func NewSequencerClient(nodeURL string) *SequencerClient {
	tr := &http.Transport{
		MaxIdleConns:       defaultMaxIdleConns,
		IdleConnTimeout:    defaultIdleConnTimeout,
		DisableCompression: true,
	}
	httpClient := &http.Client{Transport: tr}
	return &SequencerClient{
		URL:    nodeURL,
		client: sling.New().Base(nodeURL).Client(httpClient),
	}
}

// SubmitTransaction sends the signed transaction to the node and returns
// the transaction id the node answered with
func (c *SequencerClient) SubmitTransaction(ctx context.Context,
	stx common.SignedTx) (common.TxID, error) {
	body := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "submit_transaction",
		Params:  stx,
	}
	req, err := c.client.New().Post("").BodyJSON(body).Request()
	if err != nil {
		return common.TxID{}, common.Wrap(err)
	}
	var res rpcResponse
	httpRes, err := c.client.Do(req.WithContext(ctx), &res, nil)
	if err != nil {
		return common.TxID{}, common.Wrap(err)
	}
	if !(httpRes.StatusCode >= 200 && httpRes.StatusCode < 300) {
		return common.TxID{}, common.Wrap(
			fmt.Errorf("submit_transaction: http status %v", httpRes.StatusCode))
	}
	if res.Error != nil {
		return common.TxID{}, common.Wrap(
			fmt.Errorf("submit_transaction: %v (code %v)", res.Error.Message, res.Error.Code))
	}
	var idStr string
	if err := json.Unmarshal(res.Result, &idStr); err != nil {
		return common.TxID{}, common.Wrap(err)
	}
	txID, err := common.NewTxIDFromString(idStr)
	if err != nil {
		return common.TxID{}, common.Wrap(err)
	}
	return txID, nil
}
