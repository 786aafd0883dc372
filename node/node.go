/*
Package node does the initialization of all the required objects to run the
sequencer: the anchor client, the transaction pool, the ingestion API and
the coordinator.

The Node owns two long-running pieces: the HTTP server that admits signed
transactions into the pool, and the coordinator goroutine that periodically
forges them into batches and submits them to the anchor contract.  Start
brings both up; Stop shuts the HTTP server down first so no transaction is
admitted after the last batch cycle has run.
*/
package node

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"

	"rollup-sequencer/api"
	"rollup-sequencer/common"
	"rollup-sequencer/config"
	"rollup-sequencer/coordinator"
	"rollup-sequencer/database/txpool"
	"rollup-sequencer/eth"
	"rollup-sequencer/log"
	"rollup-sequencer/txprocessor"
	"rollup-sequencer/txselector"
)

const apiShutdownTimeout = 5 * time.Second

// Node is the sequencer node
type Node struct {
	coord  *coordinator.Coordinator
	server *http.Server

	pool txpool.Store
	cfg  *config.Node
}

// NewNode creates a Node
func NewNode(cfg *config.Node) (*Node, error) {
	ethClient, err := ethclient.Dial(cfg.Anchor.RPCURL)
	if err != nil {
		return nil, common.Wrap(err)
	}
	client, err := eth.NewEthereumClient(ethClient, &eth.EthereumConfig{
		PrivateKey: cfg.Anchor.PrivateKey,
	})
	if err != nil {
		return nil, common.Wrap(err)
	}
	chainID, err := client.EthChainID()
	if err != nil {
		return nil, common.Wrap(err)
	}
	submitterAddr, err := client.EthAddress()
	if err != nil {
		return nil, common.Wrap(err)
	}
	log.Infow("connected to anchor ledger",
		"chainID", chainID,
		"contract", cfg.Anchor.ContractAddr.Hex(),
		"submitter", submitterAddr.Hex(),
	)
	anchorClient, err := eth.NewAnchorClient(client, cfg.Anchor.ContractAddr)
	if err != nil {
		return nil, common.Wrap(err)
	}

	pool := txpool.NewPool(cfg.TxPool.Capacity)
	txSelector := txselector.NewTxSelector(cfg.Coordinator.MaxTx)
	txProcessor := txprocessor.NewTxProcessor(txprocessor.Config{
		MaxTx: cfg.Coordinator.MaxTx,
	})

	coord, err := coordinator.NewCoordinator(
		coordinator.Config{
			ForgeDelay:              cfg.Coordinator.ForgeDelay.Duration,
			SubmitAttempts:          cfg.Coordinator.SubmitAttempts,
			SubmitRetryInterval:     cfg.Coordinator.SubmitRetryInterval.Duration,
			AnchorReadAttempts:      cfg.Coordinator.AnchorReadAttempts,
			AnchorReadRetryInterval: cfg.Coordinator.AnchorReadRetryInterval.Duration,
			CallTimeout:             cfg.Coordinator.CallTimeout.Duration,
			TxProcessorConfig: txprocessor.Config{
				MaxTx: cfg.Coordinator.MaxTx,
			},
		},
		pool,
		txSelector,
		txProcessor,
		anchorClient,
	)
	if err != nil {
		return nil, common.Wrap(err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()
	server.Use(gin.Recovery())
	if _, err := api.NewAPI(api.Config{
		Server:        server,
		Pool:          pool,
		EnableMetrics: cfg.API.EnableMetrics,
	}); err != nil {
		return nil, common.Wrap(err)
	}

	return &Node{
		coord: coord,
		server: &http.Server{
			Addr:    cfg.API.Address,
			Handler: server,
		},
		pool: pool,
		cfg:  cfg,
	}, nil
}

// Start the sequencer node
func (n *Node) Start() {
	log.Info("Starting node...")
	n.coord.Start()
	go func() {
		log.Infow("API server listening", "addr", n.server.Addr)
		if err := n.server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()
}

// Stop the node.  The API server goes down first so the final batch cycle
// runs against a pool that can no longer grow.
func (n *Node) Stop() {
	log.Infow("Stopping node...")
	ctx, cancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
	defer cancel()
	if err := n.server.Shutdown(ctx); err != nil {
		log.Errorw("API server shutdown", "err", err)
	}
	n.coord.Stop()
	if left := n.pool.Len(); left > 0 {
		log.Warnw("discarding pending txs on shutdown", "n", left)
	}
}
