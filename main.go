package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethMath "github.com/ethereum/go-ethereum/common/math"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli"

	"rollup-sequencer/apiclient"
	"rollup-sequencer/common"
	"rollup-sequencer/config"
	"rollup-sequencer/log"
	"rollup-sequencer/node"
)

const (
	flagCfg       = "cfg"
	flagKey       = "private-key"
	flagFrom      = "from"
	flagTo        = "to"
	flagValue     = "value"
	flagNonce     = "nonce"
	flagSignature = "signature"
	flagNode      = "node"

	defaultNodeURL = "http://localhost:38171"
)

func waitSigInt() {
	stopCh := make(chan interface{})

	// catch ^C to send the stop signal
	ossig := make(chan os.Signal, 1)
	signal.Notify(ossig, os.Interrupt)
	const forceStopCount = 3
	go func() {
		n := 0
		for sig := range ossig {
			if sig == os.Interrupt {
				log.Info("Received Interrupt Signal")
				stopCh <- nil
				n++
				if n == forceStopCount {
					log.Fatalf("Received %v Interrupt Signals", forceStopCount)
				}
			}
		}
	}()
	<-stopCh
}

func cmdRun(c *cli.Context) error {
	cfg, err := config.LoadNode(c.String(flagCfg))
	if err != nil {
		if err := cli.ShowAppHelp(c); err != nil {
			panic(err)
		}
		return common.Wrap(fmt.Errorf("error loading configuration: %w", err))
	}
	log.Init(cfg.Log.Level, cfg.Log.Outputs)
	innerNode, err := node.NewNode(cfg)
	if err != nil {
		return common.Wrap(fmt.Errorf("error starting node: %w", err))
	}
	innerNode.Start()
	waitSigInt()
	innerNode.Stop()

	return nil
}

// txFromFlags builds the transaction described by the CLI flags
func txFromFlags(c *cli.Context) (common.Tx, error) {
	value, ok := ethMath.ParseBig256(c.String(flagValue))
	if !ok {
		return common.Tx{}, common.Wrap(fmt.Errorf("invalid value %q", c.String(flagValue)))
	}
	nonce, ok := ethMath.ParseBig256(c.String(flagNonce))
	if !ok {
		return common.Tx{}, common.Wrap(fmt.Errorf("invalid nonce %q", c.String(flagNonce)))
	}
	return common.Tx{
		From:  ethCommon.HexToAddress(c.String(flagFrom)),
		To:    ethCommon.HexToAddress(c.String(flagTo)),
		Value: value,
		Nonce: nonce,
	}, nil
}

func signFromFlags(c *cli.Context) (common.SignedTx, error) {
	tx, err := txFromFlags(c)
	if err != nil {
		return common.SignedTx{}, common.Wrap(err)
	}
	key, err := ethCrypto.HexToECDSA(strings.TrimPrefix(c.String(flagKey), "0x"))
	if err != nil {
		return common.SignedTx{}, common.Wrap(fmt.Errorf("invalid private key: %w", err))
	}
	stx := common.SignedTx{Tx: tx}
	if err := stx.Sign(func(hash []byte) ([]byte, error) {
		return ethCrypto.Sign(hash, key)
	}); err != nil {
		return common.SignedTx{}, common.Wrap(err)
	}
	return stx, nil
}

func cmdSign(c *cli.Context) error {
	stx, err := signFromFlags(c)
	if err != nil {
		return common.Wrap(err)
	}
	fmt.Println(hexutil.Encode(stx.Signature))
	return nil
}

func cmdSend(c *cli.Context) error {
	var stx common.SignedTx
	if sigStr := c.String(flagSignature); sigStr != "" {
		tx, err := txFromFlags(c)
		if err != nil {
			return common.Wrap(err)
		}
		sig, err := hexutil.Decode(sigStr)
		if err != nil {
			return common.Wrap(fmt.Errorf("invalid signature: %w", err))
		}
		stx = common.SignedTx{Tx: tx, Signature: sig}
	} else {
		var err error
		stx, err = signFromFlags(c)
		if err != nil {
			return common.Wrap(err)
		}
	}
	if err := stx.VerifySignature(); err != nil {
		return common.Wrap(err)
	}
	client := apiclient.NewSequencerClient(c.String(flagNode))
	txID, err := client.SubmitTransaction(context.Background(), stx)
	if err != nil {
		return common.Wrap(err)
	}
	fmt.Println(txID.String())
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "rollup-sequencer"
	app.Version = "v1"
	app.Usage = "Off-chain sequencer for the anchor rollup contract"
	app.Action = cmdRun

	runFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     flagCfg,
			Usage:    "Node configuration `FILE`",
			Required: false,
		},
	}
	app.Flags = runFlags

	txFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  flagKey + ", p",
			Usage: "The private `KEY` that signs the transaction",
		},
		&cli.StringFlag{
			Name:  flagFrom + ", f",
			Usage: "The sender `ADDRESS`",
		},
		&cli.StringFlag{
			Name:  flagTo + ", t",
			Usage: "The destination `ADDRESS`",
		},
		&cli.StringFlag{
			Name:  flagValue + ", v",
			Usage: "The `VALUE` of the transaction",
			Value: "0",
		},
		&cli.StringFlag{
			Name:  flagNonce + ", n",
			Usage: "The `NONCE` of the transaction",
			Value: "0",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "Run the sequencer node",
			Action: cmdRun,
			Flags:  runFlags,
		},
		{
			Name:   "sign",
			Usage:  "Sign a transaction and print the signature",
			Action: cmdSign,
			Flags:  txFlags,
		},
		{
			Name:   "send",
			Usage:  "Send a transaction to the node, signing it first if no signature is given",
			Action: cmdSend,
			Flags: append(txFlags,
				&cli.StringFlag{
					Name:  flagSignature + ", s",
					Usage: "The hex encoded `SIGNATURE` of the transaction",
				},
				&cli.StringFlag{
					Name:  flagNode,
					Usage: "The `URL` of the sequencer node",
					Value: defaultNodeURL,
				},
			),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Printf("\nError: %v\n", common.Wrap(err))
		os.Exit(1)
	}
}
