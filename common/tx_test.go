package common

import (
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	ethCommon "github.com/ethereum/go-ethereum/common"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignedTx(t *testing.T, key *ecdsa.PrivateKey, to ethCommon.Address,
	value, nonce int64) SignedTx {
	stx := SignedTx{
		Tx: Tx{
			From:  ethCrypto.PubkeyToAddress(key.PublicKey),
			To:    to,
			Value: big.NewInt(value),
			Nonce: big.NewInt(nonce),
		},
	}
	require.NoError(t, stx.Sign(func(hash []byte) ([]byte, error) {
		return ethCrypto.Sign(hash, key)
	}))
	return stx
}

func TestTxDigest(t *testing.T) {
	tx := Tx{
		From:  ethCommon.HexToAddress("0x318A2475f1ba1A1AC4562D1541512d3649eE1131"),
		To:    ethCommon.HexToAddress("0x419978a8729ed2c3b1048b5Bba49f8599eD8F7C1"),
		Value: big.NewInt(42),
		Nonce: big.NewInt(7),
	}
	txid, err := tx.Digest()
	require.NoError(t, err)

	// the digest is keccak256 over from || to || value32 || nonce32
	msg := append([]byte{}, tx.From.Bytes()...)
	msg = append(msg, tx.To.Bytes()...)
	valueBytes, err := BigIntToBytes32(tx.Value)
	require.NoError(t, err)
	msg = append(msg, valueBytes...)
	nonceBytes, err := BigIntToBytes32(tx.Nonce)
	require.NoError(t, err)
	msg = append(msg, nonceBytes...)
	assert.Equal(t, TxID(ethCrypto.Keccak256Hash(msg)), txid)

	// every field is part of the digest
	txMut := tx
	txMut.Value = big.NewInt(43)
	txidMut, err := txMut.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, txid, txidMut)

	txMut = tx
	txMut.Nonce = big.NewInt(8)
	txidMut, err = txMut.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, txid, txidMut)

	txMut = tx
	txMut.To = ethCommon.HexToAddress("0x0000000000000000000000000000000000000001")
	txidMut, err = txMut.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, txid, txidMut)
}

func TestTxDigestOverflow(t *testing.T) {
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)
	tx := Tx{Value: overflow, Nonce: big.NewInt(0)}
	_, err := tx.Digest()
	assert.Equal(t, ErrNumOverflow, Unwrap(err))

	tx = Tx{Value: big.NewInt(-1), Nonce: big.NewInt(0)}
	_, err = tx.Digest()
	assert.Equal(t, ErrNumOverflow, Unwrap(err))

	tx = Tx{Value: big.NewInt(0), Nonce: nil}
	_, err = tx.Digest()
	assert.Equal(t, ErrNumOverflow, Unwrap(err))
}

func TestHashToSign(t *testing.T) {
	stx := SignedTx{
		Tx: Tx{
			Value: big.NewInt(1),
			Nonce: big.NewInt(0),
		},
	}
	hash, err := stx.HashToSign()
	require.NoError(t, err)

	// the signed message is the EIP-191 personal-message hash of the digest
	txid, err := stx.Tx.Digest()
	require.NoError(t, err)
	assert.Equal(t, accounts.TextHash(txid[:]), hash)
}

func TestSignVerify(t *testing.T) {
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)
	to := ethCommon.HexToAddress("0x419978a8729ed2c3b1048b5Bba49f8599eD8F7C1")

	stx := newSignedTx(t, key, to, 42, 0)
	assert.Equal(t, SignatureLen, len(stx.Signature))
	// Sign normalizes the recovery id to the ethereum {27,28} encoding
	assert.True(t, stx.Signature[SignatureLen-1] >= 27)
	assert.NoError(t, stx.VerifySignature())

	// the raw {0,1} recovery id encoding verifies too
	raw := SignedTx{Tx: stx.Tx, Signature: make([]byte, SignatureLen)}
	copy(raw.Signature, stx.Signature)
	raw.Signature[SignatureLen-1] -= 27
	assert.NoError(t, raw.VerifySignature())
}

func TestVerifyRejectsTampering(t *testing.T) {
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)
	to := ethCommon.HexToAddress("0x419978a8729ed2c3b1048b5Bba49f8599eD8F7C1")
	stx := newSignedTx(t, key, to, 42, 0)

	// mutating any field of the signed tx invalidates the signature
	tampered := stx
	tampered.Tx.Value = big.NewInt(1000)
	assert.Equal(t, ErrInvalidSignature, Unwrap(tampered.VerifySignature()))

	tampered = stx
	tampered.Tx.Nonce = big.NewInt(99)
	assert.Equal(t, ErrInvalidSignature, Unwrap(tampered.VerifySignature()))

	tampered = stx
	tampered.Tx.To = ethCommon.HexToAddress("0x0000000000000000000000000000000000000001")
	assert.Equal(t, ErrInvalidSignature, Unwrap(tampered.VerifySignature()))

	// a signature from another key doesn't verify against From
	otherKey, err := ethCrypto.GenerateKey()
	require.NoError(t, err)
	other := newSignedTx(t, otherKey, to, 42, 0)
	forged := SignedTx{Tx: stx.Tx, Signature: other.Signature}
	assert.Equal(t, ErrInvalidSignature, Unwrap(forged.VerifySignature()))
}

func TestVerifyMalformedSignature(t *testing.T) {
	key, err := ethCrypto.GenerateKey()
	require.NoError(t, err)
	stx := newSignedTx(t, key, ethCommon.Address{}, 1, 0)

	short := SignedTx{Tx: stx.Tx, Signature: stx.Signature[:SignatureLen-1]}
	assert.Equal(t, ErrInvalidSignature, Unwrap(short.VerifySignature()))

	empty := SignedTx{Tx: stx.Tx}
	assert.Equal(t, ErrInvalidSignature, Unwrap(empty.VerifySignature()))

	garbage := SignedTx{Tx: stx.Tx, Signature: make([]byte, SignatureLen)}
	assert.Error(t, garbage.VerifySignature())
}

func TestSignedTxJSON(t *testing.T) {
	// the wire shape used by the JSON-RPC ingest and the contract call
	raw := `{
		"tx": {
			"from": "0x318a2475f1ba1a1ac4562d1541512d3649ee1131",
			"to": "0x419978a8729ed2c3b1048b5bba49f8599ed8f7c1",
			"nonce": 0,
			"value": 42
		},
		"signature": "0x0001020304050607080900010203040506070809000102030405060708090001020304050607080900010203040506070809000102030405060708090001020301"
	}`
	var stx SignedTx
	require.NoError(t, json.Unmarshal([]byte(raw), &stx))
	assert.Equal(t,
		ethCommon.HexToAddress("0x318A2475f1ba1A1AC4562D1541512d3649eE1131"), stx.Tx.From)
	assert.Equal(t, big.NewInt(42), stx.Tx.Value)
	assert.Equal(t, big.NewInt(0), stx.Tx.Nonce)
	assert.Equal(t, SignatureLen, len(stx.Signature))

	bs, err := json.Marshal(&stx)
	require.NoError(t, err)
	var back SignedTx
	require.NoError(t, json.Unmarshal(bs, &back))
	assert.Equal(t, stx, back)
}

func TestTxIDString(t *testing.T) {
	txid := TxID{0x01, 0x02}
	s := txid.String()
	back, err := NewTxIDFromString(s)
	require.NoError(t, err)
	assert.Equal(t, txid, back)

	_, err = NewTxIDFromString("0x0102")
	assert.Equal(t, ErrMalformedParams, Unwrap(err))
	_, err = NewTxIDFromString("zz")
	assert.Error(t, err)
}
