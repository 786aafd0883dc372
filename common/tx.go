package common

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	ethCommon "github.com/ethereum/go-ethereum/common"
	ethMath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethCrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// TxIDLen is the length of the TxID byte array
	TxIDLen = 32

	// SignatureLen is the length of an [R || S || V] secp256k1 signature
	SignatureLen = 65

	// wordLen is the fixed width in bytes of the Value and Nonce encodings
	wordLen = 32
)

// TxID is the keccak-256 digest of the canonical transaction encoding.  It
// is the message that gets signed and the identifier of the transaction.
type TxID [TxIDLen]byte

// String returns a string hexadecimal representation of the TxID
func (txid TxID) String() string {
	return "0x" + hex.EncodeToString(txid[:])
}

// NewTxIDFromString returns a TxID from its hexadecimal representation
func NewTxIDFromString(idStr string) (TxID, error) {
	txid := TxID{}
	idStr = strings.TrimPrefix(idStr, "0x")
	decoded, err := hex.DecodeString(idStr)
	if err != nil {
		return TxID{}, Wrap(err)
	}
	if len(decoded) != TxIDLen {
		return txid, Wrap(ErrMalformedParams)
	}
	copy(txid[:], decoded)
	return txid, nil
}

// MarshalText marshals a TxID
func (txid TxID) MarshalText() ([]byte, error) {
	return []byte(txid.String()), nil
}

// UnmarshalText unmarshalls a TxID
func (txid *TxID) UnmarshalText(data []byte) error {
	id, err := NewTxIDFromString(string(data))
	if err != nil {
		return Wrap(err)
	}
	*txid = id
	return nil
}

// Tx is a value transfer between two accounts of the rollup.  Immutable once
// constructed: every mutation invalidates the signature over its digest.
type Tx struct {
	From  ethCommon.Address `json:"from"`
	To    ethCommon.Address `json:"to"`
	Nonce *big.Int          `json:"nonce"`
	Value *big.Int          `json:"value"`
}

// Digest returns the canonical digest of the Tx:
// keccak256(from[20] || to[20] || value[32] || nonce[32]), with Value and
// Nonce encoded big-endian fixed-width.  This is the hash that gets signed
// by the sender and re-derived by the anchor contract.
func (tx *Tx) Digest() (TxID, error) {
	valueBytes, err := BigIntToBytes32(tx.Value)
	if err != nil {
		return TxID{}, Wrap(err)
	}
	nonceBytes, err := BigIntToBytes32(tx.Nonce)
	if err != nil {
		return TxID{}, Wrap(err)
	}
	msg := make([]byte, 0, 2*ethCommon.AddressLength+2*wordLen)
	msg = append(msg, tx.From.Bytes()...)
	msg = append(msg, tx.To.Bytes()...)
	msg = append(msg, valueBytes...)
	msg = append(msg, nonceBytes...)
	return TxID(ethCrypto.Keccak256Hash(msg)), nil
}

// SignedTx is a Tx together with the sender's signature over its digest
type SignedTx struct {
	Tx        Tx            `json:"tx"`
	Signature hexutil.Bytes `json:"signature"`
}

// HashToSign returns the hash that is signed by the sender, which is the
// EIP-191 personal-message hash of the Tx digest.  There is no chain-id or
// contract domain separator in the digest itself.
func (stx *SignedTx) HashToSign() ([]byte, error) {
	txid, err := stx.Tx.Digest()
	if err != nil {
		return nil, Wrap(err)
	}
	return accounts.TextHash(txid[:]), nil
}

// Sign signs the underlying Tx using the provided `signHash` function, and
// stores the signature in `stx.Signature`.  `signHash` should do an ethereum
// signature using the account corresponding to `stx.Tx.From`.  The `signHash`
// function is used to make signing flexible: in tests we sign directly using
// the private key, outside tests the key may live in a keystore.
func (stx *SignedTx) Sign(signHash func(hash []byte) ([]byte, error)) error {
	hash, err := stx.HashToSign()
	if err != nil {
		return Wrap(err)
	}
	sig, err := signHash(hash)
	if err != nil {
		return Wrap(err)
	}
	if len(sig) != SignatureLen {
		return Wrap(ErrInvalidSignature)
	}
	if sig[SignatureLen-1] < 27 {
		sig[SignatureLen-1] += 27
	}
	stx.Signature = sig
	return nil
}

// VerifySignature recomputes the Tx digest, recovers the signer from the
// signature and succeeds only if the recovered address equals Tx.From.
// Both the raw {0,1} and the ethereum {27,28} recovery id encodings are
// accepted.
func (stx *SignedTx) VerifySignature() error {
	if len(stx.Signature) != SignatureLen {
		return Wrap(ErrInvalidSignature)
	}
	hash, err := stx.HashToSign()
	if err != nil {
		return Wrap(err)
	}
	sig := make([]byte, SignatureLen)
	copy(sig, stx.Signature)
	if sig[SignatureLen-1] >= 27 {
		sig[SignatureLen-1] -= 27
	}
	pubKey, err := ethCrypto.SigToPub(hash, sig)
	if err != nil {
		return Wrap(ErrInvalidSignature)
	}
	if ethCrypto.PubkeyToAddress(*pubKey) != stx.Tx.From {
		return Wrap(ErrInvalidSignature)
	}
	return nil
}

// BigIntToBytes32 returns the 32 byte big-endian encoding of v.  Returns
// ErrNumOverflow if v is negative or doesn't fit in 256 bits.
func BigIntToBytes32(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.BitLen() > 8*wordLen {
		return nil, Wrap(ErrNumOverflow)
	}
	return ethMath.PaddedBigBytes(v, wordLen), nil
}
