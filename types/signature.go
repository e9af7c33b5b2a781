package types

import (
	"crypto/ecdsa"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureBytesLength is the length of a serialized signature: R and S
	// followed by the single recovery byte V.
	SignatureBytesLength = 65

	// SignatureComponentSize is the size of the R and S components in
	// bytes.
	SignatureComponentSize = 32

	// SignatureVOffset adjusts the recovery id between the Ethereum
	// convention (27/28) and the raw form (0/1).
	SignatureVOffset = 27
)

// Signature is an ECDSA signature over a proposal's signing hash, split
// into its R, S and V components.
type Signature struct {
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
	V uint8       `json:"v"`
}

// NewSignatureFromBytes parses a 65-byte serialized signature.
func NewSignatureFromBytes(sig []byte) (Signature, error) {
	if len(sig) != SignatureBytesLength {
		return Signature{}, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	return Signature{
		R: common.BytesToHash(sig[:SignatureComponentSize]),
		S: common.BytesToHash(sig[SignatureComponentSize:(SignatureBytesLength - 1)]),
		V: sig[SignatureBytesLength-1],
	}, nil
}

// ToBytes serializes the signature as R || S || V.
func (s Signature) ToBytes() []byte {
	return slices.Concat(
		s.R.Bytes(),
		s.S.Bytes(),
		[]byte{s.V},
	)
}

// Recover returns the signer address recovered from the signature and the
// signed hash.
func (s Signature) Recover(hash common.Hash) (common.Address, error) {
	pubKey, err := s.RecoverPublicKey(hash)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// RecoverPublicKey returns the public key recovered from the signature and
// the signed hash.
func (s Signature) RecoverPublicKey(hash common.Hash) (*ecdsa.PublicKey, error) {
	sig := s.ToBytes()

	// crypto.SigToPub expects a recovery id of 0 or 1, while Ethereum
	// signatures carry 27 or 28.
	if sig[SignatureBytesLength-1] > 1 {
		sig[SignatureBytesLength-1] -= SignatureVOffset
	}

	return crypto.SigToPub(hash.Bytes(), sig)
}
