package obelisk

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer is an interface for different strategies for signing proposal
// digests.
type Signer interface {
	// Sign signs the 32-byte digest and returns the 65-byte [R || S || V]
	// signature. The digest is already EIP-191 prefixed; implementations
	// must not prefix again.
	Sign(payload []byte) ([]byte, error)

	// GetAddress returns the address the signatures recover to.
	GetAddress() (common.Address, error)
}

var _ Signer = &PrivateKeySigner{}

// PrivateKeySigner signs payloads using a private key.
type PrivateKeySigner struct {
	pk *ecdsa.PrivateKey
}

// NewPrivateKeySigner creates a new PrivateKeySigner.
func NewPrivateKeySigner(pk *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{pk: pk}
}

// Sign signs the payload using the private key.
func (s *PrivateKeySigner) Sign(payload []byte) ([]byte, error) {
	return crypto.Sign(payload, s.pk)
}

// GetAddress returns the address of the signer.
func (s *PrivateKeySigner) GetAddress() (common.Address, error) {
	return crypto.PubkeyToAddress(s.pk.PublicKey), nil
}
