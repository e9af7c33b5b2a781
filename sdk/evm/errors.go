package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// TransactionRevertedError is returned when a mined transaction has a failed
// receipt status. The receipt is kept for callers that want to inspect gas
// usage or logs of the failed execution.
type TransactionRevertedError struct {
	Hash    string
	Receipt *gethtypes.Receipt
}

// NewTransactionRevertedError returns a new TransactionRevertedError.
func NewTransactionRevertedError(hash string, receipt *gethtypes.Receipt) *TransactionRevertedError {
	return &TransactionRevertedError{Hash: hash, Receipt: receipt}
}

func (e *TransactionRevertedError) Error() string {
	return fmt.Sprintf("transaction reverted: %s", e.Hash)
}

// InvalidDeploymentStatusError is returned when the manager contract reports
// a status byte outside the known enum, which indicates an ABI mismatch
// between this client and the deployed contract.
type InvalidDeploymentStatusError struct {
	Manager common.Address
	Status  uint8
}

// NewInvalidDeploymentStatusError returns a new InvalidDeploymentStatusError.
func NewInvalidDeploymentStatusError(manager common.Address, status uint8) *InvalidDeploymentStatusError {
	return &InvalidDeploymentStatusError{Manager: manager, Status: status}
}

func (e *InvalidDeploymentStatusError) Error() string {
	return fmt.Sprintf("manager %s reported invalid deployment status: %d", e.Manager.Hex(), e.Status)
}
