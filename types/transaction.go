package types

// TransactionResult describes a confirmed transaction returned by an
// executor.
type TransactionResult struct {
	Hash string `json:"hash"`

	// GasUsed is taken from the receipt.
	GasUsed uint64 `json:"gasUsed"`

	// RawData holds the underlying chain-specific transaction object.
	// Callers cast it to the concrete type of their chain family.
	RawData any `json:"-"`
}
