// Package abi wraps go-ethereum's ABI packing behind abi.encode /
// abi.decode equivalents, which leaf hashing and calldata assembly use
// throughout.
package abi

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABIEncode packs values according to the given JSON argument definition,
// matching Solidity's abi.encode. The definition is the "inputs" array of a
// method, e.g. `[{"type":"address"},{"type":"uint64"}]`.
func ABIEncode(abiStr string, values ...any) ([]byte, error) {
	inDef := fmt.Sprintf(`[{ "name" : "method", "type": "function", "inputs": %s}]`, abiStr)
	inAbi, err := abi.JSON(strings.NewReader(inDef))
	if err != nil {
		return nil, err
	}

	res, err := inAbi.Pack("method", values...)
	if err != nil {
		return nil, err
	}

	// Strip the 4-byte method selector the dummy method adds.
	return res[4:], nil
}

// ABIDecode unpacks data according to the given JSON argument definition,
// matching Solidity's abi.decode.
func ABIDecode(abiStr string, data []byte) ([]any, error) {
	outDef := fmt.Sprintf(`[{ "name" : "method", "type": "function", "outputs": %s}]`, abiStr)
	outAbi, err := abi.JSON(strings.NewReader(outDef))
	if err != nil {
		return nil, err
	}

	return outAbi.Unpack("method", data)
}
