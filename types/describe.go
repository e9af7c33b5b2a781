package types

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// describeMaxDepth bounds how deep nested variables are rendered before
	// collapsing to an ellipsis.
	describeMaxDepth = 5

	// describeMaxItems bounds how many arguments, elements, or keys are
	// shown at each level.
	describeMaxItems = 3
)

// Describe renders a one-line human-readable preview of the action for
// confirmation prompts and failure reports. It never fails; malformed
// decoded variables degrade to a best-effort string.
func (a Action) Describe() string {
	if a.Decoded == nil {
		switch a.Type {
		case ActionTypeDeployContract:
			return fmt.Sprintf("action %d: deploy contract to %s", a.Index, a.To.Hex())
		case ActionTypeCall:
			return fmt.Sprintf("action %d: call %s", a.Index, a.To.Hex())
		case ActionTypeSetStorage:
			return fmt.Sprintf("action %d: set storage on %s", a.Index, a.To.Hex())
		}

		return fmt.Sprintf("action %d: %s to %s", a.Index, a.Type, a.To.Hex())
	}

	d := a.Decoded
	switch a.Type {
	case ActionTypeDeployContract:
		return fmt.Sprintf("action %d: deploy %s at %s", a.Index, d.ReferenceName, d.Address.Hex())
	case ActionTypeCall:
		return fmt.Sprintf("action %d: call %s.%s(%s)", a.Index, d.ReferenceName, d.FunctionName, formatVariables(d.Variables))
	case ActionTypeSetStorage:
		return fmt.Sprintf("action %d: set storage on %s(%s)", a.Index, d.ReferenceName, formatVariables(d.Variables))
	}

	return fmt.Sprintf("action %d: %s on %s", a.Index, a.Type, d.ReferenceName)
}

func formatVariables(vars []Variable) string {
	parts := make([]string, 0, min(len(vars), describeMaxItems))
	for i, v := range vars {
		if i == describeMaxItems {
			parts = append(parts, "…")

			break
		}

		val := formatValue(v.Value, 0)
		if v.Name != "" {
			parts = append(parts, v.Name+": "+val)
		} else {
			parts = append(parts, val)
		}
	}

	return strings.Join(parts, ", ")
}

// formatValue renders a decoded variable value. Structures nested deeper
// than describeMaxDepth collapse to an ellipsis.
func formatValue(value any, depth int) string {
	if depth >= describeMaxDepth {
		return "…"
	}

	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case *big.Int:
		if v == nil {
			return "null"
		}

		return v.String()
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case []byte:
		return "0x" + common.Bytes2Hex(v)
	case []any:
		return formatSlice(v, depth)
	case map[string]any:
		return formatMap(v, depth)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func formatSlice(values []any, depth int) string {
	parts := make([]string, 0, min(len(values), describeMaxItems))
	for i, v := range values {
		if i == describeMaxItems {
			parts = append(parts, "…")

			break
		}

		parts = append(parts, formatValue(v, depth+1))
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func formatMap(values map[string]any, depth int) string {
	// Sort keys so previews are stable across runs.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, min(len(keys), describeMaxItems))
	for i, k := range keys {
		if i == describeMaxItems {
			parts = append(parts, "…")

			break
		}

		parts = append(parts, k+": "+formatValue(values[k], depth+1))
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
