package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obelisk-org/obelisk/types"
)

const erc20TransferABI = `[{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]}]`

func Test_Decoder_Decode(t *testing.T) {
	t.Parallel()

	decoder := NewDecoder()

	transferData := common.Hex2Bytes(
		"a9059cbb" + // transfer(address,uint256)
			"0000000000000000000000000000000000000000000000000000000000000001" +
			"00000000000000000000000000000000000000000000000000000000000003e8",
	)

	tests := []struct {
		name    string
		give    types.Action
		giveABI string
		want    *types.DecodedAction
		wantErr string
	}{
		{
			name: "success: call action resolves function name and arguments",
			give: types.Action{
				Index: 0,
				Type:  types.ActionTypeCall,
				To:    common.HexToAddress("0x9"),
				Data:  transferData,
			},
			giveABI: erc20TransferABI,
			want: &types.DecodedAction{
				Address:      common.HexToAddress("0x9"),
				FunctionName: "transfer",
				Variables: []types.Variable{
					{Name: "to", Value: common.HexToAddress("0x1")},
					{Name: "amount", Value: big.NewInt(1000)},
				},
			},
		},
		{
			name: "success: deploy action is identified by its contract",
			give: types.Action{
				Index: 1,
				Type:  types.ActionTypeDeployContract,
				To:    common.HexToAddress("0x9"),
				Data:  []byte{0x60, 0x80},
				Contracts: []types.ContractDeployment{
					{
						Address:            common.HexToAddress("0x9"),
						FullyQualifiedName: "src/Token.sol:Token",
					},
				},
			},
			giveABI: erc20TransferABI,
			want: &types.DecodedAction{
				ReferenceName: "src/Token.sol:Token",
				Address:       common.HexToAddress("0x9"),
				FunctionName:  "constructor",
			},
		},
		{
			name: "failure: calldata too short",
			give: types.Action{
				Index: 2,
				Type:  types.ActionTypeCall,
				To:    common.HexToAddress("0x9"),
				Data:  []byte{0xa9, 0x05},
			},
			giveABI: erc20TransferABI,
			wantErr: "calldata too short to contain a function selector: 2 bytes",
		},
		{
			name: "failure: unknown selector",
			give: types.Action{
				Index: 3,
				Type:  types.ActionTypeCall,
				To:    common.HexToAddress("0x9"),
				Data:  common.Hex2Bytes("deadbeef"),
			},
			giveABI: erc20TransferABI,
			wantErr: "no method with id",
		},
		{
			name: "failure: invalid contract ABI",
			give: types.Action{
				Index: 4,
				Type:  types.ActionTypeCall,
				To:    common.HexToAddress("0x9"),
				Data:  transferData,
			},
			giveABI: "not json",
			wantErr: "invalid character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decoder.Decode(tt.give, tt.giveABI)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
